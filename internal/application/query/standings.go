package query

import (
	"context"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS LOADER
// Computes the class standings from the repositories and keeps the result in
// the standings cache until a mutation invalidates it.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsLoaderOptions configures a StandingsLoader. Every field is optional.
// Commands must invalidate through the same GuardedCache as Cache, otherwise
// a result computed before a write can be stored after it.
type StandingsLoaderOptions struct {
	Cache       *leaderboard.GuardedCache
	TTL         time.Duration
	Concurrency int
	Metrics     Recorder
	Logger      *logger.Logger
}

// StandingsLoader returns the ranked active roster.
type StandingsLoader struct {
	repos   Repositories
	loader  *recordLoader
	cache   *leaderboard.GuardedCache
	ttl     time.Duration
	metrics Recorder
	log     *logger.Logger
}

// NewStandingsLoader creates a new StandingsLoader.
func NewStandingsLoader(repos Repositories, opts StandingsLoaderOptions) *StandingsLoader {
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &StandingsLoader{
		repos:   repos,
		loader:  newRecordLoader(repos, opts.Concurrency),
		cache:   opts.Cache,
		ttl:     opts.TTL,
		metrics: opts.Metrics,
		log:     opts.Logger.With(logger.Component("standings")),
	}
}

// Load returns the cached standings or computes them. A cache failure is
// logged and the standings are computed from storage.
func (l *StandingsLoader) Load(ctx context.Context) ([]leaderboard.Standing, error) {
	var gen uint64
	if l.cache != nil {
		gen = l.cache.Generation()
		standings, ok, err := l.cache.Get(ctx)
		switch {
		case err != nil:
			l.metrics.StandingsCacheLookup("error")
			l.log.Warn("standings cache read failed", logger.Err(err))
		case ok:
			l.metrics.StandingsCacheLookup("hit")
			return standings, nil
		default:
			l.metrics.StandingsCacheLookup("miss")
		}
	}

	standings, err := l.compute(ctx)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		kept, err := l.cache.Fill(ctx, gen, standings, l.ttl)
		switch {
		case err != nil:
			l.log.Warn("standings cache write failed", logger.Err(err))
		case !kept:
			l.log.Debug("standings changed while computing, not cached")
		}
	}
	return standings, nil
}

// Refresh recomputes the standings and overwrites the cached entry unless a
// write invalidated it meanwhile. It returns the number of ranked students.
func (l *StandingsLoader) Refresh(ctx context.Context) (int, error) {
	var gen uint64
	if l.cache != nil {
		gen = l.cache.Generation()
	}
	standings, err := l.compute(ctx)
	if err != nil {
		return 0, err
	}
	if l.cache != nil {
		if _, err := l.cache.Fill(ctx, gen, standings, l.ttl); err != nil {
			return len(standings), err
		}
	}
	return len(standings), nil
}

func (l *StandingsLoader) compute(ctx context.Context) ([]leaderboard.Standing, error) {
	start := time.Now()

	roster, err := l.repos.Students.List(ctx, true)
	if err != nil {
		return nil, err
	}

	records, err := l.loader.load(ctx, roster)
	if err != nil {
		return nil, err
	}

	standings := leaderboard.ComputeStandings(roster, records.grades, records.attendance)

	elapsed := time.Since(start)
	l.metrics.StandingsComputed(len(standings), elapsed)
	l.log.Debug("standings computed", logger.Count(len(standings)), logger.Latency(elapsed))
	return standings, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STANDINGS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStandingsQuery requests the class ranking. Limit 0 returns everyone.
type GetStandingsQuery struct {
	Limit int
}

// StandingsResult is the ranking plus the class dashboard numbers.
type StandingsResult struct {
	Standings        []leaderboard.Standing `json:"standings"`
	Summary          leaderboard.Summary    `json:"summary"`
	ActiveActivities int                    `json:"active_activities"`
	PresenceRecords  int                    `json:"presence_records"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// GetStandingsHandler handles GetStandingsQuery.
type GetStandingsHandler struct {
	loader *StandingsLoader
	repos  Repositories
}

// NewGetStandingsHandler creates a new GetStandingsHandler.
func NewGetStandingsHandler(loader *StandingsLoader, repos Repositories) *GetStandingsHandler {
	return &GetStandingsHandler{loader: loader, repos: repos}
}

// Handle returns the standings. The summary always covers the whole class.
func (h *GetStandingsHandler) Handle(ctx context.Context, q GetStandingsQuery) (*StandingsResult, error) {
	standings, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := h.repos.Activities.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	present, err := h.repos.Attendance.CountPresent(ctx)
	if err != nil {
		return nil, err
	}

	return &StandingsResult{
		Standings:        leaderboard.Top(standings, q.Limit),
		Summary:          leaderboard.ClassSummary(standings),
		ActiveActivities: activities,
		PresenceRecords:  present,
		GeneratedAt:      timeutil.Now(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT STANDING QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentStandingQuery requests one student's row.
type GetStudentStandingQuery struct {
	StudentID string
}

// StudentStandingResult is one student's standing. Position is 0 for
// inactive students, who are not ranked.
type StudentStandingResult struct {
	leaderboard.Standing
	Active    bool `json:"active"`
	ClassSize int  `json:"class_size"`
}

// GetStudentStandingHandler handles GetStudentStandingQuery.
type GetStudentStandingHandler struct {
	loader *StandingsLoader
	repos  Repositories
}

// NewGetStudentStandingHandler creates a new GetStudentStandingHandler.
func NewGetStudentStandingHandler(loader *StandingsLoader, repos Repositories) *GetStudentStandingHandler {
	return &GetStudentStandingHandler{loader: loader, repos: repos}
}

// Handle returns the student's standing.
func (h *GetStudentStandingHandler) Handle(ctx context.Context, q GetStudentStandingQuery) (*StudentStandingResult, error) {
	s, err := h.repos.Students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	standings, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	if st, ok := leaderboard.Find(standings, s.ID); ok {
		return &StudentStandingResult{Standing: st, Active: s.Active, ClassSize: len(standings)}, nil
	}

	grades, err := h.repos.Grades.ListGrades(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	records, err := h.repos.Attendance.ListAttendance(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	return &StudentStandingResult{
		Standing: leaderboard.Standing{
			StudentID:  s.ID,
			Name:       s.Name,
			Enrollment: s.Enrollment.String(),
			Metrics:    leaderboard.ComputeMetrics(grades, records),
		},
		Active:    s.Active,
		ClassSize: len(standings),
	}, nil
}

// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

// DefaultLoadConcurrency bounds the per-student record fan-out.
const DefaultLoadConcurrency = 8

// Repositories bundles the read sides used by the queries.
type Repositories struct {
	Students   student.Repository
	Activities activity.Repository
	Grades     activity.GradeRepository
	Attendance attendance.Repository
	Groups     group.Repository
	Rewards    reward.Repository
}

// Recorder receives standings metrics. *metrics.Metrics implements it.
type Recorder interface {
	StandingsCacheLookup(result string)
	StandingsComputed(students int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) StandingsCacheLookup(string)          {}
func (nopRecorder) StandingsComputed(int, time.Duration) {}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD LOADING
// ══════════════════════════════════════════════════════════════════════════════

// studentRecords holds the grades and attendance of a set of students, keyed
// by student ID.
type studentRecords struct {
	grades     map[string][]*activity.Grade
	attendance map[string][]*attendance.Record
}

// recordLoader fetches per-student records in parallel with a bounded number
// of in-flight repository calls.
type recordLoader struct {
	grades      activity.GradeRepository
	attendance  attendance.Repository
	concurrency int
}

func newRecordLoader(repos Repositories, concurrency int) *recordLoader {
	if concurrency <= 0 {
		concurrency = DefaultLoadConcurrency
	}
	return &recordLoader{
		grades:      repos.Grades,
		attendance:  repos.Attendance,
		concurrency: concurrency,
	}
}

// load returns the records of every student. The first failure cancels the rest.
func (l *recordLoader) load(ctx context.Context, students []*student.Student) (studentRecords, error) {
	grades := make([][]*activity.Grade, len(students))
	records := make([][]*attendance.Record, len(students))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, s := range students {
		id := s.ID
		g.Go(func() error {
			list, err := l.grades.ListGrades(gctx, id)
			if err != nil {
				return fmt.Errorf("load grades of %s: %w", id, err)
			}
			grades[i] = list
			return nil
		})
		g.Go(func() error {
			list, err := l.attendance.ListAttendance(gctx, id)
			if err != nil {
				return fmt.Errorf("load attendance of %s: %w", id, err)
			}
			records[i] = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return studentRecords{}, err
	}

	out := studentRecords{
		grades:     make(map[string][]*activity.Grade, len(students)),
		attendance: make(map[string][]*attendance.Record, len(students)),
	}
	for i, s := range students {
		out.grades[s.ID] = grades[i]
		out.attendance[s.ID] = records[i]
	}
	return out, nil
}

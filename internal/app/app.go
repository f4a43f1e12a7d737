// Package app assembles the command and query handlers of the gradebook from
// a set of repositories. cmd/server and the HTTP tests share it.
package app

import (
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/command"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/query"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/metrics"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
)

// Options configures New. Repos and Table are required.
type Options struct {
	Repos query.Repositories

	// Cache holds computed standings. Nil disables caching.
	Cache    leaderboard.Cache
	CacheTTL time.Duration

	Table  reward.Table
	Source reward.RandomSource

	// Concurrency bounds parallel record loads. Zero means query.DefaultLoadConcurrency.
	Concurrency int

	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Commands groups the write-side handlers.
type Commands struct {
	RegisterStudent *command.RegisterStudentHandler
	UpdateStudent   *command.UpdateStudentHandler
	DeleteStudent   *command.DeleteStudentHandler

	CreateActivity *command.CreateActivityHandler
	UpdateActivity *command.UpdateActivityHandler
	DeleteActivity *command.DeleteActivityHandler

	RecordGrade *command.RecordGradeHandler
	UpdateGrade *command.UpdateGradeHandler
	DeleteGrade *command.DeleteGradeHandler

	RecordAttendance     *command.RecordAttendanceHandler
	RecordBulkAttendance *command.RecordBulkAttendanceHandler
	UpdateAttendance     *command.UpdateAttendanceHandler
	DeleteAttendance     *command.DeleteAttendanceHandler

	CreateGroup       *command.CreateGroupHandler
	UpdateGroup       *command.UpdateGroupHandler
	AddGroupMembers   *command.AddGroupMembersHandler
	RemoveGroupMember *command.RemoveGroupMemberHandler
	DeleteGroup       *command.DeleteGroupHandler

	DrawReward   *command.DrawRewardHandler
	RedeemReward *command.RedeemRewardHandler
}

// Queries groups the read-side handlers.
type Queries struct {
	Standings        *query.GetStandingsHandler
	StudentStanding  *query.GetStudentStandingHandler
	ListStudents     *query.ListStudentsHandler
	ActivityReport   *query.GetActivityReportHandler
	GradeHistory     *query.GetGradeHistoryHandler
	AttendanceReport *query.GetAttendanceReportHandler
	GroupRankings    *query.GetGroupRankingsHandler
	RewardHistory    *query.GetRewardHistoryHandler
	PendingRewards   *query.GetPendingRewardsHandler
}

// Application is the fully wired use-case layer.
type Application struct {
	Commands Commands
	Queries  Queries

	// Standings is shared by the standings queries and the cache warmer.
	Standings *query.StandingsLoader
}

// New wires every handler. It fails only when the reward table is invalid.
func New(opts Options) (*Application, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	repos := opts.Repos

	deps := command.Deps{Logger: log}
	loaderOpts := query.StandingsLoaderOptions{
		TTL:         opts.CacheTTL,
		Concurrency: opts.Concurrency,
		Logger:      log,
	}
	if opts.Cache != nil {
		cache := leaderboard.Guard(opts.Cache)
		deps.Cache = cache
		loaderOpts.Cache = cache
	}
	// A nil *metrics.Metrics must not end up inside a non-nil interface.
	if opts.Metrics != nil {
		deps.Metrics = opts.Metrics
		loaderOpts.Metrics = opts.Metrics
	}

	draw, err := command.NewDrawRewardHandler(repos.Students, repos.Rewards, opts.Table, opts.Source, deps)
	if err != nil {
		return nil, fmt.Errorf("wire reward drawer: %w", err)
	}

	loader := query.NewStandingsLoader(repos, loaderOpts)

	return &Application{
		Commands: Commands{
			RegisterStudent: command.NewRegisterStudentHandler(repos.Students, deps),
			UpdateStudent:   command.NewUpdateStudentHandler(repos.Students, deps),
			DeleteStudent:   command.NewDeleteStudentHandler(repos.Students, deps),

			CreateActivity: command.NewCreateActivityHandler(repos.Activities, deps),
			UpdateActivity: command.NewUpdateActivityHandler(repos.Activities, repos.Grades, deps),
			DeleteActivity: command.NewDeleteActivityHandler(repos.Activities, deps),

			RecordGrade: command.NewRecordGradeHandler(repos.Students, repos.Activities, repos.Grades, deps),
			UpdateGrade: command.NewUpdateGradeHandler(repos.Activities, repos.Grades, deps),
			DeleteGrade: command.NewDeleteGradeHandler(repos.Grades, deps),

			RecordAttendance:     command.NewRecordAttendanceHandler(repos.Students, repos.Attendance, deps),
			RecordBulkAttendance: command.NewRecordBulkAttendanceHandler(repos.Students, repos.Attendance, deps),
			UpdateAttendance:     command.NewUpdateAttendanceHandler(repos.Attendance, deps),
			DeleteAttendance:     command.NewDeleteAttendanceHandler(repos.Attendance, deps),

			CreateGroup:       command.NewCreateGroupHandler(repos.Groups, deps),
			UpdateGroup:       command.NewUpdateGroupHandler(repos.Groups, deps),
			AddGroupMembers:   command.NewAddGroupMembersHandler(repos.Groups, repos.Students, deps),
			RemoveGroupMember: command.NewRemoveGroupMemberHandler(repos.Groups, deps),
			DeleteGroup:       command.NewDeleteGroupHandler(repos.Groups, deps),

			DrawReward:   draw,
			RedeemReward: command.NewRedeemRewardHandler(repos.Rewards, deps),
		},
		Queries: Queries{
			Standings:        query.NewGetStandingsHandler(loader, repos),
			StudentStanding:  query.NewGetStudentStandingHandler(loader, repos),
			ListStudents:     query.NewListStudentsHandler(repos),
			ActivityReport:   query.NewGetActivityReportHandler(repos),
			GradeHistory:     query.NewGetGradeHistoryHandler(repos),
			AttendanceReport: query.NewGetAttendanceReportHandler(repos),
			GroupRankings:    query.NewGetGroupRankingsHandler(repos, opts.Concurrency),
			RewardHistory:    query.NewGetRewardHistoryHandler(repos),
			PendingRewards:   query.NewGetPendingRewardsHandler(repos),
		},
		Standings: loader,
	}, nil
}

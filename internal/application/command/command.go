// Package command contains write operations (CQRS - Commands).
// Each command is a plain struct validated by tags, handled by its own handler.
// Handlers that change grades, attendance or the roster drop the cached standings.
package command

import (
	"context"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"

	"github.com/google/uuid"
)

// Recorder receives business counters. *metrics.Metrics implements it.
type Recorder interface {
	DrawRecorded(category string)
	RewardRedeemed(category string)
	Mutation(kind string)
}

type nopRecorder struct{}

func (nopRecorder) DrawRecorded(string)   {}
func (nopRecorder) RewardRedeemed(string) {}
func (nopRecorder) Mutation(string)       {}

// Deps bundles the collaborators shared by all handlers. Cache, Metrics and
// Logger are optional.
type Deps struct {
	Cache   leaderboard.Cache
	Metrics Recorder
	Logger  *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// changed records the mutation and invalidates the standings cache. A failed
// invalidation is logged, never returned: the write already succeeded.
func (d Deps) changed(ctx context.Context, kind string) {
	d.Metrics.Mutation(kind)
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Invalidate(ctx); err != nil {
		d.Logger.Warn("standings cache invalidation failed",
			logger.Operation(kind),
			logger.Err(err),
		)
	}
}

func newID() string {
	return uuid.NewString()
}

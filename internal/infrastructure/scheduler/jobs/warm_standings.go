// Package jobs contains the scheduled jobs of the gradebook service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM STANDINGS JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmStandingsName is the registered name of WarmStandingsJob.
const WarmStandingsName = "warm_standings"

// StandingsRefresher recomputes and caches the class standings.
// *query.StandingsLoader implements it.
type StandingsRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// WarmStandingsJob recomputes the standings before the cached entry expires,
// so dashboard reads rarely pay for a full computation.
type WarmStandingsJob struct {
	refresher StandingsRefresher
	timeout   time.Duration
	log       *logger.Logger
}

// NewWarmStandingsJob creates the job. A zero timeout means 30 seconds.
func NewWarmStandingsJob(refresher StandingsRefresher, timeout time.Duration, log *logger.Logger) *WarmStandingsJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WarmStandingsJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With(logger.Component(WarmStandingsName)),
	}
}

// Name implements scheduler.Job.
func (j *WarmStandingsJob) Name() string { return WarmStandingsName }

// Run implements scheduler.Job.
func (j *WarmStandingsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("warm standings: %w", err)
	}
	j.log.Debug("standings cache warmed", logger.Count(n))
	return nil
}

// Command server runs the classroom gradebook API: grades, attendance,
// standings, groups and the reward slot machine for one class.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Spinelli666/tabela-gamificacao-alunos/config"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/app"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/query"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/metrics"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/persistence/memory"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/persistence/postgres"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/persistence/redis"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/scheduler"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/Spinelli666/tabela-gamificacao-alunos/internal/interface/http"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/interface/http/handlers"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/circuitbreaker"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/retry"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name), logger.String("version", cfg.App.Version))

	log.Info("starting gradebook",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
		logger.Bool("in_memory", cfg.Database.InMemory),
	)

	if err := timeutil.SetTimezone(cfg.App.Timezone); err != nil {
		log.Warn("unknown timezone, keeping default",
			logger.String("default", timeutil.DefaultTimezone),
			logger.Err(err),
		)
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE (PostgreSQL, or the in-memory store for development)
	// ─────────────────────────────────────────────────────────────────────────
	var repos query.Repositories
	if cfg.Database.InMemory {
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		repos = query.Repositories{
			Students:   store.Students(),
			Activities: store.Activities(),
			Grades:     store.Grades(),
			Attendance: store.Attendance(),
			Groups:     store.Groups(),
			Rewards:    store.Rewards(),
		}
	} else {
		conn, err := connectPostgres(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		health.AddCheck("database", handlers.NewPingCheck(conn))

		// ─────────────────────────────────────────────────────────────────────
		// 4. MIGRATIONS
		// ─────────────────────────────────────────────────────────────────────
		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations applied")
		}

		repos = query.Repositories{
			Students:   postgres.NewStudentRepository(conn),
			Activities: postgres.NewActivityRepository(conn),
			Grades:     postgres.NewGradeRepository(conn),
			Attendance: postgres.NewAttendanceRepository(conn),
			Groups:     postgres.NewGroupRepository(conn),
			Rewards:    postgres.NewRewardRepository(conn),
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. STANDINGS CACHE (Redis, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache leaderboard.Cache
	switch {
	case !cfg.Features.IsEnabled(config.FeatureStandingsCache):
		log.Info("standings cache disabled by feature flag")
	case !cfg.Redis.Disabled:
		rc, err := redis.NewCache(ctx, redisConfig(cfg))
		if err != nil {
			log.Warn("redis unavailable, standings are computed on every request", logger.Err(err))
			break
		}
		defer rc.Close()
		breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
		cache = redis.NewStandingsCache(rc).WithBreaker(breaker)
		health.AddOptionalCheck("standings_cache", handlers.NewPingCheck(rc))
		log.Info("connected to redis")
	case cfg.Database.InMemory:
		cache = memory.NewStandingsCache()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. METRICS
	// ─────────────────────────────────────────────────────────────────────────
	var m *metrics.Metrics
	if cfg.Observability.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.New(app.Options{
		Repos:    repos,
		Cache:    cache,
		CacheTTL: cfg.Redis.StandingsTTL,
		Table:    cfg.Rewards.Table.Table(),
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cache != nil && cfg.Redis.WarmInterval > 0 {
		schedOpts := scheduler.Options{Logger: log}
		if m != nil {
			schedOpts.Metrics = m
		}
		sched = scheduler.New(schedOpts)
		warm := jobs.NewWarmStandingsJob(application.Standings, cfg.Database.QueryTimeout, log)
		if err := sched.Register(warm, scheduler.Every(cfg.Redis.WarmInterval)); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.ConfigFrom(cfg)
	if httpConfig.APIKeyHash == "" {
		log.Warn("HTTP_API_KEY_HASH not set, write routes are open")
	}
	httpDeps := httpserver.Dependencies{
		App:           application,
		Features:      cfg.Features,
		Logger:        log,
		HealthChecker: health,
	}
	if m != nil {
		httpDeps.Metrics = m
	}
	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START
	// ─────────────────────────────────────────────────────────────────────────
	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	errCh := httpServer.StartAsync()
	log.Info("gradebook is running", logger.String("http_address", httpConfig.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Warn("failed to stop scheduler", logger.Err(err))
		}
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// connectPostgres retries while the database container is still booting.
func connectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	if cfg.Database.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("connected to database")
	return conn, nil
}

func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = cfg.Redis.URL
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		rc.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.DialTimeout > 0 {
		rc.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		rc.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		rc.WriteTimeout = cfg.Redis.WriteTimeout
	}
	return rc
}

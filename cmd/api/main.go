package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_fleet/internal/api"
	"github.com/passbi/passbi_fleet/internal/cache"
	"github.com/passbi/passbi_fleet/internal/calc"
	"github.com/passbi/passbi_fleet/internal/config"
	"github.com/passbi/passbi_fleet/internal/db"
	"github.com/passbi/passbi_fleet/internal/logging"
	"github.com/passbi/passbi_fleet/internal/metrics"
	"github.com/passbi/passbi_fleet/internal/middleware"
	"github.com/passbi/passbi_fleet/internal/planner"
	"github.com/passbi/passbi_fleet/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	log := logging.New("api")
	cfg := config.LoadFromEnv()
	log.Info().Msg("starting PassBi Fleet API server")

	pool, err := db.GetDB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	applied, err := db.Migrate(ctx, pool)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Int("applied", applied).Msg("database ready")

	recorder, err := metrics.NewPromRecorder(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	calculator := calc.New(calc.Options{Workers: cfg.Workers, Strict: cfg.Strict}, logging.New("calc"))
	opts := []planner.Option{planner.WithMetrics(recorder)}
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return db.HealthCheck(ctx, pool) },
	}

	// Redis only backs the result cache and the rate limiter; without it
	// the API still serves, computing every request
	var limiter fiber.Handler
	if rdb, err := cache.GetClient(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without result cache and rate limit")
	} else {
		defer cache.Close()
		redisCfg := cache.LoadConfigFromEnv()
		opts = append(opts, planner.WithCache(cache.NewResultCache(rdb, cfg.ResultTTL, redisCfg.MutexTTL)))
		limiter = middleware.RateLimit(rdb, cfg.RateLimitPerMinute, logging.New("ratelimit"))
		checks["redis"] = func(ctx context.Context) error { return cache.HealthCheck(ctx, rdb) }
		log.Info().Msg("Redis connection established")
	}

	svc := planner.New(store.NewPostgresRepository(pool), calculator, logging.New("planner"), opts...)

	ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
	if err := bootstrap(ctx, svc, cfg.PlanPath, log); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to bootstrap planning inputs")
	}
	cancel()

	if cfg.PlannerAPIKey == "" {
		log.Warn().Msg("PLANNER_API_KEY not set, write routes are disabled")
	}
	var keyHash [32]byte
	if cfg.PlannerAPIKey != "" {
		keyHash = middleware.PlannerKeyHash(cfg.PlannerAPIKey)
	}

	app := api.NewApp(api.NewHandler(svc, checks, logging.New("handler")), api.Options{
		Auth:      middleware.PlannerAuth(keyHash),
		RateLimit: limiter,
		Metrics:   promhttp.Handler(),
		Log:       logging.New("http"),
	})

	addr := fmt.Sprintf(":%s", cfg.APIPort)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down gracefully")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("server listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

// bootstrap restores the last run and, when a plan file is configured,
// seeds params and calendar that are not stored yet
func bootstrap(ctx context.Context, svc *planner.Service, planPath string, log zerolog.Logger) error {
	if err := svc.Restore(ctx); err != nil {
		return err
	}
	if planPath == "" {
		return nil
	}

	_, params, calendar, err := svc.Inputs(ctx)
	if err != nil {
		return err
	}
	if params != nil && len(calendar) > 0 {
		return nil
	}

	plan, err := config.LoadPlan(planPath)
	if err != nil {
		return err
	}
	if params == nil {
		if _, err := svc.UpdateParams(ctx, plan.Params); err != nil {
			return err
		}
	}
	if len(calendar) == 0 {
		if _, err := svc.UpdateCalendar(ctx, plan.Calendar); err != nil {
			return err
		}
	}

	log.Info().Str("plan", planPath).Msg("planning inputs seeded from plan file")
	return nil
}

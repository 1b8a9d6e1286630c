// claimflow-pipeline: запускает шаги конвейера по cron-расписанию.
//
// Pipeline:
//   - применяет схему и синхронизирует каталог flow/state
//   - по расписанию выполняет шаги из pipeline.steps по порядку
//   - проход выполняет только реплика, взявшая pg_advisory_lock
//   - публикует алерты и итоги шагов в RabbitMQ, если он настроен
//
// С флагом --once выполняет один проход и завершается.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Claimflow/internal/config"
	"github.com/shaiso/Claimflow/internal/mq"
	"github.com/shaiso/Claimflow/internal/repo"
	"github.com/shaiso/Claimflow/internal/scheduler"
	"github.com/shaiso/Claimflow/internal/steps"
	"github.com/shaiso/Claimflow/internal/telemetry"
)

func main() {
	var configPath string
	var once bool

	rootCmd := &cobra.Command{
		Use:           "claimflow-pipeline",
		Short:         "Run claimflow pipeline steps on a schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg, once)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", os.Getenv("CLAIMFLOW_CONFIG"), "Path to claimflow.yaml")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting claimflow-pipeline", "steps", cfg.Pipeline.Steps, "cron", cfg.Pipeline.Cron)

	pool, err := repo.NewPool(ctx, repo.PoolConfig{
		DSN:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		return err
	}
	if err := repo.NewCatalogRepo(pool).Sync(ctx); err != nil {
		return err
	}
	logger.Info("database ready")

	runnerCfg := steps.RunnerConfig{
		DB:         pool,
		ImportLogs: repo.NewImportLogRepo(pool),
		Logger:     logger,
	}
	var deps steps.PipelineDeps

	if publisher, closeMQ := connectMQ(ctx, cfg.RabbitMQ.URL, logger); publisher != nil {
		defer closeMQ()
		runnerCfg.Publisher = publisher
		deps.Alerts = publisher
	}

	registry, err := steps.PipelineRegistry(cfg.Pipeline, deps)
	if err != nil {
		return err
	}
	pipeline, err := registry.Resolve(cfg.Pipeline.Steps)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Runner: steps.NewRunner(runnerCfg),
		Steps:  pipeline,
		Cron:   cfg.Pipeline.Cron,
		Lock:   scheduler.NewAdvisoryLock(pool, cfg.Pipeline.LockKey),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if once {
		ran, err := sched.Tick(ctx)
		if err != nil {
			return err
		}
		if !ran {
			logger.Warn("another replica holds the pipeline lock, nothing done")
		}
		return nil
	}

	server := serveOps(ctx, cfg.Pipeline.Port, pool, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	err = sched.Run(ctx)
	logger.Info("claimflow-pipeline stopped")
	return err
}

// connectMQ подключается к RabbitMQ. Без URL или при ошибке конвейер
// работает без публикации событий.
func connectMQ(ctx context.Context, url string, logger *slog.Logger) (*mq.Publisher, func()) {
	if url == "" {
		logger.Info("RabbitMQ not configured, events disabled")
		return nil, nil
	}

	conn, err := mq.Dial(url, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
		return nil, nil
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}
	logger.Info("RabbitMQ connected")

	return mq.NewPublisher(conn, logger), func() { _ = conn.Close() }
}

// serveOps поднимает /healthz и /metrics.
func serveOps(ctx context.Context, port int, pool *pgxpool.Pool, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	return server
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/dupcheck/internal/api"
	"github.com/RishiKendai/dupcheck/internal/config"
	"github.com/RishiKendai/dupcheck/internal/emit"
	"github.com/RishiKendai/dupcheck/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/dupcheck/internal/infra/redis"
	"github.com/RishiKendai/dupcheck/internal/metrics"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/RishiKendai/dupcheck/internal/repository"
	"github.com/RishiKendai/dupcheck/internal/runner"
	"github.com/RishiKendai/dupcheck/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Redis stream consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	log.Info().Msg("Starting dupcheck server")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	log.Info().Msg("Prometheus metrics initialized")

	// Start metrics server in separate goroutine
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.MetricsPort).Msg("Metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Run status: Redis when configured, process memory otherwise
	var (
		status      plagiarism.StatusStore = plagiarism.NewMemoryStatusStore()
		redisClient *redisInfra.Client
	)
	if cfg.RedisHost != "" {
		var err error
		redisClient, err = redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		status = plagiarism.NewRedisStatusStore(redisClient, cfg.StatusTTL)
	}

	// Run documents: MongoDB when configured, an in-memory cache otherwise
	memoryRuns := emit.NewMemoryStore(100)
	var (
		runs     api.RunLookup = memoryRuns
		runStore emit.RunStore = memoryRuns
	)
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer mongoClient.Close(context.Background())

		runsRepo := repository.NewRunsRepository(repository.NewMongoRepository(mongoClient))
		runs, runStore = runsRepo, runsRepo
	}

	emitters := emit.Multi{
		emit.NewFileEmitter(emit.FileOptions{
			Dir:        cfg.OutputDir,
			IndexFile:  cfg.IndexFile,
			MatrixFile: cfg.MatrixFile,
			Precision:  cfg.MatrixPrecision,
			PerRun:     true,
		}),
		emit.NewStoreEmitter(runStore),
	}
	if cfg.HistoryDB != "" {
		history, err := openHistoryEmitter(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer history.close()
		emitters = append(emitters, history.emitter)
	}

	// Initialize worker pool shared by every run
	workerPool := plagiarism.NewWorkerPool(ctx, cfg.Workers)
	defer workerPool.Close()

	r := runner.New(plagiarism.NewComparator(workerPool), emitters, status)

	if redisClient != nil {
		startConsumer(ctx, cfg, redisClient, r)
	}

	router := api.SetupRoutes(cfg, api.NewHandler(cfg, r, status, runs))

	// Start Gin server
	srv, serveErr := api.StartServer(router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	var runErr error
	select {
	case <-quit:
	case <-parent.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = err
		}
	}

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	// Shutdown Gin server gracefully
	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down Gin server")
	}

	// Shutdown metrics server gracefully
	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
	return runErr
}

func startConsumer(ctx context.Context, cfg *config.Config, redisClient *redisInfra.Client, r *runner.Runner) {
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(redisClient.Client, stream.ConsumerOptions{
		StreamKey: cfg.RedisStreamKey,
		Group:     cfg.RedisConsumerGroup,
		Name:      consumerName,
		Retention: cfg.StreamRetentionDuration,
	}, r, retryHandler)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")
}

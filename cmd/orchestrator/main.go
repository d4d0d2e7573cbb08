package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"reasoncare-orchestrator/internal/audit"
	"reasoncare-orchestrator/internal/cache"
	awsclients "reasoncare-orchestrator/internal/common/aws"
	"reasoncare-orchestrator/internal/common/camunda"
	"reasoncare-orchestrator/internal/common/config"
	"reasoncare-orchestrator/internal/common/database"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/common/observability"
	"reasoncare-orchestrator/internal/invoker"
	"reasoncare-orchestrator/internal/models"
	"reasoncare-orchestrator/internal/orchestrator"
	"reasoncare-orchestrator/internal/router"
	"reasoncare-orchestrator/internal/server"
	orchestratecase "reasoncare-orchestrator/internal/workers/clinical/orchestrate-case"
	"reasoncare-orchestrator/pkg/registry"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("starting reasoncare orchestrator", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(observability.TracingConfig{
			Enabled:        true,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: cfg.App.Version,
			SampleRatio:    cfg.Tracing.SampleRatio,
		}); err != nil {
			zapLog.Fatal("tracing init failed", zap.Error(err))
		}
	}

	ctx := context.Background()
	checks := map[string]server.Check{}

	reg := registry.Default()
	if cfg.Orchestrator.RegistryPath != "" {
		reg, err = registry.LoadRegistry(cfg.Orchestrator.RegistryPath)
		if err != nil {
			zapLog.Fatal("agent registry load failed", zap.Error(err))
		}
	}
	zapLog.Info("agent registry loaded", zap.Int("roles", reg.Len()))

	// --- Text generation ---
	var generator invoker.TextGenerator
	generator, err = awsclients.NewBedrockClient(ctx, cfg.AWS.Region, awsclients.BedrockConfig{
		AnthropicVersion: cfg.AWS.Bedrock.AnthropicVersion,
		MaxTokens:        cfg.AWS.Bedrock.MaxTokens,
	}, log)
	if err != nil {
		zapLog.Fatal("bedrock client init failed", zap.Error(err))
	}

	if cfg.Cache.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb.Ping

		generator = cache.New(generator, rdb, cache.Config{
			TTL:       config.GetDuration(cfg.Cache.TTL),
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, log)
		zapLog.Info("generation cache enabled")
	}

	inv := invoker.New(generator, invoker.Config{
		Timeout:    config.GetDuration(cfg.Orchestrator.InvocationTimeout),
		MaxRetries: cfg.Orchestrator.MaxRetries,
		MaxTokens:  cfg.AWS.Bedrock.MaxTokens,
		BaseDelay:  config.GetDuration(cfg.Orchestrator.RetryBaseDelay),
	}, log, obs)

	orch := orchestrator.New(reg, inv, orchestrator.Config{
		DefaultAgents:      cfg.Orchestrator.DefaultAgents,
		MaxConcurrency:     cfg.Orchestrator.MaxConcurrency,
		ConfidenceStrategy: cfg.Orchestrator.ConfidenceStrategy,
		ConfidenceFallback: cfg.Orchestrator.ConfidenceFallback,
	}, log, obs)

	// --- Router hooks ---
	opts := []router.Option{router.WithObservability(obs)}

	var transcriber router.Transcriber
	if cfg.AWS.Transcribe.Enabled {
		tc, err := awsclients.NewTranscribeClient(ctx, cfg.AWS.Region, log)
		if err != nil {
			zapLog.Fatal("transcribe client init failed", zap.Error(err))
		}
		transcriber = tc
	}

	if cfg.AWS.SNS.Enabled {
		notifier, err := awsclients.NewSNSNotifier(ctx, cfg.AWS.Region, cfg.AWS.SNS.TopicARN, log)
		if err != nil {
			zapLog.Fatal("sns notifier init failed", zap.Error(err))
		}
		opts = append(opts, router.WithNotifier(notifier))
	}

	if cfg.Audit.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping

		store := audit.NewPostgresStore(pg, cfg.Audit.Table)
		if err := store.Migrate(ctx); err != nil {
			zapLog.Fatal("audit migration failed", zap.Error(err))
		}
		opts = append(opts, router.WithRecorder(store))
	}

	rt := router.New(router.Config{
		JobNamePrefix: cfg.AWS.Transcribe.JobNamePrefix,
		LanguageSettings: models.LanguageSettings{
			LanguageCode:      cfg.AWS.Transcribe.LanguageCode,
			MediaFormat:       cfg.AWS.Transcribe.MediaFormat,
			VocabularyName:    cfg.AWS.Transcribe.VocabularyName,
			ShowSpeakerLabels: cfg.AWS.Transcribe.ShowSpeakerLabels,
			MaxSpeakerLabels:  cfg.AWS.Transcribe.MaxSpeakerLabels,
		},
		HookTimeout: 5 * time.Second,
	}, orch, transcriber, log, opts...)

	// --- Zeebe worker ---
	var caseWorker *camunda.CamundaWorker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, orchestratecase.TaskType) {
		var zc *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		checks["zeebe"] = zc.HealthCheck

		wcfg := orchestratecase.LoadConfig(cfg)
		handler := orchestratecase.NewHandler(wcfg, rt, log, orchestratecase.WithRetrier(zc))
		caseWorker = camunda.NewWorker(zc.GetClient(), camunda.WorkerOptions{
			TaskType:      orchestratecase.TaskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       wcfg.Timeout,
		}, handler, log)
		caseWorker.Start()
	}

	// --- HTTP ---
	srv := server.New(server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, rt, checks, log)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if caseWorker != nil {
		caseWorker.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("orchestrator stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/config"
	infraBQ "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/narrative"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open model store")
	}
	defer closeStore()

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.WorkerCount, jobStore)

	deps := insights.Deps{
		History:   repo,
		Store:     store,
		Recorder:  repo,
		Publisher: jobQueue,
	}
	if cfg.GeminiModel != "" {
		narrator, err := narrative.NewGeminiNarrator(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Narrative summaries disabled")
		} else {
			deps.Narrator = narrator
		}
	}

	svcCfg := insights.DefaultConfig(cfg.RandomSeed)
	svcCfg.CacheTTL = cfg.CacheTTL
	svc := insights.New(svcCfg, deps)

	log.Info().
		Str("model_store", cfg.ModelStore).
		Int("workers", cfg.WorkerCount).
		Dur("retrain_interval", cfg.RetrainInterval).
		Msg("Starting worker service")

	if err := jobQueue.Start(ctx, svc.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	go scheduleRetraining(ctx, svc, cfg.RetrainInterval, log)

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers and the scheduler
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

// openStore returns the configured artifact store and a function releasing it.
func openStore(ctx context.Context, cfg config.Config) (model.Store, func(), error) {
	switch cfg.ModelStore {
	case config.StoreGCS:
		s, err := artifacts.NewGCSStore(ctx, cfg.GCSBucket, cfg.ModelDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoreFile:
		s, err := artifacts.NewFileStore(cfg.ModelDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model store %q", cfg.ModelStore)
	}
}

// scheduleRetraining enqueues retraining of recently active users every
// interval until ctx is cancelled.
func scheduleRetraining(ctx context.Context, svc *insights.Service, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ScheduleRetraining(ctx, interval)
			if err != nil {
				log.Error().Err(err).Int("published", n).Msg("Scheduled retraining failed")
				continue
			}
			log.Info().Int("jobs", n).Msg("Retraining jobs enqueued")
		}
	}
}

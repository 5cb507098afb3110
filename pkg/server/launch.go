package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/adapter/formats"
	"github.com/modelhub/modelhub/pkg/analyzer"
	"github.com/modelhub/modelhub/pkg/artifact"
	"github.com/modelhub/modelhub/pkg/config"
	"github.com/modelhub/modelhub/pkg/metrics"
	"github.com/modelhub/modelhub/pkg/service"
	"github.com/modelhub/modelhub/pkg/store/sql"
)

// Launch serves the API until ctx is cancelled, then drains in-flight
// requests within the shutdown timeout.
//
//nolint:funlen
func Launch(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.AuthSecret == "" {
		return errors.New("auth_secret must be set to serve the API")
	}

	store, err := sql.NewSQLStore(log, cfg.StoreURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	artifacts, err := artifact.Open(cfg.ArtifactRoot)
	if err != nil {
		return err
	}

	if closer, ok := artifacts.(io.Closer); ok {
		defer closer.Close()
	}

	registry, err := formats.NewDefaultRegistry()
	if err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return err
	}

	models := service.NewModels(store, artifacts, log)
	signatures := service.NewSignatures(store, m, log)
	predictions := service.NewPredictions(store, m, log)

	modelhubService := NewModelhubService(Services{
		Analyzer: analyzer.New(analyzer.Dependencies{
			Registry:         registry,
			Store:            store,
			Models:           models,
			Signatures:       signatures,
			Predictions:      predictions,
			Metrics:          m,
			Logger:           log,
			InferenceTimeout: cfg.InferenceTimeout.Duration,
		}),
		Models:      models,
		Signatures:  signatures,
		Predictions: predictions,
		Targets:     service.NewTargets(store, log),
	})

	app, err := NewApp(cfg, log, m, modelhubService)
	if err != nil {
		return err
	}

	if cfg.StaleAfter.Duration > 0 {
		go reapStale(ctx, log, predictions, cfg.StaleAfter.Duration)
	}

	go func() {
		<-ctx.Done()

		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout.Duration); err != nil {
			log.Errorf("Failed to gracefully shutdown modelhub server: %v", err)
		}
	}()

	log.WithFields(logrus.Fields{
		"address": cfg.Address,
		"store":   sql.Redact(cfg.StoreURL),
		"version": cfg.Version,
	}).Info("modelhub server listening")

	if err := app.Listen(cfg.Address); err != nil {
		return fmt.Errorf("failed to start modelhub server: %w", err)
	}

	return nil
}

// reapStale fails predictions abandoned by a previous process right away and
// then once per interval.
func reapStale(ctx context.Context, log *logrus.Logger, predictions *service.Predictions, olderThan time.Duration) {
	ticker := time.NewTicker(olderThan)
	defer ticker.Stop()

	for {
		if _, err := predictions.ReapStale(ctx, olderThan); err != nil && ctx.Err() == nil {
			log.Errorf("Failed to reap stale predictions: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

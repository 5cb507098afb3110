// Package analyzer orchestrates uploads and inference: it resolves the format
// adapter of a model, derives and registers input signatures, and drives a
// prediction through its lifecycle.
package analyzer

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/metrics"
	"github.com/modelhub/modelhub/pkg/service"
	"github.com/modelhub/modelhub/pkg/store"
)

const DefaultInferenceTimeout = 30 * time.Second

type Analyzer struct {
	registry         *adapter.Registry
	store            store.ModelhubStore
	models           *service.Models
	signatures       *service.Signatures
	predictions      *service.Predictions
	ownership        service.Ownership
	metrics          *metrics.Metrics
	logger           *logrus.Logger
	inferenceTimeout time.Duration
}

type Dependencies struct {
	Registry         *adapter.Registry
	Store            store.ModelhubStore
	Models           *service.Models
	Signatures       *service.Signatures
	Predictions      *service.Predictions
	Metrics          *metrics.Metrics
	Logger           *logrus.Logger
	InferenceTimeout time.Duration
}

func New(deps Dependencies) *Analyzer {
	timeout := deps.InferenceTimeout
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}

	return &Analyzer{
		registry:         deps.Registry,
		store:            deps.Store,
		models:           deps.Models,
		signatures:       deps.Signatures,
		predictions:      deps.Predictions,
		ownership:        service.NewOwnership(deps.Store),
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		inferenceTimeout: timeout,
	}
}

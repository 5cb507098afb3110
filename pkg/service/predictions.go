package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/metrics"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/store"
)

const (
	DefaultMaxResults = 100
	MaxResultsLimit   = 1000
)

type Predictions struct {
	store     store.ModelhubStore
	ownership Ownership
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func NewPredictions(modelStore store.ModelhubStore, m *metrics.Metrics, logger *logrus.Logger) *Predictions {
	return &Predictions{
		store:     modelStore,
		ownership: NewOwnership(modelStore),
		metrics:   m,
		logger:    logger,
	}
}

func invalidTransition(from, to entities.PredictionStatus) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeInvalidStatusTransition,
		fmt.Sprintf("cannot move prediction from %s to %s", from, to),
	).WithReason(contract.ReasonInvalidStatusTransition).
		With("from", string(from)).
		With("to", string(to))
}

// Create validates input against the signature and inserts a PENDING row.
func (p *Predictions) Create(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
	name string,
	input []byte,
) (*entities.Prediction, error) {
	signature, _, err := p.ownership.Signature(ctx, account, signatureID)
	if err != nil {
		return nil, err
	}

	frame, err := schema.ParseFrame(input)
	if err != nil {
		return nil, err
	}

	if err := signature.Schema.Validate(frame); err != nil {
		return nil, err
	}

	return p.Insert(ctx, signature, name, input)
}

// Insert creates a PENDING prediction for input that was already validated.
// An empty name is replaced by a random one.
func (p *Predictions) Insert(
	ctx context.Context,
	signature *entities.Signature,
	name string,
	input []byte,
) (*entities.Prediction, error) {
	if name == "" {
		name = uuid.NewString()
	}

	prediction, err := p.store.CreatePrediction(ctx, &entities.Prediction{
		SignatureID: signature.ID,
		Name:        name,
		Input:       input,
		Status:      entities.PredictionStatusPending,
	})
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"signature_id":  signature.ID,
		"name":          prediction.Name,
	}).Debug("prediction created")

	return prediction, nil
}

// Transition moves prediction forward along the lifecycle graph. The update is
// a compare-and-swap on the current status, so concurrent writers cannot both
// win.
func (p *Predictions) Transition(
	ctx context.Context,
	prediction *entities.Prediction,
	update store.PredictionUpdate,
	format string,
) (*entities.Prediction, error) {
	if !prediction.Status.CanTransitionTo(update.Status) {
		return nil, invalidTransition(prediction.Status, update.Status)
	}

	updated, err := p.store.TransitionPrediction(ctx, prediction.ID, prediction.Status, update)
	if err != nil {
		return nil, err
	}

	entry := p.logger.WithFields(logrus.Fields{
		"prediction_id": updated.ID,
		"from":          prediction.Status,
		"to":            updated.Status,
	})

	if updated.Status == entities.PredictionStatusFailed {
		entry.WithField("error_code", updated.ErrorCode).Warn("prediction failed")
	} else {
		entry.Debug("prediction transitioned")
	}

	if updated.Status.IsTerminal() {
		p.metrics.PredictionFinished(string(updated.Status), format)
	}

	return updated, nil
}

func (p *Predictions) Update(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
	status entities.PredictionStatus,
	output []byte,
	errorMessage string,
) (*entities.Prediction, error) {
	prediction, _, err := p.ownership.Prediction(ctx, account, predictionID)
	if err != nil {
		return nil, err
	}

	if len(output) > 0 {
		if status != entities.PredictionStatusCompleted {
			return nil, contract.NewError(
				contract.ErrorCodeInvalidInput,
				"output can only be attached when completing a prediction",
			).WithReason(contract.ReasonInvalidParameter)
		}

		if !json.Valid(output) {
			return nil, contract.NewError(contract.ErrorCodeInvalidInput, "output is not valid JSON").
				WithReason(contract.ReasonMalformedInput)
		}
	}

	update := store.PredictionUpdate{Status: status, Output: output}
	if status == entities.PredictionStatusFailed {
		update.ErrorCode = string(contract.ReasonInferenceFailed)
		update.ErrorMessage = errorMessage
	}

	return p.Transition(ctx, prediction, update, "external")
}

func (p *Predictions) Get(ctx context.Context, account entities.Account, predictionID int64) (*entities.Prediction, error) {
	prediction, _, err := p.ownership.Prediction(ctx, account, predictionID)

	return prediction, err
}

func (p *Predictions) ListBySignature(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
	filter string,
	maxResults int,
	pageToken string,
) (*store.PagedList[*entities.Prediction], error) {
	if _, _, err := p.ownership.Signature(ctx, account, signatureID); err != nil {
		return nil, err
	}

	switch {
	case maxResults == 0:
		maxResults = DefaultMaxResults
	case maxResults < 0 || maxResults > MaxResultsLimit:
		return nil, contract.NewError(
			contract.ErrorCodeBadRequest,
			fmt.Sprintf("max_results must be between 1 and %d", MaxResultsLimit),
		).WithReason(contract.ReasonInvalidParameter)
	}

	return p.store.SearchPredictions(ctx, signatureID, filter, maxResults, pageToken)
}

// ReapStale fails predictions stuck in PENDING or RUNNING for longer than
// olderThan, typically left behind by a crashed process.
func (p *Predictions) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	count, err := p.store.FailStale(
		ctx,
		time.Now().Add(-olderThan),
		string(contract.ReasonInferenceAbandoned),
		fmt.Sprintf("prediction did not finish within %s", olderThan),
	)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		p.metrics.PredictionsReaped(count)
		p.logger.WithField("count", count).Warn("failed stale predictions")
	}

	return count, nil
}

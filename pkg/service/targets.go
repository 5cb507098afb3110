package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store"
	"github.com/modelhub/modelhub/pkg/utils"
)

type Targets struct {
	store     store.ModelhubStore
	ownership Ownership
	logger    *logrus.Logger
}

func NewTargets(modelStore store.ModelhubStore, logger *logrus.Logger) *Targets {
	return &Targets{
		store:     modelStore,
		ownership: NewOwnership(modelStore),
		logger:    logger,
	}
}

func checkValue(value []byte) error {
	if len(value) == 0 || !json.Valid(value) {
		return contract.NewError(contract.ErrorCodeInvalidInput, "target value is not valid JSON").
			WithReason(contract.ReasonMalformedInput)
	}

	return nil
}

// Attach records the ground truth for output position order of a finished
// prediction.
func (t *Targets) Attach(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
	order int32,
	value []byte,
) (*entities.Target, error) {
	if order < 0 {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("target order must not be negative, got %d", order),
		).WithReason(contract.ReasonInvalidParameter)
	}

	if err := checkValue(value); err != nil {
		return nil, err
	}

	prediction, _, err := t.ownership.Prediction(ctx, account, predictionID)
	if err != nil {
		return nil, err
	}

	// Terminal states are final, so this check cannot be invalidated later.
	if !prediction.Status.IsTerminal() {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("prediction %d is still %s", predictionID, prediction.Status),
		).WithReason(contract.ReasonPredictionNotTerminal)
	}

	target, err := t.store.CreateTarget(ctx, &entities.Target{
		PredictionID: predictionID,
		Order:        order,
		Value:        value,
	})
	if err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"target_id":     target.ID,
		"order":         order,
	}).Debug("target attached")

	return target, nil
}

// Update replaces the value in place; the last write wins.
func (t *Targets) Update(ctx context.Context, account entities.Account, targetID int64, value []byte) (*entities.Target, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}

	if _, _, err := t.ownership.Target(ctx, account, targetID); err != nil {
		return nil, err
	}

	return t.store.UpdateTargetValue(ctx, targetID, value)
}

func (t *Targets) List(ctx context.Context, account entities.Account, predictionID int64) ([]*entities.Target, error) {
	if _, _, err := t.ownership.Prediction(ctx, account, predictionID); err != nil {
		return nil, err
	}

	return t.store.ListTargets(ctx, predictionID)
}

// Evaluate pairs every target of the signature's completed predictions with
// the output row at the target's order. Numeric pairs feed MAE and RMSE, all
// other pairs are compared for exact equality.
func (t *Targets) Evaluate(ctx context.Context, account entities.Account, signatureID int64) (*entities.Evaluation, error) {
	if _, _, err := t.ownership.Signature(ctx, account, signatureID); err != nil {
		return nil, err
	}

	predictions, err := t.store.ListPredictions(ctx, signatureID, entities.PredictionStatusCompleted)
	if err != nil {
		return nil, err
	}

	targets, err := t.store.ListTargetsForSignature(ctx, signatureID)
	if err != nil {
		return nil, err
	}

	byPrediction := make(map[int64][]*entities.Target)
	for _, target := range targets {
		byPrediction[target.PredictionID] = append(byPrediction[target.PredictionID], target)
	}

	evaluation := &entities.Evaluation{SignatureID: signatureID, Predictions: len(predictions)}

	var absolute, squared float64

	matches := 0

	for _, prediction := range predictions {
		rows := outputRows(prediction.Output)

		for _, target := range byPrediction[prediction.ID] {
			if int(target.Order) >= len(rows) {
				continue
			}

			predicted := rows[target.Order]
			actual := gjson.ParseBytes(target.Value)

			if predicted.Type == gjson.Number && actual.Type == gjson.Number {
				diff := predicted.Float() - actual.Float()
				absolute += math.Abs(diff)
				squared += diff * diff
				evaluation.Numeric++

				continue
			}

			evaluation.Categorical++

			if predicted.Get("@ugly").Raw == actual.Get("@ugly").Raw {
				matches++
			}
		}
	}

	evaluation.Pairs = evaluation.Numeric + evaluation.Categorical

	if evaluation.Numeric > 0 {
		n := float64(evaluation.Numeric)
		evaluation.MAE = utils.PtrTo(absolute / n)
		evaluation.RMSE = utils.PtrTo(math.Sqrt(squared / n))
	}

	if evaluation.Categorical > 0 {
		evaluation.Accuracy = utils.PtrTo(float64(matches) / float64(evaluation.Categorical))
	}

	return evaluation, nil
}

// outputRows splits a stored output into one value per input row. A scalar
// output counts as a single row.
func outputRows(output []byte) []gjson.Result {
	if len(output) == 0 {
		return nil
	}

	parsed := gjson.ParseBytes(output)
	if parsed.IsArray() {
		return parsed.Array()
	}

	return []gjson.Result{parsed}
}

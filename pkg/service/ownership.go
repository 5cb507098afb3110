package service

import (
	"context"
	"fmt"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store"
)

// Ownership re-walks Account -> Model -> Signature -> Prediction -> Target on
// every lookup by id. Nothing is cached, so a lookup never sees a stale owner.
type Ownership struct {
	store store.ModelhubStore
}

func NewOwnership(modelStore store.ModelhubStore) Ownership {
	return Ownership{store: modelStore}
}

// reparent turns a parent's NOT_FOUND or NOT_OWNED into the child's reason.
func reparent(err error, notFound, notOwned contract.Reason, message string) error {
	contractError, ok := contract.AsError(err)
	if !ok {
		return err
	}

	switch contractError.Code {
	case contract.ErrorCodeNotFound:
		return contract.NewError(contract.ErrorCodeNotFound, message).WithReason(notFound)
	case contract.ErrorCodeNotOwned:
		return contract.NewError(contract.ErrorCodeNotOwned, message).WithReason(notOwned)
	default:
		return err
	}
}

func (o Ownership) Model(ctx context.Context, account entities.Account, modelID int64) (*entities.Model, error) {
	model, err := o.store.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	if model.OwnerID != account.ID {
		return nil, contract.NewError(
			contract.ErrorCodeNotOwned,
			fmt.Sprintf("model %d is not owned by account %s", modelID, account.ID),
		).WithReason(contract.ReasonModelNotOwned)
	}

	return model, nil
}

func (o Ownership) Signature(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
) (*entities.Signature, *entities.Model, error) {
	signature, err := o.store.GetSignature(ctx, signatureID)
	if err != nil {
		return nil, nil, err
	}

	model, err := o.Model(ctx, account, signature.ModelID)
	if err != nil {
		return nil, nil, reparent(err,
			contract.ReasonSignatureNotFound, contract.ReasonSignatureNotOwned,
			fmt.Sprintf("signature %d is not accessible", signatureID),
		)
	}

	return signature, model, nil
}

func (o Ownership) Prediction(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
) (*entities.Prediction, *entities.Signature, error) {
	prediction, err := o.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, nil, err
	}

	signature, _, err := o.Signature(ctx, account, prediction.SignatureID)
	if err != nil {
		return nil, nil, reparent(err,
			contract.ReasonPredictionNotFound, contract.ReasonPredictionNotOwned,
			fmt.Sprintf("prediction %d is not accessible", predictionID),
		)
	}

	return prediction, signature, nil
}

func (o Ownership) Target(
	ctx context.Context,
	account entities.Account,
	targetID int64,
) (*entities.Target, *entities.Prediction, error) {
	target, err := o.store.GetTarget(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}

	prediction, _, err := o.Prediction(ctx, account, target.PredictionID)
	if err != nil {
		return nil, nil, reparent(err,
			contract.ReasonTargetNotFound, contract.ReasonTargetNotOwned,
			fmt.Sprintf("target %d is not accessible", targetID),
		)
	}

	return target, prediction, nil
}

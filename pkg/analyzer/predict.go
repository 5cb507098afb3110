package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/store"
)

// BlobRef is a model supplied inline with a prediction request.
type BlobRef struct {
	Type         string
	SpecificType string
	Artifact     []byte
}

type PredictRequest struct {
	ModelID int64
	// Blob runs an unregistered model; nothing is persisted.
	Blob *BlobRef
	// SignatureID defaults to the model's latest signature.
	SignatureID *int64
	Name        string
	Data        []byte
}

// Predict runs inference. For a persisted model the input is validated before
// any row is written; once the row exists it always ends COMPLETED or FAILED,
// even if the caller goes away. A failed inference returns both the FAILED
// prediction and the error.
func (a *Analyzer) Predict(
	ctx context.Context,
	account entities.Account,
	request PredictRequest,
) (*entities.Prediction, error) {
	if request.Blob != nil {
		return a.predictBlob(ctx, request)
	}

	model, err := a.ownership.Model(ctx, account, request.ModelID)
	if err != nil {
		return nil, err
	}

	signature, err := a.signatureFor(ctx, account, model, request.SignatureID)
	if err != nil {
		return nil, err
	}

	frame, err := schema.ParseFrame(request.Data)
	if err != nil {
		return nil, err
	}

	if err := signature.Schema.Validate(frame); err != nil {
		return nil, err
	}

	formatAdapter, err := a.registry.Resolve(model.Type, model.SpecificType)
	if err != nil {
		return nil, err
	}

	prediction, err := a.predictions.Insert(ctx, signature, request.Name, request.Data)
	if err != nil {
		return nil, err
	}

	// From here on the row must converge whatever happens to the caller.
	persist := context.WithoutCancel(ctx)
	format := formatAdapter.Key().String()

	running, err := a.predictions.Transition(persist, prediction,
		store.PredictionUpdate{Status: entities.PredictionStatusRunning}, format)
	if err != nil {
		return a.abandon(persist, prediction, format, err)
	}

	prediction = running

	// Dispatched inference is bounded by the timeout only, never by the caller.
	output, runErr := a.run(persist, formatAdapter, func(ctx context.Context) ([]byte, error) {
		return a.models.Artifact(ctx, model)
	}, frame.Project(signature.Schema.Names()))
	if runErr != nil {
		return a.fail(persist, prediction, format, runErr)
	}

	completed, err := a.predictions.Transition(persist, prediction, store.PredictionUpdate{
		Status: entities.PredictionStatusCompleted,
		Output: output,
	}, format)
	if err != nil {
		return a.abandon(persist, prediction, format, err)
	}

	return completed, nil
}

// abandon fails a prediction whose lifecycle write errored so that it does not
// linger until the stale reaper runs. writeErr is returned either way.
func (a *Analyzer) abandon(
	ctx context.Context,
	prediction *entities.Prediction,
	format string,
	writeErr error,
) (*entities.Prediction, error) {
	contractError, ok := contract.AsError(writeErr)
	if !ok {
		contractError = contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to record prediction progress",
			writeErr,
		)
	}

	contractError = contractError.With("prediction_id", prediction.ID)

	failed, err := a.predictions.Transition(ctx, prediction, store.PredictionUpdate{
		Status:       entities.PredictionStatusFailed,
		ErrorCode:    string(contract.ReasonInferenceAbandoned),
		ErrorMessage: writeErr.Error(),
	}, format)
	if err != nil {
		a.logger.WithError(err).WithField("prediction_id", prediction.ID).
			Warn("could not mark prediction as failed, leaving it to the stale reaper")

		return nil, contractError
	}

	return failed, contractError
}

func (a *Analyzer) signatureFor(
	ctx context.Context,
	account entities.Account,
	model *entities.Model,
	signatureID *int64,
) (*entities.Signature, error) {
	if signatureID != nil {
		signature, _, err := a.ownership.Signature(ctx, account, *signatureID)
		if err != nil {
			return nil, err
		}

		if signature.ModelID != model.ID {
			return nil, contract.NewError(
				contract.ErrorCodeNotFound,
				fmt.Sprintf("signature %d does not belong to model %d", *signatureID, model.ID),
			).WithReason(contract.ReasonSignatureNotFound)
		}

		return signature, nil
	}

	latest, err := a.store.LatestSignature(ctx, model.ID)
	if err != nil {
		return nil, err
	}

	if latest == nil {
		return nil, contract.NewError(
			contract.ErrorCodeNotFound,
			fmt.Sprintf("model %d has no signature yet", model.ID),
		).WithReason(contract.ReasonSignatureNotFound)
	}

	return latest, nil
}

// run loads the artifact and executes the adapter under the inference timeout.
func (a *Analyzer) run(
	ctx context.Context,
	formatAdapter adapter.FormatAdapter,
	load func(context.Context) ([]byte, error),
	frame *schema.Frame,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.inferenceTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		a.metrics.ObserveInference(formatAdapter.Key().String(), time.Since(start))
	}()

	data, err := load(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := formatAdapter.Load(data)
	if err != nil {
		return nil, err
	}

	rows, err := formatAdapter.Infer(ctx, handle, frame)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, contract.NewErrorWith(
				contract.ErrorCodeInternalError,
				fmt.Sprintf("inference exceeded %s", a.inferenceTimeout),
				err,
			).WithReason(contract.ReasonInferenceTimeout)
		}

		return nil, err
	}

	output, err := json.Marshal(rows)
	if err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"model produced output that cannot be encoded",
			err,
		).WithReason(contract.ReasonInferenceFailed)
	}

	return output, nil
}

// fail records runErr on the prediction and hands back both.
func (a *Analyzer) fail(
	ctx context.Context,
	prediction *entities.Prediction,
	format string,
	runErr error,
) (*entities.Prediction, error) {
	reason := contract.ReasonInferenceFailed

	contractError, ok := contract.AsError(runErr)
	if ok && contractError.Reason != "" {
		reason = contractError.Reason
	} else {
		contractError = contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"inference failed",
			runErr,
		).WithReason(contract.ReasonInferenceFailed)
	}

	failed, err := a.predictions.Transition(ctx, prediction, store.PredictionUpdate{
		Status:       entities.PredictionStatusFailed,
		ErrorCode:    string(reason),
		ErrorMessage: runErr.Error(),
	}, format)
	if err != nil {
		return nil, errors.Join(contractError, err)
	}

	return failed, contractError.With("prediction_id", failed.ID)
}

func (a *Analyzer) predictBlob(ctx context.Context, request PredictRequest) (*entities.Prediction, error) {
	formatAdapter, err := a.registry.Resolve(request.Blob.Type, request.Blob.SpecificType)
	if err != nil {
		return nil, err
	}

	frame, err := schema.ParseFrame(request.Data)
	if err != nil {
		return nil, err
	}

	output, err := a.run(ctx, formatAdapter, func(context.Context) ([]byte, error) {
		return request.Blob.Artifact, nil
	}, frame)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &entities.Prediction{
		Name:      request.Name,
		Input:     request.Data,
		Output:    output,
		Status:    entities.PredictionStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

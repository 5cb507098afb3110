package analyzer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/service"
	"github.com/modelhub/modelhub/pkg/utils"
)

type UploadRequest struct {
	// Name defaults to Filename without directories and extensions.
	Name         string
	Filename     string
	Type         string
	SpecificType string
	Artifact     []byte
	Sample       []byte
	// SampleFormat is "json" (default) or "csv".
	SampleFormat string
}

// Generated is the outcome of an upload. The two signatures are the same row
// when the model metadata and the sample describe an identical schema.
type Generated struct {
	Model                  *entities.Model     `json:"model"`
	SignatureFromModel     *entities.Signature `json:"signature_from_model,omitempty"`
	SignatureFromDataframe *entities.Signature `json:"signature_from_dataframe,omitempty"`
}

// GenerateInputSignature registers an uploaded model and the signatures that
// can be derived from it. Replaying the same upload returns the same model and
// signatures instead of failing.
func (a *Analyzer) GenerateInputSignature(
	ctx context.Context,
	account entities.Account,
	request UploadRequest,
) (*Generated, error) {
	formatAdapter, err := a.registry.Resolve(request.Type, request.SpecificType)
	if err != nil {
		return nil, err
	}

	handle, err := formatAdapter.Load(request.Artifact)
	if err != nil {
		return nil, err
	}

	name := request.Name
	if name == "" {
		name = utils.BaseName(request.Filename)
	}

	if name == "" {
		return nil, contract.NewError(contract.ErrorCodeInvalidInput, "model name or filename is required").
			WithReason(contract.ReasonInvalidParameter)
	}

	modelSchema, modelSchemaErr := InferSchema(handle, nil)
	if modelSchemaErr != nil && !contract.HasReason(modelSchemaErr, contract.ReasonSchemaInferenceUnsupported) {
		return nil, modelSchemaErr
	}

	var dataframeSchema *schema.Schema

	if len(request.Sample) > 0 {
		frame, err := schema.ParseSample(request.Sample, request.SampleFormat)
		if err != nil {
			return nil, err
		}

		inferred, err := InferSchema(handle, frame)
		if err != nil {
			return nil, err
		}

		dataframeSchema = &inferred
	} else if modelSchemaErr != nil {
		return nil, modelSchemaErr
	}

	model, err := a.models.Register(ctx, account, service.ModelInput{
		Name:         name,
		Filename:     request.Filename,
		Type:         request.Type,
		SpecificType: request.SpecificType,
		Artifact:     request.Artifact,
	})
	if err != nil {
		return nil, err
	}

	generated := &Generated{Model: model}

	if modelSchemaErr == nil {
		generated.SignatureFromModel, err = a.register(ctx, model.ID, modelSchema, entities.SignatureSourceModel)
		if err != nil {
			return nil, err
		}
	}

	if dataframeSchema != nil {
		generated.SignatureFromDataframe, err = a.register(ctx, model.ID, *dataframeSchema, entities.SignatureSourceDataframe)
		if err != nil {
			return nil, err
		}
	}

	a.logger.WithFields(logrus.Fields{
		"model_id":  model.ID,
		"owner":     account.ID,
		"format":    formatAdapter.Key().String(),
		"from_data": dataframeSchema != nil,
	}).Info("input signature generated")

	return generated, nil
}

// register creates a signature for the schema, or returns the existing one
// holding an equal schema.
func (a *Analyzer) register(
	ctx context.Context,
	modelID int64,
	inputSchema schema.Schema,
	source entities.SignatureSource,
) (*entities.Signature, error) {
	signature, err := a.signatures.CreateFromSchema(ctx, modelID, inputSchema, source)
	if err == nil {
		return signature, nil
	}

	contractError, ok := contract.AsError(err)
	if !ok || contractError.Reason != contract.ReasonSignatureAlreadyExists {
		return nil, err
	}

	existingID, ok := contractError.Context["existing_signature_id"].(int64)
	if !ok {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"signature already exists without a reference to it",
			err,
		).With("model_id", modelID)
	}

	return a.store.GetSignature(ctx, existingID)
}

package server

import (
	"context"
	"fmt"

	"github.com/modelhub/modelhub/pkg/analyzer"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/service"
)

// ModelhubService translates decoded requests into calls on the core.
type ModelhubService struct {
	analyzer    *analyzer.Analyzer
	models      *service.Models
	signatures  *service.Signatures
	predictions *service.Predictions
	targets     *service.Targets
}

type Services struct {
	Analyzer    *analyzer.Analyzer
	Models      *service.Models
	Signatures  *service.Signatures
	Predictions *service.Predictions
	Targets     *service.Targets
}

func NewModelhubService(services Services) *ModelhubService {
	return &ModelhubService{
		analyzer:    services.Analyzer,
		models:      services.Models,
		signatures:  services.Signatures,
		predictions: services.Predictions,
		targets:     services.Targets,
	}
}

func (m *ModelhubService) UploadModel(
	ctx context.Context,
	account entities.Account,
	input *UploadModel,
	filename string,
	artifact, sample []byte,
) (*analyzer.Generated, error) {
	return m.analyzer.GenerateInputSignature(ctx, account, analyzer.UploadRequest{
		Name:         input.Name,
		Filename:     filename,
		Type:         input.Type,
		SpecificType: input.SpecificType,
		Artifact:     artifact,
		Sample:       sample,
		SampleFormat: input.SampleFormat,
	})
}

func (m *ModelhubService) ListModels(ctx context.Context, account entities.Account) (*ListModelsResponse, error) {
	models, err := m.models.List(ctx, account)
	if err != nil {
		return nil, err
	}

	if models == nil {
		models = []*entities.Model{}
	}

	return &ListModelsResponse{Models: models}, nil
}

func (m *ModelhubService) GetModel(ctx context.Context, account entities.Account, modelID int64) (*entities.Model, error) {
	return m.models.Get(ctx, account, modelID)
}

func (m *ModelhubService) ListSignatures(
	ctx context.Context,
	account entities.Account,
	modelID int64,
) (*ListSignaturesResponse, error) {
	signatures, err := m.signatures.ListByModel(ctx, account, modelID)
	if err != nil {
		return nil, err
	}

	if signatures == nil {
		signatures = []*entities.Signature{}
	}

	return &ListSignaturesResponse{Signatures: signatures}, nil
}

// CreateSignature registers a manual signature. Without an explicit version
// the triple is read from the name.
func (m *ModelhubService) CreateSignature(
	ctx context.Context,
	account entities.Account,
	modelID int64,
	input *CreateSignature,
) (*entities.Signature, error) {
	inputSchema, err := schema.Unmarshal(input.Schema)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInvalidInput, "schema is not a valid document", err).
			WithReason(contract.ReasonMalformedSchema)
	}

	var version entities.Version

	if input.Version != nil {
		version = *input.Version
	} else {
		parsed, ok := service.VersionFromName(input.Name)
		if !ok {
			return nil, invalidParameter(fmt.Sprintf("cannot derive a version from name %q", input.Name))
		}

		version = parsed
	}

	return m.signatures.CreateFromVersion(ctx, account, modelID, input.Name, inputSchema, version, input.OriginID)
}

func (m *ModelhubService) GetSignature(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
) (*entities.Signature, error) {
	return m.signatures.GetByID(ctx, signatureID, account)
}

func (m *ModelhubService) GetLineage(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
) (*ListSignaturesResponse, error) {
	lineage, err := m.signatures.Lineage(ctx, account, signatureID)
	if err != nil {
		return nil, err
	}

	return &ListSignaturesResponse{Signatures: lineage}, nil
}

func (m *ModelhubService) Predict(
	ctx context.Context,
	account entities.Account,
	input *Predict,
) (*entities.Prediction, error) {
	return m.analyzer.Predict(ctx, account, analyzer.PredictRequest{
		ModelID:     input.ModelID,
		SignatureID: input.SignatureID,
		Name:        input.Name,
		Data:        input.Data,
	})
}

func (m *ModelhubService) PredictBlob(
	ctx context.Context,
	account entities.Account,
	input *PredictBlob,
	artifact []byte,
) (*entities.Prediction, error) {
	return m.analyzer.Predict(ctx, account, analyzer.PredictRequest{
		Blob: &analyzer.BlobRef{
			Type:         input.Type,
			SpecificType: input.SpecificType,
			Artifact:     artifact,
		},
		Name: input.Name,
		Data: []byte(input.Data),
	})
}

func (m *ModelhubService) CreatePrediction(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
	input *CreatePrediction,
) (*entities.Prediction, error) {
	return m.predictions.Create(ctx, account, signatureID, input.Name, input.Data)
}

func (m *ModelhubService) SearchPredictions(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
	input *SearchPredictions,
) (*SearchPredictionsResponse, error) {
	page, err := m.predictions.ListBySignature(
		ctx, account, signatureID, input.Filter, input.MaxResults, input.PageToken,
	)
	if err != nil {
		return nil, err
	}

	response := newSearchPredictionsResponse(page)

	return &response, nil
}

func (m *ModelhubService) GetPrediction(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
) (*entities.Prediction, error) {
	return m.predictions.Get(ctx, account, predictionID)
}

func (m *ModelhubService) UpdatePrediction(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
	input *UpdatePrediction,
) (*entities.Prediction, error) {
	status, ok := entities.ParsePredictionStatus(input.Status)
	if !ok {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("unknown status %q", input.Status),
		).WithReason(contract.ReasonInvalidParameter)
	}

	return m.predictions.Update(ctx, account, predictionID, status, input.Output, input.ErrorMessage)
}

func (m *ModelhubService) AttachTarget(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
	input *AttachTarget,
) (*entities.Target, error) {
	return m.targets.Attach(ctx, account, predictionID, *input.Order, input.Value)
}

func (m *ModelhubService) ListTargets(
	ctx context.Context,
	account entities.Account,
	predictionID int64,
) (*ListTargetsResponse, error) {
	targets, err := m.targets.List(ctx, account, predictionID)
	if err != nil {
		return nil, err
	}

	if targets == nil {
		targets = []*entities.Target{}
	}

	return &ListTargetsResponse{Targets: targets}, nil
}

func (m *ModelhubService) UpdateTarget(
	ctx context.Context,
	account entities.Account,
	targetID int64,
	input *UpdateTarget,
) (*entities.Target, error) {
	return m.targets.Update(ctx, account, targetID, input.Value)
}

func (m *ModelhubService) Evaluate(
	ctx context.Context,
	account entities.Account,
	signatureID int64,
) (*entities.Evaluation, error) {
	return m.targets.Evaluate(ctx, account, signatureID)
}

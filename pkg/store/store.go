package store

import (
	"context"
	"time"

	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
)

type ModelStore interface {
	// CreateModel inserts a model; a taken (owner, name) fails MODEL_ALREADY_EXISTS.
	CreateModel(ctx context.Context, model *entities.Model) (*entities.Model, error)
	GetModel(ctx context.Context, id int64) (*entities.Model, error)
	GetModelByName(ctx context.Context, ownerID, name string) (*entities.Model, error)
	ListModels(ctx context.Context, ownerID string) ([]*entities.Model, error)
}

type SignatureStore interface {
	// CreateSignature inserts a signature with an explicit version. The origin,
	// when set, must belong to the same model.
	CreateSignature(ctx context.Context, signature *entities.Signature) (*entities.Signature, error)
	// CreateSignatureFromSchema deduplicates on the schema digest and assigns the
	// next version, with the highest existing signature as origin.
	CreateSignatureFromSchema(
		ctx context.Context,
		modelID int64,
		inputSchema schema.Schema,
		source entities.SignatureSource,
	) (*entities.Signature, error)
	GetSignature(ctx context.Context, id int64) (*entities.Signature, error)
	ListSignatures(ctx context.Context, modelID int64) ([]*entities.Signature, error)
	// LatestSignature returns nil when the model has no signatures.
	LatestSignature(ctx context.Context, modelID int64) (*entities.Signature, error)
}

type PredictionUpdate struct {
	Status       entities.PredictionStatus
	Output       []byte
	ErrorCode    string
	ErrorMessage string
}

type PredictionStore interface {
	CreatePrediction(ctx context.Context, prediction *entities.Prediction) (*entities.Prediction, error)
	GetPrediction(ctx context.Context, id int64) (*entities.Prediction, error)
	// TransitionPrediction applies update only while the row is still in status
	// from, and fails INVALID_STATUS_TRANSITION otherwise.
	TransitionPrediction(
		ctx context.Context,
		id int64,
		from entities.PredictionStatus,
		update PredictionUpdate,
	) (*entities.Prediction, error)
	SearchPredictions(
		ctx context.Context,
		signatureID int64,
		filter string,
		maxResults int,
		pageToken string,
	) (*PagedList[*entities.Prediction], error)
	ListPredictions(
		ctx context.Context,
		signatureID int64,
		status entities.PredictionStatus,
	) ([]*entities.Prediction, error)
	// FailStale moves PENDING and RUNNING rows last touched before cutoff to FAILED.
	FailStale(ctx context.Context, cutoff time.Time, code, message string) (int64, error)
}

type TargetStore interface {
	CreateTarget(ctx context.Context, target *entities.Target) (*entities.Target, error)
	GetTarget(ctx context.Context, id int64) (*entities.Target, error)
	UpdateTargetValue(ctx context.Context, id int64, value []byte) (*entities.Target, error)
	ListTargets(ctx context.Context, predictionID int64) ([]*entities.Target, error)
	ListTargetsForSignature(ctx context.Context, signatureID int64) ([]*entities.Target, error)
}

type ModelhubStore interface {
	ModelStore
	SignatureStore
	PredictionStore
	TargetStore

	Migrate(ctx context.Context) error
	Close() error
}

type PagedList[T any] struct {
	Items         []T
	NextPageToken *string
}

package server

import (
	"encoding/json"

	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store"
)

// Uploads arrive as multipart forms; the artifact and the optional sample are
// the "file" and "sample" parts.
type UploadModel struct {
	Name         string `form:"name"`
	Type         string `form:"type"          validate:"required"`
	SpecificType string `form:"specific_type" validate:"required"`
	SampleFormat string `form:"sample_format" validate:"omitempty,oneof=json csv"`
}

type PredictBlob struct {
	Type         string `form:"type"          validate:"required"`
	SpecificType string `form:"specific_type" validate:"required"`
	Name         string `form:"name"`
	Data         string `form:"data"          validate:"required"`
}

type CreateSignature struct {
	Name     string            `json:"name"      validate:"required,semver"`
	Schema   json.RawMessage   `json:"schema"    validate:"required"`
	Version  *entities.Version `json:"version"`
	OriginID *int64            `json:"origin_id" validate:"omitempty,gt=0"`
}

type Predict struct {
	ModelID     int64           `json:"model_id"     validate:"required,gt=0"`
	SignatureID *int64          `json:"signature_id" validate:"omitempty,gt=0"`
	Name        string          `json:"name"`
	Data        json.RawMessage `json:"data"         validate:"required"`
}

type CreatePrediction struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data" validate:"required"`
}

type SearchPredictions struct {
	Filter     string `query:"filter"`
	MaxResults int    `query:"max_results" validate:"gte=0"`
	PageToken  string `query:"page_token"`
}

type UpdatePrediction struct {
	Status       string          `json:"status"        validate:"required,oneof=RUNNING COMPLETED FAILED"`
	Output       json.RawMessage `json:"output"`
	ErrorMessage string          `json:"error_message"`
}

type AttachTarget struct {
	Order *int32          `json:"order" validate:"required,gte=0"`
	Value json.RawMessage `json:"value" validate:"required"`
}

type UpdateTarget struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

type ListModelsResponse struct {
	Models []*entities.Model `json:"models"`
}

type ListSignaturesResponse struct {
	Signatures []*entities.Signature `json:"signatures"`
}

type ListTargetsResponse struct {
	Targets []*entities.Target `json:"targets"`
}

type SearchPredictionsResponse struct {
	Predictions   []*entities.Prediction `json:"predictions"`
	NextPageToken *string                `json:"next_page_token,omitempty"`
}

func newSearchPredictionsResponse(page *store.PagedList[*entities.Prediction]) SearchPredictionsResponse {
	response := SearchPredictionsResponse{
		Predictions:   page.Items,
		NextPageToken: page.NextPageToken,
	}

	if response.Predictions == nil {
		response.Predictions = []*entities.Prediction{}
	}

	return response
}

package entities

import (
	"encoding/json"
	"time"
)

// Target is the ground-truth value for one output position of a Prediction.
type Target struct {
	ID           int64           `json:"id"`
	PredictionID int64           `json:"prediction_id"`
	Order        int32           `json:"order"`
	Value        json.RawMessage `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Evaluation summarises predictions of one signature against their targets.
type Evaluation struct {
	SignatureID int64    `json:"signature_id"`
	Predictions int      `json:"predictions"`
	Pairs       int      `json:"pairs"`
	Numeric     int      `json:"numeric_pairs"`
	MAE         *float64 `json:"mae,omitempty"`
	RMSE        *float64 `json:"rmse,omitempty"`
	Categorical int      `json:"categorical_pairs"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
}

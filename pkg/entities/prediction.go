package entities

import (
	"encoding/json"
	"time"
)

type PredictionStatus string

const (
	PredictionStatusPending   PredictionStatus = "PENDING"
	PredictionStatusRunning   PredictionStatus = "RUNNING"
	PredictionStatusCompleted PredictionStatus = "COMPLETED"
	PredictionStatusFailed    PredictionStatus = "FAILED"
)

//nolint:gochecknoglobals
var predictionTransitions = map[PredictionStatus][]PredictionStatus{
	PredictionStatusPending: {PredictionStatusRunning, PredictionStatusFailed},
	PredictionStatusRunning: {PredictionStatusCompleted, PredictionStatusFailed},
}

func ParsePredictionStatus(value string) (PredictionStatus, bool) {
	status := PredictionStatus(value)
	switch status {
	case PredictionStatusPending, PredictionStatusRunning, PredictionStatusCompleted, PredictionStatusFailed:
		return status, true
	default:
		return "", false
	}
}

func (s PredictionStatus) IsTerminal() bool {
	return s == PredictionStatusCompleted || s == PredictionStatusFailed
}

// CanTransitionTo is the authoritative lifecycle graph. PENDING may fail
// without ever running, but it cannot complete without passing through RUNNING.
func (s PredictionStatus) CanTransitionTo(next PredictionStatus) bool {
	for _, allowed := range predictionTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Prediction is one inference request/response pair. Input and Output are kept
// as the exact JSON bytes that were accepted and produced.
type Prediction struct {
	ID           int64            `json:"id"`
	SignatureID  int64            `json:"signature_id"`
	Name         string           `json:"name"`
	Input        json.RawMessage  `json:"input"`
	Output       json.RawMessage  `json:"output,omitempty"`
	Status       PredictionStatus `json:"status"`
	ErrorCode    string           `json:"error_code,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

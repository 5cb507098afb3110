// Package linear runs linear and logistic regression models serialized either
// as JSON documents or in protobuf wire format.
package linear

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/schema"
)

const (
	ModelType = "linear"

	TaskRegression     = "regression"
	TaskClassification = "classification"
)

// Model is the decoded form shared by both encodings.
type Model struct {
	Task         string    `json:"task"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Classes      []string  `json:"classes,omitempty"`
}

func (m *Model) validate() error {
	switch m.Task {
	case TaskRegression:
		if len(m.Classes) > 0 {
			return errors.New("regression model cannot declare classes")
		}
	case TaskClassification:
		if len(m.Classes) != 2 { //nolint:mnd
			return fmt.Errorf("classification model needs exactly 2 classes, got %d", len(m.Classes))
		}
	default:
		return fmt.Errorf("unknown task %q", m.Task)
	}

	if len(m.Features) == 0 {
		return errors.New("model has no features")
	}

	if len(m.Features) != len(m.Coefficients) {
		return fmt.Errorf("%d features but %d coefficients", len(m.Features), len(m.Coefficients))
	}

	seen := make(map[string]struct{}, len(m.Features))
	for _, feature := range m.Features {
		if feature == "" {
			return errors.New("feature without a name")
		}

		if _, ok := seen[feature]; ok {
			return fmt.Errorf("feature %q declared twice", feature)
		}

		seen[feature] = struct{}{}
	}

	for _, c := range append([]float64{m.Intercept}, m.Coefficients...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.New("non-finite coefficient")
		}
	}

	return nil
}

type handle struct {
	model *Model
}

func (h *handle) InputSchema() (schema.Schema, bool) {
	fields := make([]schema.Field, 0, len(h.model.Features))
	for _, feature := range h.model.Features {
		fields = append(fields, schema.Field{Name: feature, Type: schema.TypeDouble})
	}

	return schema.New(fields...), true
}

func (h *handle) Arity() int {
	return len(h.model.Features)
}

func (h *handle) predict(values []float64) any {
	sum := h.model.Intercept
	for i, coefficient := range h.model.Coefficients {
		sum += coefficient * values[i]
	}

	if h.model.Task == TaskRegression {
		return sum
	}

	if 1/(1+math.Exp(-sum)) >= 0.5 { //nolint:mnd
		return h.model.Classes[1]
	}

	return h.model.Classes[0]
}

// base carries what both encodings share; only decoding differs.
type base struct {
	key    adapter.Key
	decode func([]byte) (*Model, error)
}

func (b *base) Key() adapter.Key {
	return b.key
}

func (b *base) Load(data []byte) (adapter.Handle, error) {
	model, err := b.decode(data)
	if err != nil {
		return nil, adapter.CorruptArtifact(b.key, err)
	}

	if err := model.validate(); err != nil {
		return nil, adapter.CorruptArtifact(b.key, err)
	}

	return &handle{model: model}, nil
}

func (b *base) Infer(ctx context.Context, h adapter.Handle, frame *schema.Frame) ([]any, error) {
	linear, ok := h.(*handle)
	if !ok {
		return nil, adapter.WrongHandle(b.key, h)
	}

	if err := adapter.CheckFrame(linear, frame); err != nil {
		return nil, err
	}

	columns := make([]int, 0, len(linear.model.Features))
	for _, feature := range linear.model.Features {
		columns = append(columns, frame.Index(feature))
	}

	outputs := make([]any, 0, frame.Len())

	for row := range frame.Rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inference interrupted at row %d: %w", row, err)
		}

		values, err := adapter.RowFloats(frame, row, columns)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, linear.predict(values))
	}

	return outputs, nil
}

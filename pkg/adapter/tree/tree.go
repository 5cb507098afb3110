// Package tree runs decision tree ensembles serialized as JSON. Trees address
// features by position only, so the artifact carries no field names and a
// schema can only be inferred together with sample data.
package tree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/schema"
)

const (
	ModelType        = "tree"
	SpecificTypeJSON = "json"

	TaskRegression     = "regression"
	TaskClassification = "classification"

	format = "modelhub.tree/v1"
)

// Node is either a split (Feature, Threshold, Left, Right) or a leaf (Value).
// A leaf of a classification tree holds the class index as its value.
type Node struct {
	Feature   *int     `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Left      int      `json:"left,omitempty"`
	Right     int      `json:"right,omitempty"`
	Value     *float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Ensemble struct {
	Format    string   `json:"format"`
	Task      string   `json:"task"`
	NFeatures int      `json:"n_features"`
	Classes   []string `json:"classes,omitempty"`
	Trees     []Tree   `json:"trees"`
}

//nolint:cyclop
func (e *Ensemble) validate() error {
	if e.Format != format {
		return fmt.Errorf("unexpected format marker %q", e.Format)
	}

	switch e.Task {
	case TaskRegression:
	case TaskClassification:
		if len(e.Classes) < 2 { //nolint:mnd
			return errors.New("classification ensemble needs at least 2 classes")
		}
	default:
		return fmt.Errorf("unknown task %q", e.Task)
	}

	if e.NFeatures <= 0 {
		return fmt.Errorf("invalid feature count %d", e.NFeatures)
	}

	if len(e.Trees) == 0 {
		return errors.New("ensemble has no trees")
	}

	for t, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}

		for n, node := range tree.Nodes {
			if node.Value != nil {
				if node.Feature != nil {
					return fmt.Errorf("tree %d node %d is both leaf and split", t, n)
				}

				if e.Task == TaskClassification {
					class := *node.Value
					if class != math.Trunc(class) || class < 0 || int(class) >= len(e.Classes) {
						return fmt.Errorf("tree %d node %d has invalid class %v", t, n, class)
					}
				}

				continue
			}

			if node.Feature == nil {
				return fmt.Errorf("tree %d node %d is neither leaf nor split", t, n)
			}

			if *node.Feature < 0 || *node.Feature >= e.NFeatures {
				return fmt.Errorf("tree %d node %d uses feature %d of %d", t, n, *node.Feature, e.NFeatures)
			}

			// Children always point forward, which rules out cycles.
			if node.Left <= n || node.Right <= n || node.Left >= len(tree.Nodes) || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has invalid children %d/%d", t, n, node.Left, node.Right)
			}
		}
	}

	return nil
}

func (t Tree) evaluate(values []float64) float64 {
	idx := 0

	for {
		node := t.Nodes[idx]
		if node.Value != nil {
			return *node.Value
		}

		if values[*node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

type handle struct {
	ensemble *Ensemble
}

func (h *handle) InputSchema() (schema.Schema, bool) {
	return schema.Schema{}, false
}

func (h *handle) Arity() int {
	return h.ensemble.NFeatures
}

func (h *handle) predict(values []float64) any {
	if h.ensemble.Task == TaskRegression {
		sum := 0.0
		for _, tree := range h.ensemble.Trees {
			sum += tree.evaluate(values)
		}

		return sum / float64(len(h.ensemble.Trees))
	}

	votes := make([]int, len(h.ensemble.Classes))
	for _, tree := range h.ensemble.Trees {
		votes[int(tree.evaluate(values))]++
	}

	best := 0
	for class, count := range votes {
		if count > votes[best] {
			best = class
		}
	}

	return h.ensemble.Classes[best]
}

type jsonAdapter struct{}

func NewJSONAdapter() adapter.FormatAdapter {
	return jsonAdapter{}
}

func (jsonAdapter) Key() adapter.Key {
	return adapter.Key{Type: ModelType, SpecificType: SpecificTypeJSON}
}

func (a jsonAdapter) Load(data []byte) (adapter.Handle, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var ensemble Ensemble
	if err := decoder.Decode(&ensemble); err != nil {
		return nil, adapter.CorruptArtifact(a.Key(), fmt.Errorf("failed to decode json: %w", err))
	}

	if decoder.More() {
		return nil, adapter.CorruptArtifact(a.Key(), errors.New("trailing data after model document"))
	}

	if err := ensemble.validate(); err != nil {
		return nil, adapter.CorruptArtifact(a.Key(), err)
	}

	return &handle{ensemble: &ensemble}, nil
}

// Infer reads features positionally, in frame column order.
func (a jsonAdapter) Infer(ctx context.Context, h adapter.Handle, frame *schema.Frame) ([]any, error) {
	ensemble, ok := h.(*handle)
	if !ok {
		return nil, adapter.WrongHandle(a.Key(), h)
	}

	if err := adapter.CheckFrame(ensemble, frame); err != nil {
		return nil, err
	}

	columns := make([]int, 0, len(frame.Columns))
	for i := range frame.Columns {
		columns = append(columns, i)
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

		outputs = append(outputs, ensemble.predict(values))
	}

	return outputs, nil
}

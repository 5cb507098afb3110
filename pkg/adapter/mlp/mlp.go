// Package mlp runs small dense neural networks described in YAML. Inputs are
// named tensors; they are flattened and concatenated in declaration order to
// form the network's input vector.
package mlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/schema"
)

const (
	ModelType        = "mlp"
	SpecificTypeYAML = "yaml"

	format = "modelhub.mlp/v1"
)

type Input struct {
	Name  string `yaml:"name"`
	Shape []int  `yaml:"shape"`
}

func (i Input) size() int {
	size := 1
	for _, dim := range i.Shape {
		size *= dim
	}

	return size
}

type Layer struct {
	Weights    [][]float64 `yaml:"weights"`
	Bias       []float64   `yaml:"bias"`
	Activation string      `yaml:"activation"`
}

type Network struct {
	Format string  `yaml:"format"`
	Inputs []Input `yaml:"inputs"`
	Layers []Layer `yaml:"layers"`
}

//nolint:cyclop
func (n *Network) validate() error {
	if n.Format != format {
		return fmt.Errorf("unexpected format marker %q", n.Format)
	}

	if len(n.Inputs) == 0 {
		return errors.New("network declares no inputs")
	}

	if len(n.Layers) == 0 {
		return errors.New("network has no layers")
	}

	width := 0
	seen := make(map[string]struct{}, len(n.Inputs))

	for _, input := range n.Inputs {
		if input.Name == "" {
			return errors.New("input without a name")
		}

		if _, ok := seen[input.Name]; ok {
			return fmt.Errorf("input %q declared twice", input.Name)
		}

		seen[input.Name] = struct{}{}

		if len(input.Shape) == 0 {
			return fmt.Errorf("input %q has no shape", input.Name)
		}

		for _, dim := range input.Shape {
			if dim <= 0 {
				return fmt.Errorf("input %q has invalid dimension %d", input.Name, dim)
			}
		}

		width += input.size()
	}

	for l, layer := range n.Layers {
		if _, ok := activations[layer.Activation]; !ok {
			return fmt.Errorf("layer %d has unknown activation %q", l, layer.Activation)
		}

		if len(layer.Weights) == 0 || len(layer.Weights) != len(layer.Bias) {
			return fmt.Errorf("layer %d has %d weight rows and %d biases", l, len(layer.Weights), len(layer.Bias))
		}

		for r, row := range layer.Weights {
			if len(row) != width {
				return fmt.Errorf("layer %d row %d has %d weights, expected %d", l, r, len(row), width)
			}
		}

		width = len(layer.Weights)
	}

	return nil
}

//nolint:gochecknoglobals
var activations = map[string]func([]float64){
	"identity": func([]float64) {},
	"relu": func(v []float64) {
		for i := range v {
			v[i] = math.Max(0, v[i])
		}
	},
	"sigmoid": func(v []float64) {
		for i := range v {
			v[i] = 1 / (1 + math.Exp(-v[i]))
		}
	},
	"tanh": func(v []float64) {
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	},
	"softmax": func(v []float64) {
		peak := math.Inf(-1)
		for _, x := range v {
			peak = math.Max(peak, x)
		}

		sum := 0.0
		for i := range v {
			v[i] = math.Exp(v[i] - peak)
			sum += v[i]
		}

		for i := range v {
			v[i] /= sum
		}
	},
}

func (n *Network) forward(input []float64) []float64 {
	current := input

	for _, layer := range n.Layers {
		next := make([]float64, len(layer.Weights))

		for r, row := range layer.Weights {
			sum := layer.Bias[r]
			for c, weight := range row {
				sum += weight * current[c]
			}

			next[r] = sum
		}

		activations[layer.Activation](next)
		current = next
	}

	return current
}

type handle struct {
	network *Network
}

func (h *handle) InputSchema() (schema.Schema, bool) {
	fields := make([]schema.Field, 0, len(h.network.Inputs))
	for _, input := range h.network.Inputs {
		fields = append(fields, schema.Field{
			Name:  input.Name,
			Type:  schema.TypeTensor,
			Shape: append([]int(nil), input.Shape...),
		})
	}

	return schema.New(fields...), true
}

func (h *handle) Arity() int {
	return len(h.network.Inputs)
}

type yamlAdapter struct{}

func NewYAMLAdapter() adapter.FormatAdapter {
	return yamlAdapter{}
}

func (yamlAdapter) Key() adapter.Key {
	return adapter.Key{Type: ModelType, SpecificType: SpecificTypeYAML}
}

func (a yamlAdapter) Load(data []byte) (adapter.Handle, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var network Network
	if err := decoder.Decode(&network); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty artifact")
		}

		return nil, adapter.CorruptArtifact(a.Key(), fmt.Errorf("failed to decode yaml: %w", err))
	}

	if err := network.validate(); err != nil {
		return nil, adapter.CorruptArtifact(a.Key(), err)
	}

	return &handle{network: &network}, nil
}

// Infer returns one output vector per row.
func (a yamlAdapter) Infer(ctx context.Context, h adapter.Handle, frame *schema.Frame) ([]any, error) {
	network, ok := h.(*handle)
	if !ok {
		return nil, adapter.WrongHandle(a.Key(), h)
	}

	if err := adapter.CheckFrame(network, frame); err != nil {
		return nil, err
	}

	columns := make([]int, 0, len(network.network.Inputs))
	for _, input := range network.network.Inputs {
		columns = append(columns, frame.Index(input.Name))
	}

	outputs := make([]any, 0, frame.Len())

	for row, values := range frame.Rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inference interrupted at row %d: %w", row, err)
		}

		vector := make([]float64, 0)

		for _, col := range columns {
			flat, err := schema.Flatten(values[col])
			if err != nil {
				return nil, fmt.Errorf("row %d input %q: %w", row, frame.Columns[col], err)
			}

			vector = append(vector, flat...)
		}

		outputs = append(outputs, network.network.forward(vector))
	}

	return outputs, nil
}

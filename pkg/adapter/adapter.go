package adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/schema"
)

// Key identifies a model serialization: the coarse framework family and the
// concrete sub-format.
type Key struct {
	Type         string `json:"type"`
	SpecificType string `json:"specific_type"`
}

func (k Key) String() string {
	return k.Type + "/" + k.SpecificType
}

// Handle is a deserialized, runnable model.
type Handle interface {
	// InputSchema returns the input the artifact itself declares. The second
	// value is false when the format carries no such metadata.
	InputSchema() (schema.Schema, bool)
	// Arity is the number of input columns the model consumes, 0 if unknown.
	Arity() int
}

// FormatAdapter loads and executes one serialization format. Implementations
// must be safe for concurrent use; handles are never shared between requests.
type FormatAdapter interface {
	Key() Key
	Load(data []byte) (Handle, error)
	Infer(ctx context.Context, handle Handle, frame *schema.Frame) ([]any, error)
}

// Registry maps keys to adapters. It is filled once at start and only read
// afterwards, so it needs no locking.
type Registry struct {
	adapters map[Key]FormatAdapter
}

func NewRegistry(adapters ...FormatAdapter) (*Registry, error) {
	registry := &Registry{adapters: make(map[Key]FormatAdapter, len(adapters))}

	for _, adapter := range adapters {
		key := adapter.Key()
		if _, ok := registry.adapters[key]; ok {
			return nil, fmt.Errorf("adapter for %s registered twice", key)
		}

		registry.adapters[key] = adapter
	}

	return registry, nil
}

func (r *Registry) Resolve(modelType, specificType string) (FormatAdapter, error) {
	key := Key{Type: modelType, SpecificType: specificType}

	adapter, ok := r.adapters[key]
	if !ok {
		return nil, contract.NewError(
			contract.ErrorCodeUnsupportedFormat,
			fmt.Sprintf("no adapter for model format %s", key),
		).WithReason(contract.ReasonUnsupportedModelFormat).
			With("type", modelType).
			With("specific_type", specificType)
	}

	return adapter, nil
}

// Keys lists the registered formats in a stable order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.adapters))
	for key := range r.adapters {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

// CorruptArtifact reports bytes an adapter refused to deserialize.
func CorruptArtifact(key Key, err error) error {
	return contract.NewErrorWith(
		contract.ErrorCodeCorruptArtifact,
		fmt.Sprintf("artifact is not a valid %s model", key),
		err,
	).WithReason(contract.ReasonCorruptArtifact)
}

// WrongHandle reports a handle produced by another adapter.
func WrongHandle(key Key, handle Handle) error {
	return contract.NewError(
		contract.ErrorCodeInternalError,
		fmt.Sprintf("%s adapter cannot run handle of type %T", key, handle),
	)
}

// CheckFrame validates a frame against what the handle declares: its schema
// when it has one, otherwise its arity.
func CheckFrame(handle Handle, frame *schema.Frame) error {
	if declared, ok := handle.InputSchema(); ok {
		return declared.Validate(frame)
	}

	if arity := handle.Arity(); arity > 0 && len(frame.Columns) != arity {
		return contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("model expects %d input columns, got %d", arity, len(frame.Columns)),
		).WithReason(contract.ReasonInputSchemaMismatch).
			With("expected", arity).
			With("received", frame.Columns)
	}

	return nil
}

// RowFloats reads the given columns of one row as numbers.
func RowFloats(frame *schema.Frame, row int, columns []int) ([]float64, error) {
	values := make([]float64, 0, len(columns))

	for _, col := range columns {
		value, ok := schema.Float(frame.Rows[row][col])
		if !ok {
			return nil, contract.NewError(
				contract.ErrorCodeInvalidInput,
				fmt.Sprintf("row %d column %q is not numeric", row, frame.Columns[col]),
			).WithReason(contract.ReasonInputSchemaMismatch).
				With("field", frame.Columns[col])
		}

		values = append(values, value)
	}

	return values, nil
}

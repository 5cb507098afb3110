package linear

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelhub/modelhub/pkg/adapter"
)

const (
	SpecificTypeJSON = "json"

	jsonFormat = "modelhub.linear/v1"
)

type document struct {
	Format string `json:"format"`
	Model
}

func NewJSONAdapter() adapter.FormatAdapter {
	return &base{
		key:    adapter.Key{Type: ModelType, SpecificType: SpecificTypeJSON},
		decode: decodeJSON,
	}
}

func decodeJSON(data []byte) (*Model, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	if decoder.More() {
		return nil, errors.New("trailing data after model document")
	}

	if doc.Format != jsonFormat {
		return nil, fmt.Errorf("unexpected format marker %q", doc.Format)
	}

	return &doc.Model, nil
}

// EncodeJSON serializes a model in the JSON layout Load accepts.
func EncodeJSON(model *Model) ([]byte, error) {
	data, err := json.Marshal(document{Format: jsonFormat, Model: *model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode linear model: %w", err)
	}

	return data, nil
}

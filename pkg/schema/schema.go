package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/modelhub/modelhub/pkg/contract"
)

type DataType string

const (
	TypeDouble  DataType = "double"
	TypeLong    DataType = "long"
	TypeString  DataType = "string"
	TypeBoolean DataType = "boolean"
	TypeTensor  DataType = "tensor"
)

func (t DataType) valid() bool {
	switch t {
	case TypeDouble, TypeLong, TypeString, TypeBoolean, TypeTensor:
		return true
	default:
		return false
	}
}

// Field describes one named input. Shape only applies to tensors; a dimension
// of -1 accepts any length.
type Field struct {
	Name     string   `json:"name"`
	Type     DataType `json:"type"`
	Shape    []int    `json:"shape,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}

func (f Field) describe() string {
	if f.Type == TypeTensor && len(f.Shape) > 0 {
		return fmt.Sprintf("%s%v", f.Type, f.Shape)
	}

	return string(f.Type)
}

// Schema is the ordered input description of a model.
type Schema struct {
	Fields []Field `json:"fields"`
}

func New(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func (s Schema) Len() int {
	return len(s.Fields)
}

func (s Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		names = append(names, field.Name)
	}

	return names
}

func (s Schema) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}

	return Field{}, false
}

// Equal is structural: same names in the same order with the same types and
// shapes. Nullability does not take part.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}

	for i, field := range s.Fields {
		o := other.Fields[i]
		if field.Name != o.Name || field.Type != o.Type || !slices.Equal(field.Shape, o.Shape) {
			return false
		}
	}

	return true
}

type digestField struct {
	Name  string   `json:"n"`
	Type  DataType `json:"t"`
	Shape []int    `json:"s"`
}

// Digest is a stable hash of the structural part of the schema, so that two
// schemas are Equal exactly when their digests match.
func (s Schema) Digest() string {
	fields := make([]digestField, 0, len(s.Fields))
	for _, field := range s.Fields {
		fields = append(fields, digestField{Name: field.Name, Type: field.Type, Shape: field.Shape})
	}

	// Marshalling a slice of plain structs cannot fail.
	data, _ := json.Marshal(fields)
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// Check rejects schemas that could never validate any input.
func (s Schema) Check() error {
	if len(s.Fields) == 0 {
		return malformedSchema("schema has no fields")
	}

	seen := make(map[string]struct{}, len(s.Fields))

	for i, field := range s.Fields {
		if field.Name == "" {
			return malformedSchema(fmt.Sprintf("field %d has no name", i))
		}

		if _, ok := seen[field.Name]; ok {
			return malformedSchema(fmt.Sprintf("field %q is declared twice", field.Name))
		}

		seen[field.Name] = struct{}{}

		if !field.Type.valid() {
			return malformedSchema(fmt.Sprintf("field %q has unknown type %q", field.Name, field.Type))
		}

		if field.Type != TypeTensor && len(field.Shape) > 0 {
			return malformedSchema(fmt.Sprintf("field %q is %s and cannot have a shape", field.Name, field.Type))
		}

		for _, dim := range field.Shape {
			if dim == 0 || dim < -1 {
				return malformedSchema(fmt.Sprintf("field %q has invalid dimension %d", field.Name, dim))
			}
		}
	}

	return nil
}

func malformedSchema(message string) *contract.Error {
	return contract.NewError(contract.ErrorCodeInvalidInput, message).
		WithReason(contract.ReasonMalformedSchema)
}

// Marshal encodes the schema for storage.
func (s Schema) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return data, nil
}

func Unmarshal(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	return s, nil
}

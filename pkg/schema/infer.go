package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InferFromFrame derives a schema from sample data, one field per column in
// column order. A column with any null becomes optional.
func InferFromFrame(frame *Frame) (Schema, error) {
	fields := make([]Field, 0, len(frame.Columns))

	for col, name := range frame.Columns {
		field := Field{Name: name}

		for row, values := range frame.Rows {
			value := values[col]
			if value == nil {
				field.Optional = true

				continue
			}

			kind, shape := typeOf(value)
			if kind == "" {
				return Schema{}, malformedInput("column %q row %d has an unsupported value %v", name, row, value)
			}

			merged, ok := mergeTypes(field.Type, kind)
			if !ok {
				return Schema{}, malformedInput(
					"column %q mixes %s and %s values", name, field.Type, kind,
				)
			}

			if merged == TypeTensor {
				if field.Shape != nil && !sameShape(field.Shape, shape) {
					return Schema{}, malformedInput(
						"column %q has tensors of shape %v and %v", name, field.Shape, shape,
					)
				}

				field.Shape = shape
			}

			field.Type = merged
		}

		if field.Type == "" {
			field.Type = TypeString
		}

		fields = append(fields, field)
	}

	return New(fields...), nil
}

func mergeTypes(current, next DataType) (DataType, bool) {
	switch {
	case current == "" || current == next:
		return next, true
	case current == TypeLong && next == TypeDouble, current == TypeDouble && next == TypeLong:
		return TypeDouble, true
	default:
		return "", false
	}
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func typeOf(value any) (DataType, []int) {
	switch v := value.(type) {
	case bool:
		return TypeBoolean, nil
	case string:
		return TypeString, nil
	case json.Number:
		if IsIntegral(v) {
			return TypeLong, nil
		}

		return TypeDouble, nil
	case float64, float32:
		return TypeDouble, nil
	case int, int32, int64:
		return TypeLong, nil
	case []any:
		shape, err := TensorShape(v)
		if err != nil {
			return "", nil
		}

		return TypeTensor, shape
	default:
		return "", nil
	}
}

// IsIntegral reports whether a JSON number literal has no fraction or exponent.
func IsIntegral(number json.Number) bool {
	return !strings.ContainsAny(number.String(), ".eE")
}

// Float converts a numeric cell to float64.
func Float(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

// TensorShape returns the dimensions of a rectangular nested array of numbers.
func TensorShape(values []any) ([]int, error) {
	shape := []int{len(values)}
	if len(values) == 0 {
		return shape, nil
	}

	first, nested := values[0].([]any)
	if !nested {
		for i, value := range values {
			if _, ok := Float(value); !ok {
				return nil, fmt.Errorf("element %d is not numeric", i)
			}
		}

		return shape, nil
	}

	inner, err := TensorShape(first)
	if err != nil {
		return nil, err
	}

	for i, value := range values[1:] {
		sub, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("element %d is not an array", i+1)
		}

		subShape, err := TensorShape(sub)
		if err != nil {
			return nil, err
		}

		if !sameShape(inner, subShape) {
			return nil, fmt.Errorf("ragged tensor: %v and %v", inner, subShape)
		}
	}

	return append(shape, inner...), nil
}

// Flatten returns the numbers of a tensor in row-major order.
func Flatten(value any) ([]float64, error) {
	switch v := value.(type) {
	case []any:
		out := make([]float64, 0, len(v))

		for _, item := range v {
			flat, err := Flatten(item)
			if err != nil {
				return nil, err
			}

			out = append(out, flat...)
		}

		return out, nil
	default:
		f, ok := Float(v)
		if !ok {
			return nil, fmt.Errorf("value %v is not numeric", value)
		}

		return []float64{f}, nil
	}
}

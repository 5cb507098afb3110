package schema

import (
	"fmt"
	"strings"

	"github.com/modelhub/modelhub/pkg/contract"
)

// Validate checks that the frame carries exactly the schema's fields with
// values of the declared types. Optional fields may be absent or null.
//
//nolint:cyclop
func (s Schema) Validate(frame *Frame) error {
	var missing, unexpected, mismatched []string

	for _, field := range s.Fields {
		col := frame.Index(field.Name)
		if col < 0 {
			if !field.Optional {
				missing = append(missing, field.Name)
			}

			continue
		}

		for row, values := range frame.Rows {
			if problem := field.check(values[col]); problem != "" {
				mismatched = append(mismatched, fmt.Sprintf("%s[%d]: %s", field.Name, row, problem))

				break
			}
		}
	}

	for _, column := range frame.Columns {
		if _, ok := s.Field(column); !ok {
			unexpected = append(unexpected, column)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 && len(mismatched) == 0 {
		return nil
	}

	parts := make([]string, 0, 3) //nolint:mnd
	if len(missing) > 0 {
		parts = append(parts, "missing fields "+strings.Join(missing, ", "))
	}

	if len(unexpected) > 0 {
		parts = append(parts, "unexpected fields "+strings.Join(unexpected, ", "))
	}

	if len(mismatched) > 0 {
		parts = append(parts, "mismatched values "+strings.Join(mismatched, "; "))
	}

	err := contract.NewError(
		contract.ErrorCodeInvalidInput,
		"input does not match schema: "+strings.Join(parts, "; "),
	).WithReason(contract.ReasonInputSchemaMismatch).
		With("expected", s.Names()).
		With("received", frame.Columns)

	if len(missing) > 0 {
		err.With("missing", missing)
	}

	if len(unexpected) > 0 {
		err.With("unexpected", unexpected)
	}

	if len(mismatched) > 0 {
		err.With("mismatched", mismatched)
	}

	return err
}

func (f Field) check(value any) string {
	if value == nil {
		if f.Optional {
			return ""
		}

		return "null value for required field"
	}

	kind, shape := typeOf(value)

	switch f.Type {
	case TypeDouble:
		if kind == TypeDouble || kind == TypeLong {
			return ""
		}
	case TypeTensor:
		if kind == TypeTensor && shapeMatches(f.Shape, shape) {
			return ""
		}

		if kind == TypeTensor {
			return fmt.Sprintf("expected %s, got tensor%v", f.describe(), shape)
		}
	default:
		if kind == f.Type {
			return ""
		}
	}

	if kind == "" {
		kind = "unsupported value"
	}

	return fmt.Sprintf("expected %s, got %s", f.describe(), kind)
}

func shapeMatches(declared, actual []int) bool {
	if len(declared) == 0 {
		return true
	}

	if len(declared) != len(actual) {
		return false
	}

	for i, dim := range declared {
		if dim != -1 && dim != actual[i] {
			return false
		}
	}

	return true
}

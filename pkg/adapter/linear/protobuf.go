package linear

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/modelhub/modelhub/pkg/adapter"
)

const SpecificTypeProtobuf = "protobuf"

// Field numbers of the wire layout:
//
//	message LinearModel {
//	  string task = 1;
//	  repeated string features = 2;
//	  repeated double coefficients = 3 [packed = true];
//	  double intercept = 4;
//	  repeated string classes = 5;
//	}
const (
	fieldTask         protowire.Number = 1
	fieldFeatures     protowire.Number = 2
	fieldCoefficients protowire.Number = 3
	fieldIntercept    protowire.Number = 4
	fieldClasses      protowire.Number = 5
)

func NewProtobufAdapter() adapter.FormatAdapter {
	return &base{
		key:    adapter.Key{Type: ModelType, SpecificType: SpecificTypeProtobuf},
		decode: decodeProtobuf,
	}
}

//nolint:cyclop
func decodeProtobuf(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, errors.New("empty artifact")
	}

	model := &Model{}

	for len(data) > 0 {
		number, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}

		data = data[n:]

		switch {
		case number == fieldTask && wireType == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bad task: %w", protowire.ParseError(n))
			}

			model.Task = value
			data = data[n:]
		case (number == fieldFeatures || number == fieldClasses) && wireType == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bad string field %d: %w", number, protowire.ParseError(n))
			}

			if number == fieldFeatures {
				model.Features = append(model.Features, value)
			} else {
				model.Classes = append(model.Classes, value)
			}

			data = data[n:]
		case number == fieldCoefficients && wireType == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad coefficients: %w", protowire.ParseError(n))
			}

			for len(packed) > 0 {
				bits, m := protowire.ConsumeFixed64(packed)
				if m < 0 {
					return nil, fmt.Errorf("bad packed coefficient: %w", protowire.ParseError(m))
				}

				model.Coefficients = append(model.Coefficients, math.Float64frombits(bits))
				packed = packed[m:]
			}

			data = data[n:]
		case number == fieldIntercept && wireType == protowire.Fixed64Type:
			bits, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("bad intercept: %w", protowire.ParseError(n))
			}

			model.Intercept = math.Float64frombits(bits)
			data = data[n:]
		default:
			return nil, fmt.Errorf("unexpected field %d with wire type %d", number, wireType)
		}
	}

	return model, nil
}

// EncodeProtobuf serializes a model in the wire layout Load accepts.
func EncodeProtobuf(model *Model) []byte {
	var out []byte

	out = protowire.AppendTag(out, fieldTask, protowire.BytesType)
	out = protowire.AppendString(out, model.Task)

	for _, feature := range model.Features {
		out = protowire.AppendTag(out, fieldFeatures, protowire.BytesType)
		out = protowire.AppendString(out, feature)
	}

	var packed []byte
	for _, coefficient := range model.Coefficients {
		packed = protowire.AppendFixed64(packed, math.Float64bits(coefficient))
	}

	out = protowire.AppendTag(out, fieldCoefficients, protowire.BytesType)
	out = protowire.AppendBytes(out, packed)

	out = protowire.AppendTag(out, fieldIntercept, protowire.Fixed64Type)
	out = protowire.AppendFixed64(out, math.Float64bits(model.Intercept))

	for _, class := range model.Classes {
		out = protowire.AppendTag(out, fieldClasses, protowire.BytesType)
		out = protowire.AppendString(out, class)
	}

	return out
}

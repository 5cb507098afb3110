package analyzer

import (
	"fmt"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/schema"
)

// InferSchema derives the input schema of a loaded model. A sample frame wins
// over the model's own metadata and must match its arity when the format
// reports one.
func InferSchema(handle adapter.Handle, sample *schema.Frame) (schema.Schema, error) {
	if sample != nil {
		inferred, err := schema.InferFromFrame(sample)
		if err != nil {
			return schema.Schema{}, err
		}

		if arity := handle.Arity(); arity > 0 && inferred.Len() != arity {
			return schema.Schema{}, contract.NewError(
				contract.ErrorCodeInvalidInput,
				fmt.Sprintf("sample has %d columns but the model takes %d inputs", inferred.Len(), arity),
			).WithReason(contract.ReasonInputSchemaMismatch).
				With("expected", arity).
				With("received", sample.Columns)
		}

		return inferred, nil
	}

	declared, ok := handle.InputSchema()
	if !ok {
		return schema.Schema{}, contract.NewError(
			contract.ErrorCodeInvalidInput,
			"the model format does not describe its inputs, a sample dataframe is required",
		).WithReason(contract.ReasonSchemaInferenceUnsupported)
	}

	return declared, nil
}

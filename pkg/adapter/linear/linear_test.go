package linear_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/adapter/linear"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/schema"
)

func regressionModel() *linear.Model {
	return &linear.Model{
		Task:         linear.TaskRegression,
		Features:     []string{"rooms", "area"},
		Coefficients: []float64{10, 0.5},
		Intercept:    3,
	}
}

func encodings(t *testing.T, model *linear.Model) map[adapter.FormatAdapter][]byte {
	t.Helper()

	encoded, err := linear.EncodeJSON(model)
	require.NoError(t, err)

	return map[adapter.FormatAdapter][]byte{
		linear.NewJSONAdapter():     encoded,
		linear.NewProtobufAdapter(): linear.EncodeProtobuf(model),
	}
}

func TestLoadExposesNamedDoubleFeatures(t *testing.T) {
	t.Parallel()

	for formatAdapter, data := range encodings(t, regressionModel()) {
		handle, err := formatAdapter.Load(data)
		require.NoError(t, err, formatAdapter.Key())

		declared, ok := handle.InputSchema()
		require.True(t, ok)
		assert.Equal(t, schema.New(
			schema.Field{Name: "rooms", Type: schema.TypeDouble},
			schema.Field{Name: "area", Type: schema.TypeDouble},
		), declared)
		assert.Equal(t, 2, handle.Arity())
	}
}

func TestInferRegression(t *testing.T) {
	t.Parallel()

	frame, err := schema.ParseFrame([]byte(`[{"area": 100, "rooms": 2}, {"area": 50.5, "rooms": 1}]`))
	require.NoError(t, err)

	for formatAdapter, data := range encodings(t, regressionModel()) {
		handle, err := formatAdapter.Load(data)
		require.NoError(t, err)

		outputs, err := formatAdapter.Infer(context.Background(), handle, frame)
		require.NoError(t, err)
		assert.Equal(t, []any{73.0, 38.25}, outputs)
	}
}

func TestInferClassification(t *testing.T) {
	t.Parallel()

	model := &linear.Model{
		Task:         linear.TaskClassification,
		Features:     []string{"score"},
		Coefficients: []float64{1},
		Intercept:    -5,
		Classes:      []string{"reject", "accept"},
	}

	frame, err := schema.ParseFrame([]byte(`{"columns": ["score"], "data": [[1], [9]]}`))
	require.NoError(t, err)

	for formatAdapter, data := range encodings(t, model) {
		handle, err := formatAdapter.Load(data)
		require.NoError(t, err)

		outputs, err := formatAdapter.Infer(context.Background(), handle, frame)
		require.NoError(t, err)
		assert.Equal(t, []any{"reject", "accept"}, outputs)
	}
}

func TestInferRejectsMismatchedInput(t *testing.T) {
	t.Parallel()

	frame, err := schema.ParseFrame([]byte(`{"rooms": 2}`))
	require.NoError(t, err)

	formatAdapter := linear.NewJSONAdapter()
	data, err := linear.EncodeJSON(regressionModel())
	require.NoError(t, err)

	handle, err := formatAdapter.Load(data)
	require.NoError(t, err)

	_, err = formatAdapter.Infer(context.Background(), handle, frame)
	require.Error(t, err)
	assert.True(t, contract.HasReason(err, contract.ReasonInputSchemaMismatch))
	assert.Contains(t, err.Error(), "area")
}

func TestLoadRejectsCorruptArtifacts(t *testing.T) {
	t.Parallel()

	valid, err := linear.EncodeJSON(regressionModel())
	require.NoError(t, err)

	wire := linear.EncodeProtobuf(regressionModel())

	scenarios := []struct {
		name          string
		formatAdapter adapter.FormatAdapter
		data          []byte
	}{
		{"json truncated", linear.NewJSONAdapter(), valid[:len(valid)-5]},
		{"json unknown field", linear.NewJSONAdapter(), []byte(`{"format":"modelhub.linear/v1","task":"regression","features":["a"],"coefficients":[1],"extra":1}`)},
		{"json wrong marker", linear.NewJSONAdapter(), []byte(`{"format":"other","task":"regression","features":["a"],"coefficients":[1]}`)},
		{"json arity mismatch", linear.NewJSONAdapter(), []byte(`{"format":"modelhub.linear/v1","task":"regression","features":["a","b"],"coefficients":[1]}`)},
		{"json given protobuf", linear.NewJSONAdapter(), wire},
		{"protobuf truncated", linear.NewProtobufAdapter(), wire[:len(wire)-3]},
		{"protobuf given json", linear.NewProtobufAdapter(), valid},
		{"protobuf empty", linear.NewProtobufAdapter(), nil},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			t.Parallel()

			_, err := scenario.formatAdapter.Load(scenario.data)
			require.Error(t, err)
			assert.True(t, contract.HasCode(err, contract.ErrorCodeCorruptArtifact))
		})
	}
}

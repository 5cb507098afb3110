package formats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/adapter/formats"
	"github.com/modelhub/modelhub/pkg/adapter/linear"
	"github.com/modelhub/modelhub/pkg/contract"
)

func TestDefaultRegistryResolves(t *testing.T) {
	t.Parallel()

	registry, err := formats.NewDefaultRegistry()
	require.NoError(t, err)

	assert.Equal(t, []adapter.Key{
		{Type: "linear", SpecificType: "json"},
		{Type: "linear", SpecificType: "protobuf"},
		{Type: "mlp", SpecificType: "yaml"},
		{Type: "tree", SpecificType: "json"},
	}, registry.Keys())

	for _, key := range registry.Keys() {
		resolved, err := registry.Resolve(key.Type, key.SpecificType)
		require.NoError(t, err)
		assert.Equal(t, key, resolved.Key())
	}
}

func TestResolveUnknownFormat(t *testing.T) {
	t.Parallel()

	registry, err := formats.NewDefaultRegistry()
	require.NoError(t, err)

	_, err = registry.Resolve("keras", "h5")
	require.Error(t, err)
	assert.True(t, contract.HasCode(err, contract.ErrorCodeUnsupportedFormat))
	assert.True(t, contract.HasReason(err, contract.ReasonUnsupportedModelFormat))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := adapter.NewRegistry(linear.NewJSONAdapter(), linear.NewJSONAdapter())
	require.Error(t, err)
}

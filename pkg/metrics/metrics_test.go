package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/metrics"
)

func TestMetricsAreIndependent(t *testing.T) {
	t.Parallel()

	first, err := metrics.New()
	require.NoError(t, err)

	second, err := metrics.New()
	require.NoError(t, err)

	first.PredictionFinished("COMPLETED", "linear/json")
	first.PredictionFinished("COMPLETED", "linear/json")
	first.SignatureCreated("model")
	first.PredictionsReaped(3)
	first.ObserveInference("linear/json", 20*time.Millisecond)

	count, err := testutil.GatherAndCount(first.Registry(),
		"modelhub_predictions_total", "modelhub_signatures_created_total", "modelhub_predictions_reaped_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = testutil.GatherAndCount(second.Registry(), "modelhub_predictions_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

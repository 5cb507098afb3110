package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/config"
)

func TestDurationUnmarshalJSON(t *testing.T) {
	t.Parallel()

	var fromString config.Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &fromString))
	assert.Equal(t, 90*time.Second, fromString.Duration)

	var fromNumber config.Duration
	require.NoError(t, json.Unmarshal([]byte(`1000`), &fromNumber))
	assert.Equal(t, time.Microsecond, fromNumber.Duration)

	var invalid config.Duration
	require.Error(t, json.Unmarshal([]byte(`true`), &invalid))
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &invalid))

	encoded, err := json.Marshal(config.Duration{Duration: 2 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"2s"`, string(encoded))
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v, err := config.NewViper("")
	require.NoError(t, err)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.InferenceTimeout.Duration)
	assert.Equal(t, 10*time.Minute, cfg.StaleAfter.Duration)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modelhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"address: 0.0.0.0:9000\ninference_timeout: 5s\nstore_url: sqlite://other.db\n",
	), 0o600))

	v, err := config.NewViper(path)
	require.NoError(t, err)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address)
	assert.Equal(t, 5*time.Second, cfg.InferenceTimeout.Duration)
	assert.Equal(t, "sqlite://other.db", cfg.StoreURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	v, err := config.NewViper("")
	require.NoError(t, err)

	v.Set("inference_timeout", "0s")

	_, err = config.Load(v)
	require.Error(t, err)

	v.Set("inference_timeout", "later")

	_, err = config.Load(v)
	require.Error(t, err)
}

func TestLoadStaleAfterMustExceedTimeout(t *testing.T) {
	t.Parallel()

	v, err := config.NewViper("")
	require.NoError(t, err)

	v.Set("inference_timeout", "1m")

	for _, staleAfter := range []string{"30s", "1m"} {
		v.Set("stale_after", staleAfter)

		_, err = config.Load(v)
		require.ErrorContains(t, err, "stale_after", staleAfter)
	}

	v.Set("stale_after", "0s")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.StaleAfter.Duration)

	v.Set("stale_after", "2m")

	cfg, err = config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.StaleAfter.Duration)
}

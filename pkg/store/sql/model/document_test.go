package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/store/sql/model"
)

func TestDocumentScan(t *testing.T) {
	t.Parallel()

	samples := map[string]any{
		`1`:             int64(1),
		`-42`:           int64(-42),
		`2.5`:           2.5,
		`true`:          true,
		`"label"`:       `"label"`,
		`[1,2]`:         []byte(`[1,2]`),
		`{"score":0.1}`: `{"score":0.1}`,
	}

	for expected, value := range samples {
		var document model.Document
		require.NoError(t, document.Scan(value), expected)
		assert.JSONEq(t, expected, string(document), expected)
	}

	var document model.Document
	require.NoError(t, document.Scan(nil))
	assert.Nil(t, document)

	require.Error(t, document.Scan(time.Now()))
}

func TestDocumentScanCopiesBytes(t *testing.T) {
	t.Parallel()

	buffer := []byte(`[1]`)

	var document model.Document
	require.NoError(t, document.Scan(buffer))

	buffer[1] = '9'
	assert.Equal(t, `[1]`, string(document))
}

func TestDocumentValue(t *testing.T) {
	t.Parallel()

	value, err := model.Document(`1`).Value()
	require.NoError(t, err)
	assert.Equal(t, `1`, value)

	value, err = model.Document(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}

package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/query"
	"github.com/modelhub/modelhub/pkg/query/parser"
)

func TestValidQueries(t *testing.T) {
	t.Parallel()

	samples := []string{
		"status = 'COMPLETED'",
		"status = \"FAILED\" AND name LIKE 'batch%'",
		"attributes.created > 1700000000000",
		"prediction.updated <= 1700000000000",
		"name ILIKE 'Nightly%'",
		"status IN ('PENDING', 'RUNNING')",
		"status NOT IN ('FAILED')",
		"id >= 10",
		"attributes.`name` = 'run-1'",
	}

	for _, sample := range samples {
		currentSample := sample
		t.Run(currentSample, func(t *testing.T) {
			t.Parallel()

			_, err := query.ParseFilter(currentSample)
			require.NoError(t, err)
		})
	}
}

func TestInvalidQueries(t *testing.T) {
	t.Parallel()

	samples := []string{
		"metrics.accuracy > 0.9",
		"owner = 'alice'",
		"status = 'DONE'",
		"status = 1",
		"created > '2024-01-01'",
		"created LIKE 1",
		"name = 5",
		"status IN ('PENDING', 'LOST')",
	}

	for _, sample := range samples {
		currentSample := sample
		t.Run(currentSample, func(t *testing.T) {
			t.Parallel()

			_, err := query.ParseFilter(currentSample)
			require.Error(t, err)
		})
	}
}

func TestValidatedValues(t *testing.T) {
	t.Parallel()

	expressions, err := query.ParseFilter("created_at > 1700000000000 AND status IN ('RUNNING')")
	require.NoError(t, err)
	require.Len(t, expressions, 2)

	assert.Equal(t, parser.Created, expressions[0].Key)
	assert.Equal(t, int64(1700000000000), expressions[0].Value)
	assert.Equal(t, "created_at", parser.Column(expressions[0].Key))

	assert.Equal(t, parser.In, expressions[1].Operator)
	assert.Equal(t, []string{"RUNNING"}, expressions[1].Value)
}

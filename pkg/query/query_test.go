package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/query"
	"github.com/modelhub/modelhub/pkg/query/parser"
)

func TestParseFilterBlank(t *testing.T) {
	t.Parallel()

	for _, filter := range []string{"", "   "} {
		conditions, err := query.ParseFilter(filter)
		require.NoError(t, err)
		assert.Empty(t, conditions)
	}
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	conditions, err := query.ParseFilter("status IN ('COMPLETED', 'FAILED') AND created_at >= 1700000000000")
	require.NoError(t, err)
	require.Len(t, conditions, 2)

	assert.Equal(t, parser.Status, conditions[0].Key)
	assert.Equal(t, []string{"COMPLETED", "FAILED"}, conditions[0].Value)
	assert.Equal(t, parser.Created, conditions[1].Key)
	assert.Equal(t, int64(1700000000000), conditions[1].Value)
}

func TestParseFilterReportsStage(t *testing.T) {
	t.Parallel()

	stages := map[string]string{
		"name = 'open":         "lexing",
		"name = 'a' OR id = 1": "parsing",
		"status = 'DONE'":      "validation",
	}

	for filter, stage := range stages {
		_, err := query.ParseFilter(filter)

		var filterError *query.FilterError
		require.ErrorAs(t, err, &filterError, filter)
		assert.Equal(t, stage, filterError.Stage, filter)
	}
}

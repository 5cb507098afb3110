package lexer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhub/modelhub/pkg/query/lexer"
)

func debug(tokens []lexer.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		parts = append(parts, token.Debug())
	}

	return strings.Join(parts, " ")
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	samples := map[string]string{
		"status = 'COMPLETED'":                   `identifier(status) equals string("COMPLETED") eof`,
		`attributes."created" > 1700000000000`:   `identifier(attributes) dot string("created") greater number(1700000000000) eof`,
		"name LIKE 'batch%' AND updated <= 15.5": `identifier(name) like string("batch%") and identifier(updated) less_equals number(15.5) eof`,
		`name ilike "Nightly%"`:                  `identifier(name) ilike string("Nightly%") eof`,
		"status NOT IN ('PENDING', 'RUNNING')":   `identifier(status) not in open_paren string("PENDING") comma string("RUNNING") close_paren eof`,
		"name != `scratch`":                      `identifier(name) not_equals string("scratch") eof`,
		"name <> 'a'":                            `identifier(name) not_equals string("a") eof`,
		"name = ''":                              `identifier(name) equals string("") eof`,
		"  ":                                     `eof`,
	}

	for input, expected := range samples {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			tokens, err := lexer.Tokenize(input)
			require.NoError(t, err)
			assert.Equal(t, expected, debug(tokens))
		})
	}
}

func TestTokenPositions(t *testing.T) {
	t.Parallel()

	tokens, err := lexer.Tokenize("name  >= 'x'")
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, 0, tokens[0].Pos)
	assert.Equal(t, 6, tokens[1].Pos)
	assert.Equal(t, 9, tokens[2].Pos)
	assert.Equal(t, "x", tokens[2].Value)
	assert.Equal(t, 12, tokens[3].Pos)
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	samples := map[string]int{
		"name = 'batch":   7,
		"name = batch'":   12,
		"name = \"batch'": 7,
		"status = 'RUNNING' ; DROP TABLE predictions": 19,
	}

	for input, offset := range samples {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			_, err := lexer.Tokenize(input)
			require.Error(t, err)

			var lexError *lexer.Error
			require.True(t, errors.As(err, &lexError))
			assert.Equal(t, offset, lexError.Pos)
		})
	}
}

func TestKindNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "greater_equals", lexer.GreaterEquals.String())
	assert.Equal(t, "unknown(99)", lexer.TokenKind(99).String())
}

// Package query compiles prediction search filters such as
//
//	status = 'COMPLETED' AND name LIKE 'batch%' AND created > 1700000000000
//
// into validated conditions the store turns into WHERE clauses.
package query

import (
	"fmt"
	"strings"

	"github.com/modelhub/modelhub/pkg/query/lexer"
	"github.com/modelhub/modelhub/pkg/query/parser"
)

// Conditions are combined with AND.
type Conditions []*parser.ValidCompareExpr

type FilterError struct {
	Filter string
	Stage  string
	Err    error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %q (%s): %v", e.Filter, e.Stage, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// ParseFilter returns no conditions for a blank filter.
func ParseFilter(filter string) (Conditions, error) {
	if strings.TrimSpace(filter) == "" {
		return Conditions{}, nil
	}

	tokens, err := lexer.Tokenize(filter)
	if err != nil {
		return nil, &FilterError{Filter: filter, Stage: "lexing", Err: err}
	}

	ast, err := parser.Parse(tokens)
	if err != nil {
		return nil, &FilterError{Filter: filter, Stage: "parsing", Err: err}
	}

	conditions := make(Conditions, 0, len(ast.Exprs))

	for _, expr := range ast.Exprs {
		condition, err := parser.ValidateExpression(expr)
		if err != nil {
			return nil, &FilterError{Filter: filter, Stage: "validation", Err: err}
		}

		conditions = append(conditions, condition)
	}

	return conditions, nil
}

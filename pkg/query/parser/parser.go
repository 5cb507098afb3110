package parser

import (
	"fmt"
	"strconv"

	"github.com/modelhub/modelhub/pkg/query/lexer"
)

type Error struct {
	Pos     int
	message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d", e.message, e.Pos)
}

//nolint:gochecknoglobals
var comparisons = map[lexer.TokenKind]OperatorKind{
	lexer.Equals:        Equals,
	lexer.NotEquals:     NotEquals,
	lexer.Less:          Less,
	lexer.LessEquals:    LessEquals,
	lexer.Greater:       Greater,
	lexer.GreaterEquals: GreaterEquals,
	lexer.Like:          Like,
	lexer.ILike:         ILike,
}

// parser walks a token slice that always ends with an EOF token.
type parser struct {
	tokens []lexer.Token
	pos    int
}

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}

	return p.tokens[p.pos]
}

func (p *parser) next() lexer.Token {
	token := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}

	return token
}

func (p *parser) fail(token lexer.Token, want string) *Error {
	return &Error{Pos: token.Pos, message: fmt.Sprintf("expected %s, got %s", want, token.Debug())}
}

// expect consumes the next token when it has one of the given kinds.
func (p *parser) expect(want string, kinds ...lexer.TokenKind) (lexer.Token, error) {
	token := p.peek()
	for _, kind := range kinds {
		if token.Kind == kind {
			return p.next(), nil
		}
	}

	return token, p.fail(token, want)
}

// identifier reads either `key` or `entity.key`, where the key may be quoted.
func (p *parser) identifier() (Identifier, error) {
	head, err := p.expect("identifier", lexer.Identifier)
	if err != nil {
		return Identifier{}, err
	}

	if p.peek().Kind != lexer.Dot {
		return Identifier{Key: head.Value}, nil
	}

	p.next()

	key, err := p.expect("identifier or string", lexer.Identifier, lexer.String)
	if err != nil {
		return Identifier{}, err
	}

	return Identifier{Identifier: head.Value, Key: key.Value}, nil
}

func (p *parser) literal() (Value, error) {
	token, err := p.expect("number or string", lexer.Number, lexer.String)
	if err != nil {
		return nil, err
	}

	if token.Kind == lexer.String {
		return StringExpr{Value: token.Value}, nil
	}

	number, err := strconv.ParseFloat(token.Value, 64)
	if err != nil {
		return nil, &Error{Pos: token.Pos, message: fmt.Sprintf("invalid number %q", token.Value)}
	}

	return NumberExpr{Value: number}, nil
}

// set reads a parenthesized, comma separated list of strings.
func (p *parser) set() (StringListExpr, error) {
	if _, err := p.expect("'('", lexer.OpenParen); err != nil {
		return StringListExpr{}, err
	}

	values := make([]string, 0)

	for {
		item, err := p.expect("string", lexer.String)
		if err != nil {
			return StringListExpr{}, err
		}

		values = append(values, item.Value)

		separator, err := p.expect("',' or ')'", lexer.Comma, lexer.CloseParen)
		if err != nil {
			return StringListExpr{}, err
		}

		if separator.Kind == lexer.CloseParen {
			return StringListExpr{Values: values}, nil
		}
	}
}

func (p *parser) comparison() (*CompareExpr, error) {
	left, err := p.identifier()
	if err != nil {
		return nil, err
	}

	token := p.next()

	switch token.Kind {
	case lexer.In, lexer.Not:
		operator := In

		if token.Kind == lexer.Not {
			if _, err := p.expect("IN after NOT", lexer.In); err != nil {
				return nil, err
			}

			operator = NotIn
		}

		right, err := p.set()
		if err != nil {
			return nil, err
		}

		return &CompareExpr{Left: left, Operator: operator, Right: right}, nil
	default:
		operator, ok := comparisons[token.Kind]
		if !ok {
			return nil, p.fail(token, "operator")
		}

		right, err := p.literal()
		if err != nil {
			return nil, err
		}

		return &CompareExpr{Left: left, Operator: operator, Right: right}, nil
	}
}

// Parse builds the conjunction of comparisons a filter is made of.
func Parse(tokens []lexer.Token) (*AndExpr, error) {
	p := &parser{tokens: tokens}
	exprs := make([]*CompareExpr, 0, 1)

	for {
		expr, err := p.comparison()
		if err != nil {
			return nil, err
		}

		exprs = append(exprs, expr)

		token := p.next()
		switch token.Kind {
		case lexer.EOF:
			return &AndExpr{Exprs: exprs}, nil
		case lexer.And:
			continue
		default:
			return nil, p.fail(token, "AND or end of filter")
		}
	}
}

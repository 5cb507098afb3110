package lexer

import (
	"fmt"
	"strconv"
)

type TokenKind int

const (
	EOF TokenKind = iota
	Number
	String
	Identifier

	OpenParen
	CloseParen

	Equals
	NotEquals

	Less
	LessEquals
	Greater
	GreaterEquals

	Dot
	Comma

	In //nolint:varnamelen
	Not
	Like
	ILike
	And
)

//nolint:gochecknoglobals
var kindNames = [...]string{
	EOF:           "eof",
	Number:        "number",
	String:        "string",
	Identifier:    "identifier",
	OpenParen:     "open_paren",
	CloseParen:    "close_paren",
	Equals:        "equals",
	NotEquals:     "not_equals",
	Less:          "less",
	LessEquals:    "less_equals",
	Greater:       "greater",
	GreaterEquals: "greater_equals",
	Dot:           "dot",
	Comma:         "comma",
	In:            "in",
	Not:           "not",
	Like:          "like",
	ILike:         "ilike",
	And:           "and",
}

func (kind TokenKind) String() string {
	if kind >= 0 && int(kind) < len(kindNames) {
		return kindNames[kind]
	}

	return fmt.Sprintf("unknown(%d)", int(kind))
}

// Keywords are matched case-insensitively.
//
//nolint:gochecknoglobals
var keywords = map[string]TokenKind{
	"AND":   And,
	"NOT":   Not,
	"IN":    In,
	"LIKE":  Like,
	"ILIKE": ILike,
}

// Token is one lexeme. String values are already unquoted; Pos is the byte
// offset of the lexeme in the filter.
type Token struct {
	Kind  TokenKind
	Value string
	Pos   int
}

func (token Token) Debug() string {
	switch token.Kind {
	case String:
		return fmt.Sprintf("%s(%s)", token.Kind, strconv.Quote(token.Value))
	case Identifier, Number:
		return fmt.Sprintf("%s(%s)", token.Kind, token.Value)
	default:
		return token.Kind.String()
	}
}

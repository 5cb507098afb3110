package lexer

import (
	"fmt"
	"regexp"
	"strings"
)

type Error struct {
	Pos  int
	Near string
}

func (e *Error) Error() string {
	return fmt.Sprintf("unrecognized input at offset %d near %q", e.Pos, e.Near)
}

// A rule turns the text its pattern matched into a token. Rules returning
// false consume their match without emitting anything.
type rule struct {
	pattern *regexp.Regexp
	emit    func(match string) (TokenKind, string, bool)
}

func fixed(kind TokenKind) func(string) (TokenKind, string, bool) {
	return func(match string) (TokenKind, string, bool) {
		return kind, match, true
	}
}

func quoted(match string) (TokenKind, string, bool) {
	return String, match[1 : len(match)-1], true
}

func word(match string) (TokenKind, string, bool) {
	if kind, ok := keywords[strings.ToUpper(match)]; ok {
		return kind, match, true
	}

	return Identifier, match, true
}

// Order matters: two-character operators precede their one-character prefixes.
//
//nolint:gochecknoglobals
var rules = []rule{
	{regexp.MustCompile(`^\s+`), func(string) (TokenKind, string, bool) { return EOF, "", false }},
	{regexp.MustCompile(`^"[^"]*"`), quoted},
	{regexp.MustCompile(`^'[^']*'`), quoted},
	{regexp.MustCompile("^`[^`]*`"), quoted},
	{regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`), fixed(Number)},
	{regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`), word},
	{regexp.MustCompile(`^\(`), fixed(OpenParen)},
	{regexp.MustCompile(`^\)`), fixed(CloseParen)},
	{regexp.MustCompile(`^!=`), fixed(NotEquals)},
	{regexp.MustCompile(`^<>`), fixed(NotEquals)},
	{regexp.MustCompile(`^=`), fixed(Equals)},
	{regexp.MustCompile(`^<=`), fixed(LessEquals)},
	{regexp.MustCompile(`^<`), fixed(Less)},
	{regexp.MustCompile(`^>=`), fixed(GreaterEquals)},
	{regexp.MustCompile(`^>`), fixed(Greater)},
	{regexp.MustCompile(`^\.`), fixed(Dot)},
	{regexp.MustCompile(`^,`), fixed(Comma)},
}

const nearLength = 12

// Tokenize splits a filter into tokens terminated by an EOF token.
func Tokenize(source string) ([]Token, error) {
	tokens := make([]Token, 0)
	pos := 0

	for pos < len(source) {
		remainder := source[pos:]
		matched := false

		for _, r := range rules {
			match := r.pattern.FindString(remainder)
			if match == "" {
				continue
			}

			if kind, value, ok := r.emit(match); ok {
				tokens = append(tokens, Token{Kind: kind, Value: value, Pos: pos})
			}

			pos += len(match)
			matched = true

			break
		}

		if !matched {
			near := remainder
			if len(near) > nearLength {
				near = near[:nearLength]
			}

			return tokens, &Error{Pos: pos, Near: near}
		}
	}

	return append(tokens, Token{Kind: EOF, Pos: pos}), nil
}

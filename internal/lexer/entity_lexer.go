package lexer

import (
	"strconv"
	"strings"

	"github.com/ttlang/go-tt/pkg/token"
)

// EntityResolver resolves an entity placeholder to its concrete value.
// name is the full placeholder token (e.g. "NUMBER_3"); lastParam and
// lastFunction describe the syntactic context the placeholder appeared in,
// and unit is the measure unit for MEASURE_* placeholders ("" otherwise).
// The returned value becomes the token's decoded payload.
type EntityResolver func(name, lastParam, lastFunction, unit string) (any, error)

// EntityLexer replays an already-tokenized TT sequence, resolving entity
// placeholder tokens (QUOTED_STRING_0, NUMBER_3, MEASURE_C_1,
// GENERIC_ENTITY_com.foo:bar_1, ...) through a caller-supplied resolver.
// All other words are re-lexed through the ordinary scanner rules, so the
// output token type is the same as the main lexer's.
type EntityLexer struct {
	words        []string
	resolver     EntityResolver
	errors       []Error
	index        int
	lastParam    string
	lastFunction string
}

// NewEntityLexer creates an EntityLexer over a pre-tokenized sequence.
func NewEntityLexer(words []string, resolver EntityResolver) *EntityLexer {
	return &EntityLexer{words: words, resolver: resolver}
}

// Errors returns all accumulated errors.
func (el *EntityLexer) Errors() []Error {
	return el.errors
}

// NextToken returns the next token from the sequence.
func (el *EntityLexer) NextToken() token.Token {
	if el.index >= len(el.words) {
		return token.New(token.EOF, "", token.Position{Line: 1, Column: el.index + 1})
	}

	word := el.words[el.index]
	pos := token.Position{Line: 1, Column: el.index + 1, Offset: el.index}
	el.index++

	if kind, unit, ok := entityKind(word); ok {
		return el.resolveEntity(word, kind, unit, pos)
	}

	tok := relexWord(word, pos)
	switch tok.Type {
	case token.CLASS_REF:
		el.lastFunction = tok.Literal
		el.lastParam = ""
	case token.IDENT:
		el.lastParam = tok.Literal
	}
	return tok
}

// Tokenize consumes the whole sequence and returns the tokens up to and
// including EOF.
func (el *EntityLexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := el.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

// entityKind splits an entity placeholder into its token kind and measure
// unit. Placeholders end in _N where N is a decimal index.
func entityKind(word string) (kind token.TokenType, unit string, ok bool) {
	idx := strings.LastIndexByte(word, '_')
	if idx < 0 {
		return 0, "", false
	}
	if _, err := strconv.Atoi(word[idx+1:]); err != nil {
		return 0, "", false
	}
	prefix := word[:idx]

	switch {
	case prefix == "QUOTED_STRING":
		return token.QUOTED_STRING, "", true
	case prefix == "NUMBER":
		return token.NUMBER, "", true
	case prefix == "CURRENCY":
		return token.NUMBER, "", true
	case prefix == "LOCATION", prefix == "DATE", prefix == "TIME":
		return token.QUOTED_STRING, "", true
	case strings.HasPrefix(prefix, "MEASURE_"):
		return token.MEASURE, strings.TrimPrefix(prefix, "MEASURE_"), true
	case strings.HasPrefix(prefix, "GENERIC_ENTITY_"):
		return token.ENTITY_NAME, "", true
	}
	return 0, "", false
}

func (el *EntityLexer) resolveEntity(word string, kind token.TokenType, unit string, pos token.Position) token.Token {
	if el.resolver == nil {
		el.errors = append(el.errors, Error{Message: "no entity resolver for " + word, Pos: pos})
		return token.New(token.ILLEGAL, word, pos)
	}
	value, err := el.resolver(word, el.lastParam, el.lastFunction, unit)
	if err != nil {
		el.errors = append(el.errors, Error{Message: "cannot resolve entity " + word + ": " + err.Error(), Pos: pos})
		return token.New(token.ILLEGAL, word, pos)
	}
	return token.NewValue(kind, word, value, pos)
}

// relexWord runs a single pre-tokenized word through the ordinary scanner.
func relexWord(word string, pos token.Position) token.Token {
	l := New(word)
	tok := l.NextToken()
	tok.Pos = pos
	if len(l.errors) > 0 {
		tok.Type = token.ILLEGAL
	}
	return tok
}

// Package token defines the lexical tokens of the TT language and the
// keyword tables shared by the lexer and the parser.
package token

import "fmt"

// Position describes a location in TT source code.
// Line and Column are 1-based; Column counts runes, not bytes.
// Offset is the byte offset from the start of the input.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns the position in line:column form.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range describes a half-open span of source code from Start to End.
type Range struct {
	Start Position
	End   Position
}

// String returns the range in start-end form.
func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Token is a single lexical token with its surface text and position.
// Value holds the decoded payload for literal tokens: the unescaped text
// for QUOTED_STRING, the numeric value for NUMBER, the number and its unit
// for MEASURE.
type Token struct {
	Type    TokenType
	Literal string
	Value   any
	Pos     Position
}

// New creates a token of the given type at pos.
func New(typ TokenType, literal string, pos Position) Token {
	return Token{Type: typ, Literal: literal, Pos: pos}
}

// NewValue creates a literal token carrying a decoded payload.
func NewValue(typ TokenType, literal string, value any, pos Position) Token {
	return Token{Type: typ, Literal: literal, Value: value, Pos: pos}
}

// keywords maps hard keyword spellings to their token types.
// Hard keywords can never be used as identifiers.
var keywords = map[string]TokenType{
	"true":    TRUE,
	"false":   FALSE,
	"null":    NULL,
	"class":   CLASS,
	"extends": EXTENDS,
	"dataset": DATASET,
	"mixin":   MIXIN,
	"import":  IMPORT,
	"entity":  ENTITY,
	"let":     LET,
	"as":      AS,
	"of":      OF,
	"from":    FROM,
	"in":      IN,
	"out":     OUT,
	"req":     REQ,
	"opt":     OPT,
	"monitor": MONITOR,
	"new":     NEW,
	"join":    JOIN,
	"edge":    EDGE,
	"not":     NOT,
	"on":      ON,
}

// contextualKeywords maps contextual keyword spellings to their token types.
// These lex as their keyword token but the parser accepts them as ordinary
// identifiers outside the positions that give them meaning.
var contextualKeywords = map[string]TokenType{
	"query":       QUERY,
	"action":      ACTION,
	"stream":      STREAM,
	"monitorable": MONITORABLE,
	"list":        LIST,
	"filter":      FILTER,
	"sort":        SORT,
	"asc":         ASC,
	"desc":        DESC,
	"compute":     COMPUTE,
	"aggregate":   AGGREGATE,
	"count":       COUNT,
	"sum":         SUM,
	"avg":         AVG,
	"min":         MIN,
	"max":         MAX,
	"notify":      NOTIFY,
}

// dollarKeywords maps dollar keyword spellings (without the '$') to their
// token types. A '$'-prefixed identifier not in this table lexes as a
// generic DOLLAR_IDENT.
var dollarKeywords = map[string]TokenType{
	"policy":     DOLLAR_POLICY,
	"now":        DOLLAR_NOW,
	"event":      DOLLAR_EVENT,
	"program_id": DOLLAR_PROGRAM_ID,
	"source":     DOLLAR_SOURCE,
	"type":       DOLLAR_TYPE,
	"location":   DOLLAR_LOCATION,
	"time":       DOLLAR_TIME,
	"undefined":  DOLLAR_UNDEFINED,
	"context":    DOLLAR_CONTEXT,
	"self":       DOLLAR_SELF,
}

// forbiddenIdents are identifiers reserved by the code-generation target.
// Using one anywhere in TT source is a hard syntax error.
var forbiddenIdents = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
	"toString":    true,
	"valueOf":     true,
	"yield":       true,
	"await":       true,
	"arguments":   true,
	"eval":        true,
	"super":       true,
}

// LookupIdent classifies an identifier spelling as a hard keyword, a
// contextual keyword, or an ordinary identifier. The forbidden flag is set
// when the spelling is reserved by the codegen target.
func LookupIdent(ident string) (typ TokenType, forbidden bool) {
	if forbiddenIdents[ident] {
		return IDENT, true
	}
	if tok, ok := keywords[ident]; ok {
		return tok, false
	}
	if tok, ok := contextualKeywords[ident]; ok {
		return tok, false
	}
	return IDENT, false
}

// LookupDollar classifies a dollar identifier spelling (without the '$').
func LookupDollar(name string) TokenType {
	if tok, ok := dollarKeywords[name]; ok {
		return tok
	}
	return DOLLAR_IDENT
}

// IsForbidden reports whether the spelling is a forbidden identifier.
func IsForbidden(ident string) bool {
	return forbiddenIdents[ident]
}

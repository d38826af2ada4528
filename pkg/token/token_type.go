package token

// TokenType represents the type of a token in TT source code.
// The token types are organized into logical groups for clarity.
type TokenType int

// Token type constants organized by category
const (
	// Special tokens
	ILLEGAL TokenType = iota // Unexpected character
	EOF                      // End of input
	COMMENT                  // Comment (line or block)

	// Identifiers and literals
	IDENT         // identifiers: x, temperature, my_var
	NUMBER        // numeric literals: 0, 1.5, .25, 1e10, 0xFF, 0o17, 0b101
	MEASURE       // number immediately followed by a unit: 20C, 5in
	QUOTED_STRING // string literals: 'hello', "world"
	CLASS_REF     // class or function reference: @com.weather.current
	ENTITY_NAME   // entity type reference: ^^com.spotify:song
	DOLLAR_IDENT  // generic dollar identifier: $foo, $?
	TILDE_OP      // tilde operator: ~name or name~

	literalEnd // marker for end of literals section

	// Keywords - literals
	TRUE  // true
	FALSE // false
	NULL  // null

	// Keywords - declarations
	CLASS   // class
	EXTENDS // extends
	DATASET // dataset
	MIXIN   // mixin
	IMPORT  // import
	ENTITY  // entity
	LET     // let
	AS      // as
	OF      // of
	FROM    // from

	// Keywords - parameter direction and qualifiers
	IN  // in
	OUT // out
	REQ // req
	OPT // opt

	// Keywords - statements
	MONITOR // monitor
	NEW     // new
	JOIN    // join
	EDGE    // edge
	NOT     // not
	ON      // on

	keywordEnd // marker for end of hard keywords section

	// Contextual keywords (usable as identifiers outside header positions)
	QUERY       // query
	ACTION      // action
	STREAM      // stream
	MONITORABLE // monitorable
	LIST        // list
	FILTER      // filter
	SORT        // sort
	ASC         // asc
	DESC        // desc
	COMPUTE     // compute
	AGGREGATE   // aggregate
	COUNT       // count
	SUM         // sum
	AVG         // avg
	MIN         // min
	MAX         // max
	NOTIFY      // notify

	contextualEnd // marker for end of contextual keywords section

	// Dollar keywords
	DOLLAR_POLICY     // $policy
	DOLLAR_NOW        // $now
	DOLLAR_EVENT      // $event
	DOLLAR_PROGRAM_ID // $program_id
	DOLLAR_SOURCE     // $source
	DOLLAR_TYPE       // $type
	DOLLAR_LOCATION   // $location
	DOLLAR_TIME       // $time
	DOLLAR_UNDEFINED  // $undefined
	DOLLAR_CONTEXT    // $context
	DOLLAR_SELF       // $self

	dollarEnd // marker for end of dollar keywords section

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACK    // [
	RBRACK    // ]
	LBRACE    // {
	RBRACE    // }
	SEMICOLON // ;
	COMMA     // ,
	DOT       // .
	COLON     // :
	COLONCOLON // ::
	ELLIPSIS  // ...
	IMPL_ANN  // #[  (implementation annotation opener)
	NL_ANN    // #_[ (natural-language annotation opener)

	// Arithmetic operators
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	PERCENT  // %
	POWER    // **

	// Comparison operators
	EQ         // ==
	EQ_EQ_EQ   // ===
	NOT_EQ     // !=
	NOT_EQ_EQ  // !==
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
	MATCH      // =~ (substring/regex match)
	REV_MATCH  // ~= (reverse match)

	// Assignment and arrow operators
	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	TIMES_ASSIGN // *=
	DIV_ASSIGN   // /=
	MOD_ASSIGN   // %=
	POW_ASSIGN   // **=
	SHL_ASSIGN   // <<=
	SHR_ASSIGN   // >>=
	USHR_ASSIGN  // >>>=
	FAT_ARROW    // =>

	// Increment/Decrement
	INC // ++
	DEC // --

	// Bitwise/Boolean operators
	SHL       // <<
	SHR       // >>
	USHR      // >>>
	PIPE      // |
	PIPE_PIPE // ||
	AMP       // &
	AMP_AMP   // &&
	CARET     // ^
	BANG      // !
	QUESTION  // ?
	TILDE     // ~
	HASH      // #
)

// String returns the string representation of a TokenType.
func (tt TokenType) String() string {
	if int(tt) < len(tokenTypeStrings) && tokenTypeStrings[tt] != "" {
		return tokenTypeStrings[tt]
	}
	return "UNKNOWN"
}

// IsLiteral returns true if the token type is a literal value.
func (tt TokenType) IsLiteral() bool {
	return tt > EOF && tt < literalEnd
}

// IsKeyword returns true if the token type is a hard keyword.
func (tt TokenType) IsKeyword() bool {
	return tt > literalEnd && tt < keywordEnd
}

// IsContextualKeyword returns true if the token type is a contextual keyword.
// Contextual keywords may appear as ordinary identifiers except in specific
// positions (class and dataset headers, sort descriptors, aggregation names).
func (tt TokenType) IsContextualKeyword() bool {
	return tt > keywordEnd && tt < contextualEnd
}

// IsDollarKeyword returns true if the token type is a dollar keyword.
func (tt TokenType) IsDollarKeyword() bool {
	return tt > contextualEnd && tt < dollarEnd
}

// IsOperator returns true if the token type is an operator.
func (tt TokenType) IsOperator() bool {
	return tt >= PLUS && tt <= HASH
}

// IsDelimiter returns true if the token type is a delimiter.
func (tt TokenType) IsDelimiter() bool {
	return tt >= LPAREN && tt <= NL_ANN
}

// tokenTypeStrings maps TokenType values to their string representations.
var tokenTypeStrings = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:         "IDENT",
	NUMBER:        "NUMBER",
	MEASURE:       "MEASURE",
	QUOTED_STRING: "QUOTED_STRING",
	CLASS_REF:     "CLASS_REF",
	ENTITY_NAME:   "ENTITY_NAME",
	DOLLAR_IDENT:  "DOLLAR_IDENT",
	TILDE_OP:      "TILDE_OP",

	TRUE:  "TRUE",
	FALSE: "FALSE",
	NULL:  "NULL",

	CLASS:   "CLASS",
	EXTENDS: "EXTENDS",
	DATASET: "DATASET",
	MIXIN:   "MIXIN",
	IMPORT:  "IMPORT",
	ENTITY:  "ENTITY",
	LET:     "LET",
	AS:      "AS",
	OF:      "OF",
	FROM:    "FROM",

	IN:  "IN",
	OUT: "OUT",
	REQ: "REQ",
	OPT: "OPT",

	MONITOR: "MONITOR",
	NEW:     "NEW",
	JOIN:    "JOIN",
	EDGE:    "EDGE",
	NOT:     "NOT",
	ON:      "ON",

	QUERY:       "QUERY",
	ACTION:      "ACTION",
	STREAM:      "STREAM",
	MONITORABLE: "MONITORABLE",
	LIST:        "LIST",
	FILTER:      "FILTER",
	SORT:        "SORT",
	ASC:         "ASC",
	DESC:        "DESC",
	COMPUTE:     "COMPUTE",
	AGGREGATE:   "AGGREGATE",
	COUNT:       "COUNT",
	SUM:         "SUM",
	AVG:         "AVG",
	MIN:         "MIN",
	MAX:         "MAX",
	NOTIFY:      "NOTIFY",

	DOLLAR_POLICY:     "DOLLAR_POLICY",
	DOLLAR_NOW:        "DOLLAR_NOW",
	DOLLAR_EVENT:      "DOLLAR_EVENT",
	DOLLAR_PROGRAM_ID: "DOLLAR_PROGRAM_ID",
	DOLLAR_SOURCE:     "DOLLAR_SOURCE",
	DOLLAR_TYPE:       "DOLLAR_TYPE",
	DOLLAR_LOCATION:   "DOLLAR_LOCATION",
	DOLLAR_TIME:       "DOLLAR_TIME",
	DOLLAR_UNDEFINED:  "DOLLAR_UNDEFINED",
	DOLLAR_CONTEXT:    "DOLLAR_CONTEXT",
	DOLLAR_SELF:       "DOLLAR_SELF",

	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACK:     "LBRACK",
	RBRACK:     "RBRACK",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	DOT:        "DOT",
	COLON:      "COLON",
	COLONCOLON: "COLONCOLON",
	ELLIPSIS:   "ELLIPSIS",
	IMPL_ANN:   "IMPL_ANN",
	NL_ANN:     "NL_ANN",

	PLUS:     "PLUS",
	MINUS:    "MINUS",
	ASTERISK: "ASTERISK",
	SLASH:    "SLASH",
	PERCENT:  "PERCENT",
	POWER:    "POWER",

	EQ:         "EQ",
	EQ_EQ_EQ:   "EQ_EQ_EQ",
	NOT_EQ:     "NOT_EQ",
	NOT_EQ_EQ:  "NOT_EQ_EQ",
	LESS:       "LESS",
	GREATER:    "GREATER",
	LESS_EQ:    "LESS_EQ",
	GREATER_EQ: "GREATER_EQ",
	MATCH:      "MATCH",
	REV_MATCH:  "REV_MATCH",

	ASSIGN:       "ASSIGN",
	PLUS_ASSIGN:  "PLUS_ASSIGN",
	MINUS_ASSIGN: "MINUS_ASSIGN",
	TIMES_ASSIGN: "TIMES_ASSIGN",
	DIV_ASSIGN:   "DIV_ASSIGN",
	MOD_ASSIGN:   "MOD_ASSIGN",
	POW_ASSIGN:   "POW_ASSIGN",
	SHL_ASSIGN:   "SHL_ASSIGN",
	SHR_ASSIGN:   "SHR_ASSIGN",
	USHR_ASSIGN:  "USHR_ASSIGN",
	FAT_ARROW:    "FAT_ARROW",

	INC: "INC",
	DEC: "DEC",

	SHL:       "SHL",
	SHR:       "SHR",
	USHR:      "USHR",
	PIPE:      "PIPE",
	PIPE_PIPE: "PIPE_PIPE",
	AMP:       "AMP",
	AMP_AMP:   "AMP_AMP",
	CARET:     "CARET",
	BANG:      "BANG",
	QUESTION:  "QUESTION",
	TILDE:     "TILDE",
	HASH:      "HASH",
}

package lexer

import (
	"testing"

	"github.com/ttlang/go-tt/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `monitor @com.weather.current() => notify;`

	tests := []struct {
		expectedLiteral string
		expectedType    token.TokenType
	}{
		{"monitor", token.MONITOR},
		{"@com.weather.current", token.CLASS_REF},
		{"(", token.LPAREN},
		{")", token.RPAREN},
		{"=>", token.FAT_ARROW},
		{"notify", token.NOTIFY},
		{";", token.SEMICOLON},
		{"", token.EOF},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}

	if len(l.Errors()) != 0 {
		t.Fatalf("expected no errors, got %v", l.Errors())
	}
}

func TestKeywords(t *testing.T) {
	input := `class extends dataset import entity let as of in out req opt
		monitor new join edge not on true false null`

	tests := []token.TokenType{
		token.CLASS, token.EXTENDS, token.DATASET, token.IMPORT, token.ENTITY,
		token.LET, token.AS, token.OF, token.IN, token.OUT, token.REQ, token.OPT,
		token.MONITOR, token.NEW, token.JOIN, token.EDGE, token.NOT, token.ON,
		token.TRUE, token.FALSE, token.NULL,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, expected, tok.Type, tok.Literal)
		}
	}
}

func TestContextualKeywords(t *testing.T) {
	input := `query action stream monitorable list filter sort asc desc
		compute aggregate count sum avg min max notify`

	l := New(input)
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		if !tok.Type.IsContextualKeyword() {
			t.Fatalf("expected contextual keyword, got %q (%s)", tok.Literal, tok.Type)
		}
	}
}

func TestMeasureLiterals(t *testing.T) {
	tests := []struct {
		input string
		value float64
		unit  string
	}{
		{"20C", 20, "C"},
		{"5in", 5, "in"},
		{"1h", 1, "h"},
		{"-2.5kg", -2.5, "kg"},
		{"10defaultTemperature", 10, "defaultTemperature"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.MEASURE {
			t.Fatalf("%q - expected MEASURE, got %s (literal=%q)", tt.input, tok.Type, tok.Literal)
		}
		m, ok := tok.Value.(Measure)
		if !ok {
			t.Fatalf("%q - missing measure payload", tt.input)
		}
		if m.Value != tt.value || m.Unit != tt.unit {
			t.Fatalf("%q - got value=%v unit=%q", tt.input, m.Value, m.Unit)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		value float64
	}{
		{"0", 0},
		{"1.5", 1.5},
		{".25", 0.25},
		{"1e10", 1e10},
		{"-3", -3},
		{"0xFF", 255},
		{"0o17", 15},
		{"0b101", 5},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.NUMBER {
			t.Fatalf("%q - expected NUMBER, got %s (literal=%q)", tt.input, tok.Type, tok.Literal)
		}
		if got := tok.Value.(float64); got != tt.value {
			t.Fatalf("%q - expected %v, got %v", tt.input, tt.value, got)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"\x41"`, "A"},
		{`"A"`, "A"},
		{`"\u{1F680}"`, "\U0001F680"},
		{`"\q"`, "q"},
		{`"\0"`, "\x00"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.QUOTED_STRING {
			t.Fatalf("%q - expected QUOTED_STRING, got %s", tt.input, tok.Type)
		}
		if got := tok.Value.(string); got != tt.expected {
			t.Fatalf("%q - expected %q, got %q", tt.input, tt.expected, got)
		}
		if len(l.Errors()) != 0 {
			t.Fatalf("%q - unexpected errors: %v", tt.input, l.Errors())
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	input := "\"abc\nnext"
	l := New(input)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %s", tok.Type)
	}
	errs := l.Errors()
	if len(errs) == 0 {
		t.Fatal("expected an error for unterminated string")
	}
	// The error points at the line terminator, not the end of input.
	if errs[0].Pos.Line != 1 {
		t.Fatalf("expected error on line 1, got line %d", errs[0].Pos.Line)
	}
}

func TestEntityReferences(t *testing.T) {
	l := New("^^com.spotify:song")
	tok := l.NextToken()
	if tok.Type != token.ENTITY_NAME {
		t.Fatalf("expected ENTITY_NAME, got %s", tok.Type)
	}
	if got := tok.Value.(string); got != "com.spotify:song" {
		t.Fatalf("expected com.spotify:song, got %q", got)
	}
}

func TestLegacyEntityExpansion(t *testing.T) {
	l := New("Entity(com.spotify:song)")

	expected := []token.TokenType{
		token.ENTITY, token.LPAREN, token.ENTITY_NAME, token.RPAREN, token.EOF,
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token[%d] - expected %s, got %s (literal=%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestDollarIdentifiers(t *testing.T) {
	tests := []struct {
		input    string
		expected token.TokenType
	}{
		{"$policy", token.DOLLAR_POLICY},
		{"$now", token.DOLLAR_NOW},
		{"$event", token.DOLLAR_EVENT},
		{"$program_id", token.DOLLAR_PROGRAM_ID},
		{"$undefined", token.DOLLAR_UNDEFINED},
		{"$?", token.DOLLAR_IDENT},
		{"$custom_thing", token.DOLLAR_IDENT},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expected {
			t.Fatalf("%q - expected %s, got %s", tt.input, tt.expected, tok.Type)
		}
	}
}

func TestTildeOperators(t *testing.T) {
	l := New("~contains name~")

	tok := l.NextToken()
	if tok.Type != token.TILDE_OP || tok.Literal != "~contains" {
		t.Fatalf("expected ~contains, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.TILDE_OP || tok.Literal != "name~" {
		t.Fatalf("expected name~, got %s %q", tok.Type, tok.Literal)
	}
}

func TestOperatorsGreedyMatch(t *testing.T) {
	input := `=== !== >>>= **= ... #_[ #[ =~ ~= >= <= && || :: => ** ++ -- >> <<`

	tests := []token.TokenType{
		token.EQ_EQ_EQ, token.NOT_EQ_EQ, token.USHR_ASSIGN, token.POW_ASSIGN,
		token.ELLIPSIS, token.NL_ANN, token.IMPL_ANN, token.MATCH, token.REV_MATCH,
		token.GREATER_EQ, token.LESS_EQ, token.AMP_AMP, token.PIPE_PIPE,
		token.COLONCOLON, token.FAT_ARROW, token.POWER, token.INC, token.DEC,
		token.SHR, token.SHL,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("token[%d] - expected %s, got %s (literal=%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `a // line comment
	/* block
	   comment */ b`

	l := New(input)
	tok := l.NextToken()
	if tok.Literal != "a" {
		t.Fatalf("expected a, got %q", tok.Literal)
	}
	tok = l.NextToken()
	if tok.Literal != "b" {
		t.Fatalf("expected b, got %q", tok.Literal)
	}
}

func TestPreserveComments(t *testing.T) {
	l := New("a // trailing", WithPreserveComments(true))
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != token.COMMENT {
		t.Fatalf("expected COMMENT, got %s", tok.Type)
	}
	if tok.Literal != "// trailing" {
		t.Fatalf("expected comment text, got %q", tok.Literal)
	}
}

func TestForbiddenIdentifier(t *testing.T) {
	l := New("constructor")
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected an error for a forbidden identifier")
	}
}

func TestUnknownCharacter(t *testing.T) {
	l := New("`")
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if tok.Literal != "`" {
		t.Fatalf("expected single-character literal, got %q", tok.Literal)
	}
}

func TestPeek(t *testing.T) {
	l := New("a b c")
	if got := l.Peek(2).Literal; got != "c" {
		t.Fatalf("Peek(2) = %q, want c", got)
	}
	if got := l.NextToken().Literal; got != "a" {
		t.Fatalf("NextToken after Peek = %q, want a", got)
	}
}

func TestPositions(t *testing.T) {
	l := New("ab\ncd")
	first := l.NextToken()
	second := l.NextToken()
	if first.Pos.Line != 1 || first.Pos.Column != 1 {
		t.Fatalf("first token at %d:%d", first.Pos.Line, first.Pos.Column)
	}
	if second.Pos.Line != 2 || second.Pos.Column != 1 {
		t.Fatalf("second token at %d:%d", second.Pos.Line, second.Pos.Column)
	}
}

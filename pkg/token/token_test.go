package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident     string
		expected  TokenType
		forbidden bool
	}{
		{"monitor", MONITOR, false},
		{"class", CLASS, false},
		{"true", TRUE, false},
		{"query", QUERY, false},
		{"notify", NOTIFY, false},
		{"temperature", IDENT, false},
		{"constructor", IDENT, true},
		{"__proto__", IDENT, true},
		{"eval", IDENT, true},
	}

	for _, tt := range tests {
		typ, forbidden := LookupIdent(tt.ident)
		if typ != tt.expected || forbidden != tt.forbidden {
			t.Fatalf("%q - got (%s, %v), want (%s, %v)",
				tt.ident, typ, forbidden, tt.expected, tt.forbidden)
		}
	}
}

func TestLookupDollar(t *testing.T) {
	if LookupDollar("policy") != DOLLAR_POLICY {
		t.Fatal("policy should be a dollar keyword")
	}
	if LookupDollar("now") != DOLLAR_NOW {
		t.Fatal("now should be a dollar keyword")
	}
	if LookupDollar("whatever") != DOLLAR_IDENT {
		t.Fatal("unknown names are generic dollar identifiers")
	}
}

func TestTokenTypeClassification(t *testing.T) {
	if !NUMBER.IsLiteral() {
		t.Fatal("NUMBER is a literal")
	}
	if !MONITOR.IsKeyword() {
		t.Fatal("MONITOR is a keyword")
	}
	if MONITOR.IsContextualKeyword() {
		t.Fatal("MONITOR is not contextual")
	}
	if !QUERY.IsContextualKeyword() {
		t.Fatal("QUERY is contextual")
	}
	if !DOLLAR_NOW.IsDollarKeyword() {
		t.Fatal("DOLLAR_NOW is a dollar keyword")
	}
	if !PLUS.IsOperator() {
		t.Fatal("PLUS is an operator")
	}
	if !LPAREN.IsDelimiter() {
		t.Fatal("LPAREN is a delimiter")
	}
}

func TestTokenTypeString(t *testing.T) {
	if MONITOR.String() != "MONITOR" {
		t.Fatalf("MONITOR prints as %q", MONITOR.String())
	}
	if TokenType(9999).String() != "UNKNOWN" {
		t.Fatal("out-of-range token types print as UNKNOWN")
	}
}

func TestPositionAndRangeString(t *testing.T) {
	pos := Position{Line: 3, Column: 7}
	if pos.String() != "3:7" {
		t.Fatalf("position prints as %q", pos.String())
	}
	r := Range{Start: pos, End: Position{Line: 3, Column: 9}}
	if r.String() != "3:7-3:9" {
		t.Fatalf("range prints as %q", r.String())
	}
}

package lexer

import (
	"fmt"
	"testing"

	"github.com/ttlang/go-tt/pkg/token"
)

func TestEntityLexerResolvesPlaceholders(t *testing.T) {
	words := []string{"@com.spotify.play", "(", "song", "=", "QUOTED_STRING_0", ")", ";"}

	var gotName, gotParam, gotFunction string
	resolver := func(name, lastParam, lastFunction, unit string) (any, error) {
		gotName, gotParam, gotFunction = name, lastParam, lastFunction
		return "despacito", nil
	}

	el := NewEntityLexer(words, resolver)
	toks := el.Tokenize()

	if len(el.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", el.Errors())
	}

	expected := []token.TokenType{
		token.CLASS_REF, token.LPAREN, token.IDENT, token.ASSIGN,
		token.QUOTED_STRING, token.RPAREN, token.SEMICOLON, token.EOF,
	}
	for i, want := range expected {
		if toks[i].Type != want {
			t.Fatalf("token[%d] - expected %s, got %s (literal=%q)", i, want, toks[i].Type, toks[i].Literal)
		}
	}

	if toks[4].Value != "despacito" {
		t.Fatalf("expected resolved value, got %v", toks[4].Value)
	}
	if gotName != "QUOTED_STRING_0" {
		t.Fatalf("resolver name = %q", gotName)
	}
	if gotParam != "song" {
		t.Fatalf("resolver lastParam = %q", gotParam)
	}
	if gotFunction != "@com.spotify.play" {
		t.Fatalf("resolver lastFunction = %q", gotFunction)
	}
}

func TestEntityLexerMeasureUnit(t *testing.T) {
	resolver := func(name, lastParam, lastFunction, unit string) (any, error) {
		if unit != "C" {
			return nil, fmt.Errorf("wrong unit %q", unit)
		}
		return Measure{Value: 21, Unit: unit}, nil
	}

	el := NewEntityLexer([]string{"MEASURE_C_0"}, resolver)
	tok := el.NextToken()
	if tok.Type != token.MEASURE {
		t.Fatalf("expected MEASURE, got %s", tok.Type)
	}
	m := tok.Value.(Measure)
	if m.Value != 21 || m.Unit != "C" {
		t.Fatalf("unexpected payload %v", m)
	}
}

func TestEntityLexerUnresolvable(t *testing.T) {
	resolver := func(name, lastParam, lastFunction, unit string) (any, error) {
		return nil, fmt.Errorf("no such entity")
	}

	el := NewEntityLexer([]string{"NUMBER_3"}, resolver)
	tok := el.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if len(el.Errors()) == 0 {
		t.Fatal("expected an error")
	}
}

func TestEntityLexerGenericEntity(t *testing.T) {
	resolver := func(name, lastParam, lastFunction, unit string) (any, error) {
		return "id0", nil
	}

	el := NewEntityLexer([]string{"GENERIC_ENTITY_com.spotify:song_1"}, resolver)
	tok := el.NextToken()
	if tok.Type != token.ENTITY_NAME {
		t.Fatalf("expected ENTITY_NAME, got %s", tok.Type)
	}
}

package printer

import (
	"strings"
	"testing"
	"time"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"

	"github.com/ttlang/go-tt/internal/ast"
)

func TestRenderLiterals(t *testing.T) {
	p := New()
	out := p.Render([]ast.SourceToken{
		{Text: "monitor"}, {Text: ast.TokSpace}, {Text: "("}, {Text: ")"},
	})
	assert.Equal(t, "monitor ()", out)
}

func TestRenderIndentation(t *testing.T) {
	p := New()
	out := p.Render([]ast.SourceToken{
		{Text: "{"}, {Text: ast.TokIndent},
		{Text: ast.TokNewline}, {Text: "a"},
		{Text: ast.TokNewline}, {Text: "b"},
		{Text: ast.TokDedent}, {Text: ast.TokNewline}, {Text: "}"},
	})
	assert.Equal(t, "{\n  a\n  b\n}", out)
}

func TestRenderTabStops(t *testing.T) {
	p := New()
	out := p.Render([]ast.SourceToken{
		{Text: "name("}, {Text: ast.TokTabPush},
		{Text: "x"}, {Text: ast.TokNewline}, {Text: "y"},
		{Text: ast.TokTabPop}, {Text: ")"},
	})
	assert.Equal(t, "name(x\n     y)", out)
}

func TestNewlineRemovesTrailingSpace(t *testing.T) {
	p := New()
	out := p.Render([]ast.SourceToken{
		{Text: "a"}, {Text: ast.TokSpace}, {Text: ast.TokNewline}, {Text: "b"},
	})
	assert.Equal(t, "a\nb", out)
	assert.False(t, strings.Contains(out, " \n"))
}

func TestCancelNewline(t *testing.T) {
	p := New()
	out := p.Render([]ast.SourceToken{
		{Text: "a"}, {Text: ast.TokNewline}, {Text: ast.TokCancelNewline}, {Text: "b"},
	})
	assert.Equal(t, "ab", out)
}

func TestRenderDateConstant(t *testing.T) {
	date := &ast.DateValue{
		Kind:    ast.DateAbsolute,
		Instant: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	out := New().Render([]ast.SourceToken{{Const: date}})
	assert.Equal(t, `new Date("2020-05-01T00:00:00.000Z")`, out)
}

func TestRenderStringEscapes(t *testing.T) {
	s := &ast.StringValue{Value: "line1\nline2\t\"quoted\""}
	out := New().Render([]ast.SourceToken{{Const: s}})
	assert.Equal(t, `"line1\nline2\t\"quoted\""`, out)
}

func TestRenderConstants(t *testing.T) {
	tests := []struct {
		value    ast.Value
		expected string
	}{
		{&ast.NumberValue{Value: 42}, "42"},
		{&ast.NumberValue{Value: 1.5}, "1.5"},
		{&ast.MeasureValue{Value: 20, Unit: "C"}, "20C"},
		{&ast.CurrencyValue{Value: 9.99, Code: "usd"}, `new Currency(9.99, "usd")`},
		{&ast.TimeValue{Kind: ast.TimeAbsolute, Hour: 8, Minute: 30}, "new Time(8, 30, 0)"},
		{&ast.LocationValue{Kind: ast.LocationRelative, Name: "home"}, "$location.home"},
		{&ast.EntityValue{ID: "id0", Kind: "com.spotify:song"}, `"id0"^^com.spotify:song`},
	}

	for _, tt := range tests {
		out := New().Render([]ast.SourceToken{{Const: tt.value}})
		assert.Equal(t, tt.expected, out)
	}
}

func TestPrintProgramSnapshot(t *testing.T) {
	prog := &ast.Program{
		Statements: []ast.Statement{
			&ast.ExpressionStatement{Expr: &ast.ChainExpression{Expressions: []ast.Expression{
				&ast.MonitorExpression{Expr: &ast.FilterExpression{
					Expr: &ast.InvocationExpression{
						Selector: &ast.DeviceSelector{Kind: "com.weather"},
						Channel:  "current",
					},
					Filter: &ast.AtomPredicate{
						Param: "temperature",
						Op:    ">=",
						Value: &ast.MeasureValue{Value: 20, Unit: "C"},
					},
				}},
				&ast.FunctionCallExpression{Name: "notify"},
			}}},
		},
	}

	snaps.MatchSnapshot(t, Print(prog))
}

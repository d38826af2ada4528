package ttlang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/internal/types"
	"github.com/ttlang/go-tt/pkg/printer"
)

func retriever() *schema.MapRetriever {
	r := schema.NewMapRetriever()
	current := ast.NewFunctionDef(ast.QueryKind, "current", []*ast.ArgumentDef{
		{Direction: ast.Out, Name: "temperature", Type: types.Measure{Unit: "C"}},
	})
	current.ClassName = "com.weather"
	current.IsMonitorable = true
	r.AddQuery("com.weather", current)

	q := ast.NewFunctionDef(ast.QueryKind, "q", []*ast.ArgumentDef{
		{Direction: ast.Out, Name: "data", Type: types.String},
	})
	r.AddQuery("com.x", q)
	a := ast.NewFunctionDef(ast.ActionKind, "a", nil)
	r.AddAction("com.y", a)
	return r
}

func TestCompileEndToEnd(t *testing.T) {
	root, err := Compile(context.Background(), retriever(),
		`monitor (@com.weather.current()) filter temperature > 20C => notify;`)
	require.NoError(t, err)

	text := root.Emit()
	assert.Contains(t, text, "registers ")
	assert.Contains(t, text, "await invoke_trigger @com.weather.current")
	assert.Contains(t, text, "await invoke_output notify")
	assert.Contains(t, text, "try {")
}

func TestCompileReportsTypeErrors(t *testing.T) {
	_, err := Compile(context.Background(), retriever(),
		`@com.weather.current() filter nope > 1 => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestFormat(t *testing.T) {
	out, err := Format(`monitor    @com.weather.current()=>notify;`)
	require.NoError(t, err)
	assert.Equal(t, `monitor (@com.weather.current()) => notify();`, out)
}

// A well-typed program survives pretty-printing, re-parsing and
// optimization unchanged.
func TestRoundTripAfterOptimize(t *testing.T) {
	source := `monitor (@com.weather.current()) filter temperature > 20C && true => notify;`

	input, err := Parse(source)
	require.NoError(t, err)
	require.NoError(t, Typecheck(context.Background(), retriever(), input))
	optimized := Optimize(input)

	printed := printer.Print(optimized)
	reparsed, err := Parse(printed)
	require.NoError(t, err)

	assert.True(t, Optimize(reparsed).Equals(optimized), "printed:\n%s", printed)
}

// The permission-rule pipeline: parse, check, optimize the principal,
// re-emit identically.
func TestPermissionRulePipeline(t *testing.T) {
	source := `$policy { true : @com.x.q => @com.y.a; }`

	input, err := Parse(source)
	require.NoError(t, err)
	require.NoError(t, Typecheck(context.Background(), retriever(), input))

	optimized := Optimize(input)
	rule := optimized.(*ast.PermissionRule)
	assert.IsType(t, &ast.TruePredicate{}, rule.Principal)

	printed := printer.Print(optimized)
	reparsed, err := Parse(printed)
	require.NoError(t, err)
	assert.True(t, reparsed.Equals(optimized), "printed:\n%s", printed)
}

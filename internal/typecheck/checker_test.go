package typecheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/diag"
	"github.com/ttlang/go-tt/internal/parser"
	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/internal/types"
)

// weatherRetriever knows @com.weather.current (monitorable, out
// temperature: Measure(C), in opt location) and @com.lights.set_power.
func weatherRetriever() *schema.MapRetriever {
	r := schema.NewMapRetriever()

	current := ast.NewFunctionDef(ast.QueryKind, "current", []*ast.ArgumentDef{
		{Direction: ast.InOpt, Name: "location", Type: types.Location},
		{Direction: ast.Out, Name: "temperature", Type: types.Measure{Unit: "C"}},
		{Direction: ast.Out, Name: "status", Type: types.String},
	})
	current.ClassName = "com.weather"
	current.IsMonitorable = true
	r.AddQuery("com.weather", current)

	setPower := ast.NewFunctionDef(ast.ActionKind, "set_power", []*ast.ArgumentDef{
		{Direction: ast.InReq, Name: "power", Type: types.Enum{Members: []string{"on", "off"}}},
	})
	setPower.ClassName = "com.lights"
	r.AddAction("com.lights", setPower)

	return r
}

func mustParse(t *testing.T, source string) ast.Input {
	t.Helper()
	input, err := parser.ParseString(source)
	require.NoError(t, err)
	return input
}

func check(t *testing.T, source string) (ast.Input, error) {
	t.Helper()
	input := mustParse(t, source)
	err := Typecheck(context.Background(), weatherRetriever(), input)
	return input, err
}

func TestCheckFilterAttachesMeasureType(t *testing.T) {
	input, err := check(t, `@com.weather.current() filter temperature > 20C => notify;`)
	require.NoError(t, err)

	prog := input.(*ast.Program)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	filter := chain.Expressions[0].(*ast.FilterExpression)
	atom := filter.Filter.(*ast.AtomPredicate)

	require.NotNil(t, atom.ParamType)
	assert.True(t, atom.ParamType.Equals(types.Measure{Unit: "C"}))
	assert.True(t, atom.Value.Type().Equals(types.Measure{Unit: "C"}))
}

func TestCheckFilterUnitMismatch(t *testing.T) {
	_, err := check(t, `@com.weather.current() filter temperature > 20F => notify;`)
	require.Error(t, err)
	var terr *diag.TypeError
	require.ErrorAs(t, err, &terr)
	assert.NotZero(t, terr.Range.Start.Line)
}

func TestCheckUnknownClass(t *testing.T) {
	_, err := check(t, `@com.nope.current() => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "com.nope")
}

func TestCheckUnknownParameter(t *testing.T) {
	_, err := check(t, `@com.weather.current() filter humidity > 1 => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "humidity")
}

func TestCheckInvocationParams(t *testing.T) {
	// Optional inputs may be omitted.
	_, err := check(t, `@com.weather.current() => notify;`)
	assert.NoError(t, err)

	// Unknown input parameters are rejected.
	_, err = check(t, `@com.weather.current(altitude=5) => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "altitude")

	// Required inputs must appear.
	_, err = check(t, `now => @com.lights.set_power();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power")

	// A required input may bind to an undefined value.
	_, err = check(t, `now => @com.lights.set_power(power=$?);`)
	assert.NoError(t, err)

	// Enum values unify with the declared enum universe.
	_, err = check(t, `now => @com.lights.set_power(power=enum(on));`)
	assert.NoError(t, err)
}

func TestCheckProjection(t *testing.T) {
	input, err := check(t, `[temperature] of (@com.weather.current()) => notify;`)
	require.NoError(t, err)

	prog := input.(*ast.Program)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	proj := chain.Expressions[0].(*ast.ProjectionExpression)

	def := proj.Schema()
	require.NotNil(t, def)
	outputs := def.OutputArgs()
	require.Len(t, outputs, 1)
	assert.Equal(t, "temperature", outputs[0].Name)
}

func TestCheckProjectionErrors(t *testing.T) {
	_, err := check(t, `[nope] of (@com.weather.current()) => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = check(t, `[temperature, temperature] of (@com.weather.current()) => notify;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCheckSort(t *testing.T) {
	_, err := check(t, `sort(temperature asc of (@com.weather.current())) => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `sort(nope desc of (@com.weather.current())) => notify;`)
	require.Error(t, err)
}

func TestCheckIndexAndSlice(t *testing.T) {
	_, err := check(t, `(@com.weather.current())[1] => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `(@com.weather.current())[1 : 3] => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `(@com.weather.current())["x"] => notify;`)
	require.Error(t, err)
}

func TestCheckAggregation(t *testing.T) {
	input, err := check(t, `aggregate avg temperature of (@com.weather.current()) => notify;`)
	require.NoError(t, err)

	prog := input.(*ast.Program)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	agg := chain.Expressions[0].(*ast.AggregationExpression)
	def := agg.Schema()
	require.NotNil(t, def)
	require.Len(t, def.OutputArgs(), 1)
	assert.True(t, def.OutputArgs()[0].Type.Equals(types.Number))

	// count accepts any source; sum over a non-numeric field fails.
	_, err = check(t, `aggregate count of (@com.weather.current()) => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `aggregate sum status of (@com.weather.current()) => notify;`)
	require.Error(t, err)
}

func TestCheckMonitor(t *testing.T) {
	input, err := check(t, `monitor (@com.weather.current()) => notify;`)
	require.NoError(t, err)

	prog := input.(*ast.Program)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	mon := chain.Expressions[0].(*ast.MonitorExpression)
	require.NotNil(t, mon.Schema())
	assert.Equal(t, ast.StreamKind, mon.Schema().Kind)
}

func TestCheckMonitorNotMonitorable(t *testing.T) {
	r := schema.NewMapRetriever()
	oneShot := ast.NewFunctionDef(ast.QueryKind, "roll", []*ast.ArgumentDef{
		{Direction: ast.Out, Name: "value", Type: types.Number},
	})
	r.AddQuery("com.dice", oneShot)

	input := mustParse(t, `monitor (@com.dice.roll()) => notify;`)
	err := Typecheck(context.Background(), r, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not monitorable")
}

func TestCheckChainQueryIntoAction(t *testing.T) {
	// A query stage followed by an action stage checks as one chain.
	_, err := check(t, `@com.weather.current() => @com.lights.set_power(power=enum(off));`)
	assert.NoError(t, err)
}

func TestCheckChainRejectsNonInvocation(t *testing.T) {
	_, err := check(t, `@com.weather.current() => monitor (@com.weather.current());`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain")
}

func TestCheckTimer(t *testing.T) {
	_, err := check(t, `timer(base=$now, interval=1h) => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `timer(base=$now, interval="x") => notify;`)
	require.Error(t, err)
}

func TestCheckEdgeFilter(t *testing.T) {
	_, err := check(t, `edge (monitor (@com.weather.current())) on temperature > 0C => notify;`)
	assert.NoError(t, err)

	_, err = check(t, `edge (monitor (@com.weather.current())) on new => notify;`)
	assert.NoError(t, err)
}

func TestCheckFunctionDeclaration(t *testing.T) {
	source := `let hot(in req threshold : Measure(C)) {
		@com.weather.current() filter temperature >= threshold => notify;
	}
	hot(threshold=25C) => notify;`

	input, err := check(t, source)
	require.NoError(t, err)

	prog := input.(*ast.Program)
	require.Len(t, prog.Declarations, 1)
	assert.NotNil(t, prog.Declarations[0].Schema())
}

func TestCheckPermissionRule(t *testing.T) {
	r := schema.NewMapRetriever()
	q := ast.NewFunctionDef(ast.QueryKind, "q", []*ast.ArgumentDef{
		{Direction: ast.Out, Name: "data", Type: types.String},
	})
	r.AddQuery("com.x", q)
	a := ast.NewFunctionDef(ast.ActionKind, "a", []*ast.ArgumentDef{
		{Direction: ast.InOpt, Name: "message", Type: types.String},
	})
	r.AddAction("com.y", a)

	input := mustParse(t, `$policy { true : @com.x.q => @com.y.a; }`)
	err := Typecheck(context.Background(), r, input)
	require.NoError(t, err)

	rule := input.(*ast.PermissionRule)
	assert.NotNil(t, rule.Query.Schema())
	assert.NotNil(t, rule.Action.Schema())
}

func TestCheckPermissionRuleKindMismatch(t *testing.T) {
	r := schema.NewMapRetriever()
	q := ast.NewFunctionDef(ast.QueryKind, "q", nil)
	r.AddQuery("com.x", q)

	// The action side resolves to a query: rejected.
	input := mustParse(t, `$policy { true : @com.x.q => @com.x.q; }`)
	err := Typecheck(context.Background(), r, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a action")
}

func TestCheckIdempotence(t *testing.T) {
	input, err := check(t, `@com.weather.current() filter temperature > 20C => notify;`)
	require.NoError(t, err)

	snapshot := input.Clone()
	require.NoError(t, Typecheck(context.Background(), weatherRetriever(), input))
	assert.True(t, input.Equals(snapshot))
}

func TestCheckErrorOrderIsDocumentOrder(t *testing.T) {
	// Both statements are broken; the first one's error wins.
	source := `@com.nope.first() => notify;
@com.nope.second() => notify;`
	_, err := check(t, source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
}

func TestCheckCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := mustParse(t, `@com.weather.current() => notify;`)
	err := Typecheck(ctx, weatherRetriever(), input)
	require.Error(t, err)
}

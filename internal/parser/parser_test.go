package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/diag"
	"github.com/ttlang/go-tt/pkg/printer"
)

func parseProgram(t *testing.T, source string) *ast.Program {
	t.Helper()
	input, err := ParseString(source)
	require.NoError(t, err)
	prog, ok := input.(*ast.Program)
	require.True(t, ok, "expected a program, got %T", input)
	return prog
}

// roundTrip asserts that pretty-printing and re-parsing preserves the
// tree, modulo source ranges.
func roundTrip(t *testing.T, source string) ast.Input {
	t.Helper()
	first, err := ParseString(source)
	require.NoError(t, err)

	printed := printer.Print(first)
	second, err := ParseString(printed)
	require.NoError(t, err, "re-parse of %q", printed)
	assert.True(t, second.Equals(first), "round trip changed the tree:\n%s", printed)
	return first
}

func TestParseSimpleRule(t *testing.T) {
	prog := parseProgram(t, `monitor @com.weather.current() => notify;`)

	require.Len(t, prog.Statements, 1)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	require.Len(t, chain.Expressions, 2)

	mon, ok := chain.Expressions[0].(*ast.MonitorExpression)
	require.True(t, ok)
	inv := mon.Expr.(*ast.InvocationExpression)
	assert.Equal(t, "com.weather", inv.Selector.Kind)
	assert.Equal(t, "current", inv.Channel)

	call := chain.Expressions[1].(*ast.FunctionCallExpression)
	assert.Equal(t, "notify", call.Name)
}

func TestParseFilterAtom(t *testing.T) {
	prog := parseProgram(t, `@com.weather.current() filter temperature >= 20C => notify;`)

	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	filter := chain.Expressions[0].(*ast.FilterExpression)
	atom := filter.Filter.(*ast.AtomPredicate)
	assert.Equal(t, "temperature", atom.Param)
	assert.Equal(t, ">=", atom.Op)

	measure := atom.Value.(*ast.MeasureValue)
	assert.Equal(t, 20.0, measure.Value)
	assert.Equal(t, "C", measure.Unit)
}

func TestParseBooleanStructure(t *testing.T) {
	prog := parseProgram(t, `@com.weather.current() filter (temperature >= 20C && status == "ok") || !(temperature < 0C) => notify;`)

	filter := prog.Statements[0].(*ast.ExpressionStatement).Expr.Expressions[0].(*ast.FilterExpression)
	or, ok := filter.Filter.(*ast.OrPredicate)
	require.True(t, ok)
	require.Len(t, or.Operands, 2)
	assert.IsType(t, &ast.AndPredicate{}, or.Operands[0])
	assert.IsType(t, &ast.NotPredicate{}, or.Operands[1])
}

func TestParseNowPrefix(t *testing.T) {
	prog := parseProgram(t, `now => @com.lights.set_power(power=enum(off));`)
	chain := prog.Statements[0].(*ast.ExpressionStatement).Expr
	require.Len(t, chain.Expressions, 1)
	inv := chain.Expressions[0].(*ast.InvocationExpression)
	assert.Equal(t, "set_power", inv.Channel)

	enum := inv.InParams[0].Value.(*ast.EnumValue)
	assert.Equal(t, "off", enum.Tag)
}

func TestParseAssignmentAndReference(t *testing.T) {
	prog := parseProgram(t, `let cache = @com.weather.current();
cache() => notify;`)

	require.Len(t, prog.Statements, 2)
	assign := prog.Statements[0].(*ast.Assignment)
	assert.Equal(t, "cache", assign.Name)
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog := parseProgram(t, `let hot(in req threshold : Measure(C)) {
	@com.weather.current() filter temperature >= threshold => notify;
}`)

	require.Len(t, prog.Declarations, 1)
	decl := prog.Declarations[0]
	assert.Equal(t, "hot", decl.Name)
	require.Len(t, decl.Args, 1)
	assert.Equal(t, ast.InReq, decl.Args[0].Direction)
	require.Len(t, decl.Statements, 1)
}

func TestParseClass(t *testing.T) {
	source := `class @com.weather {
	monitorable list query current(in opt location : Location, out temperature : Measure(C));
	action alert(in req message : String);
}`
	prog := parseProgram(t, source)

	require.Len(t, prog.Classes, 1)
	class := prog.Classes[0]
	assert.Equal(t, "com.weather", class.Name)

	current := class.Queries["current"]
	require.NotNil(t, current)
	assert.True(t, current.IsMonitorable)
	assert.True(t, current.IsList)
	require.Len(t, current.Args, 2)

	alert := class.Actions["alert"]
	require.NotNil(t, alert)
	assert.Equal(t, ast.ActionKind, alert.Kind)
}

func TestParseLibraryWithDataset(t *testing.T) {
	source := `class @com.weather {
	monitorable query current(out temperature : Measure(C));
}
dataset @com.weather {
	query := @com.weather.current() #_[utterances=["the weather"]];
}`
	input, err := ParseString(source)
	require.NoError(t, err)

	lib, ok := input.(*ast.Library)
	require.True(t, ok)
	require.Len(t, lib.Classes, 1)
	require.Len(t, lib.Datasets, 1)
	require.Len(t, lib.Datasets[0].Examples, 1)
	assert.Equal(t, []string{"the weather"}, lib.Datasets[0].Examples[0].Utterances)
}

func TestParsePermissionRule(t *testing.T) {
	input, err := ParseString(`$policy { true : @com.x.q => @com.y.a; }`)
	require.NoError(t, err)

	rule, ok := input.(*ast.PermissionRule)
	require.True(t, ok)
	assert.IsType(t, &ast.TruePredicate{}, rule.Principal)
	assert.Equal(t, ast.PermSpecified, rule.Query.Kind)
	assert.Equal(t, "com.x", rule.Query.Class)
	assert.Equal(t, "q", rule.Query.Channel)
	assert.Equal(t, "com.y", rule.Action.Class)
	assert.Equal(t, "a", rule.Action.Channel)
}

func TestParsePermissionRuleVariants(t *testing.T) {
	input, err := ParseString(`$policy { source == "bob"^^tt:contact : @com.x.* => notify; }`)
	require.NoError(t, err)

	rule := input.(*ast.PermissionRule)
	atom := rule.Principal.(*ast.AtomPredicate)
	assert.Equal(t, "source", atom.Param)
	assert.Equal(t, ast.PermClassStar, rule.Query.Kind)
	assert.Equal(t, "com.x", rule.Query.Class)
	assert.Equal(t, ast.PermBuiltin, rule.Action.Kind)
}

func TestParseControlCommand(t *testing.T) {
	input, err := ParseString(`$yes;`)
	require.NoError(t, err)
	cmd := input.(*ast.ControlCommand)
	assert.Equal(t, "yes", cmd.Intent)
	assert.Nil(t, cmd.Value)

	input, err = ParseString(`$answer(42);`)
	require.NoError(t, err)
	cmd = input.(*ast.ControlCommand)
	assert.Equal(t, "answer", cmd.Intent)
	assert.Equal(t, 42.0, cmd.Value.(*ast.NumberValue).Value)
}

func TestParseDialogueState(t *testing.T) {
	input, err := ParseString(`$dialogue @transaction.sys_init;
@com.weather.current() => notify;`)
	require.NoError(t, err)

	state := input.(*ast.DialogueState)
	assert.Equal(t, "transaction", state.Policy)
	assert.Equal(t, "sys_init", state.Act)
	require.Len(t, state.Statements, 1)
}

func TestParseDateLiteral(t *testing.T) {
	prog := parseProgram(t, `now => @com.calendar.add(when=new Date("2020-05-01T00:00:00.000Z"));`)

	inv := prog.Statements[0].(*ast.ExpressionStatement).Expr.Expressions[0].(*ast.InvocationExpression)
	date := inv.InParams[0].Value.(*ast.DateValue)
	assert.Equal(t, ast.DateAbsolute, date.Kind)
	assert.True(t, date.Instant.Equal(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseSyntaxError(t *testing.T) {
	_, err := ParseString(`monitor => ;`)
	require.Error(t, err)
	var serr *diag.SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.NotZero(t, serr.Range.Start.Line)
}

func TestParseForbiddenIdentifierIsSyntaxError(t *testing.T) {
	_, err := ParseString(`let constructor = @com.weather.current();`)
	require.Error(t, err)
}

// ============================================================================
// Round trips
// ============================================================================

func TestRoundTripSimpleRule(t *testing.T) {
	roundTrip(t, `monitor @com.weather.current() => notify;`)
}

func TestRoundTripFilter(t *testing.T) {
	roundTrip(t, `@com.weather.current() filter temperature >= 20C && status == "ok" => notify;`)
}

func TestRoundTripProjectionAndSort(t *testing.T) {
	roundTrip(t, `[temperature] of (@com.weather.current()) => notify;`)
	roundTrip(t, `sort(temperature desc of @com.weather.current()) => notify;`)
	roundTrip(t, `aggregate count of (@com.weather.current()) => notify;`)
	roundTrip(t, `aggregate avg temperature of (@com.weather.current()) => notify;`)
}

func TestRoundTripTimers(t *testing.T) {
	roundTrip(t, `timer(base=$now, interval=1h) => notify;`)
	roundTrip(t, `attimer(time=[new Time(8, 30)]) => notify;`)
}

func TestRoundTripEdge(t *testing.T) {
	roundTrip(t, `edge (monitor @com.weather.current()) on temperature > 0C => notify;`)
	roundTrip(t, `edge (monitor @com.weather.current()) on new => notify;`)
}

func TestRoundTripValues(t *testing.T) {
	roundTrip(t, `now => @com.calendar.add(when=new Date("2020-05-01T00:00:00.000Z"));`)
	roundTrip(t, `now => @com.spotify.play(song="id0"^^com.spotify:song("Despacito"));`)
	roundTrip(t, `now => @com.pay.send(amount=new Currency(9.99, "usd"), to="bob");`)
	roundTrip(t, `now => @com.map.go(where=new Location(37.44, -122.17, "Palo Alto"));`)
	roundTrip(t, `now => @com.lights.set_power(power=enum(off));`)
	roundTrip(t, `now => @com.list.add(items=[1, 2, 3]);`)
	roundTrip(t, `now => @com.thing.act(arg=$?);`)
}

func TestRoundTripClass(t *testing.T) {
	roundTrip(t, `class @com.weather {
	monitorable query current(in opt location : Location, out temperature : Measure(C));
}`)
}

func TestRoundTripPermissionRule(t *testing.T) {
	roundTrip(t, `$policy { true : @com.x.q => @com.y.a; }`)
	roundTrip(t, `$policy { source == "bob"^^tt:contact : @com.x.* => notify; }`)
}

func TestRoundTripDeclaration(t *testing.T) {
	roundTrip(t, `let hot(in req threshold : Measure(C)) {
	@com.weather.current() filter temperature >= threshold => notify;
}
hot(threshold=25C) => notify;`)
}

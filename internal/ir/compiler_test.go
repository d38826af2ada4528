package ir

import (
	"context"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/parser"
	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/internal/typecheck"
	"github.com/ttlang/go-tt/internal/types"
)

func testRetriever() *schema.MapRetriever {
	r := schema.NewMapRetriever()

	current := ast.NewFunctionDef(ast.QueryKind, "current", []*ast.ArgumentDef{
		{Direction: ast.InOpt, Name: "location", Type: types.Location},
		{Direction: ast.Out, Name: "temperature", Type: types.Measure{Unit: "C"}},
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

func compileSource(t *testing.T, source string) *RootBlock {
	t.Helper()
	input, err := parser.ParseString(source)
	require.NoError(t, err)
	require.NoError(t, typecheck.Typecheck(context.Background(), testRetriever(), input))
	root, err := Compile(input)
	require.NoError(t, err)
	return root
}

// findInstr walks the instruction tree looking for the first instruction
// matching pred.
func findInstr(block *Block, pred func(Instruction) bool) Instruction {
	for _, instr := range block.Instructions {
		if pred(instr) {
			return instr
		}
		for _, child := range childBlocks(instr) {
			if found := findInstr(child, pred); found != nil {
				return found
			}
		}
	}
	return nil
}

func childBlocks(instr Instruction) []*Block {
	switch ii := instr.(type) {
	case *TryCatch:
		return []*Block{ii.Body}
	case *If:
		return []*Block{ii.Then, ii.Else}
	case *ForOf:
		return []*Block{ii.Body}
	case *AsyncWhile:
		return []*Block{ii.Body}
	case *LabeledLoop:
		return []*Block{ii.Body}
	}
	return nil
}

func TestMonitorLowersToAsyncWhile(t *testing.T) {
	root := compileSource(t, `monitor (@com.weather.current()) => notify;`)

	require.NotEmpty(t, root.Body.Instructions)
	tc, ok := root.Body.Instructions[0].(*TryCatch)
	require.True(t, ok, "top-level statement is wrapped in a try/catch")

	loop := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*AsyncWhile)
		return ok
	})
	require.NotNil(t, loop, "monitor lowers to an async while")

	output := findInstr(loop.(*AsyncWhile).Body, func(i Instruction) bool {
		out, ok := i.(*InvokeOutput)
		return ok && out.Kind == "notify"
	})
	assert.NotNil(t, output, "the loop body notifies with the current row")

	trigger := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*InvokeTrigger)
		return ok
	})
	assert.NotNil(t, trigger)
}

func TestInvocationLowersToTupleAndInvoke(t *testing.T) {
	root := compileSource(t, `@com.weather.current(location=$location.home) => notify;`)

	tc := root.Body.Instructions[0].(*TryCatch)

	tuple := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*CreateTuple)
		return ok
	})
	require.NotNil(t, tuple)

	set := findInstr(tc.Body, func(i Instruction) bool {
		s, ok := i.(*SetIndex)
		return ok && s.Field == "location"
	})
	require.NotNil(t, set)

	query := findInstr(tc.Body, func(i Instruction) bool {
		q, ok := i.(*InvokeQuery)
		return ok && q.Selector == "com.weather" && q.Channel == "current"
	})
	require.NotNil(t, query)
}

func TestFilterLowersToIf(t *testing.T) {
	root := compileSource(t, `@com.weather.current() filter temperature > 20C => notify;`)

	tc := root.Body.Instructions[0].(*TryCatch)
	branch := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*If)
		return ok
	})
	require.NotNil(t, branch)
	// The else branch is present but empty.
	assert.Empty(t, branch.(*If).Else.Instructions)

	output := findInstr(branch.(*If).Then, func(i Instruction) bool {
		_, ok := i.(*InvokeOutput)
		return ok
	})
	assert.NotNil(t, output, "notification happens inside the filter branch")
}

func TestActionChainLowersToInvokeAction(t *testing.T) {
	root := compileSource(t, `now => @com.lights.set_power(power=enum(off));`)

	tc := root.Body.Instructions[0].(*TryCatch)
	action := findInstr(tc.Body, func(i Instruction) bool {
		a, ok := i.(*InvokeAction)
		return ok && a.Channel == "set_power"
	})
	require.NotNil(t, action)
}

func TestAggregationLowersThroughSavedTable(t *testing.T) {
	root := compileSource(t, `aggregate count of (@com.weather.current()) => notify;`)

	tc := root.Body.Instructions[0].(*TryCatch)

	save := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*InvokeSave)
		return ok
	})
	require.NotNil(t, save)

	version := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*GetTableVersion)
		return ok
	})
	require.NotNil(t, version)

	agg := findInstr(tc.Body, func(i Instruction) bool {
		a, ok := i.(*CreateAggregation)
		return ok && a.Operator == "count"
	})
	require.NotNil(t, agg)

	memory := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*InvokeMemoryQuery)
		return ok
	})
	require.NotNil(t, memory)
}

func TestTimerLowersToBuiltinTrigger(t *testing.T) {
	root := compileSource(t, `timer(base=$now, interval=1h) => notify;`)

	tc := root.Body.Instructions[0].(*TryCatch)
	trigger := findInstr(tc.Body, func(i Instruction) bool {
		tr, ok := i.(*InvokeTrigger)
		return ok && tr.Selector == "builtin" && tr.Channel == "timer"
	})
	require.NotNil(t, trigger)

	env := findInstr(tc.Body, func(i Instruction) bool {
		e, ok := i.(*GetEnvironment)
		return ok && e.Name == "$now"
	})
	assert.NotNil(t, env, "$now lowers to an environment read")
}

func TestRegistersAreDeclaredUpFront(t *testing.T) {
	root := compileSource(t, `monitor (@com.weather.current()) => notify;`)
	assert.Greater(t, root.RegisterCount, 0)

	text := root.Emit()
	assert.Contains(t, text, "registers ")
	assert.Contains(t, text, "await invoke_trigger")
	assert.Contains(t, text, "await invoke_output")
}

func TestPermissionRuleLowering(t *testing.T) {
	r := schema.NewMapRetriever()
	q := ast.NewFunctionDef(ast.QueryKind, "q", nil)
	r.AddQuery("com.x", q)
	a := ast.NewFunctionDef(ast.ActionKind, "a", nil)
	r.AddAction("com.y", a)

	input, err := parser.ParseString(`$policy { source == "bob"^^tt:contact : @com.x.q => @com.y.a; }`)
	require.NoError(t, err)
	require.NoError(t, typecheck.Typecheck(context.Background(), r, input))

	root, err := Compile(input)
	require.NoError(t, err)

	tc := root.Body.Instructions[0].(*TryCatch)
	branch := findInstr(tc.Body, func(i Instruction) bool {
		_, ok := i.(*If)
		return ok
	})
	require.NotNil(t, branch)

	denied := findInstr(branch.(*If).Else, func(i Instruction) bool {
		_, ok := i.(*SendEndOfFlow)
		return ok
	})
	assert.NotNil(t, denied)
}

func TestSuspendingClassification(t *testing.T) {
	suspending := []Instruction{
		&InvokeTrigger{}, &InvokeQuery{}, &InvokeAction{}, &InvokeOutput{},
		&InvokeMemoryQuery{}, &InvokeSave{}, &GetTableVersion{},
		&FormatEvent{}, &SendEndOfFlow{}, &AsyncWhile{},
	}
	for _, instr := range suspending {
		assert.True(t, instr.Suspending(), "%T should suspend", instr)
	}

	nonSuspending := []Instruction{
		&LoadConstant{}, &CreateTuple{}, &SetIndex{}, &GetIndex{},
		&GetVariable{}, &GetEnvironment{}, &BinaryOp{}, &UnaryOp{},
		&BinaryFunctionOp{}, &CreateAggregation{}, &ClearGetCache{},
	}
	for _, instr := range nonSuspending {
		assert.False(t, instr.Suspending(), "%T should not suspend", instr)
	}
}

func TestEmitSnapshot(t *testing.T) {
	root := compileSource(t, `monitor (@com.weather.current()) filter temperature > 20C => notify;`)
	snaps.MatchSnapshot(t, root.Emit())
}

package ast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/types"
)

// sampleProgram builds a small typed-looking program by hand:
// monitor (@com.weather.current() filter temperature >= 20C) => notify;
func sampleProgram() *Program {
	invocation := &InvocationExpression{
		Selector: &DeviceSelector{Kind: "com.weather"},
		Channel:  "current",
		InParams: []InputParam{
			{Name: "location", Value: &UndefinedValue{Local: true}},
		},
	}
	filtered := &FilterExpression{
		Expr: invocation,
		Filter: &AtomPredicate{
			Param: "temperature",
			Op:    ">=",
			Value: &MeasureValue{Value: 20, Unit: "C"},
		},
	}
	chain := &ChainExpression{Expressions: []Expression{
		&MonitorExpression{Expr: filtered},
		&FunctionCallExpression{Name: "notify"},
	}}
	return &Program{
		Statements: []Statement{&ExpressionStatement{Expr: chain}},
	}
}

func TestCloneFidelity(t *testing.T) {
	original := sampleProgram()
	clone := original.Clone().(*Program)

	require.True(t, clone.Equals(original))

	// Mutating the clone must not affect the original.
	stmt := clone.Statements[0].(*ExpressionStatement)
	monitor := stmt.Expr.Expressions[0].(*MonitorExpression)
	atom := monitor.Expr.(*FilterExpression).Filter.(*AtomPredicate)
	atom.Param = "humidity"

	assert.False(t, clone.Equals(original))
	origAtom := original.Statements[0].(*ExpressionStatement).
		Expr.Expressions[0].(*MonitorExpression).
		Expr.(*FilterExpression).Filter.(*AtomPredicate)
	assert.Equal(t, "temperature", origAtom.Param)
}

func TestValueCloneAndEquals(t *testing.T) {
	values := []Value{
		&BooleanValue{Value: true},
		&StringValue{Value: "hello"},
		&NumberValue{Value: 42},
		&CurrencyValue{Value: 9.99, Code: "usd"},
		&MeasureValue{Value: 20, Unit: "C"},
		&LocationValue{Kind: LocationAbsolute, Lat: 37.44, Lon: -122.17, Display: "Palo Alto"},
		&TimeValue{Kind: TimeAbsolute, Hour: 10, Minute: 30},
		&DateValue{Kind: DateAbsolute, Instant: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)},
		&EntityValue{ID: "id0", Kind: "com.spotify:song", Display: "Despacito"},
		&EnumValue{Tag: "on"},
		&EventValue{Kind: "title"},
		&VarRefValue{Name: "x"},
		&ComputationValue{Op: "+", Operands: []Value{&NumberValue{Value: 1}, &NumberValue{Value: 2}}},
		&UndefinedValue{Local: true},
		&ArrayValue{Elements: []Value{&NumberValue{Value: 1}}},
		&ArgMapValue{Map: map[string]Value{"a": &NumberValue{Value: 1}}},
		&ObjectValue{Map: map[string]Value{"a": &StringValue{Value: "b"}}},
	}

	for _, v := range values {
		clone := v.Clone()
		assert.True(t, clone.Equals(v), "%T clone should equal original", v)
		assert.True(t, v.Equals(clone), "%T equality should be symmetric", v)
	}
}

func TestValueConstantness(t *testing.T) {
	assert.True(t, (&NumberValue{Value: 1}).IsConstant())
	assert.True(t, (&ArrayValue{Elements: []Value{&NumberValue{Value: 1}}}).IsConstant())
	assert.False(t, (&VarRefValue{Name: "x"}).IsConstant())
	assert.False(t, (&EventValue{}).IsConstant())
	assert.False(t, (&ComputationValue{Op: "+"}).IsConstant())
	assert.False(t, (&ArrayValue{Elements: []Value{&VarRefValue{Name: "x"}}}).IsConstant())
}

func TestValueConcreteness(t *testing.T) {
	assert.False(t, (&UndefinedValue{}).IsConcrete())
	assert.False(t, (&LocationValue{Kind: LocationUnresolved, Name: "home"}).IsConcrete())
	assert.False(t, (&TimeValue{Kind: TimeRelative, Name: "morning"}).IsConcrete())
	assert.False(t, (&MeasureValue{Value: 1, Unit: "defaultTemperature"}).IsConcrete())
	assert.False(t, (&EntityValue{Kind: "com.spotify:song", Display: "x"}).IsConcrete())
	assert.True(t, (&MeasureValue{Value: 1, Unit: "C"}).IsConcrete())
	assert.True(t, (&EntityValue{ID: "id", Kind: "com.spotify:song"}).IsConcrete())
}

func TestObjectEqualsRejectsMissingKeys(t *testing.T) {
	a := &ObjectValue{Map: map[string]Value{"x": &NumberValue{Value: 1}}}
	b := &ObjectValue{Map: map[string]Value{"y": &NumberValue{Value: 1}}}
	c := &ObjectValue{Map: map[string]Value{"x": &NumberValue{Value: 2}}}

	assert.False(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.True(t, a.Equals(a.Clone()))
}

func TestEnumValueTypeIsOpen(t *testing.T) {
	typ := (&EnumValue{Tag: "on"}).Type().(types.Enum)
	assert.True(t, typ.IsOpen())
	assert.Contains(t, typ.Members, "on")
}

func TestIterateSlotsTotality(t *testing.T) {
	prog := sampleProgram()
	slots := IterateSlots(prog)

	var undefined int
	for _, s := range slots {
		if _, ok := s.Value.(*UndefinedValue); ok {
			undefined++
		}
	}
	assert.Equal(t, 1, undefined, "every undefined value is visited exactly once")
}

func TestIterateSlots2YieldsSelectors(t *testing.T) {
	prog := sampleProgram()
	slots, selectors := IterateSlots2(prog)

	assert.NotEmpty(t, slots)
	require.Len(t, selectors, 1)
	assert.Equal(t, "com.weather", selectors[0].Kind)
}

func TestSlotSetReplacesValue(t *testing.T) {
	prog := sampleProgram()
	slots := IterateSlots(prog)

	for _, s := range slots {
		if _, ok := s.Value.(*UndefinedValue); ok {
			s.Set(&LocationValue{Kind: LocationRelative, Name: "home"})
		}
	}

	slots = IterateSlots(prog)
	for _, s := range slots {
		if _, ok := s.Value.(*UndefinedValue); ok {
			t.Fatal("undefined value should have been replaced")
		}
	}
}

func TestVisitorPrunes(t *testing.T) {
	prog := sampleProgram()

	var visited []string
	v := &countingVisitor{record: &visited}
	Walk(v, prog)

	assert.Contains(t, visited, "*ast.MonitorExpression")
	assert.Contains(t, visited, "*ast.AtomPredicate")

	// Pruning the monitor subtree hides the atom.
	visited = nil
	pruning := &pruningVisitor{countingVisitor{record: &visited}}
	Walk(pruning, prog)
	assert.Contains(t, visited, "*ast.MonitorExpression")
	assert.NotContains(t, visited, "*ast.AtomPredicate")
}

type countingVisitor struct {
	BaseVisitor
	record *[]string
}

func (v *countingVisitor) Visit(n Node) bool {
	*v.record = append(*v.record, typeName(n))
	return true
}

type pruningVisitor struct {
	countingVisitor
}

func (v *pruningVisitor) Visit(n Node) bool {
	*v.record = append(*v.record, typeName(n))
	return typeName(n) != "*ast.MonitorExpression"
}

func typeName(n Node) string {
	switch n.(type) {
	case *MonitorExpression:
		return "*ast.MonitorExpression"
	case *AtomPredicate:
		return "*ast.AtomPredicate"
	}
	return "other"
}

func TestLegacyConversionRoundTrip(t *testing.T) {
	prog := sampleProgram()
	stmt := prog.Statements[0].(*ExpressionStatement)

	legacy := stmt.ToLegacy()
	rule, ok := legacy.(*RuleStatement)
	require.True(t, ok, "a monitor chain converts to a rule")

	back := rule.ToExpressionStatement()
	assert.True(t, back.Equals(stmt))
}

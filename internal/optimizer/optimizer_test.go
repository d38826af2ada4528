package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttlang/go-tt/internal/ast"
)

func atom(param, op string, n float64) *ast.AtomPredicate {
	return &ast.AtomPredicate{Param: param, Op: op, Value: &ast.NumberValue{Value: n}}
}

func TestEmptyCombinatorsNormalize(t *testing.T) {
	assert.IsType(t, &ast.TruePredicate{}, OptimizeFilter(&ast.AndPredicate{}))
	assert.IsType(t, &ast.FalsePredicate{}, OptimizeFilter(&ast.OrPredicate{}))
}

func TestSingletonUnwrap(t *testing.T) {
	a := atom("a", ">", 1)
	opt := OptimizeFilter(&ast.AndPredicate{Operands: []ast.BooleanExpression{a}})
	assert.True(t, opt.Equals(a))
}

func TestConstantFolding(t *testing.T) {
	a := atom("a", ">", 1)

	withFalse := &ast.AndPredicate{Operands: []ast.BooleanExpression{a, &ast.FalsePredicate{}}}
	assert.IsType(t, &ast.FalsePredicate{}, OptimizeFilter(withFalse))

	withTrue := &ast.OrPredicate{Operands: []ast.BooleanExpression{a, &ast.TruePredicate{}}}
	assert.IsType(t, &ast.TruePredicate{}, OptimizeFilter(withTrue))
}

// (a > 1) && true && (b < 2) && (a > 1) simplifies to (a > 1) && (b < 2).
func TestFoldAndDedup(t *testing.T) {
	input := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		&ast.TruePredicate{},
		atom("b", "<", 2),
		atom("a", ">", 1),
	}}

	expected := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		atom("b", "<", 2),
	}}

	opt := OptimizeFilter(input)
	assert.True(t, opt.Equals(expected), "got %s", opt)
}

func TestFlattenNested(t *testing.T) {
	input := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		&ast.AndPredicate{Operands: []ast.BooleanExpression{
			atom("b", "<", 2),
			atom("c", "==", 3),
		}},
	}}

	opt := OptimizeFilter(input).(*ast.AndPredicate)
	assert.Len(t, opt.Operands, 3)
}

func TestDoubleNegation(t *testing.T) {
	a := atom("a", ">", 1)
	opt := OptimizeFilter(&ast.NotPredicate{Expr: &ast.NotPredicate{Expr: a}})
	assert.True(t, opt.Equals(a))

	assert.IsType(t, &ast.FalsePredicate{}, OptimizeFilter(&ast.NotPredicate{Expr: &ast.TruePredicate{}}))
	assert.IsType(t, &ast.TruePredicate{}, OptimizeFilter(&ast.NotPredicate{Expr: &ast.FalsePredicate{}}))
}

func TestOptimizerIdempotence(t *testing.T) {
	input := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		&ast.TruePredicate{},
		&ast.NotPredicate{Expr: &ast.NotPredicate{Expr: atom("b", "<", 2)}},
		atom("a", ">", 1),
	}}

	once := OptimizeFilter(input)
	twice := OptimizeFilter(once)
	assert.True(t, twice.Equals(once))
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	input := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		&ast.TruePredicate{},
	}}
	snapshot := input.Clone()

	OptimizeFilter(input)
	assert.True(t, input.Equals(snapshot))
}

func TestDisabledPass(t *testing.T) {
	input := &ast.AndPredicate{Operands: []ast.BooleanExpression{
		atom("a", ">", 1),
		&ast.TruePredicate{},
	}}

	opt := OptimizeFilter(input, WithPass(PassConstFold, false))
	and, ok := opt.(*ast.AndPredicate)
	require.True(t, ok)
	assert.Len(t, and.Operands, 2)
}

func queryExpr() ast.Expression {
	return &ast.InvocationExpression{
		Selector: &ast.DeviceSelector{Kind: "com.weather"},
		Channel:  "current",
	}
}

func chainStmt(exprs ...ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expr: &ast.ChainExpression{Expressions: exprs}}
}

func TestDeadAssignmentRemoval(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		&ast.Assignment{Name: "unused", Expr: queryExpr()},
		chainStmt(queryExpr(), &ast.FunctionCallExpression{Name: "notify"}),
	}}
	// The query has no attached schema, so it is conservatively kept.
	opt := OptimizeProgram(prog)
	assert.Len(t, opt.Statements, 2)

	// With a query schema attached the assignment is provably effect-free.
	assigned := queryExpr()
	assigned.SetSchema(ast.NewFunctionDef(ast.QueryKind, "current", nil))
	prog = &ast.Program{Statements: []ast.Statement{
		&ast.Assignment{Name: "unused", Expr: assigned},
		chainStmt(queryExpr(), &ast.FunctionCallExpression{Name: "notify"}),
	}}
	opt = OptimizeProgram(prog)
	assert.Len(t, opt.Statements, 1)
}

func TestReferencedAssignmentKept(t *testing.T) {
	assigned := queryExpr()
	assigned.SetSchema(ast.NewFunctionDef(ast.QueryKind, "current", nil))
	prog := &ast.Program{Statements: []ast.Statement{
		&ast.Assignment{Name: "cache", Expr: assigned},
		chainStmt(
			&ast.FunctionCallExpression{Name: "cache"},
			&ast.FunctionCallExpression{Name: "notify"},
		),
	}}

	opt := OptimizeProgram(prog)
	assert.Len(t, opt.Statements, 2)
}

func TestMergeNestedChains(t *testing.T) {
	inner := &ast.ChainExpression{Expressions: []ast.Expression{
		queryExpr(),
		&ast.FunctionCallExpression{Name: "notify"},
	}}
	prog := &ast.Program{Statements: []ast.Statement{
		&ast.ExpressionStatement{Expr: &ast.ChainExpression{
			Expressions: []ast.Expression{inner},
		}},
	}}

	opt := OptimizeProgram(prog)
	chain := opt.Statements[0].(*ast.ExpressionStatement).Expr
	assert.Len(t, chain.Expressions, 2)
}

func TestCanonicalizeLegacyRule(t *testing.T) {
	rule := &ast.RuleStatement{
		Stream:  &ast.MonitorExpression{Expr: queryExpr()},
		Actions: []ast.Expression{&ast.FunctionCallExpression{Name: "notify"}},
	}
	prog := &ast.Program{Statements: []ast.Statement{rule}}

	// Off by default: the legacy node survives.
	opt := OptimizeProgram(prog)
	assert.IsType(t, &ast.RuleStatement{}, opt.Statements[0])

	// Enabled: the rule canonicalizes to a chain statement.
	opt = OptimizeProgram(prog, WithPass(PassCanonicalizeLegacy, true))
	stmt, ok := opt.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	assert.Len(t, stmt.Expr.Expressions, 2)
}

func TestOptimizeInputPermissionRule(t *testing.T) {
	rule := &ast.PermissionRule{
		Principal: &ast.AndPredicate{Operands: []ast.BooleanExpression{
			&ast.TruePredicate{},
			&ast.TruePredicate{},
		}},
		Query:  &ast.PermissionFunction{Kind: ast.PermSpecified, Class: "com.x", Channel: "q", Filter: &ast.TruePredicate{}},
		Action: &ast.PermissionFunction{Kind: ast.PermSpecified, Class: "com.y", Channel: "a", Filter: &ast.TruePredicate{}},
	}

	opt := OptimizeInput(rule).(*ast.PermissionRule)
	assert.IsType(t, &ast.TruePredicate{}, opt.Principal)
}

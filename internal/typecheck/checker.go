// Package typecheck resolves names against a schema retriever, infers and
// unifies types, and attaches function signatures to AST nodes.
//
// Checking is fail-fast: the first error in document order aborts the walk
// and no partial results are exposed. The only suspension points are the
// retriever calls, which honor the caller's context.
package typecheck

import (
	"context"
	"fmt"
	"sort"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/diag"
	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/internal/types"
	"github.com/ttlang/go-tt/pkg/token"
)

// builtinNotify is the signature of the builtin notification action.
var builtinNotify = ast.NewFunctionDef(ast.ActionKind, "notify", nil)

// Checker walks an input with a mutable environment: the variable scope,
// the locally declared functions, and the enclosing function signature
// when inside a filter or projection.
type Checker struct {
	ctx       context.Context
	retriever schema.Retriever

	localClasses    map[string]*ast.ClassDef
	declared        map[string]*ast.FunctionDef
	scope           map[string]types.Type
	currentFunction *ast.FunctionDef
}

// New creates a Checker backed by the given retriever.
func New(retriever schema.Retriever) *Checker {
	return &Checker{
		retriever:    retriever,
		localClasses: make(map[string]*ast.ClassDef),
		declared:     make(map[string]*ast.FunctionDef),
		scope:        make(map[string]types.Type),
	}
}

// Typecheck type-checks a top-level input in place, attaching inferred
// types and signatures to its nodes.
func Typecheck(ctx context.Context, retriever schema.Retriever, input ast.Input) error {
	c := New(retriever)
	c.ctx = ctx
	switch in := input.(type) {
	case *ast.Program:
		return c.checkProgram(in)
	case *ast.Library:
		return c.checkLibrary(in)
	case *ast.PermissionRule:
		return c.checkPermissionRule(in)
	case *ast.DialogueState:
		return c.checkDialogueState(in)
	case *ast.ControlCommand:
		if in.Value == nil {
			return nil
		}
		_, err := c.checkValue(in.Value)
		return err
	}
	return &diag.NotImplementedError{Construct: fmt.Sprintf("%T", input)}
}

// typeErrorf builds a TypeError anchored at the node's range.
func typeErrorf(n ast.Node, format string, args ...any) *diag.TypeError {
	return diag.NewTypeError(fmt.Sprintf(format, args...), n.Span())
}

func typeErrorAt(rng token.Range, format string, args ...any) *diag.TypeError {
	return diag.NewTypeError(fmt.Sprintf(format, args...), rng)
}

// ============================================================================
// Inputs
// ============================================================================

func (c *Checker) checkProgram(p *ast.Program) error {
	for _, cl := range p.Classes {
		c.localClasses[cl.Name] = cl
	}
	if p.Principal != nil {
		if _, err := c.checkValue(p.Principal); err != nil {
			return err
		}
	}
	for _, d := range p.Declarations {
		if err := c.checkFunctionDeclaration(d); err != nil {
			return err
		}
	}
	for _, s := range p.Statements {
		if err := c.checkStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkLibrary(l *ast.Library) error {
	for _, cl := range l.Classes {
		c.localClasses[cl.Name] = cl
	}
	for _, d := range l.Datasets {
		for _, e := range d.Examples {
			saved := c.snapshotScope()
			for _, a := range e.Args {
				c.scope[a.Name] = a.Type
			}
			_, err := c.checkExpression(e.Expr)
			c.restoreScope(saved)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// principalSignature is the synthetic signature principal predicates are
// checked against: the requesting contact is the only parameter.
var principalSignature = ast.NewFunctionDef(ast.QueryKind, "$policy", []*ast.ArgumentDef{
	{Direction: ast.Out, Name: "source", Type: types.Entity{Name: "tt:contact"}},
})

func (c *Checker) checkPermissionRule(r *ast.PermissionRule) error {
	prev := c.currentFunction
	c.currentFunction = principalSignature
	err := c.checkBoolean(r.Principal)
	c.currentFunction = prev
	if err != nil {
		return err
	}

	if err := c.checkPermissionFunction(r.Query, ast.QueryKind); err != nil {
		return err
	}
	return c.checkPermissionFunction(r.Action, ast.ActionKind)
}

func (c *Checker) checkPermissionFunction(f *ast.PermissionFunction, kind ast.FunctionKind) error {
	switch f.Kind {
	case ast.PermBuiltin, ast.PermStar, ast.PermClassStar:
		return nil
	}

	def, err := c.lookupFunction(f.Class, f.Channel, f.Span())
	if err != nil {
		return err
	}
	if def.Kind != kind {
		return typeErrorAt(f.Span(), "@%s.%s is not a %s", f.Class, f.Channel, kind)
	}
	f.SetSchema(def)

	if f.Filter != nil {
		prev := c.currentFunction
		c.currentFunction = def
		err := c.checkBoolean(f.Filter)
		c.currentFunction = prev
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkDialogueState(d *ast.DialogueState) error {
	for _, s := range d.Statements {
		if err := c.checkStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Statements
// ============================================================================

func (c *Checker) checkStatement(s ast.Statement) error {
	switch stmt := s.(type) {
	case *ast.FunctionDeclaration:
		return c.checkFunctionDeclaration(stmt)
	case *ast.Assignment:
		def, err := c.checkExpression(stmt.Expr)
		if err != nil {
			return err
		}
		c.declared[stmt.Name] = def
		return nil
	case *ast.ExpressionStatement:
		_, err := c.checkExpression(stmt.Expr)
		return err
	case *ast.RuleStatement:
		return c.checkLegacyChain(stmt.Stream, stmt.Actions)
	case *ast.CommandStatement:
		if stmt.Table != nil {
			return c.checkLegacyChain(stmt.Table, stmt.Actions)
		}
		for _, a := range stmt.Actions {
			if _, err := c.checkExpression(a); err != nil {
				return err
			}
		}
		return nil
	}
	return &diag.NotImplementedError{Construct: fmt.Sprintf("%T", s)}
}

func (c *Checker) checkLegacyChain(first ast.Expression, actions []ast.Expression) error {
	def, err := c.checkExpression(first)
	if err != nil {
		return err
	}
	saved := c.snapshotScope()
	defer c.restoreScope(saved)
	c.bindOutputs(def)
	for _, a := range actions {
		adef, err := c.checkExpression(a)
		if err != nil {
			return err
		}
		c.bindOutputs(adef)
	}
	return nil
}

func (c *Checker) checkFunctionDeclaration(d *ast.FunctionDeclaration) error {
	saved := c.snapshotScope()
	for _, a := range d.Args {
		if a.Type == nil {
			return typeErrorf(a, "argument %s has no declared type", a.Name)
		}
		c.scope[a.Name] = a.Type
	}
	var err error
	for _, s := range d.Statements {
		if err = c.checkStatement(s); err != nil {
			break
		}
	}
	c.restoreScope(saved)
	if err != nil {
		return err
	}

	def := ast.NewFunctionDef(ast.QueryKind, d.Name, d.Args)
	d.SetSchema(def)
	c.declared[d.Name] = def
	return nil
}

// ============================================================================
// Expressions
// ============================================================================

func (c *Checker) checkExpression(e ast.Expression) (*ast.FunctionDef, error) {
	switch expr := e.(type) {
	case *ast.InvocationExpression:
		return c.checkInvocation(expr)
	case *ast.FunctionCallExpression:
		return c.checkFunctionCall(expr)
	case *ast.FilterExpression:
		return c.checkFilterExpression(expr)
	case *ast.ProjectionExpression:
		return c.checkProjection(expr)
	case *ast.SortExpression:
		return c.checkSort(expr)
	case *ast.IndexExpression:
		return c.checkIndex(expr)
	case *ast.SliceExpression:
		return c.checkSlice(expr)
	case *ast.AggregationExpression:
		return c.checkAggregation(expr)
	case *ast.AliasExpression:
		def, err := c.checkExpression(expr.Expr)
		if err != nil {
			return nil, err
		}
		expr.SetSchema(def)
		return def, nil
	case *ast.MonitorExpression:
		return c.checkMonitor(expr)
	case *ast.TimerExpression:
		return c.checkTimer(expr)
	case *ast.AtTimerExpression:
		return c.checkAtTimer(expr)
	case *ast.EdgeFilterExpression:
		return c.checkEdgeFilter(expr)
	case *ast.EdgeNewExpression:
		return c.checkEdgeNew(expr)
	case *ast.ChainExpression:
		return c.checkChain(expr)
	}
	return nil, &diag.NotImplementedError{Construct: fmt.Sprintf("%T", e)}
}

func (c *Checker) checkInvocation(e *ast.InvocationExpression) (*ast.FunctionDef, error) {
	if e.Selector.Principal != nil {
		if _, err := c.checkValue(e.Selector.Principal); err != nil {
			return nil, err
		}
	}
	def, err := c.lookupFunction(e.Selector.Kind, e.Channel, e.Span())
	if err != nil {
		return nil, err
	}
	if err := c.checkInputParams(def, e.InParams, e.Span()); err != nil {
		return nil, err
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkFunctionCall(e *ast.FunctionCallExpression) (*ast.FunctionDef, error) {
	var def *ast.FunctionDef
	switch e.Name {
	case "notify", "return":
		def = builtinNotify
	default:
		def = c.declared[e.Name]
		if def == nil {
			return nil, typeErrorf(e, "undefined function %s", e.Name)
		}
	}
	if err := c.checkInputParams(def, e.InParams, e.Span()); err != nil {
		return nil, err
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkFilterExpression(e *ast.FilterExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	prev := c.currentFunction
	c.currentFunction = def
	err = c.checkBoolean(e.Filter)
	c.currentFunction = prev
	if err != nil {
		return nil, err
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkProjection(e *ast.ProjectionExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(e.Args))
	var projected []*ast.ArgumentDef
	for _, a := range def.Args {
		if a.Direction.IsInput() {
			projected = append(projected, a)
		}
	}
	for _, name := range e.Args {
		if seen[name] {
			return nil, typeErrorf(e, "duplicate projection argument %s", name)
		}
		seen[name] = true
		arg, err := c.lookupArgument(def, name)
		if err != nil {
			return nil, typeErrorf(e, "no parameter named %s in %s", name, def.Name)
		}
		if arg.Direction != ast.Out {
			return nil, typeErrorf(e, "cannot project input parameter %s", name)
		}
		projected = append(projected, arg)
	}

	derived := c.deriveDef(def, def.Kind, projected)
	e.SetSchema(derived)
	return derived, nil
}

func (c *Checker) checkSort(e *ast.SortExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	arg, lookupErr := c.lookupArgument(def, e.Field)
	if lookupErr != nil || arg.Direction != ast.Out {
		return nil, typeErrorf(e, "no output parameter named %s to sort by", e.Field)
	}
	if e.Direction != "asc" && e.Direction != "desc" {
		return nil, typeErrorf(e, "invalid sort direction %q", e.Direction)
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkIndex(e *ast.IndexExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	for _, idx := range e.Indices {
		t, err := c.checkValue(idx)
		if err != nil {
			return nil, err
		}
		if _, err := types.Unify(types.Number, t, types.Scope{}); err != nil {
			return nil, typeErrorf(idx, "index must be a Number, not %s", t)
		}
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkSlice(e *ast.SliceExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	for _, v := range []ast.Value{e.Base, e.Limit} {
		t, err := c.checkValue(v)
		if err != nil {
			return nil, err
		}
		if _, err := types.Unify(types.Number, t, types.Scope{}); err != nil {
			return nil, typeErrorf(v, "slice bound must be a Number, not %s", t)
		}
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkAggregation(e *ast.AggregationExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}

	switch e.Operator {
	case ast.AggCount, ast.AggSum, ast.AggAvg, ast.AggMin, ast.AggMax:
	default:
		return nil, typeErrorf(e, "invalid aggregation operator %q", e.Operator)
	}

	var resultType types.Type = types.Number
	name := e.Operator
	if e.Operator == ast.AggCount {
		if e.Field != "" && e.Field != "*" {
			arg, lookupErr := c.lookupArgument(def, e.Field)
			if lookupErr != nil || arg.Direction != ast.Out {
				return nil, typeErrorf(e, "no output parameter named %s to aggregate", e.Field)
			}
		}
	} else {
		arg, lookupErr := c.lookupArgument(def, e.Field)
		if lookupErr != nil || arg.Direction != ast.Out {
			return nil, typeErrorf(e, "no output parameter named %s to aggregate", e.Field)
		}
		if !types.IsNumeric(arg.Type) {
			return nil, typeErrorf(e, "cannot %s non-numeric parameter %s of type %s", e.Operator, e.Field, arg.Type)
		}
		if e.Operator != ast.AggAvg {
			resultType = arg.Type
		}
		name = e.Field
	}
	if e.Alias != "" {
		name = e.Alias
	}

	derived := c.deriveDef(def, def.Kind, []*ast.ArgumentDef{
		{Direction: ast.Out, Name: name, Type: resultType},
	})
	e.SetSchema(derived)
	return derived, nil
}

func (c *Checker) checkMonitor(e *ast.MonitorExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	if !def.IsMonitorable {
		return nil, typeErrorf(e, "%s is not monitorable", def.Name)
	}
	for _, name := range e.Args {
		arg, lookupErr := c.lookupArgument(def, name)
		if lookupErr != nil || arg.Direction != ast.Out {
			return nil, typeErrorf(e, "no output parameter named %s to monitor", name)
		}
	}
	derived := c.deriveDef(def, ast.StreamKind, def.Args)
	e.SetSchema(derived)
	return derived, nil
}

func (c *Checker) checkTimer(e *ast.TimerExpression) (*ast.FunctionDef, error) {
	baseType, err := c.checkValue(e.Base)
	if err != nil {
		return nil, err
	}
	if _, err := types.Unify(types.Date, baseType, types.Scope{}); err != nil {
		return nil, typeErrorf(e.Base, "timer base must be a Date, not %s", baseType)
	}
	intervalType, err := c.checkValue(e.Interval)
	if err != nil {
		return nil, err
	}
	if !isDuration(intervalType) {
		return nil, typeErrorf(e.Interval, "timer interval must be a duration, not %s", intervalType)
	}
	if e.Frequency != nil {
		freqType, err := c.checkValue(e.Frequency)
		if err != nil {
			return nil, err
		}
		if _, err := types.Unify(types.Number, freqType, types.Scope{}); err != nil {
			return nil, typeErrorf(e.Frequency, "timer frequency must be a Number, not %s", freqType)
		}
	}
	def := ast.NewFunctionDef(ast.StreamKind, "timer", nil)
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkAtTimer(e *ast.AtTimerExpression) (*ast.FunctionDef, error) {
	for _, t := range e.Times {
		tt, err := c.checkValue(t)
		if err != nil {
			return nil, err
		}
		if _, err := types.Unify(types.Time, tt, types.Scope{}); err != nil {
			return nil, typeErrorf(t, "attimer time must be a Time, not %s", tt)
		}
	}
	if e.Expiration != nil {
		et, err := c.checkValue(e.Expiration)
		if err != nil {
			return nil, err
		}
		if _, err := types.Unify(types.Date, et, types.Scope{}); err != nil {
			return nil, typeErrorf(e.Expiration, "attimer expiration must be a Date, not %s", et)
		}
	}
	def := ast.NewFunctionDef(ast.StreamKind, "attimer", nil)
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkEdgeFilter(e *ast.EdgeFilterExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	if def.Kind != ast.StreamKind {
		return nil, typeErrorf(e, "edge filters apply to streams, not %s", def.Kind)
	}
	prev := c.currentFunction
	c.currentFunction = def
	err = c.checkBoolean(e.Filter)
	c.currentFunction = prev
	if err != nil {
		return nil, err
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkEdgeNew(e *ast.EdgeNewExpression) (*ast.FunctionDef, error) {
	def, err := c.checkExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	if def.Kind != ast.StreamKind {
		return nil, typeErrorf(e, "edge filters apply to streams, not %s", def.Kind)
	}
	e.SetSchema(def)
	return def, nil
}

func (c *Checker) checkChain(e *ast.ChainExpression) (*ast.FunctionDef, error) {
	if len(e.Expressions) == 0 {
		return nil, typeErrorf(e, "empty statement")
	}

	saved := c.snapshotScope()
	defer c.restoreScope(saved)

	var union []*ast.ArgumentDef
	seen := make(map[string]bool)
	addArgs := func(def *ast.FunctionDef) {
		for _, a := range def.Args {
			if a.Direction == ast.Out && !seen[a.Name] {
				seen[a.Name] = true
				union = append(union, a)
			}
		}
	}

	first, err := c.checkExpression(e.Expressions[0])
	if err != nil {
		return nil, err
	}
	c.bindOutputs(first)
	addArgs(first)

	for _, sub := range e.Expressions[1:] {
		if !isInvocationLike(sub) {
			return nil, typeErrorf(sub, "only invocations can continue a chain")
		}
		def, err := c.checkExpression(sub)
		if err != nil {
			return nil, err
		}
		for _, p := range inParamsOf(sub) {
			if !seen[p.Name] {
				seen[p.Name] = true
				if arg, err := c.lookupArgument(def, p.Name); err == nil {
					union = append(union, arg)
				}
			}
		}
		c.bindOutputs(def)
		addArgs(def)
	}

	kind := first.Kind
	joined := c.deriveDef(first, kind, union)
	e.SetSchema(joined)
	return joined, nil
}

func isInvocationLike(e ast.Expression) bool {
	switch e.(type) {
	case *ast.InvocationExpression, *ast.FunctionCallExpression:
		return true
	}
	return false
}

func inParamsOf(e ast.Expression) []ast.InputParam {
	switch ee := e.(type) {
	case *ast.InvocationExpression:
		return ee.InParams
	case *ast.FunctionCallExpression:
		return ee.InParams
	}
	return nil
}

// ============================================================================
// Boolean expressions
// ============================================================================

func (c *Checker) checkBoolean(b ast.BooleanExpression) error {
	switch pred := b.(type) {
	case *ast.TruePredicate, *ast.FalsePredicate:
		return nil

	case *ast.AtomPredicate:
		arg, err := c.lookupArgument(c.currentFunction, pred.Param)
		if err != nil {
			return typeErrorf(pred, "no parameter named %s", pred.Param)
		}
		valueType, err := c.checkValue(pred.Value)
		if err != nil {
			return err
		}
		paramType, err := resolveComparisonOp(pred.Op, arg.Type, valueType, types.Scope{})
		if err != nil {
			terr := typeErrorf(pred, "invalid filter on %s: %v", pred.Param, err)
			terr.Expected = arg.Type.String()
			terr.Observed = valueType.String()
			return terr
		}
		pred.ParamType = paramType
		c.bindVarRef(pred.Value, arg.Type)
		return nil

	case *ast.NotPredicate:
		return c.checkBoolean(pred.Expr)

	case *ast.AndPredicate:
		for _, op := range pred.Operands {
			if err := c.checkBoolean(op); err != nil {
				return err
			}
		}
		return nil

	case *ast.OrPredicate:
		for _, op := range pred.Operands {
			if err := c.checkBoolean(op); err != nil {
				return err
			}
		}
		return nil

	case *ast.DontCarePredicate:
		if _, err := c.lookupArgument(c.currentFunction, pred.Param); err != nil {
			return typeErrorf(pred, "no parameter named %s", pred.Param)
		}
		return nil

	case *ast.ComputePredicate:
		lhsType, err := c.checkValue(pred.Lhs)
		if err != nil {
			return err
		}
		rhsType, err := c.checkValue(pred.Rhs)
		if err != nil {
			return err
		}
		if _, err := resolveComparisonOp(pred.Op, lhsType, rhsType, types.Scope{}); err != nil {
			terr := typeErrorf(pred, "invalid comparison: %v", err)
			terr.Expected = lhsType.String()
			terr.Observed = rhsType.String()
			return terr
		}
		return nil

	case *ast.ExistsPredicate:
		_, err := c.checkSubquery(pred.Query)
		return err

	case *ast.ComparisonPredicate:
		lhsType, err := c.checkValue(pred.Lhs)
		if err != nil {
			return err
		}
		def, err := c.checkSubquery(pred.Query)
		if err != nil {
			return err
		}
		outputs := def.OutputArgs()
		if len(outputs) != 1 {
			return typeErrorf(pred, "comparison subquery must expose exactly one column, got %d", len(outputs))
		}
		if _, err := resolveComparisonOp(pred.Op, lhsType, outputs[0].Type, types.Scope{}); err != nil {
			return typeErrorf(pred, "invalid comparison subquery: %v", err)
		}
		return nil

	case *ast.PropertyPathPredicate:
		if len(pred.Path) == 0 {
			return typeErrorf(pred, "empty property path")
		}
		if _, err := c.lookupArgument(c.currentFunction, pred.Path[0]); err != nil {
			return typeErrorf(pred, "no parameter named %s", pred.Path[0])
		}
		if !comparisonOps[pred.Op] {
			return typeErrorf(pred, "unknown operator %q", pred.Op)
		}
		_, err := c.checkValue(pred.Value)
		return err

	case *ast.ExternalPredicate:
		def, err := c.lookupFunction(pred.Selector.Kind, pred.Channel, pred.Span())
		if err != nil {
			return err
		}
		if err := c.checkInputParams(def, pred.InParams, pred.Span()); err != nil {
			return err
		}
		prev := c.currentFunction
		c.currentFunction = def
		err = c.checkBoolean(pred.Filter)
		c.currentFunction = prev
		return err
	}

	return &diag.NotImplementedError{Construct: fmt.Sprintf("%T", b)}
}

// checkSubquery checks a subquery expression in a fresh filter context.
func (c *Checker) checkSubquery(e ast.Expression) (*ast.FunctionDef, error) {
	prev := c.currentFunction
	defer func() { c.currentFunction = prev }()
	return c.checkExpression(e)
}

// ============================================================================
// Values
// ============================================================================

func (c *Checker) checkValue(v ast.Value) (types.Type, error) {
	switch val := v.(type) {
	case *ast.VarRefValue:
		if t, ok := c.scope[val.Name]; ok {
			val.RefType = t
			return t, nil
		}
		if c.currentFunction != nil {
			if arg, err := c.lookupArgument(c.currentFunction, val.Name); err == nil {
				val.RefType = arg.Type
				return arg.Type, nil
			}
		}
		return nil, typeErrorf(val, "undefined variable %s", val.Name)

	case *ast.ComputationValue:
		operandTypes := make([]types.Type, len(val.Operands))
		for i, op := range val.Operands {
			t, err := c.checkValue(op)
			if err != nil {
				return nil, err
			}
			operandTypes[i] = t
		}
		resType, err := resolveArithmeticOp(val.Op, operandTypes, types.Scope{})
		if err != nil {
			return nil, typeErrorf(val, "invalid computation: %v", err)
		}
		val.ResType = resType
		return resType, nil

	case *ast.ArrayFieldValue:
		innerType, err := c.checkValue(val.Inner)
		if err != nil {
			return nil, err
		}
		arr, ok := innerType.(types.Array)
		if !ok {
			return nil, typeErrorf(val, "field projection requires an array, not %s", innerType)
		}
		fieldType := fieldTypeOf(arr.Elem, val.Field)
		if fieldType == nil {
			return nil, typeErrorf(val, "no field named %s", val.Field)
		}
		val.FieldType = fieldType
		return types.Array{Elem: fieldType}, nil

	case *ast.FilterValue:
		innerType, err := c.checkValue(val.Inner)
		if err != nil {
			return nil, err
		}
		if err := c.checkBoolean(val.Predicate); err != nil {
			return nil, err
		}
		return innerType, nil

	case *ast.ArrayValue:
		var elemType types.Type = types.Any{}
		scope := types.Scope{}
		for _, e := range val.Elements {
			t, err := c.checkValue(e)
			if err != nil {
				return nil, err
			}
			u, err := types.Unify(elemType, t, scope)
			if err != nil {
				return nil, typeErrorf(val, "array elements disagree: %v", err)
			}
			elemType = u
		}
		return types.Array{Elem: elemType}, nil

	case *ast.ArgMapValue:
		for _, k := range sortedValueKeys(val.Map) {
			if _, err := c.checkValue(val.Map[k]); err != nil {
				return nil, err
			}
		}
		return types.ArgMap{}, nil

	case *ast.ObjectValue:
		for _, k := range sortedValueKeys(val.Map) {
			if _, err := c.checkValue(val.Map[k]); err != nil {
				return nil, err
			}
		}
		return val.Type(), nil
	}

	return v.Type(), nil
}

// fieldTypeOf resolves a field of a compound or object element type.
func fieldTypeOf(elem types.Type, field string) types.Type {
	switch e := elem.(type) {
	case types.Object:
		return e.Schema[field]
	case types.Compound:
		return e.Fields[field]
	case types.Any:
		return types.Any{}
	}
	return nil
}

// bindVarRef records the declared parameter type on a variable reference
// used as a filter operand, so later passes see the resolved type.
func (c *Checker) bindVarRef(v ast.Value, t types.Type) {
	if ref, ok := v.(*ast.VarRefValue); ok && ref.RefType == nil {
		ref.RefType = t
	}
}

// ============================================================================
// Helpers
// ============================================================================

// checkInputParams verifies every input parameter binding against the
// declared inputs: unknown names and duplicate bindings are errors,
// required inputs must appear or bind to an undefined value, and unused
// optional inputs are permitted.
func (c *Checker) checkInputParams(def *ast.FunctionDef, params []ast.InputParam, rng token.Range) error {
	bound := make(map[string]bool, len(params))
	for i := range params {
		p := &params[i]
		arg, err := c.lookupArgument(def, p.Name)
		if err != nil {
			return typeErrorAt(p.Span(), "%s has no input parameter named %s", def.Name, p.Name)
		}
		if !arg.Direction.IsInput() {
			return typeErrorAt(p.Span(), "cannot pass output parameter %s", p.Name)
		}
		if bound[p.Name] {
			return typeErrorAt(p.Span(), "duplicate input parameter %s", p.Name)
		}
		bound[p.Name] = true

		valueType, err := c.checkValue(p.Value)
		if err != nil {
			return err
		}
		if _, err := types.Unify(arg.Type, valueType, types.Scope{}); err != nil {
			if !types.IsAssignable(arg.Type, valueType) {
				terr := typeErrorAt(p.Span(), "invalid value for parameter %s", p.Name)
				terr.Expected = arg.Type.String()
				terr.Observed = valueType.String()
				return terr
			}
		}
		c.bindVarRef(p.Value, arg.Type)
	}

	for _, arg := range def.Args {
		if arg.Direction == ast.InReq && !bound[arg.Name] {
			return typeErrorAt(rng, "missing required parameter %s of %s", arg.Name, def.Name)
		}
	}
	return nil
}

// lookupFunction resolves @class.channel against the program's local
// classes first, then the retriever. Retriever failures surface as type
// errors naming the offending class and function.
func (c *Checker) lookupFunction(class, channel string, rng token.Range) (*ast.FunctionDef, error) {
	if local, ok := c.localClasses[class]; ok {
		if def := local.Queries[channel]; def != nil {
			return def, nil
		}
		if def := local.Actions[channel]; def != nil {
			return def, nil
		}
	}

	meta, err := c.retriever.GetFullMeta(c.ctx, class)
	if err != nil {
		return nil, typeErrorAt(rng, "cannot resolve @%s.%s: %v", class, channel, err)
	}
	if def := meta.Queries[channel]; def != nil {
		return def, nil
	}
	if def := meta.Actions[channel]; def != nil {
		return def, nil
	}
	if def := meta.Triggers[channel]; def != nil {
		return def, nil
	}
	return nil, typeErrorAt(rng, "class @%s has no function named %s", class, channel)
}

// lookupArgument finds an argument in a signature, following the
// signature's extends list through the same class.
func (c *Checker) lookupArgument(def *ast.FunctionDef, name string) (*ast.ArgumentDef, error) {
	if def == nil {
		return nil, fmt.Errorf("no enclosing function")
	}
	return c.lookupArgumentRec(def, name, make(map[string]bool))
}

func (c *Checker) lookupArgumentRec(def *ast.FunctionDef, name string, visited map[string]bool) (*ast.ArgumentDef, error) {
	if arg := def.Argument(name); arg != nil {
		return arg, nil
	}
	for _, parent := range def.Extends {
		if visited[parent] {
			continue
		}
		visited[parent] = true
		parentDef, err := c.lookupFunction(def.ClassName, parent, def.Span())
		if err != nil {
			continue
		}
		if arg, err := c.lookupArgumentRec(parentDef, name, visited); err == nil {
			return arg, nil
		}
	}
	return nil, fmt.Errorf("no argument named %s", name)
}

// deriveDef builds a fresh signature sharing args with the source but with
// its own kind and argument list. Qualifiers carry over.
func (c *Checker) deriveDef(src *ast.FunctionDef, kind ast.FunctionKind, args []*ast.ArgumentDef) *ast.FunctionDef {
	def := ast.NewFunctionDef(kind, src.Name, args)
	def.ClassName = src.ClassName
	def.Extends = src.Extends
	def.IsList = src.IsList
	def.IsMonitorable = src.IsMonitorable
	return def
}

// bindOutputs brings the outputs of a stage's schema into scope for the
// following stages of a chain.
func (c *Checker) bindOutputs(def *ast.FunctionDef) {
	if def == nil {
		return
	}
	for _, a := range def.Args {
		if a.Direction == ast.Out {
			c.scope[a.Name] = a.Type
		}
	}
}

func (c *Checker) snapshotScope() map[string]types.Type {
	saved := make(map[string]types.Type, len(c.scope))
	for k, v := range c.scope {
		saved[k] = v
	}
	return saved
}

func (c *Checker) restoreScope(saved map[string]types.Type) {
	c.scope = saved
}

// isDuration reports whether t is a measure usable as a time interval.
func isDuration(t types.Type) bool {
	switch t.(type) {
	case types.Measure:
		return true
	case types.Any:
		return true
	}
	return false
}

// sortedValueKeys keeps the error order deterministic across runs.
func sortedValueKeys(m map[string]ast.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

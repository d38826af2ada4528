package ir

import (
	"fmt"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/diag"
)

// Compiler lowers a type-checked, optimized input to IR. The register
// allocator is a monotonic counter; blocks are stacked, pushed on entry
// and popped on exit.
type Compiler struct {
	root      *RootBlock
	blocks    []*Block
	nextReg   int
	nextLabel int
	nextTable int
	vars      map[string]Register
	row       Register // register holding the current result row
	hasRow    bool
}

// NewCompiler creates an empty IR compiler.
func NewCompiler() *Compiler {
	return &Compiler{vars: make(map[string]Register)}
}

// Compile lowers a program or permission rule to an IR program with a
// single root block: register declarations followed by the top-level
// block.
func Compile(input ast.Input) (*RootBlock, error) {
	return NewCompiler().Compile(input)
}

// Compile implements the lowering entry point.
func (c *Compiler) Compile(input ast.Input) (*RootBlock, error) {
	c.root = &RootBlock{Body: &Block{}}
	c.blocks = []*Block{c.root.Body}
	c.nextReg = 0
	c.nextLabel = 0
	c.nextTable = 0
	c.vars = make(map[string]Register)
	c.hasRow = false

	var err error
	switch in := input.(type) {
	case *ast.Program:
		err = c.compileProgram(in)
	case *ast.PermissionRule:
		err = c.compilePermissionRule(in)
	default:
		err = &diag.NotImplementedError{Construct: fmt.Sprintf("%T", input)}
	}
	if err != nil {
		return nil, err
	}

	c.root.RegisterCount = c.nextReg
	return c.root, nil
}

// allocReg returns a fresh register.
func (c *Compiler) allocReg() Register {
	r := Register(c.nextReg)
	c.nextReg++
	return r
}

// allocLabel returns a fresh numeric loop label.
func (c *Compiler) allocLabel() int {
	l := c.nextLabel
	c.nextLabel++
	return l
}

// allocTable returns a fresh opaque table name.
func (c *Compiler) allocTable() string {
	t := fmt.Sprintf("t_%d", c.nextTable)
	c.nextTable++
	return t
}

func (c *Compiler) block() *Block {
	return c.blocks[len(c.blocks)-1]
}

func (c *Compiler) pushBlock(b *Block) {
	c.blocks = append(c.blocks, b)
}

func (c *Compiler) popBlock() {
	c.blocks = c.blocks[:len(c.blocks)-1]
}

func (c *Compiler) emit(instr Instruction) {
	c.block().Add(instr)
}

// ============================================================================
// Programs
// ============================================================================

func (c *Compiler) compileProgram(p *ast.Program) error {
	for i, s := range p.Statements {
		tc := &TryCatch{
			Message: fmt.Sprintf("failed to execute statement %d", i),
			Body:    &Block{},
		}
		c.emit(tc)
		c.pushBlock(tc.Body)
		err := c.compileStatement(s)
		c.popBlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStatement(s ast.Statement) error {
	switch stmt := s.(type) {
	case *ast.ExpressionStatement:
		return c.compileChain(stmt.Expr)
	case *ast.Assignment:
		rows, err := c.compileTable(stmt.Expr)
		if err != nil {
			return err
		}
		c.vars[stmt.Name] = rows
		return nil
	case *ast.RuleStatement:
		return c.compileChain(stmt.ToExpressionStatement().Expr)
	case *ast.CommandStatement:
		return c.compileChain(stmt.ToExpressionStatement().Expr)
	case *ast.FunctionDeclaration:
		// Declared functions are invoked through the environment's local
		// namespace; the declaration itself emits no code.
		return nil
	}
	return &diag.NotImplementedError{Construct: fmt.Sprintf("%T", s)}
}

// compileChain lowers a chain statement. A chain whose first stage is a
// stream loops over an asynchronous iterator; a query chain loops over the
// rows of the first query; a bare action chain executes once.
func (c *Compiler) compileChain(chain *ast.ChainExpression) error {
	if len(chain.Expressions) == 0 {
		return nil
	}
	first := chain.Expressions[0]
	rest := chain.Expressions[1:]

	if isStream(first) {
		iter, pending, err := c.compileStream(first)
		if err != nil {
			return err
		}
		result := c.allocReg()
		loop := &AsyncWhile{Result: result, Iterator: iter, Body: &Block{}}
		c.emit(loop)
		c.pushBlock(loop.Body)
		defer c.popBlock()
		return c.compileRowConsumer(result, first, pending, rest)
	}

	if isAction(first) {
		// A bare action chain executes each action once.
		for _, e := range chain.Expressions {
			if err := c.compileActionStage(e); err != nil {
				return err
			}
		}
		return nil
	}

	rows, pending, err := c.compileTableStage(first)
	if err != nil {
		return err
	}
	row := c.allocReg()
	loop := &ForOf{Row: row, Iterable: rows, Body: &Block{}}
	c.emit(loop)
	c.pushBlock(loop.Body)
	defer c.popBlock()
	return c.compileRowConsumer(row, first, pending, rest)
}

// compileRowConsumer runs inside a row loop: it applies the pending
// filters, binds the stage's outputs, and lowers the remaining stages.
func (c *Compiler) compileRowConsumer(row Register, stage ast.Expression, pending []ast.BooleanExpression, rest []ast.Expression) error {
	prevRow, prevHasRow := c.row, c.hasRow
	c.row, c.hasRow = row, true
	defer func() { c.row, c.hasRow = prevRow, prevHasRow }()

	for _, f := range pending {
		cond, err := c.compileBoolean(f)
		if err != nil {
			return err
		}
		branch := &If{Cond: cond, Then: &Block{}, Else: &Block{}}
		c.emit(branch)
		c.pushBlock(branch.Then)
		defer c.popBlock()
	}

	c.bindOutputs(stage, row)

	if len(rest) == 0 {
		out := c.allocReg()
		c.emit(&FormatEvent{Dst: out})
		c.emit(&InvokeOutput{Kind: "notify", Params: row})
		return nil
	}

	for i, e := range rest {
		isLast := i == len(rest)-1
		if isAction(e) {
			if err := c.compileActionStage(e); err != nil {
				return err
			}
			continue
		}
		rows, pending, err := c.compileTableStage(e)
		if err != nil {
			return err
		}
		innerRow := c.allocReg()
		loop := &ForOf{Row: innerRow, Iterable: rows, Body: &Block{}}
		c.emit(loop)
		c.pushBlock(loop.Body)
		defer c.popBlock()
		if err := c.compileRowConsumer(innerRow, e, pending, rest[i+1:]); err != nil {
			return err
		}
		if isLast {
			return nil
		}
		return nil
	}
	return nil
}

// bindOutputs maps the stage schema's outputs onto row field reads so
// later stages can reference them as variables.
func (c *Compiler) bindOutputs(stage ast.Expression, row Register) {
	def := stage.Schema()
	if def == nil {
		return
	}
	for _, a := range def.OutputArgs() {
		dst := c.allocReg()
		c.emit(&GetIndex{Dst: dst, Tuple: row, Field: a.Name})
		c.vars[a.Name] = dst
	}
}

// ============================================================================
// Streams
// ============================================================================

// isStream reports whether the expression lowers to an asynchronous
// iterator.
func isStream(e ast.Expression) bool {
	switch ee := e.(type) {
	case *ast.MonitorExpression, *ast.TimerExpression, *ast.AtTimerExpression,
		*ast.EdgeFilterExpression, *ast.EdgeNewExpression:
		return true
	case *ast.FilterExpression:
		return isStream(ee.Expr)
	case *ast.ProjectionExpression:
		return isStream(ee.Expr)
	case *ast.AliasExpression:
		return isStream(ee.Expr)
	}
	if def := e.Schema(); def != nil {
		return def.Kind == ast.StreamKind
	}
	return false
}

// isAction reports whether the expression is an action invocation.
func isAction(e ast.Expression) bool {
	switch ee := e.(type) {
	case *ast.FunctionCallExpression:
		if ee.Name == "notify" || ee.Name == "return" {
			return true
		}
	}
	if def := e.Schema(); def != nil {
		return def.Kind == ast.ActionKind
	}
	return false
}

// compileStream lowers a stream expression to an iterator register, plus
// the filters to apply per batch inside the consuming loop.
func (c *Compiler) compileStream(e ast.Expression) (Register, []ast.BooleanExpression, error) {
	switch expr := e.(type) {
	case *ast.MonitorExpression:
		return c.compileMonitorSubject(expr.Expr)

	case *ast.TimerExpression:
		params := c.allocReg()
		c.emit(&CreateTuple{Dst: params, Size: 2})
		base, err := c.compileValue(expr.Base)
		if err != nil {
			return 0, nil, err
		}
		c.emit(&SetIndex{Tuple: params, Field: "base", Value: base})
		interval, err := c.compileValue(expr.Interval)
		if err != nil {
			return 0, nil, err
		}
		c.emit(&SetIndex{Tuple: params, Field: "interval", Value: interval})
		dst := c.allocReg()
		c.emit(&InvokeTrigger{Dst: dst, Selector: "builtin", Channel: "timer", Params: params})
		return dst, nil, nil

	case *ast.AtTimerExpression:
		params := c.allocReg()
		c.emit(&CreateTuple{Dst: params, Size: 1})
		times, err := c.compileValue(&ast.ArrayValue{Elements: expr.Times})
		if err != nil {
			return 0, nil, err
		}
		c.emit(&SetIndex{Tuple: params, Field: "time", Value: times})
		dst := c.allocReg()
		c.emit(&InvokeTrigger{Dst: dst, Selector: "builtin", Channel: "attimer", Params: params})
		return dst, nil, nil

	case *ast.FilterExpression:
		iter, pending, err := c.compileStream(expr.Expr)
		if err != nil {
			return 0, nil, err
		}
		return iter, append(pending, expr.Filter), nil

	case *ast.EdgeFilterExpression:
		iter, pending, err := c.compileStream(expr.Expr)
		if err != nil {
			return 0, nil, err
		}
		return iter, append(pending, expr.Filter), nil

	case *ast.EdgeNewExpression:
		return c.compileStream(expr.Expr)

	case *ast.ProjectionExpression:
		return c.compileStream(expr.Expr)

	case *ast.AliasExpression:
		return c.compileStream(expr.Expr)
	}
	return 0, nil, &diag.NotImplementedError{Construct: fmt.Sprintf("stream %T", e)}
}

// compileMonitorSubject lowers the monitored table to a trigger iterator.
// Filters wrapped around the subject apply per batch.
func (c *Compiler) compileMonitorSubject(e ast.Expression) (Register, []ast.BooleanExpression, error) {
	switch expr := e.(type) {
	case *ast.InvocationExpression:
		params, err := c.compileInputParams(expr.InParams)
		if err != nil {
			return 0, nil, err
		}
		dst := c.allocReg()
		c.emit(&InvokeTrigger{Dst: dst, Selector: expr.Selector.Kind, Channel: expr.Channel, Params: params})
		return dst, nil, nil
	case *ast.FilterExpression:
		iter, pending, err := c.compileMonitorSubject(expr.Expr)
		if err != nil {
			return 0, nil, err
		}
		return iter, append(pending, expr.Filter), nil
	case *ast.ProjectionExpression:
		return c.compileMonitorSubject(expr.Expr)
	case *ast.AliasExpression:
		return c.compileMonitorSubject(expr.Expr)
	}
	return 0, nil, &diag.NotImplementedError{Construct: fmt.Sprintf("monitor of %T", e)}
}

// ============================================================================
// Tables
// ============================================================================

// compileTableStage lowers a table expression to a rows register plus the
// filters to apply per row in the consuming loop.
func (c *Compiler) compileTableStage(e ast.Expression) (Register, []ast.BooleanExpression, error) {
	switch expr := e.(type) {
	case *ast.FilterExpression:
		rows, pending, err := c.compileTableStage(expr.Expr)
		if err != nil {
			return 0, nil, err
		}
		return rows, append(pending, expr.Filter), nil
	}
	rows, err := c.compileTable(e)
	return rows, nil, err
}

// compileTable lowers a table expression to a register holding its rows.
func (c *Compiler) compileTable(e ast.Expression) (Register, error) {
	switch expr := e.(type) {
	case *ast.InvocationExpression:
		params, err := c.compileInputParams(expr.InParams)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&InvokeQuery{Dst: dst, Selector: expr.Selector.Kind, Channel: expr.Channel, Params: params})
		return dst, nil

	case *ast.FunctionCallExpression:
		params, err := c.compileInputParams(expr.InParams)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&InvokeQuery{Dst: dst, Selector: "local", Channel: expr.Name, Params: params})
		return dst, nil

	case *ast.FilterExpression:
		// A filter in value position materializes through a saved table.
		return c.compileTableOp(expr, expr.Expr, "filter", "")

	case *ast.ProjectionExpression:
		field := ""
		if len(expr.Args) > 0 {
			field = expr.Args[0]
		}
		return c.compileTableOp(expr, expr.Expr, "project", field)

	case *ast.SortExpression:
		return c.compileTableOp(expr, expr.Expr, "sort_"+expr.Direction, expr.Field)

	case *ast.IndexExpression:
		return c.compileTableOp(expr, expr.Expr, "index", "")

	case *ast.SliceExpression:
		return c.compileTableOp(expr, expr.Expr, "slice", "")

	case *ast.AggregationExpression:
		return c.compileTableOp(expr, expr.Expr, expr.Operator, expr.Field)

	case *ast.AliasExpression:
		return c.compileTable(expr.Expr)

	case *ast.ChainExpression:
		if len(expr.Expressions) == 1 {
			return c.compileTable(expr.Expressions[0])
		}
	}
	return 0, &diag.NotImplementedError{Construct: fmt.Sprintf("table %T", e)}
}

// compileTableOp lowers a table transformation by saving the source rows
// into an opaque table and querying it back through an aggregation
// descriptor.
func (c *Compiler) compileTableOp(outer, inner ast.Expression, operator, field string) (Register, error) {
	rows, err := c.compileTable(inner)
	if err != nil {
		return 0, err
	}
	table := c.allocTable()
	c.emit(&InvokeSave{Table: table, Value: rows})

	version := c.allocReg()
	c.emit(&GetTableVersion{Dst: version, Table: table})

	agg := c.allocReg()
	c.emit(&CreateAggregation{Dst: agg, Operator: operator, Field: field, Table: table})

	dst := c.allocReg()
	c.emit(&InvokeMemoryQuery{Dst: dst, Table: table, Version: version})
	return dst, nil
}

// compileActionStage lowers one action stage of a chain.
func (c *Compiler) compileActionStage(e ast.Expression) error {
	switch expr := e.(type) {
	case *ast.FunctionCallExpression:
		if expr.Name == "notify" || expr.Name == "return" {
			row := c.row
			if !c.hasRow {
				row = c.allocReg()
				c.emit(&CreateTuple{Dst: row, Size: 0})
			}
			out := c.allocReg()
			c.emit(&FormatEvent{Dst: out})
			c.emit(&InvokeOutput{Kind: expr.Name, Params: row})
			return nil
		}
		params, err := c.compileInputParams(expr.InParams)
		if err != nil {
			return err
		}
		dst := c.allocReg()
		c.emit(&InvokeAction{Dst: dst, Selector: "local", Channel: expr.Name, Params: params})
		return nil

	case *ast.InvocationExpression:
		params, err := c.compileInputParams(expr.InParams)
		if err != nil {
			return err
		}
		dst := c.allocReg()
		c.emit(&InvokeAction{Dst: dst, Selector: expr.Selector.Kind, Channel: expr.Channel, Params: params})
		return nil
	}
	return &diag.NotImplementedError{Construct: fmt.Sprintf("action %T", e)}
}

// compileInputParams lowers an input parameter list to a parameter tuple.
func (c *Compiler) compileInputParams(params []ast.InputParam) (Register, error) {
	tuple := c.allocReg()
	c.emit(&CreateTuple{Dst: tuple, Size: len(params)})
	for _, p := range params {
		value, err := c.compileValue(p.Value)
		if err != nil {
			return 0, err
		}
		c.emit(&SetIndex{Tuple: tuple, Field: p.Name, Value: value})
	}
	return tuple, nil
}

// ============================================================================
// Booleans and values
// ============================================================================

// infixOps are the comparison and arithmetic operators emitted as BinaryOp;
// everything else becomes a BinaryFunctionOp.
var infixOps = map[string]bool{
	"==": true, "!=": true,
	">=": true, "<=": true, ">": true, "<": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
}

func (c *Compiler) compileBoolean(b ast.BooleanExpression) (Register, error) {
	switch pred := b.(type) {
	case *ast.TruePredicate, *ast.DontCarePredicate:
		dst := c.allocReg()
		c.emit(&LoadConstant{Dst: dst, Value: &ast.BooleanValue{Value: true}})
		return dst, nil

	case *ast.FalsePredicate:
		dst := c.allocReg()
		c.emit(&LoadConstant{Dst: dst, Value: &ast.BooleanValue{Value: false}})
		return dst, nil

	case *ast.AtomPredicate:
		lhs := c.allocReg()
		c.emit(&GetIndex{Dst: lhs, Tuple: c.row, Field: pred.Param})
		rhs, err := c.compileValue(pred.Value)
		if err != nil {
			return 0, err
		}
		return c.compileOp(pred.Op, lhs, rhs), nil

	case *ast.NotPredicate:
		inner, err := c.compileBoolean(pred.Expr)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&UnaryOp{Dst: dst, Op: "!", Src: inner})
		return dst, nil

	case *ast.AndPredicate:
		return c.compileCombinator(pred.Operands, "&&")

	case *ast.OrPredicate:
		return c.compileCombinator(pred.Operands, "||")

	case *ast.ComputePredicate:
		lhs, err := c.compileValue(pred.Lhs)
		if err != nil {
			return 0, err
		}
		rhs, err := c.compileValue(pred.Rhs)
		if err != nil {
			return 0, err
		}
		return c.compileOp(pred.Op, lhs, rhs), nil

	case *ast.ExistsPredicate:
		rows, err := c.compileTable(pred.Query)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&UnaryOp{Dst: dst, Op: "any", Src: rows})
		return dst, nil

	case *ast.ComparisonPredicate:
		lhs, err := c.compileValue(pred.Lhs)
		if err != nil {
			return 0, err
		}
		rows, err := c.compileTable(pred.Query)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&BinaryFunctionOp{Dst: dst, Fn: "compare_" + opName(pred.Op), Lhs: lhs, Rhs: rows})
		return dst, nil

	case *ast.PropertyPathPredicate:
		cur := c.allocReg()
		c.emit(&GetIndex{Dst: cur, Tuple: c.row, Field: pred.Path[0]})
		for _, field := range pred.Path[1:] {
			next := c.allocReg()
			c.emit(&GetIndex{Dst: next, Tuple: cur, Field: field})
			cur = next
		}
		rhs, err := c.compileValue(pred.Value)
		if err != nil {
			return 0, err
		}
		return c.compileOp(pred.Op, cur, rhs), nil

	case *ast.ExternalPredicate:
		params, err := c.compileInputParams(pred.InParams)
		if err != nil {
			return 0, err
		}
		rows := c.allocReg()
		c.emit(&InvokeQuery{Dst: rows, Selector: pred.Selector.Kind, Channel: pred.Channel, Params: params})
		dst := c.allocReg()
		c.emit(&UnaryOp{Dst: dst, Op: "any", Src: rows})
		return dst, nil
	}
	return 0, &diag.NotImplementedError{Construct: fmt.Sprintf("predicate %T", b)}
}

func (c *Compiler) compileCombinator(operands []ast.BooleanExpression, op string) (Register, error) {
	if len(operands) == 0 {
		dst := c.allocReg()
		c.emit(&LoadConstant{Dst: dst, Value: &ast.BooleanValue{Value: op == "&&"}})
		return dst, nil
	}
	acc, err := c.compileBoolean(operands[0])
	if err != nil {
		return 0, err
	}
	for _, operand := range operands[1:] {
		next, err := c.compileBoolean(operand)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&BinaryOp{Dst: dst, Lhs: acc, Op: op, Rhs: next})
		acc = dst
	}
	return acc, nil
}

func (c *Compiler) compileOp(op string, lhs, rhs Register) Register {
	dst := c.allocReg()
	if infixOps[op] {
		c.emit(&BinaryOp{Dst: dst, Lhs: lhs, Op: op, Rhs: rhs})
	} else {
		c.emit(&BinaryFunctionOp{Dst: dst, Fn: opName(op), Lhs: lhs, Rhs: rhs})
	}
	return dst
}

// opName maps surface operators to emit-safe function names.
func opName(op string) string {
	switch op {
	case "=~":
		return "like"
	case "~=":
		return "rev_like"
	case "==":
		return "eq"
	case "!=":
		return "ne"
	case ">=":
		return "ge"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case "<":
		return "lt"
	}
	return op
}

func (c *Compiler) compileValue(v ast.Value) (Register, error) {
	switch val := v.(type) {
	case *ast.VarRefValue:
		if reg, ok := c.vars[val.Name]; ok {
			return reg, nil
		}
		dst := c.allocReg()
		c.emit(&GetVariable{Dst: dst, Name: val.Name})
		return dst, nil

	case *ast.EventValue:
		dst := c.allocReg()
		name := "$event"
		if val.Kind != "" {
			name += "." + val.Kind
		}
		c.emit(&GetEnvironment{Dst: dst, Name: name})
		return dst, nil

	case *ast.ContextRefValue:
		dst := c.allocReg()
		c.emit(&GetEnvironment{Dst: dst, Name: "$context." + val.Name})
		return dst, nil

	case *ast.DateValue:
		if val.Kind == ast.DateNow {
			dst := c.allocReg()
			c.emit(&GetEnvironment{Dst: dst, Name: "$now"})
			return dst, nil
		}
		dst := c.allocReg()
		c.emit(&LoadConstant{Dst: dst, Value: val})
		return dst, nil

	case *ast.ComputationValue:
		if len(val.Operands) == 2 {
			lhs, err := c.compileValue(val.Operands[0])
			if err != nil {
				return 0, err
			}
			rhs, err := c.compileValue(val.Operands[1])
			if err != nil {
				return 0, err
			}
			return c.compileOp(val.Op, lhs, rhs), nil
		}
		if len(val.Operands) == 1 {
			src, err := c.compileValue(val.Operands[0])
			if err != nil {
				return 0, err
			}
			dst := c.allocReg()
			c.emit(&UnaryOp{Dst: dst, Op: val.Op, Src: src})
			return dst, nil
		}
		return 0, &diag.NotImplementedError{Construct: "n-ary computation"}

	case *ast.ArrayFieldValue:
		inner, err := c.compileValue(val.Inner)
		if err != nil {
			return 0, err
		}
		dst := c.allocReg()
		c.emit(&GetIndex{Dst: dst, Tuple: inner, Field: val.Field})
		return dst, nil

	case *ast.FilterValue:
		return 0, &diag.NotImplementedError{Construct: "filtered value"}

	case *ast.ArrayValue:
		if val.IsConstant() {
			dst := c.allocReg()
			c.emit(&LoadConstant{Dst: dst, Value: val})
			return dst, nil
		}
		tuple := c.allocReg()
		c.emit(&CreateTuple{Dst: tuple, Size: len(val.Elements)})
		for i, e := range val.Elements {
			elem, err := c.compileValue(e)
			if err != nil {
				return 0, err
			}
			c.emit(&SetIndex{Tuple: tuple, Field: fmt.Sprintf("%d", i), Value: elem})
		}
		return tuple, nil
	}

	// Everything else is a constant.
	dst := c.allocReg()
	c.emit(&LoadConstant{Dst: dst, Value: v})
	return dst, nil
}

// ============================================================================
// Permission rules
// ============================================================================

// compilePermissionRule lowers a permission rule into a guard program:
// the principal predicate is evaluated against the requesting contact and
// a failing check ends the flow.
func (c *Compiler) compilePermissionRule(r *ast.PermissionRule) error {
	tc := &TryCatch{Message: "failed to evaluate policy", Body: &Block{}}
	c.emit(tc)
	c.pushBlock(tc.Body)
	defer c.popBlock()

	source := c.allocReg()
	c.emit(&GetEnvironment{Dst: source, Name: "$source"})
	c.vars["source"] = source
	prevRow, prevHasRow := c.row, c.hasRow
	c.row, c.hasRow = source, true
	defer func() { c.row, c.hasRow = prevRow, prevHasRow }()

	cond, err := c.compileBoolean(r.Principal)
	if err != nil {
		return err
	}
	branch := &If{Cond: cond, Then: &Block{}, Else: &Block{}}
	c.emit(branch)

	c.pushBlock(branch.Else)
	c.emit(&SendEndOfFlow{Principal: source, Flow: "policy_denied"})
	c.popBlock()

	c.pushBlock(branch.Then)
	defer c.popBlock()

	for _, f := range []*ast.PermissionFunction{r.Query, r.Action} {
		if f == nil || f.Kind != ast.PermSpecified || f.Filter == nil {
			continue
		}
		cond, err := c.compileBoolean(f.Filter)
		if err != nil {
			return err
		}
		inner := &If{Cond: cond, Then: &Block{}, Else: &Block{}}
		c.emit(inner)
		c.pushBlock(inner.Else)
		c.emit(&SendEndOfFlow{Principal: source, Flow: "policy_denied"})
		c.popBlock()
	}
	return nil
}

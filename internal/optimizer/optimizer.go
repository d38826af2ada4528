// Package optimizer canonicalizes boolean filters and programs.
//
// Optimization is pure: every entry point clones its input and returns a
// new tree. Filter optimization iterates its rules to a fixed point.
package optimizer

import (
	"github.com/ttlang/go-tt/internal/ast"
)

// Pass names one optimization pass.
type Pass string

const (
	// PassFlatten flattens nested same-kind boolean combinators and
	// unwraps singleton conjunctions and disjunctions.
	PassFlatten Pass = "flatten"
	// PassConstFold folds boolean constants out of combinators.
	PassConstFold Pass = "const-fold"
	// PassDedup removes structurally equal operands within And/Or.
	PassDedup Pass = "dedup"
	// PassDoubleNegation cancels stacked negations and folds negated
	// constants.
	PassDoubleNegation Pass = "double-negation"
	// PassDeadAssignments removes assignments whose name is never
	// referenced and whose expression has no observable side effect.
	PassDeadAssignments Pass = "dead-assignments"
	// PassMergeChains merges nested chain expressions into their parent.
	PassMergeChains Pass = "merge-chains"
	// PassCanonicalizeLegacy rewrites legacy Rule/Command statements into
	// chain statements. Off by default.
	PassCanonicalizeLegacy Pass = "canonicalize-legacy"
)

// Option toggles optimizer behavior.
type Option func(*config)

type config struct {
	enabled map[Pass]bool
}

func defaultConfig() config {
	return config{enabled: map[Pass]bool{
		PassFlatten:            true,
		PassConstFold:          true,
		PassDedup:              true,
		PassDoubleNegation:     true,
		PassDeadAssignments:    true,
		PassMergeChains:        true,
		PassCanonicalizeLegacy: false,
	}}
}

func (c config) isEnabled(p Pass) bool {
	enabled, ok := c.enabled[p]
	return ok && enabled
}

// WithPass enables or disables an optimization pass.
func WithPass(p Pass, enabled bool) Option {
	return func(c *config) {
		c.enabled[p] = enabled
	}
}

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// OptimizeFilter canonicalizes a boolean predicate, iterating the enabled
// rules until a fixed point. The input is not mutated.
func OptimizeFilter(b ast.BooleanExpression, opts ...Option) ast.BooleanExpression {
	cfg := buildConfig(opts)
	cur := b.Clone()
	for {
		next := optimizeBoolean(cur, cfg)
		if next.Equals(cur) {
			return next
		}
		cur = next
	}
}

func optimizeBoolean(b ast.BooleanExpression, cfg config) ast.BooleanExpression {
	switch pred := b.(type) {
	case *ast.AndPredicate:
		return optimizeCombinator(pred.Operands, true, cfg)
	case *ast.OrPredicate:
		return optimizeCombinator(pred.Operands, false, cfg)
	case *ast.NotPredicate:
		return optimizeNot(pred, cfg)
	case *ast.ExistsPredicate:
		c := *pred
		c.Query = optimizeExpression(pred.Query, cfg)
		return &c
	case *ast.ComparisonPredicate:
		c := *pred
		c.Lhs = pred.Lhs.Clone()
		c.Query = optimizeExpression(pred.Query, cfg)
		return &c
	case *ast.ExternalPredicate:
		c := *pred
		c.Selector = pred.Selector.Clone()
		c.InParams = cloneParams(pred.InParams)
		c.Filter = optimizeBoolean(pred.Filter, cfg)
		return &c
	}
	return b.Clone()
}

// optimizeCombinator normalizes an And (isAnd) or Or combinator: operands
// are optimized, flattened, constant-folded and deduplicated, and the
// empty and singleton forms collapse.
func optimizeCombinator(operands []ast.BooleanExpression, isAnd bool, cfg config) ast.BooleanExpression {
	var flat []ast.BooleanExpression
	for _, op := range operands {
		opt := optimizeBoolean(op, cfg)

		if cfg.isEnabled(PassFlatten) {
			if isAnd {
				if inner, ok := opt.(*ast.AndPredicate); ok {
					flat = append(flat, inner.Operands...)
					continue
				}
			} else {
				if inner, ok := opt.(*ast.OrPredicate); ok {
					flat = append(flat, inner.Operands...)
					continue
				}
			}
		}
		flat = append(flat, opt)
	}

	var out []ast.BooleanExpression
	for _, op := range flat {
		if cfg.isEnabled(PassConstFold) {
			_, isTrue := op.(*ast.TruePredicate)
			_, isFalse := op.(*ast.FalsePredicate)
			if isAnd {
				if isFalse {
					return &ast.FalsePredicate{}
				}
				if isTrue {
					continue
				}
			} else {
				if isTrue {
					return &ast.TruePredicate{}
				}
				if isFalse {
					continue
				}
			}
		}
		if cfg.isEnabled(PassDedup) && containsEqual(out, op) {
			continue
		}
		out = append(out, op)
	}

	switch len(out) {
	case 0:
		if isAnd {
			return &ast.TruePredicate{}
		}
		return &ast.FalsePredicate{}
	case 1:
		return out[0]
	}
	if isAnd {
		return &ast.AndPredicate{Operands: out}
	}
	return &ast.OrPredicate{Operands: out}
}

func optimizeNot(p *ast.NotPredicate, cfg config) ast.BooleanExpression {
	inner := optimizeBoolean(p.Expr, cfg)
	if cfg.isEnabled(PassDoubleNegation) {
		switch ii := inner.(type) {
		case *ast.NotPredicate:
			return ii.Expr
		case *ast.TruePredicate:
			return &ast.FalsePredicate{}
		case *ast.FalsePredicate:
			return &ast.TruePredicate{}
		}
	}
	return &ast.NotPredicate{Expr: inner}
}

func containsEqual(ops []ast.BooleanExpression, candidate ast.BooleanExpression) bool {
	for _, op := range ops {
		if op.Equals(candidate) {
			return true
		}
	}
	return false
}

func cloneParams(ps []ast.InputParam) []ast.InputParam {
	if ps == nil {
		return nil
	}
	out := make([]ast.InputParam, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// optimizeExpression rebuilds an expression with all embedded filters
// canonicalized and nested chains merged.
func optimizeExpression(e ast.Expression, cfg config) ast.Expression {
	switch expr := e.(type) {
	case *ast.FilterExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.Filter = optimizeFilterToFixpoint(expr.Filter, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.EdgeFilterExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.Filter = optimizeFilterToFixpoint(expr.Filter, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.ProjectionExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.Args = append([]string(nil), expr.Args...)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.SortExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.IndexExpression:
		c := expr.Clone().(*ast.IndexExpression)
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return c
	case *ast.SliceExpression:
		c := expr.Clone().(*ast.SliceExpression)
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return c
	case *ast.AggregationExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.AliasExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.MonitorExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.Args = append([]string(nil), expr.Args...)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.EdgeNewExpression:
		c := *expr
		c.Expr = optimizeExpression(expr.Expr, cfg)
		c.SetSchema(expr.Schema())
		return &c
	case *ast.ChainExpression:
		return optimizeChain(expr, cfg)
	}
	return e.Clone()
}

func optimizeFilterToFixpoint(b ast.BooleanExpression, cfg config) ast.BooleanExpression {
	cur := b.Clone()
	for {
		next := optimizeBoolean(cur, cfg)
		if next.Equals(cur) {
			return next
		}
		cur = next
	}
}

// optimizeChain optimizes each stage and, when enabled, merges stages that
// are themselves chains into the parent chain.
func optimizeChain(chain *ast.ChainExpression, cfg config) *ast.ChainExpression {
	out := &ast.ChainExpression{}
	out.SetSchema(chain.Schema())
	for _, sub := range chain.Expressions {
		opt := optimizeExpression(sub, cfg)
		if cfg.isEnabled(PassMergeChains) {
			if inner, ok := opt.(*ast.ChainExpression); ok {
				out.Expressions = append(out.Expressions, inner.Expressions...)
				continue
			}
		}
		out.Expressions = append(out.Expressions, opt)
	}
	return out
}

// OptimizeProgram canonicalizes a program: filters are optimized, nested
// chains merged, trivially dead assignments removed, and (when the pass is
// enabled) legacy rule and command statements rewritten to chains. The
// input is not mutated.
func OptimizeProgram(p *ast.Program, opts ...Option) *ast.Program {
	cfg := buildConfig(opts)
	out := p.Clone().(*ast.Program)

	for i, d := range out.Declarations {
		out.Declarations[i] = optimizeDeclaration(d, cfg)
	}

	stmts := make([]ast.Statement, 0, len(out.Statements))
	for _, s := range out.Statements {
		stmts = append(stmts, optimizeStatement(s, cfg))
	}

	if cfg.isEnabled(PassDeadAssignments) {
		stmts = removeDeadAssignments(stmts)
	}
	out.Statements = stmts
	return out
}

// OptimizeInput canonicalizes any top-level input. Programs get the full
// program pipeline; permission rules get their three predicates
// canonicalized; other inputs are returned cloned.
func OptimizeInput(in ast.Input, opts ...Option) ast.Input {
	cfg := buildConfig(opts)
	switch input := in.(type) {
	case *ast.Program:
		return OptimizeProgram(input, opts...)
	case *ast.PermissionRule:
		out := input.Clone().(*ast.PermissionRule)
		out.Principal = optimizeFilterToFixpoint(out.Principal, cfg)
		if out.Query.Filter != nil {
			out.Query.Filter = optimizeFilterToFixpoint(out.Query.Filter, cfg)
		}
		if out.Action.Filter != nil {
			out.Action.Filter = optimizeFilterToFixpoint(out.Action.Filter, cfg)
		}
		return out
	}
	return in.Clone()
}

func optimizeDeclaration(d *ast.FunctionDeclaration, cfg config) *ast.FunctionDeclaration {
	out := d.Clone().(*ast.FunctionDeclaration)
	out.SetSchema(d.Schema())
	for i, s := range out.Statements {
		out.Statements[i] = optimizeStatement(s, cfg)
	}
	return out
}

func optimizeStatement(s ast.Statement, cfg config) ast.Statement {
	switch stmt := s.(type) {
	case *ast.Assignment:
		c := *stmt
		c.Expr = optimizeExpression(stmt.Expr, cfg)
		return &c
	case *ast.ExpressionStatement:
		c := *stmt
		c.Expr = optimizeChain(stmt.Expr, cfg)
		return &c
	case *ast.RuleStatement:
		if cfg.isEnabled(PassCanonicalizeLegacy) {
			return optimizeStatement(stmt.ToExpressionStatement(), cfg)
		}
		c := *stmt
		c.Stream = optimizeExpression(stmt.Stream, cfg)
		for i, a := range stmt.Actions {
			c.Actions[i] = optimizeExpression(a, cfg)
		}
		return &c
	case *ast.CommandStatement:
		if cfg.isEnabled(PassCanonicalizeLegacy) {
			return optimizeStatement(stmt.ToExpressionStatement(), cfg)
		}
		c := *stmt
		if stmt.Table != nil {
			c.Table = optimizeExpression(stmt.Table, cfg)
		}
		for i, a := range stmt.Actions {
			c.Actions[i] = optimizeExpression(a, cfg)
		}
		return &c
	case *ast.FunctionDeclaration:
		return optimizeDeclaration(stmt, cfg)
	}
	return s
}

// removeDeadAssignments drops assignments never referenced by a later
// statement, provided their expression has no observable side effect.
func removeDeadAssignments(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for i, s := range stmts {
		assign, ok := s.(*ast.Assignment)
		if !ok {
			out = append(out, s)
			continue
		}
		if hasSideEffect(assign.Expr) || referencedLater(assign.Name, stmts[i+1:]) {
			out = append(out, s)
		}
	}
	return out
}

// hasSideEffect reports whether evaluating the expression is observable.
// An invocation whose schema is unknown is conservatively side-effecting.
func hasSideEffect(e ast.Expression) bool {
	found := false
	ast.Walk(&sideEffectVisitor{found: &found}, e)
	return found
}

type sideEffectVisitor struct {
	ast.BaseVisitor
	found *bool
}

func (v *sideEffectVisitor) Visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.InvocationExpression:
		if node.Schema() == nil || node.Schema().Kind == ast.ActionKind {
			*v.found = true
			return false
		}
	case *ast.FunctionCallExpression:
		if node.Schema() == nil || node.Schema().Kind == ast.ActionKind {
			*v.found = true
			return false
		}
	}
	return true
}

// referencedLater reports whether name is read by any of the statements.
func referencedLater(name string, stmts []ast.Statement) bool {
	found := false
	v := &refVisitor{name: name, found: &found}
	for _, s := range stmts {
		ast.Walk(v, s)
		if found {
			return true
		}
	}
	return false
}

type refVisitor struct {
	ast.BaseVisitor
	name  string
	found *bool
}

func (v *refVisitor) Visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.VarRefValue:
		if node.Name == v.name {
			*v.found = true
			return false
		}
	case *ast.FunctionCallExpression:
		if node.Name == v.name {
			*v.found = true
			return false
		}
	}
	return true
}

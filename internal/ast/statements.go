package ast

// Statement is an executable statement inside a program.
type Statement interface {
	Node
	statementNode()

	// Clone returns a deep copy of the statement.
	Clone() Statement

	// Equals reports structural equality.
	Equals(other Statement) bool

	// ToSource emits the statement as a token stream.
	ToSource() []SourceToken
}

// FunctionDeclaration declares a local function with its own argument
// scope. The signature is attached by the type checker.
type FunctionDeclaration struct {
	span
	Name       string
	Args       []*ArgumentDef
	Statements []Statement

	schema *FunctionDef
}

func (*FunctionDeclaration) statementNode() {}

// Schema returns the signature attached by the type checker.
func (d *FunctionDeclaration) Schema() *FunctionDef { return d.schema }

// SetSchema attaches the signature.
func (d *FunctionDeclaration) SetSchema(def *FunctionDef) { d.schema = def }

func (d *FunctionDeclaration) Clone() Statement {
	c := *d
	c.Args = make([]*ArgumentDef, len(d.Args))
	for i, a := range d.Args {
		c.Args[i] = a.Clone()
	}
	c.Statements = cloneStatements(d.Statements)
	return &c
}

func (d *FunctionDeclaration) Equals(other Statement) bool {
	o, ok := other.(*FunctionDeclaration)
	if !ok || o.Name != d.Name || len(o.Args) != len(d.Args) {
		return false
	}
	for i, a := range d.Args {
		if !a.Equals(o.Args[i]) {
			return false
		}
	}
	return statementsEqual(o.Statements, d.Statements)
}

func (d *FunctionDeclaration) String() string {
	return "let " + d.Name + "(...) { ... }"
}

func (d *FunctionDeclaration) ToSource() []SourceToken {
	out := toks("let", TokSpace, d.Name, "(")
	for i, a := range d.Args {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, a.ToSource()...)
	}
	out = append(out, lit(")"), lit(TokSpace), lit("{"), lit(TokIndent))
	for _, s := range d.Statements {
		out = append(out, lit(TokNewline))
		out = append(out, s.ToSource()...)
	}
	out = append(out, lit(TokDedent), lit(TokNewline), lit("}"))
	return out
}

// Assignment binds the result of an expression to a name.
type Assignment struct {
	span
	Name string
	Expr Expression
}

func (*Assignment) statementNode() {}

func (a *Assignment) Clone() Statement {
	c := *a
	c.Expr = a.Expr.Clone()
	return &c
}

func (a *Assignment) Equals(other Statement) bool {
	o, ok := other.(*Assignment)
	return ok && o.Name == a.Name && o.Expr.Equals(a.Expr)
}

func (a *Assignment) String() string {
	return "let " + a.Name + " = " + a.Expr.String() + ";"
}

func (a *Assignment) ToSource() []SourceToken {
	return seq(
		toks("let", TokSpace, a.Name, TokSpace, "=", TokSpace),
		a.Expr.ToSource(),
		toks(";"),
	)
}

// ExpressionStatement executes a chain expression.
type ExpressionStatement struct {
	span
	Expr *ChainExpression
}

func (*ExpressionStatement) statementNode() {}

func (s *ExpressionStatement) Clone() Statement {
	c := *s
	c.Expr = s.Expr.Clone().(*ChainExpression)
	return &c
}

func (s *ExpressionStatement) Equals(other Statement) bool {
	o, ok := other.(*ExpressionStatement)
	return ok && o.Expr.Equals(s.Expr)
}

func (s *ExpressionStatement) String() string {
	return s.Expr.String() + ";"
}

func (s *ExpressionStatement) ToSource() []SourceToken {
	return seq(s.Expr.ToSource(), toks(";"))
}

// ToLegacy converts the statement to its legacy form: a RuleStatement when
// the chain starts with a stream, a CommandStatement otherwise. The result
// is a fresh tree.
func (s *ExpressionStatement) ToLegacy() Statement {
	chain := s.Expr.Clone().(*ChainExpression)
	if len(chain.Expressions) == 0 {
		return &CommandStatement{span: s.span}
	}
	first := chain.Expressions[0]
	rest := chain.Expressions[1:]
	if isStreamExpression(first) {
		return &RuleStatement{span: s.span, Stream: first, Actions: rest}
	}
	return &CommandStatement{span: s.span, Table: first, Actions: rest}
}

// isStreamExpression reports whether the expression produces a stream.
func isStreamExpression(e Expression) bool {
	switch ee := e.(type) {
	case *MonitorExpression, *TimerExpression, *AtTimerExpression,
		*EdgeFilterExpression, *EdgeNewExpression:
		return true
	case *FilterExpression:
		return isStreamExpression(ee.Expr)
	case *ProjectionExpression:
		return isStreamExpression(ee.Expr)
	case *AliasExpression:
		return isStreamExpression(ee.Expr)
	}
	return false
}

// RuleStatement is the legacy form of a stream-driven statement.
type RuleStatement struct {
	span
	Stream  Expression
	Actions []Expression
}

func (*RuleStatement) statementNode() {}

func (r *RuleStatement) Clone() Statement {
	c := *r
	c.Stream = r.Stream.Clone()
	c.Actions = cloneExpressions(r.Actions)
	return &c
}

func (r *RuleStatement) Equals(other Statement) bool {
	o, ok := other.(*RuleStatement)
	return ok && o.Stream.Equals(r.Stream) && expressionsEqual(o.Actions, r.Actions)
}

func (r *RuleStatement) String() string {
	return r.Stream.String() + " => ...;"
}

func (r *RuleStatement) ToSource() []SourceToken {
	out := r.Stream.ToSource()
	for _, a := range r.Actions {
		out = append(out, lit(TokSpace), lit("=>"), lit(TokSpace))
		out = append(out, a.ToSource()...)
	}
	return append(out, lit(";"))
}

// ToExpressionStatement converts the legacy rule to a chain statement,
// producing a fresh tree.
func (r *RuleStatement) ToExpressionStatement() *ExpressionStatement {
	exprs := make([]Expression, 0, len(r.Actions)+1)
	exprs = append(exprs, r.Stream.Clone())
	for _, a := range r.Actions {
		exprs = append(exprs, a.Clone())
	}
	return &ExpressionStatement{
		span: r.span,
		Expr: &ChainExpression{span: r.span, Expressions: exprs},
	}
}

// CommandStatement is the legacy form of an immediate statement.
type CommandStatement struct {
	span
	Table   Expression // nil for a bare action command
	Actions []Expression
}

func (*CommandStatement) statementNode() {}

func (c *CommandStatement) Clone() Statement {
	out := *c
	if c.Table != nil {
		out.Table = c.Table.Clone()
	}
	out.Actions = cloneExpressions(c.Actions)
	return &out
}

func (c *CommandStatement) Equals(other Statement) bool {
	o, ok := other.(*CommandStatement)
	if !ok {
		return false
	}
	if (o.Table == nil) != (c.Table == nil) {
		return false
	}
	if c.Table != nil && !o.Table.Equals(c.Table) {
		return false
	}
	return expressionsEqual(o.Actions, c.Actions)
}

func (c *CommandStatement) String() string {
	return "now => ...;"
}

func (c *CommandStatement) ToSource() []SourceToken {
	out := toks("now", TokSpace, "=>", TokSpace)
	if c.Table != nil {
		out = append(out, c.Table.ToSource()...)
		out = append(out, lit(TokSpace), lit("=>"), lit(TokSpace))
	}
	for i, a := range c.Actions {
		if i > 0 {
			out = append(out, lit(TokSpace), lit("=>"), lit(TokSpace))
		}
		out = append(out, a.ToSource()...)
	}
	return append(out, lit(";"))
}

// ToExpressionStatement converts the legacy command to a chain statement,
// producing a fresh tree.
func (c *CommandStatement) ToExpressionStatement() *ExpressionStatement {
	var exprs []Expression
	if c.Table != nil {
		exprs = append(exprs, c.Table.Clone())
	}
	for _, a := range c.Actions {
		exprs = append(exprs, a.Clone())
	}
	return &ExpressionStatement{
		span: c.span,
		Expr: &ChainExpression{span: c.span, Expressions: exprs},
	}
}

func cloneStatements(ss []Statement) []Statement {
	if ss == nil {
		return nil
	}
	out := make([]Statement, len(ss))
	for i, s := range ss {
		out[i] = s.Clone()
	}
	return out
}

func statementsEqual(a, b []Statement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

func cloneExpressions(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

func expressionsEqual(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

package ast

import (
	"strings"
)

// Expression is a table, stream or action expression. After type checking
// every expression carries the FunctionDef describing its schema.
type Expression interface {
	Node
	expressionNode()

	// Clone returns a deep copy of the expression. The attached schema is
	// shared, not copied: signatures are immutable after checking.
	Clone() Expression

	// Equals reports structural equality, ignoring attached schemas.
	Equals(other Expression) bool

	// Schema returns the function signature attached by the type checker,
	// or nil before checking.
	Schema() *FunctionDef

	// SetSchema attaches the signature.
	SetSchema(def *FunctionDef)

	// ToSource emits the expression as a token stream.
	ToSource() []SourceToken
}

// schemaHolder is the embeddable schema attachment shared by expressions.
type schemaHolder struct {
	schema *FunctionDef
}

func (s *schemaHolder) Schema() *FunctionDef       { return s.schema }
func (s *schemaHolder) SetSchema(def *FunctionDef) { s.schema = def }

// DeviceSelector picks the device (and optionally the principal) a
// function is invoked on.
type DeviceSelector struct {
	span
	Kind      string
	ID        string
	Principal Value
}

// Clone deep-copies the selector.
func (s *DeviceSelector) Clone() *DeviceSelector {
	if s == nil {
		return nil
	}
	c := *s
	if s.Principal != nil {
		c.Principal = s.Principal.Clone()
	}
	return &c
}

// Equals reports structural equality.
func (s *DeviceSelector) Equals(other *DeviceSelector) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Kind != other.Kind || s.ID != other.ID {
		return false
	}
	if (s.Principal == nil) != (other.Principal == nil) {
		return false
	}
	return s.Principal == nil || s.Principal.Equals(other.Principal)
}

func (s *DeviceSelector) String() string {
	if s.ID != "" {
		return "@" + s.Kind + "(id=" + s.ID + ")"
	}
	return "@" + s.Kind
}

// InputParam binds one input parameter of an invocation to a value.
type InputParam struct {
	span
	Name  string
	Value Value
}

// Clone deep-copies the input parameter.
func (p InputParam) Clone() InputParam {
	c := p
	c.Value = p.Value.Clone()
	return c
}

// Equals reports structural equality.
func (p InputParam) Equals(other InputParam) bool {
	return p.Name == other.Name && p.Value.Equals(other.Value)
}

func (p InputParam) String() string {
	return p.Name + "=" + p.Value.String()
}

// ToSource emits the parameter binding.
func (p InputParam) ToSource() []SourceToken {
	return seq(toks(p.Name, "="), p.Value.ToSource())
}

func cloneInputParams(ps []InputParam) []InputParam {
	if ps == nil {
		return nil
	}
	out := make([]InputParam, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

func inputParamsEqual(a, b []InputParam) bool {
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

func inputParamsToSource(ps []InputParam) []SourceToken {
	out := toks("(")
	for i, p := range ps {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, p.ToSource()...)
	}
	return append(out, lit(")"))
}

// InvocationExpression invokes a catalogued function on a device.
type InvocationExpression struct {
	span
	schemaHolder
	Selector *DeviceSelector
	Channel  string
	InParams []InputParam
}

func (*InvocationExpression) expressionNode() {}
func (e *InvocationExpression) Clone() Expression {
	c := *e
	c.Selector = e.Selector.Clone()
	c.InParams = cloneInputParams(e.InParams)
	return &c
}
func (e *InvocationExpression) Equals(other Expression) bool {
	o, ok := other.(*InvocationExpression)
	return ok && o.Selector.Equals(e.Selector) && o.Channel == e.Channel &&
		inputParamsEqual(o.InParams, e.InParams)
}
func (e *InvocationExpression) String() string {
	return "@" + e.Selector.Kind + "." + e.Channel + "(...)"
}
func (e *InvocationExpression) ToSource() []SourceToken {
	return seq(
		toks("@"+e.Selector.Kind+"."+e.Channel),
		inputParamsToSource(e.InParams),
	)
}

// FunctionCallExpression calls a locally declared function by name.
type FunctionCallExpression struct {
	span
	schemaHolder
	Name     string
	InParams []InputParam
}

func (*FunctionCallExpression) expressionNode() {}
func (e *FunctionCallExpression) Clone() Expression {
	c := *e
	c.InParams = cloneInputParams(e.InParams)
	return &c
}
func (e *FunctionCallExpression) Equals(other Expression) bool {
	o, ok := other.(*FunctionCallExpression)
	return ok && o.Name == e.Name && inputParamsEqual(o.InParams, e.InParams)
}
func (e *FunctionCallExpression) String() string {
	return e.Name + "(...)"
}
func (e *FunctionCallExpression) ToSource() []SourceToken {
	return seq(toks(e.Name), inputParamsToSource(e.InParams))
}

// FilterExpression restricts the rows of a table or stream by a predicate.
type FilterExpression struct {
	span
	schemaHolder
	Expr   Expression
	Filter BooleanExpression
}

func (*FilterExpression) expressionNode() {}
func (e *FilterExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Filter = e.Filter.Clone()
	return &c
}
func (e *FilterExpression) Equals(other Expression) bool {
	o, ok := other.(*FilterExpression)
	return ok && o.Expr.Equals(e.Expr) && o.Filter.Equals(e.Filter)
}
func (e *FilterExpression) String() string {
	return e.Expr.String() + " filter " + e.Filter.String()
}
func (e *FilterExpression) ToSource() []SourceToken {
	return seq(
		e.Expr.ToSource(),
		toks(TokSpace, "filter", TokSpace),
		e.Filter.ToSource(),
	)
}

// ProjectionExpression selects output columns from its source.
type ProjectionExpression struct {
	span
	schemaHolder
	Expr Expression
	Args []string
}

func (*ProjectionExpression) expressionNode() {}
func (e *ProjectionExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Args = append([]string(nil), e.Args...)
	return &c
}
func (e *ProjectionExpression) Equals(other Expression) bool {
	o, ok := other.(*ProjectionExpression)
	return ok && stringsEqual(o.Args, e.Args) && o.Expr.Equals(e.Expr)
}
func (e *ProjectionExpression) String() string {
	return "[" + strings.Join(e.Args, ", ") + "] of " + e.Expr.String()
}
func (e *ProjectionExpression) ToSource() []SourceToken {
	out := toks("[")
	for i, a := range e.Args {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, lit(a))
	}
	out = append(out, lit("]"), lit(TokSpace), lit("of"), lit(TokSpace), lit("("))
	out = append(out, e.Expr.ToSource()...)
	return append(out, lit(")"))
}

// SortExpression orders the rows of its source by one field.
type SortExpression struct {
	span
	schemaHolder
	Expr      Expression
	Field     string
	Direction string // "asc" or "desc"
}

func (*SortExpression) expressionNode() {}
func (e *SortExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	return &c
}
func (e *SortExpression) Equals(other Expression) bool {
	o, ok := other.(*SortExpression)
	return ok && o.Field == e.Field && o.Direction == e.Direction && o.Expr.Equals(e.Expr)
}
func (e *SortExpression) String() string {
	return "sort(" + e.Field + " " + e.Direction + " of " + e.Expr.String() + ")"
}
func (e *SortExpression) ToSource() []SourceToken {
	return seq(
		toks("sort", "(", e.Field, TokSpace, e.Direction, TokSpace, "of", TokSpace),
		e.Expr.ToSource(),
		toks(")"),
	)
}

// IndexExpression picks rows of its source by position.
type IndexExpression struct {
	span
	schemaHolder
	Expr    Expression
	Indices []Value
}

func (*IndexExpression) expressionNode() {}
func (e *IndexExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Indices = cloneValues(e.Indices)
	return &c
}
func (e *IndexExpression) Equals(other Expression) bool {
	o, ok := other.(*IndexExpression)
	return ok && o.Expr.Equals(e.Expr) && valuesEqual(o.Indices, e.Indices)
}
func (e *IndexExpression) String() string {
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = idx.String()
	}
	return e.Expr.String() + "[" + strings.Join(parts, ", ") + "]"
}
func (e *IndexExpression) ToSource() []SourceToken {
	out := e.Expr.ToSource()
	out = append(out, lit("["))
	for i, idx := range e.Indices {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, idx.ToSource()...)
	}
	return append(out, lit("]"))
}

// SliceExpression takes a contiguous run of rows from its source.
type SliceExpression struct {
	span
	schemaHolder
	Expr  Expression
	Base  Value
	Limit Value
}

func (*SliceExpression) expressionNode() {}
func (e *SliceExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Base = e.Base.Clone()
	c.Limit = e.Limit.Clone()
	return &c
}
func (e *SliceExpression) Equals(other Expression) bool {
	o, ok := other.(*SliceExpression)
	return ok && o.Expr.Equals(e.Expr) && o.Base.Equals(e.Base) && o.Limit.Equals(e.Limit)
}
func (e *SliceExpression) String() string {
	return e.Expr.String() + "[" + e.Base.String() + " : " + e.Limit.String() + "]"
}
func (e *SliceExpression) ToSource() []SourceToken {
	return seq(
		e.Expr.ToSource(),
		toks("["),
		e.Base.ToSource(),
		toks(TokSpace, ":", TokSpace),
		e.Limit.ToSource(),
		toks("]"),
	)
}

// Aggregation operators.
const (
	AggCount = "count"
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
)

// AggregationExpression reduces its source to a single aggregated row.
type AggregationExpression struct {
	span
	schemaHolder
	Operator string
	Field    string // "*" for count
	Alias    string
	Expr     Expression
}

func (*AggregationExpression) expressionNode() {}
func (e *AggregationExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	return &c
}
func (e *AggregationExpression) Equals(other Expression) bool {
	o, ok := other.(*AggregationExpression)
	return ok && o.Operator == e.Operator && o.Field == e.Field &&
		o.Alias == e.Alias && o.Expr.Equals(e.Expr)
}
func (e *AggregationExpression) String() string {
	if e.Operator == AggCount {
		return "aggregate count of " + e.Expr.String()
	}
	return "aggregate " + e.Operator + " " + e.Field + " of " + e.Expr.String()
}
func (e *AggregationExpression) ToSource() []SourceToken {
	out := toks("aggregate", TokSpace, e.Operator, TokSpace)
	if e.Operator != AggCount {
		out = append(out, lit(e.Field), lit(TokSpace))
	}
	if e.Alias != "" {
		out = append(out, lit("as"), lit(TokSpace), lit(e.Alias), lit(TokSpace))
	}
	out = append(out, lit("of"), lit(TokSpace), lit("("))
	out = append(out, e.Expr.ToSource()...)
	return append(out, lit(")"))
}

// AliasExpression gives its source a name joins can refer to.
type AliasExpression struct {
	span
	schemaHolder
	Expr Expression
	Name string
}

func (*AliasExpression) expressionNode() {}
func (e *AliasExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	return &c
}
func (e *AliasExpression) Equals(other Expression) bool {
	o, ok := other.(*AliasExpression)
	return ok && o.Name == e.Name && o.Expr.Equals(e.Expr)
}
func (e *AliasExpression) String() string {
	return "(" + e.Expr.String() + ") as " + e.Name
}
func (e *AliasExpression) ToSource() []SourceToken {
	return seq(
		toks("("),
		e.Expr.ToSource(),
		toks(")", TokSpace, "as", TokSpace, e.Name),
	)
}

// MonitorExpression turns a monitorable query into a stream that fires on
// changes, optionally restricted to a set of watched output arguments.
type MonitorExpression struct {
	span
	schemaHolder
	Expr Expression
	Args []string
}

func (*MonitorExpression) expressionNode() {}
func (e *MonitorExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Args = append([]string(nil), e.Args...)
	return &c
}
func (e *MonitorExpression) Equals(other Expression) bool {
	o, ok := other.(*MonitorExpression)
	return ok && stringsEqual(o.Args, e.Args) && o.Expr.Equals(e.Expr)
}
func (e *MonitorExpression) String() string {
	return "monitor " + e.Expr.String()
}
func (e *MonitorExpression) ToSource() []SourceToken {
	out := toks("monitor", TokSpace, "(")
	out = append(out, e.Expr.ToSource()...)
	out = append(out, lit(")"))
	if len(e.Args) > 0 {
		out = append(out, lit(TokSpace), lit("on"), lit(TokSpace), lit("new"), lit(TokSpace), lit("["))
		for i, a := range e.Args {
			if i > 0 {
				out = append(out, lit(","), lit(TokSpace))
			}
			out = append(out, lit(a))
		}
		out = append(out, lit("]"))
	}
	return out
}

// TimerExpression is a stream that fires on a fixed interval.
type TimerExpression struct {
	span
	schemaHolder
	Base      Value
	Interval  Value
	Frequency Value
}

func (*TimerExpression) expressionNode() {}
func (e *TimerExpression) Clone() Expression {
	c := *e
	c.Base = e.Base.Clone()
	c.Interval = e.Interval.Clone()
	if e.Frequency != nil {
		c.Frequency = e.Frequency.Clone()
	}
	return &c
}
func (e *TimerExpression) Equals(other Expression) bool {
	o, ok := other.(*TimerExpression)
	if !ok || !o.Base.Equals(e.Base) || !o.Interval.Equals(e.Interval) {
		return false
	}
	if (o.Frequency == nil) != (e.Frequency == nil) {
		return false
	}
	return e.Frequency == nil || o.Frequency.Equals(e.Frequency)
}
func (e *TimerExpression) String() string {
	return "timer(base=" + e.Base.String() + ", interval=" + e.Interval.String() + ")"
}
func (e *TimerExpression) ToSource() []SourceToken {
	out := toks("timer", "(", "base", "=")
	out = append(out, e.Base.ToSource()...)
	out = append(out, lit(","), lit(TokSpace), lit("interval"), lit("="))
	out = append(out, e.Interval.ToSource()...)
	if e.Frequency != nil {
		out = append(out, lit(","), lit(TokSpace), lit("frequency"), lit("="))
		out = append(out, e.Frequency.ToSource()...)
	}
	return append(out, lit(")"))
}

// AtTimerExpression is a stream that fires at fixed times of day.
type AtTimerExpression struct {
	span
	schemaHolder
	Times      []Value
	Expiration Value
}

func (*AtTimerExpression) expressionNode() {}
func (e *AtTimerExpression) Clone() Expression {
	c := *e
	c.Times = cloneValues(e.Times)
	if e.Expiration != nil {
		c.Expiration = e.Expiration.Clone()
	}
	return &c
}
func (e *AtTimerExpression) Equals(other Expression) bool {
	o, ok := other.(*AtTimerExpression)
	if !ok || !valuesEqual(o.Times, e.Times) {
		return false
	}
	if (o.Expiration == nil) != (e.Expiration == nil) {
		return false
	}
	return e.Expiration == nil || o.Expiration.Equals(e.Expiration)
}
func (e *AtTimerExpression) String() string {
	return "attimer(...)"
}
func (e *AtTimerExpression) ToSource() []SourceToken {
	out := toks("attimer", "(", "time", "=", "[")
	for i, t := range e.Times {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, t.ToSource()...)
	}
	out = append(out, lit("]"))
	if e.Expiration != nil {
		out = append(out, lit(","), lit(TokSpace), lit("expiration_date"), lit("="))
		out = append(out, e.Expiration.ToSource()...)
	}
	return append(out, lit(")"))
}

// EdgeFilterExpression fires when its stream transitions from a row that
// fails the predicate to one that satisfies it.
type EdgeFilterExpression struct {
	span
	schemaHolder
	Expr   Expression
	Filter BooleanExpression
}

func (*EdgeFilterExpression) expressionNode() {}
func (e *EdgeFilterExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	c.Filter = e.Filter.Clone()
	return &c
}
func (e *EdgeFilterExpression) Equals(other Expression) bool {
	o, ok := other.(*EdgeFilterExpression)
	return ok && o.Expr.Equals(e.Expr) && o.Filter.Equals(e.Filter)
}
func (e *EdgeFilterExpression) String() string {
	return "edge (" + e.Expr.String() + ") on " + e.Filter.String()
}
func (e *EdgeFilterExpression) ToSource() []SourceToken {
	return seq(
		toks("edge", TokSpace, "("),
		e.Expr.ToSource(),
		toks(")", TokSpace, "on", TokSpace),
		e.Filter.ToSource(),
	)
}

// EdgeNewExpression fires when its stream produces a row not seen before.
type EdgeNewExpression struct {
	span
	schemaHolder
	Expr Expression
}

func (*EdgeNewExpression) expressionNode() {}
func (e *EdgeNewExpression) Clone() Expression {
	c := *e
	c.Expr = e.Expr.Clone()
	return &c
}
func (e *EdgeNewExpression) Equals(other Expression) bool {
	o, ok := other.(*EdgeNewExpression)
	return ok && o.Expr.Equals(e.Expr)
}
func (e *EdgeNewExpression) String() string {
	return "edge (" + e.Expr.String() + ") on new"
}
func (e *EdgeNewExpression) ToSource() []SourceToken {
	return seq(
		toks("edge", TokSpace, "("),
		e.Expr.ToSource(),
		toks(")", TokSpace, "on", TokSpace, "new"),
	)
}

// ChainExpression composes expressions left to right: each stage consumes
// the outputs of the previous one.
type ChainExpression struct {
	span
	schemaHolder
	Expressions []Expression
}

func (*ChainExpression) expressionNode() {}
func (e *ChainExpression) Clone() Expression {
	c := *e
	c.Expressions = make([]Expression, len(e.Expressions))
	for i, sub := range e.Expressions {
		c.Expressions[i] = sub.Clone()
	}
	return &c
}
func (e *ChainExpression) Equals(other Expression) bool {
	o, ok := other.(*ChainExpression)
	if !ok || len(o.Expressions) != len(e.Expressions) {
		return false
	}
	for i, sub := range e.Expressions {
		if !sub.Equals(o.Expressions[i]) {
			return false
		}
	}
	return true
}
func (e *ChainExpression) String() string {
	parts := make([]string, len(e.Expressions))
	for i, sub := range e.Expressions {
		parts[i] = sub.String()
	}
	return strings.Join(parts, " => ")
}
func (e *ChainExpression) ToSource() []SourceToken {
	var out []SourceToken
	for i, sub := range e.Expressions {
		if i > 0 {
			out = append(out, lit(TokSpace), lit("=>"), lit(TokSpace))
		}
		out = append(out, sub.ToSource()...)
	}
	return out
}

// LastExpression returns the final stage of the chain.
func (e *ChainExpression) LastExpression() Expression {
	if len(e.Expressions) == 0 {
		return nil
	}
	return e.Expressions[len(e.Expressions)-1]
}

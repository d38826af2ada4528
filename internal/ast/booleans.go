package ast

import (
	"strings"

	"github.com/ttlang/go-tt/internal/types"
)

// BooleanExpression is a boolean predicate over function parameters and
// outputs.
type BooleanExpression interface {
	Node
	booleanNode()

	// Clone returns a deep copy of the predicate.
	Clone() BooleanExpression

	// Equals reports structural equality; operand order is significant.
	Equals(other BooleanExpression) bool

	// ToSource emits the predicate as a token stream.
	ToSource() []SourceToken
}

// TruePredicate is the always-true predicate.
type TruePredicate struct {
	span
}

func (*TruePredicate) booleanNode() {}
func (p *TruePredicate) Clone() BooleanExpression {
	c := *p
	return &c
}
func (p *TruePredicate) Equals(other BooleanExpression) bool {
	_, ok := other.(*TruePredicate)
	return ok
}
func (p *TruePredicate) String() string          { return "true" }
func (p *TruePredicate) ToSource() []SourceToken { return toks("true") }

// FalsePredicate is the always-false predicate.
type FalsePredicate struct {
	span
}

func (*FalsePredicate) booleanNode() {}
func (p *FalsePredicate) Clone() BooleanExpression {
	c := *p
	return &c
}
func (p *FalsePredicate) Equals(other BooleanExpression) bool {
	_, ok := other.(*FalsePredicate)
	return ok
}
func (p *FalsePredicate) String() string          { return "false" }
func (p *FalsePredicate) ToSource() []SourceToken { return toks("false") }

// AtomPredicate compares a function parameter against a value.
// ParamType is filled by the type checker from the selected overload.
type AtomPredicate struct {
	span
	Param     string
	Op        string
	Value     Value
	ParamType types.Type
}

func (*AtomPredicate) booleanNode() {}
func (p *AtomPredicate) Clone() BooleanExpression {
	c := *p
	c.Value = p.Value.Clone()
	return &c
}
func (p *AtomPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*AtomPredicate)
	return ok && o.Param == p.Param && o.Op == p.Op && o.Value.Equals(p.Value)
}
func (p *AtomPredicate) String() string {
	return p.Param + " " + p.Op + " " + p.Value.String()
}
func (p *AtomPredicate) ToSource() []SourceToken {
	return seq(
		toks(p.Param, TokSpace, p.Op, TokSpace),
		p.Value.ToSource(),
	)
}

// NotPredicate negates a predicate.
type NotPredicate struct {
	span
	Expr BooleanExpression
}

func (*NotPredicate) booleanNode() {}
func (p *NotPredicate) Clone() BooleanExpression {
	c := *p
	c.Expr = p.Expr.Clone()
	return &c
}
func (p *NotPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*NotPredicate)
	return ok && o.Expr.Equals(p.Expr)
}
func (p *NotPredicate) String() string { return "!(" + p.Expr.String() + ")" }
func (p *NotPredicate) ToSource() []SourceToken {
	return seq(toks("!", "("), p.Expr.ToSource(), toks(")"))
}

// AndPredicate is the conjunction of its operands.
type AndPredicate struct {
	span
	Operands []BooleanExpression
}

func (*AndPredicate) booleanNode() {}
func (p *AndPredicate) Clone() BooleanExpression {
	c := *p
	c.Operands = cloneBooleans(p.Operands)
	return &c
}
func (p *AndPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*AndPredicate)
	return ok && booleansEqual(o.Operands, p.Operands)
}
func (p *AndPredicate) String() string {
	return joinBooleans(p.Operands, " && ")
}
func (p *AndPredicate) ToSource() []SourceToken {
	return booleansToSource(p.Operands, "&&")
}

// OrPredicate is the disjunction of its operands.
type OrPredicate struct {
	span
	Operands []BooleanExpression
}

func (*OrPredicate) booleanNode() {}
func (p *OrPredicate) Clone() BooleanExpression {
	c := *p
	c.Operands = cloneBooleans(p.Operands)
	return &c
}
func (p *OrPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*OrPredicate)
	return ok && booleansEqual(o.Operands, p.Operands)
}
func (p *OrPredicate) String() string {
	return joinBooleans(p.Operands, " || ")
}
func (p *OrPredicate) ToSource() []SourceToken {
	return booleansToSource(p.Operands, "||")
}

// DontCarePredicate marks a parameter the user explicitly does not care
// about, so slot filling skips it.
type DontCarePredicate struct {
	span
	Param string
}

func (*DontCarePredicate) booleanNode() {}
func (p *DontCarePredicate) Clone() BooleanExpression {
	c := *p
	return &c
}
func (p *DontCarePredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*DontCarePredicate)
	return ok && o.Param == p.Param
}
func (p *DontCarePredicate) String() string { return "true(" + p.Param + ")" }
func (p *DontCarePredicate) ToSource() []SourceToken {
	return toks("true", "(", p.Param, ")")
}

// ComputePredicate compares two computed values.
type ComputePredicate struct {
	span
	Lhs Value
	Op  string
	Rhs Value
}

func (*ComputePredicate) booleanNode() {}
func (p *ComputePredicate) Clone() BooleanExpression {
	c := *p
	c.Lhs = p.Lhs.Clone()
	c.Rhs = p.Rhs.Clone()
	return &c
}
func (p *ComputePredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*ComputePredicate)
	return ok && o.Op == p.Op && o.Lhs.Equals(p.Lhs) && o.Rhs.Equals(p.Rhs)
}
func (p *ComputePredicate) String() string {
	return p.Lhs.String() + " " + p.Op + " " + p.Rhs.String()
}
func (p *ComputePredicate) ToSource() []SourceToken {
	return seq(
		p.Lhs.ToSource(),
		toks(TokSpace, p.Op, TokSpace),
		p.Rhs.ToSource(),
	)
}

// ExistsPredicate holds when its subquery returns at least one row.
type ExistsPredicate struct {
	span
	Query Expression
}

func (*ExistsPredicate) booleanNode() {}
func (p *ExistsPredicate) Clone() BooleanExpression {
	c := *p
	c.Query = p.Query.Clone()
	return &c
}
func (p *ExistsPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*ExistsPredicate)
	return ok && o.Query.Equals(p.Query)
}
func (p *ExistsPredicate) String() string { return "any(" + p.Query.String() + ")" }
func (p *ExistsPredicate) ToSource() []SourceToken {
	return seq(toks("any", "("), p.Query.ToSource(), toks(")"))
}

// ComparisonPredicate compares a value against the single column exposed
// by a subquery.
type ComparisonPredicate struct {
	span
	Lhs   Value
	Op    string
	Query Expression
}

func (*ComparisonPredicate) booleanNode() {}
func (p *ComparisonPredicate) Clone() BooleanExpression {
	c := *p
	c.Lhs = p.Lhs.Clone()
	c.Query = p.Query.Clone()
	return &c
}
func (p *ComparisonPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*ComparisonPredicate)
	return ok && o.Op == p.Op && o.Lhs.Equals(p.Lhs) && o.Query.Equals(p.Query)
}
func (p *ComparisonPredicate) String() string {
	return p.Lhs.String() + " " + p.Op + " any(" + p.Query.String() + ")"
}
func (p *ComparisonPredicate) ToSource() []SourceToken {
	return seq(
		p.Lhs.ToSource(),
		toks(TokSpace, p.Op, TokSpace, "any", "("),
		p.Query.ToSource(),
		toks(")"),
	)
}

// PropertyPathPredicate compares a value reached through a property path.
type PropertyPathPredicate struct {
	span
	Path  []string
	Op    string
	Value Value
}

func (*PropertyPathPredicate) booleanNode() {}
func (p *PropertyPathPredicate) Clone() BooleanExpression {
	c := *p
	c.Path = append([]string(nil), p.Path...)
	c.Value = p.Value.Clone()
	return &c
}
func (p *PropertyPathPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*PropertyPathPredicate)
	return ok && stringsEqual(o.Path, p.Path) && o.Op == p.Op && o.Value.Equals(p.Value)
}
func (p *PropertyPathPredicate) String() string {
	return strings.Join(p.Path, ".") + " " + p.Op + " " + p.Value.String()
}
func (p *PropertyPathPredicate) ToSource() []SourceToken {
	return seq(
		toks(strings.Join(p.Path, "."), TokSpace, p.Op, TokSpace),
		p.Value.ToSource(),
	)
}

// ExternalPredicate is the legacy form of a subquery predicate: a direct
// invocation with input parameters and a filter over its outputs.
type ExternalPredicate struct {
	span
	Selector *DeviceSelector
	Channel  string
	InParams []InputParam
	Filter   BooleanExpression
}

func (*ExternalPredicate) booleanNode() {}
func (p *ExternalPredicate) Clone() BooleanExpression {
	c := *p
	c.Selector = p.Selector.Clone()
	c.InParams = cloneInputParams(p.InParams)
	c.Filter = p.Filter.Clone()
	return &c
}
func (p *ExternalPredicate) Equals(other BooleanExpression) bool {
	o, ok := other.(*ExternalPredicate)
	return ok && o.Selector.Equals(p.Selector) && o.Channel == p.Channel &&
		inputParamsEqual(o.InParams, p.InParams) && o.Filter.Equals(p.Filter)
}
func (p *ExternalPredicate) String() string {
	return "@" + p.Selector.Kind + "." + p.Channel + "(...) { " + p.Filter.String() + " }"
}
func (p *ExternalPredicate) ToSource() []SourceToken {
	out := toks("@"+p.Selector.Kind+"."+p.Channel, "(")
	for i, ip := range p.InParams {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, ip.ToSource()...)
	}
	out = append(out, lit(")"), lit(TokSpace), lit("{"), lit(TokSpace))
	out = append(out, p.Filter.ToSource()...)
	return append(out, lit(TokSpace), lit("}"))
}

func cloneBooleans(bs []BooleanExpression) []BooleanExpression {
	if bs == nil {
		return nil
	}
	out := make([]BooleanExpression, len(bs))
	for i, b := range bs {
		out[i] = b.Clone()
	}
	return out
}

func booleansEqual(a, b []BooleanExpression) bool {
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

func joinBooleans(ops []BooleanExpression, sep string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func booleansToSource(ops []BooleanExpression, op string) []SourceToken {
	out := toks("(")
	for i, o := range ops {
		if i > 0 {
			out = append(out, lit(TokSpace), lit(op), lit(TokSpace))
		}
		out = append(out, o.ToSource()...)
	}
	return append(out, lit(")"))
}

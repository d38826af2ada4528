package ast

import (
	"strconv"
)

// Input is a top-level TT input: a program, a library, a permission rule,
// a dialogue state, or a control command.
type Input interface {
	Node
	inputNode()

	// Clone returns a deep copy of the input.
	Clone() Input

	// Equals reports structural equality.
	Equals(other Input) bool

	// ToSource emits the input as a token stream.
	ToSource() []SourceToken
}

// Program is a complete TT program: class declarations, local function
// declarations, and executable statements.
type Program struct {
	span
	Classes      []*ClassDef
	Declarations []*FunctionDeclaration
	Statements   []Statement
	Principal    Value
	Annotations  AnnotationMap
}

func (*Program) inputNode() {}

func (p *Program) Clone() Input {
	c := *p
	c.Classes = make([]*ClassDef, len(p.Classes))
	for i, cl := range p.Classes {
		c.Classes[i] = cl.Clone()
	}
	c.Declarations = make([]*FunctionDeclaration, len(p.Declarations))
	for i, d := range p.Declarations {
		c.Declarations[i] = d.Clone().(*FunctionDeclaration)
	}
	c.Statements = cloneStatements(p.Statements)
	if p.Principal != nil {
		c.Principal = p.Principal.Clone()
	}
	c.Annotations = p.Annotations.Clone()
	return &c
}

func (p *Program) Equals(other Input) bool {
	o, ok := other.(*Program)
	if !ok || len(o.Classes) != len(p.Classes) ||
		len(o.Declarations) != len(p.Declarations) {
		return false
	}
	for i, cl := range p.Classes {
		if !cl.Equals(o.Classes[i]) {
			return false
		}
	}
	for i, d := range p.Declarations {
		if !d.Equals(o.Declarations[i]) {
			return false
		}
	}
	if (o.Principal == nil) != (p.Principal == nil) {
		return false
	}
	if p.Principal != nil && !o.Principal.Equals(p.Principal) {
		return false
	}
	return statementsEqual(o.Statements, p.Statements) &&
		p.Annotations.Equals(o.Annotations)
}

func (p *Program) String() string {
	return "program (" + strconv.Itoa(len(p.Statements)) + " statements)"
}

func (p *Program) ToSource() []SourceToken {
	var out []SourceToken
	first := true
	emit := func(ts []SourceToken) {
		if !first {
			out = append(out, lit(TokNewline))
		}
		first = false
		out = append(out, ts...)
	}
	for _, cl := range p.Classes {
		emit(cl.ToSource())
	}
	for _, d := range p.Declarations {
		emit(d.ToSource())
	}
	for _, s := range p.Statements {
		emit(s.ToSource())
	}
	return out
}

// Library is a collection of class declarations and example datasets.
type Library struct {
	span
	Classes  []*ClassDef
	Datasets []*Dataset
}

func (*Library) inputNode() {}

func (l *Library) Clone() Input {
	c := *l
	c.Classes = make([]*ClassDef, len(l.Classes))
	for i, cl := range l.Classes {
		c.Classes[i] = cl.Clone()
	}
	c.Datasets = make([]*Dataset, len(l.Datasets))
	for i, d := range l.Datasets {
		c.Datasets[i] = d.Clone()
	}
	return &c
}

func (l *Library) Equals(other Input) bool {
	o, ok := other.(*Library)
	if !ok || len(o.Classes) != len(l.Classes) || len(o.Datasets) != len(l.Datasets) {
		return false
	}
	for i, cl := range l.Classes {
		if !cl.Equals(o.Classes[i]) {
			return false
		}
	}
	for i, d := range l.Datasets {
		if !d.Equals(o.Datasets[i]) {
			return false
		}
	}
	return true
}

func (l *Library) String() string { return "library" }

func (l *Library) ToSource() []SourceToken {
	var out []SourceToken
	for i, cl := range l.Classes {
		if i > 0 {
			out = append(out, lit(TokNewline))
		}
		out = append(out, cl.ToSource()...)
	}
	for _, d := range l.Datasets {
		if len(out) > 0 {
			out = append(out, lit(TokNewline))
		}
		out = append(out, d.ToSource()...)
	}
	return out
}

// Dataset is a named collection of example programs.
type Dataset struct {
	span
	Name        string
	Language    string
	Examples    []*Example
	Annotations AnnotationMap
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.Examples = make([]*Example, len(d.Examples))
	for i, e := range d.Examples {
		c.Examples[i] = e.Clone()
	}
	c.Annotations = d.Annotations.Clone()
	return &c
}

// Equals reports structural equality.
func (d *Dataset) Equals(other *Dataset) bool {
	if d.Name != other.Name || d.Language != other.Language ||
		len(d.Examples) != len(other.Examples) {
		return false
	}
	for i, e := range d.Examples {
		if !e.Equals(other.Examples[i]) {
			return false
		}
	}
	return d.Annotations.Equals(other.Annotations)
}

func (d *Dataset) String() string { return "dataset @" + d.Name }

// ToSource emits the dataset declaration.
func (d *Dataset) ToSource() []SourceToken {
	out := toks("dataset", TokSpace, "@"+d.Name, TokSpace, "{", TokIndent)
	for _, e := range d.Examples {
		out = append(out, lit(TokNewline))
		out = append(out, e.ToSource()...)
	}
	out = append(out, lit(TokDedent), lit(TokNewline), lit("}"))
	return out
}

// Example is one template program in a dataset, with the natural-language
// utterances that map to it.
type Example struct {
	span
	ID         int
	Kind       FunctionKind
	Args       []*ArgumentDef
	Expr       Expression
	Utterances []string
}

// Clone deep-copies the example.
func (e *Example) Clone() *Example {
	c := *e
	c.Args = make([]*ArgumentDef, len(e.Args))
	for i, a := range e.Args {
		c.Args[i] = a.Clone()
	}
	c.Expr = e.Expr.Clone()
	c.Utterances = append([]string(nil), e.Utterances...)
	return &c
}

// Equals reports structural equality; the numeric ID does not participate.
func (e *Example) Equals(other *Example) bool {
	if e.Kind != other.Kind || len(e.Args) != len(other.Args) ||
		!stringsEqual(e.Utterances, other.Utterances) {
		return false
	}
	for i, a := range e.Args {
		if !a.Equals(other.Args[i]) {
			return false
		}
	}
	return e.Expr.Equals(other.Expr)
}

func (e *Example) String() string { return string(e.Kind) + " example" }

// ToSource emits the example declaration.
func (e *Example) ToSource() []SourceToken {
	out := toks(string(e.Kind), TokSpace)
	if len(e.Args) > 0 {
		out = append(out, lit("("))
		for i, a := range e.Args {
			if i > 0 {
				out = append(out, lit(","), lit(TokSpace))
			}
			out = append(out, a.ToSource()...)
		}
		out = append(out, lit(")"), lit(TokSpace))
	}
	out = append(out, lit(":="), lit(TokSpace))
	out = append(out, e.Expr.ToSource()...)
	if len(e.Utterances) > 0 {
		out = append(out, lit(TokSpace), lit("#_["), lit("utterances"), lit("="), lit("["))
		for i, u := range e.Utterances {
			if i > 0 {
				out = append(out, lit(","), lit(TokSpace))
			}
			out = append(out, constTok(&StringValue{Value: u}))
		}
		out = append(out, lit("]"), lit("]"))
	}
	return append(out, lit(";"))
}

// PermissionFunctionKind discriminates the permission function variants.
type PermissionFunctionKind int

const (
	// PermBuiltin allows only the builtin notification action.
	PermBuiltin PermissionFunctionKind = iota
	// PermStar allows any function of any class.
	PermStar
	// PermClassStar allows any function of one class.
	PermClassStar
	// PermSpecified allows one function, optionally filtered.
	PermSpecified
)

// PermissionFunction is one side of a permission rule: the query or the
// action the rule scopes.
type PermissionFunction struct {
	span
	Kind    PermissionFunctionKind
	Class   string
	Channel string
	Filter  BooleanExpression

	schema *FunctionDef
}

// Schema returns the signature attached by the type checker.
func (f *PermissionFunction) Schema() *FunctionDef { return f.schema }

// SetSchema attaches the signature.
func (f *PermissionFunction) SetSchema(def *FunctionDef) { f.schema = def }

// Clone deep-copies the permission function.
func (f *PermissionFunction) Clone() *PermissionFunction {
	if f == nil {
		return nil
	}
	c := *f
	if f.Filter != nil {
		c.Filter = f.Filter.Clone()
	}
	return &c
}

// Equals reports structural equality.
func (f *PermissionFunction) Equals(other *PermissionFunction) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Kind != other.Kind || f.Class != other.Class || f.Channel != other.Channel {
		return false
	}
	if (f.Filter == nil) != (other.Filter == nil) {
		return false
	}
	return f.Filter == nil || f.Filter.Equals(other.Filter)
}

func (f *PermissionFunction) String() string {
	switch f.Kind {
	case PermBuiltin:
		return "notify"
	case PermStar:
		return "*"
	case PermClassStar:
		return "@" + f.Class + ".*"
	default:
		return "@" + f.Class + "." + f.Channel
	}
}

// ToSource emits the permission function.
func (f *PermissionFunction) ToSource() []SourceToken {
	switch f.Kind {
	case PermBuiltin:
		return toks("notify")
	case PermStar:
		return toks("*")
	case PermClassStar:
		return toks("@" + f.Class + ".*")
	}
	out := toks("@" + f.Class + "." + f.Channel)
	if f.Filter != nil {
		if _, isTrue := f.Filter.(*TruePredicate); !isTrue {
			out = append(out, lit(TokSpace), lit("filter"), lit(TokSpace))
			out = append(out, f.Filter.ToSource()...)
		}
	}
	return out
}

// PermissionRule is a policy statement: who (the principal predicate) may
// run which query feeding which action.
type PermissionRule struct {
	span
	Principal BooleanExpression
	Query     *PermissionFunction
	Action    *PermissionFunction
}

func (*PermissionRule) inputNode() {}

func (r *PermissionRule) Clone() Input {
	c := *r
	c.Principal = r.Principal.Clone()
	c.Query = r.Query.Clone()
	c.Action = r.Action.Clone()
	return &c
}

func (r *PermissionRule) Equals(other Input) bool {
	o, ok := other.(*PermissionRule)
	return ok && o.Principal.Equals(r.Principal) &&
		o.Query.Equals(r.Query) && o.Action.Equals(r.Action)
}

func (r *PermissionRule) String() string {
	return "$policy { " + r.Principal.String() + " : " + r.Query.String() + " => " + r.Action.String() + "; }"
}

func (r *PermissionRule) ToSource() []SourceToken {
	out := toks("$policy", TokSpace, "{", TokIndent, TokNewline)
	out = append(out, r.Principal.ToSource()...)
	out = append(out, lit(TokSpace), lit(":"), lit(TokSpace))
	out = append(out, r.Query.ToSource()...)
	out = append(out, lit(TokSpace), lit("=>"), lit(TokSpace))
	out = append(out, r.Action.ToSource()...)
	out = append(out, lit(";"), lit(TokDedent), lit(TokNewline), lit("}"))
	return out
}

// DialogueState captures the state of a conversation: the policy in
// effect, the current dialogue act, and the statements under discussion.
type DialogueState struct {
	span
	Policy     string
	Act        string
	Params     []string
	Statements []Statement
}

func (*DialogueState) inputNode() {}

func (d *DialogueState) Clone() Input {
	c := *d
	c.Params = append([]string(nil), d.Params...)
	c.Statements = cloneStatements(d.Statements)
	return &c
}

func (d *DialogueState) Equals(other Input) bool {
	o, ok := other.(*DialogueState)
	return ok && o.Policy == d.Policy && o.Act == d.Act &&
		stringsEqual(o.Params, d.Params) &&
		statementsEqual(o.Statements, d.Statements)
}

func (d *DialogueState) String() string {
	return "$dialogue @" + d.Policy + "." + d.Act
}

func (d *DialogueState) ToSource() []SourceToken {
	out := toks("$dialogue", TokSpace, "@"+d.Policy+"."+d.Act)
	if len(d.Params) > 0 {
		out = append(out, lit("("))
		for i, p := range d.Params {
			if i > 0 {
				out = append(out, lit(","), lit(TokSpace))
			}
			out = append(out, lit(p))
		}
		out = append(out, lit(")"))
	}
	out = append(out, lit(";"))
	for _, s := range d.Statements {
		out = append(out, lit(TokNewline))
		out = append(out, s.ToSource()...)
	}
	return out
}

// ControlCommand is a meta-command to the dialogue loop (yes, no, cancel,
// or an answer carrying a value).
type ControlCommand struct {
	span
	Intent string
	Value  Value
}

func (*ControlCommand) inputNode() {}

func (c *ControlCommand) Clone() Input {
	out := *c
	if c.Value != nil {
		out.Value = c.Value.Clone()
	}
	return &out
}

func (c *ControlCommand) Equals(other Input) bool {
	o, ok := other.(*ControlCommand)
	if !ok || o.Intent != c.Intent {
		return false
	}
	if (o.Value == nil) != (c.Value == nil) {
		return false
	}
	return c.Value == nil || o.Value.Equals(c.Value)
}

func (c *ControlCommand) String() string {
	if c.Value != nil {
		return "$" + c.Intent + "(" + c.Value.String() + ");"
	}
	return "$" + c.Intent + ";"
}

func (c *ControlCommand) ToSource() []SourceToken {
	out := toks("$" + c.Intent)
	if c.Value != nil {
		out = append(out, lit("("))
		out = append(out, c.Value.ToSource()...)
		out = append(out, lit(")"))
	}
	return append(out, lit(";"))
}

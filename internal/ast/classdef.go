package ast

import (
	"sort"
	"strings"

	"github.com/ttlang/go-tt/internal/types"
)

// ArgDirection is the direction of a function argument.
type ArgDirection int

const (
	InReq ArgDirection = iota // required input
	InOpt                     // optional input
	Out                       // output
)

// String returns the surface spelling of the direction.
func (d ArgDirection) String() string {
	switch d {
	case InReq:
		return "in req"
	case InOpt:
		return "in opt"
	default:
		return "out"
	}
}

// IsInput reports whether the direction is an input direction.
func (d ArgDirection) IsInput() bool { return d != Out }

// ArgumentDef describes one argument of a catalogued function.
type ArgumentDef struct {
	span
	Direction   ArgDirection
	Name        string
	Type        types.Type
	Annotations AnnotationMap
}

// Clone deep-copies the argument definition.
func (a *ArgumentDef) Clone() *ArgumentDef {
	c := *a
	c.Annotations = a.Annotations.Clone()
	return &c
}

// Equals reports structural equality.
func (a *ArgumentDef) Equals(other *ArgumentDef) bool {
	return a.Direction == other.Direction && a.Name == other.Name &&
		a.Type.Equals(other.Type) && a.Annotations.Equals(other.Annotations)
}

func (a *ArgumentDef) String() string {
	return a.Direction.String() + " " + a.Name + ": " + a.Type.String()
}

// ToSource emits the argument declaration.
func (a *ArgumentDef) ToSource() []SourceToken {
	var out []SourceToken
	switch a.Direction {
	case InReq:
		out = toks("in", TokSpace, "req", TokSpace)
	case InOpt:
		out = toks("in", TokSpace, "opt", TokSpace)
	default:
		out = toks("out", TokSpace)
	}
	return append(out, lit(a.Name), lit(TokSpace), lit(":"), lit(TokSpace), lit(a.Type.String()))
}

// FunctionKind is the kind of a catalogued function.
type FunctionKind string

const (
	StreamKind FunctionKind = "stream"
	QueryKind  FunctionKind = "query"
	ActionKind FunctionKind = "action"
)

// FunctionDef is the signature of a catalogued function: its kind, its
// ordered arguments, its qualifiers, and the classes it inherits arguments
// from. Signatures are immutable after construction and shared by
// reference between AST nodes.
type FunctionDef struct {
	span
	Kind              FunctionKind
	Name              string
	ClassName         string
	Args              []*ArgumentDef
	Extends           []string
	IsList            bool
	IsMonitorable     bool
	RequireFilter     bool
	DefaultProjection []string
	Annotations       AnnotationMap

	argIndex map[string]*ArgumentDef
}

// NewFunctionDef builds a FunctionDef and its argument index.
func NewFunctionDef(kind FunctionKind, name string, args []*ArgumentDef) *FunctionDef {
	def := &FunctionDef{Kind: kind, Name: name, Args: args}
	def.buildIndex()
	return def
}

func (f *FunctionDef) buildIndex() {
	f.argIndex = make(map[string]*ArgumentDef, len(f.Args))
	for _, a := range f.Args {
		f.argIndex[a.Name] = a
	}
}

// Argument returns the argument with the given name, or nil. Arguments
// inherited through Extends are resolved by the type checker, not here.
func (f *FunctionDef) Argument(name string) *ArgumentDef {
	if f.argIndex == nil {
		f.buildIndex()
	}
	return f.argIndex[name]
}

// HasArgument reports whether the function declares the named argument.
func (f *FunctionDef) HasArgument(name string) bool {
	return f.Argument(name) != nil
}

// InputArgs returns the input arguments in declaration order.
func (f *FunctionDef) InputArgs() []*ArgumentDef {
	var out []*ArgumentDef
	for _, a := range f.Args {
		if a.Direction.IsInput() {
			out = append(out, a)
		}
	}
	return out
}

// OutputArgs returns the output arguments in declaration order.
func (f *FunctionDef) OutputArgs() []*ArgumentDef {
	var out []*ArgumentDef
	for _, a := range f.Args {
		if a.Direction == Out {
			out = append(out, a)
		}
	}
	return out
}

// Clone deep-copies the signature.
func (f *FunctionDef) Clone() *FunctionDef {
	c := *f
	c.Args = make([]*ArgumentDef, len(f.Args))
	for i, a := range f.Args {
		c.Args[i] = a.Clone()
	}
	c.Extends = append([]string(nil), f.Extends...)
	c.DefaultProjection = append([]string(nil), f.DefaultProjection...)
	c.Annotations = f.Annotations.Clone()
	c.argIndex = nil
	return &c
}

// Equals reports structural equality.
func (f *FunctionDef) Equals(other *FunctionDef) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Kind != other.Kind || f.Name != other.Name ||
		f.IsList != other.IsList || f.IsMonitorable != other.IsMonitorable ||
		f.RequireFilter != other.RequireFilter ||
		!stringsEqual(f.Extends, other.Extends) ||
		!stringsEqual(f.DefaultProjection, other.DefaultProjection) ||
		len(f.Args) != len(other.Args) {
		return false
	}
	for i, a := range f.Args {
		if !a.Equals(other.Args[i]) {
			return false
		}
	}
	return f.Annotations.Equals(other.Annotations)
}

func (f *FunctionDef) String() string {
	return string(f.Kind) + " " + f.Name
}

// ToSource emits the function declaration as it appears in a class body.
func (f *FunctionDef) ToSource() []SourceToken {
	var out []SourceToken
	if f.IsMonitorable {
		out = append(out, lit("monitorable"), lit(TokSpace))
	}
	if f.IsList {
		out = append(out, lit("list"), lit(TokSpace))
	}
	out = append(out, lit(string(f.Kind)), lit(TokSpace), lit(f.Name))
	if len(f.Extends) > 0 {
		out = append(out, lit(TokSpace), lit("extends"), lit(TokSpace), lit(strings.Join(f.Extends, ", ")))
	}
	out = append(out, lit("("), lit(TokIndent))
	for i, a := range f.Args {
		if i > 0 {
			out = append(out, lit(","))
		}
		out = append(out, lit(TokNewline))
		out = append(out, a.ToSource()...)
	}
	out = append(out, lit(TokDedent))
	if len(f.Args) > 0 {
		out = append(out, lit(TokNewline))
	}
	return append(out, lit(")"), lit(";"))
}

// EntityDef declares an entity kind inside a class.
type EntityDef struct {
	span
	Name        string
	Annotations AnnotationMap
}

// Clone deep-copies the entity declaration.
func (e *EntityDef) Clone() *EntityDef {
	c := *e
	c.Annotations = e.Annotations.Clone()
	return &c
}

// Equals reports structural equality.
func (e *EntityDef) Equals(other *EntityDef) bool {
	return e.Name == other.Name && e.Annotations.Equals(other.Annotations)
}

func (e *EntityDef) String() string { return "entity " + e.Name }

// MixinImport pulls a mixin's functions into a class.
type MixinImport struct {
	span
	Facets []string
	Module string
	Params []InputParam
}

// Clone deep-copies the import.
func (m *MixinImport) Clone() *MixinImport {
	c := *m
	c.Facets = append([]string(nil), m.Facets...)
	c.Params = cloneInputParams(m.Params)
	return &c
}

// Equals reports structural equality.
func (m *MixinImport) Equals(other *MixinImport) bool {
	return stringsEqual(m.Facets, other.Facets) && m.Module == other.Module &&
		inputParamsEqual(m.Params, other.Params)
}

func (m *MixinImport) String() string {
	return "import " + strings.Join(m.Facets, ", ") + " from @" + m.Module
}

// ClassDef declares a class of catalogued functions.
type ClassDef struct {
	span
	Name        string
	Extends     []string
	Imports     []*MixinImport
	Queries     map[string]*FunctionDef
	Actions     map[string]*FunctionDef
	Entities    []*EntityDef
	Annotations AnnotationMap
}

// Clone deep-copies the class definition.
func (c *ClassDef) Clone() *ClassDef {
	out := *c
	out.Extends = append([]string(nil), c.Extends...)
	out.Imports = make([]*MixinImport, len(c.Imports))
	for i, m := range c.Imports {
		out.Imports[i] = m.Clone()
	}
	out.Queries = cloneFunctionMap(c.Queries)
	out.Actions = cloneFunctionMap(c.Actions)
	out.Entities = make([]*EntityDef, len(c.Entities))
	for i, e := range c.Entities {
		out.Entities[i] = e.Clone()
	}
	out.Annotations = c.Annotations.Clone()
	return &out
}

// Equals reports structural equality.
func (c *ClassDef) Equals(other *ClassDef) bool {
	if c.Name != other.Name || !stringsEqual(c.Extends, other.Extends) ||
		len(c.Imports) != len(other.Imports) ||
		len(c.Entities) != len(other.Entities) {
		return false
	}
	for i, m := range c.Imports {
		if !m.Equals(other.Imports[i]) {
			return false
		}
	}
	for i, e := range c.Entities {
		if !e.Equals(other.Entities[i]) {
			return false
		}
	}
	return functionMapsEqual(c.Queries, other.Queries) &&
		functionMapsEqual(c.Actions, other.Actions) &&
		c.Annotations.Equals(other.Annotations)
}

func (c *ClassDef) String() string { return "class @" + c.Name }

// ToSource emits the class declaration.
func (c *ClassDef) ToSource() []SourceToken {
	out := toks("class", TokSpace, "@"+c.Name)
	if len(c.Extends) > 0 {
		out = append(out, lit(TokSpace), lit("extends"), lit(TokSpace))
		for i, e := range c.Extends {
			if i > 0 {
				out = append(out, lit(","), lit(TokSpace))
			}
			out = append(out, lit("@"+e))
		}
	}
	out = append(out, lit(TokSpace), lit("{"), lit(TokIndent))
	for _, m := range c.Imports {
		out = append(out, lit(TokNewline), lit("import"), lit(TokSpace))
		out = append(out, lit(strings.Join(m.Facets, ", ")))
		out = append(out, lit(TokSpace), lit("from"), lit(TokSpace), lit("@"+m.Module))
		out = append(out, inputParamsToSource(m.Params)...)
		out = append(out, lit(";"))
	}
	for _, e := range c.Entities {
		out = append(out, lit(TokNewline), lit("entity"), lit(TokSpace), lit(e.Name), lit(";"))
	}
	for _, name := range sortedFunctionNames(c.Queries) {
		out = append(out, lit(TokNewline))
		out = append(out, c.Queries[name].ToSource()...)
	}
	for _, name := range sortedFunctionNames(c.Actions) {
		out = append(out, lit(TokNewline))
		out = append(out, c.Actions[name].ToSource()...)
	}
	out = append(out, lit(TokDedent), lit(TokNewline), lit("}"))
	return out
}

// Function returns the named query or action, or nil.
func (c *ClassDef) Function(kind FunctionKind, name string) *FunctionDef {
	switch kind {
	case ActionKind:
		return c.Actions[name]
	default:
		return c.Queries[name]
	}
}

func cloneFunctionMap(m map[string]*FunctionDef) map[string]*FunctionDef {
	if m == nil {
		return nil
	}
	out := make(map[string]*FunctionDef, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

func functionMapsEqual(a, b map[string]*FunctionDef) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !v.Equals(ov) {
			return false
		}
	}
	return true
}

func sortedFunctionNames(m map[string]*FunctionDef) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

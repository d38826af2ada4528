package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ttlang/go-tt/internal/types"
)

// Value is an AST node holding a literal or symbolic scalar.
//
// Values are constructed by the parser, cloned by transformations, and may
// be mutated in place only by the pass that just created them; otherwise
// they are treated as immutable.
type Value interface {
	Node
	valueNode()

	// Clone returns a deep copy of the value.
	Clone() Value

	// Equals reports structural equality with another value.
	Equals(other Value) bool

	// Type returns the TT type this value inhabits.
	Type() types.Type

	// IsConcrete reports whether the value is fully resolved: undefined
	// values, unresolved locations and entities, relative times and
	// placeholder units are not concrete.
	IsConcrete() bool

	// IsConstant reports whether the value is a compile-time constant.
	// Literals and arrays/objects of constants are constant; variable
	// references, events, computations and filters are not.
	IsConstant() bool

	// ToSource emits the value as a token stream.
	ToSource() []SourceToken
}

// BooleanValue is a boolean literal.
type BooleanValue struct {
	span
	Value bool
}

func (*BooleanValue) valueNode() {}
func (v *BooleanValue) Clone() Value {
	c := *v
	return &c
}
func (v *BooleanValue) Equals(other Value) bool {
	o, ok := other.(*BooleanValue)
	return ok && o.Value == v.Value
}
func (v *BooleanValue) Type() types.Type { return types.Boolean }
func (v *BooleanValue) IsConcrete() bool { return true }
func (v *BooleanValue) IsConstant() bool { return true }
func (v *BooleanValue) String() string   { return strconv.FormatBool(v.Value) }
func (v *BooleanValue) ToSource() []SourceToken {
	return []SourceToken{lit(strconv.FormatBool(v.Value))}
}

// StringValue is a string literal.
type StringValue struct {
	span
	Value string
}

func (*StringValue) valueNode() {}
func (v *StringValue) Clone() Value {
	c := *v
	return &c
}
func (v *StringValue) Equals(other Value) bool {
	o, ok := other.(*StringValue)
	return ok && o.Value == v.Value
}
func (v *StringValue) Type() types.Type { return types.String }
func (v *StringValue) IsConcrete() bool { return true }
func (v *StringValue) IsConstant() bool { return true }
func (v *StringValue) String() string   { return strconv.Quote(v.Value) }
func (v *StringValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// NumberValue is a numeric literal.
type NumberValue struct {
	span
	Value float64
}

func (*NumberValue) valueNode() {}
func (v *NumberValue) Clone() Value {
	c := *v
	return &c
}
func (v *NumberValue) Equals(other Value) bool {
	o, ok := other.(*NumberValue)
	return ok && o.Value == v.Value
}
func (v *NumberValue) Type() types.Type { return types.Number }
func (v *NumberValue) IsConcrete() bool { return true }
func (v *NumberValue) IsConstant() bool { return true }
func (v *NumberValue) String() string   { return FormatNumber(v.Value) }
func (v *NumberValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// CurrencyValue is an amount of money in a given currency code.
type CurrencyValue struct {
	span
	Value float64
	Code  string
}

func (*CurrencyValue) valueNode() {}
func (v *CurrencyValue) Clone() Value {
	c := *v
	return &c
}
func (v *CurrencyValue) Equals(other Value) bool {
	o, ok := other.(*CurrencyValue)
	return ok && o.Value == v.Value && o.Code == v.Code
}
func (v *CurrencyValue) Type() types.Type { return types.Currency }
func (v *CurrencyValue) IsConcrete() bool { return true }
func (v *CurrencyValue) IsConstant() bool { return true }
func (v *CurrencyValue) String() string {
	return fmt.Sprintf("new Currency(%s, %q)", FormatNumber(v.Value), v.Code)
}
func (v *CurrencyValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// MeasureValue is a number tagged with a unit. A unit beginning with
// "default" is a placeholder awaiting unit resolution.
type MeasureValue struct {
	span
	Value float64
	Unit  string
}

func (*MeasureValue) valueNode() {}
func (v *MeasureValue) Clone() Value {
	c := *v
	return &c
}
func (v *MeasureValue) Equals(other Value) bool {
	o, ok := other.(*MeasureValue)
	return ok && o.Value == v.Value && o.Unit == v.Unit
}
func (v *MeasureValue) Type() types.Type { return types.Measure{Unit: v.Unit} }
func (v *MeasureValue) IsConcrete() bool {
	return v.Unit != "" && !strings.HasPrefix(v.Unit, "default")
}
func (v *MeasureValue) IsConstant() bool { return true }
func (v *MeasureValue) String() string {
	return FormatNumber(v.Value) + v.Unit
}
func (v *MeasureValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// LocationKind discriminates the LocationValue variants.
type LocationKind int

const (
	LocationAbsolute LocationKind = iota
	LocationRelative
	LocationUnresolved
)

// LocationValue is a geographic location: absolute coordinates, a relative
// well-known name ($location.home), or an unresolved free-text name.
type LocationValue struct {
	span
	Kind    LocationKind
	Lat     float64
	Lon     float64
	Display string
	Name    string
}

func (*LocationValue) valueNode() {}
func (v *LocationValue) Clone() Value {
	c := *v
	return &c
}
func (v *LocationValue) Equals(other Value) bool {
	o, ok := other.(*LocationValue)
	if !ok || o.Kind != v.Kind {
		return false
	}
	switch v.Kind {
	case LocationAbsolute:
		return o.Lat == v.Lat && o.Lon == v.Lon && o.Display == v.Display
	default:
		return o.Name == v.Name
	}
}
func (v *LocationValue) Type() types.Type { return types.Location }
func (v *LocationValue) IsConcrete() bool { return v.Kind == LocationAbsolute }
func (v *LocationValue) IsConstant() bool { return true }
func (v *LocationValue) String() string {
	switch v.Kind {
	case LocationAbsolute:
		if v.Display != "" {
			return fmt.Sprintf("new Location(%s, %s, %q)", FormatNumber(v.Lat), FormatNumber(v.Lon), v.Display)
		}
		return fmt.Sprintf("new Location(%s, %s)", FormatNumber(v.Lat), FormatNumber(v.Lon))
	case LocationRelative:
		return "$location." + v.Name
	default:
		return fmt.Sprintf("new Location(%q)", v.Name)
	}
}
func (v *LocationValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// TimeKind discriminates the TimeValue variants.
type TimeKind int

const (
	TimeAbsolute TimeKind = iota
	TimeRelative
)

// TimeValue is a time of day, absolute or relative to a named moment
// ($time.morning).
type TimeValue struct {
	span
	Kind   TimeKind
	Hour   int
	Minute int
	Second int
	Name   string
}

func (*TimeValue) valueNode() {}
func (v *TimeValue) Clone() Value {
	c := *v
	return &c
}
func (v *TimeValue) Equals(other Value) bool {
	o, ok := other.(*TimeValue)
	if !ok || o.Kind != v.Kind {
		return false
	}
	if v.Kind == TimeAbsolute {
		return o.Hour == v.Hour && o.Minute == v.Minute && o.Second == v.Second
	}
	return o.Name == v.Name
}
func (v *TimeValue) Type() types.Type { return types.Time }
func (v *TimeValue) IsConcrete() bool { return v.Kind == TimeAbsolute }
func (v *TimeValue) IsConstant() bool { return true }
func (v *TimeValue) String() string {
	if v.Kind == TimeAbsolute {
		return fmt.Sprintf("new Time(%d, %d, %d)", v.Hour, v.Minute, v.Second)
	}
	return "$time." + v.Name
}
func (v *TimeValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// DateKind discriminates the DateValue variants.
type DateKind int

const (
	DateNow DateKind = iota
	DateAbsolute
	DateEdge
)

// DateValue is a point in time: the current instant, an absolute instant,
// or the start/end edge of a calendar unit ($start_of(week)).
type DateValue struct {
	span
	Kind    DateKind
	Instant time.Time
	Edge    string // "start_of" or "end_of"
	Unit    string // calendar unit for edges
}

func (*DateValue) valueNode() {}
func (v *DateValue) Clone() Value {
	c := *v
	return &c
}
func (v *DateValue) Equals(other Value) bool {
	o, ok := other.(*DateValue)
	if !ok || o.Kind != v.Kind {
		return false
	}
	switch v.Kind {
	case DateAbsolute:
		return o.Instant.Equal(v.Instant)
	case DateEdge:
		return o.Edge == v.Edge && o.Unit == v.Unit
	default:
		return true
	}
}
func (v *DateValue) Type() types.Type { return types.Date }
func (v *DateValue) IsConcrete() bool { return v.Kind != DateEdge }
func (v *DateValue) IsConstant() bool { return true }
func (v *DateValue) String() string {
	switch v.Kind {
	case DateNow:
		return "$now"
	case DateEdge:
		return fmt.Sprintf("$%s(%s)", v.Edge, v.Unit)
	default:
		return fmt.Sprintf("new Date(%q)", v.Instant.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
}
func (v *DateValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// EntityValue is a reference to a catalogued entity. An entity without an
// identifier is unresolved and only carries its display text.
type EntityValue struct {
	span
	ID      string
	Kind    string
	Display string
}

func (*EntityValue) valueNode() {}
func (v *EntityValue) Clone() Value {
	c := *v
	return &c
}
func (v *EntityValue) Equals(other Value) bool {
	o, ok := other.(*EntityValue)
	return ok && o.ID == v.ID && o.Kind == v.Kind && o.Display == v.Display
}
func (v *EntityValue) Type() types.Type { return types.Entity{Name: v.Kind} }
func (v *EntityValue) IsConcrete() bool { return v.ID != "" }
func (v *EntityValue) IsConstant() bool { return true }
func (v *EntityValue) String() string {
	if v.Display != "" {
		return fmt.Sprintf("%q^^%s(%q)", v.ID, v.Kind, v.Display)
	}
	return fmt.Sprintf("%q^^%s", v.ID, v.Kind)
}
func (v *EntityValue) ToSource() []SourceToken {
	return []SourceToken{constTok(v)}
}

// EnumValue is an enumeration tag.
type EnumValue struct {
	span
	Tag string
}

func (*EnumValue) valueNode() {}
func (v *EnumValue) Clone() Value {
	c := *v
	return &c
}
func (v *EnumValue) Equals(other Value) bool {
	o, ok := other.(*EnumValue)
	return ok && o.Tag == v.Tag
}

// Type returns an open enum universe: the tag itself plus the sentinel
// permitting any other tag, so the checker can unify it against the
// declared enum of the parameter it fills.
func (v *EnumValue) Type() types.Type {
	return types.Enum{Members: []string{v.Tag, types.EnumAny}}
}
func (v *EnumValue) IsConcrete() bool { return true }
func (v *EnumValue) IsConstant() bool { return true }
func (v *EnumValue) String() string   { return "enum(" + v.Tag + ")" }
func (v *EnumValue) ToSource() []SourceToken {
	return toks("enum", "(", v.Tag, ")")
}

// EventValue refers to the current event or one of its projections
// ($event, $event.type, $event.program_id).
type EventValue struct {
	span
	Kind string // "" for the formatted event itself
}

func (*EventValue) valueNode() {}
func (v *EventValue) Clone() Value {
	c := *v
	return &c
}
func (v *EventValue) Equals(other Value) bool {
	o, ok := other.(*EventValue)
	return ok && o.Kind == v.Kind
}
func (v *EventValue) Type() types.Type {
	if v.Kind == "program_id" {
		return types.Entity{Name: "tt:program_id"}
	}
	return types.String
}
func (v *EventValue) IsConcrete() bool { return true }
func (v *EventValue) IsConstant() bool { return false }
func (v *EventValue) String() string {
	if v.Kind == "" {
		return "$event"
	}
	return "$event." + v.Kind
}
func (v *EventValue) ToSource() []SourceToken {
	return []SourceToken{lit(v.String())}
}

// VarRefValue is a reference to an in-scope variable or output parameter.
// RefType is filled by the type checker.
type VarRefValue struct {
	span
	Name    string
	RefType types.Type
}

func (*VarRefValue) valueNode() {}
func (v *VarRefValue) Clone() Value {
	c := *v
	return &c
}
func (v *VarRefValue) Equals(other Value) bool {
	o, ok := other.(*VarRefValue)
	return ok && o.Name == v.Name
}
func (v *VarRefValue) Type() types.Type {
	if v.RefType == nil {
		return types.Any{}
	}
	return v.RefType
}
func (v *VarRefValue) IsConcrete() bool { return true }
func (v *VarRefValue) IsConstant() bool { return false }
func (v *VarRefValue) String() string   { return v.Name }
func (v *VarRefValue) ToSource() []SourceToken {
	return []SourceToken{lit(v.Name)}
}

// ComputationValue is an operator applied to operand values.
// ResType is filled by the type checker from the selected overload.
type ComputationValue struct {
	span
	Op       string
	Operands []Value
	ResType  types.Type
}

func (*ComputationValue) valueNode() {}
func (v *ComputationValue) Clone() Value {
	c := *v
	c.Operands = cloneValues(v.Operands)
	return &c
}
func (v *ComputationValue) Equals(other Value) bool {
	o, ok := other.(*ComputationValue)
	return ok && o.Op == v.Op && valuesEqual(o.Operands, v.Operands)
}
func (v *ComputationValue) Type() types.Type {
	if v.ResType == nil {
		return types.Any{}
	}
	return v.ResType
}
func (v *ComputationValue) IsConcrete() bool {
	for _, op := range v.Operands {
		if !op.IsConcrete() {
			return false
		}
	}
	return true
}
func (v *ComputationValue) IsConstant() bool { return false }
func (v *ComputationValue) String() string {
	parts := make([]string, len(v.Operands))
	for i, op := range v.Operands {
		parts[i] = op.String()
	}
	if isInfixOp(v.Op) && len(v.Operands) == 2 {
		return "(" + parts[0] + " " + v.Op + " " + parts[1] + ")"
	}
	return v.Op + "(" + strings.Join(parts, ", ") + ")"
}
func (v *ComputationValue) ToSource() []SourceToken {
	if isInfixOp(v.Op) && len(v.Operands) == 2 {
		return seq(
			toks("("),
			v.Operands[0].ToSource(),
			toks(TokSpace, v.Op, TokSpace),
			v.Operands[1].ToSource(),
			toks(")"),
		)
	}
	out := toks(v.Op, "(")
	for i, op := range v.Operands {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, op.ToSource()...)
	}
	return append(out, lit(")"))
}

// isInfixOp reports whether a computation operator prints infix.
func isInfixOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "**":
		return true
	}
	return false
}

// ArrayFieldValue projects a field out of an array of records.
type ArrayFieldValue struct {
	span
	Inner     Value
	Field     string
	FieldType types.Type
}

func (*ArrayFieldValue) valueNode() {}
func (v *ArrayFieldValue) Clone() Value {
	c := *v
	c.Inner = v.Inner.Clone()
	return &c
}
func (v *ArrayFieldValue) Equals(other Value) bool {
	o, ok := other.(*ArrayFieldValue)
	return ok && o.Field == v.Field && o.Inner.Equals(v.Inner)
}
func (v *ArrayFieldValue) Type() types.Type {
	if v.FieldType == nil {
		return types.Any{}
	}
	return types.Array{Elem: v.FieldType}
}
func (v *ArrayFieldValue) IsConcrete() bool { return v.Inner.IsConcrete() }
func (v *ArrayFieldValue) IsConstant() bool { return false }
func (v *ArrayFieldValue) String() string {
	return v.Field + " of " + v.Inner.String()
}
func (v *ArrayFieldValue) ToSource() []SourceToken {
	return seq(
		toks(v.Field, TokSpace, "of", TokSpace),
		v.Inner.ToSource(),
	)
}

// FilterValue restricts an array value by a boolean predicate.
type FilterValue struct {
	span
	Inner     Value
	Predicate BooleanExpression
}

func (*FilterValue) valueNode() {}
func (v *FilterValue) Clone() Value {
	c := *v
	c.Inner = v.Inner.Clone()
	c.Predicate = v.Predicate.Clone()
	return &c
}
func (v *FilterValue) Equals(other Value) bool {
	o, ok := other.(*FilterValue)
	return ok && o.Inner.Equals(v.Inner) && o.Predicate.Equals(v.Predicate)
}
func (v *FilterValue) Type() types.Type { return v.Inner.Type() }
func (v *FilterValue) IsConcrete() bool { return v.Inner.IsConcrete() }
func (v *FilterValue) IsConstant() bool { return false }
func (v *FilterValue) String() string {
	return v.Inner.String() + " filter " + v.Predicate.String()
}
func (v *FilterValue) ToSource() []SourceToken {
	return seq(
		v.Inner.ToSource(),
		toks(TokSpace, "filter", TokSpace),
		v.Predicate.ToSource(),
	)
}

// UndefinedValue is a slot awaiting a concrete value. Local undefined
// values ($?) are filled by the dialogue layer; non-local ones refer to
// values supplied by the execution environment.
type UndefinedValue struct {
	span
	Local bool
}

func (*UndefinedValue) valueNode() {}
func (v *UndefinedValue) Clone() Value {
	c := *v
	return &c
}
func (v *UndefinedValue) Equals(other Value) bool {
	o, ok := other.(*UndefinedValue)
	return ok && o.Local == v.Local
}
func (v *UndefinedValue) Type() types.Type { return types.Any{} }
func (v *UndefinedValue) IsConcrete() bool { return false }
func (v *UndefinedValue) IsConstant() bool { return false }
func (v *UndefinedValue) String() string {
	if v.Local {
		return "$?"
	}
	return "$undefined"
}
func (v *UndefinedValue) ToSource() []SourceToken {
	return []SourceToken{lit(v.String())}
}

// ContextRefValue refers to a value provided by the dialogue context.
type ContextRefValue struct {
	span
	Name    string
	RefType types.Type
}

func (*ContextRefValue) valueNode() {}
func (v *ContextRefValue) Clone() Value {
	c := *v
	return &c
}
func (v *ContextRefValue) Equals(other Value) bool {
	o, ok := other.(*ContextRefValue)
	return ok && o.Name == v.Name
}
func (v *ContextRefValue) Type() types.Type {
	if v.RefType == nil {
		return types.Any{}
	}
	return v.RefType
}
func (v *ContextRefValue) IsConcrete() bool { return false }
func (v *ContextRefValue) IsConstant() bool { return false }
func (v *ContextRefValue) String() string   { return "$context." + v.Name }
func (v *ContextRefValue) ToSource() []SourceToken {
	return []SourceToken{lit(v.String())}
}

// ArrayValue is an ordered sequence of values.
type ArrayValue struct {
	span
	Elements []Value
}

func (*ArrayValue) valueNode() {}
func (v *ArrayValue) Clone() Value {
	c := *v
	c.Elements = cloneValues(v.Elements)
	return &c
}
func (v *ArrayValue) Equals(other Value) bool {
	o, ok := other.(*ArrayValue)
	return ok && valuesEqual(o.Elements, v.Elements)
}
func (v *ArrayValue) Type() types.Type {
	if len(v.Elements) == 0 {
		return types.Array{Elem: types.Any{}}
	}
	return types.Array{Elem: v.Elements[0].Type()}
}
func (v *ArrayValue) IsConcrete() bool {
	for _, e := range v.Elements {
		if !e.IsConcrete() {
			return false
		}
	}
	return true
}
func (v *ArrayValue) IsConstant() bool {
	for _, e := range v.Elements {
		if !e.IsConstant() {
			return false
		}
	}
	return true
}
func (v *ArrayValue) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (v *ArrayValue) ToSource() []SourceToken {
	out := toks("[")
	for i, e := range v.Elements {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, e.ToSource()...)
	}
	return append(out, lit("]"))
}

// ArgMapValue maps argument names to values.
type ArgMapValue struct {
	span
	Map map[string]Value
}

func (*ArgMapValue) valueNode() {}
func (v *ArgMapValue) Clone() Value {
	c := *v
	c.Map = cloneValueMap(v.Map)
	return &c
}

// Equals is false if any key is missing on either side or any two values
// differ.
func (v *ArgMapValue) Equals(other Value) bool {
	o, ok := other.(*ArgMapValue)
	return ok && valueMapsEqual(v.Map, o.Map)
}
func (v *ArgMapValue) Type() types.Type { return types.ArgMap{} }
func (v *ArgMapValue) IsConcrete() bool { return valueMapConcrete(v.Map) }
func (v *ArgMapValue) IsConstant() bool { return valueMapConstant(v.Map) }
func (v *ArgMapValue) String() string   { return formatValueMap(v.Map) }
func (v *ArgMapValue) ToSource() []SourceToken {
	return valueMapToSource(v.Map)
}

// ObjectValue is a structural record of named values.
type ObjectValue struct {
	span
	Map map[string]Value
}

func (*ObjectValue) valueNode() {}
func (v *ObjectValue) Clone() Value {
	c := *v
	c.Map = cloneValueMap(v.Map)
	return &c
}

// Equals is false if any key is missing on either side or any two values
// differ.
func (v *ObjectValue) Equals(other Value) bool {
	o, ok := other.(*ObjectValue)
	return ok && valueMapsEqual(v.Map, o.Map)
}
func (v *ObjectValue) Type() types.Type {
	schema := make(map[string]types.Type, len(v.Map))
	for name, val := range v.Map {
		schema[name] = val.Type()
	}
	return types.Object{Schema: schema}
}
func (v *ObjectValue) IsConcrete() bool { return valueMapConcrete(v.Map) }
func (v *ObjectValue) IsConstant() bool { return valueMapConstant(v.Map) }
func (v *ObjectValue) String() string   { return formatValueMap(v.Map) }
func (v *ObjectValue) ToSource() []SourceToken {
	return valueMapToSource(v.Map)
}

func cloneValueMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

func valueMapsEqual(a, b map[string]Value) bool {
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

func valueMapConcrete(m map[string]Value) bool {
	for _, v := range m {
		if !v.IsConcrete() {
			return false
		}
	}
	return true
}

func valueMapConstant(m map[string]Value) bool {
	for _, v := range m {
		if !v.IsConstant() {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValueMap(m map[string]Value) string {
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func valueMapToSource(m map[string]Value) []SourceToken {
	out := toks("{")
	for i, k := range sortedKeys(m) {
		if i > 0 {
			out = append(out, lit(","), lit(TokSpace))
		}
		out = append(out, lit(k), lit("="))
		out = append(out, m[k].ToSource()...)
	}
	return append(out, lit("}"))
}

// FormatNumber renders a float in TT surface syntax: integral values print
// without a decimal point.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Package types implements the TT type system: primitive and parametric
// types, type variables, and unification under a scope of bindings.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface implemented by all TT types.
type Type interface {
	typeNode()

	// String returns the surface spelling of the type.
	String() string

	// Equals reports structural equality.
	Equals(other Type) bool
}

// Primitive is a primitive type identified by name.
type Primitive struct {
	Name string
}

func (Primitive) typeNode()        {}
func (p Primitive) String() string { return p.Name }
func (p Primitive) Equals(other Type) bool {
	o, ok := other.(Primitive)
	return ok && o.Name == p.Name
}

// The primitive and universal types.
var (
	Boolean     = Primitive{Name: "Boolean"}
	String      = Primitive{Name: "String"}
	Number      = Primitive{Name: "Number"}
	Currency    = Primitive{Name: "Currency"}
	Date        = Primitive{Name: "Date"}
	Time        = Primitive{Name: "Time"}
	Location    = Primitive{Name: "Location"}
	RecTimeSpec = Primitive{Name: "RecurrentTimeSpecification"}
	User        = Primitive{Name: "User"}
	Feed        = Primitive{Name: "Feed"}
)

// Any unifies with every type and is the identity of unification.
type Any struct{}

func (Any) typeNode()                {}
func (Any) String() string           { return "Any" }
func (Any) Equals(other Type) bool   { _, ok := other.(Any); return ok }

// Measure is a number tagged with an opaque unit.
type Measure struct {
	Unit string
}

func (Measure) typeNode()        {}
func (m Measure) String() string { return fmt.Sprintf("Measure(%s)", m.Unit) }
func (m Measure) Equals(other Type) bool {
	o, ok := other.(Measure)
	return ok && o.Unit == m.Unit
}

// Array is a homogeneous list type.
type Array struct {
	Elem Type
}

func (Array) typeNode()        {}
func (a Array) String() string { return fmt.Sprintf("Array(%s)", a.Elem) }
func (a Array) Equals(other Type) bool {
	o, ok := other.(Array)
	return ok && a.Elem.Equals(o.Elem)
}

// Map is a key/value mapping type.
type Map struct {
	Key   Type
	Value Type
}

func (Map) typeNode()        {}
func (m Map) String() string { return fmt.Sprintf("Map(%s, %s)", m.Key, m.Value) }
func (m Map) Equals(other Type) bool {
	o, ok := other.(Map)
	return ok && m.Key.Equals(o.Key) && m.Value.Equals(o.Value)
}

// Tuple is a fixed-length sequence of types.
type Tuple struct {
	Fields []Type
}

func (Tuple) typeNode() {}
func (t Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t Tuple) Equals(other Type) bool {
	o, ok := other.(Tuple)
	if !ok || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if !f.Equals(o.Fields[i]) {
			return false
		}
	}
	return true
}

// Entity is a reference to a named entity kind.
type Entity struct {
	Name string
}

func (Entity) typeNode()        {}
func (e Entity) String() string { return fmt.Sprintf("Entity(%s)", e.Name) }
func (e Entity) Equals(other Type) bool {
	o, ok := other.(Entity)
	return ok && o.Name == e.Name
}

// EnumAny is the sentinel member permitting any further enum tag.
const EnumAny = "*"

// Enum is a closed or open set of tags. A member equal to EnumAny marks the
// universe as open.
type Enum struct {
	Members []string
}

func (Enum) typeNode() {}
func (e Enum) String() string {
	return "Enum(" + strings.Join(e.Members, ", ") + ")"
}
func (e Enum) Equals(other Type) bool {
	o, ok := other.(Enum)
	if !ok || len(o.Members) != len(e.Members) {
		return false
	}
	for i, m := range e.Members {
		if o.Members[i] != m {
			return false
		}
	}
	return true
}

// IsOpen reports whether the enum permits tags beyond its listed members.
func (e Enum) IsOpen() bool {
	for _, m := range e.Members {
		if m == EnumAny {
			return true
		}
	}
	return false
}

// concreteMembers returns the members without the EnumAny sentinel.
func (e Enum) concreteMembers() []string {
	out := make([]string, 0, len(e.Members))
	for _, m := range e.Members {
		if m != EnumAny {
			out = append(out, m)
		}
	}
	return out
}

// Compound is a named record of fields, each with its own type.
type Compound struct {
	Name   string
	Fields map[string]Type
}

func (Compound) typeNode() {}
func (c Compound) String() string {
	return fmt.Sprintf("Compound(%s)", c.Name)
}
func (c Compound) Equals(other Type) bool {
	o, ok := other.(Compound)
	if !ok || o.Name != c.Name || len(o.Fields) != len(c.Fields) {
		return false
	}
	for name, f := range c.Fields {
		of, present := o.Fields[name]
		if !present || !f.Equals(of) {
			return false
		}
	}
	return true
}

// Object is a structural record keyed by field name.
type Object struct {
	Schema map[string]Type
}

func (Object) typeNode() {}
func (o Object) String() string {
	names := make([]string, 0, len(o.Schema))
	for name := range o.Schema {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + o.Schema[name].String()
	}
	return "Object(" + strings.Join(parts, ", ") + ")"
}
func (o Object) Equals(other Type) bool {
	oo, ok := other.(Object)
	if !ok || len(oo.Schema) != len(o.Schema) {
		return false
	}
	for name, f := range o.Schema {
		of, present := oo.Schema[name]
		if !present || !f.Equals(of) {
			return false
		}
	}
	return true
}

// ArgMap is the type of an argument-name-to-value mapping.
type ArgMap struct{}

func (ArgMap) typeNode()              {}
func (ArgMap) String() string         { return "ArgMap" }
func (ArgMap) Equals(other Type) bool { _, ok := other.(ArgMap); return ok }

// TypeVar is a type variable used during unification.
type TypeVar struct {
	Name string
}

func (TypeVar) typeNode()        {}
func (v TypeVar) String() string { return v.Name }
func (v TypeVar) Equals(other Type) bool {
	o, ok := other.(TypeVar)
	return ok && o.Name == v.Name
}

// IsNumeric reports whether t supports arithmetic aggregation.
func IsNumeric(t Type) bool {
	switch tt := t.(type) {
	case Primitive:
		return tt == Number || tt == Currency || tt == Date || tt == Time
	case Measure:
		return true
	}
	return false
}

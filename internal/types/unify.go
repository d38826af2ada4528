package types

import "fmt"

// Scope maps type variable names to their bindings during unification.
type Scope map[string]Type

// Unify computes the most general unifier of t1 and t2 under scope,
// binding type variables as needed. It returns the unified type, or an
// error when no substitution maps one type onto the other.
func Unify(t1, t2 Type, scope Scope) (Type, error) {
	if scope == nil {
		scope = Scope{}
	}

	// Any is the identity of unification.
	if _, ok := t1.(Any); ok {
		return t2, nil
	}
	if _, ok := t2.(Any); ok {
		return t1, nil
	}

	if v, ok := t1.(TypeVar); ok {
		return unifyVar(v, t2, scope)
	}
	if v, ok := t2.(TypeVar); ok {
		return unifyVar(v, t1, scope)
	}

	switch a := t1.(type) {
	case Primitive:
		if b, ok := t2.(Primitive); ok && a.Name == b.Name {
			return a, nil
		}

	case Measure:
		// Units are opaque tags: Measure(u1) unifies only with Measure(u1).
		if b, ok := t2.(Measure); ok && a.Unit == b.Unit {
			return a, nil
		}

	case Array:
		if b, ok := t2.(Array); ok {
			elem, err := Unify(a.Elem, b.Elem, scope)
			if err != nil {
				return nil, err
			}
			return Array{Elem: elem}, nil
		}

	case Map:
		if b, ok := t2.(Map); ok {
			key, err := Unify(a.Key, b.Key, scope)
			if err != nil {
				return nil, err
			}
			value, err := Unify(a.Value, b.Value, scope)
			if err != nil {
				return nil, err
			}
			return Map{Key: key, Value: value}, nil
		}

	case Tuple:
		if b, ok := t2.(Tuple); ok && len(a.Fields) == len(b.Fields) {
			fields := make([]Type, len(a.Fields))
			for i := range a.Fields {
				f, err := Unify(a.Fields[i], b.Fields[i], scope)
				if err != nil {
					return nil, err
				}
				fields[i] = f
			}
			return Tuple{Fields: fields}, nil
		}

	case Entity:
		if b, ok := t2.(Entity); ok && a.Name == b.Name {
			return a, nil
		}

	case Enum:
		if b, ok := t2.(Enum); ok {
			return unifyEnum(a, b)
		}

	case Compound:
		if b, ok := t2.(Compound); ok && a.Equals(b) {
			return a, nil
		}

	case Object:
		if b, ok := t2.(Object); ok && len(a.Schema) == len(b.Schema) {
			schema := make(map[string]Type, len(a.Schema))
			for name, f := range a.Schema {
				bf, present := b.Schema[name]
				if !present {
					return nil, fmt.Errorf("cannot unify %s with %s: missing field %s", a, b, name)
				}
				u, err := Unify(f, bf, scope)
				if err != nil {
					return nil, err
				}
				schema[name] = u
			}
			return Object{Schema: schema}, nil
		}

	case ArgMap:
		if _, ok := t2.(ArgMap); ok {
			return a, nil
		}
	}

	return nil, fmt.Errorf("cannot unify %s with %s", t1, t2)
}

// unifyVar unifies a type variable with other: an existing binding is
// unified recursively, otherwise the variable binds to other.
func unifyVar(v TypeVar, other Type, scope Scope) (Type, error) {
	if bound, ok := scope[v.Name]; ok {
		u, err := Unify(bound, other, scope)
		if err != nil {
			return nil, err
		}
		scope[v.Name] = u
		return u, nil
	}
	scope[v.Name] = other
	return other, nil
}

// unifyEnum unifies two enums. An enum whose universe is open (contains the
// '*' sentinel) accepts any tag of the other; two closed enums must list
// the same members.
func unifyEnum(a, b Enum) (Type, error) {
	switch {
	case a.IsOpen() && b.IsOpen():
		seen := map[string]bool{}
		var merged []string
		for _, m := range append(a.concreteMembers(), b.concreteMembers()...) {
			if !seen[m] {
				seen[m] = true
				merged = append(merged, m)
			}
		}
		return Enum{Members: append(merged, EnumAny)}, nil
	case a.IsOpen():
		return b, nil
	case b.IsOpen():
		return a, nil
	}

	if len(a.Members) != len(b.Members) {
		return nil, fmt.Errorf("cannot unify %s with %s", a, b)
	}
	members := map[string]bool{}
	for _, m := range a.Members {
		members[m] = true
	}
	for _, m := range b.Members {
		if !members[m] {
			return nil, fmt.Errorf("cannot unify %s with %s", a, b)
		}
	}
	return a, nil
}

// ResolveScope substitutes all bound type variables in t, leaving unbound
// variables alone.
func ResolveScope(t Type, scope Scope) Type {
	switch tt := t.(type) {
	case TypeVar:
		if bound, ok := scope[tt.Name]; ok {
			return ResolveScope(bound, scope)
		}
		return tt
	case Array:
		return Array{Elem: ResolveScope(tt.Elem, scope)}
	case Map:
		return Map{Key: ResolveScope(tt.Key, scope), Value: ResolveScope(tt.Value, scope)}
	case Tuple:
		fields := make([]Type, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = ResolveScope(f, scope)
		}
		return Tuple{Fields: fields}
	case Object:
		schema := make(map[string]Type, len(tt.Schema))
		for name, f := range tt.Schema {
			schema[name] = ResolveScope(f, scope)
		}
		return Object{Schema: schema}
	}
	return t
}

// IsAssignable reports whether a value of type source may be passed where
// target is expected. It is a directional relaxation of unification: every
// unifiable pair is assignable, and a few coercions are permitted on top
// (entities and enums read as strings, currencies and measures as numbers).
func IsAssignable(target, source Type) bool {
	if _, ok := target.(Any); ok {
		return true
	}
	if _, ok := source.(Any); ok {
		return true
	}

	switch t := target.(type) {
	case Primitive:
		if t == String {
			switch source.(type) {
			case Entity, Enum:
				return true
			}
		}
		if t == Number {
			switch source.(type) {
			case Measure:
				return true
			}
			if s, ok := source.(Primitive); ok && s == Currency {
				return true
			}
		}
	case Array:
		if s, ok := source.(Array); ok {
			return IsAssignable(t.Elem, s.Elem)
		}
	}

	_, err := Unify(target, source, Scope{})
	return err == nil
}

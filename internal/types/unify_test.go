package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyPrimitives(t *testing.T) {
	u, err := Unify(String, String, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(String))

	_, err = Unify(String, Number, Scope{})
	assert.Error(t, err)
}

func TestUnifyAnyIsIdentity(t *testing.T) {
	u, err := Unify(Any{}, Number, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(Number))

	u, err = Unify(Measure{Unit: "C"}, Any{}, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(Measure{Unit: "C"}))
}

func TestUnifyMeasureUnitsAreOpaque(t *testing.T) {
	u, err := Unify(Measure{Unit: "C"}, Measure{Unit: "C"}, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(Measure{Unit: "C"}))

	_, err = Unify(Measure{Unit: "C"}, Measure{Unit: "F"}, Scope{})
	assert.Error(t, err)
}

func TestUnifyArraysComponentwise(t *testing.T) {
	u, err := Unify(Array{Elem: Number}, Array{Elem: Number}, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(Array{Elem: Number}))

	_, err = Unify(Array{Elem: Number}, Array{Elem: String}, Scope{})
	assert.Error(t, err)
}

func TestUnifyTypeVarBinds(t *testing.T) {
	scope := Scope{}
	u, err := Unify(TypeVar{Name: "t"}, Number, scope)
	require.NoError(t, err)
	assert.True(t, u.Equals(Number))
	assert.True(t, scope["t"].Equals(Number))

	// A bound variable unifies through its binding.
	u, err = Unify(TypeVar{Name: "t"}, Number, scope)
	require.NoError(t, err)
	assert.True(t, u.Equals(Number))

	_, err = Unify(TypeVar{Name: "t"}, String, scope)
	assert.Error(t, err)
}

func TestUnifySoundness(t *testing.T) {
	scope := Scope{}
	a := Array{Elem: TypeVar{Name: "x"}}
	b := Array{Elem: Number}

	u, err := Unify(a, b, scope)
	require.NoError(t, err)

	assert.True(t, ResolveScope(a, scope).Equals(u))
	assert.True(t, ResolveScope(b, scope).Equals(u))
}

func TestResolveScopeLeavesUnboundVars(t *testing.T) {
	resolved := ResolveScope(Array{Elem: TypeVar{Name: "y"}}, Scope{})
	assert.True(t, resolved.Equals(Array{Elem: TypeVar{Name: "y"}}))
}

func TestUnifyEnumOpenUniverse(t *testing.T) {
	open := Enum{Members: []string{EnumAny}}
	closed := Enum{Members: []string{"on", "off"}}

	u, err := Unify(open, closed, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(closed))

	// A single-tag open enum unifies with a closed universe containing it.
	tag := Enum{Members: []string{"on", EnumAny}}
	u, err = Unify(tag, closed, Scope{})
	require.NoError(t, err)
	assert.True(t, u.Equals(closed))

	_, err = Unify(closed, Enum{Members: []string{"on"}}, Scope{})
	assert.Error(t, err)
}

func TestUnifyTuplesAndMaps(t *testing.T) {
	u, err := Unify(
		Tuple{Fields: []Type{Number, String}},
		Tuple{Fields: []Type{Number, String}},
		Scope{},
	)
	require.NoError(t, err)
	assert.True(t, u.Equals(Tuple{Fields: []Type{Number, String}}))

	_, err = Unify(
		Map{Key: String, Value: Number},
		Map{Key: String, Value: String},
		Scope{},
	)
	assert.Error(t, err)
}

func TestIsAssignable(t *testing.T) {
	assert.True(t, IsAssignable(String, Entity{Name: "com.spotify:song"}))
	assert.True(t, IsAssignable(String, Enum{Members: []string{"on"}}))
	assert.True(t, IsAssignable(Number, Currency))
	assert.True(t, IsAssignable(Number, Measure{Unit: "C"}))
	assert.True(t, IsAssignable(Any{}, String))
	assert.True(t, IsAssignable(Array{Elem: String}, Array{Elem: Entity{Name: "x"}}))

	assert.False(t, IsAssignable(Number, String))
	assert.False(t, IsAssignable(Measure{Unit: "C"}, Measure{Unit: "F"}))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(Number))
	assert.True(t, IsNumeric(Currency))
	assert.True(t, IsNumeric(Measure{Unit: "kg"}))
	assert.False(t, IsNumeric(String))
	assert.False(t, IsNumeric(Boolean))
}

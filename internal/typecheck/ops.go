package typecheck

import (
	"fmt"

	"github.com/ttlang/go-tt/internal/types"
)

// comparisonOps enumerates the operators usable in filter atoms, compute
// predicates and comparison subqueries.
var comparisonOps = map[string]bool{
	"==":          true,
	"!=":          true,
	">=":          true,
	"<=":          true,
	">":           true,
	"<":           true,
	"=~":          true,
	"~=":          true,
	"starts_with": true,
	"ends_with":   true,
	"contains":    true,
	"in_array":    true,
}

// isOrderedType reports whether a type supports ordering comparisons.
func isOrderedType(t types.Type) bool {
	switch tt := t.(type) {
	case types.Primitive:
		switch tt {
		case types.Number, types.Currency, types.Date, types.Time, types.String:
			return true
		}
	case types.Measure:
		return true
	}
	return false
}

// isStringLike reports whether a type coerces to String for matching.
func isStringLike(t types.Type) bool {
	switch t.(type) {
	case types.Entity, types.Enum:
		return true
	case types.Primitive:
		return t.Equals(types.String)
	case types.Any:
		return true
	}
	return false
}

// resolveComparisonOp selects the overload of op matching the operand
// types and returns the unified parameter type. The boolean result type of
// every overload is implicit.
func resolveComparisonOp(op string, lhs, rhs types.Type, scope types.Scope) (types.Type, error) {
	if !comparisonOps[op] {
		return nil, fmt.Errorf("unknown operator %q", op)
	}

	switch op {
	case "==", "!=":
		return types.Unify(lhs, rhs, scope)

	case ">=", "<=", ">", "<":
		u, err := types.Unify(lhs, rhs, scope)
		if err != nil {
			return nil, err
		}
		resolved := types.ResolveScope(u, scope)
		if _, isVar := resolved.(types.TypeVar); isVar {
			return resolved, nil
		}
		if _, isAny := resolved.(types.Any); isAny {
			return resolved, nil
		}
		if !isOrderedType(resolved) {
			return nil, fmt.Errorf("operator %q requires an ordered type, not %s", op, resolved)
		}
		return resolved, nil

	case "=~", "~=", "starts_with", "ends_with":
		if !isStringLike(lhs) {
			return nil, fmt.Errorf("operator %q requires a string-like left operand, not %s", op, lhs)
		}
		if !isStringLike(rhs) {
			return nil, fmt.Errorf("operator %q requires a string-like right operand, not %s", op, rhs)
		}
		return types.String, nil

	case "contains":
		arr, ok := lhs.(types.Array)
		if !ok {
			if _, isAny := lhs.(types.Any); isAny {
				return rhs, nil
			}
			return nil, fmt.Errorf("operator \"contains\" requires an array left operand, not %s", lhs)
		}
		return types.Unify(arr.Elem, rhs, scope)

	case "in_array":
		arr, ok := rhs.(types.Array)
		if !ok {
			if _, isAny := rhs.(types.Any); isAny {
				return lhs, nil
			}
			return nil, fmt.Errorf("operator \"in_array\" requires an array right operand, not %s", rhs)
		}
		return types.Unify(lhs, arr.Elem, scope)
	}

	return nil, fmt.Errorf("unknown operator %q", op)
}

// resolveArithmeticOp selects the result type of an arithmetic computation
// over the operand types.
func resolveArithmeticOp(op string, operands []types.Type, scope types.Scope) (types.Type, error) {
	switch op {
	case "+", "-", "*", "/", "%", "**":
		if len(operands) != 2 {
			return nil, fmt.Errorf("operator %q takes two operands", op)
		}
		// String concatenation.
		if op == "+" && operands[0].Equals(types.String) && operands[1].Equals(types.String) {
			return types.String, nil
		}
		u, err := types.Unify(operands[0], operands[1], scope)
		if err != nil {
			return nil, err
		}
		resolved := types.ResolveScope(u, scope)
		if _, isAny := resolved.(types.Any); isAny {
			return resolved, nil
		}
		if !types.IsNumeric(resolved) {
			return nil, fmt.Errorf("operator %q requires numeric operands, not %s", op, resolved)
		}
		return resolved, nil

	case "max", "min", "sum", "avg":
		if len(operands) != 1 {
			return nil, fmt.Errorf("operator %q takes one operand", op)
		}
		arr, ok := operands[0].(types.Array)
		if !ok {
			return nil, fmt.Errorf("operator %q requires an array operand, not %s", op, operands[0])
		}
		if !types.IsNumeric(arr.Elem) {
			return nil, fmt.Errorf("operator %q requires numeric elements, not %s", op, arr.Elem)
		}
		return arr.Elem, nil

	case "count":
		if len(operands) != 1 {
			return nil, fmt.Errorf("operator \"count\" takes one operand")
		}
		if _, ok := operands[0].(types.Array); !ok {
			return nil, fmt.Errorf("operator \"count\" requires an array operand, not %s", operands[0])
		}
		return types.Number, nil

	case "distance":
		if len(operands) != 2 {
			return nil, fmt.Errorf("operator \"distance\" takes two operands")
		}
		for _, o := range operands {
			if !o.Equals(types.Location) {
				return nil, fmt.Errorf("operator \"distance\" requires Location operands, not %s", o)
			}
		}
		return types.Measure{Unit: "m"}, nil
	}

	return nil, fmt.Errorf("unknown computation operator %q", op)
}

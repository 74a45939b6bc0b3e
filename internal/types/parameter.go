package types

import (
	"strings"

	"github.com/radioflow/runtime/internal/radioerr"
)

// Canon lower-cases and trims a name. Every name in the system is
// case-insensitive; storage keys are always the canonical form (spec §3).
func Canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParameterDescription is an (already-canonicalized) name/value pair
// attached to a component or controller instance in the radio XML.
type ParameterDescription struct {
	Name  string
	Value string
}

// NewParameterDescription canonicalizes name before storing it.
func NewParameterDescription(name, value string) ParameterDescription {
	return ParameterDescription{Name: Canon(name), Value: value}
}

// constraintKind distinguishes the two allowed-values shapes a
// ParameterSpec may declare.
type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintInterval
	constraintAllowList
)

// ParameterSpec is the registration-time declaration of one parameter a
// component or controller exposes (spec §3).
type ParameterSpec struct {
	Name        string
	Description string
	Default     string
	Dynamic     bool
	TypeID      TypeID

	constraint constraintKind
	min, max   Value
	step       *Value
	allowList  []Value
}

// NewIntervalSpec declares a parameter constrained to [min,max] with an
// optional step. min/max/step must already be Values of kind typeID.
func NewIntervalSpec(name, description, def string, dynamic bool, typeID TypeID, min, max Value, step *Value) ParameterSpec {
	return ParameterSpec{
		Name: Canon(name), Description: description, Default: def,
		Dynamic: dynamic, TypeID: typeID,
		constraint: constraintInterval, min: min, max: max, step: step,
	}
}

// NewAllowListSpec declares a parameter constrained to a finite set of
// values. Registering with an empty list is rejected (spec §3).
func NewAllowListSpec(name, description, def string, dynamic bool, typeID TypeID, allowed []Value) (ParameterSpec, error) {
	if len(allowed) == 0 {
		return ParameterSpec{}, radioerr.New(radioerr.ParameterOutOfRange, "NewAllowListSpec", nil)
	}
	return ParameterSpec{
		Name: Canon(name), Description: description, Default: def,
		Dynamic: dynamic, TypeID: typeID,
		constraint: constraintAllowList, allowList: append([]Value{}, allowed...),
	}, nil
}

// NewUnconstrainedSpec declares a parameter with no allowed-values
// constraint. This is the shape used for TypeString parameters (spec §9
// Open Questions); NewAllowListSpec accepts string values as well. Used
// for any type, it means Validate never rejects a value on range grounds.
func NewUnconstrainedSpec(name, description, def string, dynamic bool, typeID TypeID) ParameterSpec {
	return ParameterSpec{
		Name: Canon(name), Description: description, Default: def,
		Dynamic: dynamic, TypeID: typeID, constraint: constraintNone,
	}
}

// Validate coerces raw to the spec's declared type and checks the
// allowed-values constraint, implementing Scenario 4 of spec §8.
func (p ParameterSpec) Validate(raw string) (Value, error) {
	v, err := Coerce(raw, p.TypeID)
	if err != nil {
		return Value{}, err
	}

	switch p.constraint {
	case constraintAllowList:
		for _, allowed := range p.allowList {
			if valuesEqual(allowed, v) {
				return v, nil
			}
		}
		return Value{}, radioerr.Newf(radioerr.ParameterOutOfRange, "Validate", "%q not in allow-list for %s", raw, p.Name)
	case constraintInterval:
		if lessThan(v, p.min) || lessThan(p.max, v) {
			return Value{}, radioerr.Newf(radioerr.ParameterOutOfRange, "Validate", "%q outside [%s,%s] for %s", raw, p.min.String(), p.max.String(), p.Name)
		}
		if p.step != nil {
			if !onStep(p.min, v, *p.step) {
				return Value{}, radioerr.Newf(radioerr.ParameterOutOfRange, "Validate", "%q not aligned to step %s for %s", raw, p.step.String(), p.Name)
			}
		}
		return v, nil
	default:
		// constraintNone: unconstrained, including the TypeString known gap.
		return v, nil
	}
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == TypeString {
		return a.str == b.str
	}
	return a.bits == b.bits && a.im == b.im
}

func lessThan(a, b Value) bool {
	switch a.Kind {
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return a.Uint() < b.Uint()
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return a.Int() < b.Int()
	default:
		return a.Float() < b.Float()
	}
}

func onStep(min, v, step Value) bool {
	switch min.Kind {
	case TypeU8, TypeU16, TypeU32, TypeU64:
		s := step.Uint()
		if s == 0 {
			return true
		}
		return (v.Uint()-min.Uint())%s == 0
	case TypeI8, TypeI16, TypeI32, TypeI64:
		s := step.Int()
		if s == 0 {
			return true
		}
		return (v.Int()-min.Int())%s == 0
	default:
		s := step.Float()
		if s == 0 {
			return true
		}
		delta := v.Float() - min.Float()
		ratio := delta / s
		return ratio-float64(int64(ratio+0.5)) < 1e-9 && ratio-float64(int64(ratio+0.5)) > -1e-9
	}
}

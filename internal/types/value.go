package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/radioflow/runtime/internal/radioerr"
)

// Value is the tagged union used for parameter values, DataSet metadata
// entries and event payloads (spec §9 "Any-typed values"): rather than a
// universal type-erased container, every value carries its TypeID and all
// conversions go through Coerce.
type Value struct {
	Kind TypeID
	bits uint64  // integer/float bit pattern, or 0/1 for bool
	im   float64 // imaginary part, for complex kinds
	str  string  // for TypeString
}

// BoolValue constructs a Value of kind Bool.
func BoolValue(b bool) Value {
	v := Value{Kind: TypeBool}
	if b {
		v.bits = 1
	}
	return v
}

// IntValue constructs a signed-integer Value (i8/i16/i32/i64).
func IntValue(kind TypeID, n int64) Value {
	return Value{Kind: kind, bits: uint64(n)}
}

// UintValue constructs an unsigned-integer Value (u8/u16/u32/u64).
func UintValue(kind TypeID, n uint64) Value {
	return Value{Kind: kind, bits: n}
}

// FloatValue constructs a real floating-point Value (f32/f64/f80).
func FloatValue(kind TypeID, f float64) Value {
	return Value{Kind: kind, bits: math.Float64bits(f)}
}

// ComplexValue constructs a complex Value (cf32/cf64/cf80).
func ComplexValue(kind TypeID, re, im float64) Value {
	return Value{Kind: kind, bits: math.Float64bits(re), im: im}
}

// StringValue constructs a Value of kind String.
func StringValue(s string) Value {
	return Value{Kind: TypeString, str: s}
}

// Bool returns the boolean payload; only meaningful when Kind == TypeBool.
func (v Value) Bool() bool { return v.bits != 0 }

// Int returns the signed-integer payload.
func (v Value) Int() int64 { return int64(v.bits) }

// Uint returns the unsigned-integer payload.
func (v Value) Uint() uint64 { return v.bits }

// Float returns the real floating-point payload.
func (v Value) Float() float64 { return math.Float64frombits(v.bits) }

// Complex returns the complex payload.
func (v Value) Complex() complex128 { return complex(math.Float64frombits(v.bits), v.im) }

// String renders the value for display/serialization; TypeString returns
// the raw string, everything else renders its canonical numeric form.
func (v Value) String() string {
	switch v.Kind {
	case TypeString:
		return v.str
	case TypeBool:
		return strconv.FormatBool(v.Bool())
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return strconv.FormatUint(v.Uint(), 10)
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return strconv.FormatInt(v.Int(), 10)
	case TypeF32, TypeF64, TypeF80:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case TypeComplexF32, TypeComplexF64, TypeComplexF80:
		c := v.Complex()
		return fmt.Sprintf("%g,%g", real(c), imag(c))
	default:
		return ""
	}
}

// boolTrue/boolFalse are the accepted string synonyms for boolean
// parameters (spec §3).
var boolTrue = map[string]bool{"yes": true, "true": true, "on": true, "1": true}
var boolFalse = map[string]bool{"no": true, "false": true, "off": true, "0": true}

// Coerce parses raw into a Value of the given kind, the central dispatch
// point referenced by spec §9 for all any-typed conversions.
func Coerce(raw string, kind TypeID) (Value, error) {
	raw = strings.TrimSpace(raw)

	switch kind {
	case TypeBool:
		low := strings.ToLower(raw)
		switch {
		case boolTrue[low]:
			return BoolValue(true), nil
		case boolFalse[low]:
			return BoolValue(false), nil
		default:
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid bool %q", raw)
		}
	case TypeString:
		return StringValue(raw), nil
	case TypeU8, TypeU16, TypeU32, TypeU64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid %s %q: %v", kind, raw, err)
		}
		return UintValue(kind, n), nil
	case TypeI8, TypeI16, TypeI32, TypeI64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid %s %q: %v", kind, raw, err)
		}
		return IntValue(kind, n), nil
	case TypeF32, TypeF64, TypeF80:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid %s %q: %v", kind, raw, err)
		}
		return FloatValue(kind, f), nil
	case TypeComplexF32, TypeComplexF64, TypeComplexF80:
		parts := strings.SplitN(raw, ",", 2)
		if len(parts) != 2 {
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid complex %q, want \"re,im\"", raw)
		}
		re, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		im, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "invalid complex %q", raw)
		}
		return ComplexValue(kind, re, im), nil
	default:
		return Value{}, radioerr.Newf(radioerr.InvalidDataType, "Coerce", "unknown type-id %v", kind)
	}
}

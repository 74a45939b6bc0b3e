// Package types holds the core data model shared by every package in the
// runtime: the 14 buffer element type-ids, the tagged-union Value used for
// parameters/metadata/event payloads, DataSet/StackDataSet, ports and the
// description structs that make up a radio graph (spec §3).
package types

import "strings"

// TypeID is a stable small integer identifying one of the supported
// element types. The first 14 constants are valid buffer element types;
// Bool and String extend the set for parameter declarations only (spec §3,
// §9 "Any-typed values").
type TypeID int

const (
	TypeU8 TypeID = iota
	TypeU16
	TypeU32
	TypeU64
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypeF80
	TypeComplexF32
	TypeComplexF64
	TypeComplexF80

	// Parameter-only extensions: never valid as a buffer element type-id.
	TypeBool
	TypeString
)

// bufferTypeCount is the number of type-ids valid as a buffer element type.
const bufferTypeCount = 14

// IsBufferType reports whether t is one of the 14 element types buffers and
// ports may carry.
func (t TypeID) IsBufferType() bool {
	return t >= TypeU8 && t < TypeID(bufferTypeCount)
}

// String renders a stable, lower-case name for the type-id, used in port
// acceptance checks and error messages.
func (t TypeID) String() string {
	switch t {
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeF80:
		return "f80"
	case TypeComplexF32:
		return "cf32"
	case TypeComplexF64:
		return "cf64"
	case TypeComplexF80:
		return "cf80"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseTypeID resolves a type-id from its canonical lower-case name.
func ParseTypeID(name string) (TypeID, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "u8":
		return TypeU8, true
	case "u16":
		return TypeU16, true
	case "u32":
		return TypeU32, true
	case "u64":
		return TypeU64, true
	case "i8":
		return TypeI8, true
	case "i16":
		return TypeI16, true
	case "i32", "int":
		return TypeI32, true
	case "i64":
		return TypeI64, true
	case "f32":
		return TypeF32, true
	case "f64", "float":
		return TypeF64, true
	case "f80":
		return TypeF80, true
	case "cf32":
		return TypeComplexF32, true
	case "cf64":
		return TypeComplexF64, true
	case "cf80":
		return TypeComplexF80, true
	case "bool":
		return TypeBool, true
	case "string":
		return TypeString, true
	default:
		return 0, false
	}
}

// Package radioerr defines the closed set of error kinds the runtime
// surfaces (spec §7) and a small wrapper that lets callers branch on kind
// with errors.Is while keeping a human-readable operation and cause.
package radioerr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories from spec §7.
type Kind string

const (
	ResourceNotFound    Kind = "resource_not_found"
	FileNotFound        Kind = "file_not_found"
	LibraryLoad         Kind = "library_load"
	LibrarySymbol       Kind = "library_symbol"
	ApiVersionMismatch  Kind = "api_version_mismatch"
	ParameterNotFound   Kind = "parameter_not_found"
	ParameterOutOfRange Kind = "parameter_out_of_range"
	InvalidDataType     Kind = "invalid_data_type"
	XmlParsing          Kind = "xml_parsing"
	GraphStructureError Kind = "graph_structure_error"
	DataBufferRelease   Kind = "data_buffer_release"
	OutOfMemory         Kind = "out_of_memory"
	EventNotFound       Kind = "event_not_found"
)

// Error wraps a Kind with the operation that raised it and, when present,
// the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind sentinel, so
// errors.Is(err, radioerr.ParameterOutOfRange) works against a wrapped
// *Error as well as a bare Kind value.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Error lets a bare Kind satisfy the error interface, so sentinels can be
// compared directly with errors.Is without constructing an *Error.
func (k Kind) Error() string { return string(k) }

// New builds a wrapped error of the given kind.
func New(kind Kind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Newf builds a wrapped error of the given kind with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is a
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

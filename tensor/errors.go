package tensor

import (
	"errors"
	"fmt"
)

// ErrFieldMissing is wrapped by CorruptDataError when a required field is absent.
var ErrFieldMissing = errors.New("tensor: field missing")

// IOError reports a failure to open or read the underlying file.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("tensor: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tensor: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FormatError reports that the input is not a tensor file this package
// understands: wrong tag, unsupported version or an unknown element type.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "tensor: invalid format: " + e.Reason
}

// CorruptDataError reports a structurally valid tensor file whose contents
// are inconsistent: truncated payloads, mismatched dimensions or non-finite
// values.
type CorruptDataError struct {
	Field  string
	Reason string
	Err    error
}

func (e *CorruptDataError) Error() string {
	msg := "tensor: corrupt data"
	if e.Field != "" {
		msg += " in field \"" + e.Field + "\""
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// Corrupt returns a CorruptDataError for field with a formatted reason.
func Corrupt(field, format string, args ...any) error {
	return &CorruptDataError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Missing returns a CorruptDataError wrapping ErrFieldMissing.
func Missing(field string) error {
	return &CorruptDataError{Field: field, Err: ErrFieldMissing}
}

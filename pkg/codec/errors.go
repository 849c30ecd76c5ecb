package codec

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError is returned by Resolve for an unregistered format.
type UnsupportedFormatError struct {
	Format    string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (supported: %s)", e.Format, strings.Join(e.Supported, ", "))
}

// DecodeError wraps any failure while decoding a document: malformed
// bytes, I/O errors, cancellation, or a sink rejecting an element.
type DecodeError struct {
	Format string
	Line   int // 0 when unknown
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Format, e.Line, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Format, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func decodeErr(format string, line int, cause error) error {
	if de, ok := cause.(*DecodeError); ok {
		return de
	}
	return &DecodeError{Format: format, Line: line, Cause: cause}
}

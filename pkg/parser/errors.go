package parser

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ParseError, CoercionError and FileSource.
var (
	ErrOpen             = errors.New("opening log file")
	ErrMissingDelimiter = errors.New("missing delimiter")
	ErrTokenCount       = errors.New("too few tokens")
	ErrLineTooLong      = errors.New("line too long")
	ErrCoercion         = errors.New("coercion failed")
)

// ParseError reports a line that does not have the expected positional
// structure. Stage names the tokenizer state that failed; Field is set
// instead when all delimiters were found but a delimited segment had too
// few tokens.
type ParseError struct {
	Stage Stage
	Field string
	Line  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse line: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("parse line at %s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CoercionError reports a structurally valid line whose timestamp, status
// or size could not be converted to its typed form.
type CoercionError struct {
	Field string
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coerce %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns both the underlying conversion error and ErrCoercion so
// callers can match either with errors.Is.
func (e *CoercionError) Unwrap() []error {
	return []error{ErrCoercion, e.Err}
}

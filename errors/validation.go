// Package errors defines the structured validation errors reported by the
// h5schema validation engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of constraint violation.
type ErrorCode string

const (
	// ErrTypeMismatch indicates a container was found where a leaf was
	// expected, or the reverse.
	ErrTypeMismatch ErrorCode = "type-mismatch"
	// ErrDtypeMismatch indicates a leaf element type is incompatible with
	// the schema dtype.
	ErrDtypeMismatch ErrorCode = "dtype-mismatch"
	// ErrShapeMismatch indicates a leaf shape does not match the schema shape.
	ErrShapeMismatch ErrorCode = "shape-mismatch"

	// ErrUnexpectedMember indicates a container member has no schema match.
	ErrUnexpectedMember ErrorCode = "unexpected-member"
	// ErrMissingRequiredMember indicates a required member is absent.
	ErrMissingRequiredMember ErrorCode = "missing-required-member"

	// ErrUnexpectedAttribute indicates an attribute is not declared.
	ErrUnexpectedAttribute ErrorCode = "unexpected-attribute"
	// ErrMissingRequiredAttribute indicates a required attribute is absent.
	ErrMissingRequiredAttribute ErrorCode = "missing-required-attribute"
	// ErrAttributeDtypeMismatch indicates an attribute value type is
	// incompatible with the declared attribute dtype.
	ErrAttributeDtypeMismatch ErrorCode = "attribute-dtype-mismatch"
	// ErrAttributeShapeMismatch indicates an attribute shape does not match
	// the declared attribute shape.
	ErrAttributeShapeMismatch ErrorCode = "attribute-shape-mismatch"

	// ErrEnumViolation indicates a value is not in the allowed enum set.
	ErrEnumViolation ErrorCode = "enum-violation"
	// ErrConstViolation indicates a value differs from the required constant.
	ErrConstViolation ErrorCode = "const-violation"
	// ErrFormatViolation indicates a string value failed a named format.
	ErrFormatViolation ErrorCode = "format-violation"
	// ErrFormatType indicates format validation was applied to non-string data.
	ErrFormatType ErrorCode = "format-type-error"
	// ErrLengthViolation indicates a string length bound was violated.
	ErrLengthViolation ErrorCode = "length-violation"
	// ErrPatternViolation indicates a string value did not match the pattern.
	ErrPatternViolation ErrorCode = "pattern-violation"

	// ErrDependentRequired indicates a co-required property of a present
	// trigger property is absent.
	ErrDependentRequired ErrorCode = "dependent-required-violation"
	// ErrDependentSchema indicates a schema applied by a present trigger
	// property was violated.
	ErrDependentSchema ErrorCode = "dependent-schema-violation"
	// ErrNotViolation indicates a "not" sub-schema matched.
	ErrNotViolation ErrorCode = "not-violation"

	// ErrAnyOfFailed indicates no anyOf alternative was satisfied.
	ErrAnyOfFailed ErrorCode = "combinator-anyof"
	// ErrAllOfFailed indicates at least one allOf schema was violated.
	ErrAllOfFailed ErrorCode = "combinator-allof"
	// ErrOneOfFailed indicates zero or more than one oneOf alternative matched.
	ErrOneOfFailed ErrorCode = "combinator-oneof"
)

// Validation describes a single constraint violation with its error code and
// the instance path on which it was detected.
//
//nolint:errname // public API name uses schema domain term.
type Validation struct {
	Code     string
	Message  string
	Path     string
	Actual   string
	Expected []string
}

// ValidationList is an error that wraps one or more validation errors.
type ValidationList []Validation //nolint:errname // public API name, keep for compatibility.

// Error returns a compact summary of the validation errors.
func (v ValidationList) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
	}
}

// Error formats the validation for display, including code, message, and context.
func (v *Validation) Error() string {
	if v == nil {
		return "validation <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", v.Code, v.Message))
	if v.Path != "" {
		b.WriteString(fmt.Sprintf(" at %s", v.Path))
	}
	if len(v.Expected) > 0 {
		b.WriteString(fmt.Sprintf(" (expected: %s)", strings.Join(v.Expected, ", ")))
	}
	if v.Actual != "" {
		b.WriteString(fmt.Sprintf(" (actual: %s)", v.Actual))
	}
	return b.String()
}

// NewValidation builds a Validation with a code, message, and optional path.
func NewValidation(code ErrorCode, msg, path string) Validation {
	return Validation{Code: string(code), Message: msg, Path: path}
}

// NewValidationf formats a message and builds a Validation.
func NewValidationf(code ErrorCode, path, format string, args ...any) Validation {
	return NewValidation(code, fmt.Sprintf(format, args...), path)
}

// AsValidations extracts validation errors from an error returned by validation helpers.
func AsValidations(err error) ([]Validation, bool) {
	list, ok := asValidationList(err)
	if !ok {
		return nil, false
	}
	return []Validation(list), true
}

func asValidationList(err error) (ValidationList, bool) {
	if err == nil {
		return nil, false
	}
	var list ValidationList
	if errors.As(err, &list) {
		return list, true
	}

	var listPtr *ValidationList
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}

	return nil, false
}

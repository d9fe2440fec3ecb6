package forms

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of validation failure.
type ErrorCode string

const (
	// ErrorCodeDuplicateFieldName is returned when a field name collides
	// case-insensitively with another field of the same template
	ErrorCodeDuplicateFieldName ErrorCode = "DUPLICATE_FIELD_NAME"
	// ErrorCodeMissingFieldName is returned when a field name is blank
	ErrorCodeMissingFieldName ErrorCode = "MISSING_FIELD_NAME"
	// ErrorCodeMissingTitle is returned when a template title is blank
	ErrorCodeMissingTitle ErrorCode = "MISSING_TITLE"
	// ErrorCodeInvalidFieldType is returned for a type outside FieldTypes
	ErrorCodeInvalidFieldType ErrorCode = "INVALID_FIELD_TYPE"
)

// Sentinels for errors.Is. A *ValidationError matches the sentinel of its code.
var (
	ErrDuplicateFieldName = errors.New("field name must be unique within the form")
	ErrFieldNameRequired  = errors.New("field name is required")
	ErrTitleRequired      = errors.New("form title is required")
	ErrInvalidFieldType   = errors.New("invalid field type")
)

var sentinels = map[ErrorCode]error{
	ErrorCodeDuplicateFieldName: ErrDuplicateFieldName,
	ErrorCodeMissingFieldName:   ErrFieldNameRequired,
	ErrorCodeMissingTitle:       ErrTitleRequired,
	ErrorCodeInvalidFieldType:   ErrInvalidFieldType,
}

// ValidationError reports an input that was rejected before any state change.
type ValidationError struct {
	code  ErrorCode
	value string
}

func newValidationError(code ErrorCode, value string) *ValidationError {
	return &ValidationError{code: code, value: value}
}

// Code returns the error code.
func (e *ValidationError) Code() ErrorCode {
	return e.code
}

// Value returns the offending input, if any.
func (e *ValidationError) Value() string {
	return e.value
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := string(e.code)
	if s, ok := sentinels[e.code]; ok {
		msg = s.Error()
	}
	if e.value != "" {
		return fmt.Sprintf("%s: %q", msg, e.value)
	}
	return msg
}

// Is matches the sentinel associated with the error code.
func (e *ValidationError) Is(target error) bool {
	return sentinels[e.code] == target
}

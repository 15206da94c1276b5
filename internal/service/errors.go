package service

import "github.com/yakoovad/team-roster/internal/schema"

type ErrorCode string

const (
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeUnspecified      ErrorCode = "UNSPECIFIED"
	ErrorCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeDialogClosed     ErrorCode = "DIALOG_CLOSED"
	ErrorCodeDialogOpen       ErrorCode = "DIALOG_OPEN"
)

type Error struct {
	Code    ErrorCode           `json:"code"`
	Message string              `json:"message"`
	Fields  []schema.FieldError `json:"fields,omitempty"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewValidationError(fields []schema.FieldError) *Error {
	return &Error{
		Code:    ErrorCodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

func (e *Error) Error() string {
	return e.Message
}

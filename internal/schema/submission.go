package schema

import (
	"net/url"
	"strings"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FieldError is a validation failure scoped to a form field path such as
// "coach" or "players[1].goal".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Submission is the outcome of parsing raw form data against a schema.
// Value is set only when Status is StatusSuccess.
type Submission[T any] struct {
	Status  Status       `json:"status"`
	Value   *T           `json:"value,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Payload url.Values   `json:"-"`
}

func (s Submission[T]) OK() bool {
	return s.Status == StatusSuccess
}

// ErrorsFor returns the messages reported for path, in report order.
func (s Submission[T]) ErrorsFor(path string) []string {
	var out []string
	for _, fe := range s.Errors {
		if fe.Path == path {
			out = append(out, fe.Message)
		}
	}
	return out
}

// Err returns a *ValidationError for failed submissions and nil otherwise.
func (s Submission[T]) Err() error {
	if s.OK() {
		return nil
	}
	return &ValidationError{Fields: s.Errors}
}

func newSubmission[T any](payload url.Values, value *T, errs []FieldError) Submission[T] {
	if len(errs) > 0 {
		return Submission[T]{Status: StatusError, Errors: errs, Payload: payload}
	}
	return Submission[T]{Status: StatusSuccess, Value: value, Payload: payload}
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		if fe.Path == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Path+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

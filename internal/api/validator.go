package api

import "github.com/yakoovad/team-roster/internal/schema"

// Validator adapts the roster schema to echo's Validator interface.
type Validator struct {
	schema *schema.Validator
}

func NewValidator(v *schema.Validator) *Validator {
	return &Validator{schema: v}
}

func (v *Validator) Validate(i any) error {
	if errs := v.schema.Struct(i); len(errs) > 0 {
		return &schema.ValidationError{Fields: errs}
	}
	return nil
}

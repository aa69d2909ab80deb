package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

// NewValidator returns a validator with the custom rules used by request payloads.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterRules(v)
	return v
}

// RegisterRules installs the "phone" rule, which accepts the same shapes as roster imports.
func RegisterRules(v *validator.Validate) {
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return roster.ValidPhone(fl.Field().String())
	})
}

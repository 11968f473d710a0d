// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.  LoadFrom calls
// validateStruct right after defaults are applied; any failure aborts
// startup.  The DSN template rule is registered here because the built-in
// tags cannot express it.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("dsn_template", func(fl validator.FieldLevel) bool {
		return strings.Count(fl.Field().String(), "%s") <= 1
	})
	return val
}

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}

// Package validation validates configuration structs with go-playground
// validator tags and reports failures as errors.AppError values.
//
//	type Config struct {
//	    Command string `mapstructure:"command" validate:"required"`
//	}
//	err := validation.Validate(cfg)
package validation

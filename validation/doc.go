// Package validation checks configuration structs against their
// `validate:"..."` tags using go-playground/validator.
//
//	type Config struct {
//	    Endpoint string `yaml:"endpoint" validate:"required,url"`
//	}
//	err := validation.Validate(cfg) // *errors.AppError with INVALID_INPUT
//
// Field names in messages use the yaml tag path, e.g. "eventsource.max_backoff".
package validation

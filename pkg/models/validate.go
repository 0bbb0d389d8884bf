package models

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks a model's validate tags. Services call it before
// persisting rows built outside the HTTP binding path.
func Validate(model interface{}) error {
	return validate.Struct(model)
}

// Package validation provides input validation for cloudbatch.
//
// Struct tag validation (go-playground/validator) is used for configuration
// structs; the programmatic Validator is used for object and container names
// where the rules are not expressible as tags.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    StorageURL string `mapstructure:"storage_url" validate:"required,url"`
//	}
//	err := validation.ValidateStruct(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("container", name).MaxBytes("container", name, 256)
//	err := v.Validate()
package validation

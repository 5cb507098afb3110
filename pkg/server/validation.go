package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/modelhub/modelhub/pkg/service"
)

// NewValidator returns a validator that reports fields by their wire name and
// knows the "semver" tag used for signature names.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}

		return ""
	})

	if err := validate.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
		return service.IsValidName(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return validate, nil
}

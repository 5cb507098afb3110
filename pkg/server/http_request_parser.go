package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"

	"github.com/modelhub/modelhub/pkg/contract"
)

type HTTPRequestParser struct {
	validator *validator.Validate
}

func NewHTTPRequestParser() (*HTTPRequestParser, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}

	return &HTTPRequestParser{
		validator: v,
	}, nil
}

func invalidParameter(message string) *contract.Error {
	return contract.NewError(contract.ErrorCodeInvalidInput, message).
		WithReason(contract.ReasonInvalidParameter)
}

func (p *HTTPRequestParser) ParseBody(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.BodyParser(input); err != nil {
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			result := gjson.GetBytes(ctx.Body(), typeError.Field)

			value := result.Str
			if value == "" {
				value = result.Raw
			}

			return invalidParameter(fmt.Sprintf("Invalid value %s for parameter '%s'", value, typeError.Field))
		}

		return contract.NewError(contract.ErrorCodeBadRequest, err.Error())
	}

	return p.validate(input)
}

func (p *HTTPRequestParser) ParseQuery(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.QueryParser(input); err != nil {
		return contract.NewError(contract.ErrorCodeBadRequest, err.Error())
	}

	return p.validate(input)
}

// ParseForm reads the non-file fields of a multipart or urlencoded form.
func (p *HTTPRequestParser) ParseForm(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.BodyParser(input); err != nil {
		return contract.NewError(contract.ErrorCodeBadRequest, err.Error())
	}

	return p.validate(input)
}

func (p *HTTPRequestParser) validate(input interface{}) *contract.Error {
	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func dereference(value interface{}) interface{} {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}

		return v.Elem().Interface()
	}

	return value
}

func newErrorFromValidationError(err error) *contract.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return contract.NewErrorWith(contract.ErrorCodeInternalError, "request validation failed", err)
	}

	validationErrors := make([]string, 0, len(errs))

	for _, err := range errs {
		field := strcase.ToSnake(err.Field())
		value := dereference(err.Value())

		var vErr string

		switch err.Tag() {
		case "required":
			vErr = fmt.Sprintf("Missing value for required parameter '%s'", field)
		case "semver":
			vErr = fmt.Sprintf("Invalid value %v for parameter '%s': expected MAJOR.MINOR.PATCH", value, field)
		default:
			vErr = fmt.Sprintf("Invalid value %v for parameter '%s' supplied", value, field)
		}

		validationErrors = append(validationErrors, vErr)
	}

	return invalidParameter(strings.Join(validationErrors, ", "))
}

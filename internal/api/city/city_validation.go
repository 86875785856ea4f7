package city

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(err)
	}

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// getValidationMessage returns the client-facing message for a field error.
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("Field %q is required and must be a string.", e.Field())
	default:
		return fmt.Sprintf("Field %q failed validation: %s", e.Field(), e.Tag())
	}
}

// toValidationError converts the first validator error into a types.ValidationError.
func toValidationError(err error) error {
	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) && len(validatorErrs) > 0 {
		first := validatorErrs[0]
		return types.NewValidationError(first.Field(), getValidationMessage(first))
	}
	return err
}

func validateCreate(req types.CreateCityRequest) error {
	if err := validate.Struct(req); err != nil {
		return toValidationError(err)
	}
	return nil
}

func validateUpdate(req types.UpdateCityRequest) error {
	if req.Name == nil && req.Country == nil {
		return types.NewValidationError("", "Please provide at least one field to update (name or country).")
	}
	if req.Name != nil {
		if err := validate.Var(*req.Name, "notblank"); err != nil {
			return types.NewValidationError("name", `Field "name" must be a non-empty string.`)
		}
	}
	if req.Country != nil {
		if err := validate.Var(*req.Country, "notblank"); err != nil {
			return types.NewValidationError("country", `Field "country" must be a non-empty string.`)
		}
	}
	return nil
}

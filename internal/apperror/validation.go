package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts validator.ValidationErrors into a Validation error
// with one detail per failing field. It returns false for any other error.
func FromValidator(err error) (*AppError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	appErr := Validation("validation failed")
	for _, fe := range verrs {
		appErr.WithDetail(fe.Field(), fieldMessage(fe))
	}
	return appErr, true
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "shipmode":
		return fmt.Sprintf("%s must be LAND or MARITIME", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

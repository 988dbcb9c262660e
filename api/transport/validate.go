package transport

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/notifly/backend/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a request struct against its schema tags and converts any
// violation into a domain validation error, so nothing malformed ever reaches
// the store.
func Validate(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			return domain.NewError(domain.ErrCodeInvalid, describe(verrs))
		}
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fieldName(fe)))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fieldName(fe), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must not be empty", fieldName(fe)))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fieldName(fe)))
		}
	}
	return strings.Join(parts, "; ")
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "field"
	}
	// match the JSON casing used on the wire
	return strings.ToLower(name[:1]) + name[1:]
}

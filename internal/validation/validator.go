package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"campusconnect/internal/auth"
	apperrors "campusconnect/internal/errors"
)

// Validator wraps go-playground/validator for Echo and reports failures as
// *apperrors.ValidationError keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the strongpassword rule and an institutional
// rule that accepts only emails ending in emailDomain, case-insensitively.
func New(emailDomain string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return len(auth.PasswordPolicyViolations(fl.Field().String())) == 0
	})
	domain := strings.ToLower(emailDomain)
	_ = v.RegisterValidation("institutional", func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(strings.TrimSpace(fl.Field().String())), domain)
	})
	return &Validator{validate: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "strongpassword" {
			for _, msg := range auth.PasswordPolicyViolations(fmt.Sprint(fe.Value())) {
				out.Fields = append(out.Fields, apperrors.FieldError{Field: fe.Field(), Message: msg})
			}
			continue
		}
		out.Fields = append(out.Fields, apperrors.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "institutional":
		return "must be an institutional email address"
	case "hexadecimal":
		return "must be hexadecimal"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

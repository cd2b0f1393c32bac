package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// BusinessValidator wraps go-playground/validator with the domain rules
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	// Report JSON names rather than Go field names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate runs struct tags and returns nil when s is valid
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err == nil {
		return nil
	}
	return bv.toValidationErrors(err)
}

func (bv *BusinessValidator) toValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

// ValidateEnrollment checks the request shape and the credentials its method needs
func (bv *BusinessValidator) ValidateEnrollment(req *EnrollmentRequest) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, bv.Validate(req)...)

	switch req.Method {
	case MethodPassword, MethodSignUp:
		if strings.TrimSpace(req.Email) == "" {
			errs = append(errs, ValidationError{Field: "email", Message: "is required", Rule: "required"})
		}
		if req.Password == "" {
			errs = append(errs, ValidationError{Field: "password", Message: "is required", Rule: "required"})
		}
	case MethodFederated:
		if req.Code == "" {
			errs = append(errs, ValidationError{Field: "code", Message: "is required", Rule: "required"})
		}
	}

	return errs
}

// ProfileComplete reports whether every required profile field is filled
func (bv *BusinessValidator) ProfileComplete(info models.StudentInfo) ValidationErrors {
	return bv.Validate(&info)
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	// Page labels are short printable strings
	bv.validate.RegisterValidation("page_label", func(fl validator.FieldLevel) bool {
		page := strings.TrimSpace(fl.Field().String())
		if page == "" || len(page) > 255 {
			return false
		}
		for _, r := range page {
			if !unicode.IsPrint(r) {
				return false
			}
		}
		return true
	})

	// Whitespace alone does not fill a required field
	bv.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "not_blank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "user_role":
		return "must be a valid user role"
	case "page_label":
		return "must be a printable label of at most 255 characters"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}

// ABOUTME: Form input validation using go-playground/validator struct tags
// ABOUTME: Translates field errors into short user-facing messages

package helpdesk

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" {
				return f.Name
			}
			return name
		})
		if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
			panic(err)
		}
	})
	return validate
}

// maxBytes limits the encoded length of a string, unlike max which counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// ValidationError lists every problem found in a submitted form.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidInput) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// validateStruct runs tag validation and converts failures into a ValidationError.
func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating input: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	default:
		return fe.Error()
	}
}

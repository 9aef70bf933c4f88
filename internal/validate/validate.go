// Package validate contains input validation helpers.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dimidiyP/shinomontaz-base/internal/errs"
)

// usernameRe enforces a conservative username pattern.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// phoneRe accepts the formats staff actually type: digits with optional
// leading plus, spaces, dashes and parentheses.
var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{4,24}$`)

const minPasswordLen = 4

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	return v
}

// Username validates a username string for length and allowed characters.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

// Password checks a new account password. The backend hashes whatever it
// receives, so only emptiness and a minimal length are checked here.
func Password(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("password is required")
	}
	if utf8.RuneCountInString(s) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Email validates an e-mail address.
func Email(s string) error {
	if err := validate.Var(s, "required,email"); err != nil {
		return errors.New("invalid email")
	}
	return nil
}

// Phone validates a customer phone number.
func Phone(s string) error {
	if err := validate.Var(s, "required,phone"); err != nil {
		return errors.New("invalid phone")
	}
	return nil
}

// Struct runs the `validate` tags of v and reports failures as a
// validation error with per-field details keyed by JSON name.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *errs.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := map[string]string{}
		for _, fieldErr := range verrs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return errs.New(errs.CodeValidation, "validation failed").WithDetails(details)
	}
	return errs.Wrap(errs.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}

// Package contact validates contact-form input and drives a single
// submission through the email relay.
package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinMessageLength is the shortest accepted message, counted after trimming.
const MinMessageLength = 10

// Form is the visitor's input. Field names in the form tag match the HTML
// input names and the keys of Errors.
type Form struct {
	Name    string `form:"name" validate:"trimmed_required"`
	Email   string `form:"email" validate:"required,loose_email"`
	Subject string `form:"subject" validate:"trimmed_required"`
	Message string `form:"message" validate:"trimmed_required,trimmed_min=10"`
	Phone   string `form:"phone" validate:"omitempty,phone"`
}

// Errors maps a field name to its message. An empty map means the form is
// valid.
type Errors map[string]string

// Has reports whether field failed validation.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern = regexp.MustCompile(`^[0-9+\-(). ]{7,20}$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("form"); name != "" {
				return name
			}
			return strings.ToLower(f.Name)
		})

		_ = v.RegisterValidation("trimmed_required", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})

		_ = v.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
		})

		_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})

		validateInst = v
	})

	return validateInst
}

var messages = map[string]map[string]string{
	"name": {
		"trimmed_required": "Name is required",
	},
	"email": {
		"required":    "Email is required",
		"loose_email": "Email is invalid",
	},
	"subject": {
		"trimmed_required": "Subject is required",
	},
	"message": {
		"trimmed_required": "Message is required",
		"trimmed_min":      "Message must be at least 10 characters",
	},
	"phone": {
		"phone": "Phone number is invalid",
	},
}

// Validate checks every field and returns the failures. It has no side
// effects.
func Validate(f Form) Errors {
	out := Errors{}

	// A blank phone is an absent phone, both here and in the relay params.
	f.Phone = strings.TrimSpace(f.Phone)

	err := validatorInstance().Struct(f)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = "Form could not be validated"
		return out
	}

	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out[field] = msg
	}
	return out
}

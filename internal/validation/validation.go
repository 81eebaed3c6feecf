// Package validation checks request payloads with go-playground/validator,
// reporting fields by their JSON names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hyperjump/montero/internal/models"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// catalog values contain spaces, which oneof cannot express
	_ = v.RegisterValidation("priority", catalog(models.Priorities))
	_ = v.RegisterValidation("status", catalog(models.Statuses))
	_ = v.RegisterValidation("idtype", catalog(models.IDTypes))
	return v
}

func catalog(options []models.Option) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, o := range options {
			if o.Value == value {
				return true
			}
		}
		return false
	}
}

func getValidator() *validator.Validate {
	once.Do(func() { validate = newValidator() })
	return validate
}

// FieldError is a single rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error lists every violation found in a payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, " and ")
}

// FieldNames returns the offending field names in order.
func (e *Error) FieldNames() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Field
	}
	return out
}

// ValidateStruct validates s against its validate tags.
func ValidateStruct(s any) error {
	return checkError(getValidator().Struct(s))
}

// ValidateOneOf checks that value is empty or one of enums. Enums must not
// contain spaces.
func ValidateOneOf(value string, enums ...string) error {
	tags := "omitempty,oneof=" + strings.Join(enums, " ")
	return checkError(getValidator().Var(value, tags))
}

// ValidateCase validates a case creation payload.
func ValidateCase(in *models.CaseInput) error {
	if in == nil {
		return &Error{Fields: []FieldError{{Field: "body", Rule: "required", Message: "body is required"}}}
	}
	return ValidateStruct(in)
}

func checkError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   e.Field(),
			Rule:    e.Tag(),
			Message: message(e),
		})
	}
	return out
}

func message(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return notRecognized(e, e.Param())
	case "priority":
		return notRecognized(e, strings.Join(models.OptionValues(models.Priorities), ", "))
	case "status":
		return notRecognized(e, strings.Join(models.OptionValues(models.Statuses), ", "))
	case "idtype":
		return notRecognized(e, strings.Join(models.OptionValues(models.IDTypes), ", "))
	}
	return e.Error()
}

func notRecognized(e validator.FieldError, supported string) string {
	msg := fmt.Sprintf("error value %q", e.Value())
	if e.Field() != "" {
		msg += fmt.Sprintf(" for key %q", e.Field())
	}
	return msg + fmt.Sprintf(" not recognized, only support %q", supported)
}

// ValidatePatch validates the fields a case update sets.
func ValidatePatch(p *models.CasePatch) error {
	if p == nil {
		return nil
	}
	return ValidateStruct(p)
}

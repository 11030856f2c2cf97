// Package validation checks worker inputs: struct rules through go-playground/validator and
// raw job variables against JSON schemas from the activity registry.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"study-abroad-engine/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldViolation is one failed struct rule.
type FieldViolation struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Param   string      `json:"param,omitempty"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

// RequestValidationError collects every violation found in one struct.
type RequestValidationError struct {
	violations []FieldViolation
}

func (ve *RequestValidationError) Violations() []FieldViolation {
	return ve.violations
}

func (ve *RequestValidationError) Error() string {
	if len(ve.violations) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.violations))
	for i, v := range ve.violations {
		messages[i] = v.Message
	}
	return strings.Join(messages, "; ")
}

// Details returns the violations keyed for error metadata.
func (ve *RequestValidationError) Details() map[string]interface{} {
	fields := make([]map[string]interface{}, len(ve.violations))
	for i, v := range ve.violations {
		fields[i] = map[string]interface{}{
			"field":   v.Field,
			"tag":     v.Tag,
			"message": v.Message,
		}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the shared validator. Field names in messages follow the json tags.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterStructValidation(profileBudget, models.StudentProfile{})
	})
	return validate
}

// profileBudget rejects a minimum budget above a stated maximum.
func profileBudget(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.StudentProfile)
	if p.BudgetMax > 0 && p.BudgetMin > p.BudgetMax {
		sl.ReportError(p.BudgetMin, "budgetMin", "BudgetMin", "ltefield", "budgetMax")
	}
}

// ValidateStruct returns nil when s passes every rule.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{violations: []FieldViolation{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	violations := make([]FieldViolation, len(fieldErrs))
	for i, fe := range fieldErrs {
		violations[i] = FieldViolation{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translate(fe),
		}
	}
	return &RequestValidationError{violations: violations}
}

// ValidateProfile checks score ranges, the e-mail format and the budget order.
func ValidateProfile(p models.StudentProfile) error {
	if verr := ValidateStruct(p); verr != nil {
		return verr
	}
	return nil
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
}

var paramTemplates = map[string]string{
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"gt":       "%s must be greater than %s",
	"lt":       "%s must be less than %s",
	"oneof":    "%s must be one of: %s",
	"ltefield": "%s must not exceed %s",
}

func translate(fe validator.FieldError) string {
	if tmpl, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := paramTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

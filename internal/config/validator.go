package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ConfigError is a validation failure for one field.
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every field failure.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks every field constraint and the cross-field window rules.
func Validate(c *Config) error {
	var details ValidationErrors

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			details = append(details, ConfigError{
				Field:   fe.Namespace(),
				Message: formatValidationError(fe),
				Value:   fe.Value(),
			})
		}
	}

	t := c.Thresholds
	if t.SpiralMinCount > t.SpiralWindow+1 {
		details = append(details, ConfigError{
			Field:   "Config.Thresholds.SpiralMinCount",
			Message: "cannot exceed spiral window plus the current record",
			Value:   t.SpiralMinCount,
		})
	}
	if t.RuminationMinCount > t.RuminationWindow+1 {
		details = append(details, ConfigError{
			Field:   "Config.Thresholds.RuminationMinCount",
			Message: "cannot exceed rumination window plus the current record",
			Value:   t.RuminationMinCount,
		})
	}
	if t.TrendWindow%2 != 0 {
		details = append(details, ConfigError{
			Field:   "Config.Thresholds.TrendWindow",
			Message: "must be even so both halves are the same size",
			Value:   t.TrendWindow,
		})
	}
	if w := max(t.SpiralWindow, t.TrendWindow, t.RuminationWindow, t.AbsolutistWindow); c.Memory.HistoryLimit < w {
		details = append(details, ConfigError{
			Field:   "Config.Memory.HistoryLimit",
			Message: fmt.Sprintf("must cover the largest detector window (%d)", w),
			Value:   c.Memory.HistoryLimit,
		})
	}

	if len(details) > 0 {
		return details
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers canopy-specific validation rules.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("url_regex", validateURLRegex); err != nil {
		return fmt.Errorf("failed to register url_regex validator: %w", err)
	}
	return nil
}

// validateURLRegex checks that a CORS url pattern compiles.
func validateURLRegex(fl validator.FieldLevel) bool {
	pattern := fl.Field().String()
	if pattern == "" {
		return false
	}
	_, err := regexp.Compile(pattern)
	return err == nil
}

// Validate validates the config using struct tags plus cross-field
// rules the tags cannot express.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateCORSRules(v); err != nil {
		return err
	}
	if c.Session.Backend == "redis" && c.Session.Redis.Addr == "" {
		return errors.New("session.redis.addr is required for the redis backend")
	}
	return nil
}

// validateCORSRules checks each rule's pattern compiles. Done here
// rather than at rule-set construction so a broken config fails fast
// with the rule index.
func (c *Config) validateCORSRules(v *validator.Validate) error {
	for i, rule := range c.CORS {
		if err := v.Var(rule.URLRegex, "required,url_regex"); err != nil {
			return fmt.Errorf("cors[%d]: url_regex %q is not a valid pattern", i, rule.URLRegex)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// actionable messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required (%s)", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "url_regex":
		return fmt.Sprintf("%s must be a valid regular expression", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

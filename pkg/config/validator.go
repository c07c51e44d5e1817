package config

import (
	"fmt"
)

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validateCookie(); err != nil {
		return fmt.Errorf("session cookie validation failed: %w", err)
	}

	if err := v.validateSSE(); err != nil {
		return fmt.Errorf("SSE validation failed: %w", err)
	}

	if err := v.validateSelfHeal(); err != nil {
		return fmt.Errorf("self_heal validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateCookie() error {
	c := v.cfg.SessionCookie

	if c.Name == "" {
		return NewValidationError("session_cookie", "name", "", ErrMissingRequiredField)
	}

	switch c.SameSite {
	case "lax", "strict", "none":
	default:
		return NewValidationError("session_cookie", c.Name, "same_site",
			fmt.Errorf("%w: must be one of lax, strict, none, got %q", ErrInvalidValue, c.SameSite))
	}

	if c.TTL <= 0 {
		return NewValidationError("session_cookie", c.Name, "ttl",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, c.TTL))
	}

	return nil
}

func (v *Validator) validateSSE() error {
	if v.cfg.SSEPingInterval <= 0 {
		return NewValidationError("sse", "ping_interval", "",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, v.cfg.SSEPingInterval))
	}
	return nil
}

func (v *Validator) validateSelfHeal() error {
	if v.cfg.SelfHeal.MaxIterations < 1 {
		return NewValidationError("self_heal", "max_iterations", "",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, v.cfg.SelfHeal.MaxIterations))
	}
	return nil
}

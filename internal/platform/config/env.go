// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Validator is implemented by configs that check their own invariants once
// the environment has been applied.
type Validator interface {
	Validate() error
}

// ParseEnv fills target from environment variables, splitting slice fields on
// commas, then runs target's Validate method when it has one.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate env: %w", err)
		}
	}
	return nil
}

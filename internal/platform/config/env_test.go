package config

import (
	"errors"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port     int      `env:"FLAGCHECKER_TEST_PORT" envDefault:"5001"`
	Services []string `env:"FLAGCHECKER_TEST_SERVICES" envDefault:"CookieService"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 5001 {
		t.Fatalf("expected default port 5001, got %d", cfg.Port)
	}
	if len(cfg.Services) != 1 || cfg.Services[0] != "CookieService" {
		t.Fatalf("unexpected default services %v", cfg.Services)
	}
}

func TestParseEnvSplitsSlices(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FLAGCHECKER_TEST_SERVICES", "CookieService,Bakery")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if len(cfg.Services) != 2 || cfg.Services[1] != "Bakery" {
		t.Fatalf("unexpected services %v", cfg.Services)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FLAGCHECKER_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

type validatedConfig struct {
	Teams int `env:"FLAGCHECKER_TEST_TEAMS" envDefault:"10"`
}

var errNegativeTeams = errors.New("negative teams")

func (c *validatedConfig) Validate() error {
	if c.Teams < 0 {
		return errNegativeTeams
	}
	return nil
}

func TestParseEnvRunsValidate(t *testing.T) {
	var cfg validatedConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}

	t.Setenv("FLAGCHECKER_TEST_TEAMS", "-1")
	err := ParseEnv(&cfg)
	if !errors.Is(err, errNegativeTeams) {
		t.Fatalf("error = %v, want errNegativeTeams", err)
	}
	if !strings.Contains(err.Error(), "validate env:") {
		t.Fatalf("expected validate env prefix, got %v", err)
	}
}

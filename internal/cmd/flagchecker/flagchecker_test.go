package flagchecker

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("flagchecker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":5001" {
		t.Fatalf("http addr = %q, want :5001", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("grpc addr = %q, want empty", cfg.GRPCAddr)
	}
	if cfg.Teams != 10 {
		t.Fatalf("teams = %d, want 10", cfg.Teams)
	}
	if len(cfg.Services) != 1 || cfg.Services[0] != "CookieService" {
		t.Fatalf("services = %v", cfg.Services)
	}
	if cfg.MaxDelaySeconds != 2 {
		t.Fatalf("max delay = %d, want 2", cfg.MaxDelaySeconds)
	}
	if cfg.Store != "memory" || cfg.SQLitePath != ":memory:" {
		t.Fatalf("store = %q path = %q", cfg.Store, cfg.SQLitePath)
	}
}

func TestParseConfigEnvThenFlags(t *testing.T) {
	t.Setenv("FLAGCHECKER_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("FLAGCHECKER_TEAMS", "20")
	t.Setenv("FLAGCHECKER_SERVICES", "CookieService,Bakery")
	t.Setenv("FLAGCHECKER_STORE", "sqlite")

	fs := flag.NewFlagSet("flagchecker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:7001", "-max-delay", "0"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7001" {
		t.Fatalf("http addr = %q, want flag value", cfg.HTTPAddr)
	}
	if cfg.Teams != 20 {
		t.Fatalf("teams = %d, want env value 20", cfg.Teams)
	}
	if len(cfg.Services) != 2 {
		t.Fatalf("services = %v", cfg.Services)
	}
	server := cfg.ServerConfig()
	if server.MaxDelay != 0 {
		t.Fatalf("max delay = %v, want 0", server.MaxDelay)
	}
	if server.Store != "sqlite" {
		t.Fatalf("store = %q, want sqlite", server.Store)
	}
}

func TestParseConfigPositionalTeams(t *testing.T) {
	fs := flag.NewFlagSet("flagchecker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-teams", "3", "25"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Teams != 25 {
		t.Fatalf("teams = %d, want positional 25", cfg.Teams)
	}
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "non numeric teams", args: []string{"many"}},
		{name: "too many args", args: []string{"1", "2"}},
		{name: "negative teams", args: []string{"-teams", "-1"}},
		{name: "negative delay", args: []string{"-max-delay", "-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("flagchecker", flag.ContinueOnError)
			if _, err := ParseConfig(fs, tt.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseConfigValidatesEnv(t *testing.T) {
	t.Setenv("FLAGCHECKER_TEAMS", "-4")

	fs := flag.NewFlagSet("flagchecker", flag.ContinueOnError)
	_, err := ParseConfig(fs, nil)
	if err == nil || !strings.Contains(err.Error(), "validate env") {
		t.Fatalf("error = %v, want env validation failure", err)
	}
}

func TestServerConfigConvertsDelay(t *testing.T) {
	cfg := Config{HTTPAddr: ":5001", MaxDelaySeconds: 2}
	if got := cfg.ServerConfig().MaxDelay; got != 2*time.Second {
		t.Fatalf("max delay = %v, want 2s", got)
	}
}

// Package flagchecker parses checker simulator flags and launches the service.
package flagchecker

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	entrypoint "github.com/louisbranch/flagchecker/internal/platform/cmd"
	server "github.com/louisbranch/flagchecker/internal/services/checker/app"
)

// Config holds flagchecker command configuration.
type Config struct {
	HTTPAddr        string   `env:"FLAGCHECKER_HTTP_ADDR" envDefault:":5001"`
	GRPCAddr        string   `env:"FLAGCHECKER_GRPC_ADDR"`
	Teams           int      `env:"FLAGCHECKER_TEAMS" envDefault:"10"`
	Services        []string `env:"FLAGCHECKER_SERVICES" envDefault:"CookieService"`
	MaxDelaySeconds int      `env:"FLAGCHECKER_MAX_DELAY_SECONDS" envDefault:"2"`
	Store           string   `env:"FLAGCHECKER_STORE" envDefault:"memory"`
	SQLitePath      string   `env:"FLAGCHECKER_SQLITE_PATH" envDefault:":memory:"`
	MaxBodyBytes    int64    `env:"FLAGCHECKER_MAX_BODY_BYTES" envDefault:"1048576"`
}

// ParseConfig parses environment and flags into Config. A single positional
// argument overrides the team count.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The checker HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The gRPC health listen address (empty disables)")
	fs.IntVar(&cfg.Teams, "teams", cfg.Teams, "Number of teams listed by /flagIds")
	fs.IntVar(&cfg.MaxDelaySeconds, "max-delay", cfg.MaxDelaySeconds, "Longest artificial delay per batch, in seconds")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "Accepted flag store backend (memory or sqlite)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		teams, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return Config{}, fmt.Errorf("parse team count %q: %w", fs.Arg(0), err)
		}
		cfg.Teams = teams
	default:
		return Config{}, fmt.Errorf("expected at most one positional argument, got %d", fs.NArg())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative counts and sizes.
func (c *Config) Validate() error {
	if c.Teams < 0 {
		return errors.New("team count must be non-negative")
	}
	if c.MaxDelaySeconds < 0 {
		return errors.New("max delay must be non-negative")
	}
	if c.MaxBodyBytes < 0 {
		return errors.New("max body bytes must be non-negative")
	}
	return nil
}

// ServerConfig maps command configuration onto the checker server.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		HTTPAddr:     c.HTTPAddr,
		GRPCAddr:     c.GRPCAddr,
		Teams:        c.Teams,
		Services:     c.Services,
		MaxDelay:     time.Duration(c.MaxDelaySeconds) * time.Second,
		Store:        c.Store,
		SQLitePath:   c.SQLitePath,
		MaxBodyBytes: c.MaxBodyBytes,
	}
}

// Run starts the checker simulator.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFlagChecker, func(ctx context.Context) error {
		return server.Run(ctx, cfg.ServerConfig())
	})
}

// Package discovery generates the synthetic flag id listing teams use to
// find credentials planted in opponent services.
package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/louisbranch/flagchecker/internal/platform/random"
)

const (
	// DefaultService is the service listed when none is configured.
	DefaultService = "CookieService"
	// DefaultTeams is the number of teams considered for each service.
	DefaultTeams = 10

	usernameLength = 8
	passwordLength = 16
	slotsPerTeam   = 3
	letters        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ErrInvalidTeams indicates a negative team count.
var ErrInvalidTeams = errors.New("team count must be non-negative")

// Credential is one planted username and password pair.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Listing maps service name -> team id -> slot -> credential.
type Listing map[string]map[string]map[string]Credential

// Source draws uniform integers in [0, n).
type Source interface {
	Intn(n int) int
}

// Config controls the generated listing.
type Config struct {
	Services []string
	Teams    int
}

// Feed builds fresh listings on every call. It shares no state with the
// submission evaluator.
type Feed struct {
	mu       sync.Mutex
	source   Source
	services []string
	teams    int
}

// NewFeed builds a feed. A nil source is replaced by a crypto-seeded one.
func NewFeed(config Config, source Source) (*Feed, error) {
	if config.Teams < 0 {
		return nil, ErrInvalidTeams
	}
	services := make([]string, 0, len(config.Services))
	for _, name := range config.Services {
		if name != "" {
			services = append(services, name)
		}
	}
	if len(services) == 0 {
		services = []string{DefaultService}
	}
	if source == nil {
		rng, err := random.NewRand()
		if err != nil {
			return nil, fmt.Errorf("seed discovery feed: %w", err)
		}
		source = rng
	}
	return &Feed{source: source, services: services, teams: config.Teams}, nil
}

// Generate returns a listing where each team appears with probability one
// half and, when present, carries three credential slots.
func (f *Feed) Generate() Listing {
	f.mu.Lock()
	defer f.mu.Unlock()

	listing := make(Listing, len(f.services))
	for _, service := range f.services {
		teams := make(map[string]map[string]Credential)
		for team := 0; team < f.teams; team++ {
			if f.source.Intn(2) != 0 {
				continue
			}
			slots := make(map[string]Credential, slotsPerTeam)
			for slot := 0; slot < slotsPerTeam; slot++ {
				slots[strconv.Itoa(slot)] = Credential{
					Username: f.randomString(usernameLength),
					Password: f.randomString(passwordLength),
				}
			}
			teams[strconv.Itoa(team)] = slots
		}
		listing[service] = teams
	}
	return listing
}

func (f *Feed) randomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = letters[f.source.Intn(len(letters))]
	}
	return string(b)
}

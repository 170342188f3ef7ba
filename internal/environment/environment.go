// Package environment selects which backend the console talks to.
package environment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrUnknownEnvironment is returned when parsing a name that is neither dev nor prod.
var ErrUnknownEnvironment = errors.New("unknown environment")

type Environment string

const (
	Dev  Environment = "dev"
	Prod Environment = "prod"
)

const selectionFile = "environment.json"

// Config describes one backend target.
type Config struct {
	Name             Environment `json:"name" yaml:"name"`
	Label            string      `json:"label" yaml:"label"`
	APIURL           string      `json:"apiUrl" yaml:"apiUrl"`
	GraphQLURL       string      `json:"graphqlUrl" yaml:"graphqlUrl"`
	UsesRefreshToken bool        `json:"useRefreshToken" yaml:"useRefreshToken"`
}

var defaults = map[Environment]Config{
	Dev: {
		Name:             Dev,
		Label:            "Development",
		APIURL:           "https://api.my-twin.io",
		GraphQLURL:       "https://api.my-twin.io/graphql",
		UsesRefreshToken: false,
	},
	Prod: {
		Name:             Prod,
		Label:            "Production",
		APIURL:           "https://mytwin-backend.osc-fr1.scalingo.io",
		GraphQLURL:       "https://mytwin-backend.osc-fr1.scalingo.io/graphql",
		UsesRefreshToken: true,
	},
}

// Defaults returns the built-in configuration of every environment.
func Defaults() map[Environment]Config {
	out := make(map[Environment]Config, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Parse converts user input into an Environment.
func Parse(name string) (Environment, error) {
	switch Environment(name) {
	case Dev, Prod:
		return Environment(name), nil
	default:
		return "", fmt.Errorf("%w: %q (expected dev or prod)", ErrUnknownEnvironment, name)
	}
}

type selection struct {
	Selected Environment `json:"selected_environment"`
}

// Selector persists the active environment and notifies subscribers of changes.
type Selector struct {
	baseDir string
	configs map[Environment]Config

	mu          sync.Mutex
	current     Environment
	subscribers map[int]func(Environment)
	nextID      int
}

// NewSelector loads the persisted selection from baseDir. overrides replace
// individual fields of the built-in configs when non-empty.
func NewSelector(baseDir string, overrides map[Environment]Config) (*Selector, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	configs := Defaults()
	for name, o := range overrides {
		cfg, ok := configs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
		}
		if o.Label != "" {
			cfg.Label = o.Label
		}
		if o.APIURL != "" {
			cfg.APIURL = o.APIURL
		}
		if o.GraphQLURL != "" {
			cfg.GraphQLURL = o.GraphQLURL
		}
		configs[name] = cfg
	}

	s := &Selector{
		baseDir:     baseDir,
		configs:     configs,
		subscribers: make(map[int]func(Environment)),
	}
	s.current = s.load()

	return s, nil
}

// Get returns the active environment.
func (s *Selector) Get() Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set persists env and publishes it to every subscriber before returning.
// It does not touch the session; callers must reset it.
func (s *Selector) Set(env Environment) error {
	if _, err := Parse(string(env)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(env); err != nil {
		return err
	}
	s.current = env

	log.Info().Str("environment", string(env)).Msg("environment selected")

	// Notified under the lock so concurrent Sets are observed in order.
	for _, id := range s.subscriberIDs() {
		s.subscribers[id](env)
	}

	return nil
}

// Subscribe registers fn for every subsequent change. The returned function
// removes the subscription. fn must not call Set or Subscribe.
func (s *Selector) Subscribe(fn func(Environment)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Config returns the configuration of the active environment.
func (s *Selector) Config() Config {
	return s.ConfigFor(s.Get())
}

// ConfigFor returns the configuration of env.
func (s *Selector) ConfigFor(env Environment) Config {
	return s.configs[env]
}

// All lists every environment, dev first.
func (s *Selector) All() []Config {
	return []Config{s.configs[Dev], s.configs[Prod]}
}

// subscriberIDs returns ids in registration order.
func (s *Selector) subscriberIDs() []int {
	ids := make([]int, 0, len(s.subscribers))
	for id := 0; id < s.nextID; id++ {
		if _, ok := s.subscribers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Selector) path() string {
	return filepath.Join(s.baseDir, selectionFile)
}

// load defaults to Dev when the file is missing or malformed.
func (s *Selector) load() Environment {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return Dev
	}

	var sel selection
	if err := json.Unmarshal(data, &sel); err != nil {
		log.Warn().Err(err).Msg("ignoring malformed environment selection")
		return Dev
	}

	env, err := Parse(string(sel.Selected))
	if err != nil {
		log.Warn().Err(err).Msg("ignoring malformed environment selection")
		return Dev
	}
	return env
}

func (s *Selector) save(env Environment) error {
	data, err := json.Marshal(selection{Selected: env})
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	tempPath := s.path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write environment: %w", err)
	}
	if err := os.Rename(tempPath, s.path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save environment: %w", err)
	}
	return nil
}

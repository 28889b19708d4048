// Package registry maps game ids to environment constructors. Registration
// is explicit configuration: populate the table during startup, then Freeze
// it before serving lookups. There are no import-time side effects.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/plastic-labs/textarena/pkg/core"
)

// Spec describes one registered game: its constructor, supported player
// range and turn-order mode.
type Spec struct {
	ID         string
	MinPlayers int
	MaxPlayers int
	Mode       core.TurnMode
	New        func(options map[string]any) core.Env
}

// Registry is a populate-then-freeze lookup table.
type Registry struct {
	mu     sync.RWMutex
	games  map[string]Spec
	frozen bool
}

func New() *Registry {
	return &Registry{games: make(map[string]Spec)}
}

// Register adds a game. It fails on duplicate ids, on registration after
// Freeze, and on specs without a constructor.
func (r *Registry) Register(spec Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen: cannot register %q", spec.ID)
	}
	if spec.ID == "" {
		return fmt.Errorf("game spec has no id")
	}
	if spec.New == nil {
		return fmt.Errorf("game %q has no constructor", spec.ID)
	}
	if spec.MinPlayers < 1 || spec.MaxPlayers < spec.MinPlayers {
		return fmt.Errorf("game %q has invalid player range [%d, %d]", spec.ID, spec.MinPlayers, spec.MaxPlayers)
	}
	if _, exists := r.games[spec.ID]; exists {
		return fmt.Errorf("game %q is already registered", spec.ID)
	}
	r.games[spec.ID] = spec
	return nil
}

// Freeze closes the table for registration. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Make constructs a fresh environment instance for the given game. Each
// call returns an independent instance owning its own state.
func (r *Registry) Make(id string, options map[string]any) (core.Env, Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.games[id]
	if !ok {
		return nil, Spec{}, fmt.Errorf("unknown game %q", id)
	}
	return spec.New(options), spec, nil
}

// Lookup returns the spec for a game id without constructing it.
func (r *Registry) Lookup(id string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.games[id]
	return spec, ok
}

// IDs lists registered games in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Default is the process-wide table used by the CLI.
var Default = New()

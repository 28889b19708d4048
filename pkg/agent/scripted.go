package agent

import (
	"context"
	"math/rand"
	"sync"

	"github.com/plastic-labs/textarena/pkg/core"
)

// ScriptedAgent plays a fixed action sequence, repeating the final action
// once the script is exhausted. Useful for tests and offline play.
type ScriptedAgent struct {
	id      string
	actions []core.Action
	next    int
	mu      sync.Mutex
}

func NewScriptedAgent(id string, actions ...core.Action) *ScriptedAgent {
	return &ScriptedAgent{id: id, actions: actions}
}

func (a *ScriptedAgent) ID() string { return a.id }

func (a *ScriptedAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.actions) == 0 {
		return "", nil
	}
	action := a.actions[a.next]
	if a.next < len(a.actions)-1 {
		a.next++
	}
	return action, nil
}

// RandomAgent picks uniformly among the legal actions when the environment
// enumerates them, and plays a fallback action otherwise.
type RandomAgent struct {
	id       string
	fallback core.Action
	rng      *rand.Rand
	mu       sync.Mutex
}

func NewRandomAgent(id string, seed int64, fallback core.Action) *RandomAgent {
	return &RandomAgent{
		id:       id,
		fallback: fallback,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (a *RandomAgent) ID() string { return a.id }

func (a *RandomAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	return a.fallback, nil
}

func (a *RandomAgent) ActLegal(ctx context.Context, obs core.Observation, legal []core.Action) (core.Action, error) {
	if len(legal) == 0 {
		return a.fallback, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return legal[a.rng.Intn(len(legal))], nil
}

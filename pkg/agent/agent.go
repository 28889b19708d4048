// Package agent defines the decision-maker boundary: anything that can turn
// an observation into an action, whether model-backed or scripted.
package agent

import (
	"context"

	"github.com/plastic-labs/textarena/pkg/core"
)

// Agent wraps one decision-maker. Act may block on external I/O (a model
// call); the orchestrator bounds it with a per-turn deadline on ctx.
type Agent interface {
	ID() string
	Act(ctx context.Context, obs core.Observation) (core.Action, error)
}

// LegalAware agents additionally accept the enumerated legal actions when
// the environment can provide them.
type LegalAware interface {
	ActLegal(ctx context.Context, obs core.Observation, legal []core.Action) (core.Action, error)
}

// FuncAgent adapts a closure into an Agent.
type FuncAgent struct {
	AgentID string
	Fn      func(ctx context.Context, obs core.Observation) (core.Action, error)
}

func (a *FuncAgent) ID() string { return a.AgentID }

func (a *FuncAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	return a.Fn(ctx, obs)
}

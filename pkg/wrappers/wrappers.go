// Package wrappers provides composable decorators around an Env. Each
// wrapper owns exactly one inner instance, forming a linear chain. Wrappers
// transform observations, actions or rewards but never bypass the inner
// environment's legality and turn-order enforcement.
package wrappers

import (
	"github.com/plastic-labs/textarena/pkg/core"
)

// Wrapper is the forwarding base. It also forwards the optional
// capabilities (joint stepping, default and enumerated actions) when the
// inner environment has them, so wrapping never hides a capability.
type Wrapper struct {
	inner core.Env
}

func NewWrapper(env core.Env) *Wrapper {
	return &Wrapper{inner: env}
}

// Inner returns the wrapped instance, one link down the chain.
func (w *Wrapper) Inner() core.Env { return w.inner }

func (w *Wrapper) Reset(opts core.ResetOptions) (map[core.PlayerID]core.Observation, error) {
	return w.inner.Reset(opts)
}

func (w *Wrapper) Observation(p core.PlayerID) (core.Observation, error) {
	return w.inner.Observation(p)
}

func (w *Wrapper) IsLegal(p core.PlayerID, a core.Action) bool {
	return w.inner.IsLegal(p, a)
}

func (w *Wrapper) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	return w.inner.Step(p, a)
}

func (w *Wrapper) CurrentPlayer() core.PlayerID { return w.inner.CurrentPlayer() }

func (w *Wrapper) IsTerminal() bool { return w.inner.IsTerminal() }

func (w *Wrapper) Mode() core.TurnMode { return w.inner.Mode() }

func (w *Wrapper) StepJoint(moves core.Moves) (core.StepResult, error) {
	if j, ok := w.inner.(core.JointEnv); ok {
		return j.StepJoint(moves)
	}
	return core.StepResult{}, &core.ConfigurationError{Reason: "wrapped environment does not support joint steps"}
}

func (w *Wrapper) ActivePlayers() []core.PlayerID {
	if j, ok := w.inner.(core.JointEnv); ok {
		return j.ActivePlayers()
	}
	return []core.PlayerID{w.inner.CurrentPlayer()}
}

func (w *Wrapper) DefaultAction(p core.PlayerID) core.Action {
	if d, ok := w.inner.(core.DefaultActioner); ok {
		return d.DefaultAction(p)
	}
	return ""
}

func (w *Wrapper) LegalActions(p core.PlayerID) []core.Action {
	if l, ok := w.inner.(core.LegalActioner); ok {
		return l.LegalActions(p)
	}
	return nil
}

// Unwrap walks the chain down to the innermost environment.
func Unwrap(env core.Env) core.Env {
	for {
		w, ok := env.(interface{ Inner() core.Env })
		if !ok {
			return env
		}
		env = w.Inner()
	}
}

// ObservationTransform rewrites one player's observation.
type ObservationTransform func(p core.PlayerID, obs core.Observation) core.Observation

// ObservationWrapper applies a transform to every observation returned to
// agents, including the initial ones from Reset. Legality and termination
// are untouched.
type ObservationWrapper struct {
	*Wrapper
	transform ObservationTransform
}

func NewObservationWrapper(env core.Env, transform ObservationTransform) *ObservationWrapper {
	return &ObservationWrapper{Wrapper: NewWrapper(env), transform: transform}
}

func (w *ObservationWrapper) Reset(opts core.ResetOptions) (map[core.PlayerID]core.Observation, error) {
	initial, err := w.Wrapper.Reset(opts)
	if err != nil {
		return nil, err
	}
	out := make(map[core.PlayerID]core.Observation, len(initial))
	for p, obs := range initial {
		out[p] = w.transform(p, obs)
	}
	return out, nil
}

func (w *ObservationWrapper) Observation(p core.PlayerID) (core.Observation, error) {
	obs, err := w.Wrapper.Observation(p)
	if err != nil {
		return core.Observation{}, err
	}
	return w.transform(p, obs), nil
}

// ActionTransform rewrites an agent's raw output before the inner
// environment sees it.
type ActionTransform func(p core.PlayerID, a core.Action) core.Action

// ActionWrapper applies the transform consistently to both the legality
// check and the step, so the inner environment always judges the same
// action it is asked to apply.
type ActionWrapper struct {
	*Wrapper
	transform ActionTransform
}

func NewActionWrapper(env core.Env, transform ActionTransform) *ActionWrapper {
	return &ActionWrapper{Wrapper: NewWrapper(env), transform: transform}
}

func (w *ActionWrapper) IsLegal(p core.PlayerID, a core.Action) bool {
	return w.Wrapper.IsLegal(p, w.transform(p, a))
}

func (w *ActionWrapper) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	return w.Wrapper.Step(p, w.transform(p, a))
}

func (w *ActionWrapper) StepJoint(moves core.Moves) (core.StepResult, error) {
	transformed := make(core.Moves, len(moves))
	for p, a := range moves {
		transformed[p] = w.transform(p, a)
	}
	return w.Wrapper.StepJoint(transformed)
}

// RewardTransform rewrites the reward map after a step.
type RewardTransform func(rewards map[core.PlayerID]float64) map[core.PlayerID]float64

// RewardWrapper maps rewards in the step result, e.g. scaling or clipping
// for a training consumer.
type RewardWrapper struct {
	*Wrapper
	transform RewardTransform
}

func NewRewardWrapper(env core.Env, transform RewardTransform) *RewardWrapper {
	return &RewardWrapper{Wrapper: NewWrapper(env), transform: transform}
}

func (w *RewardWrapper) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	res, err := w.Wrapper.Step(p, a)
	if err != nil {
		return res, err
	}
	res.Rewards = w.transform(res.Rewards)
	return res, nil
}

func (w *RewardWrapper) StepJoint(moves core.Moves) (core.StepResult, error) {
	res, err := w.Wrapper.StepJoint(moves)
	if err != nil {
		return res, err
	}
	res.Rewards = w.transform(res.Rewards)
	return res, nil
}

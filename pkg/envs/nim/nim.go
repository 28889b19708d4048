// Package nim implements the take-away game Nim: players alternate removing
// 1..k tokens from a shared pile and whoever takes the last token wins.
// Small and fully deterministic, it is the reference sequential game.
package nim

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/state"
)

const (
	GameID = "nim-v0"

	MinPlayers = 2
	MaxPlayers = 4

	defaultPile    = 21
	defaultMaxTake = 3
)

var takePattern = regexp.MustCompile(`^\[take (\d+)\]$`)

// Env holds one episode of Nim. It owns its state exclusively.
type Env struct {
	st      *state.State
	pile    int
	maxTake int

	initialPile int
	options     map[string]any
}

func New(options map[string]any) core.Env {
	return &Env{options: options}
}

func (e *Env) Mode() core.TurnMode { return core.Sequential }

func (e *Env) Reset(opts core.ResetOptions) (map[core.PlayerID]core.Observation, error) {
	st, err := state.New(opts.NumPlayers, MinPlayers, MaxPlayers)
	if err != nil {
		return nil, err
	}

	pile, err := intOption(mergedOptions(e.options, opts.Options), "pile", defaultPile)
	if err != nil {
		return nil, err
	}
	maxTake, err := intOption(mergedOptions(e.options, opts.Options), "max_take", defaultMaxTake)
	if err != nil {
		return nil, err
	}
	if pile < 1 || maxTake < 1 {
		return nil, &core.ConfigurationError{Reason: fmt.Sprintf("pile=%d and max_take=%d must be positive", pile, maxTake)}
	}

	e.st = st
	e.st.Reset(opts.Seed)
	e.pile = pile
	e.initialPile = pile
	e.maxTake = maxTake
	e.st.SetPhase("playing")

	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf(
		"Nim: the pile holds %d tokens. On your turn, take between 1 and %d tokens with [take N]. Whoever takes the last token wins.",
		pile, maxTake))
	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf("Player %d goes first.", e.st.CurrentPlayer()))

	initial := make(map[core.PlayerID]core.Observation, opts.NumPlayers)
	for p := 0; p < opts.NumPlayers; p++ {
		initial[core.PlayerID(p)] = e.st.Observation(core.PlayerID(p))
	}
	return initial, nil
}

func (e *Env) Observation(p core.PlayerID) (core.Observation, error) {
	if e.st == nil {
		return core.Observation{}, &core.ConfigurationError{Reason: "environment has not been reset"}
	}
	return e.st.Observation(p), nil
}

func (e *Env) CurrentPlayer() core.PlayerID {
	if e.st == nil {
		return 0
	}
	return e.st.CurrentPlayer()
}

func (e *Env) IsTerminal() bool {
	return e.st != nil && e.st.Terminal()
}

func (e *Env) IsLegal(p core.PlayerID, a core.Action) bool {
	if e.st == nil || e.st.Terminal() || p != e.st.CurrentPlayer() {
		return false
	}
	n, ok := parseTake(a)
	return ok && n >= 1 && n <= e.maxTake && n <= e.pile
}

func (e *Env) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	if e.st == nil {
		return core.StepResult{}, &core.ConfigurationError{Reason: "environment has not been reset"}
	}
	if e.st.Terminal() {
		return core.StepResult{}, &core.IllegalActionError{Player: p, Action: a, Reason: "episode is terminal"}
	}
	if p != e.st.CurrentPlayer() {
		return core.StepResult{}, &core.OutOfTurnError{Player: p, Current: e.st.CurrentPlayer()}
	}
	n, ok := parseTake(a)
	if !ok {
		return core.StepResult{}, &core.IllegalActionError{Player: p, Action: a, Reason: "expected [take N]"}
	}
	if n < 1 || n > e.maxTake || n > e.pile {
		return core.StepResult{}, &core.IllegalActionError{
			Player: p, Action: a,
			Reason: fmt.Sprintf("must take between 1 and %d tokens (pile has %d)", e.maxTake, e.pile),
		}
	}

	e.pile -= n
	e.st.IncrementTurn()
	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf("Player %d takes %d. Pile now holds %d.", p, n, e.pile))

	if e.pile == 0 {
		rewards := make(map[core.PlayerID]float64, e.st.NumPlayers())
		for i := 0; i < e.st.NumPlayers(); i++ {
			rewards[core.PlayerID(i)] = -1
		}
		rewards[p] = 1
		info := map[string]any{"winner": int(p)}
		e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf("Player %d took the last token and wins.", p))
		if err := e.st.SetOutcome(rewards, info); err != nil {
			return core.StepResult{}, err
		}
		return core.StepResult{Rewards: e.st.Rewards(), Terminated: true, Info: info}, nil
	}

	e.st.AdvancePlayer()
	return core.StepResult{Info: map[string]any{"pile": e.pile}}, nil
}

// LegalActions enumerates the takes available to the current player.
func (e *Env) LegalActions(p core.PlayerID) []core.Action {
	if e.st == nil || e.st.Terminal() || p != e.st.CurrentPlayer() {
		return nil
	}
	limit := e.maxTake
	if e.pile < limit {
		limit = e.pile
	}
	actions := make([]core.Action, 0, limit)
	for n := 1; n <= limit; n++ {
		actions = append(actions, core.Action(fmt.Sprintf("[take %d]", n)))
	}
	return actions
}

// DefaultAction is the smallest legal take.
func (e *Env) DefaultAction(p core.PlayerID) core.Action {
	if e.pile < 1 {
		return ""
	}
	return "[take 1]"
}

func (e *Env) Pile() int { return e.pile }

func parseTake(a core.Action) (int, bool) {
	m := takePattern.FindStringSubmatch(string(a))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func mergedOptions(base, override map[string]any) map[string]any {
	if len(override) == 0 {
		return base
	}
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// intOption reads an integer option that may arrive as int, int64 or
// float64 depending on the decoder that produced the map.
func intOption(options map[string]any, key string, fallback int) (int, error) {
	v, ok := options[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, &core.ConfigurationError{Reason: fmt.Sprintf("option %q must be an integer, got %T", key, v)}
	}
}

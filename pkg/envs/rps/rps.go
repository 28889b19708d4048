// Package rps implements best-of-N rock-paper-scissors, the reference
// simultaneous-mode game: both players commit a move before the round is
// resolved in one joint step.
package rps

import (
	"fmt"
	"strings"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/state"
)

const (
	GameID = "rps-v0"

	MinPlayers = 2
	MaxPlayers = 2

	defaultRounds = 3
)

type move int

const (
	rock move = iota
	paper
	scissors
)

// beats[a][b] is 1 when a beats b, -1 when b beats a, 0 on a draw.
var beats = [3][3]int{
	rock:     {0, -1, 1},
	paper:    {1, 0, -1},
	scissors: {-1, 1, 0},
}

var moveNames = map[move]string{rock: "rock", paper: "paper", scissors: "scissors"}

// Env holds one episode of rock-paper-scissors.
type Env struct {
	st     *state.State
	rounds int
	round  int
	score  map[core.PlayerID]int

	// pending holds moves submitted one at a time through Step; the round
	// resolves once every active player has committed.
	pending core.Moves

	options map[string]any
}

func New(options map[string]any) core.Env {
	return &Env{options: options}
}

func (e *Env) Mode() core.TurnMode { return core.Simultaneous }

func (e *Env) Reset(opts core.ResetOptions) (map[core.PlayerID]core.Observation, error) {
	st, err := state.New(opts.NumPlayers, MinPlayers, MaxPlayers)
	if err != nil {
		return nil, err
	}

	rounds := defaultRounds
	if v, ok := pick(e.options, opts.Options, "rounds"); ok {
		n, ok := asInt(v)
		if !ok || n < 1 {
			return nil, &core.ConfigurationError{Reason: fmt.Sprintf("option \"rounds\" must be a positive integer, got %v", v)}
		}
		rounds = n
	}

	e.st = st
	e.st.Reset(opts.Seed)
	e.rounds = rounds
	e.round = 0
	e.score = map[core.PlayerID]int{0: 0, 1: 0}
	e.pending = make(core.Moves)
	e.st.SetPhase("round 1")

	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf(
		"Rock-paper-scissors, best of %d rounds. Each round, submit [rock], [paper] or [scissors]. Moves are revealed simultaneously.", rounds))

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

// CurrentPlayer reports the lowest slot that has not committed this round.
// In simultaneous mode this is informational only.
func (e *Env) CurrentPlayer() core.PlayerID {
	for _, p := range e.ActivePlayers() {
		if _, done := e.pending[p]; !done {
			return p
		}
	}
	return 0
}

func (e *Env) IsTerminal() bool {
	return e.st != nil && e.st.Terminal()
}

func (e *Env) ActivePlayers() []core.PlayerID {
	return []core.PlayerID{0, 1}
}

func (e *Env) IsLegal(p core.PlayerID, a core.Action) bool {
	if e.st == nil || e.st.Terminal() {
		return false
	}
	if p != 0 && p != 1 {
		return false
	}
	if _, committed := e.pending[p]; committed {
		return false
	}
	_, ok := parseMove(a)
	return ok
}

// Step commits one player's move. The round resolves once both players
// have committed, so sequential submission reaches the same outcome as a
// joint step.
func (e *Env) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	if e.st == nil {
		return core.StepResult{}, &core.ConfigurationError{Reason: "environment has not been reset"}
	}
	if e.st.Terminal() {
		return core.StepResult{}, &core.IllegalActionError{Player: p, Action: a, Reason: "episode is terminal"}
	}
	if _, committed := e.pending[p]; committed {
		return core.StepResult{}, &core.OutOfTurnError{Player: p, Current: e.CurrentPlayer()}
	}
	if _, ok := parseMove(a); !ok {
		return core.StepResult{}, &core.IllegalActionError{Player: p, Action: a, Reason: "expected [rock], [paper] or [scissors]"}
	}

	e.pending[p] = a
	if len(e.pending) < len(e.ActivePlayers()) {
		return core.StepResult{Info: map[string]any{"pending": true}}, nil
	}
	moves := e.pending
	e.pending = make(core.Moves)
	return e.resolve(moves)
}

// StepJoint applies one move per player in a single step.
func (e *Env) StepJoint(moves core.Moves) (core.StepResult, error) {
	if e.st == nil {
		return core.StepResult{}, &core.ConfigurationError{Reason: "environment has not been reset"}
	}
	if e.st.Terminal() {
		return core.StepResult{}, &core.IllegalActionError{Player: core.Broadcast, Reason: "episode is terminal"}
	}
	for _, p := range e.ActivePlayers() {
		a, ok := moves[p]
		if !ok {
			return core.StepResult{}, &core.IllegalActionError{Player: p, Reason: "missing move in joint step"}
		}
		if _, ok := parseMove(a); !ok {
			return core.StepResult{}, &core.IllegalActionError{Player: p, Action: a, Reason: "expected [rock], [paper] or [scissors]"}
		}
	}
	e.pending = make(core.Moves)
	return e.resolve(moves)
}

func (e *Env) resolve(moves core.Moves) (core.StepResult, error) {
	m0, _ := parseMove(moves[0])
	m1, _ := parseMove(moves[1])

	e.round++
	e.st.IncrementTurn()

	outcome := beats[m0][m1]
	switch {
	case outcome > 0:
		e.score[0]++
	case outcome < 0:
		e.score[1]++
	}
	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf(
		"Round %d: Player 0 plays %s, Player 1 plays %s. Score %d-%d.",
		e.round, moveNames[m0], moveNames[m1], e.score[0], e.score[1]))

	info := map[string]any{"round": e.round, "score": map[core.PlayerID]int{0: e.score[0], 1: e.score[1]}}
	if e.round < e.rounds {
		e.st.SetPhase(fmt.Sprintf("round %d", e.round+1))
		return core.StepResult{Info: info}, nil
	}

	rewards := map[core.PlayerID]float64{0: 0, 1: 0}
	switch {
	case e.score[0] > e.score[1]:
		rewards[0], rewards[1] = 1, -1
	case e.score[1] > e.score[0]:
		rewards[0], rewards[1] = -1, 1
	}
	info["final_score"] = fmt.Sprintf("%d-%d", e.score[0], e.score[1])
	e.st.AddObservation(core.GameMaster, core.Broadcast, fmt.Sprintf("Match over. Final score %d-%d.", e.score[0], e.score[1]))
	if err := e.st.SetOutcome(rewards, info); err != nil {
		return core.StepResult{}, err
	}
	return core.StepResult{Rewards: e.st.Rewards(), Terminated: true, Info: info}, nil
}

// DefaultAction is the forfeit substitute: rock.
func (e *Env) DefaultAction(p core.PlayerID) core.Action {
	return "[rock]"
}

func parseMove(a core.Action) (move, bool) {
	switch strings.ToLower(strings.TrimSpace(string(a))) {
	case "[rock]":
		return rock, true
	case "[paper]":
		return paper, true
	case "[scissors]":
		return scissors, true
	default:
		return 0, false
	}
}

func pick(base, override map[string]any, key string) (any, bool) {
	if v, ok := override[key]; ok {
		return v, true
	}
	v, ok := base[key]
	return v, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

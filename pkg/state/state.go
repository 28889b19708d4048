// Package state provides the mutable per-episode record a concrete
// environment owns. A State is never shared across episodes and only the
// owning environment mutates it.
package state

import (
	"fmt"
	"math/rand"

	"github.com/plastic-labs/textarena/pkg/core"
)

// Status is the coarse lifecycle the orchestrator observes. Game-specific
// phases live inside Active and are tracked as free-form phase strings.
type Status int

const (
	Uninitialized Status = iota
	Active
	Terminal
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// State holds turn bookkeeping, the seeded RNG, the player-scoped
// observation transcript and the final outcome.
type State struct {
	numPlayers int
	seed       int64
	rng        *rand.Rand

	status  Status
	phase   string
	turn    int
	current core.PlayerID

	entries   []core.Entry
	rewards   map[core.PlayerID]float64
	info      map[string]any
	truncated bool
}

// New validates the player count against the game's supported range.
func New(numPlayers, minPlayers, maxPlayers int) (*State, error) {
	if numPlayers < minPlayers || numPlayers > maxPlayers {
		return nil, &core.ConfigurationError{
			Reason: fmt.Sprintf("num_players=%d outside supported range [%d, %d]", numPlayers, minPlayers, maxPlayers),
		}
	}
	return &State{numPlayers: numPlayers}, nil
}

// Reset moves the state to Active with a fresh deterministic RNG. Equal
// seeds always yield equal roll sequences.
func (s *State) Reset(seed int64) {
	s.seed = seed
	s.rng = rand.New(rand.NewSource(seed))
	s.status = Active
	s.phase = ""
	s.turn = 0
	s.current = 0
	s.entries = nil
	s.rewards = nil
	s.info = nil
	s.truncated = false
}

func (s *State) NumPlayers() int { return s.numPlayers }

func (s *State) Seed() int64 { return s.seed }

// Rand returns the episode RNG. Nil before Reset.
func (s *State) Rand() *rand.Rand { return s.rng }

func (s *State) Status() Status { return s.status }

func (s *State) Phase() string { return s.phase }

func (s *State) SetPhase(phase string) { s.phase = phase }

// Turn is the count of applied steps this episode.
func (s *State) Turn() int { return s.turn }

func (s *State) IncrementTurn() { s.turn++ }

func (s *State) CurrentPlayer() core.PlayerID { return s.current }

func (s *State) SetCurrentPlayer(p core.PlayerID) { s.current = p }

// AdvancePlayer rotates the current actor to the next slot.
func (s *State) AdvancePlayer() {
	s.current = core.PlayerID((int(s.current) + 1) % s.numPlayers)
}

// AddObservation appends a transcript entry. to may be core.Broadcast.
// Returns an *IllegalActionError once the outcome is fixed: a terminal
// episode accepts no further mutation.
func (s *State) AddObservation(from, to core.PlayerID, text string) error {
	if s.status == Uninitialized {
		return &core.EnvironmentInternalError{Err: fmt.Errorf("add observation before reset")}
	}
	if s.status == Terminal {
		return &core.IllegalActionError{Player: from, Reason: "episode is terminal"}
	}
	s.entries = append(s.entries, core.Entry{From: from, To: to, Text: text})
	return nil
}

// VisibleTo returns the entries player p is entitled to see: broadcasts
// and entries addressed to p. Private traffic between other players never
// leaks. The slice is a copy; reads do not mutate state.
func (s *State) VisibleTo(p core.PlayerID) []core.Entry {
	var visible []core.Entry
	for _, e := range s.entries {
		if e.To == core.Broadcast || e.To == p {
			visible = append(visible, e)
		}
	}
	return visible
}

// Observation renders the full player-visible transcript. Rendering from
// the whole history rather than a drained queue is what makes repeated
// reads idempotent.
func (s *State) Observation(p core.PlayerID) core.Observation {
	entries := s.VisibleTo(p)
	text := ""
	for i, e := range entries {
		if i > 0 {
			text += "\n"
		}
		if e.From == core.GameMaster {
			text += fmt.Sprintf("[GAME] %s", e.Text)
		} else {
			text += fmt.Sprintf("[Player %d] %s", e.From, e.Text)
		}
	}
	return core.Observation{Player: p, Entries: entries, Text: text}
}

// SetOutcome fixes the per-player result and moves the state to Terminal.
// Calling it twice is an environment bug.
func (s *State) SetOutcome(rewards map[core.PlayerID]float64, info map[string]any) error {
	if s.status == Terminal {
		return &core.EnvironmentInternalError{Err: fmt.Errorf("outcome already fixed")}
	}
	s.status = Terminal
	s.rewards = make(map[core.PlayerID]float64, len(rewards))
	for p, r := range rewards {
		s.rewards[p] = r
	}
	s.info = info
	return nil
}

// Truncate ends the episode without a natural outcome: every player gets
// the neutral reward.
func (s *State) Truncate(info map[string]any) error {
	rewards := make(map[core.PlayerID]float64, s.numPlayers)
	for p := 0; p < s.numPlayers; p++ {
		rewards[core.PlayerID(p)] = 0
	}
	if err := s.SetOutcome(rewards, info); err != nil {
		return err
	}
	s.truncated = true
	return nil
}

func (s *State) Terminal() bool { return s.status == Terminal }

func (s *State) Truncated() bool { return s.truncated }

// Rewards returns a copy of the fixed outcome. Nil while Active.
func (s *State) Rewards() map[core.PlayerID]float64 {
	if s.rewards == nil {
		return nil
	}
	out := make(map[core.PlayerID]float64, len(s.rewards))
	for p, r := range s.rewards {
		out[p] = r
	}
	return out
}

func (s *State) Info() map[string]any { return s.info }

package core

// PlayerID identifies a player slot within an episode. Slots are numbered
// 0..NumPlayers-1 and the slot-to-agent mapping is fixed for the episode's
// lifetime; which slot is the current actor changes each turn.
type PlayerID int

// Broadcast addresses a transcript entry to every player. Used as a sender
// it identifies the game itself rather than any player.
const Broadcast PlayerID = -1

// GameMaster is the sender id for entries produced by the environment.
const GameMaster PlayerID = -1

// Action is the raw payload an agent produced for a turn. Environments
// define their own command grammar over it.
type Action string

// Moves is a joint action set, one action per acting player, applied in a
// single joint step in simultaneous mode.
type Moves map[PlayerID]Action

// Entry is one transcript message. To may be Broadcast; entries addressed
// to a specific player are never visible to anyone else.
type Entry struct {
	From PlayerID `json:"from"`
	To   PlayerID `json:"to"`
	Text string   `json:"text"`
}

// Observation is a player-scoped, possibly partial view of the episode:
// the transcript entries the player is entitled to see plus a rendered
// text form suitable for prompting.
type Observation struct {
	Player  PlayerID `json:"player"`
	Entries []Entry  `json:"entries"`
	Text    string   `json:"text"`
}

// StepResult is what an environment reports after applying an action.
// Terminated marks the game's own terminal condition; Truncated marks an
// externally forced stop. An environment never sets both.
type StepResult struct {
	Rewards    map[PlayerID]float64
	Terminated bool
	Truncated  bool
	Info       map[string]any
}

// TurnMode declares how an environment schedules its players.
type TurnMode int

const (
	// Sequential environments have exactly one current actor at a time.
	Sequential TurnMode = iota
	// Simultaneous environments collect one action per active player and
	// apply them in a single joint step.
	Simultaneous
)

func (m TurnMode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Simultaneous:
		return "simultaneous"
	default:
		return "unknown"
	}
}

// ResetOptions configures a fresh episode. The same Seed must always yield
// the same initial state for a given environment.
type ResetOptions struct {
	Seed       int64
	NumPlayers int
	Options    map[string]any
}

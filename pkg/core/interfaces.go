package core

// Env is the contract every concrete game implements. An Env instance owns
// exactly one episode's game state; it is never shared across concurrent
// episodes, and only the Env itself mutates that state, inside Step.
type Env interface {
	// Reset initializes the game state deterministically from the given
	// seed and returns the initial observation for each player. It fails
	// with a *ConfigurationError if NumPlayers is outside the game's
	// supported range or an option is invalid.
	Reset(opts ResetOptions) (map[PlayerID]Observation, error)

	// Observation returns the player-scoped view of the current state.
	// It is a pure function of state and player: it never mutates state,
	// and calling it twice without an intervening Step yields identical
	// results.
	Observation(p PlayerID) (Observation, error)

	// IsLegal reports whether the action would be accepted for the player
	// under the current state and turn-order rules. Side-effect free.
	IsLegal(p PlayerID, a Action) bool

	// Step applies a legal action, mutates game state, advances the
	// turn/phase and computes rewards and termination. It fails with a
	// *IllegalActionError if IsLegal would return false, or a
	// *OutOfTurnError if p is not the current actor in a strictly
	// sequential game.
	Step(p PlayerID, a Action) (StepResult, error)

	// CurrentPlayer reports the current actor. Queryable at any time.
	CurrentPlayer() PlayerID

	// IsTerminal reports whether the episode has reached a terminal
	// state. Once true, no further steps are accepted and the outcome is
	// fixed.
	IsTerminal() bool

	// Mode declares the environment's turn scheduling.
	Mode() TurnMode
}

// JointEnv is the capability set for simultaneous-mode environments.
type JointEnv interface {
	Env

	// StepJoint applies one action per active player in a single step.
	StepJoint(moves Moves) (StepResult, error)

	// ActivePlayers lists the players expected to act this round.
	ActivePlayers() []PlayerID
}

// DefaultActioner is implemented by environments that can name a safe
// substitute action for a player, used when the illegal-action policy
// replaces a timed-out or invalid submission.
type DefaultActioner interface {
	DefaultAction(p PlayerID) Action
}

// LegalActioner is implemented by environments with an enumerable action
// space. The orchestrator forwards the list to agents that want it.
type LegalActioner interface {
	LegalActions(p PlayerID) []Action
}

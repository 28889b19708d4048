package core

import (
	"errors"
	"fmt"
	"time"
)

// ConfigurationError reports an unusable setup: bad player count,
// unsupported mode, invalid option. Fatal, raised at Reset.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// IllegalActionError reports an action the current state rejects.
// Recoverable: the orchestrator handles it per the configured
// illegal-action policy.
type IllegalActionError struct {
	Player PlayerID
	Action Action
	Reason string
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal action %q by player %d: %s", e.Action, e.Player, e.Reason)
}

// OutOfTurnError reports a step attempted by a player who is not the
// current actor in a strictly sequential game. Recoverable.
type OutOfTurnError struct {
	Player  PlayerID
	Current PlayerID
}

func (e *OutOfTurnError) Error() string {
	return fmt.Sprintf("player %d acted out of turn (current player is %d)", e.Player, e.Current)
}

// AgentTimeoutError reports an agent that failed to produce an action
// within its deadline. Recoverable, treated as a forfeit/default action
// per the configured policy.
type AgentTimeoutError struct {
	Player  PlayerID
	Timeout time.Duration
}

func (e *AgentTimeoutError) Error() string {
	return fmt.Sprintf("player %d timed out after %s", e.Player, e.Timeout)
}

// EnvironmentInternalError reports an invariant violation inside a
// concrete game's Step. Fatal: the episode is aborted and marked errored.
type EnvironmentInternalError struct {
	Err error
}

func (e *EnvironmentInternalError) Error() string {
	return fmt.Sprintf("environment internal error: %v", e.Err)
}

func (e *EnvironmentInternalError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether err is a per-turn condition the orchestrator
// resolves via the illegal-action policy rather than aborting the episode.
func Recoverable(err error) bool {
	var illegal *IllegalActionError
	var outOfTurn *OutOfTurnError
	var timeout *AgentTimeoutError
	return errors.As(err, &illegal) || errors.As(err, &outOfTurn) || errors.As(err, &timeout)
}

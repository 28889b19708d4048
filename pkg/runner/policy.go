package runner

import "fmt"

// PolicyKind selects how the orchestrator resolves an illegal or timed-out
// action. The choice is explicit configuration; Options.Validate rejects
// an unset policy.
type PolicyKind int

const (
	PolicyUnset PolicyKind = iota
	// PolicyRetry rejects the action and re-prompts the agent up to
	// MaxRetries times, then forfeits.
	PolicyRetry
	// PolicySubstitute plays the environment's default action in place of
	// the offending one. Forfeits when the environment has no usable
	// default.
	PolicySubstitute
	// PolicyForfeit ends the episode immediately with the configured
	// penalty for the offending player.
	PolicyForfeit
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyRetry:
		return "retry"
	case PolicySubstitute:
		return "substitute"
	case PolicyForfeit:
		return "forfeit"
	default:
		return "unset"
	}
}

// IllegalActionPolicy is the configured response to illegal actions,
// out-of-turn steps and agent timeouts.
type IllegalActionPolicy struct {
	Kind       PolicyKind
	MaxRetries int     // used by PolicyRetry
	Penalty    float64 // reward assigned to a forfeiting player
}

func RetryPolicy(maxRetries int, penalty float64) IllegalActionPolicy {
	return IllegalActionPolicy{Kind: PolicyRetry, MaxRetries: maxRetries, Penalty: penalty}
}

func SubstitutePolicy(penalty float64) IllegalActionPolicy {
	return IllegalActionPolicy{Kind: PolicySubstitute, Penalty: penalty}
}

func ForfeitPolicy(penalty float64) IllegalActionPolicy {
	return IllegalActionPolicy{Kind: PolicyForfeit, Penalty: penalty}
}

// DefaultForfeitPolicy is immediate forfeit with a -1.0 penalty. Callers
// opt into this default explicitly; the zero value of IllegalActionPolicy
// is rejected.
func DefaultForfeitPolicy() IllegalActionPolicy {
	return ForfeitPolicy(-1.0)
}

func (p IllegalActionPolicy) validate() error {
	switch p.Kind {
	case PolicyRetry:
		if p.MaxRetries < 1 {
			return fmt.Errorf("retry policy requires max_retries >= 1, got %d", p.MaxRetries)
		}
		return nil
	case PolicySubstitute, PolicyForfeit:
		return nil
	default:
		return fmt.Errorf("illegal-action policy is required configuration")
	}
}

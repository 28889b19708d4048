package wrappers

import (
	"fmt"
	"strings"

	"github.com/plastic-labs/textarena/pkg/core"
)

// NewLLMObservationWrapper formats observations for prompting: each
// transcript entry on its own line with a speaker tag, private entries
// marked as such. Purely presentational; entries pass through unchanged.
func NewLLMObservationWrapper(env core.Env) *ObservationWrapper {
	return NewObservationWrapper(env, FormatForLLM)
}

// FormatForLLM renders an observation's entries into a chat-style
// transcript.
func FormatForLLM(p core.PlayerID, obs core.Observation) core.Observation {
	var b strings.Builder
	for i, e := range obs.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatEntry(p, e))
	}
	obs.Text = b.String()
	return obs
}

func formatEntry(p core.PlayerID, e core.Entry) string {
	speaker := fmt.Sprintf("[Player %d]", e.From)
	if e.From == core.GameMaster {
		speaker = "[GAME]"
	}
	if e.To != core.Broadcast && e.To == p {
		return fmt.Sprintf("%s (only you can see this): %s", speaker, e.Text)
	}
	return fmt.Sprintf("%s: %s", speaker, e.Text)
}

// NewBracketActionWrapper extracts the last [bracketed] token from raw
// agent output before forwarding, so verbose model replies still reach the
// game as a bare command. Output without brackets passes through trimmed.
func NewBracketActionWrapper(env core.Env) *ActionWrapper {
	return NewActionWrapper(env, func(p core.PlayerID, a core.Action) core.Action {
		s := string(a)
		start := strings.LastIndex(s, "[")
		if start == -1 {
			return core.Action(strings.TrimSpace(s))
		}
		end := strings.Index(s[start:], "]")
		if end == -1 {
			return core.Action(strings.TrimSpace(s))
		}
		return core.Action(s[start : start+end+1])
	})
}

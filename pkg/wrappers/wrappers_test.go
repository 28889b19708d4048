package wrappers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/envs/nim"
	"github.com/plastic-labs/textarena/pkg/envs/rps"
)

func resetNim(t *testing.T, env core.Env, pile int) {
	t.Helper()
	_, err := env.Reset(core.ResetOptions{Seed: 1, NumPlayers: 2, Options: map[string]any{"pile": pile}})
	require.NoError(t, err)
}

func TestWrapperForwardsEverything(t *testing.T) {
	inner := nim.New(nil)
	w := NewWrapper(inner)
	resetNim(t, w, 5)

	assert.Equal(t, core.Sequential, w.Mode())
	assert.Equal(t, core.PlayerID(0), w.CurrentPlayer())
	assert.False(t, w.IsTerminal())
	assert.True(t, w.IsLegal(0, "[take 1]"))
	assert.Equal(t, core.Action("[take 1]"), w.DefaultAction(0))
	assert.Equal(t, []core.Action{"[take 1]", "[take 2]", "[take 3]"}, w.LegalActions(0))

	res, err := w.Step(0, "[take 2]")
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.Equal(t, core.PlayerID(1), w.CurrentPlayer())
}

func TestWrappedEpisodeMatchesUnwrapped(t *testing.T) {
	plain := nim.New(nil)
	wrapped := NewBracketActionWrapper(NewLLMObservationWrapper(nim.New(nil)))
	resetNim(t, plain, 5)
	resetNim(t, wrapped, 5)

	moves := []struct {
		p core.PlayerID
		a core.Action
	}{{0, "[take 2]"}, {1, "[take 3]"}}

	for _, m := range moves {
		pres, perr := plain.Step(m.p, m.a)
		wres, werr := wrapped.Step(m.p, m.a)
		require.NoError(t, perr)
		require.NoError(t, werr)
		assert.Equal(t, pres.Terminated, wres.Terminated)
		assert.Equal(t, pres.Rewards, wres.Rewards)
	}
	assert.True(t, wrapped.IsTerminal())
}

func TestUnwrapWalksTheChain(t *testing.T) {
	inner := nim.New(nil)
	chain := NewBracketActionWrapper(NewLLMObservationWrapper(NewWrapper(inner)))

	assert.Same(t, inner, Unwrap(chain))
	assert.Same(t, inner, Unwrap(inner))
}

func TestBracketActionWrapperExtractsCommand(t *testing.T) {
	env := NewBracketActionWrapper(nim.New(nil))
	resetNim(t, env, 5)

	// Verbose model output still reaches the game as a bare command, and
	// legality is judged on the transformed action.
	raw := core.Action("I think the best move here is [take 2], trust me.")
	assert.True(t, env.IsLegal(0, raw))

	res, err := env.Step(0, raw)
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.Equal(t, core.PlayerID(1), env.CurrentPlayer())

	// The last bracketed token wins when there are several.
	assert.True(t, env.IsLegal(1, "[take 9]? No. [take 1]"))
	assert.False(t, env.IsLegal(1, "no brackets at all"))
}

func TestBracketActionWrapperJointStep(t *testing.T) {
	env := NewBracketActionWrapper(rps.New(nil))
	_, err := env.Reset(core.ResetOptions{Seed: 1, NumPlayers: 2, Options: map[string]any{"rounds": 1}})
	require.NoError(t, err)

	res, err := env.StepJoint(core.Moves{
		0: "I choose [rock]",
		1: "Going with [paper] this time",
	})
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, map[core.PlayerID]float64{0: -1, 1: 1}, res.Rewards)
}

func TestLLMObservationWrapperFormatting(t *testing.T) {
	env := NewLLMObservationWrapper(nim.New(nil))
	initial, err := env.Reset(core.ResetOptions{Seed: 1, NumPlayers: 2})
	require.NoError(t, err)

	obs := initial[0]
	require.NotEmpty(t, obs.Entries)
	assert.True(t, strings.HasPrefix(obs.Text, "[GAME]: "))

	again, err := env.Observation(0)
	require.NoError(t, err)
	assert.Equal(t, obs, again, "formatting is pure")
}

func TestFormatForLLMMarksPrivateEntries(t *testing.T) {
	obs := FormatForLLM(1, core.Observation{
		Player: 1,
		Entries: []core.Entry{
			{From: core.GameMaster, To: core.Broadcast, Text: "welcome"},
			{From: core.GameMaster, To: 1, Text: "your role is spy"},
			{From: 0, To: core.Broadcast, Text: "hello"},
		},
	})

	lines := strings.Split(obs.Text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[GAME]: welcome", lines[0])
	assert.Equal(t, "[GAME] (only you can see this): your role is spy", lines[1])
	assert.Equal(t, "[Player 0]: hello", lines[2])
}

func TestRewardWrapperMapsRewards(t *testing.T) {
	scale := func(rewards map[core.PlayerID]float64) map[core.PlayerID]float64 {
		out := make(map[core.PlayerID]float64, len(rewards))
		for p, r := range rewards {
			out[p] = r * 10
		}
		return out
	}
	env := NewRewardWrapper(nim.New(nil), scale)
	resetNim(t, env, 2)

	_, err := env.Step(0, "[take 1]")
	require.NoError(t, err)
	res, err := env.Step(1, "[take 1]")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, map[core.PlayerID]float64{0: -10, 1: 10}, res.Rewards)
}

func TestRecorderWrapperWritesCSV(t *testing.T) {
	var buf strings.Builder
	env := NewRecorderWrapper(nim.New(nil), &buf)
	resetNim(t, env, 2)

	_, err := env.Step(0, "[take 1]")
	require.NoError(t, err)
	_, err = env.Step(1, "[take 1]")
	require.NoError(t, err)
	require.NoError(t, env.CloseRecorder())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "header, reset, two actions")
	assert.Equal(t, "timestamp,kind,player,text", lines[0])
	assert.Contains(t, lines[1], "reset")
	assert.Contains(t, lines[2], "[take 1]")
}

func TestWrapperWithoutJointCapability(t *testing.T) {
	env := NewWrapper(nim.New(nil))
	resetNim(t, env, 5)

	_, err := env.StepJoint(core.Moves{0: "[take 1]"})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []core.PlayerID{0}, env.ActivePlayers())
}

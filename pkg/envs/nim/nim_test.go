package nim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plastic-labs/textarena/pkg/core"
)

func newEnv(t *testing.T, players, pile int) core.Env {
	t.Helper()
	env := New(map[string]any{"pile": pile})
	_, err := env.Reset(core.ResetOptions{Seed: 1, NumPlayers: players})
	require.NoError(t, err)
	return env
}

func TestResetValidatesConfig(t *testing.T) {
	env := New(nil)
	_, err := env.Reset(core.ResetOptions{NumPlayers: 1})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = env.Reset(core.ResetOptions{NumPlayers: 5})
	require.Error(t, err)

	_, err = New(map[string]any{"pile": 0}).Reset(core.ResetOptions{NumPlayers: 2})
	require.Error(t, err)

	_, err = New(map[string]any{"pile": "lots"}).Reset(core.ResetOptions{NumPlayers: 2})
	require.Error(t, err)
}

func TestResetReturnsInitialObservations(t *testing.T) {
	env := New(nil)
	initial, err := env.Reset(core.ResetOptions{Seed: 1, NumPlayers: 2})
	require.NoError(t, err)
	require.Len(t, initial, 2)
	assert.Contains(t, initial[0].Text, "21 tokens")
	assert.Contains(t, initial[1].Text, "Player 0 goes first")
}

func TestLegality(t *testing.T) {
	env := newEnv(t, 2, 5)

	assert.True(t, env.IsLegal(0, "[take 1]"))
	assert.True(t, env.IsLegal(0, "[take 3]"))
	assert.False(t, env.IsLegal(0, "[take 4]"), "over max take")
	assert.False(t, env.IsLegal(0, "[take 0]"))
	assert.False(t, env.IsLegal(0, "take 2"), "bad grammar")
	assert.False(t, env.IsLegal(1, "[take 1]"), "not player 1's turn")
}

func TestStepEnforcesTurnOrder(t *testing.T) {
	env := newEnv(t, 2, 5)

	_, err := env.Step(1, "[take 1]")
	var oot *core.OutOfTurnError
	require.ErrorAs(t, err, &oot)
	assert.Equal(t, core.PlayerID(1), oot.Player)

	_, err = env.Step(0, "[take 9]")
	var illegal *core.IllegalActionError
	require.ErrorAs(t, err, &illegal)
}

func TestPlayToCompletion(t *testing.T) {
	env := newEnv(t, 2, 5)

	res, err := env.Step(0, "[take 2]")
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.Equal(t, core.PlayerID(1), env.CurrentPlayer())

	res, err = env.Step(1, "[take 3]")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.True(t, env.IsTerminal())
	assert.Equal(t, map[core.PlayerID]float64{0: -1, 1: 1}, res.Rewards)
	assert.Equal(t, 1, res.Info["winner"])

	// Terminal episode accepts no further steps.
	_, err = env.Step(0, "[take 1]")
	var illegal *core.IllegalActionError
	require.ErrorAs(t, err, &illegal)
}

func TestObservationIsIdempotent(t *testing.T) {
	env := newEnv(t, 2, 5)
	_, err := env.Step(0, "[take 1]")
	require.NoError(t, err)

	first, err := env.Observation(1)
	require.NoError(t, err)
	second, err := env.Observation(1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLegalActionsShrinkWithPile(t *testing.T) {
	env := newEnv(t, 2, 2).(*Env)

	assert.Equal(t,
		[]core.Action{"[take 1]", "[take 2]"},
		env.LegalActions(0))
	assert.Nil(t, env.LegalActions(1), "only the current player has moves")

	_, err := env.Step(0, "[take 1]")
	require.NoError(t, err)
	assert.Equal(t, []core.Action{"[take 1]"}, env.LegalActions(1))
}

func TestDefaultActionIsLegal(t *testing.T) {
	env := newEnv(t, 2, 5).(*Env)
	assert.True(t, env.IsLegal(0, env.DefaultAction(0)))
}

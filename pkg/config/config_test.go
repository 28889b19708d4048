package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plastic-labs/textarena/pkg/runner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
game: nim-v0
game_options:
  pile: 15
players: 2
seed: 42
max_turns: 30
action_timeout: 45s
illegal_action:
  kind: retry
  max_retries: 2
  penalty: -1.0
agents:
  - kind: scripted
    script: ["[take 1]", "[take 2]"]
  - kind: openai
    model: gpt-4o-mini
    system_prompt: "Play to win."
log_path: episode.jsonl
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "nim-v0", cfg.Game)
	assert.Equal(t, 15, cfg.GameOptions["pile"])
	assert.Equal(t, 2, cfg.Players)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 30, cfg.MaxTurns)
	assert.Equal(t, 45*time.Second, cfg.ActionTimeout.Std())
	assert.Equal(t, "episode.jsonl", cfg.LogPath)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "scripted", cfg.Agents[0].Kind)
	assert.Equal(t, []string{"[take 1]", "[take 2]"}, cfg.Agents[0].Script)
	assert.Equal(t, "gpt-4o-mini", cfg.Agents[1].Model)

	policy, err := cfg.IllegalAction.Policy()
	require.NoError(t, err)
	assert.Equal(t, runner.RetryPolicy(2, -1.0), policy)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "game: [unclosed"))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
game: nim-v0
players: 2
max_turns: 10
action_timeout: soon
illegal_action:
  kind: forfeit
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestPolicyMapping(t *testing.T) {
	cases := []struct {
		name string
		in   PolicyConfig
		want runner.IllegalActionPolicy
	}{
		{"retry", PolicyConfig{Kind: "retry", MaxRetries: 3, Penalty: -0.5}, runner.RetryPolicy(3, -0.5)},
		{"substitute", PolicyConfig{Kind: "substitute", Penalty: -1}, runner.SubstitutePolicy(-1)},
		{"forfeit", PolicyConfig{Kind: "forfeit", Penalty: -2}, runner.ForfeitPolicy(-2)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.in.Policy()
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	_, err := PolicyConfig{}.Policy()
	require.Error(t, err)
	_, err = PolicyConfig{Kind: "shrug"}.Policy()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() RunConfig {
		return RunConfig{
			Game:          "nim-v0",
			Players:       2,
			MaxTurns:      10,
			IllegalAction: PolicyConfig{Kind: "forfeit", Penalty: -1},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Game = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Players = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.MaxTurns = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Agents = []AgentConfig{{Kind: "random"}}
	require.Error(t, cfg.Validate(), "agent count must match players")

	cfg = base()
	cfg.Agents = []AgentConfig{{Kind: "scripted"}, {Kind: "random"}}
	require.Error(t, cfg.Validate(), "scripted agent needs a script")

	cfg = base()
	cfg.Agents = []AgentConfig{{Kind: "psychic"}, {Kind: "random"}}
	require.Error(t, cfg.Validate())
}

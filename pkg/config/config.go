// Package config loads run configuration from YAML. Game rules, agents and
// policies are all named here; the engine itself takes the parsed values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plastic-labs/textarena/pkg/runner"
)

// Duration parses YAML strings like "30s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// RunConfig describes one episode run.
type RunConfig struct {
	Game          string         `yaml:"game"`
	GameOptions   map[string]any `yaml:"game_options"`
	Players       int            `yaml:"players"`
	Seed          int64          `yaml:"seed"`
	MaxTurns      int            `yaml:"max_turns"`
	ActionTimeout Duration       `yaml:"action_timeout"`
	IllegalAction PolicyConfig   `yaml:"illegal_action"`
	Agents        []AgentConfig  `yaml:"agents"`
	LogPath       string         `yaml:"log_path"`
}

// PolicyConfig selects the illegal-action policy. Kind is one of "retry",
// "substitute" or "forfeit" and is required.
type PolicyConfig struct {
	Kind       string  `yaml:"kind"`
	MaxRetries int     `yaml:"max_retries"`
	Penalty    float64 `yaml:"penalty"`
}

// Policy converts the YAML form into the runner's policy value.
func (p PolicyConfig) Policy() (runner.IllegalActionPolicy, error) {
	switch p.Kind {
	case "retry":
		return runner.RetryPolicy(p.MaxRetries, p.Penalty), nil
	case "substitute":
		return runner.SubstitutePolicy(p.Penalty), nil
	case "forfeit":
		return runner.ForfeitPolicy(p.Penalty), nil
	case "":
		return runner.IllegalActionPolicy{}, fmt.Errorf("illegal_action.kind is required")
	default:
		return runner.IllegalActionPolicy{}, fmt.Errorf("unknown illegal_action.kind %q", p.Kind)
	}
}

// AgentConfig describes one player slot's agent.
type AgentConfig struct {
	Kind         string   `yaml:"kind"` // scripted | random | openai | gemini
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Script       []string `yaml:"script"`
	Fallback     string   `yaml:"fallback"`
}

// Load reads and validates a run configuration file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RunConfig) Validate() error {
	if c.Game == "" {
		return fmt.Errorf("game is required")
	}
	if c.Players < 1 {
		return fmt.Errorf("players must be positive, got %d", c.Players)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be positive, got %d", c.MaxTurns)
	}
	if _, err := c.IllegalAction.Policy(); err != nil {
		return err
	}
	if len(c.Agents) != 0 && len(c.Agents) != c.Players {
		return fmt.Errorf("got %d agents for %d players", len(c.Agents), c.Players)
	}
	for i, a := range c.Agents {
		switch a.Kind {
		case "scripted":
			if len(a.Script) == 0 {
				return fmt.Errorf("agent %d: scripted agent needs a script", i)
			}
		case "random", "openai", "gemini":
		case "":
			return fmt.Errorf("agent %d: kind is required", i)
		default:
			return fmt.Errorf("agent %d: unknown kind %q", i, a.Kind)
		}
	}
	return nil
}

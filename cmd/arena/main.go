package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plastic-labs/textarena/pkg/agent"
	"github.com/plastic-labs/textarena/pkg/config"
	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/envs/nim"
	"github.com/plastic-labs/textarena/pkg/envs/rps"
	"github.com/plastic-labs/textarena/pkg/messaging"
	"github.com/plastic-labs/textarena/pkg/providers"
	"github.com/plastic-labs/textarena/pkg/registry"
	"github.com/plastic-labs/textarena/pkg/runner"
	"github.com/plastic-labs/textarena/pkg/wrappers"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arena",
		Short: "Arena runs competitive turn-based text games between LLM agents.",
	}

	var configPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one episode from a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEpisode(cmd.Context(), configPath)
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "arena.yaml", "path to run configuration")

	gamesCmd := &cobra.Command{
		Use:   "games",
		Short: "List registered games",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range registry.Default.IDs() {
				spec, _ := registry.Default.Lookup(id)
				fmt.Printf("%s\t%d-%d players\t%s\n", id, spec.MinPlayers, spec.MaxPlayers, spec.Mode)
			}
		},
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	registerGames()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(gamesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerGames populates the process-wide table, then freezes it.
func registerGames() {
	specs := []registry.Spec{
		{ID: nim.GameID, MinPlayers: nim.MinPlayers, MaxPlayers: nim.MaxPlayers, Mode: core.Sequential, New: nim.New},
		{ID: rps.GameID, MinPlayers: rps.MinPlayers, MaxPlayers: rps.MaxPlayers, Mode: core.Simultaneous, New: rps.New},
	}
	for _, spec := range specs {
		if err := registry.Default.Register(spec); err != nil {
			panic(err)
		}
	}
	registry.Default.Freeze()
}

func runEpisode(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	env, _, err := registry.Default.Make(cfg.Game, cfg.GameOptions)
	if err != nil {
		return err
	}
	env = wrappers.NewBracketActionWrapper(wrappers.NewLLMObservationWrapper(env))

	agents, err := buildAgents(ctx, cfg)
	if err != nil {
		return err
	}

	policy, err := cfg.IllegalAction.Policy()
	if err != nil {
		return err
	}

	broker := messaging.NewBroker()
	events := make(chan messaging.Event, 256)
	if err := broker.Subscribe("cli", events); err != nil {
		return err
	}
	go renderEvents(events, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	r, err := runner.New(env, agents, runner.Options{
		GameID:        cfg.Game,
		Seed:          cfg.Seed,
		EnvOptions:    cfg.GameOptions,
		MaxTurns:      cfg.MaxTurns,
		ActionTimeout: cfg.ActionTimeout.Std(),
		Illegal:       policy,
		Logger:        &logger,
		Events:        broker,
	})
	if err != nil {
		return err
	}

	ep, err := r.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("episode %s finished: %s\n", ep.ID(), ep.Status())
	for p, reward := range ep.Rewards() {
		fmt.Printf("  player %d: %+.1f\n", p, reward)
	}

	if cfg.LogPath != "" {
		f, err := os.Create(cfg.LogPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := ep.WriteJSONL(f); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.LogPath).Msg("episode log exported")
	}
	return nil
}

func buildAgents(ctx context.Context, cfg *config.RunConfig) ([]agent.Agent, error) {
	agents := make([]agent.Agent, 0, cfg.Players)
	for i := 0; i < cfg.Players; i++ {
		spec := config.AgentConfig{Kind: "random"}
		if len(cfg.Agents) > 0 {
			spec = cfg.Agents[i]
		}

		id := fmt.Sprintf("player-%d", i)
		switch spec.Kind {
		case "scripted":
			actions := make([]core.Action, len(spec.Script))
			for j, s := range spec.Script {
				actions[j] = core.Action(s)
			}
			agents = append(agents, agent.NewScriptedAgent(id, actions...))
		case "random":
			agents = append(agents, agent.NewRandomAgent(id, cfg.Seed+int64(i), core.Action(spec.Fallback)))
		case "openai":
			a, err := newLLMAgent(id, spec, providers.OpenAI())
			if err != nil {
				return nil, err
			}
			agents = append(agents, a)
		case "gemini":
			client, err := providers.Gemini(ctx)
			if err != nil {
				return nil, err
			}
			a, err := newLLMAgent(id, spec, client)
			if err != nil {
				return nil, err
			}
			agents = append(agents, a)
		default:
			return nil, fmt.Errorf("agent %d: unknown kind %q", i, spec.Kind)
		}
	}
	return agents, nil
}

func newLLMAgent(id string, spec config.AgentConfig, client providers.Client) (agent.Agent, error) {
	opts := []agent.AgentOption{
		agent.WithAgentID(id),
		agent.WithProvider(client),
	}
	if spec.Model != "" {
		opts = append(opts, agent.WithModel(spec.Model))
	}
	if spec.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(spec.SystemPrompt))
	}
	return agent.NewLLMAgent(opts...)
}

func renderEvents(events <-chan messaging.Event, logger zerolog.Logger) {
	for ev := range events {
		switch ev.Type {
		case messaging.EventReset:
			logger.Info().Str("game", ev.GameID).Msg("episode reset")
		case messaging.EventTurn:
			rec := ev.Record
			logger.Info().
				Int("turn", rec.TurnIndex).
				Int("player", int(rec.Player)).
				Str("action", string(rec.Action)).
				Bool("terminated", rec.Terminated).
				Msg("turn")
		case messaging.EventClose:
			logger.Info().Str("status", string(ev.Status)).Msg("episode closed")
		}
	}
}

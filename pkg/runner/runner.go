// Package runner drives one episode to completion: it queries the
// environment for the current actor, delivers observations, collects
// actions under a deadline, validates and applies them, and appends one
// turn record per applied action. Independent runners are fully isolated
// and may run concurrently.
package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/plastic-labs/textarena/pkg/agent"
	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/episode"
	"github.com/plastic-labs/textarena/pkg/messaging"
)

// Options configures a Runner. MaxTurns and Illegal are required; the rest
// have usable defaults.
type Options struct {
	GameID        string
	Seed          int64
	EnvOptions    map[string]any
	MaxTurns      int
	ActionTimeout time.Duration
	Illegal       IllegalActionPolicy
	Logger        *zerolog.Logger
	Events        messaging.Publisher
}

func (o *Options) Validate() error {
	if o.MaxTurns <= 0 {
		return fmt.Errorf("turn ceiling is required, got max_turns=%d", o.MaxTurns)
	}
	return o.Illegal.validate()
}

// Runner drives one episode of one environment with a fixed set of agents.
// Agent slot i plays player i for the episode's lifetime.
type Runner struct {
	env    core.Env
	agents []agent.Agent
	opts   Options
	log    zerolog.Logger
}

func New(env core.Env, agents []agent.Agent, opts Options) (*Runner, error) {
	if env == nil {
		return nil, fmt.Errorf("runner requires an environment")
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("runner requires at least one agent")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("game", opts.GameID).Logger()
	}
	return &Runner{env: env, agents: agents, opts: opts, log: log}, nil
}

// Run resets the environment and plays until natural termination, the turn
// ceiling, cancellation or an environment fault. Every episode concludes
// with a closed log whose status is terminated, truncated or errored; only
// configuration and environment-internal errors are returned to the
// caller.
func (r *Runner) Run(ctx context.Context) (*episode.Log, error) {
	if _, err := r.env.Reset(core.ResetOptions{
		Seed:       r.opts.Seed,
		NumPlayers: len(r.agents),
		Options:    r.opts.EnvOptions,
	}); err != nil {
		return nil, errors.Wrap(err, "reset failed")
	}

	ep := episode.NewLog(r.opts.GameID, len(r.agents))
	r.publish(messaging.Event{
		EpisodeID: ep.ID(),
		GameID:    r.opts.GameID,
		Type:      messaging.EventReset,
		Timestamp: time.Now(),
	})
	r.log.Info().Stringer("episode", ep.ID()).Int("players", len(r.agents)).Stringer("mode", r.env.Mode()).Msg("episode started")

	var err error
	switch r.env.Mode() {
	case core.Sequential:
		err = r.runSequential(ctx, ep)
	case core.Simultaneous:
		err = r.runSimultaneous(ctx, ep)
	default:
		err = &core.ConfigurationError{Reason: fmt.Sprintf("unsupported turn mode %d", r.env.Mode())}
	}

	status := episode.StatusTruncated
	if err != nil {
		status = episode.StatusErrored
	} else if recs := ep.Records(); len(recs) > 0 && recs[len(recs)-1].Terminated {
		status = episode.StatusTerminated
	}
	if cerr := ep.Close(status); cerr != nil && err == nil {
		err = cerr
	}
	r.publish(messaging.Event{
		EpisodeID: ep.ID(),
		GameID:    r.opts.GameID,
		Type:      messaging.EventClose,
		Status:    status,
		Timestamp: time.Now(),
	})
	r.log.Info().Stringer("episode", ep.ID()).Str("status", string(status)).Int("turns", ep.Len()).Msg("episode finished")
	return ep, err
}

func (r *Runner) runSequential(ctx context.Context, ep *episode.Log) error {
	for turn := 0; turn < r.opts.MaxTurns; turn++ {
		if ctx.Err() != nil {
			r.log.Warn().Int("turn", turn).Msg("episode cancelled between turns")
			return nil
		}
		if r.env.IsTerminal() {
			return nil
		}
		done, err := r.playTurn(ctx, ep, turn)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// playTurn runs one observation -> action -> apply cycle for the current
// player, resolving illegal actions and timeouts per the configured
// policy. Returns done=true when the episode is over.
func (r *Runner) playTurn(ctx context.Context, ep *episode.Log, turn int) (bool, error) {
	p := r.env.CurrentPlayer()
	obs, err := r.env.Observation(p)
	if err != nil {
		return false, errors.Wrapf(err, "observation for player %d", p)
	}

	action, aerr := r.collect(ctx, p, obs)
	if stderrors.Is(aerr, context.Canceled) {
		return true, nil
	}

	retries := 0
	substituted := false
	for {
		if aerr == nil {
			if !r.env.IsLegal(p, action) {
				aerr = &core.IllegalActionError{Player: p, Action: action, Reason: "rejected by environment"}
			} else {
				res, serr := r.env.Step(p, action)
				switch {
				case serr == nil:
					return r.finishTurn(ep, turn, p, action, res)
				case core.Recoverable(serr):
					aerr = serr
				default:
					return false, errors.Wrapf(serr, "step by player %d", p)
				}
			}
		}
		if !core.Recoverable(aerr) {
			// An agent fault is an agent-raised condition: classified,
			// handled by policy, never escalated past the runner.
			aerr = &core.IllegalActionError{Player: p, Action: action, Reason: aerr.Error()}
		}
		r.log.Warn().Int("turn", turn).Int("player", int(p)).Err(aerr).Stringer("policy", r.opts.Illegal.Kind).Msg("action not accepted")

		switch r.opts.Illegal.Kind {
		case PolicyRetry:
			if retries < r.opts.Illegal.MaxRetries {
				retries++
				action, aerr = r.collect(ctx, p, withNotice(obs, p, aerr))
				if stderrors.Is(aerr, context.Canceled) {
					return true, nil
				}
				continue
			}
		case PolicySubstitute:
			if !substituted {
				substituted = true
				if d, ok := r.env.(core.DefaultActioner); ok {
					if sub := d.DefaultAction(p); sub != "" && r.env.IsLegal(p, sub) {
						action, aerr = sub, nil
						continue
					}
				}
			}
		}
		return true, r.forfeit(ep, turn, []core.PlayerID{p}, action, aerr)
	}
}

// finishTurn appends the turn record and reports whether the episode is
// over. The record for the final allowed turn of a still-running game is
// marked truncated.
func (r *Runner) finishTurn(ep *episode.Log, turn int, p core.PlayerID, action core.Action, res core.StepResult) (bool, error) {
	rec := episode.TurnRecord{
		TurnIndex:  turn,
		Player:     p,
		Action:     action,
		Rewards:    res.Rewards,
		Terminated: res.Terminated,
		Truncated:  res.Truncated,
		Info:       res.Info,
	}
	if !rec.Terminated && turn == r.opts.MaxTurns-1 {
		rec.Truncated = true
	}
	if err := ep.Append(rec); err != nil {
		return false, err
	}
	r.publishTurn(ep, rec)
	r.log.Debug().Int("turn", turn).Int("player", int(p)).Str("action", string(action)).Bool("terminated", rec.Terminated).Msg("turn applied")
	return rec.Terminated || rec.Truncated, nil
}

// forfeit closes the turn with a terminal loss for the offending players:
// exactly one record, penalty reward for each offender, neutral for the
// rest.
func (r *Runner) forfeit(ep *episode.Log, turn int, offenders []core.PlayerID, action core.Action, cause error) error {
	rewards := make(map[core.PlayerID]float64, len(r.agents))
	for i := range r.agents {
		rewards[core.PlayerID(i)] = 0
	}
	for _, p := range offenders {
		rewards[p] = r.opts.Illegal.Penalty
	}

	player := core.Broadcast
	if len(offenders) == 1 {
		player = offenders[0]
	}
	rec := episode.TurnRecord{
		TurnIndex:  turn,
		Player:     player,
		Action:     action,
		Rewards:    rewards,
		Terminated: true,
		Info: map[string]any{
			"forfeit": true,
			"reason":  cause.Error(),
		},
	}
	if err := ep.Append(rec); err != nil {
		return err
	}
	r.publishTurn(ep, rec)
	r.log.Warn().Int("turn", turn).Ints("offenders", playerInts(offenders)).Err(cause).Msg("episode forfeited")
	return nil
}

// collect obtains one action from the agent in slot p, bounded by the
// configured per-agent timeout. The agent call is the loop's only
// suspension point; the runner does not proceed until it resolves or
// expires. Expiry surfaces as an AgentTimeoutError.
func (r *Runner) collect(ctx context.Context, p core.PlayerID, obs core.Observation) (core.Action, error) {
	if int(p) < 0 || int(p) >= len(r.agents) {
		return "", &core.EnvironmentInternalError{Err: fmt.Errorf("environment reported player %d outside slot range", p)}
	}
	a := r.agents[p]

	actCtx := ctx
	cancel := func() {}
	if r.opts.ActionTimeout > 0 {
		actCtx, cancel = context.WithTimeout(ctx, r.opts.ActionTimeout)
	}
	defer cancel()

	var legal []core.Action
	if la, ok := r.env.(core.LegalActioner); ok {
		legal = la.LegalActions(p)
	}

	type outcome struct {
		action core.Action
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		if aw, ok := a.(agent.LegalAware); ok && legal != nil {
			act, err := aw.ActLegal(actCtx, obs, legal)
			ch <- outcome{act, err}
			return
		}
		act, err := a.Act(actCtx, obs)
		ch <- outcome{act, err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			if stderrors.Is(out.err, context.DeadlineExceeded) {
				return "", &core.AgentTimeoutError{Player: p, Timeout: r.opts.ActionTimeout}
			}
			return "", out.err
		}
		return out.action, nil
	case <-actCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &core.AgentTimeoutError{Player: p, Timeout: r.opts.ActionTimeout}
	}
}

// withNotice appends a rejection notice visible only to the offending
// player, for retry prompts.
func withNotice(obs core.Observation, p core.PlayerID, cause error) core.Observation {
	notice := fmt.Sprintf("Your last action was not accepted: %v. Submit a different, valid action.", cause)
	entries := make([]core.Entry, len(obs.Entries), len(obs.Entries)+1)
	copy(entries, obs.Entries)
	obs.Entries = append(entries, core.Entry{From: core.GameMaster, To: p, Text: notice})
	if obs.Text != "" {
		obs.Text += "\n"
	}
	obs.Text += "[GAME] " + notice
	return obs
}

func (r *Runner) publish(ev messaging.Event) {
	if r.opts.Events == nil {
		return
	}
	if err := r.opts.Events.Publish(ev); err != nil {
		r.log.Warn().Err(err).Msg("event publish failed")
	}
}

func (r *Runner) publishTurn(ep *episode.Log, rec episode.TurnRecord) {
	r.publish(messaging.Event{
		EpisodeID: ep.ID(),
		GameID:    r.opts.GameID,
		Type:      messaging.EventTurn,
		Record:    &rec,
		Timestamp: time.Now(),
	})
}

func playerInts(players []core.PlayerID) []int {
	out := make([]int, len(players))
	for i, p := range players {
		out[i] = int(p)
	}
	return out
}

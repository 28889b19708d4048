package runner

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/episode"
)

// runSimultaneous drives a joint-step environment: each round it collects
// one action per active player concurrently, applies the policy to any
// offender, then submits the joint set in a single StepJoint.
func (r *Runner) runSimultaneous(ctx context.Context, ep *episode.Log) error {
	jenv, ok := r.env.(core.JointEnv)
	if !ok {
		return &core.ConfigurationError{Reason: "environment declares simultaneous mode but does not implement JointEnv"}
	}

	for turn := 0; turn < r.opts.MaxTurns; turn++ {
		if ctx.Err() != nil {
			r.log.Warn().Int("turn", turn).Msg("episode cancelled between rounds")
			return nil
		}
		if r.env.IsTerminal() {
			return nil
		}

		players := jenv.ActivePlayers()
		moves, offenders, err := r.collectJoint(ctx, turn, players)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if len(offenders.players) > 0 {
			return r.forfeit(ep, turn, offenders.players, "", offenders.cause)
		}

		res, serr := jenv.StepJoint(moves)
		if serr != nil {
			if core.Recoverable(serr) {
				var illegal *core.IllegalActionError
				if stderrors.As(serr, &illegal) {
					return r.forfeit(ep, turn, []core.PlayerID{illegal.Player}, illegal.Action, serr)
				}
				return r.forfeit(ep, turn, players, "", serr)
			}
			return &core.EnvironmentInternalError{Err: serr}
		}

		done, err := r.finishRound(ep, turn, moves, res)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

type offense struct {
	players []core.PlayerID
	cause   error
}

// collectJoint gathers one action per active player, each under its own
// timeout, concurrently. Offending players (timeout, fault, illegal
// action) are resolved per the policy; those that cannot be resolved are
// returned as offenders.
func (r *Runner) collectJoint(ctx context.Context, turn int, players []core.PlayerID) (core.Moves, offense, error) {
	observations := make(map[core.PlayerID]core.Observation, len(players))
	for _, p := range players {
		obs, err := r.env.Observation(p)
		if err != nil {
			return nil, offense{}, &core.EnvironmentInternalError{Err: err}
		}
		observations[p] = obs
	}

	type submission struct {
		action core.Action
		err    error
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	submissions := make(map[core.PlayerID]submission, len(players))

	for _, p := range players {
		wg.Add(1)
		go func(p core.PlayerID) {
			defer wg.Done()
			action, err := r.collect(ctx, p, observations[p])
			mu.Lock()
			submissions[p] = submission{action: action, err: err}
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, offense{}, nil
	}

	var collectErrs error
	moves := make(core.Moves, len(players))
	var bad offense
	for _, p := range players {
		sub := submissions[p]
		aerr := sub.err
		action := sub.action
		if aerr == nil && !r.env.IsLegal(p, action) {
			aerr = &core.IllegalActionError{Player: p, Action: action, Reason: "rejected by environment"}
		}

		retries := 0
		for aerr != nil {
			collectErrs = multierror.Append(collectErrs, aerr)
			if r.opts.Illegal.Kind == PolicyRetry && retries < r.opts.Illegal.MaxRetries {
				retries++
				action, aerr = r.collect(ctx, p, withNotice(observations[p], p, aerr))
				if stderrors.Is(aerr, context.Canceled) {
					return nil, offense{}, nil
				}
				if aerr == nil && !r.env.IsLegal(p, action) {
					aerr = &core.IllegalActionError{Player: p, Action: action, Reason: "rejected by environment"}
				}
				continue
			}
			if r.opts.Illegal.Kind == PolicySubstitute {
				if d, ok := r.env.(core.DefaultActioner); ok {
					if def := d.DefaultAction(p); def != "" && r.env.IsLegal(p, def) {
						action, aerr = def, nil
						continue
					}
				}
			}
			bad.players = append(bad.players, p)
			bad.cause = aerr
			break
		}
		if aerr == nil {
			moves[p] = action
		}
	}

	if collectErrs != nil {
		r.log.Warn().Int("turn", turn).Err(collectErrs).Msg("joint collection had failures")
	}
	return moves, bad, nil
}

// finishRound appends one record for the joint round. Per-player actions
// go into Info since no single player owns the turn.
func (r *Runner) finishRound(ep *episode.Log, turn int, moves core.Moves, res core.StepResult) (bool, error) {
	actions := make(map[core.PlayerID]core.Action, len(moves))
	for p, a := range moves {
		actions[p] = a
	}
	info := map[string]any{"actions": actions}
	for k, v := range res.Info {
		info[k] = v
	}

	rec := episode.TurnRecord{
		TurnIndex:  turn,
		Player:     core.Broadcast,
		Rewards:    res.Rewards,
		Terminated: res.Terminated,
		Truncated:  res.Truncated,
		Info:       info,
	}
	if !rec.Terminated && turn == r.opts.MaxTurns-1 {
		rec.Truncated = true
	}
	if err := ep.Append(rec); err != nil {
		return false, err
	}
	r.publishTurn(ep, rec)
	r.log.Debug().Int("turn", turn).Int("actions", len(moves)).Bool("terminated", rec.Terminated).Msg("joint round applied")
	return rec.Terminated || rec.Truncated, nil
}

package wrappers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/plastic-labs/textarena/pkg/core"
)

// RecorderWrapper logs every applied action and the resulting transcript
// growth to a CSV stream, one row per event. A read-only consumer of the
// episode; it never alters observations, actions or rewards.
type RecorderWrapper struct {
	*Wrapper
	mu     sync.Mutex
	csv    *csv.Writer
	seen   int
	closer io.Closer
}

func NewRecorderWrapper(env core.Env, w io.Writer) *RecorderWrapper {
	rec := &RecorderWrapper{
		Wrapper: NewWrapper(env),
		csv:     csv.NewWriter(w),
	}
	if c, ok := w.(io.Closer); ok {
		rec.closer = c
	}
	rec.csv.Write([]string{"timestamp", "kind", "player", "text"})
	rec.csv.Flush()
	return rec
}

func (w *RecorderWrapper) Reset(opts core.ResetOptions) (map[core.PlayerID]core.Observation, error) {
	initial, err := w.Wrapper.Reset(opts)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.seen = 0
	w.write("reset", core.GameMaster, fmt.Sprintf("players=%d seed=%d", opts.NumPlayers, opts.Seed))
	w.mu.Unlock()
	return initial, nil
}

func (w *RecorderWrapper) Step(p core.PlayerID, a core.Action) (core.StepResult, error) {
	res, err := w.Wrapper.Step(p, a)
	if err != nil {
		return res, err
	}
	w.record(p, a)
	return res, nil
}

func (w *RecorderWrapper) StepJoint(moves core.Moves) (core.StepResult, error) {
	res, err := w.Wrapper.StepJoint(moves)
	if err != nil {
		return res, err
	}
	for p, a := range moves {
		w.record(p, a)
	}
	return res, nil
}

func (w *RecorderWrapper) record(p core.PlayerID, a core.Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.write("action", p, string(a))
}

func (w *RecorderWrapper) write(kind string, p core.PlayerID, text string) {
	w.csv.Write([]string{
		time.Now().Format(time.RFC3339),
		kind,
		strconv.Itoa(int(p)),
		text,
	})
	w.csv.Flush()
}

// CloseRecorder flushes and closes the underlying writer if it is a
// Closer.
func (w *RecorderWrapper) CloseRecorder() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

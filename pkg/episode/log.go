// Package episode holds the append-only record of a single game run and
// its export format for external analysis/training tooling.
package episode

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plastic-labs/textarena/pkg/core"
)

// Status is how an episode concluded. Every episode concludes with exactly
// one of these; a run never ends silently.
type Status string

const (
	// StatusTerminated means the game reached its own terminal condition.
	StatusTerminated Status = "terminated"
	// StatusTruncated means the turn ceiling, a cancellation or another
	// external stop ended the episode before a natural outcome.
	StatusTruncated Status = "truncated"
	// StatusErrored means an environment invariant violation aborted the
	// episode.
	StatusErrored Status = "errored"
)

// TurnRecord is one log entry per applied action (or joint round).
// Immutable once appended; TurnIndex increases monotonically from 0.
type TurnRecord struct {
	TurnIndex  int                       `json:"turn_index"`
	Player     core.PlayerID             `json:"player"`
	Action     core.Action               `json:"action"`
	Rewards    map[core.PlayerID]float64 `json:"reward_map,omitempty"`
	Terminated bool                      `json:"terminated"`
	Truncated  bool                      `json:"truncated"`
	Info       map[string]any            `json:"info,omitempty"`
}

// Header identifies the episode in exports.
type Header struct {
	EpisodeID  uuid.UUID `json:"episode_id"`
	GameID     string    `json:"game_id"`
	NumPlayers int       `json:"num_players"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitempty"`
}

// Log is the append-only sequence of turn records for one episode. Safe
// for concurrent reads while the owning runner appends.
type Log struct {
	mu sync.RWMutex

	id         uuid.UUID
	gameID     string
	numPlayers int
	startedAt  time.Time
	endedAt    time.Time

	records []TurnRecord
	status  Status
	closed  bool
}

func NewLog(gameID string, numPlayers int) *Log {
	return &Log{
		id:         uuid.New(),
		gameID:     gameID,
		numPlayers: numPlayers,
		startedAt:  time.Now(),
	}
}

func (l *Log) ID() uuid.UUID { return l.id }

func (l *Log) GameID() string { return l.gameID }

func (l *Log) NumPlayers() int { return l.numPlayers }

// Append adds one record. It fails after Close and when the record's index
// does not continue the sequence: no dropped or duplicated entries.
func (l *Log) Append(rec TurnRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("episode %s is closed", l.id)
	}
	if rec.TurnIndex != len(l.records) {
		return fmt.Errorf("turn index %d does not follow %d records", rec.TurnIndex, len(l.records))
	}
	l.records = append(l.records, rec)
	return nil
}

// Close finalizes the outcome. A log closes exactly once; the records are
// immutable afterwards.
func (l *Log) Close(status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("episode %s is already closed", l.id)
	}
	l.closed = true
	l.status = status
	l.endedAt = time.Now()
	return nil
}

func (l *Log) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *Log) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of the full transcript, supporting replay.
func (l *Log) Records() []TurnRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]TurnRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Rewards returns the final reward map: the rewards carried by the last
// record, or nil for an empty log.
func (l *Log) Rewards() map[core.PlayerID]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return nil
	}
	last := l.records[len(l.records)-1]
	out := make(map[core.PlayerID]float64, len(last.Rewards))
	for p, r := range last.Rewards {
		out[p] = r
	}
	return out
}

func (l *Log) header() Header {
	return Header{
		EpisodeID:  l.id,
		GameID:     l.gameID,
		NumPlayers: l.numPlayers,
		Status:     l.status,
		StartedAt:  l.startedAt,
		EndedAt:    l.endedAt,
	}
}

// WriteJSONL exports the episode as JSON lines: a header object followed
// by one object per turn record.
func (l *Log) WriteJSONL(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	enc := json.NewEncoder(w)
	if err := enc.Encode(l.header()); err != nil {
		return err
	}
	for _, rec := range l.records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONL reconstructs an exported episode for replay.
func ReadJSONL(r io.Reader) (Header, []TurnRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return Header{}, nil, fmt.Errorf("empty episode export")
	}
	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return Header{}, nil, fmt.Errorf("bad episode header: %w", err)
	}

	var records []TurnRecord
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec TurnRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return Header{}, nil, fmt.Errorf("bad turn record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return header, records, scanner.Err()
}

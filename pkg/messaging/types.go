package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/plastic-labs/textarena/pkg/episode"
)

type EventType string

const (
	// EventReset marks the start of an episode.
	EventReset EventType = "reset"
	// EventTurn carries one completed turn record.
	EventTurn EventType = "turn"
	// EventClose marks the end of an episode with its final status.
	EventClose EventType = "close"
)

// Event is one item on the episode stream. Consumers are read-only: the
// stream never feeds back into game state.
type Event struct {
	EpisodeID uuid.UUID
	GameID    string
	Type      EventType
	Record    *episode.TurnRecord // set for EventTurn
	Status    episode.Status      // set for EventClose
	Timestamp time.Time
}

// Publisher is the side the orchestrator uses.
type Publisher interface {
	Publish(ev Event) error
}

// Broker routes episode events to subscribers (renderers, exporters).
type Broker interface {
	Publisher
	// Subscribe registers a consumer to receive events.
	Subscribe(id string, ch chan<- Event) error
	// Unsubscribe removes a consumer.
	Unsubscribe(id string) error
}

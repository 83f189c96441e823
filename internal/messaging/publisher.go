package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-clocktower/internal/events"
)

// EventSubjectPrefix is prepended to game events: <prefix>.<game id>.<type>.
const EventSubjectPrefix = "clocktower.game"

// Publisher sends raw messages to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher is an event sink that publishes each event as JSON.
type EventPublisher struct {
	pub    Publisher
	prefix string
}

// NewEventPublisher wraps pub. An empty prefix uses EventSubjectPrefix.
func NewEventPublisher(pub Publisher, prefix string) *EventPublisher {
	if prefix == "" {
		prefix = EventSubjectPrefix
	}
	return &EventPublisher{pub: pub, prefix: prefix}
}

// Subject returns the subject an event is published on.
func (p *EventPublisher) Subject(e events.Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, e.GameID, e.Type)
}

func (p *EventPublisher) Emit(_ context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", e.Type, err)
	}
	if err := p.pub.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Type, err)
	}
	return nil
}

// Package notify publishes domain events for downstream consumers such as
// image analysis workers and dashboards.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event topics, relative to the configured prefix.
const (
	TopicObservationRecorded = "observation.recorded"
	TopicPlotDeleted         = "plot.deleted"
	topicImageOperation      = "image.operation"
)

// ImageOperationTopic returns the topic for an image operation reaching
// status. Spaces become underscores: "in progress" publishes to
// image.operation.in_progress.
func ImageOperationTopic(status string) string {
	return topicImageOperation + "." + strings.ReplaceAll(status, " ", "_")
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// Event is the JSON document published for every payload.
type Event struct {
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func encode(topic string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Topic: topic, Timestamp: time.Now().UTC(), Data: data})
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic string, payload any) error {
	raw, err := encode(topic, payload)
	if err != nil {
		return err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of the events published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Topics returns the topics published so far, in order.
func (p *MemoryPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i := range p.events {
		out[i] = p.events[i].Topic
	}
	return out
}

var (
	_ Publisher = NoopPublisher{}
	_ Publisher = (*MemoryPublisher)(nil)
)

// Package realtime is the push half of the data access layer: writes publish
// change events per table, and readers subscribe to a table with an
// optional equality filter on one column.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event is one committed change of one row.
type Event struct {
	Type   EventType       `json:"eventType"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// Field returns a top-level field of the record rendered as a string.
func (e Event) Field(name string) (string, bool) {
	fields, err := e.fields()
	if err != nil {
		return "", false
	}
	return field(fields, name)
}

func (e Event) fields() (map[string]any, error) {
	var fields map[string]any
	err := json.Unmarshal(e.Record, &fields)
	return fields, err
}

func field(fields map[string]any, name string) (string, bool) {
	v, ok := fields[name]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Decode unmarshals the record into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Record, v)
}

// Topic selects the events of one table, optionally only rows whose
// Column equals Value.
type Topic struct {
	Table  string
	Column string
	Value  string
}

// matches takes the record already decoded; fields is nil when the record
// is not an object.
func (t Topic) matches(table string, fields map[string]any) bool {
	if t.Table != table {
		return false
	}
	if t.Column == "" {
		return true
	}
	got, ok := field(fields, t.Column)
	return ok && got == t.Value
}

// Publisher is what the repositories need to announce committed writes.
type Publisher interface {
	Publish(ctx context.Context, table string, typ EventType, record any)
}

// Subscriber opens push channels.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error)
}

const channelPrefix = "changes:"

func channelFor(table string) string {
	return channelPrefix + table
}

// Hub publishes and subscribes through Redis pub/sub. A single channel
// delivers in publish order; nothing orders events across channels.
type Hub struct {
	rc     *redis.Client
	buffer int
}

func NewHub(rc *redis.Client, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{rc: rc, buffer: buffer}
}

// Publish never fails the caller's write; errors are logged.
func (h *Hub) Publish(ctx context.Context, table string, typ EventType, record any) {
	raw, err := json.Marshal(record)
	if err != nil {
		log.WithError(err).WithField("table", table).Error("failed to encode change record")
		return
	}
	data, err := json.Marshal(Event{Type: typ, Table: table, Record: raw})
	if err != nil {
		log.WithError(err).WithField("table", table).Error("failed to encode change event")
		return
	}
	if err := h.rc.Publish(ctx, channelFor(table), data).Err(); err != nil {
		log.WithError(err).WithField("table", table).Error("failed to publish change event")
	}
}

// Subscribe starts a listener for topics. It returns once Redis confirmed
// the subscription, so no event published afterwards is missed.
func (h *Hub) Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("realtime: no topics")
	}
	channels := make([]string, 0, len(topics))
	seen := map[string]bool{}
	for _, t := range topics {
		ch := channelFor(t.Table)
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}

	ps := h.rc.Subscribe(ctx, channels...)
	for range channels {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("realtime: subscribe %v: %w", channels, err)
		}
	}

	lctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		events: make(chan Event, h.buffer),
		cancel: cancel,
		done:   make(chan struct{}),
		ps:     ps,
	}
	go s.listen(lctx, topics)
	return s, nil
}

// Subscription is a cancellable background listener delivering into a
// bounded queue. When the queue is full the oldest event is dropped.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	ps     *redis.PubSub
	once   sync.Once
}

// Events is closed after Close or when the underlying connection is lost.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes immediately and waits for the listener to exit.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.ps.Close()
	})
	<-s.done
}

func (s *Subscription) listen(ctx context.Context, topics []Topic) {
	defer close(s.done)
	defer close(s.events)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.WithError(err).WithField("channel", msg.Channel).Error("unable to parse change event")
				continue
			}
			// a record that is not an object still matches unfiltered topics
			fields, _ := ev.fields()
			for _, t := range topics {
				if t.matches(ev.Table, fields) {
					s.deliver(ev)
					break
				}
			}
		}
	}
}

func (s *Subscription) deliver(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
		log.WithField("table", ev.Table).Warn("subscription queue full, dropped oldest event")
	default:
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, string, EventType, any) {}

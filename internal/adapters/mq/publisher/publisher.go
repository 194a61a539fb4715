// Package publisher fans committed match events out to other processes.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

const (
	subjectPrefix  = "duel.session"
	reconnectWait  = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// Publisher delivers match events. Delivery is best effort: the match state
// is already committed when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, evt model.MatchEvent) error
	Close() error
}

// Subject returns the subject an event is published on,
// duel.session.<id>.<type>.
func Subject(evt model.MatchEvent) string { //nolint:gocritic // hugeParam: events are small values
	return subjectPrefix + "." + evt.SessionID + "." + string(evt.Type)
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, model.MatchEvent) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// NATSPublisher publishes events as JSON over core NATS.
type NATSPublisher struct {
	nc     *nats.Conn
	logger logger.Logger
}

// NewNATSPublisher connects to url with unlimited reconnects.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	log := logger.Get().Named("publisher")
	opts := []nats.Option{
		nats.Name("duel"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, logger: log}, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, evt model.MatchEvent) error { //nolint:gocritic // hugeParam: see Subject
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(Subject(evt), raw); err != nil {
		metrics.RecordErrorByComponent("publisher", "publish_failed")
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	metrics.RecordEventPublished(string(evt.Type))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []model.MatchEvent
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, evt model.MatchEvent) error { //nolint:gocritic // hugeParam: see Subject
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []model.MatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.MatchEvent(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

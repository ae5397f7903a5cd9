package vcs

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// Sink delivers a characteristic value to a connected observer.
type Sink interface {
	Deliver(c comms.Characteristic, value []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(c comms.Characteristic, value []byte) error

func (f SinkFunc) Deliver(c comms.Characteristic, value []byte) error {
	return f(c, value)
}

// SubscriptionEvent reports that an observer enabled or disabled
// notifications for a characteristic.
type SubscriptionEvent struct {
	Characteristic comms.Characteristic
	Enabled        bool
}

// Subscriptions holds one enabled flag per notifiable characteristic. The map
// is fixed at construction; each flag is updated atomically on its own.
type Subscriptions struct {
	enabled map[comms.Characteristic]*atomic.Bool
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		enabled: map[comms.Characteristic]*atomic.Bool{
			comms.CharacteristicState: new(atomic.Bool),
			comms.CharacteristicFlags: new(atomic.Bool),
		},
	}
}

// Apply flips the flag named by ev. It returns false for characteristics that
// cannot be subscribed to.
func (s *Subscriptions) Apply(ev SubscriptionEvent) bool {
	flag, ok := s.enabled[ev.Characteristic]
	if !ok {
		return false
	}
	flag.Store(ev.Enabled)
	return true
}

func (s *Subscriptions) Enabled(c comms.Characteristic) bool {
	flag, ok := s.enabled[c]
	return ok && flag.Load()
}

// Gateway pushes state and flags to one observer, gated by its subscriptions.
// Delivery is best effort: failures are logged and not retried.
type Gateway struct {
	store  *Store
	subs   *Subscriptions
	sink   Sink
	source string

	logger *slog.Logger
	events eventlog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithSource names the observer in logs and in the event journal.
func WithSource(source string) GatewayOption {
	return func(g *Gateway) { g.source = source }
}

func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithGatewayEvents(events eventlog.Logger) GatewayOption {
	return func(g *Gateway) {
		if events != nil {
			g.events = events
		}
	}
}

func NewGateway(store *Store, sink Sink, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:  store,
		subs:   NewSubscriptions(),
		sink:   sink,
		logger: slog.Default(),
		events: eventlog.NoopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Source() string {
	return g.source
}

func (g *Gateway) Subscriptions() *Subscriptions {
	return g.subs
}

// Subscribe applies a subscription change coming from the connection layer.
func (g *Gateway) Subscribe(ev SubscriptionEvent) {
	if !g.subs.Apply(ev) {
		g.logger.Debug("ignoring subscription to non-notifiable characteristic",
			slog.String("source", g.source),
			slog.String("characteristic", ev.Characteristic.String()))
		return
	}
	g.logger.Debug("subscription changed",
		slog.String("source", g.source),
		slog.String("characteristic", ev.Characteristic.String()),
		slog.Bool("enabled", ev.Enabled))
	g.events.Log(eventlog.Event{
		Timestamp:      time.Now(),
		Source:         g.source,
		Kind:           eventlog.KindSubscribe,
		Characteristic: uint8(ev.Characteristic),
		Enabled:        ev.Enabled,
	})
}

// NotifyState sends the current state if the observer subscribed to it.
func (g *Gateway) NotifyState() {
	if !g.subs.Enabled(comms.CharacteristicState) {
		return
	}
	g.deliver(comms.CharacteristicState, g.store.Read().Bytes())
}

// NotifyFlags sends flags if the observer subscribed to the flags characteristic.
func (g *Gateway) NotifyFlags(flags Flags) {
	if !g.subs.Enabled(comms.CharacteristicFlags) {
		return
	}
	g.deliver(comms.CharacteristicFlags, flags.Bytes())
}

func (g *Gateway) deliver(c comms.Characteristic, value []byte) {
	event := eventlog.Event{
		Timestamp:      time.Now(),
		Source:         g.source,
		Kind:           eventlog.KindNotify,
		Characteristic: uint8(c),
		Data:           value,
	}
	if err := g.sink.Deliver(c, value); err != nil {
		event.Error = err.Error()
		g.logger.Warn("notification not delivered",
			slog.String("source", g.source),
			slog.String("characteristic", c.String()),
			slog.String("error", err.Error()))
	}
	g.events.Log(event)
}

var _ Notifier = (*Gateway)(nil)

package vcs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// Service ties one Store and one Processor to the gateways of every
// connected observer. Its lifetime is the lifetime of the renderer.
type Service struct {
	store     *Store
	processor *Processor
}

// NewService creates the store with the given initial values and a processor
// configured by opts.
func NewService(initial State, flags Flags, opts ...Option) *Service {
	store := NewStore(initial, flags)
	return &Service{
		store:     store,
		processor: NewProcessor(store, opts...),
	}
}

func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) Processor() *Processor {
	return s.processor
}

func (s *Service) Logger() *slog.Logger {
	return s.processor.logger
}

// Attach creates a gateway for a new observer and registers it with the
// processor. Detach it when the observer goes away.
func (s *Service) Attach(sink Sink, source string) *Gateway {
	g := NewGateway(s.store, sink,
		WithSource(source),
		WithGatewayLogger(s.processor.logger),
		WithGatewayEvents(s.processor.events))
	s.processor.AddNotifier(g)
	return g
}

func (s *Service) Detach(g *Gateway) {
	s.processor.RemoveNotifier(g)
}

// WriteControlPoint hands a raw control point write to the processor.
func (s *Service) WriteControlPoint(source string, offset int, data []byte) (int, error) {
	return s.processor.ProcessFrom(source, offset, data)
}

// Read serves a read of c on behalf of source.
func (s *Service) Read(source string, c comms.Characteristic, offset, maxLen int) ([]byte, error) {
	value, err := ReadCharacteristic(s.store, c, offset, maxLen)
	event := eventlog.Event{
		Timestamp:      time.Now(),
		Source:         source,
		Kind:           eventlog.KindRead,
		Characteristic: uint8(c),
		Data:           value,
		Offset:         offset,
	}
	if code, ok := ATTCode(err); ok {
		event.Code = code
	}
	s.processor.events.Log(event)
	return value, err
}

func (s *Service) ReadState(offset, maxLen int) ([]byte, error) {
	return ReadState(s.store, offset, maxLen)
}

func (s *Service) ReadFlags(offset, maxLen int) ([]byte, error) {
	return ReadFlags(s.store, offset, maxLen)
}

// LogConnection records a peer connecting or disconnecting.
func (s *Service) LogConnection(source string, connected bool) {
	s.processor.events.Log(eventlog.Event{
		Timestamp: time.Now(),
		Source:    source,
		Kind:      eventlog.KindConnect,
		Enabled:   connected,
	})
}

// Describe renders the current state and flags for operators.
func (s *Service) Describe() string {
	state, flags := s.store.Snapshot()
	mute := 0
	if state.Mute {
		mute = 1
	}
	persisted := 0
	if flags.VolumeSettingPersisted() {
		persisted = 1
	}
	return fmt.Sprintf("Volume State:\n  Volume Setting: %d\n  Mute: %d\n  Change Counter: %d\nVolume Flags:\n  Volume_Setting_Persisted: %d\n",
		state.Volume, mute, state.ChangeCounter, persisted)
}

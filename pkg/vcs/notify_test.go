package vcs

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Deliver(c comms.Characteristic, value []byte) error {
	args := m.Called(c, value)
	return args.Error(0)
}

type memoryEvents struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (m *memoryEvents) Log(e eventlog.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memoryEvents) kinds() []eventlog.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]eventlog.Kind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestGateway_NoDeliveryWithoutSubscription(t *testing.T) {
	sink := &mockSink{}
	g := NewGateway(NewStore(DefaultState, 0), sink)

	g.NotifyState()
	g.NotifyFlags(FlagVolumeSettingPersisted)

	sink.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestGateway_DeliversSubscribedCharacteristicsOnly(t *testing.T) {
	sink := &mockSink{}
	store := NewStore(State{Volume: 9, Mute: true, ChangeCounter: 4}, 0)
	g := NewGateway(store, sink)

	sink.On("Deliver", comms.CharacteristicState, []byte{9, 1, 4}).Return(nil).Once()
	g.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})

	g.NotifyState()
	g.NotifyFlags(FlagVolumeSettingPersisted)
	sink.AssertExpectations(t)

	sink.On("Deliver", comms.CharacteristicFlags, []byte{0x01}).Return(nil).Once()
	g.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true})
	g.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: false})

	g.NotifyState()
	g.NotifyFlags(FlagVolumeSettingPersisted)
	sink.AssertExpectations(t)
}

func TestGateway_DeliveryFailureIsNotFatal(t *testing.T) {
	sink := &mockSink{}
	events := &memoryEvents{}
	g := NewGateway(NewStore(DefaultState, 0), sink, WithSource("ws:test"), WithGatewayEvents(events))
	g.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})

	sink.On("Deliver", comms.CharacteristicState, mock.Anything).Return(errors.New("backpressure"))
	assert.NotPanics(t, g.NotifyState)

	require.Len(t, events.events, 2)
	assert.Equal(t, eventlog.KindNotify, events.events[1].Kind)
	assert.Equal(t, "backpressure", events.events[1].Error)
	assert.Equal(t, "ws:test", events.events[1].Source)
}

func TestSubscriptions_ControlPointIsNotNotifiable(t *testing.T) {
	s := NewSubscriptions()
	assert.False(t, s.Apply(SubscriptionEvent{Characteristic: comms.CharacteristicControlPoint, Enabled: true}))
	assert.False(t, s.Enabled(comms.CharacteristicControlPoint))

	assert.True(t, s.Apply(SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true}))
	assert.True(t, s.Enabled(comms.CharacteristicFlags))
	assert.False(t, s.Enabled(comms.CharacteristicState))
}

func TestService_GatewaysSeeCommittedState(t *testing.T) {
	events := &memoryEvents{}
	svc := NewService(DefaultState, 0, WithStepSize(10), WithEventLogger(events))

	a, b := &mockSink{}, &mockSink{}
	ga := svc.Attach(a, "a")
	gb := svc.Attach(b, "b")
	ga.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})
	ga.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true})
	gb.Subscribe(SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})

	a.On("Deliver", comms.CharacteristicFlags, []byte{0x01}).Return(nil).Once()
	a.On("Deliver", comms.CharacteristicState, []byte{138, 0, 1}).Return(nil).Once()
	b.On("Deliver", comms.CharacteristicState, []byte{138, 0, 1}).Return(nil).Once()

	_, err := svc.WriteControlPoint("a", 0, []byte{0x01, 0x00})
	require.NoError(t, err)
	a.AssertExpectations(t)
	b.AssertExpectations(t)

	svc.Detach(gb)
	a.On("Deliver", comms.CharacteristicState, []byte{138, 1, 2}).Return(nil).Once()
	_, err = svc.WriteControlPoint("a", 0, []byte{0x06, 0x01})
	require.NoError(t, err)
	a.AssertExpectations(t)
	b.AssertNumberOfCalls(t, "Deliver", 1)

	assert.Contains(t, events.kinds(), eventlog.KindWrite)
	assert.Contains(t, events.kinds(), eventlog.KindNotify)
	assert.Contains(t, events.kinds(), eventlog.KindSubscribe)
}

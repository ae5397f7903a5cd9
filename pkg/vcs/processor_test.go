package vcs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

type recordingNotifier struct {
	mu     sync.Mutex
	states int
	flags  []Flags
}

func (r *recordingNotifier) NotifyState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states++
}

func (r *recordingNotifier) NotifyFlags(f Flags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = append(r.flags, f)
}

func newTestProcessor(t *testing.T, initial State, step uint8) (*Processor, *Store, *recordingNotifier) {
	t.Helper()
	store := NewStore(initial, 0)
	p := NewProcessor(store, WithStepSize(step))
	n := &recordingNotifier{}
	p.AddNotifier(n)
	return p, store, n
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, kind, e.Kind)
}

func TestProcess_RelativeUpScenario(t *testing.T) {
	p, store, n := newTestProcessor(t, State{Volume: 128}, 10)

	count, err := p.Process(0, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, State{Volume: 138, Mute: false, ChangeCounter: 1}, store.Read())
	assert.True(t, store.Flags().VolumeSettingPersisted())
	assert.Equal(t, 1, n.states)
	assert.Equal(t, []Flags{FlagVolumeSettingPersisted}, n.flags)
}

func TestProcess_MuteScenario(t *testing.T) {
	p, store, n := newTestProcessor(t, State{Volume: 128}, 10)

	_, err := p.Process(0, []byte{0x06, 0x00})
	require.NoError(t, err)
	assert.Equal(t, State{Volume: 128, Mute: true, ChangeCounter: 1}, store.Read())
	assert.False(t, store.Flags().VolumeSettingPersisted())
	assert.Equal(t, 1, n.states)
	assert.Empty(t, n.flags)
}

func TestProcess_Opcodes(t *testing.T) {
	tests := []struct {
		name    string
		initial State
		data    []byte
		want    State
		persist bool
	}{
		{"down", State{Volume: 50}, []byte{0x00, 0}, State{Volume: 45, ChangeCounter: 1}, true},
		{"down saturates", State{Volume: 3}, []byte{0x00, 0}, State{Volume: 0, ChangeCounter: 1}, true},
		{"down at zero", State{Volume: 0}, []byte{0x00, 0}, State{Volume: 0, ChangeCounter: 1}, true},
		{"up saturates", State{Volume: 252}, []byte{0x01, 0}, State{Volume: 255, ChangeCounter: 1}, true},
		{"up at max", State{Volume: 255}, []byte{0x01, 0}, State{Volume: 255, ChangeCounter: 1}, true},
		{"down unmute", State{Volume: 50, Mute: true}, []byte{0x02, 0}, State{Volume: 45, ChangeCounter: 1}, true},
		{"up unmute", State{Volume: 50, Mute: true}, []byte{0x03, 0}, State{Volume: 55, ChangeCounter: 1}, true},
		{"absolute", State{Volume: 50, Mute: true}, []byte{0x04, 0, 0xFF}, State{Volume: 255, Mute: true, ChangeCounter: 1}, true},
		{"absolute zero", State{Volume: 50}, []byte{0x04, 0, 0}, State{Volume: 0, ChangeCounter: 1}, true},
		{"unmute", State{Volume: 50, Mute: true}, []byte{0x05, 0}, State{Volume: 50, ChangeCounter: 1}, false},
		{"mute", State{Volume: 50}, []byte{0x06, 0}, State{Volume: 50, Mute: true, ChangeCounter: 1}, false},
		{"mute when muted", State{Volume: 50, Mute: true}, []byte{0x06, 0}, State{Volume: 50, Mute: true, ChangeCounter: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, n := newTestProcessor(t, tt.initial, 5)
			count, err := p.Process(0, tt.data)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), count)
			assert.Equal(t, tt.want, store.Read())
			assert.Equal(t, tt.persist, store.Flags().VolumeSettingPersisted())
			assert.Equal(t, 1, n.states)
			assert.Equal(t, tt.persist, len(n.flags) == 1)
		})
	}
}

func TestProcess_DefaultStepIsOne(t *testing.T) {
	store := NewStore(DefaultState, 0)
	p := NewProcessor(store, WithStepSize(0))
	assert.Equal(t, DefaultStepSize, p.StepSize())

	_, err := p.Process(0, []byte{0x01, 0})
	require.NoError(t, err)
	assert.Equal(t, uint8(129), store.Read().Volume)
}

func TestProcess_StaleCounterRejectedForEveryOpcode(t *testing.T) {
	for _, op := range comms.Opcodes {
		t.Run(op.String(), func(t *testing.T) {
			initial := State{Volume: 100, ChangeCounter: 5}
			p, store, n := newTestProcessor(t, initial, 10)

			count, err := p.Process(0, comms.Encode(op, 4, 10))
			requireKind(t, err, InvalidChangeCounter)
			assert.Zero(t, count)
			assert.Equal(t, initial, store.Read())
			assert.Zero(t, store.Flags())
			assert.Zero(t, n.states)

			code, ok := ATTCode(err)
			assert.True(t, ok)
			assert.Equal(t, byte(0x80), code)
		})
	}
}

func TestProcess_CounterCheckedBeforeOpcode(t *testing.T) {
	p, _, _ := newTestProcessor(t, State{ChangeCounter: 9}, 1)
	_, err := p.Process(0, []byte{0x07, 0})
	requireKind(t, err, InvalidChangeCounter)
}

func TestProcess_InvalidOpcode(t *testing.T) {
	initial := State{Volume: 10}
	p, store, n := newTestProcessor(t, initial, 1)

	_, err := p.Process(0, []byte{0x07, 0})
	requireKind(t, err, InvalidOpcode)
	assert.Equal(t, initial, store.Read())
	assert.Zero(t, n.states)

	code, _ := ATTCode(err)
	assert.Equal(t, byte(0x81), code)
}

func TestProcess_InvalidLength(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		data   []byte
	}{
		{"empty", 0, nil},
		{"one byte", 0, []byte{0x01}},
		{"four bytes", 0, []byte{0x04, 0, 1, 2}},
		{"absolute missing operand", 0, []byte{0x04, 0}},
		{"operand on relative opcode", 0, []byte{0x01, 0, 1}},
		{"non-zero offset", 1, []byte{0x01, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := State{Volume: 77}
			p, store, n := newTestProcessor(t, initial, 1)

			_, err := p.Process(tt.offset, tt.data)
			requireKind(t, err, InvalidLength)
			assert.Equal(t, initial, store.Read())
			assert.Zero(t, n.states)

			code, _ := ATTCode(err)
			assert.Equal(t, comms.ATTInvalidAttributeLength, code)
		})
	}
}

func TestProcess_ReplayIsRejected(t *testing.T) {
	p, store, _ := newTestProcessor(t, State{Volume: 128}, 10)
	req := []byte{0x01, 0x00}

	_, err := p.Process(0, req)
	require.NoError(t, err)
	_, err = p.Process(0, req)
	requireKind(t, err, InvalidChangeCounter)

	assert.Equal(t, State{Volume: 138, ChangeCounter: 1}, store.Read())
}

func TestProcess_CounterWraps(t *testing.T) {
	p, store, _ := newTestProcessor(t, State{ChangeCounter: 255}, 1)

	_, err := p.Process(0, []byte{0x06, 255})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), store.Read().ChangeCounter)

	_, err = p.Process(0, []byte{0x05, 0})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), store.Read().ChangeCounter)
}

func TestProcess_CounterAdvancesOncePerSuccess(t *testing.T) {
	p, store, n := newTestProcessor(t, DefaultState, 1)

	for i := 0; i < 600; i++ {
		cur := store.Read()
		op := comms.Opcodes[i%len(comms.Opcodes)]
		_, err := p.Process(0, comms.Encode(op, cur.ChangeCounter, uint8(i)))
		require.NoError(t, err)
		assert.Equal(t, cur.ChangeCounter+1, store.Read().ChangeCounter)
	}
	assert.Equal(t, 600, n.states)
}

func TestProcess_ConcurrentWritersSerialize(t *testing.T) {
	p, store, _ := newTestProcessor(t, DefaultState, 1)

	const writers = 32
	var ok, stale atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := p.Process(0, []byte{0x01, 0})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, InvalidChangeCounter):
				stale.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(writers-1), stale.Load())
	assert.Equal(t, State{Volume: 129, ChangeCounter: 1}, store.Read())
}

func TestProcess_RemoveNotifier(t *testing.T) {
	p, _, n := newTestProcessor(t, DefaultState, 1)
	p.RemoveNotifier(n)

	_, err := p.Process(0, []byte{0x06, 0})
	require.NoError(t, err)
	assert.Zero(t, n.states)
}

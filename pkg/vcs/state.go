package vcs

import (
	"fmt"
	"sync"

	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// State is the Volume State characteristic value.
type State struct {
	Volume        uint8
	Mute          bool
	ChangeCounter uint8
}

// DefaultState is the state a renderer starts with.
var DefaultState = State{Volume: 128}

// Bytes encodes the state as [volume, mute, change counter].
func (s State) Bytes() []byte {
	var mute uint8
	if s.Mute {
		mute = 1
	}
	return []byte{s.Volume, mute, s.ChangeCounter}
}

func (s State) String() string {
	return fmt.Sprintf("volume=%d mute=%t counter=%d", s.Volume, s.Mute, s.ChangeCounter)
}

// DecodeState parses a Volume State characteristic value.
func DecodeState(b []byte) (State, error) {
	if len(b) != comms.StateLen {
		return State{}, fmt.Errorf("volume state must be %d bytes, got %d", comms.StateLen, len(b))
	}
	if b[1] > 1 {
		return State{}, fmt.Errorf("invalid mute value %d", b[1])
	}
	return State{Volume: b[0], Mute: b[1] == 1, ChangeCounter: b[2]}, nil
}

// Flags is the Volume Flags characteristic value.
type Flags uint8

// FlagVolumeSettingPersisted advises the client that the current volume
// should be kept as the new default.
const FlagVolumeSettingPersisted Flags = 1 << 0

func (f Flags) VolumeSettingPersisted() bool {
	return f&FlagVolumeSettingPersisted != 0
}

func (f Flags) Bytes() []byte {
	return []byte{uint8(f)}
}

// DecodeFlags parses a Volume Flags characteristic value.
func DecodeFlags(b []byte) (Flags, error) {
	if len(b) != comms.FlagsLen {
		return 0, fmt.Errorf("volume flags must be %d byte, got %d", comms.FlagsLen, len(b))
	}
	return Flags(b[0]), nil
}

// Store holds the authoritative state and flags. It applies no policy: all
// validation happens in the Processor, which is the only writer.
type Store struct {
	mu    sync.RWMutex
	state State
	flags Flags
}

func NewStore(initial State, flags Flags) *Store {
	return &Store{state: initial, flags: flags}
}

// Read returns a snapshot of the state.
func (s *Store) Read() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Write replaces the state. The caller must already have advanced the change counter.
func (s *Store) Write(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Store) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

func (s *Store) SetFlags(f Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = f
}

// Snapshot returns state and flags read together.
func (s *Store) Snapshot() (State, Flags) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.flags
}

// commit replaces state and flags in one step.
func (s *Store) commit(state State, flags Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.flags = flags
}

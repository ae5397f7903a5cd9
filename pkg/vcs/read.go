package vcs

import (
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// ReadState serves the Volume State value from offset. maxLen bounds the
// returned slice to the requester's window; zero or less means no bound.
func ReadState(store *Store, offset, maxLen int) ([]byte, error) {
	return readWindow(store.Read().Bytes(), offset, maxLen)
}

// ReadFlags serves the Volume Flags value like ReadState.
func ReadFlags(store *Store, offset, maxLen int) ([]byte, error) {
	return readWindow(store.Flags().Bytes(), offset, maxLen)
}

// readWindow mirrors an ATT read: an offset equal to the length yields an
// empty value, anything past it is an error.
func readWindow(value []byte, offset, maxLen int) ([]byte, error) {
	if offset < 0 || offset > len(value) {
		return nil, &Error{Kind: InvalidOffset, Offset: offset, Len: len(value)}
	}
	out := value[offset:]
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out, nil
}

// ReadCharacteristic dispatches a read by characteristic. The control point
// is write-only.
func ReadCharacteristic(store *Store, c comms.Characteristic, offset, maxLen int) ([]byte, error) {
	switch c {
	case comms.CharacteristicState:
		return ReadState(store, offset, maxLen)
	case comms.CharacteristicFlags:
		return ReadFlags(store, offset, maxLen)
	default:
		return nil, &Error{Kind: ReadNotPermitted, Offset: offset}
	}
}

package eventlog

import "time"

// Event is a single journal entry. CBOR encoding uses integer keys.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// Source names the binding and peer that caused the event,
	// e.g. "ws:6f1c..." or "gatt:12".
	Source string `cbor:"2,keyasint,omitempty"`

	Kind Kind `cbor:"3,keyasint"`

	// Characteristic is the comms.Characteristic the event concerns.
	Characteristic uint8 `cbor:"4,keyasint,omitempty"`

	// Data is the request payload for writes and the value for reads and notifications.
	Data []byte `cbor:"5,keyasint,omitempty"`

	// Offset of a read or write request.
	Offset int `cbor:"6,keyasint,omitempty"`

	// Code is the ATT error code of a rejected request; zero on success.
	Code uint8 `cbor:"7,keyasint,omitempty"`

	// State is the encoded volume state after a successful write.
	State []byte `cbor:"8,keyasint,omitempty"`

	// Enabled is the new subscription state for KindSubscribe.
	Enabled bool `cbor:"9,keyasint,omitempty"`

	// Error carries delivery failures for KindNotify.
	Error string `cbor:"10,keyasint,omitempty"`
}

// Kind classifies an event.
type Kind uint8

const (
	KindWrite     Kind = 0
	KindRead      Kind = 1
	KindNotify    Kind = 2
	KindSubscribe Kind = 3
	KindConnect   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "WRITE"
	case KindRead:
		return "READ"
	case KindNotify:
		return "NOTIFY"
	case KindSubscribe:
		return "SUBSCRIBE"
	case KindConnect:
		return "CONNECT"
	default:
		return "UNKNOWN"
	}
}

// ParseKind is the inverse of Kind.String, case-sensitive.
func ParseKind(s string) (Kind, bool) {
	for k := KindWrite; k <= KindConnect; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Rejected reports whether the event records a refused request.
func (e Event) Rejected() bool {
	return e.Code != 0
}

// Package comms provides the wire details of the Volume Control Service:
// characteristic identities, UUIDs, opcodes and the control point request format.
package comms

import (
	"fmt"
	"strings"

	"tinygo.org/x/bluetooth"
)

var (
	ServiceUUID          = bluetooth.New16BitUUID(0x1844)
	StateCharUUID        = bluetooth.New16BitUUID(0x2B7D)
	ControlPointCharUUID = bluetooth.New16BitUUID(0x2B7E)
	FlagsCharUUID        = bluetooth.New16BitUUID(0x2B7F)
)

// Payload sizes of the readable characteristics.
const (
	StateLen = 3
	FlagsLen = 1
)

// Characteristic identifies one of the three characteristics of the service.
type Characteristic uint8

const (
	CharacteristicState        Characteristic = 1
	CharacteristicControlPoint Characteristic = 2
	CharacteristicFlags        Characteristic = 3
)

func (c Characteristic) String() string {
	switch c {
	case CharacteristicState:
		return "state"
	case CharacteristicControlPoint:
		return "control_point"
	case CharacteristicFlags:
		return "flags"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// UUID returns the 16-bit assigned number of the characteristic.
func (c Characteristic) UUID() bluetooth.UUID {
	switch c {
	case CharacteristicState:
		return StateCharUUID
	case CharacteristicControlPoint:
		return ControlPointCharUUID
	case CharacteristicFlags:
		return FlagsCharUUID
	default:
		return bluetooth.UUID{}
	}
}

// Notifiable reports whether clients may subscribe to the characteristic.
func (c Characteristic) Notifiable() bool {
	return c == CharacteristicState || c == CharacteristicFlags
}

// ParseCharacteristic accepts the names produced by String.
func ParseCharacteristic(s string) (Characteristic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "state":
		return CharacteristicState, nil
	case "control_point", "controlpoint", "cp":
		return CharacteristicControlPoint, nil
	case "flags":
		return CharacteristicFlags, nil
	}
	return 0, fmt.Errorf("unknown characteristic %q", s)
}

// ATT error codes returned to a client whose request was rejected.
const (
	ATTReadNotPermitted       byte = 0x02
	ATTInvalidOffset          byte = 0x07
	ATTInvalidAttributeLength byte = 0x0D
	ATTInvalidChangeCounter   byte = 0x80
	ATTInvalidOpcode          byte = 0x81
)

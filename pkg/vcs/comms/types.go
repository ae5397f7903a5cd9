package comms

import "fmt"

// Opcode selects the operation of a control point request.
type Opcode uint8

const (
	OpRelativeDown          Opcode = 0x00
	OpRelativeUp            Opcode = 0x01
	OpRelativeDownAndUnmute Opcode = 0x02
	OpRelativeUpAndUnmute   Opcode = 0x03
	OpSetAbsolute           Opcode = 0x04
	OpUnmute                Opcode = 0x05
	OpMute                  Opcode = 0x06
)

// Opcodes lists every opcode the service accepts, in wire order.
var Opcodes = []Opcode{
	OpRelativeDown,
	OpRelativeUp,
	OpRelativeDownAndUnmute,
	OpRelativeUpAndUnmute,
	OpSetAbsolute,
	OpUnmute,
	OpMute,
}

func (o Opcode) String() string {
	switch o {
	case OpRelativeDown:
		return "RelativeDown"
	case OpRelativeUp:
		return "RelativeUp"
	case OpRelativeDownAndUnmute:
		return "RelativeDownAndUnmute"
	case OpRelativeUpAndUnmute:
		return "RelativeUpAndUnmute"
	case OpSetAbsolute:
		return "SetAbsolute"
	case OpUnmute:
		return "Unmute"
	case OpMute:
		return "Mute"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", uint8(o))
	}
}

// Valid reports whether o is one of the defined opcodes.
func (o Opcode) Valid() bool {
	return o <= OpMute
}

// ChangesVolume reports whether the opcode may alter the volume setting.
// Bare Mute and Unmute only touch the mute flag.
func (o Opcode) ChangesVolume() bool {
	switch o {
	case OpRelativeDown, OpRelativeUp, OpRelativeDownAndUnmute, OpRelativeUpAndUnmute, OpSetAbsolute:
		return true
	default:
		return false
	}
}

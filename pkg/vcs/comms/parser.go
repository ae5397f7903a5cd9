package comms

import (
	"errors"
	"fmt"
)

var (
	// ErrLength is returned for requests whose size does not match any valid shape.
	ErrLength = errors.New("invalid control point length")
	// ErrOpcode is returned for opcodes outside the defined set.
	ErrOpcode = errors.New("invalid control point opcode")
)

// Command is the interface for all decoded control point requests.
type Command interface {
	Opcode() Opcode
	ChangeCounter() uint8
	isCommand()
}

// RelativeCommand steps the volume by the configured step size
// (RelativeDown, RelativeUp and their unmuting variants).
type RelativeCommand struct {
	Op      Opcode
	Counter uint8
}

func (c RelativeCommand) Opcode() Opcode       { return c.Op }
func (c RelativeCommand) ChangeCounter() uint8 { return c.Counter }
func (c RelativeCommand) isCommand()           {}

// Up reports whether the command raises the volume.
func (c RelativeCommand) Up() bool {
	return c.Op == OpRelativeUp || c.Op == OpRelativeUpAndUnmute
}

// Unmute reports whether the command also clears the mute flag.
func (c RelativeCommand) Unmute() bool {
	return c.Op == OpRelativeDownAndUnmute || c.Op == OpRelativeUpAndUnmute
}

// MuteCommand sets or clears the mute flag only.
type MuteCommand struct {
	Op      Opcode
	Counter uint8
}

func (c MuteCommand) Opcode() Opcode       { return c.Op }
func (c MuteCommand) ChangeCounter() uint8 { return c.Counter }
func (c MuteCommand) isCommand()           {}

// Mute is the value the mute flag takes after the command.
func (c MuteCommand) Mute() bool {
	return c.Op == OpMute
}

// AbsoluteCommand sets the volume to Volume.
type AbsoluteCommand struct {
	Counter uint8
	Volume  uint8
}

func (c AbsoluteCommand) Opcode() Opcode       { return OpSetAbsolute }
func (c AbsoluteCommand) ChangeCounter() uint8 { return c.Counter }
func (c AbsoluteCommand) isCommand()           {}

// Request is a control point write split into its fields, before the opcode
// is dispatched. It lets the caller compare the change counter first.
type Request struct {
	Opcode        Opcode
	ChangeCounter uint8

	operand    uint8
	hasOperand bool
}

// SplitRequest checks the outer shape of a control point write: two bytes,
// or three when an operand follows.
func SplitRequest(data []byte) (Request, error) {
	switch len(data) {
	case 2:
		return Request{Opcode: Opcode(data[0]), ChangeCounter: data[1]}, nil
	case 3:
		return Request{Opcode: Opcode(data[0]), ChangeCounter: data[1], operand: data[2], hasOperand: true}, nil
	default:
		return Request{}, fmt.Errorf("%w: got %d bytes", ErrLength, len(data))
	}
}

// Command dispatches the opcode. Only SetAbsolute may carry an operand and it
// must carry one.
func (r Request) Command() (Command, error) {
	if !r.Opcode.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrOpcode, uint8(r.Opcode))
	}

	if r.Opcode == OpSetAbsolute {
		if !r.hasOperand {
			return nil, fmt.Errorf("%w: %s requires an operand", ErrLength, r.Opcode)
		}
		return AbsoluteCommand{Counter: r.ChangeCounter, Volume: r.operand}, nil
	}

	if r.hasOperand {
		return nil, fmt.Errorf("%w: %s takes no operand", ErrLength, r.Opcode)
	}

	switch r.Opcode {
	case OpUnmute, OpMute:
		return MuteCommand{Op: r.Opcode, Counter: r.ChangeCounter}, nil
	default:
		return RelativeCommand{Op: r.Opcode, Counter: r.ChangeCounter}, nil
	}
}

// ParseCommand splits and dispatches a control point write in one step.
func ParseCommand(data []byte) (Command, error) {
	req, err := SplitRequest(data)
	if err != nil {
		return nil, err
	}
	return req.Command()
}

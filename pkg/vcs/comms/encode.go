package comms

// Encode builds a control point request. The operand is appended only for
// SetAbsolute.
func Encode(op Opcode, counter uint8, operand ...uint8) []byte {
	msg := []byte{uint8(op), counter}
	if op == OpSetAbsolute && len(operand) > 0 {
		msg = append(msg, operand[0])
	}
	return msg
}

// BuildRelativeCommand creates one of the four relative volume requests.
func BuildRelativeCommand(op Opcode, counter uint8) []byte {
	return Encode(op, counter)
}

// BuildSetAbsoluteCommand creates the request that sets the volume to volume.
func BuildSetAbsoluteCommand(counter, volume uint8) []byte {
	return Encode(OpSetAbsolute, counter, volume)
}

// BuildMuteCommand creates a Mute or Unmute request.
func BuildMuteCommand(mute bool, counter uint8) []byte {
	if mute {
		return Encode(OpMute, counter)
	}
	return Encode(OpUnmute, counter)
}

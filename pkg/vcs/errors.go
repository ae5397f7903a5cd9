package vcs

import (
	"errors"
	"fmt"

	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// ErrorKind classifies a rejected request. Every kind is local to the request:
// the state is left untouched and the service keeps running.
type ErrorKind uint8

const (
	// InvalidLength covers malformed request shapes and non-zero write offsets.
	InvalidLength ErrorKind = iota + 1
	// InvalidOffset is a read beyond the end of the value.
	InvalidOffset
	// InvalidChangeCounter means the client must re-read the state and retry.
	InvalidChangeCounter
	// InvalidOpcode is an unsupported command.
	InvalidOpcode
	// ReadNotPermitted is a read of the write-only control point.
	ReadNotPermitted
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidLength:
		return "InvalidLength"
	case InvalidOffset:
		return "InvalidOffset"
	case InvalidChangeCounter:
		return "InvalidChangeCounter"
	case InvalidOpcode:
		return "InvalidOpcode"
	case ReadNotPermitted:
		return "ReadNotPermitted"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Error makes a kind usable as an errors.Is target.
func (k ErrorKind) Error() string {
	return k.String()
}

// ATTCode is the error code surfaced to the transport.
func (k ErrorKind) ATTCode() byte {
	switch k {
	case InvalidLength:
		return comms.ATTInvalidAttributeLength
	case InvalidOffset:
		return comms.ATTInvalidOffset
	case InvalidChangeCounter:
		return comms.ATTInvalidChangeCounter
	case InvalidOpcode:
		return comms.ATTInvalidOpcode
	case ReadNotPermitted:
		return comms.ATTReadNotPermitted
	default:
		return 0
	}
}

// Error describes a rejected control point write or read.
type Error struct {
	Kind ErrorKind

	Opcode comms.Opcode
	// Got and Want are the received and current change counters for InvalidChangeCounter.
	Got, Want uint8
	Len       int
	Offset    int

	err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidChangeCounter:
		return fmt.Sprintf("%s: got %d, expected %d", e.Kind, e.Got, e.Want)
	case InvalidOffset:
		return fmt.Sprintf("%s: offset %d", e.Kind, e.Offset)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() []error {
	if e.err != nil {
		return []error{e.Kind, e.err}
	}
	return []error{e.Kind}
}

// ATTCode returns the transport error code carried by err, if any.
func ATTCode(err error) (byte, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.ATTCode(), true
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k.ATTCode(), true
	}
	return 0, false
}

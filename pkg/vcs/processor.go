package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// DefaultStepSize is the volume change applied by the relative opcodes.
const DefaultStepSize uint8 = 1

// Notifier is told about committed changes while the processor still holds
// its lock, so observers see updates in commit order.
type Notifier interface {
	NotifyState()
	NotifyFlags(flags Flags)
}

// Processor validates and applies control point writes against a Store.
type Processor struct {
	mu        sync.Mutex
	store     *Store
	stepSize  uint8
	notifiers []Notifier

	logger *slog.Logger
	events eventlog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithStepSize sets the relative volume step. Zero is ignored.
func WithStepSize(step uint8) Option {
	return func(p *Processor) {
		if step > 0 {
			p.stepSize = step
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEventLogger routes protocol events to the given journal.
func WithEventLogger(events eventlog.Logger) Option {
	return func(p *Processor) {
		if events != nil {
			p.events = events
		}
	}
}

func NewProcessor(store *Store, opts ...Option) *Processor {
	p := &Processor{
		store:    store,
		stepSize: DefaultStepSize,
		logger:   slog.Default(),
		events:   eventlog.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) StepSize() uint8 {
	return p.stepSize
}

// AddNotifier registers n for every subsequent commit.
func (p *Processor) AddNotifier(n Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifiers = append(p.notifiers, n)
}

func (p *Processor) RemoveNotifier(n Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.notifiers {
		if existing == n {
			p.notifiers = append(p.notifiers[:i], p.notifiers[i+1:]...)
			return
		}
	}
}

// Process applies a control point write received at offset. On success it
// returns the number of bytes consumed. On failure the returned error is an
// *Error and nothing has been changed.
func (p *Processor) Process(offset int, data []byte) (int, error) {
	return p.ProcessFrom("", offset, data)
}

// ProcessFrom is Process with the requester recorded in the event journal.
func (p *Processor) ProcessFrom(source string, offset int, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	event := eventlog.Event{
		Timestamp:      time.Now(),
		Source:         source,
		Kind:           eventlog.KindWrite,
		Characteristic: uint8(comms.CharacteristicControlPoint),
		Data:           append([]byte(nil), data...),
		Offset:         offset,
	}

	next, flags, err := p.apply(offset, data)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			event.Code = e.Kind.ATTCode()
		}
		p.events.Log(event)
		p.logger.Warn("control point write rejected",
			slog.String("source", source),
			slog.String("error", err.Error()),
			slog.String("data", fmt.Sprintf("% X", data)))
		return 0, err
	}

	event.State = next.Bytes()
	p.events.Log(event)
	p.logger.Debug("control point write applied",
		slog.String("source", source),
		slog.String("opcode", comms.Opcode(data[0]).String()),
		slog.String("state", next.String()))

	if flags != nil {
		for _, n := range p.notifiers {
			n.NotifyFlags(*flags)
		}
	}
	for _, n := range p.notifiers {
		n.NotifyState()
	}

	return len(data), nil
}

// apply validates the request and commits the new state. flags is non-nil
// when the opcode changed the volume and the flags must be propagated.
func (p *Processor) apply(offset int, data []byte) (State, *Flags, error) {
	if offset != 0 {
		return State{}, nil, &Error{Kind: InvalidLength, Len: len(data), Offset: offset,
			err: fmt.Errorf("write offset %d not supported", offset)}
	}

	req, err := comms.SplitRequest(data)
	if err != nil {
		return State{}, nil, &Error{Kind: InvalidLength, Len: len(data), err: err}
	}

	cur, flags := p.store.Snapshot()
	if req.ChangeCounter != cur.ChangeCounter {
		return State{}, nil, &Error{Kind: InvalidChangeCounter, Opcode: req.Opcode,
			Got: req.ChangeCounter, Want: cur.ChangeCounter}
	}

	cmd, err := req.Command()
	if err != nil {
		kind := InvalidLength
		if errors.Is(err, comms.ErrOpcode) {
			kind = InvalidOpcode
		}
		return State{}, nil, &Error{Kind: kind, Opcode: req.Opcode, Len: len(data), err: err}
	}

	next := cur
	switch c := cmd.(type) {
	case comms.RelativeCommand:
		if c.Unmute() {
			next.Mute = false
		}
		if c.Up() {
			next.Volume = stepUp(next.Volume, p.stepSize)
		} else {
			next.Volume = stepDown(next.Volume, p.stepSize)
		}
	case comms.AbsoluteCommand:
		next.Volume = c.Volume
	case comms.MuteCommand:
		next.Mute = c.Mute()
	}
	next.ChangeCounter = cur.ChangeCounter + 1

	var changed *Flags
	if cmd.Opcode().ChangesVolume() {
		flags |= FlagVolumeSettingPersisted
		changed = &flags
	}

	p.store.commit(next, flags)
	return next, changed, nil
}

// stepDown computes max(v-step, 0).
func stepDown(v, step uint8) uint8 {
	if v < step {
		return 0
	}
	return v - step
}

// stepUp computes min(v+step, 255).
func stepUp(v, step uint8) uint8 {
	if v > 255-step {
		return 255
	}
	return v + step
}

// Package mock provides a simulated remote controller for the Volume Control
// Service. It is intended for development when no Bluetooth central is at hand.
package mock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// This init function registers the simulator with the binding registry.
func init() {
	govcp.Register("mock", New)
}

var _ govcp.Binding = (*Controller)(nil)

// DefaultInterval is the time between simulated writes.
const DefaultInterval = 2 * time.Second

// staleEvery makes every n-th simulated write carry an outdated change counter.
const staleEvery = 5

// Stats counts what the simulator has done so far.
type Stats struct {
	Applied       int
	Rejected      int
	Notifications int
}

// Controller writes random control point requests at a fixed interval and
// listens to the notifications they cause.
type Controller struct {
	id       string
	interval time.Duration
	logger   *slog.Logger
	rng      *rand.Rand

	mu        sync.Mutex
	connected bool
	svc       *vcs.Service
	gw        *vcs.Gateway
	stats     Stats
	writes    int

	disconnect context.CancelFunc
	stopped    chan struct{}
}

func New(opts govcp.Options) govcp.Binding {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	id := uuid.New().String()
	return &Controller{
		id:       id,
		interval: interval,
		logger:   opts.Log().With(slog.String("binding", "mock")),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Controller) Name() string {
	return "mock"
}

func (c *Controller) source() string {
	return "mock:" + c.id
}

// Start connects the simulated controller and begins the write loop.
func (c *Controller) Start(ctx context.Context, svc *vcs.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return errors.New("mock controller is already connected")
	}

	c.svc = svc
	c.gw = svc.Attach(vcs.SinkFunc(c.handleNotification), c.source())
	c.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})
	c.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true})
	svc.LogConnection(c.source(), true)

	var simCtx context.Context
	simCtx, c.disconnect = context.WithCancel(ctx)
	c.stopped = make(chan struct{})
	c.connected = true

	go c.simulate(simCtx)

	c.logger.Info("simulated controller connected", slog.String("peer", c.source()), slog.Duration("interval", c.interval))
	return nil
}

// simulate is the loop that generates control point traffic.
func (c *Controller) simulate(ctx context.Context) {
	defer close(c.stopped)
	defer c.logger.Debug("simulation stopped")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.step()
		case <-ctx.Done():
			return
		}
	}
}

// step issues one simulated write.
func (c *Controller) step() {
	c.mu.Lock()
	c.writes++
	stale := c.writes%staleEvery == 0
	op := comms.Opcodes[c.rng.Intn(len(comms.Opcodes))]
	operand := uint8(c.rng.Intn(256))
	svc := c.svc
	c.mu.Unlock()

	state := svc.Store().Read()
	counter := state.ChangeCounter
	if stale {
		counter--
	}

	req := comms.Encode(op, counter, operand)
	_, err := svc.WriteControlPoint(c.source(), 0, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.Rejected++
		c.logger.Debug("simulated write rejected", slog.String("opcode", op.String()), slog.String("error", err.Error()))
		return
	}
	c.stats.Applied++
}

func (c *Controller) handleNotification(ch comms.Characteristic, value []byte) error {
	c.mu.Lock()
	c.stats.Notifications++
	c.mu.Unlock()

	switch ch {
	case comms.CharacteristicState:
		state, err := vcs.DecodeState(value)
		if err != nil {
			return fmt.Errorf("mock: bad state notification: %w", err)
		}
		c.logger.Debug("state notification", slog.String("state", state.String()))
	case comms.CharacteristicFlags:
		c.logger.Debug("flags notification", slog.String("flags", fmt.Sprintf("% X", value)))
	}
	return nil
}

// Stats returns a copy of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Stop ends the simulation and detaches from the service.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.disconnect()
	stopped := c.stopped
	c.mu.Unlock()

	<-stopped
	c.svc.Detach(c.gw)
	c.svc.LogConnection(c.source(), false)
	c.logger.Info("simulated controller disconnected", slog.String("peer", c.source()))
	return nil
}

// Package gatt exposes the Volume Control Service as a BLE GATT peripheral.
package gatt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

func init() {
	govcp.Register("gatt", New)
}

var _ govcp.Binding = (*Binding)(nil)

// Binding registers the service with the local Bluetooth stack and advertises it.
type Binding struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	svc     *vcs.Service
	gw      *vcs.Gateway
	adv     *govcp.Advertiser
	cancel  context.CancelFunc
	started bool

	stateChar bluetooth.Characteristic
	cpChar    bluetooth.Characteristic
	flagsChar bluetooth.Characteristic
}

func New(opts govcp.Options) govcp.Binding {
	return &Binding{
		name:   opts.DeviceName,
		logger: opts.Log().With(slog.String("binding", "gatt")),
	}
}

func (b *Binding) Name() string {
	return "gatt"
}

func (b *Binding) Start(ctx context.Context, svc *vcs.Service) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("gatt binding is already started")
	}

	// must be installed before the adapter is enabled on some platforms
	govcp.BTAdapter.SetConnectHandler(b.handleConnect)

	if err := govcp.TryEnableAdapter(); err != nil {
		return err
	}

	b.svc = svc
	b.gw = svc.Attach(vcs.SinkFunc(b.deliver), "gatt")
	// The stack tracks CCCDs itself and only notifies subscribed centrals, so
	// the gateway always forwards and lets Characteristic.Write do the gating.
	b.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})
	b.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true})

	state, flags := svc.Store().Snapshot()
	err := govcp.BTAdapter.AddService(&bluetooth.Service{
		UUID: comms.ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &b.stateChar,
				UUID:   comms.StateCharUUID,
				Value:  state.Bytes(),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
			{
				Handle:     &b.cpChar,
				UUID:       comms.ControlPointCharUUID,
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: b.handleWrite,
			},
			{
				Handle: &b.flagsChar,
				UUID:   comms.FlagsCharUUID,
				Value:  flags.Bytes(),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		svc.Detach(b.gw)
		return fmt.Errorf("could not add volume control service: %w", err)
	}

	b.adv, err = govcp.NewAdvertiser(b.name, b.logger)
	if err != nil {
		svc.Detach(b.gw)
		return err
	}
	if err := b.adv.Start(); err != nil {
		svc.Detach(b.gw)
		return err
	}

	var runCtx context.Context
	runCtx, b.cancel = context.WithCancel(ctx)
	b.started = true

	go func() {
		<-runCtx.Done()
		_ = b.Stop()
	}()

	b.logger.Info("volume control service registered", slog.String("uuid", comms.ServiceUUID.String()))
	return nil
}

func (b *Binding) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	b.started = false
	b.cancel()
	b.svc.Detach(b.gw)
	return b.adv.Stop()
}

// handleWrite runs on the stack's callback goroutine. The stack gives no way
// to answer with an ATT error, so rejections end here after being logged by
// the processor; the client notices through the unchanged change counter.
func (b *Binding) handleWrite(client bluetooth.Connection, offset int, value []byte) {
	source := fmt.Sprintf("gatt:%v", client)
	if _, err := b.svc.WriteControlPoint(source, offset, value); err != nil {
		code, _ := vcs.ATTCode(err)
		b.logger.Debug("control point error not reported to central",
			slog.String("source", source),
			slog.Int("att_code", int(code)))
	}
}

// deliver updates the characteristic value; the stack notifies subscribers.
func (b *Binding) deliver(c comms.Characteristic, value []byte) error {
	var char *bluetooth.Characteristic
	switch c {
	case comms.CharacteristicState:
		char = &b.stateChar
	case comms.CharacteristicFlags:
		char = &b.flagsChar
	default:
		return fmt.Errorf("characteristic %s is not notifiable", c)
	}
	_, err := char.Write(value)
	return err
}

func (b *Binding) handleConnect(device bluetooth.Device, connected bool) {
	source := "gatt:" + device.Address.String()
	b.logger.Info("connection state changed", slog.String("peer", source), slog.Bool("connected", connected))

	b.mu.Lock()
	svc, adv, started := b.svc, b.adv, b.started
	b.mu.Unlock()

	if svc != nil {
		svc.LogConnection(source, connected)
	}
	if !connected && started && adv != nil {
		if err := adv.Restart(); err != nil {
			b.logger.Error("advertising failed to restart", slog.String("error", err.Error()))
		}
	}
}

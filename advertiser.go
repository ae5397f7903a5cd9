package govcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// DefaultDeviceName is the shortened local name the renderer advertises.
const DefaultDeviceName = "Renderer"

// BTAdapter is the Bluetooth adapter shared by the process.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableMu sync.Mutex
	enabled  bool
)

// TryEnableAdapter enables BTAdapter once. A failed attempt may be retried.
func TryEnableAdapter() error {
	enableMu.Lock()
	defer enableMu.Unlock()

	if enabled {
		return nil
	}
	slog.Info("enabling Bluetooth adapter")
	if err := BTAdapter.Enable(); err != nil {
		return fmt.Errorf("could not enable Bluetooth adapter: %w", err)
	}
	enabled = true
	return nil
}

// Advertiser advertises the Volume Control Service as a connectable peripheral.
type Advertiser struct {
	name   string
	adv    *bluetooth.Advertisement
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewAdvertiser configures advertising of name and the VCS service UUID.
func NewAdvertiser(name string, logger *slog.Logger) (*Advertiser, error) {
	if name == "" {
		name = DefaultDeviceName
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	adv := BTAdapter.DefaultAdvertisement()
	err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{comms.ServiceUUID},
	})
	if err != nil {
		return nil, fmt.Errorf("could not configure advertisement: %w", err)
	}
	return &Advertiser{name: name, adv: adv, logger: logger}, nil
}

// Start begins advertising. Starting a running advertiser is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}
	a.logger.Debug("starting advertisement", slog.String("name", a.name))
	if err := a.adv.Start(); err != nil {
		return fmt.Errorf("advertising failed to start: %w", err)
	}
	a.running = true
	a.logger.Info("advertising as connectable peripheral", slog.String("name", a.name))
	return nil
}

// Restart starts advertising again after a central disconnected.
func (a *Advertiser) Restart() error {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return a.Start()
}

func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false
	if err := a.adv.Stop(); err != nil {
		return fmt.Errorf("could not stop advertising: %w", err)
	}
	return nil
}

// Advertise advertises until ctx is canceled.
func Advertise(ctx context.Context, name string) error {
	a, err := NewAdvertiser(name, nil)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	if err := a.Stop(); err != nil {
		slog.Warn("failed to stop advertising cleanly", slog.String("error", err.Error()))
	}
	return nil
}

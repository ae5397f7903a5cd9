// Package govcp runs the renderer side of the Bluetooth Volume Control Profile.
//
// The protocol core lives in pkg/vcs. This package holds what connects it to
// the outside world: the Binding interface implemented by each transport, the
// registry bindings add themselves to, and the Bluetooth adapter shared by the
// GATT binding.
package govcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mlsorensen/govcp/pkg/vcs"
)

// Binding exposes a vcs.Service over one transport.
type Binding interface {
	// Name is the registry name of the binding, e.g. "gatt".
	Name() string

	// Start attaches the binding to svc and begins serving. It returns once the
	// binding is up; serving continues until ctx is canceled or Stop is called.
	Start(ctx context.Context, svc *vcs.Service) error

	// Stop tears the binding down. It is safe to call more than once.
	Stop() error
}

// Options carries the settings bindings may need. Each binding reads only the
// fields that apply to it.
type Options struct {
	DeviceName string
	Listen     string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Log returns the configured logger, or slog.Default.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Factory creates a new, unstarted Binding.
type Factory func(opts Options) Binding

var (
	registry = make(map[string]Factory)
	regLock  = sync.RWMutex{}
)

// Register makes a binding available by name. Bindings call it from init().
func Register(name string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[name]; found {
		slog.Warn("binding is being overwritten", slog.String("name", name))
	}
	registry[name] = factory
}

// NewBinding creates the binding registered under name.
func NewBinding(name string, opts Options) (Binding, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no binding registered as '%s'", name)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return factory(opts), nil
}

// Registered lists the registered binding names in sorted order.
func Registered() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/pkg/vcs"
)

func init() {
	// Validate looks binding names up in the registry.
	for _, name := range []string{"gatt", "ws", "mock"} {
		if !contains(govcp.Registered(), name) {
			govcp.Register(name, func(govcp.Options) govcp.Binding { return nil })
		}
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vcs.DefaultState, cfg.InitialState())
	assert.Equal(t, vcs.Flags(0), cfg.InitialFlags())
	assert.Equal(t, []string{"gatt"}, cfg.Bindings)
	assert.Equal(t, govcp.DefaultDeviceName, cfg.DeviceName)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
device_name: Kitchen
step_size: 10
initial:
  volume: 40
  mute: true
  flags: 1
bindings: [ws, mock]
websocket:
  listen: 127.0.0.1:9000
mock:
  interval: 500ms
log:
  level: debug
  format: json
eventlog:
  path: /tmp/vcs.cbor
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", cfg.DeviceName)
	assert.Equal(t, 10, cfg.StepSize)
	assert.Equal(t, vcs.State{Volume: 40, Mute: true}, cfg.InitialState())
	assert.Equal(t, vcs.FlagVolumeSettingPersisted, cfg.InitialFlags())
	assert.Equal(t, []string{"ws", "mock"}, cfg.Bindings)
	assert.Equal(t, 500*time.Millisecond, cfg.Mock.Interval)
	assert.Equal(t, "/tmp/vcs.cbor", cfg.EventLog.Path)

	opts := cfg.Options(nil)
	assert.Equal(t, "127.0.0.1:9000", opts.Listen)
	assert.Equal(t, "Kitchen", opts.DeviceName)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "step_size: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.StepSize)
	assert.Equal(t, int(vcs.DefaultState.Volume), cfg.Initial.Volume)
	assert.Equal(t, ":8844", cfg.WebSocket.Listen)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "step_size: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero step", func(c *Config) { c.StepSize = 0 }, "step_size"},
		{"large step", func(c *Config) { c.StepSize = 256 }, "step_size"},
		{"volume", func(c *Config) { c.Initial.Volume = 300 }, "initial.volume"},
		{"flags", func(c *Config) { c.Initial.Flags = -1 }, "initial.flags"},
		{"no bindings", func(c *Config) { c.Bindings = nil }, "no bindings"},
		{"unknown binding", func(c *Config) { c.Bindings = []string{"usb"} }, "unknown binding"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

// Package config loads the renderer configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/pkg/vcs"
)

// Config is the on-disk configuration of a renderer.
type Config struct {
	DeviceName string          `yaml:"device_name"`
	StepSize   int             `yaml:"step_size"`
	Initial    InitialConfig   `yaml:"initial"`
	Bindings   []string        `yaml:"bindings"`
	WebSocket  WebSocketConfig `yaml:"websocket"`
	Mock       MockConfig      `yaml:"mock"`
	Log        LogConfig       `yaml:"log"`
	EventLog   EventLogConfig  `yaml:"eventlog"`
}

// InitialConfig holds the values the renderer starts with.
type InitialConfig struct {
	Volume int  `yaml:"volume"`
	Mute   bool `yaml:"mute"`
	Flags  int  `yaml:"flags"`
}

type WebSocketConfig struct {
	Listen string `yaml:"listen"`
}

type MockConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EventLogConfig enables the CBOR event journal when Path is set.
type EventLogConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DeviceName: govcp.DefaultDeviceName,
		StepSize:   int(vcs.DefaultStepSize),
		Initial: InitialConfig{
			Volume: int(vcs.DefaultState.Volume),
		},
		Bindings:  []string{"gatt"},
		WebSocket: WebSocketConfig{Listen: ":8844"},
		Mock:      MockConfig{Interval: 2 * time.Second},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and binding names.
func (c Config) Validate() error {
	var errs []error
	if c.StepSize < 1 || c.StepSize > 255 {
		errs = append(errs, fmt.Errorf("step_size %d out of range 1..255", c.StepSize))
	}
	if c.Initial.Volume < 0 || c.Initial.Volume > 255 {
		errs = append(errs, fmt.Errorf("initial.volume %d out of range 0..255", c.Initial.Volume))
	}
	if c.Initial.Flags < 0 || c.Initial.Flags > 255 {
		errs = append(errs, fmt.Errorf("initial.flags %d out of range 0..255", c.Initial.Flags))
	}
	if len(c.Bindings) == 0 {
		errs = append(errs, errors.New("no bindings configured"))
	}
	known := govcp.Registered()
	for _, name := range c.Bindings {
		if !contains(known, name) {
			errs = append(errs, fmt.Errorf("unknown binding %q (known: %s)", name, strings.Join(known, ", ")))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Mock.Interval < 0 {
		errs = append(errs, fmt.Errorf("mock.interval must not be negative"))
	}
	return errors.Join(errs...)
}

// InitialState returns the configured starting state with a zero counter.
func (c Config) InitialState() vcs.State {
	return vcs.State{Volume: uint8(c.Initial.Volume), Mute: c.Initial.Mute}
}

func (c Config) InitialFlags() vcs.Flags {
	return vcs.Flags(c.Initial.Flags)
}

// Options returns the binding options derived from the configuration.
func (c Config) Options(logger *slog.Logger) govcp.Options {
	return govcp.Options{
		DeviceName: c.DeviceName,
		Listen:     c.WebSocket.Listen,
		Interval:   c.Mock.Interval,
		Logger:     logger,
	}
}

// NewLogger builds the operational logger described by the log section.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

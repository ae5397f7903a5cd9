package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/cmd/vcp-renderer/interactive"
	"github.com/mlsorensen/govcp/internal/config"
	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs"
)

type serveFlags struct {
	bindings    []string
	name        string
	listen      string
	step        int
	volume      int
	eventLog    string
	logLevel    string
	interactive bool
}

func serveCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the renderer and expose it over the configured bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, f.interactive)
		},
	}

	cmd.Flags().StringSliceVarP(&f.bindings, "binding", "b", nil, "bindings to start (gatt, ws, mock)")
	cmd.Flags().StringVar(&f.name, "name", "", "advertised device name")
	cmd.Flags().StringVar(&f.listen, "listen", "", "websocket listen address")
	cmd.Flags().IntVar(&f.step, "step", 0, "relative volume step size (1-255)")
	cmd.Flags().IntVar(&f.volume, "volume", 0, "initial volume setting (0-255)")
	cmd.Flags().StringVar(&f.eventLog, "eventlog", "", "append the CBOR event journal to this file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "run the operator console")
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f serveFlags) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("binding") {
		cfg.Bindings = f.bindings
	}
	if flags.Changed("name") {
		cfg.DeviceName = f.name
	}
	if flags.Changed("listen") {
		cfg.WebSocket.Listen = f.listen
	}
	if flags.Changed("step") {
		cfg.StepSize = f.step
	}
	if flags.Changed("volume") {
		cfg.Initial.Volume = f.volume
	}
	if flags.Changed("eventlog") {
		cfg.EventLog.Path = f.eventLog
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg config.Config, withConsole bool) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		console *interactive.Console
		logOut  io.Writer = os.Stderr
	)
	if withConsole {
		var err error
		if console, err = interactive.New(); err != nil {
			return err
		}
		logOut = console.Stdout()
	}
	logger := cfg.NewLogger(logOut)

	events := []eventlog.Logger{eventlog.NewSlogAdapter(logger)}
	if cfg.EventLog.Path != "" {
		journal, err := eventlog.NewFileLogger(cfg.EventLog.Path)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer journal.Close()
		events = append(events, journal)
	}

	svc := vcs.NewService(cfg.InitialState(), cfg.InitialFlags(),
		vcs.WithStepSize(uint8(cfg.StepSize)),
		vcs.WithLogger(logger),
		vcs.WithEventLogger(eventlog.NewMultiLogger(events...)))

	var started []govcp.Binding
	defer func() {
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i].Stop(); err != nil {
				logger.Warn("binding stop failed", slog.String("binding", started[i].Name()), slog.String("error", err.Error()))
			}
		}
	}()

	opts := cfg.Options(logger)
	for _, name := range cfg.Bindings {
		b, err := govcp.NewBinding(name, opts)
		if err != nil {
			return err
		}
		if err := b.Start(ctx, svc); err != nil {
			return fmt.Errorf("start %s binding: %w", name, err)
		}
		started = append(started, b)
		logger.Info("binding started", slog.String("binding", name))
	}

	state, flags := svc.Store().Snapshot()
	logger.Info("renderer ready",
		slog.String("state", state.String()),
		slog.Bool("volume_setting_persisted", flags.VolumeSettingPersisted()),
		slog.Int("step", int(svc.Processor().StepSize())))

	if console != nil {
		console.Attach(svc)
		go console.Run(ctx, cancel)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

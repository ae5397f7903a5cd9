// Command vcp-panel is a desktop remote for a renderer running the ws binding.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/mlsorensen/govcp/pkg/bindings/ws"
	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

const requestTimeout = 3 * time.Second

func main() {
	url := flag.String("url", "ws://127.0.0.1:8844"+ws.Path, "renderer websocket URL")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := ws.Dial(ctx, *url)
	cancel()
	if err != nil {
		logger.Error("could not connect to renderer", slog.String("url", *url), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	a := app.New()
	w := a.NewWindow("Volume Control")

	volumeLabel := widget.NewLabel("")
	muteLabel := widget.NewLabel("")
	counterLabel := widget.NewLabel("")
	slider := widget.NewSlider(0, 255)
	slider.Step = 1

	show := func(s vcs.State) {
		volumeLabel.SetText(fmt.Sprintf("Volume: %d", s.Volume))
		if s.Mute {
			muteLabel.SetText("Muted")
		} else {
			muteLabel.SetText("Unmuted")
		}
		counterLabel.SetText(fmt.Sprintf("Change counter: %d", s.ChangeCounter))
		slider.SetValue(float64(s.Volume))
	}

	// apply runs off the UI goroutine; the resulting notification updates the labels.
	apply := func(op comms.Opcode, operand ...uint8) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if _, err := client.Apply(ctx, op, operand...); err != nil {
				logger.Warn("request failed", slog.String("opcode", op.String()), slog.String("error", err.Error()))
			}
		}()
	}

	slider.OnChangeEnded = func(v float64) {
		apply(comms.OpSetAbsolute, uint8(v))
	}

	ctx, cancel = context.WithTimeout(context.Background(), requestTimeout)
	if err := client.Subscribe(ctx, comms.CharacteristicState, true); err != nil {
		logger.Error("subscribe failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	initial, err := client.ReadState(ctx)
	cancel()
	if err != nil {
		logger.Error("read failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	show(initial)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		fyne.Do(a.Quit)
	}()

	go func() {
		for n := range client.Notifications() {
			if n.Characteristic != comms.CharacteristicState {
				continue
			}
			s, err := vcs.DecodeState(n.Value)
			if err != nil {
				logger.Warn("bad state notification", slog.String("error", err.Error()))
				continue
			}
			fyne.Do(func() { show(s) })
		}
		logger.Info("renderer connection closed")
		fyne.Do(a.Quit)
	}()

	w.SetContent(container.NewVBox(
		volumeLabel,
		muteLabel,
		counterLabel,
		slider,
		container.NewGridWithColumns(2,
			widget.NewButton("Down", func() { apply(comms.OpRelativeDown) }),
			widget.NewButton("Up", func() { apply(comms.OpRelativeUp) }),
			widget.NewButton("Mute", func() { apply(comms.OpMute) }),
			widget.NewButton("Unmute", func() { apply(comms.OpUnmute) }),
		),
	))
	w.ShowAndRun()
}

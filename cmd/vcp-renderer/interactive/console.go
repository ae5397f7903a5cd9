// Package interactive provides the operator console of vcp-renderer.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

const source = "console"

// Console drives a running service from the terminal. It writes to the
// control point like any remote client and prints the notifications it gets.
type Console struct {
	svc *vcs.Service
	rl  *readline.Instance
	gw  *vcs.Gateway
	out io.Writer
}

// New opens the terminal. Call Attach before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vcp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Attach connects the console to svc and subscribes to its notifications.
func (c *Console) Attach(svc *vcs.Service) {
	c.svc = svc
	c.gw = svc.Attach(vcs.SinkFunc(c.printNotification), source)
	c.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicState, Enabled: true})
	c.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: comms.CharacteristicFlags, Enabled: true})
}

// Stdout returns a writer that does not disturb the prompt. Point the
// operational logger at it while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until the user quits or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.svc.Detach(c.gw)
	defer c.svc.LogConnection(source, false)

	c.svc.LogConnection(source, true)

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if c.Exec(line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It reports whether the user asked to quit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "state", "s":
		fmt.Fprint(c.out, c.svc.Describe())
	case "up", "+":
		c.apply(comms.OpRelativeUp)
	case "down", "-":
		c.apply(comms.OpRelativeDown)
	case "upu":
		c.apply(comms.OpRelativeUpAndUnmute)
	case "downu":
		c.apply(comms.OpRelativeDownAndUnmute)
	case "mute", "m":
		c.apply(comms.OpMute)
	case "unmute", "u":
		c.apply(comms.OpUnmute)
	case "set":
		c.cmdSet(args)
	case "raw":
		c.cmdRaw(args)
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Volume Control Commands:
  state              - Show the current state and flags
  up / down          - Relative volume step
  upu / downu        - Relative step and unmute
  set <0-255>        - Set absolute volume
  mute / unmute      - Change the mute state
  raw <hex>          - Write raw bytes to the control point (counter not filled in)
  quit               - Exit`)
}

// apply issues op with the current change counter.
func (c *Console) apply(op comms.Opcode, operand ...uint8) {
	counter := c.svc.Store().Read().ChangeCounter
	c.write(comms.Encode(op, counter, operand...))
}

func (c *Console) cmdSet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: set <0-255>")
		return
	}
	v, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid volume %q: must be 0-255\n", args[0])
		return
	}
	c.apply(comms.OpSetAbsolute, uint8(v))
}

func (c *Console) cmdRaw(args []string) {
	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil || len(data) == 0 {
		fmt.Fprintln(c.out, "Usage: raw <hex bytes>, e.g. raw 01 00")
		return
	}
	c.write(data)
}

func (c *Console) write(data []byte) {
	if _, err := c.svc.WriteControlPoint(source, 0, data); err != nil {
		code, _ := vcs.ATTCode(err)
		fmt.Fprintf(c.out, "Rejected (ATT 0x%02X): %v\n", code, err)
	}
}

func (c *Console) printNotification(ch comms.Characteristic, value []byte) error {
	switch ch {
	case comms.CharacteristicState:
		state, err := vcs.DecodeState(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "[notify] state %s\n", state)
	case comms.CharacteristicFlags:
		flags, err := vcs.DecodeFlags(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "[notify] flags 0x%02X persisted=%t\n", uint8(flags), flags.VolumeSettingPersisted())
	}
	return nil
}

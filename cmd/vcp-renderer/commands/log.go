package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlsorensen/govcp/pkg/eventlog"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

type logFlags struct {
	source         string
	kind           string
	characteristic string
	rejected       bool
	since          time.Duration
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect a CBOR event journal",
	}
	cmd.AddCommand(logViewCmd(), logStatsCmd())
	return cmd
}

func logViewCmd() *cobra.Command {
	var f logFlags
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Print journal events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.filter(time.Now())
			if err != nil {
				return err
			}
			r, err := eventlog.NewFilteredReader(args[0], filter)
			if err != nil {
				return err
			}
			defer r.Close()
			return printEvents(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVar(&f.source, "source", "", "only events from this peer")
	cmd.Flags().StringVar(&f.kind, "kind", "", "only events of this kind (write, read, notify, subscribe, connect)")
	cmd.Flags().StringVar(&f.characteristic, "char", "", "only events on this characteristic (state, control_point, flags)")
	cmd.Flags().BoolVar(&f.rejected, "rejected", false, "only rejected requests")
	cmd.Flags().DurationVar(&f.since, "since", 0, "only events newer than this")
	return cmd
}

func logStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarise a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := eventlog.NewReader(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			stats, err := eventlog.Collect(r)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func (f logFlags) filter(now time.Time) (eventlog.Filter, error) {
	filter := eventlog.Filter{Source: f.source, RejectedOnly: f.rejected}
	if f.kind != "" {
		k, ok := eventlog.ParseKind(strings.ToUpper(f.kind))
		if !ok {
			return filter, fmt.Errorf("unknown event kind %q", f.kind)
		}
		filter.Kind = &k
	}
	if f.characteristic != "" {
		c, err := comms.ParseCharacteristic(f.characteristic)
		if err != nil {
			return filter, err
		}
		filter.Characteristic = uint8(c)
	}
	if f.since > 0 {
		start := now.Add(-f.since)
		filter.TimeStart = &start
	}
	return filter, nil
}

func printEvents(w io.Writer, r *eventlog.Reader) error {
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev eventlog.Event) string {
	line := fmt.Sprintf("%s %-9s %-20s", ev.Timestamp.Format(time.RFC3339Nano), ev.Kind, ev.Source)
	if ev.Characteristic != 0 {
		line += " " + comms.Characteristic(ev.Characteristic).String()
	}
	switch ev.Kind {
	case eventlog.KindSubscribe, eventlog.KindConnect:
		line += fmt.Sprintf(" enabled=%t", ev.Enabled)
	}
	if len(ev.Data) > 0 {
		line += fmt.Sprintf(" data=[% X]", ev.Data)
	}
	if ev.Offset != 0 {
		line += fmt.Sprintf(" offset=%d", ev.Offset)
	}
	if ev.Code != 0 {
		line += fmt.Sprintf(" att=0x%02X", ev.Code)
	}
	if len(ev.State) > 0 {
		line += fmt.Sprintf(" state=[% X]", ev.State)
	}
	if ev.Error != "" {
		line += " error=" + ev.Error
	}
	return line
}

func printStats(w io.Writer, s *eventlog.Stats) {
	fmt.Fprintf(w, "Events: %d\n", s.Total)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Span:   %s .. %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))

	fmt.Fprintln(w, "By kind:")
	kinds := make([]eventlog.Kind, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-10s %d\n", k, s.ByKind[k])
	}

	if len(s.ByCode) > 0 {
		fmt.Fprintln(w, "Rejections:")
		codes := make([]int, 0, len(s.ByCode))
		for c := range s.ByCode {
			codes = append(codes, int(c))
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(w, "  0x%02X       %d\n", c, s.ByCode[uint8(c)])
		}
	}

	fmt.Fprintln(w, "By source:")
	sources := make([]string, 0, len(s.Sources))
	for src := range s.Sources {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		fmt.Fprintf(w, "  %-20s %d\n", src, s.Sources[src])
	}
}

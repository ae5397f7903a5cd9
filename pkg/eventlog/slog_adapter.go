package eventlog

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("kind", event.Kind.String()),
		slog.String("source", event.Source),
	}
	if event.Characteristic != 0 {
		attrs = append(attrs, slog.Int("characteristic", int(event.Characteristic)))
	}
	if len(event.Data) > 0 {
		attrs = append(attrs, slog.String("data", hexString(event.Data)))
	}

	switch event.Kind {
	case KindWrite:
		attrs = append(attrs, slog.Int("code", int(event.Code)))
		if len(event.State) > 0 {
			attrs = append(attrs, slog.String("state", hexString(event.State)))
		}
	case KindRead:
		attrs = append(attrs, slog.Int("offset", event.Offset), slog.Int("code", int(event.Code)))
	case KindSubscribe, KindConnect:
		attrs = append(attrs, slog.Bool("enabled", event.Enabled))
	case KindNotify:
		if event.Error != "" {
			attrs = append(attrs, slog.String("error", event.Error))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "vcs event", attrs...)
}

func hexString(b []byte) string {
	return fmt.Sprintf("% X", b)
}

var _ Logger = (*SlogAdapter)(nil)

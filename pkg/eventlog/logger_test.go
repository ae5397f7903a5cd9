package eventlog

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestMultiLogger_FansOutAndSkipsNil(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{Kind: KindSubscribe, Enabled: true})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestSlogAdapter_WritesDebugRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(Event{Kind: KindWrite, Source: "ws:a", Characteristic: 2, Data: []byte{0x01, 0x00}, Code: 0x80})

	out := buf.String()
	assert.Contains(t, out, "kind=WRITE")
	assert.Contains(t, out, "source=ws:a")
	assert.Contains(t, out, `data="01 00"`)
	assert.Contains(t, out, "code=128")
}

func TestEncodeDecodeEvent(t *testing.T) {
	in := Event{Source: "gatt:3", Kind: KindSubscribe, Characteristic: 3, Enabled: true}
	data, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in.Source, out.Source)
	assert.Equal(t, in.Kind, out.Kind)
	assert.True(t, out.Enabled)

	_, err = DecodeEvent([]byte{0xFF})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("NOTIFY")
	assert.True(t, ok)
	assert.Equal(t, KindNotify, k)
	_, ok = ParseKind("notify")
	assert.False(t, ok)
}

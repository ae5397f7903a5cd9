package eventlog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJournal(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderer.vlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestFileLogger_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vlog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileLogger_ReaderSeesEventsInOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := writeJournal(t,
		Event{Timestamp: base, Source: "ws:a", Kind: KindWrite, Characteristic: 2, Data: []byte{1, 0}, State: []byte{138, 0, 1}},
		Event{Timestamp: base.Add(time.Millisecond), Source: "ws:a", Kind: KindNotify, Characteristic: 1, Data: []byte{138, 0, 1}},
		Event{Timestamp: base.Add(2 * time.Millisecond), Source: "ws:b", Kind: KindWrite, Characteristic: 2, Data: []byte{1, 0}, Code: 0x80},
	)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events := readAll(t, r)
	require.Len(t, events, 3)
	assert.Equal(t, KindWrite, events[0].Kind)
	assert.Equal(t, []byte{138, 0, 1}, events[0].State)
	assert.True(t, events[0].Timestamp.Equal(base))
	assert.Equal(t, KindNotify, events[1].Kind)
	assert.True(t, events[2].Rejected())
}

func TestFileLogger_AppendsAcrossOpens(t *testing.T) {
	path := writeJournal(t, Event{Kind: KindConnect, Source: "gatt:1", Enabled: true})

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(Event{Kind: KindConnect, Source: "gatt:1"})
	require.NoError(t, logger.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 2)
}

func TestFileLogger_CloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "x.vlog"))
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
	logger.Log(Event{Kind: KindRead}) // ignored after close
}

func TestFileLogger_ConcurrentLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vlog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(Event{Kind: KindRead, Data: []byte{byte(j)}})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 200)
}

func TestReader_Filter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := writeJournal(t,
		Event{Timestamp: base, Source: "ws:a", Kind: KindWrite, Characteristic: 2},
		Event{Timestamp: base.Add(time.Second), Source: "ws:b", Kind: KindWrite, Characteristic: 2, Code: 0x81},
		Event{Timestamp: base.Add(2 * time.Second), Source: "ws:a", Kind: KindNotify, Characteristic: 1},
	)

	write := KindWrite
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"source", Filter{Source: "ws:a"}, 2},
		{"kind", Filter{Kind: &write}, 2},
		{"characteristic", Filter{Characteristic: 1}, 1},
		{"rejected", Filter{RejectedOnly: true}, 1},
		{"window", Filter{TimeStart: ptr(base.Add(time.Second)), TimeEnd: ptr(base.Add(2 * time.Second))}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer r.Close()
			assert.Len(t, readAll(t, r), tt.want)
		})
	}
}

func TestCollect(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := writeJournal(t,
		Event{Timestamp: base, Source: "ws:a", Kind: KindWrite},
		Event{Timestamp: base.Add(time.Second), Source: "ws:a", Kind: KindWrite, Code: 0x80},
		Event{Timestamp: base.Add(3 * time.Second), Source: "mock:x", Kind: KindNotify},
	)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	s, err := Collect(r)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByKind[KindWrite])
	assert.Equal(t, 1, s.ByCode[0x80])
	assert.Equal(t, 2, s.Sources["ws:a"])
	assert.Equal(t, 3*time.Second, s.Last.Sub(s.First))
}

func ptr[T any](v T) *T { return &v }

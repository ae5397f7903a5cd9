package eventlog

import (
	"errors"
	"io"
	"time"
)

// Stats summarises a journal.
type Stats struct {
	Total   int
	ByKind  map[Kind]int
	ByCode  map[uint8]int // rejected writes and reads per ATT code
	Sources map[string]int
	First   time.Time
	Last    time.Time
}

// Collect drains r into a Stats.
func Collect(r *Reader) (*Stats, error) {
	s := &Stats{
		ByKind:  make(map[Kind]int),
		ByCode:  make(map[uint8]int),
		Sources: make(map[string]int),
	}
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		s.add(event)
	}
}

func (s *Stats) add(event Event) {
	s.Total++
	s.ByKind[event.Kind]++
	if event.Rejected() {
		s.ByCode[event.Code]++
	}
	if event.Source != "" {
		s.Sources[event.Source]++
	}
	if s.First.IsZero() || event.Timestamp.Before(s.First) {
		s.First = event.Timestamp
	}
	if event.Timestamp.After(s.Last) {
		s.Last = event.Timestamp
	}
}

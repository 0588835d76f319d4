package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/trace"
)

// Stats summarizes a capture.
type Stats struct {
	Total     int
	Out       int
	In        int
	Errors    int
	First     time.Time
	Last      time.Time
	ByMessage map[uint16]int
	ByPort    map[string]int
}

// ComputeStats counts events by direction, message ID and port.
func ComputeStats(events []trace.Event) *Stats {
	s := &Stats{
		ByMessage: make(map[uint16]int),
		ByPort:    make(map[string]int),
	}

	for _, ev := range events {
		s.Total++
		if ev.Direction == trace.DirectionOut {
			s.Out++
		} else {
			s.In++
		}
		if ev.Error != "" {
			s.Errors++
		}
		s.ByMessage[ev.MessageID]++
		if ev.Port != "" {
			s.ByPort[ev.Port]++
		}

		if s.First.IsZero() || ev.Timestamp.Before(s.First) {
			s.First = ev.Timestamp
		}
		if ev.Timestamp.After(s.Last) {
			s.Last = ev.Timestamp
		}
	}

	return s
}

// Duration returns the time between the first and last event.
func (s *Stats) Duration() time.Duration {
	if s.Total == 0 {
		return 0
	}

	return s.Last.Sub(s.First)
}

// WriteStats writes s in human-readable form.
func WriteStats(w io.Writer, s *Stats) {
	fmt.Fprintf(w, "Events:   %d (out %d, in %d, errors %d)\n", s.Total, s.Out, s.In, s.Errors)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Span:     %s .. %s (%v)\n",
		s.First.UTC().Format(time.RFC3339Nano), s.Last.UTC().Format(time.RFC3339Nano), s.Duration())

	ids := make([]uint16, 0, len(s.ByMessage))
	for id := range s.ByMessage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintln(w, "Messages:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-32s %d\n", apt.MessageID(id), s.ByMessage[id])
	}

	if len(s.ByPort) > 0 {
		ports := make([]string, 0, len(s.ByPort))
		for p := range s.ByPort {
			ports = append(ports, p)
		}
		sort.Strings(ports)

		fmt.Fprintln(w, "Ports:")
		for _, p := range ports {
			fmt.Fprintf(w, "  %-32s %d\n", p, s.ByPort[p])
		}
	}
}

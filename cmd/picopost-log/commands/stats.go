package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mytechnotalent/picopost/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Attempts         map[string]*AttemptStats
	Errors           int
	BytesReceived    int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// AttemptStats holds statistics for a single attempt.
type AttemptStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	RemoteAddr    string
	BytesReceived int
	Errors        int
	FinalState    string
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Attempts:         make(map[string]*AttemptStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.observe(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) observe(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	attempt, ok := s.Attempts[event.AttemptID]
	if !ok {
		attempt = &AttemptStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Attempts[event.AttemptID] = attempt
	}
	attempt.Events++
	if event.Timestamp.After(attempt.LastSeen) {
		attempt.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && attempt.RemoteAddr == "" {
		attempt.RemoteAddr = event.RemoteAddr
	}
	if event.Chunk != nil {
		s.BytesReceived += event.Chunk.Size
		attempt.BytesReceived += event.Chunk.Size
	}
	if event.Error != nil {
		s.Errors++
		attempt.Errors++
	}
	if event.StateChange != nil {
		attempt.FinalState = event.StateChange.NewState
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if !stats.TimeRange.Start.IsZero() {
		fmt.Fprintf(w, "Time range:   %s .. %s (%s)\n",
			stats.TimeRange.Start.UTC().Format(time.RFC3339),
			stats.TimeRange.End.UTC().Format(time.RFC3339),
			stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Errors:       %d\n", stats.Errors)
	fmt.Fprintf(w, "Bytes recv:   %d\n", stats.BytesReceived)

	fmt.Fprintln(w, "\nEvents by category:")
	for _, c := range []log.Category{log.CategoryProgress, log.CategoryState, log.CategoryData, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", c, n)
		}
	}

	// Sort attempts by first appearance for stable output.
	ids := make([]string, 0, len(stats.Attempts))
	for id := range stats.Attempts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Attempts[ids[i]].FirstSeen.Before(stats.Attempts[ids[j]].FirstSeen)
	})

	fmt.Fprintf(w, "\nAttempts: %d\n", len(ids))
	for _, id := range ids {
		a := stats.Attempts[id]
		fmt.Fprintf(w, "  %s  events=%d bytes=%d errors=%d", shortenAttemptID(id), a.Events, a.BytesReceived, a.Errors)
		if a.FinalState != "" {
			fmt.Fprintf(w, " state=%s", a.FinalState)
		}
		if a.RemoteAddr != "" {
			fmt.Fprintf(w, " remote=%s", a.RemoteAddr)
		}
		fmt.Fprintln(w)
	}
}

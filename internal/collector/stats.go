package collector

import (
	"sort"
	"sync"
	"time"
)

// SessionStats counts persisted artifacts per label. Counts never decrease;
// the noise count is assigned once at finalization.
type SessionStats struct {
	mu     sync.RWMutex
	start  time.Time
	counts map[Action]int
	total  int
}

// StatsSnapshot is a point-in-time copy of SessionStats.
type StatsSnapshot struct {
	Start           time.Time      `json:"session_start"`
	Duration        time.Duration  `json:"-"`
	DurationSeconds float64        `json:"duration_seconds"`
	TotalRecordings int            `json:"total_recordings"`
	Counts          map[Action]int `json:"counts"`
}

// NewSessionStats returns stats with every known label, including noise, at zero.
func NewSessionStats(start time.Time) *SessionStats {
	counts := make(map[Action]int, len(Actions)+1)
	for _, a := range Actions {
		counts[a] = 0
	}
	counts[ActionNoise] = 0
	return &SessionStats{start: start, counts: counts}
}

// RecordCompleted increments the count for a saved recording.
func (s *SessionStats) RecordCompleted(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[a]++
	s.total++
}

// SetNoise overwrites the noise segment count.
func (s *SessionStats) SetNoise(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[ActionNoise] = n
}

// Count returns the count for a.
func (s *SessionStats) Count(a Action) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[a]
}

// TotalRecordings returns the number of saved labeled recordings.
func (s *SessionStats) TotalRecordings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Snapshot copies the current state; now is used to compute the duration.
func (s *SessionStats) Snapshot(now time.Time) StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Action]int, len(s.counts))
	for a, n := range s.counts {
		counts[a] = n
	}
	d := now.Sub(s.start)
	return StatsSnapshot{
		Start:           s.start,
		Duration:        d,
		DurationSeconds: d.Seconds(),
		TotalRecordings: s.total,
		Counts:          counts,
	}
}

// SortedLabels returns the snapshot's labels in alphabetical order.
func (s StatsSnapshot) SortedLabels() []Action {
	labels := make([]Action, 0, len(s.Counts))
	for a := range s.Counts {
		labels = append(labels, a)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

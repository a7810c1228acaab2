package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrRecordingActive is returned when a start arrives while another
	// recording is in flight.
	ErrRecordingActive = errors.New("a recording is already active")

	// ErrNoActiveRecording is returned when an end arrives while idle.
	ErrNoActiveRecording = errors.New("no active recording")

	// ErrLabelMismatch is returned when an end names a different label than
	// the active recording. The active recording is kept.
	ErrLabelMismatch = errors.New("end label does not match active recording")

	// ErrUnknownAction is returned for labels outside Actions.
	ErrUnknownAction = errors.New("unknown action label")
)

// SavedRecording is the outcome of a successful end event.
type SavedRecording struct {
	ID        string
	Recording Recording
}

// RecordingStateMachine owns the single active-recording slot. Every
// transition reads, decides and mutates under one lock, so concurrent label
// events are linearized and never observe a half-updated slot.
type RecordingStateMachine struct {
	mu     sync.RWMutex
	active *ActiveRecording

	buffer *SampleBuffer
	store  ArtifactStore
	stats  *SessionStats
}

// NewRecordingStateMachine returns an idle state machine that extracts
// recording content from buffer, persists through store and counts
// completions in stats.
func NewRecordingStateMachine(buffer *SampleBuffer, store ArtifactStore, stats *SessionStats) *RecordingStateMachine {
	return &RecordingStateMachine{buffer: buffer, store: store, stats: stats}
}

// Start moves Idle to Recording(ev.Action). While recording, the event is
// rejected with ErrRecordingActive and the existing recording is untouched.
func (m *RecordingStateMachine) Start(ev LabelEvent) (ActiveRecording, error) {
	if !ev.Action.IsValid() {
		return ActiveRecording{}, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return *m.active, fmt.Errorf("%w: %s", ErrRecordingActive, m.active.Action)
	}

	m.active = &ActiveRecording{
		Action:          ev.Action,
		StartMs:         ev.TimestampMs,
		BufferOccupancy: m.buffer.Occupancy(),
		From:            ev.From,
	}
	return *m.active, nil
}

// End completes Recording(ev.Action): the recording is persisted, counted and
// the machine returns to Idle. The slot is cleared only after the store call
// returns, so a following start cannot race an unsaved end. If the store
// fails the recording stays active and the end may be retried.
func (m *RecordingStateMachine) End(ctx context.Context, ev LabelEvent) (SavedRecording, error) {
	if !ev.Action.IsValid() {
		return SavedRecording{}, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return SavedRecording{}, ErrNoActiveRecording
	}
	if m.active.Action != ev.Action {
		return SavedRecording{}, fmt.Errorf("%w: recording %s, got end for %s", ErrLabelMismatch, m.active.Action, ev.Action)
	}

	rec := Recording{
		Action:  ev.Action,
		StartMs: m.active.StartMs,
		EndMs:   ev.TimestampMs,
		Count:   ev.Count,
		Samples: m.buffer.Range(msToNs(m.active.StartMs), msToNs(ev.TimestampMs)),
	}
	id, err := m.store.SaveRecording(ctx, rec)
	if err != nil {
		return SavedRecording{}, fmt.Errorf("save recording %s: %w", RecordingID(rec.Action, rec.StartMs, rec.EndMs), err)
	}

	m.stats.RecordCompleted(rec.Action)
	m.active = nil
	return SavedRecording{ID: id, Recording: rec}, nil
}

// Active returns the in-flight recording, if any.
func (m *RecordingStateMachine) Active() (ActiveRecording, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return ActiveRecording{}, false
	}
	return *m.active, true
}

// View calls fn with the current recording state while holding the read lock,
// so no transition can happen until fn returns.
func (m *RecordingStateMachine) View(fn func(recording bool)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.active != nil)
}

func msToNs(ms int64) int64 {
	return ms * 1_000_000
}

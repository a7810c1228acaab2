package collector

import (
	"fmt"
	"time"
)

// Action is the label of a gesture or locomotion recording.
type Action string

const (
	ActionWalk      Action = "walk"
	ActionIdle      Action = "idle"
	ActionPunch     Action = "punch"
	ActionJump      Action = "jump"
	ActionTurnLeft  Action = "turn_left"
	ActionTurnRight Action = "turn_right"

	// ActionNoise is the synthetic label counting persisted noise segments.
	// It is never accepted from a label event.
	ActionNoise Action = "noise"
)

// Actions lists the labels accepted in label events, in display order.
var Actions = []Action{ActionWalk, ActionIdle, ActionPunch, ActionJump, ActionTurnLeft, ActionTurnRight}

// IsValid reports whether a is a label that may start or end a recording.
func (a Action) IsValid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// EventKind distinguishes the two label event types.
type EventKind string

const (
	EventStart EventKind = "start"
	EventEnd   EventKind = "end"
)

// LabelEvent is a start/end control message from the button app.
type LabelEvent struct {
	Action      Action    `json:"action"`
	Event       EventKind `json:"event"`
	TimestampMs int64     `json:"timestamp_ms"`
	Count       int       `json:"count"`

	// From is the sender address; set by the transport, not the payload.
	From string `json:"-"`
}

// Sample is one sensor reading. Timestamp is the producer capture time in
// nanoseconds. Payload maps sensor field names (accel_x, gyro_z, ...) to values.
// Samples are never mutated after ingestion and may be shared between the
// sample buffer and the noise window.
type Sample struct {
	Timestamp int64              `json:"timestamp_ns"`
	Sensor    string             `json:"sensor,omitempty"`
	Payload   map[string]float64 `json:"payload"`
}

// Valid reports whether s carries both a timestamp and a payload.
func (s Sample) Valid() bool {
	return s.Timestamp != 0 && len(s.Payload) > 0
}

// ActiveRecording is the single in-flight labeled recording.
type ActiveRecording struct {
	Action          Action `json:"action"`
	StartMs         int64  `json:"start_ms"`
	BufferOccupancy int    `json:"buffer_occupancy"`
	From            string `json:"from,omitempty"`
}

// Recording is a completed labeled recording handed to the ArtifactStore.
type Recording struct {
	Action  Action
	StartMs int64
	EndMs   int64
	Count   int
	Samples []Sample
}

// Duration returns the producer-clock duration of the recording.
// No clock-skew correction is applied.
func (r Recording) Duration() time.Duration {
	return time.Duration(r.EndMs-r.StartMs) * time.Millisecond
}

// RecordingID returns the deterministic artifact id for a recording.
func RecordingID(action Action, startMs, endMs int64) string {
	return fmt.Sprintf("%s_%d_to_%d", action, startMs, endMs)
}

// Granularity describes one noise segment size for a downstream classifier.
type Granularity struct {
	Name        string
	DurationSec float64
	RateHz      int
}

// WindowSize returns the number of samples per segment.
func (g Granularity) WindowSize() int {
	return int(g.DurationSec * float64(g.RateHz))
}

// DefaultSampleRateHz is the assumed source rate of the sensor stream.
const DefaultSampleRateHz = 50

// Locomotion and ActionGranularity are the two segment sizes produced at
// finalization: 5s windows for the locomotion classifier and 1s windows for
// the action classifier.
var (
	Locomotion        = Granularity{Name: "locomotion", DurationSec: 5.0, RateHz: DefaultSampleRateHz}
	ActionGranularity = Granularity{Name: "action", DurationSec: 1.0, RateHz: DefaultSampleRateHz}
)

// NoiseSegment is a fixed-length, contiguous slice of the noise window.
type NoiseSegment []Sample

// NoiseSegmentID returns the deterministic artifact id for a noise segment.
func NoiseSegmentID(granularity string, ordinal int) string {
	return fmt.Sprintf("noise_%s_seg_%03d", granularity, ordinal)
}

package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"motion-collector/internal/platform/logger"
	"motion-collector/internal/platform/metrics"
)

// ErrAlreadyFinalized is returned by a second call to Session.Finalize.
var ErrAlreadyFinalized = errors.New("session already finalized")

// Session is one data-collection session. It routes samples into the sample
// buffer and noise window, label events into the recording state machine, and
// runs noise segmentation once at the end. All methods are safe for
// concurrent use.
type Session struct {
	id        string
	output    string
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	start     time.Time
	capacity  int
	baseline  time.Duration
	segmenter *Segmenter

	store    ArtifactStore
	buffer   *SampleBuffer
	noise    *NoiseAccumulator
	recorder *RecordingStateMachine
	stats    *SessionStats

	finalizeMu sync.Mutex
	finalized  bool
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session identifier reported in the summary.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithOutputLocation sets the artifact location reported in the summary.
func WithOutputLocation(loc string) Option {
	return func(s *Session) { s.output = loc }
}

// WithLogger sets the logger for session notifications.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithClock replaces time.Now for arrival times and the baseline check.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBufferCapacity sets the sample buffer capacity.
func WithBufferCapacity(n int) Option {
	return func(s *Session) { s.capacity = n }
}

// WithBaselineDuration sets the length of the baseline noise phase.
func WithBaselineDuration(d time.Duration) Option {
	return func(s *Session) { s.baseline = d }
}

// WithSegmenter sets the noise segmenter used at finalization.
func WithSegmenter(seg *Segmenter) Option {
	return func(s *Session) {
		if seg != nil {
			s.segmenter = seg
		}
	}
}

// NewSession starts a session that persists artifacts through store. The
// baseline noise phase begins now.
func NewSession(store ArtifactStore, opts ...Option) *Session {
	s := &Session{
		store:    store,
		log:      logger.Discard(),
		now:      time.Now,
		capacity: DefaultBufferCapacity,
		baseline: DefaultBaselineDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.segmenter == nil {
		s.segmenter = NewSegmenter(nil, DefaultTargetSegments)
	}

	s.start = s.now()
	s.buffer = NewSampleBuffer(s.capacity)
	s.noise = NewNoiseAccumulator(s.start, s.baseline)
	s.stats = NewSessionStats(s.start)
	s.recorder = NewRecordingStateMachine(s.buffer, store, s.stats)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Dispatch routes a decoded message.
func (s *Session) Dispatch(ctx context.Context, msg Message) {
	switch {
	case msg.Label != nil:
		_ = s.HandleLabelEvent(ctx, *msg.Label)
	case msg.Sample != nil:
		s.IngestSample(*msg.Sample)
	}
}

// IngestSample pushes smp into the sample buffer and offers it to the noise
// window. A zero timestamp is replaced with the arrival time. The recording
// state is held stable while the noise append decides, so a sample is never
// attributed to the wrong side of a start or end.
func (s *Session) IngestSample(smp Sample) NoiseAppend {
	now := s.now()
	if smp.Timestamp == 0 {
		smp.Timestamp = now.UnixNano()
	}

	s.buffer.Push(smp)
	s.metrics.IncSamplesIngested()

	var res NoiseAppend
	s.recorder.View(func(recording bool) {
		res = s.noise.Append(smp, now, recording)
	})

	if res.Appended {
		s.metrics.IncNoiseSamples()
	}
	if res.BaselineCaptured {
		s.log.Info("baseline noise captured",
			slog.Int("samples", res.BaselineSamples),
			slog.Duration("baseline", s.baseline))
		s.log.Info("ready for button presses")
	}
	return res
}

// HandleLabelEvent applies a start or end event to the recording state
// machine. Rejected events are logged as warnings and returned; the state is
// left as it was.
func (s *Session) HandleLabelEvent(ctx context.Context, ev LabelEvent) error {
	switch ev.Event {
	case EventStart:
		return s.startRecording(ev)
	case EventEnd:
		return s.endRecording(ctx, ev)
	default:
		s.log.Debug("ignoring label event", slog.String("event", string(ev.Event)))
		return ErrMalformedMessage
	}
}

func (s *Session) startRecording(ev LabelEvent) error {
	rec, err := s.recorder.Start(ev)
	if err != nil {
		attrs := []any{
			slog.String("reason", conflictReason(err)),
			slog.String("action", string(ev.Action)),
			slog.String("event", string(ev.Event)),
		}
		if errors.Is(err, ErrRecordingActive) {
			attrs = append(attrs, slog.String("active", string(rec.Action)))
		}
		s.log.Warn("recording rejected", attrs...)
		s.metrics.IncConflicts(conflictReason(err))
		return err
	}

	s.metrics.SetRecordingActive(true)
	s.log.Info("recording started",
		slog.String("action", string(rec.Action)),
		slog.Int64("start_ms", rec.StartMs),
		slog.Int("buffer_occupancy", rec.BufferOccupancy),
		slog.String("from", rec.From))
	return nil
}

func (s *Session) endRecording(ctx context.Context, ev LabelEvent) error {
	saved, err := s.recorder.End(ctx, ev)
	if err != nil {
		if isConflict(err) {
			s.log.Warn("recording rejected",
				slog.String("reason", conflictReason(err)),
				slog.String("action", string(ev.Action)),
				slog.String("event", string(ev.Event)),
				slog.String("error", err.Error()))
			s.metrics.IncConflicts(conflictReason(err))
		} else {
			s.log.Error("recording save failed",
				slog.String("action", string(ev.Action)),
				slog.String("error", err.Error()))
		}
		return err
	}

	rec := saved.Recording
	s.metrics.SetRecordingActive(false)
	s.metrics.IncRecordingsSaved(string(rec.Action))
	s.log.Info("recording saved",
		slog.String("action", string(rec.Action)),
		slog.String("artifact", saved.ID),
		slog.Int64("duration_ms", rec.Duration().Milliseconds()),
		slog.Int("count", rec.Count),
		slog.Int("samples", len(rec.Samples)))
	s.logProgress()
	return nil
}

// Finalize segments the noise window and persists the selected segments. It
// runs exactly once; later calls return ErrAlreadyFinalized. Segment save
// failures are logged individually and joined into the returned error, but
// every other segment is still saved and the noise count is still assigned.
func (s *Session) Finalize(ctx context.Context) (SegmentationResult, error) {
	s.finalizeMu.Lock()
	defer s.finalizeMu.Unlock()
	if s.finalized {
		return SegmentationResult{}, ErrAlreadyFinalized
	}
	s.finalized = true

	window := s.noise.Window()
	if len(window) == 0 {
		s.log.Warn("no noise data collected")
	} else {
		s.log.Info("processing noise data", slog.Int("samples", len(window)))
	}

	res, err := s.segmenter.Run(ctx, window, s.store)
	if len(window) > 0 {
		s.log.Info("validated noise samples", slog.Int("valid", res.ValidSamples), slog.Int("input", res.InputSamples))
	}

	for _, g := range res.Granularities {
		if g.Shortfall {
			s.log.Warn("noise shortfall",
				slog.String("granularity", g.Granularity.Name),
				slog.Int("available", g.Available),
				slog.Int("target", res.Target))
		} else {
			s.log.Info("noise segments selected",
				slog.String("granularity", g.Granularity.Name),
				slog.Int("selected", len(g.Selected)),
				slog.Int("available", g.Available),
				slog.Float64("segment_seconds", g.Granularity.DurationSec))
		}
		for _, f := range g.Failures {
			s.log.Error("noise segment save failed",
				slog.String("granularity", g.Granularity.Name),
				slog.Int("ordinal", f.Ordinal),
				slog.String("artifact", f.ID),
				slog.String("error", f.Err.Error()))
		}
		s.metrics.AddNoiseSegments(g.Granularity.Name, len(g.Saved))
	}

	s.stats.SetNoise(res.SelectedTotal())
	s.log.Info("noise segments saved", slog.Int("selected", res.SelectedTotal()))
	return res, err
}

// Active returns the in-flight recording, if any.
func (s *Session) Active() (ActiveRecording, bool) {
	return s.recorder.Active()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() StatsSnapshot {
	return s.stats.Snapshot(s.now())
}

// BufferOccupancy returns the number of samples in the rolling buffer.
func (s *Session) BufferOccupancy() int {
	return s.buffer.Occupancy()
}

// NoiseSamples returns the number of samples in the noise window.
func (s *Session) NoiseSamples() int {
	return s.noise.Len()
}

// Summary is the operator-facing view of the session.
type Summary struct {
	SessionID        string           `json:"session_id"`
	Stats            StatsSnapshot    `json:"stats"`
	Active           *ActiveRecording `json:"active_recording"`
	BaselineCaptured bool             `json:"baseline_captured"`
	NoiseSamples     int              `json:"noise_samples"`
	BufferOccupancy  int              `json:"buffer_occupancy"`
	OutputLocation   string           `json:"output_location"`
}

// Summary returns the current operator-facing view.
func (s *Session) Summary() Summary {
	sum := Summary{
		SessionID:        s.id,
		Stats:            s.Stats(),
		BaselineCaptured: s.noise.BaselineCaptured(),
		NoiseSamples:     s.noise.Len(),
		BufferOccupancy:  s.buffer.Occupancy(),
		OutputLocation:   s.output,
	}
	if rec, ok := s.recorder.Active(); ok {
		sum.Active = &rec
	}
	return sum
}

// LogSummary writes the one-shot session summary.
func (s *Session) LogSummary() {
	snap := s.Stats()
	attrs := []any{
		slog.String("session_id", s.id),
		slog.String("duration", snap.Duration.Round(time.Second).String()),
		slog.Int("total_recordings", snap.TotalRecordings),
		slog.String("output", s.output),
	}
	for _, a := range snap.SortedLabels() {
		attrs = append(attrs, slog.Int(string(a), snap.Counts[a]))
	}
	s.log.Info("session summary", attrs...)
}

func (s *Session) logProgress() {
	snap := s.stats.Snapshot(s.now())
	attrs := []any{slog.Int("total_recordings", snap.TotalRecordings)}
	for _, a := range Actions {
		attrs = append(attrs, slog.Int(string(a), snap.Counts[a]))
	}
	attrs = append(attrs, slog.Int(string(ActionNoise), snap.Counts[ActionNoise]))
	s.log.Info("progress", attrs...)
}

func isConflict(err error) bool {
	return errors.Is(err, ErrRecordingActive) ||
		errors.Is(err, ErrNoActiveRecording) ||
		errors.Is(err, ErrLabelMismatch) ||
		errors.Is(err, ErrUnknownAction)
}

func conflictReason(err error) string {
	switch {
	case errors.Is(err, ErrRecordingActive):
		return "recording_active"
	case errors.Is(err, ErrNoActiveRecording):
		return "no_active_recording"
	case errors.Is(err, ErrLabelMismatch):
		return "label_mismatch"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	default:
		return "other"
	}
}

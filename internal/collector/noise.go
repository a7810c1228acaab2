package collector

import (
	"sync"
	"time"
)

// DefaultBaselineDuration is how long every sample is treated as noise after
// the session starts.
const DefaultBaselineDuration = 30 * time.Second

// NoiseAppend reports what NoiseAccumulator.Append did with one sample.
type NoiseAppend struct {
	// Appended is true when the sample was added to the noise window.
	Appended bool

	// BaselineCaptured is true only for the one append that observed the
	// end of the baseline phase. BaselineSamples then holds the number of
	// samples gathered during the baseline.
	BaselineCaptured bool
	BaselineSamples  int
}

// NoiseAccumulator collects samples that belong to no labeled recording.
// During the baseline phase every sample is kept. Once the baseline window has
// elapsed (checked lazily on the next sample) only samples that arrive while
// idle are kept. The window is unbounded for the session's lifetime.
type NoiseAccumulator struct {
	mu        sync.Mutex
	start     time.Time
	baseline  time.Duration
	captured  bool
	baseCount int
	window    []Sample
}

// NewNoiseAccumulator starts the baseline phase at start.
func NewNoiseAccumulator(start time.Time, baseline time.Duration) *NoiseAccumulator {
	return &NoiseAccumulator{start: start, baseline: baseline}
}

// Append offers s to the window. now is the arrival time used for the baseline
// check and recording reports whether a labeled recording is active.
//
// The sample that observes the baseline expiry is judged by the default-phase
// rule, so it is kept if no recording is active.
func (n *NoiseAccumulator) Append(s Sample, now time.Time, recording bool) NoiseAppend {
	n.mu.Lock()
	defer n.mu.Unlock()

	var res NoiseAppend
	if !n.captured {
		if now.Sub(n.start) < n.baseline {
			n.window = append(n.window, s)
			res.Appended = true
			return res
		}
		n.captured = true
		n.baseCount = len(n.window)
		res.BaselineCaptured = true
		res.BaselineSamples = n.baseCount
	}

	if !recording {
		n.window = append(n.window, s)
		res.Appended = true
	}
	return res
}

// BaselineCaptured reports whether the baseline phase has ended.
func (n *NoiseAccumulator) BaselineCaptured() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.captured
}

// Len returns the number of samples in the window.
func (n *NoiseAccumulator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.window)
}

// Window returns a copy of the accumulated samples in arrival order.
func (n *NoiseAccumulator) Window() []Sample {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Sample, len(n.window))
	copy(out, n.window)
	return out
}

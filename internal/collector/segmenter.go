package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultTargetSegments is the number of segments selected per granularity.
const DefaultTargetSegments = 30

// SegmentFailure records one noise segment that could not be persisted.
type SegmentFailure struct {
	ID      string
	Ordinal int
	Err     error
}

// GranularityResult is the segmentation outcome for one granularity.
type GranularityResult struct {
	Granularity Granularity
	Available   int
	Selected    []NoiseSegment
	Shortfall   bool
	Saved       []string
	Failures    []SegmentFailure
}

// SegmentationResult aggregates every granularity of one run.
type SegmentationResult struct {
	InputSamples  int
	ValidSamples  int
	Target        int
	Granularities []GranularityResult
}

// SelectedTotal is the number of selected segments across granularities.
func (r SegmentationResult) SelectedTotal() int {
	n := 0
	for _, g := range r.Granularities {
		n += len(g.Selected)
	}
	return n
}

// Segmenter slices a noise window into fixed-size segments and samples a
// bounded number of them per granularity.
type Segmenter struct {
	rng           *rand.Rand
	target        int
	granularities []Granularity
}

// NewSegmenter returns a Segmenter drawing from rng. A nil rng is seeded from
// the wall clock, target <= 0 means DefaultTargetSegments and no granularities
// means Locomotion and ActionGranularity.
func NewSegmenter(rng *rand.Rand, target int, granularities ...Granularity) *Segmenter {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if target <= 0 {
		target = DefaultTargetSegments
	}
	if len(granularities) == 0 {
		granularities = []Granularity{Locomotion, ActionGranularity}
	}
	return &Segmenter{rng: rng, target: target, granularities: granularities}
}

// Target returns the per-granularity selection bound.
func (s *Segmenter) Target() int {
	return s.target
}

// ValidSamples drops samples missing a timestamp or payload. Segmentation
// operates on the filtered sequence.
func ValidSamples(in []Sample) []Sample {
	out := make([]Sample, 0, len(in))
	for _, smp := range in {
		if smp.Valid() {
			out = append(out, smp)
		}
	}
	return out
}

// SegmentWindow splits samples into consecutive non-overlapping segments of
// exactly window samples. A trailing partial window is discarded.
func SegmentWindow(samples []Sample, window int) []NoiseSegment {
	if window <= 0 {
		return nil
	}
	n := len(samples) / window
	segs := make([]NoiseSegment, 0, n)
	for i := 0; i < n; i++ {
		segs = append(segs, NoiseSegment(samples[i*window:(i+1)*window:(i+1)*window]))
	}
	return segs
}

// Select returns exactly Target segments chosen uniformly at random without
// replacement, or every segment when fewer are available. shortfall reports
// the latter case.
func (s *Segmenter) Select(segs []NoiseSegment) (selected []NoiseSegment, shortfall bool) {
	if len(segs) < s.target {
		out := make([]NoiseSegment, len(segs))
		copy(out, segs)
		return out, true
	}
	perm := s.rng.Perm(len(segs))
	selected = make([]NoiseSegment, 0, s.target)
	for _, idx := range perm[:s.target] {
		selected = append(selected, segs[idx])
	}
	return selected, false
}

// Run validates window, segments and selects per granularity, then persists
// each selected segment numbered 1..K in selection order. A failed save is
// recorded and the remaining saves still run; the returned error joins every
// failure.
func (s *Segmenter) Run(ctx context.Context, window []Sample, store ArtifactStore) (SegmentationResult, error) {
	valid := ValidSamples(window)
	res := SegmentationResult{
		InputSamples: len(window),
		ValidSamples: len(valid),
		Target:       s.target,
	}

	var errs []error
	for _, g := range s.granularities {
		segs := SegmentWindow(valid, g.WindowSize())
		selected, shortfall := s.Select(segs)
		gr := GranularityResult{
			Granularity: g,
			Available:   len(segs),
			Selected:    selected,
			Shortfall:   shortfall,
		}
		for i, seg := range selected {
			ordinal := i + 1
			id, err := store.SaveNoiseSegment(ctx, g.Name, ordinal, seg)
			if err != nil {
				id = NoiseSegmentID(g.Name, ordinal)
				gr.Failures = append(gr.Failures, SegmentFailure{ID: id, Ordinal: ordinal, Err: err})
				errs = append(errs, fmt.Errorf("save %s: %w", id, err))
				continue
			}
			gr.Saved = append(gr.Saved, id)
		}
		res.Granularities = append(res.Granularities, gr)
	}
	return res, errors.Join(errs...)
}

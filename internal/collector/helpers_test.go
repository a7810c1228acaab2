package collector

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// makeSamples returns n valid samples 20ms apart starting at startNs.
func makeSamples(n int, startNs int64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{
			Timestamp: startNs + int64(i)*int64(20*time.Millisecond),
			Sensor:    "accelerometer",
			Payload:   map[string]float64{"accel_x": float64(i), "accel_y": 0.5, "accel_z": 9.81},
		}
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errDiskFull = errors.New("disk full")

// failingStore fails noise segment saves whose ordinal is in failOrdinals and
// every recording save while failRecordings is set.
type failingStore struct {
	*MemoryStore
	failOrdinals   map[int]bool
	failRecordings bool
}

func (s *failingStore) SaveRecording(ctx context.Context, rec Recording) (string, error) {
	if s.failRecordings {
		return "", errDiskFull
	}
	return s.MemoryStore.SaveRecording(ctx, rec)
}

func (s *failingStore) SaveNoiseSegment(ctx context.Context, granularity string, ordinal int, seg NoiseSegment) (string, error) {
	if s.failOrdinals[ordinal] {
		return "", errDiskFull
	}
	return s.MemoryStore.SaveNoiseSegment(ctx, granularity, ordinal, seg)
}

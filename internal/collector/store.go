package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// ArtifactStore is the persistence abstraction for recordings and noise
// segments. Implementations return the artifact id they stored under.
type ArtifactStore interface {
	SaveRecording(ctx context.Context, rec Recording) (string, error)
	SaveNoiseSegment(ctx context.Context, granularity string, ordinal int, seg NoiseSegment) (string, error)
}

// CSVColumns is the header of every artifact file. The first two columns are
// the sample timestamp and sensor name; the rest are payload field names.
var CSVColumns = []string{
	"timestamp", "sensor",
	"accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
	"rot_x", "rot_y", "rot_z", "rot_w",
}

// CSVStore writes one CSV file per artifact into a directory.
type CSVStore struct {
	dir string
}

// NewCSVStore returns a store rooted at dir, creating it if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %q: %w", dir, err)
	}
	return &CSVStore{dir: dir}, nil
}

// Dir returns the output directory.
func (s *CSVStore) Dir() string {
	return s.dir
}

// SaveRecording implements ArtifactStore.SaveRecording.
func (s *CSVStore) SaveRecording(ctx context.Context, rec Recording) (string, error) {
	id := RecordingID(rec.Action, rec.StartMs, rec.EndMs)
	return id, s.write(ctx, id, rec.Samples)
}

// SaveNoiseSegment implements ArtifactStore.SaveNoiseSegment.
func (s *CSVStore) SaveNoiseSegment(ctx context.Context, granularity string, ordinal int, seg NoiseSegment) (string, error) {
	id := NoiseSegmentID(granularity, ordinal)
	return id, s.write(ctx, id, seg)
}

// Path returns the file path for an artifact id.
func (s *CSVStore) Path(id string) string {
	return filepath.Join(s.dir, id+".csv")
}

func (s *CSVStore) write(ctx context.Context, id string, samples []Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(s.Path(id))
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVColumns); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", id, err)
	}
	for _, smp := range samples {
		if err := w.Write(csvRow(smp)); err != nil {
			f.Close()
			return fmt.Errorf("write row %s: %w", id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", id, err)
	}
	return f.Close()
}

// csvRow renders a sample under CSVColumns; fields absent from the payload
// are left empty.
func csvRow(smp Sample) []string {
	row := make([]string, len(CSVColumns))
	row[0] = strconv.FormatInt(smp.Timestamp, 10)
	row[1] = smp.Sensor
	for i, col := range CSVColumns[2:] {
		if v, ok := smp.Payload[col]; ok {
			row[i+2] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return row
}

// MemoryStore keeps artifacts in memory. It is used by tests and as a dry-run
// store.
type MemoryStore struct {
	mu         sync.Mutex
	recordings map[string]Recording
	segments   map[string]NoiseSegment
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recordings: make(map[string]Recording),
		segments:   make(map[string]NoiseSegment),
	}
}

// SaveRecording implements ArtifactStore.SaveRecording.
func (s *MemoryStore) SaveRecording(_ context.Context, rec Recording) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := RecordingID(rec.Action, rec.StartMs, rec.EndMs)
	s.recordings[id] = rec
	return id, nil
}

// SaveNoiseSegment implements ArtifactStore.SaveNoiseSegment.
func (s *MemoryStore) SaveNoiseSegment(_ context.Context, granularity string, ordinal int, seg NoiseSegment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := NoiseSegmentID(granularity, ordinal)
	s.segments[id] = seg
	return id, nil
}

// Recording returns the stored recording with the given id.
func (s *MemoryStore) Recording(id string) (Recording, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	return rec, ok
}

// Segment returns the stored noise segment with the given id.
func (s *MemoryStore) Segment(id string) (NoiseSegment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.segments[id]
	return seg, ok
}

// IDs returns every stored artifact id, sorted.
func (s *MemoryStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.recordings)+len(s.segments))
	for id := range s.recordings {
		ids = append(ids, id)
	}
	for id := range s.segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

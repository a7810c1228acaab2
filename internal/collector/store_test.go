package collector

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestNewCSVStore_createsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := NewCSVStore(dir)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	if fi, err := os.Stat(s.Dir()); err != nil || !fi.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestCSVStore_SaveRecording(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := Recording{
		Action:  ActionJump,
		StartMs: 1000,
		EndMs:   1350,
		Count:   3,
		Samples: []Sample{
			{Timestamp: 1000000000, Sensor: "accelerometer", Payload: map[string]float64{"accel_x": 0.25, "accel_z": 9.81}},
			{Timestamp: 1020000000, Sensor: "rotation", Payload: map[string]float64{"rot_w": 1}},
		},
	}

	id, err := s.SaveRecording(context.Background(), rec)
	if err != nil {
		t.Fatalf("SaveRecording: %v", err)
	}
	if id != "jump_1000_to_1350" {
		t.Errorf("id = %q", id)
	}

	rows := readCSV(t, s.Path(id))
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVColumns, ",") {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"1000000000", "accelerometer", "0.25", "", "9.81", "", "", "", "", "", "", ""}
	if strings.Join(rows[1], ",") != strings.Join(want, ",") {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	if rows[2][11] != "1" || rows[2][1] != "rotation" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestCSVStore_SaveNoiseSegment(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.SaveNoiseSegment(context.Background(), "locomotion", 7, NoiseSegment(makeSamples(250, 1)))
	if err != nil {
		t.Fatalf("SaveNoiseSegment: %v", err)
	}
	if id != "noise_locomotion_seg_007" {
		t.Errorf("id = %q", id)
	}
	if rows := readCSV(t, filepath.Join(s.Dir(), "noise_locomotion_seg_007.csv")); len(rows) != 251 {
		t.Errorf("rows = %d, want 251", len(rows))
	}
}

func TestCSVStore_cancelledContext(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SaveRecording(ctx, Recording{Action: ActionWalk}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.SaveRecording(ctx, Recording{Action: ActionWalk, StartMs: 1, EndMs: 2})
	_, _ = s.SaveNoiseSegment(ctx, "action", 1, nil)

	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "noise_action_seg_001" || ids[1] != "walk_1_to_2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestArtifactIDs(t *testing.T) {
	if got := RecordingID(ActionTurnLeft, 5, 900); got != "turn_left_5_to_900" {
		t.Errorf("RecordingID = %q", got)
	}
	if got := NoiseSegmentID("action", 12); got != "noise_action_seg_012" {
		t.Errorf("NoiseSegmentID = %q", got)
	}
	if got := NoiseSegmentID("action", 1234); got != "noise_action_seg_1234" {
		t.Errorf("NoiseSegmentID = %q", got)
	}
}

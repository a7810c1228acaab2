package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Artifact kinds recorded in the manifest.
const (
	KindRecording    = "recording"
	KindNoiseSegment = "noise_segment"
)

// Artifact is one row of the manifest: a persisted recording or noise segment.
type Artifact struct {
	ID          string
	SessionID   string
	Kind        string
	Label       string
	Granularity string
	Ordinal     int
	StartMs     int64
	EndMs       int64
	Count       int
	Samples     int
	CreatedAt   time.Time
}

// Manifest indexes persisted artifacts.
type Manifest interface {
	Record(ctx context.Context, a Artifact) error
}

const manifestSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id          TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	label       TEXT NOT NULL,
	granularity TEXT NOT NULL DEFAULT '',
	ordinal     INTEGER NOT NULL DEFAULT 0,
	start_ms    INTEGER NOT NULL DEFAULT 0,
	end_ms      INTEGER NOT NULL DEFAULT 0,
	count       INTEGER NOT NULL DEFAULT 0,
	samples     INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (session_id, id)
)`

// SQLiteManifest stores the manifest in a SQLite database.
type SQLiteManifest struct {
	db *sql.DB
}

// OpenManifest opens (or creates) the manifest database at path.
func OpenManifest(path string) (*SQLiteManifest, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping manifest: %w", err)
	}
	if _, err := db.Exec(manifestSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create manifest schema: %w", err)
	}
	return &SQLiteManifest{db: db}, nil
}

// Close closes the database connection.
func (m *SQLiteManifest) Close() error {
	return m.db.Close()
}

// Record implements Manifest.Record. Re-recording an id within a session
// replaces the previous row.
func (m *SQLiteManifest) Record(ctx context.Context, a Artifact) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artifacts
			(id, session_id, kind, label, granularity, ordinal, start_ms, end_ms, count, samples, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.SessionID, a.Kind, a.Label, a.Granularity, a.Ordinal,
		a.StartMs, a.EndMs, a.Count, a.Samples, a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert artifact %s: %w", a.ID, err)
	}
	return nil
}

// List returns every artifact of a session ordered by creation time.
func (m *SQLiteManifest) List(ctx context.Context, sessionID string) ([]Artifact, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, session_id, kind, label, granularity, ordinal, start_ms, end_ms, count, samples, created_at
		FROM artifacts
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Kind, &a.Label, &a.Granularity, &a.Ordinal,
			&a.StartMs, &a.EndMs, &a.Count, &a.Samples, &createdAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// IndexedStore persists through an ArtifactStore and records each saved
// artifact in a Manifest. Manifest failures are logged; the artifact itself
// is already persisted and the save still succeeds.
type IndexedStore struct {
	store     ArtifactStore
	manifest  Manifest
	sessionID string
	log       *slog.Logger
	now       func() time.Time
}

// NewIndexedStore wraps store so that every save is indexed in manifest.
func NewIndexedStore(store ArtifactStore, manifest Manifest, sessionID string, log *slog.Logger) *IndexedStore {
	return &IndexedStore{
		store:     store,
		manifest:  manifest,
		sessionID: sessionID,
		log:       log,
		now:       time.Now,
	}
}

// SaveRecording implements ArtifactStore.SaveRecording.
func (s *IndexedStore) SaveRecording(ctx context.Context, rec Recording) (string, error) {
	id, err := s.store.SaveRecording(ctx, rec)
	if err != nil {
		return id, err
	}
	s.record(ctx, Artifact{
		ID:      id,
		Kind:    KindRecording,
		Label:   string(rec.Action),
		StartMs: rec.StartMs,
		EndMs:   rec.EndMs,
		Count:   rec.Count,
		Samples: len(rec.Samples),
	})
	return id, nil
}

// SaveNoiseSegment implements ArtifactStore.SaveNoiseSegment.
func (s *IndexedStore) SaveNoiseSegment(ctx context.Context, granularity string, ordinal int, seg NoiseSegment) (string, error) {
	id, err := s.store.SaveNoiseSegment(ctx, granularity, ordinal, seg)
	if err != nil {
		return id, err
	}
	a := Artifact{
		ID:          id,
		Kind:        KindNoiseSegment,
		Label:       string(ActionNoise),
		Granularity: granularity,
		Ordinal:     ordinal,
		Samples:     len(seg),
	}
	if len(seg) > 0 {
		a.StartMs = seg[0].Timestamp / 1_000_000
		a.EndMs = seg[len(seg)-1].Timestamp / 1_000_000
	}
	s.record(ctx, a)
	return id, nil
}

func (s *IndexedStore) record(ctx context.Context, a Artifact) {
	a.SessionID = s.sessionID
	a.CreatedAt = s.now().UTC()
	if err := s.manifest.Record(ctx, a); err != nil {
		s.log.Warn("manifest update failed",
			slog.String("artifact", a.ID),
			slog.String("error", err.Error()))
	}
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewtrace/crewtrace/internal/monitoring"
)

// Audit actions recorded with every stored update.
const (
	AuditSingleUpdate = "SINGLE_UPDATE"
	AuditBatchUpdate  = "BATCH_UPDATE"
)

// SubjectPosition is the latest significant position for one tracked
// subject. There is exactly one row per subject: every significant update
// overwrites all fields, last-write-wins, and no history is retained here.
// The deltas describe the movement relative to the previously stored sample.
type SubjectPosition struct {
	SubjectID       string  `json:"subject_id"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AccuracyMeters  float64 `json:"accuracy"`
	ObservedAtMs    int64   `json:"observed_at_ms"`
	DeltaDistanceM  float64 `json:"delta_distance_m"`
	DeltaHeadingDeg float64 `json:"delta_heading_deg"`
	UpdatedAtMs     int64   `json:"updated_at_ms"`
}

// LocationAuditEntry is one append-only audit row, written per significant
// update (or per sample within a flushed batch). Rows are immutable.
type LocationAuditEntry struct {
	AuditID        string  `json:"audit_id"`
	SubjectID      string  `json:"subject_id"`
	Action         string  `json:"action"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy"`
	ObservedAtMs   int64   `json:"observed_at_ms"`
	BatchSize      *int    `json:"batch_size,omitempty"`
	CreatedAtMs    int64   `json:"created_at_ms"`
}

// UpsertPosition stores the position as the subject's current one, creating
// the row on first contact and overwriting every field afterwards.
func (db *DB) UpsertPosition(ctx context.Context, pos *SubjectPosition) error {
	if pos.SubjectID == "" {
		return errors.New("subject id is required")
	}
	if pos.UpdatedAtMs == 0 {
		pos.UpdatedAtMs = time.Now().UnixMilli()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO subject_positions (
			subject_id, latitude, longitude, accuracy_m,
			observed_at_ms, delta_distance_m, delta_heading_deg, updated_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			accuracy_m = excluded.accuracy_m,
			observed_at_ms = excluded.observed_at_ms,
			delta_distance_m = excluded.delta_distance_m,
			delta_heading_deg = excluded.delta_heading_deg,
			updated_at_ms = excluded.updated_at_ms
	`,
		pos.SubjectID, pos.Latitude, pos.Longitude, pos.AccuracyMeters,
		pos.ObservedAtMs, pos.DeltaDistanceM, pos.DeltaHeadingDeg, pos.UpdatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("upsert position for %s: %w", pos.SubjectID, err)
	}
	return nil
}

// GetPosition returns the subject's current position, or nil if nothing has
// been stored for it yet.
func (db *DB) GetPosition(ctx context.Context, subjectID string) (*SubjectPosition, error) {
	var pos SubjectPosition
	err := db.QueryRowContext(ctx, `
		SELECT subject_id, latitude, longitude, accuracy_m,
		       observed_at_ms, delta_distance_m, delta_heading_deg, updated_at_ms
		FROM subject_positions
		WHERE subject_id = ?
	`, subjectID).Scan(
		&pos.SubjectID, &pos.Latitude, &pos.Longitude, &pos.AccuracyMeters,
		&pos.ObservedAtMs, &pos.DeltaDistanceM, &pos.DeltaHeadingDeg, &pos.UpdatedAtMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position for %s: %w", subjectID, err)
	}
	return &pos, nil
}

// AppendAudit appends one audit entry. A missing AuditID gets a fresh UUID.
func (db *DB) AppendAudit(ctx context.Context, entry *LocationAuditEntry) error {
	if entry.AuditID == "" {
		entry.AuditID = uuid.New().String()
	}
	if entry.CreatedAtMs == 0 {
		entry.CreatedAtMs = time.Now().UnixMilli()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO location_audit (
			audit_id, subject_id, action, latitude, longitude,
			accuracy_m, observed_at_ms, batch_size, created_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.AuditID, entry.SubjectID, entry.Action, entry.Latitude, entry.Longitude,
		entry.AccuracyMeters, entry.ObservedAtMs, entry.BatchSize, entry.CreatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("append audit for %s: %w", entry.SubjectID, err)
	}
	return nil
}

// StoreSignificantUpdate applies a single significant update: the position
// upsert, then a best-effort audit append. The two are deliberately not
// wrapped in a transaction; losing the audit row after a successful upsert
// is acceptable, losing the position is not.
func (db *DB) StoreSignificantUpdate(ctx context.Context, pos *SubjectPosition) error {
	if err := db.UpsertPosition(ctx, pos); err != nil {
		return err
	}

	if err := db.AppendAudit(ctx, &LocationAuditEntry{
		SubjectID:      pos.SubjectID,
		Action:         AuditSingleUpdate,
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		AccuracyMeters: pos.AccuracyMeters,
		ObservedAtMs:   pos.ObservedAtMs,
	}); err != nil {
		monitoring.Logf("audit append failed for %s: %v", pos.SubjectID, err)
	}
	return nil
}

// BatchResult summarizes a batch application for server-side logging. The
// client never sees it.
type BatchResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ApplyBatch upserts each sample in a flushed batch independently. A failing
// item is counted and skipped; it never aborts the remaining items.
func (db *DB) ApplyBatch(ctx context.Context, positions []SubjectPosition) BatchResult {
	result := BatchResult{Processed: len(positions)}
	batchSize := len(positions)

	for i := range positions {
		pos := positions[i]
		if err := db.UpsertPosition(ctx, &pos); err != nil {
			monitoring.Logf("batch item %d (%s) failed: %v", i, pos.SubjectID, err)
			result.Failed++
			continue
		}
		if err := db.AppendAudit(ctx, &LocationAuditEntry{
			SubjectID:      pos.SubjectID,
			Action:         AuditBatchUpdate,
			Latitude:       pos.Latitude,
			Longitude:      pos.Longitude,
			AccuracyMeters: pos.AccuracyMeters,
			ObservedAtMs:   pos.ObservedAtMs,
			BatchSize:      &batchSize,
		}); err != nil {
			monitoring.Logf("batch audit append failed for %s: %v", pos.SubjectID, err)
		}
		result.Successful++
	}

	return result
}

// AuditTrail returns the subject's audit entries newer than since, oldest
// first, capped at limit rows.
func (db *DB) AuditTrail(ctx context.Context, subjectID string, since time.Time, limit int) ([]LocationAuditEntry, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := db.QueryContext(ctx, `
		SELECT audit_id, subject_id, action, latitude, longitude,
		       accuracy_m, observed_at_ms, batch_size, created_at_ms
		FROM location_audit
		WHERE subject_id = ? AND created_at_ms >= ?
		ORDER BY created_at_ms ASC
		LIMIT ?
	`, subjectID, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("audit trail for %s: %w", subjectID, err)
	}
	defer rows.Close()

	var entries []LocationAuditEntry
	for rows.Next() {
		var e LocationAuditEntry
		var batchSize sql.NullInt64
		if err := rows.Scan(
			&e.AuditID, &e.SubjectID, &e.Action, &e.Latitude, &e.Longitude,
			&e.AccuracyMeters, &e.ObservedAtMs, &batchSize, &e.CreatedAtMs,
		); err != nil {
			return nil, err
		}
		if batchSize.Valid {
			size := int(batchSize.Int64)
			e.BatchSize = &size
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

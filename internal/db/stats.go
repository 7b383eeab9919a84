package db

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/crewtrace/crewtrace/internal/geo"
)

// MovementStats summarizes a subject's movement over its recent audit trail.
// Step distances are the great-circle distances between consecutive audit
// entries, oldest first.
type MovementStats struct {
	SubjectID     string  `json:"subject_id"`
	Samples       int     `json:"samples"`
	Steps         int     `json:"steps"`
	TotalMeters   float64 `json:"total_m"`
	MeanStepM     float64 `json:"mean_step_m"`
	StdDevStepM   float64 `json:"stddev_step_m"`
	MedianStepM   float64 `json:"median_step_m"`
	P95StepM      float64 `json:"p95_step_m"`
	MaxStepM      float64 `json:"max_step_m"`
	WindowMinutes float64 `json:"window_minutes"`
}

// MovementStatsSince computes movement statistics from the subject's audit
// entries newer than since. A trail with fewer than two entries yields zeroed
// step statistics.
func (db *DB) MovementStatsSince(ctx context.Context, subjectID string, since time.Time, limit int) (*MovementStats, error) {
	entries, err := db.AuditTrail(ctx, subjectID, since, limit)
	if err != nil {
		return nil, err
	}

	stats := &MovementStats{
		SubjectID: subjectID,
		Samples:   len(entries),
	}
	if len(entries) > 1 {
		first := time.UnixMilli(entries[0].CreatedAtMs)
		last := time.UnixMilli(entries[len(entries)-1].CreatedAtMs)
		stats.WindowMinutes = last.Sub(first).Minutes()
	}
	if len(entries) < 2 {
		return stats, nil
	}

	steps := make([]float64, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		d := geo.DistanceMeters(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		steps = append(steps, d)
		stats.TotalMeters += d
		if d > stats.MaxStepM {
			stats.MaxStepM = d
		}
	}
	stats.Steps = len(steps)
	stats.MeanStepM = stat.Mean(steps, nil)
	if len(steps) > 1 {
		stats.StdDevStepM = stat.StdDev(steps, nil)
	}

	// Quantile requires sorted input.
	sort.Float64s(steps)
	stats.MedianStepM = stat.Quantile(0.5, stat.Empirical, steps, nil)
	stats.P95StepM = stat.Quantile(0.95, stat.Empirical, steps, nil)

	return stats, nil
}

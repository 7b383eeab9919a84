// Package track implements the agent side of location delta tracking: the
// significance evaluator, the adaptive polling controller, and the
// transmitters that forward significant samples to the ingestion server.
package track

import (
	"context"
	"time"
)

// PositionSample is a single reading from a location source. Samples are
// transient; only significant ones are transmitted or buffered.
type PositionSample struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	CapturedAt     time.Time
}

// Thresholds are the significance cutoffs for a movement delta.
type Thresholds struct {
	DistanceMeters float64
	HeadingDegrees float64
}

// DefaultThresholds returns the standard cutoffs: 10 metres or 15 degrees.
func DefaultThresholds() Thresholds {
	return Thresholds{DistanceMeters: 10, HeadingDegrees: 15}
}

// Significant reports whether a movement delta warrants transmission. The
// OR is deliberate: a subject that pivots in place without covering distance
// still counts, because a heading change (turning a vehicle around) is
// independently meaningful.
func Significant(distanceMeters, headingDeltaDegrees float64, th Thresholds) bool {
	return distanceMeters > th.DistanceMeters || headingDeltaDegrees > th.HeadingDegrees
}

// Source produces position samples on demand. Acquisition may take
// arbitrarily long on real hardware, so it is bounded by the context.
type Source interface {
	Acquire(ctx context.Context) (PositionSample, error)
}

// Update is a significant sample plus the delta that made it significant,
// measured against the previously stored sample.
type Update struct {
	Sample              PositionSample
	DeltaDistanceMeters float64
	DeltaHeadingDegrees float64
	Significant         bool
}

// Sink receives updates bound for the ingestion server. SendUpdate is the
// synchronous single-sample path; SendBatch is the best-effort drain used on
// shutdown and its outcome is never acted on by the caller.
type Sink interface {
	SendUpdate(ctx context.Context, u Update) error
	SendBatch(ctx context.Context, samples []PositionSample) error
}

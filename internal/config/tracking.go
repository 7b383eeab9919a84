package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TrackingConfig holds the tunable parameters of the location tracking loop
// and ingestion endpoint. Fields are pointers so a partial JSON file only
// overrides what it names; the Get* accessors supply defaults for the rest.
type TrackingConfig struct {
	// Significance thresholds
	DistanceThresholdMeters *float64 `json:"distance_threshold_meters,omitempty"`
	HeadingThresholdDegrees *float64 `json:"heading_threshold_degrees,omitempty"`

	// Polling backoff ladder, as duration strings like "60s". Must be
	// non-empty and strictly ascending.
	IntervalLadder *[]string `json:"interval_ladder,omitempty"`

	// AcquireTimeout bounds a single position acquisition, duration string.
	AcquireTimeout *string `json:"acquire_timeout,omitempty"`

	// SampleBufferSize caps the agent-side buffer of significant samples
	// retained for the shutdown flush.
	SampleBufferSize *int `json:"sample_buffer_size,omitempty"`

	// FlushTimeout bounds the best-effort batch drain on shutdown.
	FlushTimeout *string `json:"flush_timeout,omitempty"`

	// RecomputeSignificance makes the server re-derive significance from the
	// last stored row instead of trusting the client flag.
	RecomputeSignificance *bool `json:"recompute_significance,omitempty"`

	// CacheTTL controls the read cache in front of current-position lookups.
	CacheTTL *string `json:"cache_ttl,omitempty"`

	// Units selects the distance unit for API responses.
	Units *string `json:"units,omitempty"`
}

// EmptyTrackingConfig returns a TrackingConfig with all fields unset, so
// every accessor answers with its default.
func EmptyTrackingConfig() *TrackingConfig {
	return &TrackingConfig{}
}

// LoadTrackingConfig loads a TrackingConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TrackingConfig) Validate() error {
	if c.DistanceThresholdMeters != nil && *c.DistanceThresholdMeters < 0 {
		return fmt.Errorf("distance_threshold_meters must be non-negative, got %f", *c.DistanceThresholdMeters)
	}
	if c.HeadingThresholdDegrees != nil {
		if *c.HeadingThresholdDegrees < 0 || *c.HeadingThresholdDegrees > 180 {
			return fmt.Errorf("heading_threshold_degrees must be in [0,180], got %f", *c.HeadingThresholdDegrees)
		}
	}

	if c.IntervalLadder != nil {
		ladder := *c.IntervalLadder
		if len(ladder) == 0 {
			return fmt.Errorf("interval_ladder must not be empty")
		}
		var prev time.Duration
		for i, s := range ladder {
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid interval_ladder entry %q: %w", s, err)
			}
			if d <= 0 {
				return fmt.Errorf("interval_ladder entry %q must be positive", s)
			}
			if i > 0 && d <= prev {
				return fmt.Errorf("interval_ladder must be strictly ascending, %q follows %v", s, prev)
			}
			prev = d
		}
	}

	for name, v := range map[string]*string{
		"acquire_timeout": c.AcquireTimeout,
		"flush_timeout":   c.FlushTimeout,
		"cache_ttl":       c.CacheTTL,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	if c.SampleBufferSize != nil && *c.SampleBufferSize < 1 {
		return fmt.Errorf("sample_buffer_size must be at least 1, got %d", *c.SampleBufferSize)
	}

	return nil
}

// GetDistanceThresholdMeters returns the distance threshold or the default.
func (c *TrackingConfig) GetDistanceThresholdMeters() float64 {
	if c.DistanceThresholdMeters == nil {
		return 10 // default
	}
	return *c.DistanceThresholdMeters
}

// GetHeadingThresholdDegrees returns the heading threshold or the default.
func (c *TrackingConfig) GetHeadingThresholdDegrees() float64 {
	if c.HeadingThresholdDegrees == nil {
		return 15 // default
	}
	return *c.HeadingThresholdDegrees
}

// GetIntervalLadder parses and returns the backoff ladder.
func (c *TrackingConfig) GetIntervalLadder() []time.Duration {
	defaultLadder := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		960 * time.Second,
	}
	if c.IntervalLadder == nil {
		return defaultLadder
	}
	ladder := make([]time.Duration, 0, len(*c.IntervalLadder))
	for _, s := range *c.IntervalLadder {
		d, err := time.ParseDuration(s)
		if err != nil {
			return defaultLadder // default on parse error
		}
		ladder = append(ladder, d)
	}
	if len(ladder) == 0 {
		return defaultLadder
	}
	return ladder
}

// GetAcquireTimeout parses and returns the acquisition timeout.
func (c *TrackingConfig) GetAcquireTimeout() time.Duration {
	if c.AcquireTimeout == nil || *c.AcquireTimeout == "" {
		return 20 * time.Second // default
	}
	d, err := time.ParseDuration(*c.AcquireTimeout)
	if err != nil {
		return 20 * time.Second // default on parse error
	}
	return d
}

// GetSampleBufferSize returns the buffer cap or the default.
func (c *TrackingConfig) GetSampleBufferSize() int {
	if c.SampleBufferSize == nil {
		return 256 // default
	}
	return *c.SampleBufferSize
}

// GetFlushTimeout parses and returns the shutdown flush timeout.
func (c *TrackingConfig) GetFlushTimeout() time.Duration {
	if c.FlushTimeout == nil || *c.FlushTimeout == "" {
		return 3 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FlushTimeout)
	if err != nil {
		return 3 * time.Second // default on parse error
	}
	return d
}

// GetRecomputeSignificance returns the hardened-mode flag or the default.
func (c *TrackingConfig) GetRecomputeSignificance() bool {
	if c.RecomputeSignificance == nil {
		return false // default: trust the client's significance judgment
	}
	return *c.RecomputeSignificance
}

// GetCacheTTL parses and returns the read-cache TTL.
func (c *TrackingConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL == nil || *c.CacheTTL == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.CacheTTL)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetUnits returns the response distance unit or the default.
func (c *TrackingConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return "m" // default
	}
	return *c.Units
}

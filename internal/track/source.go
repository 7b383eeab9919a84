package track

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FixtureSource replays positions from a fixture file, one "lat,lon,accuracy"
// line per acquisition, cycling when it runs out. Used in dev mode the same
// way a mock serial feed replaces real sensor hardware.
type FixtureSource struct {
	mu      sync.Mutex
	samples []PositionSample
	next    int
}

// NewFixtureSource parses fixture data. Blank lines and lines starting with
// '#' are skipped.
func NewFixtureSource(data []byte) (*FixtureSource, error) {
	var samples []PositionSample
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("fixture line %d: want lat,lon,accuracy, got %q", lineNo, line)
		}
		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("fixture line %d: %w", lineNo, err)
			}
			vals[i] = v
		}
		samples = append(samples, PositionSample{
			Latitude:       vals[0],
			Longitude:      vals[1],
			AccuracyMeters: vals[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("fixture data contains no samples")
	}
	return &FixtureSource{samples: samples}, nil
}

// Acquire returns the next fixture sample stamped with the current time.
func (s *FixtureSource) Acquire(ctx context.Context) (PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return PositionSample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sample := s.samples[s.next%len(s.samples)]
	s.next++
	sample.CapturedAt = time.Now()
	return sample, nil
}

// ScriptedSource returns a fixed script of samples and errors in order, for
// driving the poller deterministically in tests.
type ScriptedSource struct {
	mu     sync.Mutex
	script []scriptStep
	next   int
}

type scriptStep struct {
	sample PositionSample
	err    error
}

// NewScriptedSource creates an empty script.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{}
}

// AddSample appends a successful acquisition to the script.
func (s *ScriptedSource) AddSample(sample PositionSample) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptStep{sample: sample})
	return s
}

// AddError appends a failing acquisition to the script.
func (s *ScriptedSource) AddError(err error) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptStep{err: err})
	return s
}

// Acquire pops the next scripted step. Past the end of the script it keeps
// returning the final step.
func (s *ScriptedSource) Acquire(ctx context.Context) (PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return PositionSample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return PositionSample{}, fmt.Errorf("scripted source is empty")
	}
	idx := s.next
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	} else {
		s.next++
	}
	step := s.script[idx]
	return step.sample, step.err
}

// Acquisitions returns how many steps have been consumed.
func (s *ScriptedSource) Acquisitions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

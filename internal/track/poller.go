package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crewtrace/crewtrace/internal/geo"
	"github.com/crewtrace/crewtrace/internal/monitoring"
	"github.com/crewtrace/crewtrace/internal/timeutil"
)

// Poller is the adaptive polling controller. While the subject is moving it
// samples at the base interval; while stationary it backs off through a fixed
// ladder of intervals. Any detected movement snaps the interval straight back
// to the base tier, because movement-onset latency matters more than backoff
// smoothness.
//
// The loop re-arms its timer only after the previous tick's work has settled,
// so two acquisitions never run concurrently even when one outlasts the
// interval.
type Poller struct {
	clock          timeutil.Clock
	source         Source
	sink           Sink
	thresholds     Thresholds
	ladder         []time.Duration
	acquireTimeout time.Duration
	bufferCap      int
	onError        func(error)

	mu       sync.Mutex
	tracking bool
	busy     bool
	tierIdx  int
	last     *storedFix
	buffer   []PositionSample
	cancel   context.CancelFunc
	done     chan struct{}
}

// storedFix is the last sample that was stored and transmitted, together
// with the heading it arrived on. The heading is only known from the second
// stored sample onward.
type storedFix struct {
	sample     PositionSample
	heading    float64
	hasHeading bool
}

// PollerOptions configures a Poller. Source and Sink are required; zero
// values elsewhere select defaults.
type PollerOptions struct {
	Clock          timeutil.Clock
	Source         Source
	Sink           Sink
	Thresholds     Thresholds
	IntervalLadder []time.Duration
	AcquireTimeout time.Duration
	BufferCap      int

	// OnError is invoked for acquisition failures, the only error class the
	// subject should see. May be nil.
	OnError func(error)
}

// NewPoller creates a Poller in the Idle state.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("poller requires a location source")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("poller requires a sink")
	}

	p := &Poller{
		clock:          opts.Clock,
		source:         opts.Source,
		sink:           opts.Sink,
		thresholds:     opts.Thresholds,
		ladder:         opts.IntervalLadder,
		acquireTimeout: opts.AcquireTimeout,
		bufferCap:      opts.BufferCap,
		onError:        opts.OnError,
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	if p.thresholds == (Thresholds{}) {
		p.thresholds = DefaultThresholds()
	}
	if len(p.ladder) == 0 {
		p.ladder = []time.Duration{
			60 * time.Second,
			120 * time.Second,
			240 * time.Second,
			480 * time.Second,
			960 * time.Second,
		}
	}
	if p.acquireTimeout <= 0 {
		p.acquireTimeout = 20 * time.Second
	}
	if p.bufferCap <= 0 {
		p.bufferCap = 256
	}
	if p.onError == nil {
		p.onError = func(err error) { monitoring.Logf("location acquisition failed: %v", err) }
	}
	return p, nil
}

// Start moves the poller from Idle to Active. It acquires one sample
// immediately; if that acquisition fails the poller stays Idle and the error
// is returned. On success the first sample is unconditionally significant
// and the loop begins at the base interval.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.tracking {
		p.mu.Unlock()
		return fmt.Errorf("already tracking")
	}
	p.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	sample, err := p.source.Acquire(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("initial acquisition: %w", err)
	}

	loopCtx, loopCancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.tracking = true
	p.tierIdx = 0
	p.last = &storedFix{sample: sample}
	p.appendBufferLocked(sample)
	p.cancel = loopCancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.transmit(ctx, Update{Sample: sample, Significant: true})

	// The timer is created before the loop goroutine starts so that a caller
	// driving a mock clock sees it registered as soon as Start returns.
	timer := p.clock.NewTimer(p.Interval())
	go p.loop(loopCtx, done, timer)
	return nil
}

// Stop cancels the polling loop deterministically and returns the poller to
// Idle. In-flight transmissions are not cancelled; buffered samples are kept
// for the shutdown flush.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.tracking {
		p.mu.Unlock()
		return
	}
	p.tracking = false
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	<-done
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ladder[p.tierIdx]
}

// Tracking reports whether the poller is Active.
func (p *Poller) Tracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracking
}

// DrainBuffer returns the buffered significant samples and clears the
// buffer. The shutdown path hands the result to Sink.SendBatch.
func (p *Poller) DrainBuffer() []PositionSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.buffer
	p.buffer = nil
	return out
}

func (p *Poller) loop(ctx context.Context, done chan struct{}, timer timeutil.Timer) {
	defer close(done)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C():
			p.tick(ctx)
			// Re-arm only after the tick settles so a slow acquisition can
			// never overlap the next one.
			timer.Reset(p.Interval())
		}
	}
}

// tick acquires one sample and applies the significance decision. A tick
// arriving while a previous one is still in flight is coalesced.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return
	}
	p.busy = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	sample, err := p.source.Acquire(acquireCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Surfaced to the subject; the interval is left where it was and the
		// loop keeps running.
		p.onError(err)
		return
	}

	p.mu.Lock()
	last := p.last

	if last == nil {
		// Nothing stored yet: unconditionally significant.
		p.last = &storedFix{sample: sample}
		p.appendBufferLocked(sample)
		p.tierIdx = 0
		p.mu.Unlock()
		p.transmit(ctx, Update{Sample: sample, Significant: true})
		return
	}

	distance := geo.DistanceMeters(
		last.sample.Latitude, last.sample.Longitude,
		sample.Latitude, sample.Longitude,
	)
	bearing := geo.BearingDegrees(
		last.sample.Latitude, last.sample.Longitude,
		sample.Latitude, sample.Longitude,
	)
	headingDelta := 0.0
	if last.hasHeading {
		headingDelta = geo.HeadingDelta(bearing, last.heading)
	}

	if !Significant(distance, headingDelta, p.thresholds) {
		// Stationary: climb the ladder, keep the stored sample, send nothing.
		if p.tierIdx < len(p.ladder)-1 {
			p.tierIdx++
		}
		p.mu.Unlock()
		return
	}

	p.last = &storedFix{sample: sample, heading: bearing, hasHeading: true}
	p.appendBufferLocked(sample)
	p.tierIdx = 0
	p.mu.Unlock()

	p.transmit(ctx, Update{
		Sample:              sample,
		DeltaDistanceMeters: distance,
		DeltaHeadingDegrees: headingDelta,
		Significant:         true,
	})
}

// transmit is fire-and-forget: failures are logged and dropped, and the next
// significant sample tries again independently.
func (p *Poller) transmit(ctx context.Context, u Update) {
	if err := p.sink.SendUpdate(ctx, u); err != nil {
		monitoring.Logf("location update dropped: %v", err)
	}
}

func (p *Poller) appendBufferLocked(sample PositionSample) {
	p.buffer = append(p.buffer, sample)
	if len(p.buffer) > p.bufferCap {
		p.buffer = p.buffer[len(p.buffer)-p.bufferCap:]
	}
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/crewtrace/crewtrace/internal/config"
	"github.com/crewtrace/crewtrace/internal/track"
)

// runAgent runs the tracking side: a location source feeding the adaptive
// poller, with significant updates forwarded to the ingestion server. On
// shutdown the buffered samples are flushed to the batch endpoint with a
// bounded timeout; the flush outcome is deliberately ignored.
func runAgent(ctx context.Context, env config.Env, cfg *config.TrackingConfig) {
	if env.ServerURL == "" {
		log.Fatal("CREWTRACE_SERVER_URL is required for the agent")
	}
	if env.SubjectToken == "" {
		log.Fatal("CREWTRACE_SUBJECT_TOKEN is required for the agent")
	}
	if env.SubjectID == "" {
		log.Fatal("CREWTRACE_SUBJECT_ID is required for the agent")
	}

	var source track.Source
	if env.SerialPort != "" {
		gps, err := track.OpenSerialNMEASource(env.SerialPort)
		if err != nil {
			log.Fatalf("failed to open GPS port: %v", err)
		}
		defer gps.Close()
		source = gps
		log.Printf("using GPS receiver on %s", env.SerialPort)
	} else {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		source, err = track.NewFixtureSource(data)
		if err != nil {
			log.Fatalf("failed to parse fixtures: %v", err)
		}
		log.Printf("using fixture source %s", *fixtures)
	}

	sink := track.NewHTTPTransmitter(nil, env.ServerURL, env.SubjectToken, env.SubjectID)

	poller, err := track.NewPoller(track.PollerOptions{
		Source: source,
		Sink:   sink,
		Thresholds: track.Thresholds{
			DistanceMeters: cfg.GetDistanceThresholdMeters(),
			HeadingDegrees: cfg.GetHeadingThresholdDegrees(),
		},
		IntervalLadder: cfg.GetIntervalLadder(),
		AcquireTimeout: cfg.GetAcquireTimeout(),
		BufferCap:      cfg.GetSampleBufferSize(),
		OnError: func(err error) {
			log.Printf("location acquisition failed: %v", err)
		},
	})
	if err != nil {
		log.Fatalf("failed to create poller: %v", err)
	}

	if err := poller.Start(ctx); err != nil {
		log.Fatalf("failed to start tracking: %v", err)
	}
	log.Printf("tracking started, base interval %v", poller.Interval())

	<-ctx.Done()
	poller.Stop()
	log.Println("tracking stopped, flushing buffered samples...")

	samples := poller.DrainBuffer()
	if len(samples) > 0 {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.GetFlushTimeout())
		defer cancel()
		if err := sink.SendBatch(flushCtx, samples); err != nil {
			log.Printf("batch flush failed for %d samples: %v", len(samples), err)
		} else {
			log.Printf("flushed %d buffered samples", len(samples))
		}
	}
	log.Printf("Graceful shutdown complete")
}

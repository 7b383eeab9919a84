package track

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/crewtrace/crewtrace/internal/httputil"
)

func testSample() PositionSample {
	return PositionSample{
		Latitude:       14.6349,
		Longitude:      -90.5069,
		AccuracyMeters: 8,
		CapturedAt:     time.UnixMilli(1700000000000),
	}
}

func TestSendUpdateWireFormat(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusOK, `{"stored":true}`)

	tx := NewHTTPTransmitter(client, "http://site-server:8080/", "tok-a", "worker-1")
	err := tx.SendUpdate(context.Background(), Update{
		Sample:              testSample(),
		DeltaDistanceMeters: 22.5,
		DeltaHeadingDegrees: 3,
		Significant:         true,
	})
	if err != nil {
		t.Fatalf("SendUpdate: %v", err)
	}

	req := client.Request(0)
	if req.URL.String() != "http://site-server:8080/api/location/update" {
		t.Errorf("url = %s", req.URL)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok-a" {
		t.Errorf("auth header = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(client.RequestBody(0), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["latitude"] != 14.6349 || body["is_significant"] != true {
		t.Errorf("body = %v", body)
	}
	if body["timestamp"] != float64(1700000000000) {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
	if body["delta_distance"] != 22.5 {
		t.Errorf("delta_distance = %v", body["delta_distance"])
	}
}

func TestSendUpdateRejectedStatus(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusInternalServerError, `{"error":"persistence failure"}`)

	tx := NewHTTPTransmitter(client, "http://site-server", "tok", "worker-1")
	if err := tx.SendUpdate(context.Background(), Update{Sample: testSample(), Significant: true}); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestSendUpdateTransportError(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddErrorResponse(errors.New("connection refused"))

	tx := NewHTTPTransmitter(client, "http://site-server", "tok", "worker-1")
	if err := tx.SendUpdate(context.Background(), Update{Sample: testSample(), Significant: true}); err == nil {
		t.Error("expected transport error")
	}
}

func TestSendBatchFormatAndSubject(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	tx := NewHTTPTransmitter(client, "http://site-server", "tok", "worker-7")

	samples := []PositionSample{testSample(), testSample()}
	if err := tx.SendBatch(context.Background(), samples); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}

	req := client.Request(0)
	if req.URL.Path != "/api/location/batch" {
		t.Errorf("path = %s", req.URL.Path)
	}

	var body struct {
		Locations []struct {
			SubjectID string  `json:"subject_id"`
			Latitude  float64 `json:"latitude"`
		} `json:"locations"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(client.RequestBody(0), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Locations) != 2 {
		t.Fatalf("locations = %d, want 2", len(body.Locations))
	}
	for _, loc := range body.Locations {
		if loc.SubjectID != "worker-7" {
			t.Errorf("subject = %q", loc.SubjectID)
		}
	}
	if body.Timestamp == 0 {
		t.Error("batch timestamp missing")
	}
}

func TestSendBatchIgnoresResponseStatus(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusBadGateway, "")

	tx := NewHTTPTransmitter(client, "http://site-server", "tok", "worker-1")
	// Fire-and-forget: a bad status is logged, not returned.
	if err := tx.SendBatch(context.Background(), []PositionSample{testSample()}); err != nil {
		t.Errorf("SendBatch returned %v, want nil", err)
	}
}

func TestSendBatchEmptyIsNoop(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	tx := NewHTTPTransmitter(client, "http://site-server", "tok", "worker-1")

	if err := tx.SendBatch(context.Background(), nil); err != nil {
		t.Errorf("SendBatch(nil) = %v", err)
	}
	if client.RequestCount() != 0 {
		t.Error("empty batch should not hit the network")
	}
}

package track

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crewtrace/crewtrace/internal/httputil"
	"github.com/crewtrace/crewtrace/internal/monitoring"
)

// HTTPTransmitter delivers updates to the ingestion server over HTTP,
// authenticating with the subject's bearer token.
type HTTPTransmitter struct {
	client    httputil.HTTPClient
	baseURL   string
	token     string
	subjectID string
}

// NewHTTPTransmitter creates a transmitter for the given server. A nil
// client falls back to a standard one.
func NewHTTPTransmitter(client httputil.HTTPClient, baseURL, token, subjectID string) *HTTPTransmitter {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPTransmitter{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		subjectID: subjectID,
	}
}

// updateRequest is the wire body of POST /api/location/update.
type updateRequest struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Accuracy      float64 `json:"accuracy"`
	Timestamp     int64   `json:"timestamp"`
	DeltaDistance float64 `json:"delta_distance"`
	DeltaHeading  float64 `json:"delta_heading"`
	IsSignificant bool    `json:"is_significant"`
}

// batchRequest is the wire body of POST /api/location/batch.
type batchRequest struct {
	Locations []batchLocation `json:"locations"`
	Timestamp int64           `json:"timestamp"`
}

type batchLocation struct {
	SubjectID string  `json:"subject_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// SendUpdate posts a single update and fails on any non-2xx status, so the
// caller can log the drop.
func (t *HTTPTransmitter) SendUpdate(ctx context.Context, u Update) error {
	body := updateRequest{
		Latitude:      u.Sample.Latitude,
		Longitude:     u.Sample.Longitude,
		Accuracy:      u.Sample.AccuracyMeters,
		Timestamp:     u.Sample.CapturedAt.UnixMilli(),
		DeltaDistance: u.DeltaDistanceMeters,
		DeltaHeading:  u.DeltaHeadingDegrees,
		IsSignificant: u.Significant,
	}

	resp, err := t.post(ctx, "/api/location/update", body)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("update rejected: status %d", resp.StatusCode)
	}
	return nil
}

// SendBatch posts buffered samples to the batch endpoint. The delivery is
// best-effort: the response status is logged but never returned as an error,
// because by the time this runs nothing can act on it.
func (t *HTTPTransmitter) SendBatch(ctx context.Context, samples []PositionSample) error {
	if len(samples) == 0 {
		return nil
	}

	body := batchRequest{Timestamp: time.Now().UnixMilli()}
	for _, s := range samples {
		body.Locations = append(body.Locations, batchLocation{
			SubjectID: t.subjectID,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  s.AccuracyMeters,
			Timestamp: s.CapturedAt.UnixMilli(),
		})
	}

	resp, err := t.post(ctx, "/api/location/batch", body)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		monitoring.Logf("batch flush answered status %d for %d samples", resp.StatusCode, len(samples))
	}
	return nil
}

func (t *HTTPTransmitter) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	return t.client.Do(req)
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

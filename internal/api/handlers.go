package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/crewtrace/crewtrace/internal/db"
	"github.com/crewtrace/crewtrace/internal/geo"
	"github.com/crewtrace/crewtrace/internal/httputil"
	"github.com/crewtrace/crewtrace/internal/monitoring"
	"github.com/crewtrace/crewtrace/internal/track"
	"github.com/crewtrace/crewtrace/internal/units"
)

// locationUpdateRequest is the body of POST /api/location/update.
type locationUpdateRequest struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Accuracy      float64 `json:"accuracy"`
	Timestamp     int64   `json:"timestamp"`
	DeltaDistance float64 `json:"delta_distance"`
	DeltaHeading  float64 `json:"delta_heading"`
	IsSignificant bool    `json:"is_significant"`
}

type locationUpdateResponse struct {
	Stored bool `json:"stored"`
}

// batchUpdateRequest is the body of POST /api/location/batch.
type batchUpdateRequest struct {
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

// currentPositionResponse is the body of GET /api/location/current. The
// delta distance is converted to the requested units; coordinates stay in
// degrees regardless.
type currentPositionResponse struct {
	SubjectID     string  `json:"subject_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Accuracy      float64 `json:"accuracy"`
	Timestamp     int64   `json:"timestamp"`
	DeltaDistance float64 `json:"delta_distance"`
	DeltaHeading  float64 `json:"delta_heading"`
	Units         string  `json:"units"`
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	subjectID, ok := s.auth.Authenticate(r)
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	var req locationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if !validCoordinates(req.Latitude, req.Longitude) {
		httputil.BadRequest(w, "latitude/longitude out of range")
		return
	}

	significant := req.IsSignificant
	deltaDistance := req.DeltaDistance
	if s.cfg.GetRecomputeSignificance() {
		// Hardened mode: re-derive the distance delta against the last
		// stored row instead of trusting the client. The heading delta
		// cannot be reconstructed from a single stored row, so the
		// client's value is kept for the heading leg of the check.
		last, err := s.db.GetPosition(r.Context(), subjectID)
		if err != nil {
			monitoring.Logf("recompute lookup failed for %s: %v", subjectID, err)
			httputil.InternalServerError(w, "failed to store update")
			return
		}
		if last == nil {
			significant = true
			deltaDistance = 0
		} else {
			deltaDistance = geo.DistanceMeters(last.Latitude, last.Longitude, req.Latitude, req.Longitude)
			significant = track.Significant(deltaDistance, req.DeltaHeading, s.thresholds())
		}
	}

	if !significant {
		httputil.WriteJSONOK(w, locationUpdateResponse{Stored: false})
		return
	}

	pos := &db.SubjectPosition{
		SubjectID:       subjectID,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		AccuracyMeters:  req.Accuracy,
		ObservedAtMs:    req.Timestamp,
		DeltaDistanceM:  deltaDistance,
		DeltaHeadingDeg: req.DeltaHeading,
	}
	if err := s.db.StoreSignificantUpdate(r.Context(), pos); err != nil {
		monitoring.Logf("store update failed for %s: %v", subjectID, err)
		httputil.InternalServerError(w, "failed to store update")
		return
	}
	s.cache.Invalidate(subjectID)

	httputil.WriteJSONOK(w, locationUpdateResponse{Stored: true})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	subjectID, ok := s.auth.Authenticate(r)
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	unit := s.cfg.GetUnits()
	if q := r.URL.Query().Get("units"); q != "" {
		if !units.IsValid(q) {
			httputil.BadRequest(w, "invalid units, must be one of: "+units.GetValidUnitsString())
			return
		}
		unit = q
	}

	pos, cached := s.cache.Get(subjectID)
	if !cached {
		var err error
		pos, err = s.db.GetPosition(r.Context(), subjectID)
		if err != nil {
			monitoring.Logf("position lookup failed for %s: %v", subjectID, err)
			httputil.InternalServerError(w, "failed to load position")
			return
		}
		s.cache.Put(subjectID, pos)
	}
	if pos == nil {
		httputil.NotFound(w, "no position stored")
		return
	}

	httputil.WriteJSONOK(w, currentPositionResponse{
		SubjectID:     pos.SubjectID,
		Latitude:      pos.Latitude,
		Longitude:     pos.Longitude,
		Accuracy:      pos.AccuracyMeters,
		Timestamp:     pos.ObservedAtMs,
		DeltaDistance: units.ConvertDistance(pos.DeltaDistanceM, unit),
		DeltaHeading:  pos.DeltaHeadingDeg,
		Units:         unit,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if _, ok := s.auth.Authenticate(r); !ok {
		httputil.Unauthorized(w)
		return
	}

	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}

	positions := make([]db.SubjectPosition, 0, len(req.Locations))
	for _, loc := range req.Locations {
		positions = append(positions, db.SubjectPosition{
			SubjectID:      loc.SubjectID,
			Latitude:       loc.Latitude,
			Longitude:      loc.Longitude,
			AccuracyMeters: loc.Accuracy,
			ObservedAtMs:   loc.Timestamp,
		})
	}

	result := s.db.ApplyBatch(r.Context(), positions)
	monitoring.Logf("batch flush: processed=%d successful=%d failed=%d",
		result.Processed, result.Successful, result.Failed)

	for _, loc := range req.Locations {
		s.cache.Invalidate(loc.SubjectID)
	}

	httputil.WriteJSONOK(w, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	subjectID, ok := s.auth.Authenticate(r)
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	days := 1
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'days' parameter")
			return
		}
		days = parsed
	}

	since := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	stats, err := s.db.MovementStatsSince(r.Context(), subjectID, since, 0)
	if err != nil {
		monitoring.Logf("movement stats failed for %s: %v", subjectID, err)
		httputil.InternalServerError(w, "failed to compute stats")
		return
	}

	httputil.WriteJSONOK(w, stats)
}

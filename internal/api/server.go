package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/crewtrace/crewtrace/internal/config"
	"github.com/crewtrace/crewtrace/internal/db"
	"github.com/crewtrace/crewtrace/internal/timeutil"
	"github.com/crewtrace/crewtrace/internal/track"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server is the ingestion HTTP surface: the single-update endpoint, the
// current-position read path with its TTL cache, the batch flush endpoint,
// and the movement stats and chart pages.
type Server struct {
	db    *db.DB
	auth  Authenticator
	cfg   *config.TrackingConfig
	cache *positionCache
	clock timeutil.Clock
}

// NewServer wires the handlers over the given store, authenticator and
// tuning config. A nil config uses all defaults.
func NewServer(database *db.DB, auth Authenticator, cfg *config.TrackingConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyTrackingConfig()
	}
	clock := timeutil.RealClock{}
	return &Server{
		db:    database,
		auth:  auth,
		cfg:   cfg,
		cache: newPositionCache(clock, cfg.GetCacheTTL()),
		clock: clock,
	}
}

// thresholds returns the configured significance cutoffs.
func (s *Server) thresholds() track.Thresholds {
	return track.Thresholds{
		DistanceMeters: s.cfg.GetDistanceThresholdMeters(),
		HeadingDegrees: s.cfg.GetHeadingThresholdDegrees(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table for the ingestion API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/location/update", s.handleUpdate)
	mux.HandleFunc("/api/location/current", s.handleCurrent)
	mux.HandleFunc("/api/location/batch", s.handleBatch)
	mux.HandleFunc("/api/location/stats", s.handleStats)
	mux.HandleFunc("/charts/movement", s.handleMovementChart)
	return mux
}

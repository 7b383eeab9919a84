package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/crewtrace/crewtrace/internal/geo"
	"github.com/crewtrace/crewtrace/internal/httputil"
)

// handleMovementChart renders a quick line chart (HTML) of a subject's step
// distances from its recent audit trail using go-echarts. This is a
// debugging-only endpoint to eyeball movement without a frontend.
// Query params:
//   - subject_id (required)
//   - days (optional; default 7)
func (s *Server) handleMovementChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		httputil.BadRequest(w, "subject_id is required")
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}

	since := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	entries, err := s.db.AuditTrail(r.Context(), subjectID, since, 500)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load audit trail: %v", err))
		return
	}
	if len(entries) < 2 {
		httputil.NotFound(w, "not enough audit entries to chart")
		return
	}

	labels := make([]string, 0, len(entries)-1)
	steps := make([]opts.LineData, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		d := geo.DistanceMeters(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		labels = append(labels, time.UnixMilli(cur.CreatedAtMs).UTC().Format("01-02 15:04"))
		steps = append(steps, opts.LineData{Value: d})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Movement", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Step Distance",
			Subtitle: fmt.Sprintf("subject=%s entries=%d window=%dd", subjectID, len(entries), days),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "meters"}),
	)
	line.SetXAxis(labels).
		AddSeries("step distance", steps,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

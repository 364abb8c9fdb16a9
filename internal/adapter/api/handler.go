package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// Response headers carried alongside a PNG raster.
const (
	headerRun          = "X-Grid-Run"
	headerForecastHour = "X-Grid-Forecast-Hour"
	headerValidTime    = "X-Grid-Valid-Time"
	headerVariable     = "X-Grid-Variable"
	headerLegend       = "X-Grid-Legend"
	headerBounds       = "X-Grid-Bounds"
)

var exposedHeaders = []string{headerRun, headerForecastHour, headerValidTime, headerVariable, headerLegend, headerBounds}

const (
	// maxRunsLimit caps /v1/runs.
	maxRunsLimit = 500
	// maxSamplePoints caps repeated ?point= values on /sample.
	maxSamplePoints = 100
)

// Handler handles the grid REST endpoints.
type Handler struct {
	renderer Renderer
	history  RunHistory
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(r Renderer, history RunHistory, logger *slog.Logger) *Handler {
	return &Handler{renderer: r, history: history, logger: logger}
}

type variableInfo struct {
	Key             string         `json:"key"`
	Name            string         `json:"name"`
	Unit            string         `json:"unit"`
	DisplayUnit     string         `json:"display_unit"`
	MinForecastHour int            `json:"min_forecast_hour"`
	Display         domain.Display `json:"display"`
}

type modelInfo struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Layout     domain.Layout    `json:"layout"`
	Lattice    domain.Lattice   `json:"lattice"`
	RangeHours int              `json:"range_hours"`
	Variables  []variableInfo   `json:"variables"`
	LatestRun  *domain.ModelRun `json:"latest_run,omitempty"`
}

// ListModels handles GET /v1/models.
func (h *Handler) ListModels(c *gin.Context) {
	models := h.renderer.Models()
	out := make([]modelInfo, len(models))
	for i, m := range models {
		info := modelInfo{
			Key:        m.Key,
			Name:       m.Name,
			Layout:     m.Layout,
			Lattice:    m.Lattice,
			RangeHours: m.RangeHours(),
			Variables:  make([]variableInfo, len(m.Variables)),
		}
		for j, v := range m.Variables {
			info.Variables[j] = variableInfo{
				Key:             v.Key,
				Name:            v.Name,
				Unit:            v.Unit,
				DisplayUnit:     v.DisplayUnit(),
				MinForecastHour: v.MinForecastHour,
				Display:         v.Display,
			}
		}
		if run, ok := h.renderer.LatestRun(m.Key); ok {
			info.LatestRun = &run
		}
		out[i] = info
	}
	c.JSON(http.StatusOK, gin.H{"models": out, "count": len(out)})
}

// GetRun handles GET /v1/models/:model/run.
func (h *Handler) GetRun(c *gin.Context) {
	s, err := h.renderer.NewSession(c.Request.Context(), c.Param("model"))
	if err != nil {
		writeError(c, err)
		return
	}
	state := s.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"model":         state.Model,
		"run":           state.Run,
		"range_start":   state.RangeStart,
		"range_end":     state.RangeEnd,
		"initial_time":  state.Timestamp,
		"forecast_hour": state.ForecastHour,
		"variable":      state.Variable,
	})
}

// GetRaster handles GET /v1/models/:model/raster and responds with a PNG.
func (h *Handler) GetRaster(c *gin.Context) {
	s, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}

	result, err := h.renderer.RenderShared(c.Request.Context(), s)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := result.EncodePNG(&buf); err != nil {
		writeError(c, fmt.Errorf("encode png: %w", err))
		return
	}

	legend, err := json.Marshal(result.Legend)
	if err != nil {
		writeError(c, fmt.Errorf("encode legend: %w", err))
		return
	}
	c.Header(headerRun, result.Run.String())
	c.Header(headerForecastHour, strconv.Itoa(result.ForecastHour))
	c.Header(headerValidTime, result.Run.At(result.ForecastHour).Format(time.RFC3339))
	c.Header(headerVariable, result.Variable)
	c.Header(headerLegend, string(legend))
	if b := result.Bounds; b != nil {
		c.Header(headerBounds, fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East))
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// GetLegend handles GET /v1/models/:model/legend. Variables without a fixed
// display range report a dynamic legend.
func (h *Handler) GetLegend(c *gin.Context) {
	m, err := h.renderer.Model(c.Param("model"))
	if err != nil {
		writeError(c, err)
		return
	}
	v := m.DefaultVariable()
	if key := c.Query("variable"); key != "" {
		if v, err = m.Variable(key); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, domain.BuildLegend(v, math.NaN(), math.NaN()))
}

// GetSample handles GET /v1/models/:model/sample. A single location is
// given with lat and lon; repeated point=lat,lon values sample several
// locations against one fetched grid.
func (h *Handler) GetSample(c *gin.Context) {
	points, batch, err := parsePoints(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	s, ok := h.sessionFromQuery(c)
	if !ok {
		return
	}
	run, v, fh := s.Request()

	samples, err := h.renderer.Sample(c.Request.Context(), s.Model(), run, v, fh, points)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"model":         s.Model().Key,
		"run":           run,
		"variable":      v.Key,
		"forecast_hour": fh,
		"valid_time":    run.At(fh),
	}
	if batch {
		body["samples"] = samples
		c.JSON(http.StatusOK, body)
		return
	}
	if len(samples) != 1 || !samples[0].Found {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no data at location"})
		return
	}
	body["sample"] = samples[0].Sample
	c.JSON(http.StatusOK, body)
}

// parsePoints reads repeated ?point=lat,lon values, or a single ?lat=&lon=.
// batch reports the former.
func parsePoints(c *gin.Context) (points []domain.LatLon, batch bool, err error) {
	pairs, batch := c.GetQueryArray("point")
	if !batch {
		p, err := parseLatLon(c.Query("lat"), c.Query("lon"))
		if err != nil {
			return nil, false, err
		}
		return []domain.LatLon{p}, false, nil
	}

	if len(pairs) > maxSamplePoints {
		return nil, true, fmt.Errorf("at most %d points per request", maxSamplePoints)
	}
	points = make([]domain.LatLon, 0, len(pairs))
	for _, pair := range pairs {
		lat, lon, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, true, fmt.Errorf("invalid point %q (expected lat,lon)", pair)
		}
		p, err := parseLatLon(lat, lon)
		if err != nil {
			return nil, true, fmt.Errorf("point %q: %w", pair, err)
		}
		points = append(points, p)
	}
	return points, true, nil
}

func parseLatLon(latStr, lonStr string) (domain.LatLon, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.LatLon{}, errors.New("invalid latitude")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 360 {
		return domain.LatLon{}, errors.New("invalid longitude")
	}
	return domain.LatLon{Lat: lat, Lon: lon}, nil
}

// ListRuns handles GET /v1/runs.
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run history is not enabled"})
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxRunsLimit {
			badRequest(c, fmt.Sprintf("limit must be between 1 and %d", maxRunsLimit))
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(c.Request.Context(), c.Query("model"), limit)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// sessionFromQuery builds a one-shot session from ?variable= and ?time=.
// One-shot sessions are rendered under the model's shared guard.
// It writes the error response itself and returns false on failure.
func (h *Handler) sessionFromQuery(c *gin.Context) (*domain.Session, bool) {
	var at time.Time
	if ts := c.Query("time"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid time (expected RFC3339): %v", err))
			return nil, false
		}
		at = t.UTC()
	}

	s, err := h.renderer.NewSession(c.Request.Context(), c.Param("model"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if key := c.Query("variable"); key != "" {
		if _, err := s.Apply(domain.SetVariable{Key: key}); err != nil {
			writeError(c, err)
			return nil, false
		}
	}
	if !at.IsZero() {
		if _, err := s.Apply(domain.SetTimestamp{Time: at}); err != nil {
			writeError(c, err)
			return nil, false
		}
	}
	return s, true
}

package domain

import "time"

// Event types published to the event stream.
const (
	EventRunDiscovered   = "run_discovered"
	EventRenderCompleted = "render_completed"
)

// Render outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// RunDiscovered is emitted when a newer run is located for a model.
type RunDiscovered struct {
	Model        string    `json:"model"`
	RunDate      string    `json:"run_date"`
	Cycle        int       `json:"cycle"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewRunDiscovered builds the event for run using the active clock.
func NewRunDiscovered(model string, run ModelRun) RunDiscovered {
	return RunDiscovered{
		Model:        model,
		RunDate:      run.Date.Format("2006-01-02"),
		Cycle:        run.Cycle,
		DiscoveredAt: Now(),
	}
}

// RenderCompleted records the outcome of one render.
type RenderCompleted struct {
	Model        string    `json:"model"`
	RunDate      string    `json:"run_date"`
	Cycle        int       `json:"cycle"`
	Variable     string    `json:"variable"`
	ForecastHour int       `json:"forecast_hour"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Outcome      string    `json:"outcome"`
	Error        string    `json:"error,omitempty"`
	RenderedAt   time.Time `json:"rendered_at"`
}

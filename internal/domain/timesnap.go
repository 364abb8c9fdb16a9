package domain

import (
	"math"
	"time"
)

// Lattice describes the valid forecast hours of a model: every FineStep hours
// up to and including Crossover, every CoarseStep hours after it.
type Lattice struct {
	FineStep   int `json:"fine_step"`
	CoarseStep int `json:"coarse_step"`
	Crossover  int `json:"crossover"`
}

// StepAt is the lattice spacing that applies at forecast hour fh.
func (l Lattice) StepAt(fh int) int {
	if fh <= l.Crossover {
		return l.FineStep
	}
	return l.CoarseStep
}

// Contains reports whether fh lies on the lattice.
func (l Lattice) Contains(fh int) bool {
	return fh%l.StepAt(fh) == 0
}

// SnapHour rounds a fractional forecast hour onto the lattice.
func (l Lattice) SnapHour(fh float64) int {
	if fh <= float64(l.Crossover) {
		return snapToStep(fh, l.FineStep)
	}
	return snapToStep(fh, l.CoarseStep)
}

// Next is the lattice hour after fh. fh must already be on the lattice.
func (l Lattice) Next(fh int) int {
	if fh < l.Crossover {
		return fh + l.FineStep
	}
	return fh + l.CoarseStep
}

// Prev is the lattice hour before fh. fh must already be on the lattice.
func (l Lattice) Prev(fh int) int {
	if fh <= l.Crossover {
		return fh - l.FineStep
	}
	return fh - l.CoarseStep
}

func snapToStep(fh float64, step int) int {
	return int(jsRound(fh/float64(step))) * step
}

// jsRound rounds half toward positive infinity so negative offsets snap the
// same way as positive ones.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

// TimeSnapper keeps timestamps on a model's forecast-hour lattice for one run.
type TimeSnapper struct {
	model Model
	run   ModelRun
}

// NewTimeSnapper binds a model's lattice rules to a run.
func NewTimeSnapper(m Model, run ModelRun) TimeSnapper {
	return TimeSnapper{model: m, run: run}
}

// Start is the run epoch, the first valid timestamp.
func (s TimeSnapper) Start() time.Time {
	return s.run.Epoch()
}

// End is the last valid timestamp of the forecast range.
func (s TimeSnapper) End() time.Time {
	return s.model.RangeEnd(s.run)
}

// Snap returns the lattice timestamp nearest to t. Snap is idempotent.
func (s TimeSnapper) Snap(t time.Time) time.Time {
	return s.run.At(s.model.Lattice.SnapHour(s.run.ForecastHours(t)))
}

// ForecastHour returns the whole forecast hour of t after snapping.
func (s TimeSnapper) ForecastHour(t time.Time) int {
	return s.model.Lattice.SnapHour(s.run.ForecastHours(t))
}

// Clamp limits t to the run's forecast range.
func (s TimeSnapper) Clamp(t time.Time) time.Time {
	if t.Before(s.Start()) {
		return s.Start()
	}
	if t.After(s.End()) {
		return s.End()
	}
	return t
}

// Normalize clamps t into range and snaps it.
func (s TimeSnapper) Normalize(t time.Time) time.Time {
	return s.Clamp(s.Snap(s.Clamp(t)))
}

// Step moves t one lattice point forward (direction > 0) or backward
// (direction < 0), re-snapping after the arithmetic.
func (s TimeSnapper) Step(t time.Time, direction int) time.Time {
	fh := s.ForecastHour(t)
	switch {
	case direction > 0:
		fh = s.model.Lattice.Next(fh)
	case direction < 0:
		fh = s.model.Lattice.Prev(fh)
	}
	return s.Normalize(s.run.At(fh))
}

// ApplyMinHour moves t up to v's first available forecast hour, then snaps.
func (s TimeSnapper) ApplyMinHour(t time.Time, v Variable) time.Time {
	fh := int(jsRound(s.run.ForecastHours(t)))
	if fh < v.MinForecastHour {
		t = s.run.At(v.MinForecastHour)
	}
	return s.Normalize(t)
}

// Initial is the starting timestamp for a viewer: the snapped current time
// once the run has started, clamped to the range end.
func (s TimeSnapper) Initial(now time.Time) time.Time {
	t := s.Start()
	if now.After(t) {
		t = s.Snap(now)
	}
	if t.After(s.End()) {
		t = s.End()
	}
	return t
}

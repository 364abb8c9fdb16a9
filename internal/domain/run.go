package domain

import (
	"fmt"
	"time"
)

// ModelRun identifies one published forecast cycle.
type ModelRun struct {
	Date  time.Time `json:"date"`  // UTC midnight of the issue date
	Cycle int       `json:"cycle"` // issue hour, 0-23
}

// NewModelRun truncates t to its UTC calendar date and pairs it with cycle.
func NewModelRun(t time.Time, cycle int) ModelRun {
	t = t.UTC()
	return ModelRun{
		Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Cycle: cycle,
	}
}

// IsZero reports whether the run has not been set.
func (r ModelRun) IsZero() bool {
	return r.Date.IsZero()
}

// Epoch is the run's issue time: date plus cycle hours.
func (r ModelRun) Epoch() time.Time {
	return r.Date.Add(time.Duration(r.Cycle) * time.Hour)
}

// DateString formats the issue date as YYYYMMDD.
func (r ModelRun) DateString() string {
	return r.Date.Format("20060102")
}

// CycleString formats the cycle as a two-digit hour.
func (r ModelRun) CycleString() string {
	return fmt.Sprintf("%02d", r.Cycle)
}

func (r ModelRun) String() string {
	return fmt.Sprintf("%s %sZ", r.Date.Format("2006-01-02"), r.CycleString())
}

// ForecastHours returns (t - epoch) in fractional hours.
func (r ModelRun) ForecastHours(t time.Time) float64 {
	return float64(t.Sub(r.Epoch())) / float64(time.Hour)
}

// At returns the absolute time of forecast hour fh.
func (r ModelRun) At(fh int) time.Time {
	return r.Epoch().Add(time.Duration(fh) * time.Hour)
}

// Equal reports whether r and other name the same run.
func (r ModelRun) Equal(other ModelRun) bool {
	return r.Cycle == other.Cycle && r.Date.Equal(other.Date)
}

package domain

import (
	"fmt"
	"time"
)

// Layout is the native arrangement of a model's grid.
type Layout string

const (
	// LayoutGlobal is a regular lat/lon grid with longitude running 0-360.
	LayoutGlobal Layout = "global"
	// LayoutLambert is a regional grid on a Lambert Conformal Conic projection.
	LayoutLambert Layout = "lambert"
)

// Family selects the bucket layout used to build object paths.
type Family string

const (
	FamilyGFS  Family = "gfs"
	FamilyHRRR Family = "hrrr"
)

// ProbePlan controls how RunLocator walks candidate runs.
type ProbePlan struct {
	// Lead is added to the current time before the first candidate.
	Lead time.Duration
	// Iterations bounds the number of candidate dates (or hours) tried.
	Iterations int
	// Stride is subtracted from the candidate time after each iteration.
	Stride time.Duration
	// Cycles lists cycle hours to try per candidate date, most recent first.
	// Empty means the candidate time's own hour is the cycle.
	Cycles []int
	// CheckHour is the far-horizon forecast hour whose index confirms a run.
	CheckHour int
}

// Model is one forecast product configuration. Everything that differs
// between the GFS resolutions and HRRR lives here as data.
type Model struct {
	Key        string        `json:"key"`
	Name       string        `json:"name"`
	Family     Family        `json:"family"`
	BucketURL  string        `json:"-"`
	Product    string        `json:"product"`
	HourDigits int           `json:"-"`
	Lattice    Lattice       `json:"lattice"`
	Range      time.Duration `json:"-"`
	Probe      ProbePlan     `json:"-"`
	Layout     Layout        `json:"layout"`
	Projection *LambertGrid  `json:"-"`
	Alpha      uint8         `json:"-"`
	Variables  []Variable    `json:"variables"`
}

// ObjectPath is the bucket-relative key of the GRIB2 object for run at forecast hour fh.
func (m Model) ObjectPath(run ModelRun, fh int) string {
	hour := fmt.Sprintf("%0*d", m.HourDigits, fh)
	switch m.Family {
	case FamilyHRRR:
		return fmt.Sprintf("hrrr.%s/conus/hrrr.t%sz.%sf%s.grib2", run.DateString(), run.CycleString(), m.Product, hour)
	default:
		return fmt.Sprintf("gfs.%s/%s/atmos/gfs.t%sz.%s.f%s", run.DateString(), run.CycleString(), run.CycleString(), m.Product, hour)
	}
}

// IndexPath is the sibling .idx text object of ObjectPath.
func (m Model) IndexPath(run ModelRun, fh int) string {
	return m.ObjectPath(run, fh) + ".idx"
}

// Variable looks up a variable by key.
func (m Model) Variable(key string) (Variable, error) {
	for _, v := range m.Variables {
		if v.Key == key {
			return v, nil
		}
	}
	return Variable{}, fmt.Errorf("%w: %q for model %s", ErrUnknownVariable, key, m.Key)
}

// DefaultVariable is the first configured variable.
func (m Model) DefaultVariable() Variable {
	return m.Variables[0]
}

// RangeEnd is the last valid timestamp for run.
func (m Model) RangeEnd(run ModelRun) time.Time {
	return run.Epoch().Add(m.Range)
}

// RangeHours is the forecast range in whole hours.
func (m Model) RangeHours() int {
	return int(m.Range / time.Hour)
}

package domain

import (
	"fmt"
	"math"
)

// RGB is an 8-bit colour triple.
type RGB [3]uint8

// ColorStop anchors a colour to a value in the scale's native unit.
type ColorStop struct {
	Value float64 `json:"value"`
	RGB   RGB     `json:"rgb"`
}

// Threshold marks values that render as fully transparent.
type Threshold struct {
	Value     float64 `json:"value"`
	Inclusive bool    `json:"inclusive"` // true: v <= Value is transparent; false: v < Value
}

// ColorScale maps values onto colours by linear interpolation between stops.
type ColorScale struct {
	Stops       []ColorStop `json:"stops"`
	Transparent *Threshold  `json:"transparent,omitempty"`
}

// Validate checks that there are at least two stops with strictly increasing values.
func (s ColorScale) Validate() error {
	if len(s.Stops) < 2 {
		return fmt.Errorf("color scale needs at least two stops, got %d", len(s.Stops))
	}
	for i := 1; i < len(s.Stops); i++ {
		if !(s.Stops[i].Value > s.Stops[i-1].Value) {
			return fmt.Errorf("color stop %d (%g) does not follow %g", i, s.Stops[i].Value, s.Stops[i-1].Value)
		}
	}
	return nil
}

// ColorAt returns the colour for v. ok is false when v is NaN or falls under
// the transparency threshold; callers must render those as alpha 0.
func (s ColorScale) ColorAt(v float64) (RGB, bool) {
	if math.IsNaN(v) || s.transparentAt(v) {
		return RGB{}, false
	}

	first, last := s.Stops[0], s.Stops[len(s.Stops)-1]
	if v <= first.Value {
		return first.RGB, true
	}
	if v >= last.Value {
		return last.RGB, true
	}

	for i := 0; i < len(s.Stops)-1; i++ {
		lo, hi := s.Stops[i], s.Stops[i+1]
		if v >= lo.Value && v < hi.Value {
			t := (v - lo.Value) / (hi.Value - lo.Value)
			return RGB{
				lerpChannel(lo.RGB[0], hi.RGB[0], t),
				lerpChannel(lo.RGB[1], hi.RGB[1], t),
				lerpChannel(lo.RGB[2], hi.RGB[2], t),
			}, true
		}
	}
	return last.RGB, true
}

func (s ColorScale) transparentAt(v float64) bool {
	t := s.Transparent
	return t != nil && (v < t.Value || (t.Inclusive && v == t.Value))
}

func lerpChannel(lo, hi uint8, t float64) uint8 {
	return uint8(math.Round(float64(lo) + t*(float64(hi)-float64(lo))))
}

// Conversion translates between a variable's native unit and its display unit.
type Conversion string

const (
	ConvertNone               Conversion = ""
	ConvertKelvinToFahrenheit Conversion = "K->F"
)

// ToDisplay converts a native value to the display unit.
func (c Conversion) ToDisplay(v float64) float64 {
	switch c {
	case ConvertKelvinToFahrenheit:
		return (v-273.15)*9/5 + 32
	default:
		return v
	}
}

// ToNative converts a display value back to the native unit.
func (c Conversion) ToNative(v float64) float64 {
	switch c {
	case ConvertKelvinToFahrenheit:
		return (v-32)*5/9 + 273.15
	default:
		return v
	}
}

// Display describes how a variable is presented: unit, fixed range, legend ticks.
// A zero Min and Max with Fixed unset means the range comes from the data.
type Display struct {
	Unit       string     `json:"unit"`
	Conversion Conversion `json:"conversion,omitempty"`
	Fixed      bool       `json:"fixed"`
	Min        float64    `json:"min"`
	Max        float64    `json:"max"`
	Increment  float64    `json:"increment,omitempty"`
}

// DisplayScale wraps a native colour scale so it can be queried with display
// values. Input is clamped to the display range, converted back to the native
// unit and then looked up.
type DisplayScale struct {
	Scale   ColorScale
	Display Display
}

// ColorAt looks up a display-unit value. Transparency is decided before the
// value is clamped into the display range.
func (d DisplayScale) ColorAt(displayValue float64) (RGB, bool) {
	if math.IsNaN(displayValue) || d.Scale.transparentAt(d.Display.Conversion.ToNative(displayValue)) {
		return RGB{}, false
	}
	if d.Display.Fixed {
		displayValue = math.Max(d.Display.Min, math.Min(displayValue, d.Display.Max))
	}
	return d.Scale.ColorAt(d.Display.Conversion.ToNative(displayValue))
}

// ColorAtNative converts a native sample to display units before lookup.
func (d DisplayScale) ColorAtNative(v float64) (RGB, bool) {
	return d.ColorAt(d.Display.Conversion.ToDisplay(v))
}

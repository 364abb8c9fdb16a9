package domain

import (
	"fmt"
	"math"
)

// gradientSamples is the number of evenly spaced colour samples in a legend bar.
const gradientSamples = 101

// Legend carries everything a renderer needs to draw a colour bar.
type Legend struct {
	Title     string    `json:"title"`
	Unit      string    `json:"unit"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Increment float64   `json:"increment,omitempty"`
	Ticks     []float64 `json:"ticks"`
	// Gradient holds "#rrggbb" samples from Min to Max; "" is transparent.
	Gradient []string `json:"gradient"`
	// Dynamic is set when the range depends on rendered data.
	Dynamic bool `json:"dynamic"`
}

// BuildLegend derives the legend for v. dataMin and dataMax are used only when
// the variable has no fixed display range, and are expected in display units.
func BuildLegend(v Variable, dataMin, dataMax float64) Legend {
	lg := Legend{
		Title:     v.Name,
		Unit:      v.DisplayUnit(),
		Increment: v.Display.Increment,
	}
	if v.Display.Fixed {
		lg.Min, lg.Max = v.Display.Min, v.Display.Max
	} else {
		lg.Min, lg.Max, lg.Dynamic = dataMin, dataMax, true
	}
	if math.IsInf(lg.Min, 0) || math.IsInf(lg.Max, 0) || math.IsNaN(lg.Min) || math.IsNaN(lg.Max) {
		lg.Min, lg.Max = 0, 0
	}

	lg.Ticks = legendTicks(lg.Min, lg.Max, lg.Increment)

	scale := v.DisplayScale()
	lg.Gradient = make([]string, gradientSamples)
	for i := range gradientSamples {
		value := lg.Min + float64(i)/float64(gradientSamples-1)*(lg.Max-lg.Min)
		if c, ok := scale.ColorAt(value); ok {
			lg.Gradient[i] = c.Hex()
		}
	}
	return lg
}

func legendTicks(lo, hi, increment float64) []float64 {
	if increment <= 0 || hi <= lo {
		return []float64{lo, (lo + hi) / 2, hi}
	}
	ticks := make([]float64, 0, int((hi-lo)/increment)+1)
	for v := lo; v <= hi+increment*1e-9; v += increment {
		ticks = append(ticks, v)
	}
	return ticks
}

// Hex formats the colour as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

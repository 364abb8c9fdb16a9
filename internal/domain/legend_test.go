package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLegend_Fixed(t *testing.T) {
	lg := BuildLegend(temperature2m(), 12, 40)

	assert.Equal(t, "2m Temperature", lg.Title)
	assert.Equal(t, "°F", lg.Unit)
	assert.False(t, lg.Dynamic)
	assert.Equal(t, -20.0, lg.Min)
	assert.Equal(t, 110.0, lg.Max)
	assert.Len(t, lg.Ticks, 14)
	assert.Equal(t, -20.0, lg.Ticks[0])
	assert.Equal(t, 110.0, lg.Ticks[13])

	assert.Len(t, lg.Gradient, gradientSamples)
	assert.Equal(t, "#00008b", lg.Gradient[0], "-20F is below the first stop")
	assert.Equal(t, "#8b0000", lg.Gradient[gradientSamples-1])
}

func TestBuildLegend_TransparentSamples(t *testing.T) {
	lg := BuildLegend(totalPrecipitation(), 0, 0)

	assert.Empty(t, lg.Gradient[0], "0 mm is under the inclusive 0.1 threshold")
	assert.NotEmpty(t, lg.Gradient[1])
}

func TestBuildLegend_Dynamic(t *testing.T) {
	v := relativeHumidity2m()

	lg := BuildLegend(v, 12.5, 97)
	assert.True(t, lg.Dynamic)
	assert.Equal(t, 12.5, lg.Min)
	assert.Equal(t, 97.0, lg.Max)
	assert.Equal(t, []float64{12.5, 54.75, 97}, lg.Ticks)

	empty := BuildLegend(v, math.Inf(1), math.Inf(-1))
	assert.Equal(t, 0.0, empty.Min)
	assert.Equal(t, 0.0, empty.Max)
	assert.Len(t, empty.Gradient, gradientSamples)
}

func TestRGB_Hex(t *testing.T) {
	assert.Equal(t, "#ffcb00", RGB{255, 203, 0}.Hex())
}

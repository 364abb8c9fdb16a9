package domain

import (
	"image"
	"image/png"
	"io"
	"math"
)

// RasterResult is a rendered RGBA image plus the legend that explains it.
type RasterResult struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	RGBA         []uint8      `json:"-"`
	Legend       Legend       `json:"legend"`
	Scale        DisplayScale `json:"-"`
	Run          ModelRun     `json:"run"`
	ForecastHour int          `json:"forecast_hour"`
	Variable     string       `json:"variable"`
	Bounds       *GeoBounds   `json:"bounds,omitempty"`
	Metadata     GridMetadata `json:"metadata"`
}

// GeoBounds is the lat/lon box a global raster covers after remapping.
type GeoBounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Image wraps the pixel buffer without copying.
func (r RasterResult) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.RGBA,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// EncodePNG writes the raster as a PNG image.
func (r RasterResult) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.Image())
}

// Rasterize turns a validated grid into a north-up RGBA raster for v. Global
// grids are remapped so the image spans -180..180; south-first grids are
// flipped. Samples that map to no colour get alpha 0.
func Rasterize(m Model, v Variable, g DecodedGrid) (RasterResult, error) {
	if err := g.Validate(); err != nil {
		return RasterResult{}, err
	}
	nx, ny := g.Metadata.NX, g.Metadata.NY

	values := g.Values
	var bounds *GeoBounds
	if m.Layout == LayoutGlobal {
		values = RemapLongitude(values, nx, ny)
		bounds = &GeoBounds{South: -90, West: -180, North: 90, East: 180}
	}
	flip := g.Metadata.SouthFirst()

	scale := v.DisplayScale()
	conv := v.Display.Conversion
	pix := make([]uint8, nx*ny*4)
	lo, hi := math.Inf(1), math.Inf(-1)

	for j := 0; j < ny; j++ {
		row := j
		if flip {
			row = ny - 1 - j
		}
		for i := 0; i < nx; i++ {
			native := float64(values[j*nx+i])
			display := conv.ToDisplay(native)
			if !math.IsNaN(display) {
				lo, hi = math.Min(lo, display), math.Max(hi, display)
			}
			p := (row*nx + i) * 4
			if c, ok := scale.ColorAt(display); ok {
				pix[p], pix[p+1], pix[p+2], pix[p+3] = c[0], c[1], c[2], m.Alpha
			}
		}
	}

	return RasterResult{
		Width:    nx,
		Height:   ny,
		RGBA:     pix,
		Legend:   BuildLegend(v, lo, hi),
		Scale:    scale,
		Variable: v.Key,
		Bounds:   bounds,
		Metadata: g.Metadata,
	}, nil
}

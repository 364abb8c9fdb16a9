package domain

import "math"

// Sample is the value of one grid cell nearest to a requested location.
type Sample struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	I       int     `json:"i"`
	J       int     `json:"j"`
	Value   float64 `json:"value"`
	Display float64 `json:"display"`
	Unit    string  `json:"unit"`
}

// SampleAt returns the nearest grid value to lat/lon in native grid order
// (before any remap or flip). ok is false outside the grid or on missing data.
func SampleAt(m Model, v Variable, g DecodedGrid, lat, lon float64) (Sample, bool) {
	if g.Validate() != nil {
		return Sample{}, false
	}
	nx, ny := g.Metadata.NX, g.Metadata.NY

	var i, j int
	switch m.Layout {
	case LayoutLambert:
		if m.Projection == nil {
			return Sample{}, false
		}
		pt := m.Projection.Locate(lon, lat)
		i, j = int(math.Round(pt.I)), int(math.Round(pt.J))
	default:
		var ok bool
		i, j, ok = regularIndex(g.Metadata, lat, lon)
		if !ok {
			return Sample{}, false
		}
	}
	if i < 0 || i >= nx || j < 0 || j >= ny {
		return Sample{}, false
	}

	value := float64(g.Values[j*nx+i])
	if math.IsNaN(value) {
		return Sample{}, false
	}
	return Sample{
		Lat:     lat,
		Lon:     lon,
		I:       i,
		J:       j,
		Value:   value,
		Display: v.Display.Conversion.ToDisplay(value),
		Unit:    v.DisplayUnit(),
	}, true
}

// regularIndex locates lat/lon on a regular lat/lon grid described by its corners.
func regularIndex(md GridMetadata, lat, lon float64) (int, int, bool) {
	if md.NX < 2 || md.NY < 2 {
		return 0, 0, false
	}
	lonFirst := normalizeLon360(md.LonFirst)
	span := normalizeLon360(md.LonLast - md.LonFirst)
	dlon := span / float64(md.NX-1)
	dlat := (md.LatLast - md.LatFirst) / float64(md.NY-1)
	if dlon == 0 || dlat == 0 {
		return 0, 0, false
	}

	i := int(math.Round(normalizeLon360(lon-lonFirst) / dlon))
	if i == md.NX && span+dlon >= 360-1e-6 {
		i = 0
	}
	j := int(math.Round((lat - md.LatFirst) / dlat))
	return i, j, i >= 0 && i < md.NX && j >= 0 && j < md.NY
}

// LatLon is a requested sampling location.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PointSample is the result for one requested location. Sample is nil when
// the location is outside the grid or the value is missing.
type PointSample struct {
	Point  LatLon  `json:"point"`
	Found  bool    `json:"found"`
	Sample *Sample `json:"sample,omitempty"`
}

// SamplePoints samples every point against one decoded grid, in order.
func SamplePoints(m Model, v Variable, g DecodedGrid, points []LatLon) []PointSample {
	out := make([]PointSample, len(points))
	for k, p := range points {
		out[k].Point = p
		if s, ok := SampleAt(m, v, g, p.Lat, p.Lon); ok {
			out[k].Found = true
			out[k].Sample = &s
		}
	}
	return out
}

package domain

import "fmt"

// GridMetadata describes a decoded field's grid. Regular lat/lon grids carry
// corner coordinates; projected grids carry the projection identity instead.
type GridMetadata struct {
	NumPoints int     `json:"num_points"`
	NX        int     `json:"nx"`
	NY        int     `json:"ny"`
	LatFirst  float64 `json:"lat_first"`
	LonFirst  float64 `json:"lon_first"`
	LatLast   float64 `json:"lat_last"`
	LonLast   float64 `json:"lon_last"`
}

// FieldInfo is the GRIB2 identification the decoder reports alongside the grid.
type FieldInfo struct {
	Discipline  int `json:"discipline"`
	PackingType int `json:"packing_type"`
}

// DecodedGrid is one decoded GRIB2 message. Values are owned by the caller.
type DecodedGrid struct {
	Info     FieldInfo    `json:"info"`
	Metadata GridMetadata `json:"grid"`
	Values   []float32    `json:"-"`
}

// Validate enforces nx*ny == len(values) with positive dimensions.
func (g DecodedGrid) Validate() error {
	nx, ny := g.Metadata.NX, g.Metadata.NY
	if nx <= 0 || ny <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrGridMismatch, nx, ny)
	}
	if nx*ny != len(g.Values) {
		return fmt.Errorf("%w: %dx%d grid has %d values", ErrGridMismatch, nx, ny, len(g.Values))
	}
	return nil
}

// SouthFirst reports whether rows are stored from south to north.
func (m GridMetadata) SouthFirst() bool {
	return m.LatFirst < m.LatLast
}

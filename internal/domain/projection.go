package domain

import "math"

// RemapLongitude swaps the two halves of every row of a global 0-360 grid so
// that column 0 becomes the 180 degree meridian. Row order is unchanged. For
// even nx the permutation is its own inverse; odd nx rotates by round(nx/2).
func RemapLongitude(values []float32, nx, ny int) []float32 {
	out := make([]float32, len(values))
	half := int(jsRound(float64(nx) / 2))
	for j := 0; j < ny; j++ {
		row := j * nx
		for i := 0; i < nx; i++ {
			out[row+remapColumn(i, half, nx)] = values[row+i]
		}
	}
	return out
}

// remapColumn is i+half for the western half and i-half for the eastern half,
// written as a rotation so odd widths stay a bijection.
func remapColumn(i, half, nx int) int {
	return (i + half) % nx
}

// LambertParams defines a tangent Lambert Conformal Conic projection on a sphere.
// Angles are in degrees.
type LambertParams struct {
	Radius           float64 `json:"radius"`
	StandardParallel float64 `json:"standard_parallel"`
	CentralMeridian  float64 `json:"central_meridian"`
	OriginLatitude   float64 `json:"origin_latitude"`
}

// LambertConformal is a forward LCC projection with its constants precomputed.
type LambertConformal struct {
	params LambertParams
	n      float64
	f      float64
	rho0   float64
}

// NewLambertConformal derives n, F and rho0 once for p.
func NewLambertConformal(p LambertParams) LambertConformal {
	lat1 := radians(p.StandardParallel)
	lat0 := radians(p.OriginLatitude)

	n := math.Sin(lat1)
	f := math.Cos(lat1) * math.Pow(math.Tan(math.Pi/4+lat1/2), n) / n
	rho0 := p.Radius * f / math.Pow(math.Tan(math.Pi/4+lat0/2), n)

	return LambertConformal{params: p, n: n, f: f, rho0: rho0}
}

// Forward projects a lon/lat in degrees to projection metres.
func (l LambertConformal) Forward(lon, lat float64) (x, y float64) {
	rho := l.params.Radius * l.f / math.Pow(math.Tan(math.Pi/4+radians(lat)/2), l.n)
	theta := l.n * radians(normalizeLon180(lon-l.params.CentralMeridian))
	return rho * math.Sin(theta), l.rho0 - rho*math.Cos(theta)
}

// LambertGrid is a regular grid laid out on a Lambert Conformal Conic projection.
type LambertGrid struct {
	Params   LambertParams `json:"params"`
	NX       int           `json:"nx"`
	NY       int           `json:"ny"`
	DX       float64       `json:"dx"`
	DY       float64       `json:"dy"`
	FirstLat float64       `json:"first_lat"`
	FirstLon float64       `json:"first_lon"`

	proj             LambertConformal
	originX, originY float64
}

// NewLambertGrid precomputes the projection and derives the lower-left origin
// by projecting the grid's first point.
func NewLambertGrid(p LambertParams, nx, ny int, dx, dy, firstLat, firstLon float64) *LambertGrid {
	g := &LambertGrid{
		Params: p, NX: nx, NY: ny, DX: dx, DY: dy,
		FirstLat: firstLat, FirstLon: firstLon,
		proj: NewLambertConformal(p),
	}
	g.originX, g.originY = g.proj.Forward(firstLon, firstLat)
	return g
}

// Origin returns the projected coordinates of grid point (0, 0).
func (g *LambertGrid) Origin() (x, y float64) {
	return g.originX, g.originY
}

// GridPoint is a fractional grid position. Row is the raster row measured
// from the top edge: NY - J.
type GridPoint struct {
	I, J, Row float64
	InGrid    bool
}

// Locate projects lon/lat onto the grid. Points outside [0,NX)x[0,NY) report
// InGrid false; that is "no data", not an error.
func (g *LambertGrid) Locate(lon, lat float64) GridPoint {
	x, y := g.proj.Forward(lon, lat)
	i := (x - g.originX) / g.DX
	j := (y - g.originY) / g.DY
	return GridPoint{
		I:      i,
		J:      j,
		Row:    float64(g.NY) - j,
		InGrid: i >= 0 && i < float64(g.NX) && j >= 0 && j < float64(g.NY),
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// normalizeLon180 wraps a longitude difference into [-180, 180).
func normalizeLon180(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// normalizeLon360 wraps a longitude into [0, 360).
func normalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

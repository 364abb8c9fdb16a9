package domain

import (
	"fmt"
	"time"
)

// Default NOAA Open Data bucket endpoints.
const (
	DefaultGFSBucketURL  = "https://noaa-gfs-bdp-pds.s3.amazonaws.com"
	DefaultHRRRBucketURL = "https://noaa-hrrr-bdp-pds.s3.amazonaws.com"
)

// HRRR CONUS grid definition.
const (
	hrrrNX       = 1799
	hrrrNY       = 1059
	hrrrSpacing  = 3000.0
	hrrrFirstLat = 21.138123
	hrrrFirstLon = 237.280472
)

// HRRRProjection is the documented HRRR CONUS Lambert Conformal projection.
var HRRRProjection = LambertParams{
	Radius:           6371229,
	StandardParallel: 38.5,
	CentralMeridian:  -97.5,
	OriginLatitude:   38.5,
}

var (
	temperatureStops = []ColorStop{
		{250, RGB{0, 0, 139}},
		{260, RGB{0, 0, 255}},
		{270, RGB{0, 255, 255}},
		{280, RGB{0, 255, 0}},
		{290, RGB{255, 255, 0}},
		{300, RGB{255, 165, 0}},
		{310, RGB{255, 0, 0}},
		{315, RGB{139, 0, 0}},
	}
	precipitationStops = []ColorStop{
		{1, RGB{144, 238, 144}},
		{2.5, RGB{0, 255, 0}},
		{5, RGB{0, 200, 0}},
		{10, RGB{255, 255, 0}},
		{25, RGB{255, 165, 0}},
		{50, RGB{255, 0, 0}},
		{75, RGB{180, 0, 0}},
	}
	reflectivityStops = []ColorStop{
		{5, RGB{0, 150, 150}},
		{15, RGB{0, 100, 200}},
		{25, RGB{0, 200, 0}},
		{35, RGB{255, 255, 0}},
		{45, RGB{255, 150, 0}},
		{55, RGB{255, 0, 0}},
		{65, RGB{200, 0, 100}},
		{75, RGB{255, 255, 255}},
	}
)

// rampStops spreads a blue-green-yellow-red ramp over [lo, hi] for variables
// without a hand-tuned scale.
func rampStops(lo, hi float64) []ColorStop {
	colors := []RGB{{49, 54, 149}, {69, 117, 180}, {116, 173, 209}, {171, 217, 233}, {254, 224, 144}, {253, 174, 97}, {244, 109, 67}, {165, 0, 38}}
	stops := make([]ColorStop, len(colors))
	for i, c := range colors {
		stops[i] = ColorStop{Value: lo + float64(i)*(hi-lo)/float64(len(colors)-1), RGB: c}
	}
	return stops
}

func temperature2m() Variable {
	return Variable{
		Key:         "temp_2m",
		Name:        "2m Temperature",
		ProductCode: "TMP",
		Level:       "2 m above ground",
		Unit:        "K",
		Scale:       ColorScale{Stops: temperatureStops},
		Display: Display{
			Unit:       "°F",
			Conversion: ConvertKelvinToFahrenheit,
			Fixed:      true,
			Min:        -20,
			Max:        110,
			Increment:  10,
		},
	}
}

func totalPrecipitation() Variable {
	return Variable{
		Key:             "precip_total",
		Name:            "Total Precipitation",
		ProductCode:     "APCP",
		Level:           "surface",
		Match:           MatchPrefix,
		Unit:            "mm",
		MinForecastHour: 3,
		Scale: ColorScale{
			Stops:       precipitationStops,
			Transparent: &Threshold{Value: 0.1, Inclusive: true},
		},
		Display: Display{Unit: "mm", Fixed: true, Min: 0, Max: 50, Increment: 5},
	}
}

func compositeReflectivity() Variable {
	return Variable{
		Key:         "reflectivity_comp",
		Name:        "Composite Reflectivity",
		ProductCode: "REFC",
		Level:       "entire atmosphere",
		Unit:        "dBZ",
		Scale: ColorScale{
			Stops:       reflectivityStops,
			Transparent: &Threshold{Value: 5},
		},
		Display: Display{Unit: "dBZ", Fixed: true, Min: 5, Max: 75, Increment: 10},
	}
}

func relativeHumidity2m() Variable {
	return Variable{
		Key:         "rh_2m",
		Name:        "2m Relative Humidity",
		ProductCode: "RH",
		Level:       "2 m above ground",
		Match:       MatchPrefix,
		Unit:        "%",
		Scale:       ColorScale{Stops: rampStops(0, 100)},
	}
}

func geopotentialHeight500() Variable {
	return Variable{
		Key:         "hgt_500",
		Name:        "500 mb Geopotential Height",
		ProductCode: "HGT",
		Level:       "500 mb",
		Match:       MatchPrefix,
		Unit:        "gpm",
		Scale:       ColorScale{Stops: rampStops(4800, 6000)},
	}
}

func surfaceCAPE() Variable {
	return Variable{
		Key:         "cape_sfc",
		Name:        "Surface CAPE",
		ProductCode: "CAPE",
		Level:       "surface",
		Match:       MatchPrefix,
		Unit:        "J/kg",
		Scale:       ColorScale{Stops: rampStops(0, 4000)},
	}
}

func gfsModel(key, name, resolution string, lattice Lattice) Model {
	return Model{
		Key:        key,
		Name:       name,
		Family:     FamilyGFS,
		BucketURL:  DefaultGFSBucketURL,
		Product:    "pgrb2." + resolution,
		HourDigits: 3,
		Lattice:    lattice,
		Range:      168 * time.Hour,
		Probe: ProbePlan{
			Lead:       6 * time.Hour,
			Iterations: 3,
			Stride:     24 * time.Hour,
			Cycles:     []int{18, 12, 6, 0},
			CheckHour:  168,
		},
		Layout: LayoutGlobal,
		Alpha:  200,
		Variables: []Variable{
			temperature2m(),
			totalPrecipitation(),
			relativeHumidity2m(),
			geopotentialHeight500(),
			surfaceCAPE(),
		},
	}
}

// GFS025 is the 0.25 degree GFS: hourly through hour 120, 3-hourly after.
func GFS025() Model {
	return gfsModel("gfs-0p25", "GFS 0.25°", "0p25", Lattice{FineStep: 1, CoarseStep: 3, Crossover: 120})
}

// GFS050 is the 0.50 degree GFS, 3-hourly throughout.
func GFS050() Model {
	return gfsModel("gfs-0p50", "GFS 0.50°", "0p50", Lattice{FineStep: 3, CoarseStep: 3})
}

// GFS100 is the 1.00 degree GFS, 3-hourly throughout.
func GFS100() Model {
	return gfsModel("gfs-1p00", "GFS 1.00°", "1p00", Lattice{FineStep: 3, CoarseStep: 3})
}

// HRRR is the 3 km CONUS HRRR surface product, hourly out to 48 hours.
func HRRR() Model {
	return Model{
		Key:        "hrrr",
		Name:       "HRRR CONUS",
		Family:     FamilyHRRR,
		BucketURL:  DefaultHRRRBucketURL,
		Product:    "wrfsfc",
		HourDigits: 2,
		Lattice:    Lattice{FineStep: 1, CoarseStep: 1, Crossover: 48},
		Range:      48 * time.Hour,
		Probe: ProbePlan{
			Iterations: 48,
			Stride:     time.Hour,
			CheckHour:  18,
		},
		Layout:     LayoutLambert,
		Projection: NewLambertGrid(HRRRProjection, hrrrNX, hrrrNY, hrrrSpacing, hrrrSpacing, hrrrFirstLat, hrrrFirstLon),
		Alpha:      180,
		Variables: []Variable{
			compositeReflectivity(),
			temperature2m(),
		},
	}
}

// Catalog returns every known model keyed by Model.Key.
func Catalog() map[string]Model {
	models := []Model{GFS025(), GFS050(), GFS100(), HRRR()}
	out := make(map[string]Model, len(models))
	for _, m := range models {
		out[m.Key] = m
	}
	return out
}

// LookupModel finds a model by key in the catalog.
func LookupModel(key string) (Model, error) {
	m, ok := Catalog()[key]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return m, nil
}

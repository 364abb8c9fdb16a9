// Package domain models NOAA forecast-model grids and the rules for turning
// one variable of one forecast hour into a coloured raster.
//
// # Data Source
//
// GFS and HRRR output is published to the NOAA Open Data buckets on S3:
//
//	GFS:  gfs.YYYYMMDD/CC/atmos/gfs.tCCz.pgrb2.0p25.fHHH
//	HRRR: hrrr.YYYYMMDD/conus/hrrr.tCCz.wrfsfcfHH.grib2
//
// Each GRIB2 object has a sibling ".idx" text file, one record per message:
//
//	"<n>:<byte offset>:d=<YYYYMMDDCC>:<code>:<level>:<forecast>:"
//	e.g. "580:412843251:d=2024062712:TMP:2 m above ground:anl:"
//
// A message runs from its own offset to one byte before the next record's
// offset, so a single variable is fetched with one HTTP range request. See
// [ResolveByteRange].
//
// # Runs
//
// A run is identified by issue date and cycle hour. Objects for the early
// forecast hours appear well before the run is complete, so [FindLatestRun]
// confirms a candidate by probing a far-horizon hour (f168 for GFS, f18 for
// HRRR) with a one-byte range request.
//
// # Forecast-hour lattice
//
// Not every hour is published. GFS 0.25° is hourly through hour 120 and
// 3-hourly after; the coarser GFS grids are 3-hourly throughout; HRRR is
// hourly. [TimeSnapper] keeps timestamps on that lattice, and hour 120 itself
// belongs to the hourly part.
//
// # Grids
//
// GFS grids are regular lat/lon with longitude 0..359.x from column 0, stored
// north to south. [RemapLongitude] swaps row halves so the raster spans
// -180..180. HRRR uses a Lambert Conformal Conic grid whose first point is the
// south-west corner; [LambertGrid] projects lat/lon to grid indices with the
// origin derived from that first point.
//
// # Colour
//
// [ColorScale] interpolates linearly between stops and clamps outside them.
// Values under a variable's transparency threshold, and NaN, get alpha 0.
// Display conversions (Kelvin to Fahrenheit) wrap the scale: the display value
// is clamped to the display range first, then converted back for lookup.
package domain

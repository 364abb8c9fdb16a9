package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
	"github.com/couchcryptid/storm-data-grid/internal/pipeline"
)

// openBucket publishes every object and indexes TMP at 2 m for any hour.
type openBucket struct{}

func (openBucket) Probe(context.Context, string) (bool, error) { return true, nil }

func (openBucket) FetchIndex(context.Context, string) (string, error) {
	return "1:0:d=2024062712:TMP:2 m above ground:anl:\n2:100:d=2024062712:RH:2 m above ground:anl:\n", nil
}

func (openBucket) FetchRange(context.Context, string, domain.ByteRange) ([]byte, error) {
	return []byte("GRIB....7777"), nil
}

// gatedDecoder blocks each decode until gate is closed.
type gatedDecoder struct {
	started chan struct{}
	gate    chan struct{}
}

func (d *gatedDecoder) Decode(ctx context.Context, _ []byte) (domain.DecodedGrid, error) {
	select {
	case d.started <- struct{}{}:
	default:
	}
	select {
	case <-d.gate:
	case <-ctx.Done():
		return domain.DecodedGrid{}, ctx.Err()
	}
	values := make([]float32, 360*181)
	for i := range values {
		values[i] = 290
	}
	return domain.DecodedGrid{
		Metadata: domain.GridMetadata{NumPoints: len(values), NX: 360, NY: 181, LatFirst: 90, LonFirst: 0, LatLast: -90, LonLast: 359},
		Values:   values,
	}, nil
}

func TestRouter_OverlappingRequestsShareModelGuard(t *testing.T) {
	withClock(t)
	dec := &gatedDecoder{started: make(chan struct{}, 1), gate: make(chan struct{})}
	metrics := observability.NewMetricsForTesting()
	o := pipeline.NewOrchestrator(
		[]domain.Model{domain.GFS100()},
		map[string]pipeline.Source{"gfs-1p00": openBucket{}},
		dec, nil, nil, discardLogger(), metrics,
	)
	router := NewRouter(o, nil, nil, discardLogger())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- get("/v1/models/gfs-1p00/raster") }()
	<-dec.started

	w := get("/v1/models/gfs-1p00/raster")
	assert.Equal(t, http.StatusConflict, w.Code, "second raster while the first decodes")
	w = get("/v1/models/gfs-1p00/sample?lat=35.47&lon=-97.52")
	assert.Equal(t, http.StatusConflict, w.Code, "sample shares the raster guard")

	close(dec.gate)
	w = <-first
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = get("/v1/models/gfs-1p00/raster")
	assert.Equal(t, http.StatusOK, w.Code, "guard released once the first request returns")
}

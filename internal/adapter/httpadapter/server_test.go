package httpadapter_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-grid/internal/adapter/httpadapter"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error, api http.Handler) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, api, slog.Default())
}

func serve(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("no model run located yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIMountedUnderV1(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "api:"+r.URL.Path)
	})
	srv := newTestServer(nil, api)

	rec := serve(srv, "/v1/models")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "api:/v1/models", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(newTestServer(nil, nil), "/v1/models").Code)
}

func TestReadinessRequiresEveryCheck(t *testing.T) {
	dbDown := errors.New("database unreachable")
	ready := httpadapter.Readiness{&mockReadiness{}, &mockReadiness{err: dbDown}}
	require.ErrorIs(t, ready.CheckReadiness(context.Background()), dbDown)

	srv := httpadapter.NewServer(":0", ready, nil, slog.Default())
	assert.Equal(t, http.StatusServiceUnavailable, serve(srv, "/readyz").Code)

	ready[1] = &mockReadiness{}
	srv = httpadapter.NewServer(":0", ready, nil, slog.Default())
	assert.Equal(t, http.StatusOK, serve(srv, "/readyz").Code)
}

package objectstore

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
)

const testPath = "gfs.20240627/12/atmos/gfs.t12z.pgrb2.1p00.f000"

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestClient_Probe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{"partial content confirms", http.StatusPartialContent, true, false},
		{"full body rejects", http.StatusOK, false, false},
		{"not found rejects", http.StatusNotFound, false, false},
		{"forbidden rejects", http.StatusForbidden, false, false},
		{"server error fails", http.StatusBadGateway, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/"+testPath+".idx", r.URL.Path)
				assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			ok, err := testClient(srv.URL).Probe(context.Background(), testPath+".idx")
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrTransport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClient_Probe_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(url)
	_, err := c.Probe(context.Background(), testPath)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ObjectRequests.WithLabelValues(kindProbe, "error")), 0)
}

func TestClient_FetchIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Range"))
		if r.URL.Path != "/"+testPath+".idx" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "1:0:d=2024062712:TMP:2 m above ground:anl:\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	text, err := c.FetchIndex(context.Background(), testPath+".idx")
	require.NoError(t, err)
	assert.Contains(t, text, "TMP:2 m above ground")

	_, err = c.FetchIndex(context.Background(), "missing.idx")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestClient_FetchIndex_TooLarge(t *testing.T) {
	line := "1:0:d=2024062712:TMP:2 m above ground:anl:\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := maxIndexBytes
		if r.URL.Path == "/over.idx" {
			n++
		}
		_, _ = io.WriteString(w, strings.Repeat("x", n-len(line))+line)
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	text, err := c.FetchIndex(context.Background(), "exact.idx")
	require.NoError(t, err)
	assert.Len(t, text, maxIndexBytes)

	_, err = c.FetchIndex(context.Background(), "over.idx")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "exceeds")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ObjectRequests.WithLabelValues(kindIndex, "error")), 0)
}

func TestClient_FetchRange(t *testing.T) {
	message := append([]byte("GRIB"), make([]byte, 60)...)

	t.Run("closed range", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bytes=1000-1063", r.Header.Get("Range"))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(message)
		}))
		defer srv.Close()

		buf, err := testClient(srv.URL).FetchRange(context.Background(), testPath, domain.ByteRange{Start: 1000, End: 1063})
		require.NoError(t, err)
		assert.Equal(t, message, buf)
	})

	t.Run("open range", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bytes=2500-", r.Header.Get("Range"))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(message)
		}))
		defer srv.Close()

		buf, err := testClient(srv.URL).FetchRange(context.Background(), testPath, domain.ByteRange{Start: 2500, Open: true})
		require.NoError(t, err)
		assert.Len(t, buf, len(message))
	})

	failures := []struct {
		name   string
		status int
		body   []byte
		target error
	}{
		{"range ignored", http.StatusOK, message, domain.ErrTransport},
		{"not found", http.StatusNotFound, nil, fs.ErrNotExist},
		{"bad magic", http.StatusPartialContent, []byte("<html>"), domain.ErrTransport},
		{"server error", http.StatusServiceUnavailable, nil, domain.ErrTransport},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.FetchRange(context.Background(), testPath, domain.ByteRange{Start: 0, End: 63})
			require.ErrorIs(t, err, tt.target)
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ObjectRequests.WithLabelValues(kindRange, "error")), 0)
		})
	}
}

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
)

const (
	kindProbe = "probe"
	kindIndex = "index"
	kindRange = "range"

	// maxIndexBytes bounds an index download; real .idx files are a few tens of KB.
	maxIndexBytes = 4 << 20
)

var gribMagic = []byte("GRIB")

// Client reads forecast objects from a public HTTP bucket.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a bucket client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		metrics: metrics,
	}
}

// Probe asks for the first byte of path. Only 206 Partial Content confirms
// the object; any other status is a rejection, and only network failures and
// server errors are returned as errors.
func (c *Client) Probe(ctx context.Context, path string) (bool, error) {
	resp, err := c.do(ctx, kindProbe, path, "bytes=0-0")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		return true, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		c.observe(kindProbe, false)
		return false, fmt.Errorf("%w: probe %s: status %d", domain.ErrTransport, path, resp.StatusCode)
	default:
		return false, nil
	}
}

// FetchIndex downloads the .idx text at path.
func (c *Client) FetchIndex(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, kindIndex, path, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := statusError(path, resp, http.StatusOK); err != nil {
		c.observe(kindIndex, false)
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIndexBytes+1))
	if err != nil {
		c.observe(kindIndex, false)
		return "", fmt.Errorf("%w: read index %s: %w", domain.ErrTransport, path, err)
	}
	if len(body) > maxIndexBytes {
		c.observe(kindIndex, false)
		return "", fmt.Errorf("%w: index %s exceeds %d bytes", domain.ErrTransport, path, maxIndexBytes)
	}
	return string(body), nil
}

// FetchRange downloads one GRIB message from path. The server must honour the
// range request and the payload must start with the GRIB magic.
func (c *Client) FetchRange(ctx context.Context, path string, r domain.ByteRange) ([]byte, error) {
	resp, err := c.do(ctx, kindRange, path, r.Header())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.observe(kindRange, false)
		return nil, fmt.Errorf("%w: get %s: server did not accept range request", domain.ErrTransport, path)
	}
	if err := statusError(path, resp, http.StatusPartialContent); err != nil {
		c.observe(kindRange, false)
		return nil, err
	}

	var body io.Reader = resp.Body
	if !r.Open {
		body = io.LimitReader(resp.Body, r.End-r.Start+1)
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		c.observe(kindRange, false)
		return nil, fmt.Errorf("%w: read %s %s: %w", domain.ErrTransport, path, r, err)
	}
	if !bytes.HasPrefix(buf, gribMagic) {
		c.observe(kindRange, false)
		return nil, fmt.Errorf("%w: %s %s: response does not start with grib magic", domain.ErrTransport, path, r)
	}

	c.logger.Debug("fetched grib message", "path", path, "range", r.String(), "bytes", len(buf))
	return buf, nil
}

// do issues a GET and records duration. Success is counted here; callers
// count failures that depend on the response.
func (c *Client) do(ctx context.Context, kind, path, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObjectDurations.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(kind, false)
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, kind, path, err)
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
		c.observe(kind, true)
	}
	return resp, nil
}

func (c *Client) observe(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	c.metrics.ObjectRequests.WithLabelValues(kind, outcome).Inc()
}

func statusError(path string, resp *http.Response, want int) error {
	switch resp.StatusCode {
	case want:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: get %s: %w", domain.ErrTransport, path, fs.ErrNotExist)
	default:
		return fmt.Errorf("%w: get %s: response status %d (%q)", domain.ErrTransport, path, resp.StatusCode, resp.Status)
	}
}

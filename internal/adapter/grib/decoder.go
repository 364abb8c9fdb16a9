// Package grib wraps an external GRIB2 decoder process behind a typed call.
//
// The decoder reads one GRIB2 message on stdin and writes a single JSON
// metadata line followed by num_points little-endian float32 values.
// Missing values are written as NaN.
package grib

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// maxPoints rejects metadata that would allocate an absurd buffer.
const maxPoints = 50_000_000

// CommandDecoder runs an external decoder executable per message.
type CommandDecoder struct {
	path    string
	args    []string
	env     []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandDecoder resolves cmd on PATH. cmd may carry arguments separated by spaces.
func NewCommandDecoder(cmd string, timeout time.Duration, logger *slog.Logger) (*CommandDecoder, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil, errors.New("decoder command is empty")
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("find decoder executable: %w", err)
	}
	return &CommandDecoder{
		path:    path,
		args:    fields[1:],
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Decode turns one GRIB2 message into a validated grid. The returned values
// are owned by the caller.
func (d *CommandDecoder) Decode(ctx context.Context, msg []byte) (domain.DecodedGrid, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.path, d.args...)
	if d.env != nil {
		cmd.Env = d.env
	}
	cmd.Stdin = bytes.NewReader(msg)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.DecodedGrid{}, fmt.Errorf("%w: %w", domain.ErrDecodeFailure, ctxErr)
		}
		return domain.DecodedGrid{}, fmt.Errorf("%w: %w (stderr: %q)", domain.ErrDecodeFailure, err, strings.TrimSpace(stderr.String()))
	}

	g, err := parseOutput(&stdout)
	if err != nil {
		return domain.DecodedGrid{}, err
	}
	d.logger.Debug("decoded grib message",
		"bytes", len(msg),
		"nx", g.Metadata.NX,
		"ny", g.Metadata.NY,
		"duration", time.Since(start),
	)
	return g, nil
}

// parseOutput reads the metadata line and the value block.
func parseOutput(r io.Reader) (domain.DecodedGrid, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return domain.DecodedGrid{}, fmt.Errorf("%w: read metadata: %w", domain.ErrDecodeFailure, err)
	}

	var g domain.DecodedGrid
	if err := json.Unmarshal(line, &g); err != nil {
		return domain.DecodedGrid{}, fmt.Errorf("%w: parse metadata: %w", domain.ErrDecodeFailure, err)
	}
	n := g.Metadata.NumPoints
	if n <= 0 || n > maxPoints {
		return domain.DecodedGrid{}, fmt.Errorf("%w: num_points %d out of range", domain.ErrDecodeFailure, n)
	}

	g.Values = make([]float32, n)
	if err := binary.Read(br, binary.LittleEndian, g.Values); err != nil {
		return domain.DecodedGrid{}, fmt.Errorf("%w: read %d values: %w", domain.ErrDecodeFailure, n, err)
	}
	if err := g.Validate(); err != nil {
		return domain.DecodedGrid{}, err
	}
	return g, nil
}

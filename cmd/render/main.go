// Command render locates a model run, renders one variable at one time and
// writes the raster to a PNG file. The legend is printed to stdout as JSON.
//
// Usage:
//
//	go run ./cmd/render \
//	  -model gfs-1p00 \
//	  -variable temp_2m \
//	  -time 2024-06-27T18:00:00Z \
//	  -out temp.png
//
// -cycle-date and -cycle pin the run instead of probing for the latest one.
// Buckets, the decoder command and timeouts come from the usual environment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/storm-data-grid/internal/adapter/grib"
	"github.com/couchcryptid/storm-data-grid/internal/adapter/objectstore"
	"github.com/couchcryptid/storm-data-grid/internal/config"
	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
	"github.com/couchcryptid/storm-data-grid/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

func run() error {
	modelKey := flag.String("model", "gfs-1p00", "model key")
	variableKey := flag.String("variable", "", "variable key (default: the model's first variable)")
	at := flag.String("time", "", "valid time, RFC3339 (default: the initial time for now)")
	cycleDate := flag.String("cycle-date", "", "run date YYYY-MM-DD; skips run discovery")
	cycle := flag.Int("cycle", -1, "run cycle hour, used with -cycle-date")
	out := flag.String("out", "", "output PNG path")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the legend.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: observability.ParseLevel(cfg.LogLevel)}))

	m, err := modelFor(cfg, *modelKey)
	if err != nil {
		return err
	}

	metrics := observability.NewMetricsForTesting()
	client := objectstore.NewClient(m.BucketURL, cfg.FetchTimeout, logger, metrics)
	decoder, err := grib.NewCommandDecoder(cfg.DecoderCmd, cfg.DecoderTimeout, logger)
	if err != nil {
		return err
	}
	orch := pipeline.NewOrchestrator([]domain.Model{m}, map[string]pipeline.Source{m.Key: client}, decoder, nil, nil, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runSel domain.ModelRun
	if *cycleDate != "" {
		runSel, err = parseRun(*cycleDate, *cycle)
		if err != nil {
			return err
		}
	} else if runSel, err = orch.LocateRun(ctx, m); err != nil {
		return err
	}

	s := domain.NewSession(m, runSel)
	if *variableKey != "" {
		if _, err := s.Apply(domain.SetVariable{Key: *variableKey}); err != nil {
			return err
		}
	}
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid -time: %w", err)
		}
		if _, err := s.Apply(domain.SetTimestamp{Time: t.UTC()}); err != nil {
			return err
		}
	}

	result, err := orch.Render(ctx, s)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := result.EncodePNG(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("raster written",
		"path", *out,
		"run", result.Run.String(),
		"variable", result.Variable,
		"forecast_hour", result.ForecastHour,
		"width", result.Width,
		"height", result.Height,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Legend)
}

// modelFor looks key up with the configured bucket overrides applied.
func modelFor(cfg *config.Config, key string) (domain.Model, error) {
	cfg.Models = []string{key}
	if _, err := domain.LookupModel(key); err != nil {
		return domain.Model{}, err
	}
	return cfg.EnabledModels()[0], nil
}

func parseRun(date string, cycle int) (domain.ModelRun, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return domain.ModelRun{}, fmt.Errorf("invalid -cycle-date: %w", err)
	}
	if cycle < 0 || cycle > 23 {
		return domain.ModelRun{}, fmt.Errorf("invalid -cycle %d: must be 0-23", cycle)
	}
	return domain.NewModelRun(d, cycle), nil
}

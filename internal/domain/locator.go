package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// ProbeFunc confirms that the object at path exists and honours range
// requests. Only a partial-content response counts as confirmation.
type ProbeFunc func(ctx context.Context, path string) (bool, error)

// Candidates lists the runs RunLocator tries, most recent first.
func Candidates(m Model) []ModelRun {
	plan := m.Probe
	t := Now().Add(plan.Lead)

	runs := make([]ModelRun, 0, plan.Iterations*max(len(plan.Cycles), 1))
	for range plan.Iterations {
		if len(plan.Cycles) == 0 {
			runs = append(runs, NewModelRun(t, t.Hour()))
		} else {
			for _, cycle := range plan.Cycles {
				runs = append(runs, NewModelRun(t, cycle))
			}
		}
		t = t.Add(-plan.Stride)
	}
	return runs
}

// FindLatestRun walks the candidate runs in order and returns the first whose
// far-horizon index object is confirmed. Probe errors reject only that
// candidate. The walk is sequential so the most recent confirmation wins.
func FindLatestRun(ctx context.Context, m Model, probe ProbeFunc, logger *slog.Logger) (ModelRun, error) {
	candidates := Candidates(m)
	for _, run := range candidates {
		if err := ctx.Err(); err != nil {
			return ModelRun{}, err
		}
		path := m.IndexPath(run, m.Probe.CheckHour)
		ok, err := probe(ctx, path)
		if err != nil {
			logger.Debug("run probe failed", "model", m.Key, "run", run.String(), "path", path, "error", err)
			continue
		}
		if ok {
			logger.Info("latest run located", "model", m.Key, "run", run.String())
			return run, nil
		}
		logger.Debug("run not confirmed", "model", m.Key, "run", run.String(), "path", path)
	}
	return ModelRun{}, fmt.Errorf("%w: %s after %d candidates", ErrRunNotFound, m.Key, len(candidates))
}

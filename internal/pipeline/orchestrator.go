package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
)

// Source reads forecast objects for one model's bucket.
type Source interface {
	Probe(ctx context.Context, path string) (bool, error)
	FetchIndex(ctx context.Context, path string) (string, error)
	FetchRange(ctx context.Context, path string, r domain.ByteRange) ([]byte, error)
}

// Decoder turns one GRIB2 message into a grid.
type Decoder interface {
	Decode(ctx context.Context, msg []byte) (domain.DecodedGrid, error)
}

// EventPublisher emits pipeline events to an external stream.
type EventPublisher interface {
	PublishRunDiscovered(ctx context.Context, e domain.RunDiscovered) error
	PublishRenderCompleted(ctx context.Context, e domain.RenderCompleted) error
}

// RunRecorder keeps run and render history.
type RunRecorder interface {
	RecordRun(ctx context.Context, e domain.RunDiscovered) error
	RecordRender(ctx context.Context, e domain.RenderCompleted) error
}

// Orchestrator runs the locate, index, fetch, decode and render stages for
// the enabled models.
type Orchestrator struct {
	models  []domain.Model
	sources map[string]Source
	decoder Decoder
	events  EventPublisher
	history RunRecorder
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	latest map[string]domain.ModelRun

	// shared guards one-shot requests per model, which have no session.
	shared map[string]*atomic.Bool
}

// NewOrchestrator wires the stages. sources is keyed by model key; events
// and history may be nil.
func NewOrchestrator(models []domain.Model, sources map[string]Source, dec Decoder, events EventPublisher, history RunRecorder, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	shared := make(map[string]*atomic.Bool, len(models))
	for _, m := range models {
		shared[m.Key] = new(atomic.Bool)
	}
	return &Orchestrator{
		models:  models,
		sources: sources,
		decoder: dec,
		events:  events,
		history: history,
		logger:  logger,
		metrics: metrics,
		latest:  make(map[string]domain.ModelRun),
		shared:  shared,
	}
}

// Models returns the enabled models in configuration order.
func (o *Orchestrator) Models() []domain.Model {
	return o.models
}

// Model looks up an enabled model by key.
func (o *Orchestrator) Model(key string) (domain.Model, error) {
	for _, m := range o.models {
		if m.Key == key {
			return m, nil
		}
	}
	return domain.Model{}, fmt.Errorf("%w: %q", domain.ErrUnknownModel, key)
}

// LatestRun returns the most recently located run for model.
func (o *Orchestrator) LatestRun(model string) (domain.ModelRun, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	run, ok := o.latest[model]
	return run, ok
}

// LocateRun probes for the newest published run of m and remembers it.
// A run newer than the remembered one is published and recorded; an older
// result leaves the remembered run in place and returns it.
func (o *Orchestrator) LocateRun(ctx context.Context, m domain.Model) (domain.ModelRun, error) {
	src, err := o.source(m.Key)
	if err != nil {
		return domain.ModelRun{}, err
	}

	probe := func(ctx context.Context, path string) (bool, error) {
		ok, err := src.Probe(ctx, path)
		switch {
		case err != nil:
			o.metrics.RunProbes.WithLabelValues(m.Key, "error").Inc()
		case ok:
			o.metrics.RunProbes.WithLabelValues(m.Key, "confirmed").Inc()
		default:
			o.metrics.RunProbes.WithLabelValues(m.Key, "rejected").Inc()
		}
		return ok, err
	}

	run, err := domain.FindLatestRun(ctx, m, probe, o.logger)
	if err != nil {
		return domain.ModelRun{}, domain.NewStageError(domain.StageRun, 0, err)
	}

	o.mu.Lock()
	prev, seen := o.latest[m.Key]
	newer := !seen || run.Epoch().After(prev.Epoch())
	if newer {
		o.latest[m.Key] = run
	}
	o.mu.Unlock()

	if !newer {
		// A failed probe on the newest run confirms an older one; keep the newest.
		if !run.Equal(prev) {
			o.logger.Warn("located run is older than the known run",
				"model", m.Key, "located", run.String(), "known", prev.String())
		}
		return prev, nil
	}

	o.metrics.RunsDiscovered.WithLabelValues(m.Key).Inc()
	o.announceRun(ctx, domain.NewRunDiscovered(m.Key, run))
	return run, nil
}

// EnsureRun returns the remembered run for m, locating one if none is known.
func (o *Orchestrator) EnsureRun(ctx context.Context, m domain.Model) (domain.ModelRun, error) {
	if run, ok := o.LatestRun(m.Key); ok {
		return run, nil
	}
	return o.LocateRun(ctx, m)
}

// NewSession starts a viewer session on the latest run of model.
func (o *Orchestrator) NewSession(ctx context.Context, model string) (*domain.Session, error) {
	m, err := o.Model(model)
	if err != nil {
		return nil, err
	}
	run, err := o.EnsureRun(ctx, m)
	if err != nil {
		return nil, err
	}
	return domain.NewSession(m, run), nil
}

// Render produces the raster for the session's current run, variable and
// time. A second render on a session that already has one in flight is
// dropped with ErrRenderInProgress.
func (o *Orchestrator) Render(ctx context.Context, s *domain.Session) (domain.RasterResult, error) {
	m := s.Model()
	run, v, fh := s.Request()
	if !s.TryBegin() {
		return domain.RasterResult{}, o.drop(ctx, m, run, v, fh)
	}
	defer s.End()

	return o.RenderAt(ctx, m, run, v, fh)
}

// RenderShared renders the session's current request under the model's
// shared guard instead of the session's own. One-shot requests use it, so
// at most one of them per model is in flight and the rest are dropped.
func (o *Orchestrator) RenderShared(ctx context.Context, s *domain.Session) (domain.RasterResult, error) {
	m := s.Model()
	run, v, fh := s.Request()
	release, err := o.acquire(ctx, m, run, v, fh)
	if err != nil {
		return domain.RasterResult{}, err
	}
	defer release()

	return o.RenderAt(ctx, m, run, v, fh)
}

// acquire takes the shared guard of m, dropping the request when it is held.
func (o *Orchestrator) acquire(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int) (func(), error) {
	guard, ok := o.shared[m.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownModel, m.Key)
	}
	if !guard.CompareAndSwap(false, true) {
		return nil, o.drop(ctx, m, run, v, fh)
	}
	return func() { guard.Store(false) }, nil
}

// drop counts and announces a request rejected by an in-flight guard.
func (o *Orchestrator) drop(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int) error {
	o.metrics.RendersDropped.WithLabelValues(m.Key).Inc()
	o.logger.Debug("render dropped", "model", m.Key, "run", run.String(), "variable", v.Key, "forecast_hour", fh)

	event := renderEvent(m, run, v, fh)
	event.Outcome = domain.OutcomeDropped
	event.Error = domain.ErrRenderInProgress.Error()
	o.announceRender(ctx, event)
	return domain.ErrRenderInProgress
}

// RenderAt renders one variable at forecast hour fh of run without a session.
func (o *Orchestrator) RenderAt(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int) (domain.RasterResult, error) {
	start := time.Now()

	result, err := o.render(ctx, m, run, v, fh)
	elapsed := time.Since(start)
	o.metrics.RenderDuration.WithLabelValues(m.Key).Observe(elapsed.Seconds())

	event := renderEvent(m, run, v, fh)
	event.DurationMS = elapsed.Milliseconds()
	if err != nil {
		event.Outcome = domain.OutcomeError
		event.Error = err.Error()
		o.logger.Warn("render failed",
			"model", m.Key,
			"run", run.String(),
			"variable", v.Key,
			"forecast_hour", fh,
			"error", err,
		)
	} else {
		event.Width, event.Height = result.Width, result.Height
		o.logger.Info("render complete",
			"model", m.Key,
			"run", run.String(),
			"variable", v.Key,
			"forecast_hour", fh,
			"duration", elapsed,
		)
	}
	o.metrics.Renders.WithLabelValues(m.Key, event.Outcome).Inc()
	o.announceRender(ctx, event)

	return result, err
}

func renderEvent(m domain.Model, run domain.ModelRun, v domain.Variable, fh int) domain.RenderCompleted {
	return domain.RenderCompleted{
		Model:        m.Key,
		RunDate:      run.Date.Format("2006-01-02"),
		Cycle:        run.Cycle,
		Variable:     v.Key,
		ForecastHour: fh,
		Outcome:      domain.OutcomeSuccess,
		RenderedAt:   domain.Now(),
	}
}

func (o *Orchestrator) render(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int) (domain.RasterResult, error) {
	g, err := o.Fetch(ctx, m, run, v, fh)
	if err != nil {
		return domain.RasterResult{}, err
	}
	result, err := domain.Rasterize(m, v, g)
	if err != nil {
		return domain.RasterResult{}, domain.NewStageError(domain.StageRender, fh, err)
	}
	result.Run = run
	result.ForecastHour = fh
	return result, nil
}

// Fetch resolves, downloads and decodes the message for v at forecast hour fh.
func (o *Orchestrator) Fetch(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int) (domain.DecodedGrid, error) {
	src, err := o.source(m.Key)
	if err != nil {
		return domain.DecodedGrid{}, err
	}
	path := m.ObjectPath(run, fh)

	text, err := src.FetchIndex(ctx, m.IndexPath(run, fh))
	if err != nil {
		return domain.DecodedGrid{}, domain.NewStageError(domain.StageIndex, fh, err)
	}
	r, err := domain.ResolveVariable(text, v)
	if err != nil {
		return domain.DecodedGrid{}, domain.NewStageError(domain.StageIndex, fh, err)
	}

	msg, err := src.FetchRange(ctx, path, r)
	if err != nil {
		return domain.DecodedGrid{}, domain.NewStageError(domain.StageFetch, fh, err)
	}

	g, err := o.decoder.Decode(ctx, msg)
	if err != nil {
		if !errors.Is(err, domain.ErrGridMismatch) && !errors.Is(err, domain.ErrDecodeFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrDecodeFailure, err)
		}
		return domain.DecodedGrid{}, domain.NewStageError(domain.StageDecode, fh, err)
	}
	if err := g.Validate(); err != nil {
		return domain.DecodedGrid{}, domain.NewStageError(domain.StageDecode, fh, err)
	}
	return g, nil
}

// Sample fetches v at forecast hour fh once and samples every point against
// it. It shares the model's one-shot guard with RenderShared.
func (o *Orchestrator) Sample(ctx context.Context, m domain.Model, run domain.ModelRun, v domain.Variable, fh int, points []domain.LatLon) ([]domain.PointSample, error) {
	release, err := o.acquire(ctx, m, run, v, fh)
	if err != nil {
		return nil, err
	}
	defer release()

	g, err := o.Fetch(ctx, m, run, v, fh)
	if err != nil {
		return nil, err
	}
	return domain.SamplePoints(m, v, g, points), nil
}

func (o *Orchestrator) source(model string) (Source, error) {
	src, ok := o.sources[model]
	if !ok {
		return nil, fmt.Errorf("%w: no source for %q", domain.ErrUnknownModel, model)
	}
	return src, nil
}

// announceRun publishes and records a discovered run. Failures are logged only.
func (o *Orchestrator) announceRun(ctx context.Context, e domain.RunDiscovered) {
	if o.events != nil {
		if err := o.events.PublishRunDiscovered(ctx, e); err != nil {
			o.logger.Warn("publish run discovered failed", "model", e.Model, "error", err)
		}
	}
	if o.history != nil {
		if err := o.history.RecordRun(ctx, e); err != nil {
			o.logger.Warn("record run failed", "model", e.Model, "error", err)
		}
	}
}

// announceRender publishes and records a render outcome. Failures are logged only.
func (o *Orchestrator) announceRender(ctx context.Context, e domain.RenderCompleted) {
	if o.events != nil {
		if err := o.events.PublishRenderCompleted(ctx, e); err != nil {
			o.logger.Warn("publish render completed failed", "model", e.Model, "error", err)
		}
	}
	if o.history != nil {
		if err := o.history.RecordRender(ctx, e); err != nil {
			o.logger.Warn("record render failed", "model", e.Model, "error", err)
		}
	}
}

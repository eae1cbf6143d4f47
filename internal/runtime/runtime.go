package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/reach/internal/guard"
	"github.com/felixgeelhaar/reach/internal/observe"
	"github.com/felixgeelhaar/reach/internal/solver"
	"github.com/felixgeelhaar/reach/internal/store"
	"github.com/felixgeelhaar/reach/internal/ui"
)

var (
	// ErrComputationFailed marks a solve that broke down instead of
	// finishing. It wraps the underlying cause.
	ErrComputationFailed = errors.New("computation failed")
	// ErrSuperseded marks a solve cancelled because a newer one was submitted.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrInvalidRequest marks a request rejected by the guard.
	ErrInvalidRequest = errors.New("invalid request")
)

// Runtime runs solves and records them.
type Runtime struct {
	store   store.Storage
	guard   *guard.Guard
	observe *observe.Observer
	events  *EventBus
	state   *StateManager
	metrics *Metrics
	ui      ui.UI

	// engine is solver.Solve outside tests.
	engine func(context.Context, solver.Config) (solver.Result, error)
}

// New creates a runtime. s may be nil to run without persistence.
func New(s store.Storage, g *guard.Guard, o *observe.Observer) *Runtime {
	return &Runtime{
		store:   s,
		guard:   g,
		observe: o,
		events:  NewEventBus(),
		state:   NewStateManager(s),
		metrics: NewMetrics(prometheus.NewRegistry()),
		ui:      ui.SilentUI{},
		engine:  solver.Solve,
	}
}

func (r *Runtime) SetUI(u ui.UI) {
	if u != nil {
		r.ui = u
	}
}

// SetMetrics replaces the default private-registry metrics.
func (r *Runtime) SetMetrics(m *Metrics) {
	if m != nil {
		r.metrics = m
	}
}

// Events returns the runtime's event bus.
func (r *Runtime) Events() *EventBus { return r.events }

// State returns the runtime's solve state manager.
func (r *Runtime) State() *StateManager { return r.state }

// Metrics returns the runtime's collectors.
func (r *Runtime) Metrics() *Metrics { return r.metrics }

// Solve runs one request to completion on the calling goroutine.
func (r *Runtime) Solve(ctx context.Context, req Request) (Response, error) {
	return r.solve(ctx, 0, req)
}

func (r *Runtime) solve(ctx context.Context, generation uint64, req Request) (resp Response, err error) {
	if v := r.guard.CheckRequest(req.Numbers, req.Target, int(req.Level)); v != nil {
		r.events.Publish(Event{Type: EventGuardViolation, Rule: v.Rule, Err: v.Message})
		r.metrics.Record(OutcomeRejected, req.Level, 0, 0)
		return Response{}, fmt.Errorf("%w: %s", ErrInvalidRequest, v.Message)
	}

	id := uuid.NewString()
	log := r.observe.Log().With().Str("solve", id).Logger()

	ctx, span := r.observe.StartSpan(ctx, "runtime.solve",
		attribute.String("solve.id", id),
		attribute.Int("solve.numbers", len(req.Numbers)),
		attribute.Float64("solve.target", req.Target),
		attribute.Int("solve.level", int(req.Level)),
	)
	defer func() { observe.EndSpan(span, err) }()

	r.state.InitSolve(id, generation)
	defer r.state.CleanupSolve(id)
	r.recordStart(id, req)
	r.events.Publish(Event{Type: EventSolveStarted, SolveID: id, Generation: generation})
	r.ui.UpdateStatus("solving")
	r.metrics.InFlight.Inc()
	defer r.metrics.InFlight.Dec()

	log.Info().Int("numbers", len(req.Numbers)).Int("level", int(req.Level)).Msg("solve started")
	started := time.Now()

	res, err := r.run(ctx, id, req)
	elapsed := time.Since(started)

	if err != nil {
		status, outcome, event := store.StatusFailed, OutcomeFailed, EventSolveFailed
		if errors.Is(err, ErrSuperseded) {
			status, outcome, event = store.StatusSuperseded, OutcomeSuperseded, EventSolveSuperseded
			log.Info().Msg("solve superseded")
		} else {
			log.Error().Err(err).Msg("solve failed")
		}
		r.state.Finish(id, status, res.Stats.States, 0)
		r.persist(id, nil)
		r.metrics.Record(outcome, req.Level, elapsed, res.Stats.States)
		r.events.Publish(Event{Type: event, SolveID: id, Generation: generation, States: res.Stats.States, Err: err.Error()})
		r.ui.UpdateStatus(status)
		return Response{ID: id, Stats: res.Stats}, err
	}

	resp = NewResponse(res)
	resp.ID = id

	outcome := OutcomeUnsolved
	if res.Solved() {
		outcome = OutcomeSolved
	}
	log.Info().
		Int("solutions", len(resp.Solutions)).
		Int("states", res.Stats.States).
		Str("elapsed", elapsed.String()).
		Msg("solve completed")

	r.state.Finish(id, store.StatusCompleted, res.Stats.States, len(resp.Solutions))
	r.saveResults(id, resp)
	r.metrics.Record(outcome, req.Level, elapsed, res.Stats.States)
	r.events.Publish(Event{
		Type:       EventSolveCompleted,
		SolveID:    id,
		Generation: generation,
		States:     res.Stats.States,
		Solutions:  len(resp.Solutions),
	})
	r.ui.UpdateStatus(store.StatusCompleted)
	return resp, nil
}

// run calls the engine, turning a panic or an engine error into
// ErrComputationFailed and a supersede cancellation into ErrSuperseded.
func (r *Runtime) run(ctx context.Context, id string, req Request) (res solver.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrComputationFailed, p)
		}
	}()

	ctx, span := r.observe.StartSpan(ctx, "solver.solve")
	defer func() { observe.EndSpan(span, err) }()

	res, err = r.engine(ctx, solver.Config{
		Numbers: req.Numbers,
		Target:  req.Target,
		Level:   req.Level,
		Progress: func(s solver.Stats) {
			r.state.SetProgress(id, s.States)
			r.ui.UpdateProgress(s.States)
			r.events.Publish(Event{Type: EventSolveProgress, SolveID: id, States: s.States})
		},
	})
	if err == nil {
		return res, nil
	}

	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		return res, fmt.Errorf("solve %s: %w", id, ErrSuperseded)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("solve %s: %w", id, err)
	}
	return res, fmt.Errorf("%w: %v", ErrComputationFailed, err)
}

func (r *Runtime) recordStart(id string, req Request) {
	if r.store == nil {
		return
	}
	now := time.Now()
	err := r.store.CreateSolve(&store.Solve{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    store.StatusRunning,
		Numbers:   req.Numbers,
		Target:    req.Target,
		Level:     int(req.Level),
		Metadata:  map[string]string{"level_name": req.Level.String()},
	})
	if err != nil {
		r.observe.Log().Warn().Str("solve", id).Err(err).Msg("failed to record solve")
	}
}

func (r *Runtime) persist(id string, update func(*store.Solve)) {
	if err := r.state.PersistSolve(id, update); err != nil {
		r.observe.Log().Warn().Str("solve", id).Err(err).Msg("failed to persist solve")
	}
}

// saveResults writes the ranked solutions, the final solve row and the full
// response as an artifact.
func (r *Runtime) saveResults(id string, resp Response) {
	if r.store == nil {
		return
	}

	sols := make([]store.Solution, len(resp.Solutions))
	for i, s := range resp.Solutions {
		sols[i] = store.Solution{SolveID: id, Rendering: s.Rendering, Value: float64(s.Value), Complexity: float64(s.Complexity)}
	}
	if err := r.store.SaveSolutions(id, sols); err != nil {
		r.observe.Log().Warn().Str("solve", id).Err(err).Msg("failed to save solutions")
	}

	r.persist(id, func(s *store.Solve) {
		s.SolutionCount = len(resp.Solutions)
		if len(resp.Solutions) > 0 {
			s.Best = resp.Solutions[0].Rendering
		}
		if !resp.Closest.Unreached() {
			s.Closest = resp.Closest.Rendering
		}
	})

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		r.observe.Log().Warn().Str("solve", id).Err(err).Msg("failed to encode response")
		return
	}
	art := &store.Artifact{
		ID:        uuid.NewString(),
		SolveID:   id,
		Path:      filepath.Join(id, "response.json"),
		Type:      "response",
		CreatedAt: time.Now(),
	}
	if err := r.store.SaveArtifact(art, data); err != nil {
		r.observe.Log().Warn().Str("solve", id).Err(err).Msg("failed to save response artifact")
	}
}

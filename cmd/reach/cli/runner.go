package cli

import (
	"context"

	"github.com/felixgeelhaar/reach/internal/guard"
	"github.com/felixgeelhaar/reach/internal/observe"
	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/store"
	"github.com/felixgeelhaar/reach/internal/ui"
)

// Runner wires the runtime for the command line. Store may be nil to skip
// persistence.
type Runner struct {
	Observer *observe.Observer
	Store    store.Storage
	UI       ui.UI

	rt *runtime.Runtime
}

func NewRunner(obs *observe.Observer, s store.Storage, u ui.UI, m *runtime.Metrics) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	rt := runtime.New(s, guard.New(guard.DefaultPolicy), obs)
	rt.SetUI(u)
	rt.SetMetrics(m)
	return &Runner{
		Observer: obs,
		Store:    s,
		UI:       u,
		rt:       rt,
	}
}

// Runtime returns the runtime the runner solves with.
func (r *Runner) Runtime() *runtime.Runtime {
	return r.rt
}

func (r *Runner) Solve(ctx context.Context, req runtime.Request) (runtime.Response, error) {
	r.Observer.Log().Info().
		Int("numbers", len(req.Numbers)).
		Str("target", render.Value(req.Target)).
		Str("level", req.Level.String()).
		Msg("solving")

	return r.rt.Solve(ctx, req)
}

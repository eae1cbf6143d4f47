package runtime

import (
	"context"
	"sync"
)

// Outcome is what a submission finally produced.
type Outcome struct {
	Generation uint64
	Response   Response
	Err        error
}

// Ticket identifies one submission. Its channel yields the outcome only if
// no newer submission was made in the meantime; otherwise it is closed
// without a value.
type Ticket struct {
	Generation uint64
	done       chan Outcome
}

// Done returns the channel that receives the submission's outcome.
func (t Ticket) Done() <-chan Outcome {
	return t.done
}

// Wait blocks until the outcome arrives, the submission is superseded, or
// ctx is done.
func (t Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case o, ok := <-t.done:
		if !ok {
			return Outcome{Generation: t.Generation}, ErrSuperseded
		}
		return o, o.Err
	case <-ctx.Done():
		return Outcome{Generation: t.Generation}, ctx.Err()
	}
}

// Dispatcher runs one solve at a time off the caller's goroutine. Each
// submission cancels the one before it, and results of superseded
// submissions are never delivered.
type Dispatcher struct {
	rt *Runtime

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelCauseFunc
	wg         sync.WaitGroup
}

func NewDispatcher(rt *Runtime) *Dispatcher {
	return &Dispatcher{rt: rt}
}

// Submit starts solving req on a new goroutine and supersedes any solve
// still in progress.
func (d *Dispatcher) Submit(ctx context.Context, req Request) Ticket {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel(ErrSuperseded)
	}
	d.generation++
	gen := d.generation
	runCtx, cancel := context.WithCancelCause(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	t := Ticket{Generation: gen, done: make(chan Outcome, 1)}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel(nil)
		resp, err := d.rt.solve(runCtx, gen, req)
		d.deliver(t, Outcome{Generation: gen, Response: resp, Err: err})
	}()

	return t
}

// Current returns the generation of the latest submission.
func (d *Dispatcher) Current() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// Cancel supersedes the running solve without starting a new one.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel(ErrSuperseded)
		d.cancel = nil
	}
	d.generation++
}

// Close cancels any running solve and waits for its goroutine to exit.
func (d *Dispatcher) Close() {
	d.Cancel()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(t Ticket, o Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o.Generation == d.generation {
		t.done <- o
	}
	close(t.done)
}

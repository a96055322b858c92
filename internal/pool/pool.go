// Package pool dispatches parse/highlight requests to a fixed set of worker
// goroutines, round-robin, each worker running the internal/engine pipeline
// synchronously and replying on a per-request channel. Grounded on the
// round-robin worker dispatch spec.md describes for the compute pool; the
// batch helper follows the pack's use of golang.org/x/sync/errgroup for
// fan-out-and-await.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/thehowl/prdiff/internal/diffmodel"
	"github.com/thehowl/prdiff/internal/engine"
)

// ErrTerminated is returned, wrapped in an *engine.Error of kind
// ErrWorkerFailed, for every request whose hand-off to a worker is still
// waiting at, or starts after, a call to Pool.Terminate. A request a worker
// has already accepted is not cancelled and still receives its result.
var ErrTerminated = errors.New("pool: terminated")

type job struct {
	ctx    context.Context
	parse  *engine.ParseDiffInput
	hl     *engine.HighlightLinesInput
	result chan<- result
}

type result struct {
	parsed *diffmodel.ParsedDiff
	lines  []diffmodel.Line
	err    error
}

// Pool is a fixed set of worker goroutines processing jobs submitted via
// ParseDiff/HighlightLines/ParseDiffBatch.
type Pool struct {
	workers []chan job
	next    atomic.Uint64

	mu          sync.Mutex
	terminated  bool
	done        chan struct{}
}

// New starts a pool with n workers. n is clamped to max(n, 4), matching
// spec.md's default worker count when the caller passes runtime.NumCPU().
func New(n int) *Pool {
	if n < 4 {
		n = 4
	}
	p := &Pool{
		workers: make([]chan job, n),
		done:    make(chan struct{}),
	}
	for i := range p.workers {
		ch := make(chan job)
		p.workers[i] = ch
		go p.run(ch)
	}
	return p
}

func (p *Pool) run(jobs chan job) {
	for j := range jobs {
		var r result
		switch {
		case j.parse != nil:
			r.parsed, r.err = engine.ParseDiff(*j.parse)
		case j.hl != nil:
			r.lines, r.err = engine.HighlightLines(*j.hl)
		}
		select {
		case j.result <- r:
		case <-j.ctx.Done():
		}
	}
}

// dispatch picks the next worker round-robin and blocks until it accepts the
// job or the pool is terminated.
func (p *Pool) dispatch(ctx context.Context, j job) error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return ErrTerminated
	}
	idx := p.next.Add(1) - 1
	ch := p.workers[idx%uint64(len(p.workers))]
	p.mu.Unlock()

	select {
	case ch <- j:
		return nil
	case <-p.done:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseDiff submits one parse request and waits for its reply.
func (p *Pool) ParseDiff(ctx context.Context, in engine.ParseDiffInput) (*diffmodel.ParsedDiff, error) {
	reply := make(chan result, 1)
	if err := p.dispatch(ctx, job{ctx: ctx, parse: &in, result: reply}); err != nil {
		return nil, &engine.Error{Kind: engine.ErrWorkerFailed, Err: err}
	}
	select {
	case r := <-reply:
		return r.parsed, r.err
	case <-ctx.Done():
		return nil, &engine.Error{Kind: engine.ErrWorkerFailed, Err: ctx.Err()}
	}
}

// HighlightLines submits one highlight request and waits for its reply.
func (p *Pool) HighlightLines(ctx context.Context, in engine.HighlightLinesInput) ([]diffmodel.Line, error) {
	reply := make(chan result, 1)
	if err := p.dispatch(ctx, job{ctx: ctx, hl: &in, result: reply}); err != nil {
		return nil, &engine.Error{Kind: engine.ErrWorkerFailed, Err: err}
	}
	select {
	case r := <-reply:
		return r.lines, r.err
	case <-ctx.Done():
		return nil, &engine.Error{Kind: engine.ErrWorkerFailed, Err: ctx.Err()}
	}
}

// ParseDiffBatch fans out requests across the pool and awaits all of them. A
// single request's failure does not cancel the others; it is returned at its
// own index.
func (p *Pool) ParseDiffBatch(ctx context.Context, ins []engine.ParseDiffInput) ([]*diffmodel.ParsedDiff, []error) {
	out := make([]*diffmodel.ParsedDiff, len(ins))
	errs := make([]error, len(ins))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range ins {
		i, in := i, in
		g.Go(func() error {
			r, err := p.ParseDiff(gctx, in)
			out[i], errs[i] = r, err
			return nil // per-request errors are returned in errs, not via errgroup
		})
	}
	_ = g.Wait()
	return out, errs
}

// Terminate closes every worker's input channel and causes every pending and
// future dispatch to fail with ErrTerminated.
func (p *Pool) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return
	}
	p.terminated = true
	close(p.done)
	for _, ch := range p.workers {
		close(ch)
	}
}

// Package gstack stands in for the growable-stack allocator collaborator:
// reservation, on-demand paging and guard pages have no meaning for a
// goroutine, whose stack the Go runtime already grows and shrinks on
// demand, but the *capacity* and *delayed release* contract the control
// engine depends on still needs a concrete implementation. A Pool reserves
// and releases that capacity; a Stack is the handle a Prompt owns and enters
// exactly once.
package gstack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Config mirrors the recognized options of gstack_init(config): the only
// ones with a meaningful Go analogue are the capacity bound and the
// exception-propagation opt-in; the rest (guard pages, on-demand paging,
// commit size) are paging details the Go runtime already owns.
type Config struct {
	// MaxStacks bounds the number of simultaneously reserved stacks. Zero
	// means unbounded.
	MaxStacks int

	// DisableExceptionPropagation turns off the delayed-free path normally
	// used while a panic is unwinding across a prompt boundary. Leave this
	// false (the default); it exists only to measure the cost of that path.
	DisableExceptionPropagation bool
}

// Pool reserves and releases growable-stack capacity.
type Pool struct {
	cfg Config
	sem *semaphore.Weighted

	mu       sync.Mutex
	pending  []*Stack
	released int64
}

// Stats reports pool-level bookkeeping the original leaves as internal
// detail; exposed here so a caller can observe that delayed releases are
// eventually reclaimed rather than leaked.
type Stats struct {
	PendingRelease int
	Released       int64
}

// New creates a Pool from cfg. A zero Config is a usable, unbounded pool.
func New(cfg Config) *Pool {
	max := cfg.MaxStacks
	if max <= 0 {
		max = 1 << 30
	}
	return &Pool{cfg: cfg, sem: semaphore.NewWeighted(int64(max))}
}

// Stack is a reserved growable stack. The zero value is not usable; obtain
// one from Pool.Alloc.
type Stack struct {
	pool  *Pool
	freed atomic.Bool
}

// Alloc reserves a stack, first draining any stacks that were freed with
// delay set, since the "next allocation" is the documented safe point at
// which a delayed release becomes physical.
func (p *Pool) Alloc() (*Stack, error) {
	p.drainPending()
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		slog.Error("mprompt: failed to reserve a growable stack", "error", err)
		return nil, fmt.Errorf("gstack: reserve failed: %w", err)
	}
	return &Stack{pool: p}, nil
}

// Enter switches logical execution onto s by running fn on a freshly spawned
// goroutine. It does not return a value; the engine communicates results
// back across a regctx.Point passed inside fn's closure.
func (s *Stack) Enter(fn func()) {
	go fn()
}

// Free releases s. When delay is set, physical release is deferred to the
// pool's next Alloc, matching the original's "defer physical release past
// the current stack-switch" contract used while unwinding a panic through
// the stack being freed.
func (s *Stack) Free(delay bool) {
	if s.freed.Load() {
		return
	}
	if delay && !s.pool.cfg.DisableExceptionPropagation {
		s.pool.mu.Lock()
		s.pool.pending = append(s.pool.pending, s)
		s.pool.mu.Unlock()
		return
	}
	s.release()
}

func (s *Stack) release() {
	if !s.freed.CompareAndSwap(false, true) {
		return
	}
	s.pool.sem.Release(1)
	atomic.AddInt64(&s.pool.released, 1)
}

func (p *Pool) drainPending() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, s := range pending {
		s.release()
	}
}

// Stats reports the pool's current bookkeeping.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	n := len(p.pending)
	p.mu.Unlock()
	return Stats{PendingRelease: n, Released: atomic.LoadInt64(&p.released)}
}

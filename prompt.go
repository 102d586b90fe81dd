package mprompt

import (
	"github.com/gopromptly/mprompt/internal/gstack"
	"github.com/gopromptly/mprompt/internal/regctx"
)

// Prompt represents one delimited stack segment: a goroutine, parked or
// running, together with the bookkeeping needed to link and unlink it from
// an active chain. A Prompt does not own a fixed chain: which chain it
// joins is decided by whoever resumes it, exactly as the original's
// current_top is thread-local rather than prompt-local.
type Prompt struct {
	parent *Prompt // back-link toward the root of the active chain; nil when suspended or root
	top    *Prompt // when suspended, the top of this prompt's own suspended sub-chain; nil when active

	refcount int

	gs *gstack.Stack

	returnPoint *regctx.Point // valid while active; transfers control back to the parent
	resumePoint *regctx.Point // valid while suspended with a captured execution; nil before first entry

	startFun func(p *Prompt, startArg, arg any) any
	startArg any
	initialArg any // the arg delivered on first entry, kept for multi-shot replay

	// Multi-shot replay state, see multishot.go. replayLog records, in
	// order, every value a real yield on this prompt has observed on
	// resume; replaying/replayCursor are set only on a fresh prompt
	// reconstructed by MultiResumption.restore, and consumed as that
	// prompt's body re-runs from the start.
	replayLog     []any
	replaying     bool
	replayCursor  int
}

// createPrompt allocates a growable stack via the collaborator and places a
// suspended Prompt at refcount 1, mirroring prompt_create.
func createPrompt(startFun func(p *Prompt, startArg, arg any) any, startArg any) (*Prompt, error) {
	gs, err := currentPool().Alloc()
	if err != nil {
		return nil, &AllocationError{Op: "prompt_create", Err: err}
	}
	p := &Prompt{
		refcount: 1,
		gs:       gs,
		startFun: startFun,
		startArg: startArg,
	}
	p.top = p // suspended: top names the end of its own (trivial, one-prompt) captured sub-chain
	return p, nil
}

// link puts p's captured sub-chain (p up to p.top, which is p itself for a
// lone prompt) on top of c's active chain, installing ret as p's
// return_point when ret is non-nil. It returns p's resume_point, which is
// nil on initial entry. Precondition: p is suspended and not yet released.
func (p *Prompt) link(c *chain, ret *regctx.Point) *regctx.Point {
	if p.top == nil {
		misuse("prompt_link", "prompt is already active")
	}
	if p.refcount <= 0 {
		misuse("prompt_link", "prompt has already been released")
	}
	p.parent = c.top
	c.top = p.top
	p.top = nil
	if ret != nil {
		p.returnPoint = ret
	}
	rp := p.resumePoint
	p.resumePoint = nil // consumed: stale once woken, cleared so a stray drop can't re-wake it
	return rp
}

// unlink removes p and everything above it from c's active chain, making it
// suspended again with res installed as its resume_point. Precondition: p
// is an ancestor of (or equal to) c's current top. Returns the previous
// return_point, left otherwise untouched so a tail-resume can reuse it.
func (p *Prompt) unlink(c *chain, res *regctx.Point) *regctx.Point {
	if !p.isAncestorOfTop(c) {
		misuse("prompt_unlink", "target is not an ancestor of the active top")
	}
	prev := p.returnPoint
	p.top = c.top
	c.top = p.parent
	p.parent = nil
	p.resumePoint = res
	return prev
}

func (p *Prompt) isAncestorOfTop(c *chain) bool {
	for q := c.top; q != nil; q = q.parent {
		if q == p {
			return true
		}
	}
	return false
}

func (p *Prompt) isActive() bool { return p.top == nil }

// dup increments p's reference count and returns p, matching prompt_dup.
func (p *Prompt) dup() *Prompt {
	p.refcount++
	return p
}

// drop decrements p's reference count, freeing p and recursively dropping
// the rest of its suspended sub-chain when it reaches zero. delay controls
// whether the underlying growable stack is released immediately or at the
// pool's next safe point (used while a panic is unwinding through it).
func (p *Prompt) drop(delay bool) {
	head := p.top // the far end of the captured sub-chain this handle owns, if any
	p.refcount--
	if p.refcount > 0 {
		return
	}
	if p.refcount < 0 {
		misuse("prompt_drop", "refcount went negative")
	}
	p.gs.Free(delay)
	p.wakeAbandon()
	if head != nil && head != p {
		// The original's chain-free walk decrements the next prompt's
		// refcount without checking it was exactly 1; that is only sound
		// if every intermediate suspended prompt is uniquely owned. Make
		// that precondition explicit rather than silently reproducing a
		// possible double-free.
		if head.refcount != 1 {
			misuse("prompt_drop", "intermediate suspended prompt is not uniquely owned")
		}
		head.dropChainFrom(p, delay)
	}
}

// wakeAbandon wakes p's still-parked goroutine, if it has one, so it unwinds
// and exits instead of blocking on its resume_point forever. A prompt that
// was created but never entered has no goroutine yet and no resume_point to
// wake; dropping it needs nothing beyond releasing its growable stack.
func (p *Prompt) wakeAbandon() {
	if p.resumePoint == nil {
		return
	}
	rp := p.resumePoint
	p.resumePoint = nil
	rp.Wake(regctx.Message{Kind: regctx.KindAbandon})
}

// dropChainFrom drops q and, recursively, every prompt below it in its
// captured segment (reached by following .parent, which for a suspended
// sub-chain still points toward the prompt that heads it), stopping before
// stop, the head whose own drop started the walk.
func (q *Prompt) dropChainFrom(stop *Prompt, delay bool) {
	next := q.parent
	q.refcount--
	if q.refcount > 0 {
		return
	}
	if q.refcount < 0 {
		misuse("prompt_drop", "refcount went negative")
	}
	q.gs.Free(delay)
	q.wakeAbandon()
	if next != nil && next != stop {
		if next.refcount != 1 {
			misuse("prompt_drop", "intermediate suspended prompt is not uniquely owned")
		}
		next.dropChainFrom(stop, delay)
	}
}

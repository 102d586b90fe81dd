package mprompt

// MultiResumption is a resumption that may be invoked more than once, each
// invocation observing the prompt chain's state as it was at the moment of
// capture. Unlike the original, which preserves that state by copying the
// suspended stacks' raw bytes, a goroutine's stack cannot be copied in Go;
// instead each resume either consumes the prompt's still-parked goroutine
// directly (the common, sole-owner case) or, once that goroutine has been
// consumed, reconstructs it on a fresh goroutine by replaying the cached
// results of its past yields (see restore below).
type MultiResumption struct {
	refcount    int
	resumeCount int

	prompt *Prompt

	// savedTaken distinguishes "no independent resume has happened yet"
	// from "one has, and saved is its snapshot" — saved alone cannot carry
	// that distinction, since append([]any(nil), emptySlice...) is itself
	// nil whenever the captured replay log happens to be empty, as it is
	// whenever the capture was taken at the prompt's first yield.
	savedTaken bool
	saved      []any
}

// newMultiResumption upgrades a just-yielded prompt into a multi-shot
// record, matching the fresh {refcount:=1, resume_count:=0, save:=null}
// record the dispatch step allocates.
func newMultiResumption(p *Prompt) *MultiResumption {
	return &MultiResumption{
		refcount: 1,
		prompt:   p,
	}
}

// dup increments m's reference count and returns m, matching resume_dup.
func (m *MultiResumption) dup() *MultiResumption {
	m.refcount++
	return m
}

// drop releases m's reference. When it reaches zero, the captured prompt's
// reference is dropped too, freeing its growable stack if nothing else
// still owns it.
func (m *MultiResumption) drop() {
	m.refcount--
	if m.refcount > 0 {
		return
	}
	if m.refcount < 0 {
		misuse("resume_drop", "multi-resumption refcount went negative")
	}
	if m.prompt != nil {
		m.prompt.drop(false)
		m.prompt = nil
	}
}

// resume implements the mresume policy of §4.4 for an ordinary (non-tail)
// resume, driving the resolved continuation to completion itself.
func (m *MultiResumption) resume(arg any) any {
	p, next := m.resolveNext(arg)
	return resumeTop(p, next, nil)
}

// resolveNext implements the mresume policy of §4.4's decision of which
// continuation a resume observes, without driving it: it returns the
// prompt and argument the caller should continue with, letting the caller
// decide how. resume (above) feeds the result straight into resumeTop;
// ResumeTail's tailSignal instead hands it to resumeInternal's own loop, so
// a chain of tail multi-resumes costs the same O(1) additional Go stack
// frames a chain of tail once-resumes does.
func (m *MultiResumption) resolveNext(arg any) (*Prompt, any) {
	if m.refcount <= 0 {
		misuse("resume", "multi-resumption has already been released")
	}
	m.resumeCount++

	if m.savedTaken {
		return m.restore(arg)
	}

	// No saved view exists yet, so the prompt's own goroutine is still
	// parked exactly where it yielded. If another owner might still need
	// that state preserved, snapshot it before this resume consumes it.
	if m.refcount > 1 || m.prompt.refcount > 1 {
		m.saved = append([]any(nil), m.prompt.replayLog...)
	}
	m.savedTaken = true

	p := m.prompt.dup()
	m.drop()
	return p, arg
}

// restore reconstructs the captured continuation on a fresh, not-yet-
// entered prompt, replaying m.saved's cached yield results up to the point
// of capture so that delivering arg at that exact point reproduces "each
// resume observes the state at capture" (Testable Property 6) without
// copying any goroutine stack memory.
func (m *MultiResumption) restore(arg any) (*Prompt, any) {
	p, err := createPrompt(m.prompt.startFun, m.prompt.startArg)
	if err != nil {
		panic(err)
	}
	p.replaying = true
	p.replayLog = append(append([]any(nil), m.saved...), arg)
	initialArg := m.prompt.initialArg
	m.drop()
	return p, initialArg
}

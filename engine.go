package mprompt

import "github.com/gopromptly/mprompt/internal/regctx"

// yieldPayload carries a yield's handler and argument across a return_point;
// the resumption handle itself is not part of the payload because the
// dispatching side already holds the prompt that produced it.
type yieldPayload struct {
	fun func(Resumption, any) any
	arg any
}

// tailSignal is panicked by ResumeTail to unwind out of a handler body
// without growing the Go call stack that resumeInternal's loop would
// otherwise accumulate across a long tail-resuming chain — the Go analogue
// of longjmp never returning to its caller. It carries the resumption
// handle rather than a resolved *Prompt so that once-handles and
// multi-handles share this same unwind path; resumeInternal's loop resolves
// it to a concrete prompt on the way back in.
type tailSignal struct {
	h   Resumption
	arg any
}

// Prompt creates a fresh prompt, runs fun(p, arg) on it to completion, and
// returns its result, or re-panics whatever fun panicked with. This is the
// PI transition followed immediately by whichever of P/PR/Y transitions the
// body provokes.
func Prompt(fun func(p *Prompt, arg any) any, arg any) any {
	p, err := createPrompt(func(p *Prompt, _, arg any) any {
		return fun(p, arg)
	}, nil)
	if err != nil {
		panic(err)
	}
	return resumeTop(p, arg, nil)
}

// PromptCreate creates a suspended prompt without entering it. The prompt
// is first-class: it may be resumed later, from any goroutine, any number
// of times permitted by the resumption kind it is eventually yielded as.
func PromptCreate(fun func(p *Prompt, startArg, arg any) any, startArg any) (*Prompt, error) {
	return createPrompt(fun, startArg)
}

// Resume resumes h (once or multi) with arg, returning its eventual result
// or re-panicking a propagated exception.
func Resume(h Resumption, arg any) any {
	switch v := h.(type) {
	case *Prompt:
		return resumeTop(v, arg, nil)
	case *MultiResumption:
		return v.resume(arg)
	default:
		misuse("resume", "value does not implement Resumption")
		return nil
	}
}

// ResumeTail resumes h in tail position, reusing the return point of
// whichever resume/yield dispatch is currently running on the calling
// goroutine instead of allocating a fresh one, so that an arbitrarily long
// chain of such resumes runs in bounded additional stack space. This holds
// for both once-handles and multi-handles: both unwind through the same
// tailSignal panic, caught and looped on by resumeInternal rather than
// resolved through a nested resumeTop call. It must be called from
// directly inside a Yield/YieldMulti handler, in tail position: like the
// register-context primitive it stands in for, ResumeTail never returns to
// its caller — any code written after the call is unreachable.
func ResumeTail(h Resumption, arg any) any {
	switch h.(type) {
	case *Prompt, *MultiResumption:
		panic(tailSignal{h: h, arg: arg})
	default:
		misuse("resume_tail", "value does not implement Resumption")
		return nil
	}
}

// ResumeDrop releases h's reference without resuming it. When that was the
// last reference to a prompt that has already yielded, its parked goroutine
// is woken with an abandon signal and unwinds: its deferred cleanup runs,
// but its body never continues past the yield point it is parked at.
func ResumeDrop(h Resumption) {
	switch v := h.(type) {
	case *Prompt:
		v.drop(false)
	case *MultiResumption:
		v.drop()
	default:
		misuse("resume_drop", "value does not implement Resumption")
	}
}

// ResumeDup duplicates a multi-shot handle. Once-handles cannot be
// duplicated; use YieldMulti if more than one resumption is needed.
func ResumeDup(h Resumption) Resumption {
	m, ok := AsMulti(h)
	if !ok {
		misuse("resume_dup", "use yieldm: once-handles cannot be duplicated")
	}
	return m.dup()
}

// ResumeCount reports how many times h has already been resumed; always 0
// for a once-handle.
func ResumeCount(h Resumption) int {
	if m, ok := AsMulti(h); ok {
		return m.resumeCount
	}
	return 0
}

// ShouldUnwind reports whether h is a multi-handle that is uniquely owned
// and has never been resumed, the condition under which a caller may skip
// running handler logic entirely and proceed straight to a cleanup-only
// resume.
func ShouldUnwind(h Resumption) bool {
	m, ok := AsMulti(h)
	if !ok {
		return false
	}
	return m.refcount == 1 && m.resumeCount == 0
}

// Yield transfers control from the currently executing prompt up to
// ancestor p, handing fun a once-resumption for p, whose captured sub-chain
// extends up to the current prompt. fun runs on p's own calling goroutine
// with the resumption and arg; its result (or the value ResumeTail
// ultimately produces) becomes the result of the Prompt or Resume call that
// entered p. Yield itself returns the value passed to whichever resume later
// continues this suspended chain.
func Yield(p *Prompt, fun func(Resumption, any) any, arg any) any {
	return yieldInternal(regctx.KindYieldOnce, p, fun, arg)
}

// YieldMulti is like Yield but hands the handler a multi-shot resumption
// that may be invoked more than once.
func YieldMulti(p *Prompt, fun func(Resumption, any) any, arg any) any {
	return yieldInternal(regctx.KindYieldMulti, p, fun, arg)
}

func yieldInternal(kind regctx.Kind, p *Prompt, fun func(Resumption, any) any, arg any) any {
	c := currentChain()
	if c == nil || p == nil {
		misuse("yield", "no active prompt chain")
	}

	// self is the prompt whose body is calling Yield/YieldMulti right
	// now: by the single-runner invariant it is always the active
	// chain's current top. During a multi-shot replay its past resume
	// results are cached on self.replayLog; fast-forward through them
	// instead of blocking, so a restored continuation reaches the live
	// frontier instantly.
	self := c.top
	if self != nil && self.replaying && self.replayCursor < len(self.replayLog) {
		v := self.replayLog[self.replayCursor]
		self.replayCursor++
		return v
	}

	resumePoint := regctx.New()
	ret := p.unlink(c, resumePoint)
	ret.Wake(regctx.Message{Kind: kind, Value: yieldPayload{fun: fun, arg: arg}})
	msg := resumePoint.Park()
	if msg.Kind == regctx.KindAbandon {
		abandon()
	}
	if self != nil {
		self.replayLog = append(self.replayLog, msg.Value)
		self.replayCursor = len(self.replayLog)
	}
	return msg.Value
}

// resumeTop drives p to completion (or to its next suspension) from the
// calling goroutine, joining whatever chain is already active on it, or
// starting a fresh one if none is.
func resumeTop(p *Prompt, arg any, reuseRet *regctx.Point) any {
	c := currentChain()
	owned := c == nil
	if owned {
		c = newChain()
		c.register()
		defer unregisterChain()
	}
	return resumeInternal(c, p, arg, reuseRet)
}

// resumeInternal implements prompt_resume, looping in place on tail-resume
// requests instead of recursing so that an arbitrarily long tail-resuming
// chain costs O(1) additional Go stack frames and channels.
func resumeInternal(c *chain, p *Prompt, arg any, reuseRet *regctx.Point) any {
	ret := reuseRet
	if ret == nil {
		ret = regctx.New()
	}
	for {
		resumePoint := p.link(c, ret)
		if resumePoint != nil {
			resumePoint.Wake(regctx.Message{Kind: regctx.KindResume, Value: arg})
		} else {
			spawnEntry(c, p, arg)
		}
		msg := ret.Park()
		result, tail := dispatch(msg, p)
		if tail == nil {
			return result
		}
		p, arg = resolveTail(tail.h, tail.arg)
	}
}

// resolveTail turns a tailSignal's handle into the concrete prompt and
// argument resumeInternal's loop should continue with, running whichever
// handle kind's own resume policy applies (the multi-shot snapshot-or-dup
// decision, for a *MultiResumption) without recursing into resumeTop.
func resolveTail(h Resumption, arg any) (*Prompt, any) {
	switch v := h.(type) {
	case *Prompt:
		return v, arg
	case *MultiResumption:
		return v.resolveNext(arg)
	default:
		misuse("resume_tail", "value does not implement Resumption")
		return nil, nil
	}
}

// dispatch implements the P transition's "dispatch on arrival" step.
func dispatch(msg regctx.Message, p *Prompt) (result any, tail *tailSignal) {
	switch msg.Kind {
	case regctx.KindReturn:
		p.drop(false)
		return msg.Value, nil
	case regctx.KindYieldOnce:
		payload := msg.Value.(yieldPayload)
		return invokeHandler(payload, onceHandleOf(p))
	case regctx.KindYieldMulti:
		payload := msg.Value.(yieldPayload)
		m := newMultiResumption(p)
		return invokeHandler(payload, multiHandleOf(m))
	case regctx.KindException:
		p.drop(true)
		panic(msg.Value.(panicCarrier).value)
	default:
		panic("mprompt: unreachable return_point kind")
	}
}

// invokeHandler runs a yield's handler, catching a ResumeTail panic and
// turning it back into a loop iteration in resumeInternal rather than a
// growing call stack.
func invokeHandler(payload yieldPayload, h Resumption) (result any, tail *tailSignal) {
	func() {
		defer func() {
			switch r := recover().(type) {
			case nil:
			case tailSignal:
				tail = &r
			default:
				panic(r)
			}
		}()
		result = payload.fun(h, payload.arg)
	}()
	return result, tail
}

// spawnEntry implements the entry trampoline (PI transition), running on a
// freshly entered growable stack.
func spawnEntry(c *chain, p *Prompt, arg any) {
	p.gs.Enter(func() {
		c.register()
		defer unregisterChain()
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if abandoning(r) {
				return
			}
			ret := p.unlink(c, nil)
			ret.Wake(regctx.Message{Kind: regctx.KindException, Value: panicCarrier{value: r}})
		}()

		p.initialArg = arg
		v := p.startFun(p, p.startArg, arg)
		ret := p.unlink(c, nil)
		ret.Wake(regctx.Message{Kind: regctx.KindReturn, Value: v})
	})
}

package mprompt

import "github.com/gopromptly/mprompt/internal/diag"

// Backtrace captures up to max call frames starting from the currently
// executing prompt and, if more are requested than the current goroutine's
// own stack holds, continues across prompt boundaries by yielding to the
// parent prompt with a continuation that captures there and tail-resumes
// back. This reuses the same yield/resume primitives as everything else and
// needs no new machinery, exactly as sketched in the original: Go's own
// runtime.Callers cannot walk across a goroutine boundary on its own, which
// is why the walk has to be driven explicitly rather than left to the
// runtime's unwinder.
func Backtrace(max int) []uintptr {
	p := PromptTop()
	if p == nil {
		f := diag.Capture(1, max)
		return f.PC
	}
	return backtraceFrom(p, max)
}

func backtraceFrom(p *Prompt, max int) []uintptr {
	frame := diag.Capture(2, max)
	got := frame.PC
	if len(got) >= max {
		return got
	}
	parent := PromptParent(p)
	if parent == nil {
		return got
	}
	more := YieldMulti(parent, func(k Resumption, _ any) any {
		rest := Backtrace(max - len(got))
		return ResumeTail(k, rest)
	}, nil)
	rest, _ := more.([]uintptr)
	return append(got, rest...)
}

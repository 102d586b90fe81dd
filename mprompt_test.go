package mprompt

import (
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// (a) Identity yield.
func TestIdentityYield(t *testing.T) {
	result := Prompt(func(p *Prompt, _ any) any {
		return Yield(p, func(k Resumption, x any) any {
			return Resume(k, x.(int)+1)
		}, 10)
	}, nil)

	if result != 11 {
		t.Fatalf("result = %v, want 11", result)
	}
}

// (b) Double resume.
func TestDoubleResume(t *testing.T) {
	result := Prompt(func(p *Prompt, _ any) any {
		y := YieldMulti(p, func(k Resumption, _ any) any {
			a := Resume(ResumeDup(k), 1)
			b := Resume(k, 2)
			return a.(int) + b.(int)
		}, 0)
		return 100 + y.(int)
	}, nil)

	if result != 203 {
		t.Fatalf("result = %v, want 203", result)
	}
}

// (c) Exception propagation.
func TestExceptionPropagation(t *testing.T) {
	type E struct{ msg string }

	defer func() {
		r := recover()
		e, ok := r.(E)
		if !ok {
			t.Fatalf("recovered value = %#v, want E", r)
		}
		if e.msg != "boom" {
			t.Fatalf("e.msg = %q, want %q", e.msg, "boom")
		}
	}()

	Prompt(func(p *Prompt, _ any) any {
		panic(E{msg: "boom"})
	}, nil)

	t.Fatal("Prompt should have panicked")
}

// (d) Deep tail-resume: a body that counts down by yielding, with a handler
// that answers each yield via ResumeTail, runs without growing the parent
// Go stack, however deep the chain.
func TestDeepTailResume(t *testing.T) {
	const depth = 100000

	result := Prompt(func(p *Prompt, _ any) any {
		n := depth
		for n > 0 {
			n = Yield(p, func(k Resumption, x any) any {
				return ResumeTail(k, x)
			}, n-1).(int)
		}
		return n
	}, nil)

	if result != 0 {
		t.Fatalf("result = %v, want 0", result)
	}
}

// Deep tail-resume on a multi-shot handle exercises the same O(1)
// stack-space guarantee as (d) above: a tail-resumed multi-handle loops
// through resumeInternal exactly like a tail-resumed once-handle instead of
// recursing through resumeTop, so an equally deep chain must also survive.
func TestDeepTailResumeMultiShot(t *testing.T) {
	const depth = 100000

	result := Prompt(func(p *Prompt, _ any) any {
		n := depth
		for n > 0 {
			n = YieldMulti(p, func(k Resumption, x any) any {
				return ResumeTail(k, x)
			}, n-1).(int)
		}
		return n
	}, nil)

	if result != 0 {
		t.Fatalf("result = %v, want 0", result)
	}
}

// (e) Drop without resume.
func TestDropWithoutResume(t *testing.T) {
	result := Prompt(func(p *Prompt, _ any) any {
		return Yield(p, func(k Resumption, _ any) any {
			ResumeDrop(k)
			return "done"
		}, 0)
	}, nil)

	if result != "done" {
		t.Fatalf("result = %v, want %q", result, "done")
	}
}

// (f) Nested prompts: body of the inner prompt yields to the outer one,
// not to itself; the outer handler resumes it and the inner body continues.
func TestNestedPrompts(t *testing.T) {
	var outerPrompt *Prompt
	innerResult := Prompt(func(outer *Prompt, _ any) any {
		outerPrompt = outer
		return Prompt(func(inner *Prompt, _ any) any {
			v := Yield(outerPrompt, func(k Resumption, _ any) any {
				return Resume(k, 7)
			}, nil)
			return v.(int) + 1
		}, nil)
	}, nil)

	if innerResult != 8 {
		t.Fatalf("innerResult = %v, want 8", innerResult)
	}
}

func TestResumeDupProducesIndependentResults(t *testing.T) {
	var seen []int
	Prompt(func(p *Prompt, _ any) any {
		return YieldMulti(p, func(k Resumption, _ any) any {
			a := Resume(ResumeDup(k), 1).(int)
			b := Resume(k, 2).(int)
			seen = []int{a, b}
			return nil
		}, 0)
	}, nil)

	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Fatalf("unexpected resumes (-want +got):\n%s", diff)
	}
}

func TestShouldUnwind(t *testing.T) {
	var observed bool
	Prompt(func(p *Prompt, _ any) any {
		return YieldMulti(p, func(k Resumption, _ any) any {
			observed = ShouldUnwind(k)
			ResumeDrop(k)
			return nil
		}, 0)
	}, nil)

	if !observed {
		t.Fatalf("ShouldUnwind should be true for a uniquely-owned, never-resumed multi-handle")
	}
}

// Dropping a multi-shot handle that has already been parked once before
// must unwind that goroutine rather than leaving it blocked on its
// resume_point forever.
func TestDropAfterYieldUnwindsParkedGoroutine(t *testing.T) {
	runtime.GC()
	before := runtime.NumGoroutine()

	result := Prompt(func(p *Prompt, _ any) any {
		return YieldMulti(p, func(k Resumption, _ any) any {
			ResumeDrop(k)
			return "done"
		}, nil)
	}, nil)

	if result != "done" {
		t.Fatalf("result = %v, want %q", result, "done")
	}

	var after int
	for i := 0; i < 50; i++ {
		runtime.Gosched()
		runtime.GC()
		after = runtime.NumGoroutine()
		if after <= before {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if after > before {
		t.Fatalf("goroutine count grew from %d to %d: dropped prompt's goroutine leaked", before, after)
	}
}

func TestResumeDupOnOnceHandlePanics(t *testing.T) {
	defer func() {
		r := recover()
		if _, ok := r.(*MisuseError); !ok {
			t.Fatalf("recovered value = %#v, want *MisuseError", r)
		}
	}()

	Prompt(func(p *Prompt, _ any) any {
		return Yield(p, func(k Resumption, _ any) any {
			ResumeDup(k)
			return nil
		}, 0)
	}, nil)
}

package mprompt

import "testing"

func TestBacktraceOutsideAnyPrompt(t *testing.T) {
	pc := Backtrace(4)
	if len(pc) == 0 {
		t.Fatal("Backtrace outside any prompt returned no frames")
	}
}

func TestBacktraceFromYieldHandler(t *testing.T) {
	var pc []uintptr

	Prompt(func(p *Prompt, _ any) any {
		return Yield(p, func(k Resumption, _ any) any {
			pc = Backtrace(64)
			return Resume(k, nil)
		}, nil)
	}, nil)

	if len(pc) == 0 {
		t.Fatal("Backtrace from inside a yield handler returned no frames")
	}
}

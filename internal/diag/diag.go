// Package diag stands in for the platform unwind adapter. Go's own
// runtime.Callers cannot walk past a goroutine boundary, which is exactly
// the quirk the original's unwind_frame_update hook exists to patch over on
// hosts whose unwinder consults per-thread stack extents; here that same
// limitation is the reason the cross-prompt backtrace adapter has to
// explicitly yield up the chain to collect more frames (see backtrace.go).
package diag

import "runtime"

// Frame is a captured slice of program counters for one goroutine's share
// of a cross-prompt backtrace.
type Frame struct {
	PC []uintptr
}

// Capture records up to max call frames starting skip frames above its own
// caller.
func Capture(skip, max int) *Frame {
	pc := make([]uintptr, max)
	n := runtime.Callers(skip+2, pc)
	return &Frame{PC: pc[:n]}
}

// Frames returns an iterator over the captured program counters, resolving
// them to function/file/line information.
func (f *Frame) Frames() *runtime.Frames {
	return runtime.CallersFrames(f.PC)
}

// Len reports the number of captured program counters.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.PC)
}

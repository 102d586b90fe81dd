package diag

import "testing"

func TestCaptureReportsOwnCaller(t *testing.T) {
	f := Capture(0, 8)

	if f.Len() == 0 {
		t.Fatal("Capture returned no frames")
	}

	frames := f.Frames()
	frame, _ := frames.Next()
	if frame.Function == "" {
		t.Fatal("first captured frame has no resolved function name")
	}
}

func TestCaptureRespectsMax(t *testing.T) {
	f := Capture(0, 1)
	if f.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", f.Len())
	}
}

func TestNilFrameLenIsZero(t *testing.T) {
	var f *Frame
	if f.Len() != 0 {
		t.Fatalf("Len() on nil Frame = %d, want 0", f.Len())
	}
}

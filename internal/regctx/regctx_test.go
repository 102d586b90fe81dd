package regctx

import "testing"

func TestPointRoundTrip(t *testing.T) {
	p := New()
	done := make(chan Message, 1)

	go func() {
		done <- p.Park()
	}()

	p.Wake(Message{Kind: KindResume, Value: 42})

	msg := <-done
	if msg.Kind != KindResume || msg.Value != 42 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

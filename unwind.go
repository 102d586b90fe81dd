package mprompt

// abandon unwinds a dropped prompt's goroutine without running the rest of
// its body, by panicking with a private sentinel value that spawnEntry's
// recover recognizes and swallows. Deferred calls on that goroutine still
// run as the panic unwinds, unlike the original, where frames on a dropped
// stack run no cleanup at all; no result is ever delivered anywhere.
func abandon() {
	panic(abandonSentinel)
}

var abandonSentinel = new(struct{})

// abandoning reports whether v, as returned from recover(), is the sentinel
// panicked by abandon.
func abandoning(v any) bool {
	return v == abandonSentinel
}

package mprompt

// Resumption is an opaque handle to a suspended prompt chain: invoking it
// transfers control back into the suspended code. It is implemented by
// *Prompt (an at-most-once resumption) and *MultiResumption (zero-or-more).
//
// This replaces the original's pointer-bit tag encoding of §4.1: a Go
// interface value wrapping a pointer is already a branch-predictable,
// allocation-free sum of exactly these two cases, so there is no bit trick
// to reproduce.
type Resumption interface {
	resumption()
}

func (*Prompt) resumption() {}
func (*MultiResumption) resumption() {}

// AsOnce reports whether h is an at-most-once resumption, returning the
// underlying prompt if so.
func AsOnce(h Resumption) (*Prompt, bool) {
	p, ok := h.(*Prompt)
	return p, ok
}

// AsMulti reports whether h is a multi-shot resumption, returning the
// underlying record if so.
func AsMulti(h Resumption) (*MultiResumption, bool) {
	m, ok := h.(*MultiResumption)
	return m, ok
}

func onceHandleOf(p *Prompt) Resumption { return p }

func multiHandleOf(m *MultiResumption) Resumption { return m }

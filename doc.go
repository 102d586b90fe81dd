// Package mprompt implements multi-prompt delimited control: first-class,
// resumable continuations captured across a delimited region of a
// goroutine's call stack, with at-most-once and multi-shot variants, and
// propagation of panics across prompt boundaries.
package mprompt

package mprompt

import (
	"sync"

	"github.com/gopromptly/mprompt/internal/gstack"
)

// Config configures the collaborator pool backing every prompt created
// after Init is called. Passing the zero value is valid and yields an
// unbounded pool with exception propagation enabled.
type Config struct {
	// MaxStacks bounds the number of simultaneously live prompt goroutines.
	// Zero means unbounded.
	MaxStacks int

	// DisableExceptionPropagation turns off the delayed-free path used
	// while a panic unwinds across a prompt boundary. Leave this false;
	// it exists only for measuring the cost of that path.
	DisableExceptionPropagation bool
}

var (
	poolOnce sync.Once
	pool     *gstack.Pool
)

// Init initializes the collaborator pool from cfg. It is safe to call
// concurrently; only the first call takes effect, matching the original's
// one-time gstack_init(config) contract. Creating a prompt before any call
// to Init initializes the pool from the zero Config, after which Init has
// no effect.
func Init(cfg Config) {
	poolOnce.Do(func() {
		pool = gstack.New(gstack.Config{
			MaxStacks:                   cfg.MaxStacks,
			DisableExceptionPropagation: cfg.DisableExceptionPropagation,
		})
	})
}

func currentPool() *gstack.Pool {
	poolOnce.Do(func() {
		pool = gstack.New(gstack.Config{})
	})
	return pool
}

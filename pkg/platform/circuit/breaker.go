// Package circuit counts consecutive outcomes against a shared dependency and
// tells callers when to switch to a local fallback.
package circuit

import "sync"

type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange is non-zero only on the call that caused a transition.
type StateChange struct {
	Opened bool
	Closed bool
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
)

// Breaker opens after failureThreshold consecutive failures and closes again
// after successThreshold consecutive successes observed while open.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int
	listener         func(State)

	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithStateListener registers fn to run after every transition. fn is called
// outside the breaker lock and must not block.
func WithStateListener(fn func(State)) Option {
	return func(b *Breaker) {
		b.listener = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordFailure reports whether the caller should use its fallback.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	b.successes = 0
	b.failures++
	switch {
	case b.state == StateOpen:
		useFallback = true
	case b.failures >= b.failureThreshold:
		b.state = StateOpen
		useFallback = true
		change.Opened = true
	}
	b.mu.Unlock()

	if change.Opened {
		b.notify(StateOpen)
	}
	return useFallback, change
}

// RecordSuccess reports whether the caller may go back to the primary.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	if b.state == StateClosed {
		b.failures = 0
		b.mu.Unlock()
		return true, change
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		usePrimary = true
		change.Closed = true
	}
	b.mu.Unlock()

	if change.Closed {
		b.notify(StateClosed)
	}
	return usePrimary, change
}

// Reset closes the circuit and clears both counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	wasOpen := b.state == StateOpen
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.mu.Unlock()

	if wasOpen {
		b.notify(StateClosed)
	}
}

func (b *Breaker) notify(s State) {
	if b.listener != nil {
		b.listener(s)
	}
}

package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests while circuit breaker is half-open")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// Probes is the number of successful calls in half-open state that
	// close the circuit again.
	Probes int
	// IsFailure classifies call errors. Nil counts every non-nil error.
	IsFailure func(err error) bool
	// OnStateChange is called with the breaker lock held.
	OnStateChange func(from, to State)
}

// DefaultSettings trips after five consecutive failures and probes after 30s.
func DefaultSettings() Settings {
	return Settings{Threshold: 5, Cooldown: 30 * time.Second, Probes: 1}
}

// Breaker fails calls fast while a remote side keeps failing.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	successes  int
	inflight   int
	openedAt   time.Time
}

// New creates a circuit breaker. Zero settings fall back to DefaultSettings.
func New(settings Settings) *Breaker {
	def := DefaultSettings()
	if settings.Threshold <= 0 {
		settings.Threshold = def.Threshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = def.Cooldown
	}
	if settings.Probes <= 0 {
		settings.Probes = def.Probes
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{settings: settings, now: time.Now}
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Do runs fn unless the circuit is open. Errors from fn are returned as is.
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	failed := true
	defer func() {
		b.record(generation, failed)
	}()

	err = fn()
	failed = b.settings.IsFailure(err)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()
	switch b.state {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if b.inflight >= b.settings.Probes {
			return 0, ErrTooManyRequests
		}
	}
	b.inflight++
	return b.generation, nil
}

func (b *Breaker) record(generation uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()
	// Results of calls admitted before the last transition are stale.
	if generation != b.generation {
		return
	}
	b.inflight--

	switch {
	case failed && b.state == StateHalfOpen:
		b.transition(StateOpen)
	case failed:
		b.failures++
		if b.failures >= b.settings.Threshold {
			b.transition(StateOpen)
		}
	case b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.settings.Probes {
			b.transition(StateClosed)
		}
	default:
		b.failures = 0
	}
}

// refresh moves an open circuit to half-open once the cooldown elapsed.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.generation++
	b.failures, b.successes, b.inflight = 0, 0, 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(from, to)
	}
}

package optimistic

import (
	"context"
	"sync"
)

// State of a counter with respect to its in-flight requests.
type State int

const (
	Idle State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Change is delivered to observers every time the displayed value moves.
type Change struct {
	Value int64
	State State
}

// Counter is a displayed social count (loves, likes, followers) that is
// bumped before the server confirms. Each Increment issues exactly one
// request; concurrent increments are not deduplicated, but arithmetic is
// serialized so the settled value is initial + confirmed increments.
type Counter struct {
	mu        sync.Mutex
	value     int64
	inFlight  int
	state     State
	observers map[int]func(Change)
	nextID    int
}

// NewCounter seeds a counter with the last value the server reported.
func NewCounter(initial int64) *Counter {
	return &Counter{value: initial, observers: make(map[int]func(Change))}
}

// Value returns the displayed count.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// State returns the counter's current state.
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers an observer and returns its removal func.
func (c *Counter) OnChange(fn func(Change)) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Reseed replaces the value with a fresh server count. It is ignored while
// requests are in flight so the optimistic value is not clobbered.
func (c *Counter) Reseed(value int64) bool {
	c.mu.Lock()
	if c.inFlight > 0 {
		c.mu.Unlock()
		return false
	}
	c.value = value
	c.state = Idle
	change, observers := c.snapshotLocked()
	c.mu.Unlock()

	notify(observers, change)
	return true
}

// Increment shows +1 at once, runs request, and takes the +1 back if the
// request fails. Bound ctx with a deadline to avoid an indefinite Pending.
func (c *Counter) Increment(ctx context.Context, request func(ctx context.Context) error) Result {
	return Run(ctx, Mutation{
		Apply: func() { c.move(+1, true, Pending) },
		Request: func(ctx context.Context) error {
			if err := request(ctx); err != nil {
				return err
			}
			c.move(0, false, Committed)
			return nil
		},
		Rollback: func() { c.move(-1, false, RolledBack) },
	})
}

func (c *Counter) move(delta int64, starting bool, settled State) {
	c.mu.Lock()
	c.value += delta
	if starting {
		c.inFlight++
	} else {
		c.inFlight--
	}
	if c.inFlight > 0 {
		c.state = Pending
	} else {
		c.state = settled
	}
	change, observers := c.snapshotLocked()
	c.mu.Unlock()

	notify(observers, change)
}

func (c *Counter) snapshotLocked() (Change, []func(Change)) {
	observers := make([]func(Change), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	return Change{Value: c.value, State: c.state}, observers
}

func notify(observers []func(Change), change Change) {
	for _, fn := range observers {
		fn(change)
	}
}

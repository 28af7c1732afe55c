package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SuccessKeepsApply(t *testing.T) {
	value := 10
	res := Run(context.Background(), Mutation{
		Apply:    func() { value++ },
		Request:  func(context.Context) error { return nil },
		Rollback: func() { value-- },
	})
	assert.True(t, res.OK())
	assert.NoError(t, res.Err)
	assert.Equal(t, 11, value)
}

func TestRun_FailureRollsBack(t *testing.T) {
	value := 10
	boom := errors.New("boom")
	res := Run(context.Background(), Mutation{
		Apply:    func() { value++ },
		Request:  func(context.Context) error { return boom },
		Rollback: func() { value-- },
	})
	assert.Equal(t, Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 10, value)
}

func TestRun_PanicRollsBack(t *testing.T) {
	value := 3
	res := Run(context.Background(), Mutation{
		Apply:    func() { value++ },
		Request:  func(context.Context) error { panic("nope") },
		Rollback: func() { value-- },
	})
	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, 3, value)
}

func TestRun_NoRequest(t *testing.T) {
	applied := false
	res := Run(context.Background(), Mutation{Apply: func() { applied = true }})
	assert.ErrorIs(t, res.Err, ErrNoRequest)
	assert.False(t, applied)
}

func TestCounter_LoveSucceeds(t *testing.T) {
	c := NewCounter(42)
	var seen []Change
	c.OnChange(func(ch Change) { seen = append(seen, ch) })

	res := c.Increment(context.Background(), func(context.Context) error { return nil })

	require.True(t, res.OK())
	assert.Equal(t, int64(43), c.Value())
	assert.Equal(t, Committed, c.State())
	assert.Equal(t, []Change{{43, Pending}, {43, Committed}}, seen)
}

func TestCounter_LoveFailsWithServerError(t *testing.T) {
	c := NewCounter(42)
	var seen []Change
	c.OnChange(func(ch Change) { seen = append(seen, ch) })

	res := c.Increment(context.Background(), func(context.Context) error {
		assert.Equal(t, int64(43), c.Value(), "shown immediately, before the request settles")
		return errors.New("status 500")
	})

	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, int64(42), c.Value())
	assert.Equal(t, RolledBack, c.State())
	assert.Equal(t, []Change{{43, Pending}, {42, RolledBack}}, seen)
}

func TestCounter_DeadlineCountsAsFailure(t *testing.T) {
	c := NewCounter(5)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res := c.Increment(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, int64(5), c.Value())
}

func TestCounter_ConcurrentClicksSettle(t *testing.T) {
	c := NewCounter(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Increment(context.Background(), func(context.Context) error {
				if i%2 == 0 {
					return errors.New("rejected")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(125), c.Value(), "one net +1 per successful click")
	assert.NotEqual(t, Pending, c.State())
}

func TestCounter_ReseedIgnoredWhileInFlight(t *testing.T) {
	c := NewCounter(1)
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.Increment(context.Background(), func(context.Context) error {
			<-release
			return nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return c.State() == Pending }, time.Second, time.Millisecond)
	assert.False(t, c.Reseed(99))
	close(release)
	<-done

	assert.Equal(t, int64(2), c.Value())
	assert.True(t, c.Reseed(99))
	assert.Equal(t, int64(99), c.Value())
	assert.Equal(t, Idle, c.State())
}

func TestCounter_RemoveObserver(t *testing.T) {
	c := NewCounter(0)
	calls := 0
	remove := c.OnChange(func(Change) { calls++ })
	remove()
	c.Increment(context.Background(), func(context.Context) error { return nil })
	assert.Zero(t, calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "rolled_back", RolledBack.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "failed", Failed.String())
}

package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/interfaces"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSweepPurgesExpiredEntries(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := stores.NewTTLStore[string]("content", time.Minute, nil).WithClock(c.now)
	store.Set("artist/", "[]")
	c.advance(30 * time.Second)
	store.Set("blog/", "[]")

	w := NewWorker(&Config{CleanupInterval: time.Hour}, logging.NewDiscardLogger(), store)
	w.now = c.now

	c.advance(45 * time.Second)
	assert.Equal(t, 1, w.Sweep(context.Background()))
	_, ok := store.Get("blog/")
	assert.True(t, ok)

	c.advance(time.Minute)
	assert.Equal(t, 1, w.Sweep(context.Background()))
	assert.Equal(t, 0, store.Len())
}

func TestSweepRunsTasks(t *testing.T) {
	w := NewWorker(&Config{CleanupInterval: time.Hour, VerboseReporting: true}, logging.NewDiscardLogger())
	w.AddTask(Task{Name: "tokens", Run: func(ctx context.Context, now time.Time) (int, error) { return 3, nil }})
	w.AddTask(Task{Name: "broken", Run: func(ctx context.Context, now time.Time) (int, error) { return 0, errors.New("db down") }})

	assert.Equal(t, 3, w.Sweep(context.Background()))
}

func TestStartStopsOnCancel(t *testing.T) {
	store := stores.NewTTLStore[int]("visitors", time.Millisecond, nil)
	store.Set("a", 1)

	w := NewWorker(&Config{CleanupInterval: 5 * time.Millisecond}, logging.NewDiscardLogger(), store)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()
}

func TestReporterTable(t *testing.T) {
	a := stores.NewTTLStore[int]("content", time.Minute, nil)
	a.Set("x", 1)
	r := NewReporter(logging.NewDiscardLogger(), []interfaces.Expirer{a})
	assert.Contains(t, r.Table(), "content")
}

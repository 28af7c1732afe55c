package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/optimistic"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/messaging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// ReactionPoster sends a reaction to the guild API.
type ReactionPoster interface {
	PostReaction(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (api.ReactionAck, error)
}

// CountSource seeds counters and drops stale cached counts.
type CountSource interface {
	Count(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (int64, error)
	Invalidate(kind catalog.Kind)
}

// ReactionResult is the settled state of one reaction click.
type ReactionResult struct {
	Count int64  `json:"count"`
	State string `json:"state"`
	OK    bool   `json:"ok"`
	Err   error  `json:"-"`
}

// ReactionService applies loves, likes and follows optimistically and
// pushes every displayed value to the live feed.
type ReactionService struct {
	api      ReactionPoster
	counts   CountSource
	counters *stores.TTLStore[*optimistic.Counter]
	hub      messaging.Broadcaster
	logger   *logging.ChanneledLogger

	mu sync.Mutex
}

// NewReactionService creates the reaction service. hub may be nil.
func NewReactionService(poster ReactionPoster, counts CountSource, counters *stores.TTLStore[*optimistic.Counter], hub messaging.Broadcaster, logger *logging.ChanneledLogger) *ReactionService {
	return &ReactionService{
		api:      poster,
		counts:   counts,
		counters: counters,
		hub:      hub,
		logger:   logger,
	}
}

func counterKey(kind catalog.Kind, id string, reaction catalog.Reaction) string {
	return fmt.Sprintf("%s:%s:%s", kind, id, reaction)
}

// counter returns the live counter for the key, seeding a new one from the
// catalog.
func (s *ReactionService) counter(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (*optimistic.Counter, error) {
	key := counterKey(kind, id, reaction)
	if c, ok := s.counters.Get(key); ok {
		s.counters.Touch(key)
		return c, nil
	}

	seed, err := s.counts.Count(ctx, kind, id, reaction)
	if err != nil {
		return nil, fmt.Errorf("failed to seed %s counter: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters.Get(key); ok {
		return c, nil
	}
	c := optimistic.NewCounter(seed)
	if s.hub != nil {
		c.OnChange(func(ch optimistic.Change) {
			s.hub.Broadcast(messaging.Update{
				Kind:     string(kind),
				ID:       id,
				Reaction: string(reaction),
				Count:    ch.Value,
				State:    ch.State.String(),
			})
		})
	}
	s.counters.Set(key, c)
	return c, nil
}

// React increments one counter. The returned error is non-nil only when the
// counter could not be seeded; a failed request is reported in the result
// after the increment was rolled back.
func (s *ReactionService) React(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (ReactionResult, error) {
	start := time.Now()
	c, err := s.counter(ctx, kind, id, reaction)
	if err != nil {
		return ReactionResult{}, err
	}

	var ack api.ReactionAck
	res := c.Increment(ctx, func(ctx context.Context) error {
		var err error
		ack, err = s.api.PostReaction(ctx, kind, id, reaction)
		return err
	})

	if !res.OK() {
		s.logger.Reactions().Error("Reaction failed, rolled back",
			"kind", kind, "id", id, "reaction", reaction, "error", res.Err, "count", c.Value(), "duration", time.Since(start))
		return ReactionResult{Count: c.Value(), State: c.State().String(), OK: false, Err: res.Err}, nil
	}

	if ack.HasCount && ack.Count != c.Value() {
		c.Reseed(ack.Count)
	}
	s.counts.Invalidate(kind)
	s.logger.Reactions().Info("Reaction committed",
		"kind", kind, "id", id, "reaction", reaction, "count", c.Value(), "duration", time.Since(start))
	return ReactionResult{Count: c.Value(), State: c.State().String(), OK: true}, nil
}

// Count returns the displayed value of a counter without changing it.
func (s *ReactionService) Count(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (int64, error) {
	c, err := s.counter(ctx, kind, id, reaction)
	if err != nil {
		return 0, err
	}
	return c.Value(), nil
}

// Package services provides application-level services that orchestrate
// the guild API, the auth database and the external providers.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// Home page section sizes.
const (
	homeArtists  = 6
	homeListings = 8
	homePosts    = 3
	homeEvents   = 4
)

// CatalogSource is the part of the API client the catalog reads from.
type CatalogSource interface {
	ListArtists(ctx context.Context) ([]catalog.Artist, error)
	GetArtist(ctx context.Context, ref string) (*catalog.Artist, error)
	ListListings(ctx context.Context, filter api.ListingFilter) ([]catalog.Listing, error)
	GetListing(ctx context.Context, id string) (*catalog.Listing, error)
	ListBlogPosts(ctx context.Context) ([]catalog.BlogPost, error)
	GetBlogPost(ctx context.Context, slug string) (*catalog.BlogPost, error)
	ListEvents(ctx context.Context) ([]catalog.Event, error)
	GetEvent(ctx context.Context, ref string) (*catalog.Event, error)
	Search(ctx context.Context, keyword string) ([]catalog.SearchResult, error)
}

// HomeData is what the landing page shows.
type HomeData struct {
	Artists  []catalog.Artist
	Listings []catalog.Listing
	Posts    []catalog.BlogPost
	Events   []catalog.Event
}

// CatalogService reads the guild catalog through a cache of the last API
// response for each key.
type CatalogService struct {
	api    CatalogSource
	cache  *stores.TTLStore[any]
	policy *bluemonday.Policy
	logger *logging.ChanneledLogger
}

// NewCatalogService creates the catalog service.
func NewCatalogService(source CatalogSource, cache *stores.TTLStore[any], logger *logging.ChanneledLogger) *CatalogService {
	return &CatalogService{
		api:    source,
		cache:  cache,
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
}

// readThrough returns the cached value for key or fetches and caches it.
// Failures are never cached.
func readThrough[T any](ctx context.Context, s *CatalogService, key string, fetch func(context.Context) (T, error)) (T, error) {
	if cached, ok := s.cache.Get(key); ok {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}

	start := time.Now()
	v, err := fetch(ctx)
	if err != nil {
		s.logger.Content().Error("Catalog fetch failed", "key", key, "error", err.Error(), "duration", time.Since(start))
		var zero T
		return zero, err
	}
	s.cache.Set(key, v)
	s.logger.Content().Debug("Catalog cache filled", "key", key, "duration", time.Since(start))
	return v, nil
}

func (s *CatalogService) ListArtists(ctx context.Context) ([]catalog.Artist, error) {
	return readThrough(ctx, s, "artists", s.api.ListArtists)
}

// GetArtist accepts an id or a profile path.
func (s *CatalogService) GetArtist(ctx context.Context, ref string) (*catalog.Artist, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: artist reference cannot be empty", api.ErrNotFound)
	}
	return readThrough(ctx, s, "artist:"+ref, func(ctx context.Context) (*catalog.Artist, error) {
		return s.api.GetArtist(ctx, ref)
	})
}

// ListListings returns listings, optionally narrowed to one category.
func (s *CatalogService) ListListings(ctx context.Context, category string) ([]catalog.Listing, error) {
	category = strings.TrimSpace(category)
	return readThrough(ctx, s, "listings?category="+category, func(ctx context.Context) ([]catalog.Listing, error) {
		return s.api.ListListings(ctx, api.ListingFilter{Category: category})
	})
}

// ListArtistListings returns the listings of one artist.
func (s *CatalogService) ListArtistListings(ctx context.Context, artistID string) ([]catalog.Listing, error) {
	return readThrough(ctx, s, "listings?artist="+artistID, func(ctx context.Context) ([]catalog.Listing, error) {
		return s.api.ListListings(ctx, api.ListingFilter{ArtistID: artistID})
	})
}

func (s *CatalogService) GetListing(ctx context.Context, id string) (*catalog.Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: listing id cannot be empty", api.ErrNotFound)
	}
	return readThrough(ctx, s, "listing:"+id, func(ctx context.Context) (*catalog.Listing, error) {
		return s.api.GetListing(ctx, id)
	})
}

func (s *CatalogService) ListBlogPosts(ctx context.Context) ([]catalog.BlogPost, error) {
	return readThrough(ctx, s, "blog", s.api.ListBlogPosts)
}

// GetBlogPost returns a post whose HTML body has been sanitized.
func (s *CatalogService) GetBlogPost(ctx context.Context, slug string) (*catalog.BlogPost, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("%w: blog slug cannot be empty", api.ErrNotFound)
	}
	return readThrough(ctx, s, "blog:"+slug, func(ctx context.Context) (*catalog.BlogPost, error) {
		post, err := s.api.GetBlogPost(ctx, slug)
		if err != nil {
			return nil, err
		}
		clean := *post
		clean.Body = s.policy.Sanitize(post.Body)
		return &clean, nil
	})
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]catalog.Event, error) {
	return readThrough(ctx, s, "events", s.api.ListEvents)
}

func (s *CatalogService) GetEvent(ctx context.Context, ref string) (*catalog.Event, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: event reference cannot be empty", api.ErrNotFound)
	}
	return readThrough(ctx, s, "event:"+ref, func(ctx context.Context) (*catalog.Event, error) {
		return s.api.GetEvent(ctx, ref)
	})
}

// Search runs a keyword search. A blank keyword returns no results without
// calling the API.
func (s *CatalogService) Search(ctx context.Context, keyword string) ([]catalog.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []catalog.SearchResult{}, nil
	}
	return readThrough(ctx, s, "search:"+strings.ToLower(keyword), func(ctx context.Context) ([]catalog.SearchResult, error) {
		return s.api.Search(ctx, keyword)
	})
}

// Home loads every landing page section concurrently. The first failure
// cancels the rest.
func (s *CatalogService) Home(ctx context.Context) (*HomeData, error) {
	var home HomeData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		artists, err := s.ListArtists(ctx)
		home.Artists = head(artists, homeArtists)
		return err
	})
	g.Go(func() error {
		listings, err := s.ListListings(ctx, "")
		home.Listings = head(listings, homeListings)
		return err
	})
	g.Go(func() error {
		posts, err := s.ListBlogPosts(ctx)
		home.Posts = head(posts, homePosts)
		return err
	})
	g.Go(func() error {
		events, err := s.ListEvents(ctx)
		home.Events = head(events, homeEvents)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load home page: %w", err)
	}
	return &home, nil
}

// Count returns the server's last reported value of one reaction counter.
func (s *CatalogService) Count(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (int64, error) {
	switch kind {
	case catalog.KindArtist:
		a, err := s.GetArtist(ctx, id)
		if err != nil {
			return 0, err
		}
		return a.Counts()[reaction], nil
	case catalog.KindListing:
		l, err := s.GetListing(ctx, id)
		if err != nil {
			return 0, err
		}
		return l.Counts()[reaction], nil
	}
	return 0, fmt.Errorf("%w: unsupported kind %q", api.ErrNotFound, kind)
}

// Invalidate drops every cached response that carries kind's counters.
func (s *CatalogService) Invalidate(kind catalog.Kind) {
	var removed int
	switch kind {
	case catalog.KindArtist:
		removed = s.cache.DeletePrefix("artist")
	case catalog.KindListing:
		removed = s.cache.DeletePrefix("listing")
	}
	s.logger.Cache().Debug("Catalog cache invalidated", "kind", kind, "removed", removed)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

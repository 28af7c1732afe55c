package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/messaging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
	userrepo "github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/user"
)

var testLogger = logging.NewDiscardLogger()

// fakeCatalogAPI serves fixed records and counts calls per method.
type fakeCatalogAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	artists  []catalog.Artist
	listings []catalog.Listing
	posts    []catalog.BlogPost
	events   []catalog.Event
	fail     map[string]error
}

func newFakeCatalogAPI() *fakeCatalogAPI {
	return &fakeCatalogAPI{
		calls: map[string]int{},
		fail:  map[string]error{},
		artists: []catalog.Artist{
			{ID: "7", Title: "Ada", Path: "ada", Loves: 42, Likes: 3, Followers: 10},
			{ID: "8", Title: "Bo", Path: "bo"},
		},
		listings: []catalog.Listing{{ID: "100", Title: "Bowl", Price: 25, Loves: 5}},
		posts:    []catalog.BlogPost{{Slug: "hello", Title: "Hello", Body: `<p>Hi<script>alert(1)</script></p>`}},
		events:   []catalog.Event{{ID: "1", Title: "Fair"}},
	}
}

func (f *fakeCatalogAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.fail[name]
}

func (f *fakeCatalogAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalogAPI) ListArtists(ctx context.Context) ([]catalog.Artist, error) {
	if err := f.hit("ListArtists"); err != nil {
		return nil, err
	}
	return f.artists, nil
}

func (f *fakeCatalogAPI) GetArtist(ctx context.Context, ref string) (*catalog.Artist, error) {
	if err := f.hit("GetArtist"); err != nil {
		return nil, err
	}
	for _, a := range f.artists {
		if a.ID.String() == ref || a.Path == ref {
			a := a
			return &a, nil
		}
	}
	return nil, &api.StatusError{Status: 404, Path: "artist/" + ref}
}

func (f *fakeCatalogAPI) ListListings(ctx context.Context, filter api.ListingFilter) ([]catalog.Listing, error) {
	if err := f.hit("ListListings"); err != nil {
		return nil, err
	}
	return f.listings, nil
}

func (f *fakeCatalogAPI) GetListing(ctx context.Context, id string) (*catalog.Listing, error) {
	if err := f.hit("GetListing"); err != nil {
		return nil, err
	}
	for _, l := range f.listings {
		if l.ID.String() == id {
			l := l
			return &l, nil
		}
	}
	return nil, &api.StatusError{Status: 404, Path: "listing/" + id}
}

func (f *fakeCatalogAPI) ListBlogPosts(ctx context.Context) ([]catalog.BlogPost, error) {
	if err := f.hit("ListBlogPosts"); err != nil {
		return nil, err
	}
	return f.posts, nil
}

func (f *fakeCatalogAPI) GetBlogPost(ctx context.Context, slug string) (*catalog.BlogPost, error) {
	if err := f.hit("GetBlogPost"); err != nil {
		return nil, err
	}
	p := f.posts[0]
	return &p, nil
}

func (f *fakeCatalogAPI) ListEvents(ctx context.Context) ([]catalog.Event, error) {
	if err := f.hit("ListEvents"); err != nil {
		return nil, err
	}
	return f.events, nil
}

func (f *fakeCatalogAPI) GetEvent(ctx context.Context, ref string) (*catalog.Event, error) {
	if err := f.hit("GetEvent"); err != nil {
		return nil, err
	}
	e := f.events[0]
	return &e, nil
}

func (f *fakeCatalogAPI) Search(ctx context.Context, keyword string) ([]catalog.SearchResult, error) {
	if err := f.hit("Search"); err != nil {
		return nil, err
	}
	return []catalog.SearchResult{{Kind: "artist", ID: "7", Title: "Ada"}}, nil
}

// fakePoster answers reactions with a fixed error or count.
type fakePoster struct {
	err   error
	count int64
	calls int
}

func (f *fakePoster) PostReaction(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (api.ReactionAck, error) {
	f.calls++
	if f.err != nil {
		return api.ReactionAck{}, f.err
	}
	if f.count == 0 {
		return api.ReactionAck{}, nil
	}
	return api.ReactionAck{Count: f.count, HasCount: true}, nil
}

// recordingHub captures broadcasts.
type recordingHub struct {
	mu      sync.Mutex
	updates []messaging.Update
}

func (h *recordingHub) Broadcast(u messaging.Update) {
	h.mu.Lock()
	h.updates = append(h.updates, u)
	h.mu.Unlock()
}

func (h *recordingHub) ClientCount() int { return 0 }

func (h *recordingHub) all() []messaging.Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]messaging.Update(nil), h.updates...)
}

func openRepos(t *testing.T) (*userrepo.SQLUserRepository, *userrepo.SQLVerificationTokenRepository, *userrepo.SQLSubscriptionRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewConnectionWithLogger(ctx, ":memory:", testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, testLogger))
	return userrepo.NewSQLUserRepository(db, testLogger),
		userrepo.NewSQLVerificationTokenRepository(db, testLogger),
		userrepo.NewSQLSubscriptionRepository(db, testLogger)
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

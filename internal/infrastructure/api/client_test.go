package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api", Timeout: time.Second}, logging.NewDiscardLogger())
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, logging.NewDiscardLogger())
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "ftp://example.com"}, logging.NewDiscardLogger())
	assert.Error(t, err)
}

func TestListArtistsAcceptsArrayAndEnvelope(t *testing.T) {
	bodies := []string{
		`[{"id": 1, "title": "Mara"}]`,
		`{"results": [{"id": 1, "title": "Mara"}]}`,
		`{"items": [{"id": "1", "title": "Mara"}]}`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/artist/", r.URL.Path)
			io.WriteString(w, body)
		})
		artists, err := c.ListArtists(context.Background())
		require.NoError(t, err, body)
		require.Len(t, artists, 1)
		assert.Equal(t, catalog.ID("1"), artists[0].ID)
	}
}

func TestDecodeErrorKeepsRawText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway hiccup</html>")
	})
	_, err := c.ListBlogPosts(context.Background())

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "<html>gateway hiccup</html>", decodeErr.Raw)
	assert.Contains(t, UserMessage(err), "couldn't read")
}

func TestEnvelopeWithoutListIsDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"detail": "ok"}`)
	})
	_, err := c.ListEvents(context.Background())
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/listing/404/" {
			http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetListing(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetListing(context.Background(), "7")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, UserMessage(err), "trouble")
}

func TestTimeoutIsReported(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetArtist(ctx, "1")
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestSearchSendsKeyword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/utility_search/search", r.URL.Path)
		assert.Equal(t, "blue glass", r.URL.Query().Get("keyword"))
		io.WriteString(w, `[{"type": "listing", "id": 3, "title": "Blue glass bowl"}]`)
	})
	hits, err := c.Search(context.Background(), "blue glass")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/listings/3", hits[0].Href())
}

func TestListListingsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "print", r.URL.Query().Get("category"))
		assert.Equal(t, "9", r.URL.Query().Get("artist"))
		io.WriteString(w, `[]`)
	})
	listings, err := c.ListListings(context.Background(), ListingFilter{Category: "print", ArtistID: "9"})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestPostReaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/api/artist/5/loves/":
			io.WriteString(w, `{"loves": 43}`)
		case "/api/listing/6/likes/":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "nope", http.StatusBadRequest)
		}
	})

	ack, err := c.PostReaction(context.Background(), catalog.KindArtist, "5", catalog.ReactionLoves)
	require.NoError(t, err)
	assert.Equal(t, ReactionAck{Count: 43, HasCount: true}, ack)

	ack, err = c.PostReaction(context.Background(), catalog.KindListing, "6", catalog.ReactionLikes)
	require.NoError(t, err)
	assert.False(t, ack.HasCount)

	_, err = c.PostReaction(context.Background(), catalog.KindListing, "6", catalog.ReactionLoves)
	assert.Error(t, err)
}

func TestDotReferencesNeverLeaveTheCollection(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"id": 1}`)
	})
	ctx := context.Background()

	for _, ref := range []string{"..", ".", "", " ", "/../"} {
		_, err := c.GetArtist(ctx, ref)
		assert.ErrorIs(t, err, ErrNotFound, "artist %q", ref)
		_, err = c.GetEvent(ctx, ref)
		assert.ErrorIs(t, err, ErrNotFound, "event %q", ref)
		_, err = c.PostReaction(ctx, catalog.KindArtist, ref, catalog.ReactionLoves)
		assert.ErrorIs(t, err, ErrNotFound, "reaction %q", ref)
		_, err = c.FormSchema(ctx, ref)
		assert.ErrorIs(t, err, ErrNotFound, "form %q", ref)
	}
	assert.Zero(t, hits.Load())

	_, err := c.GetArtist(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFormSchemaAndSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/forms_metadata/listing":
			io.WriteString(w, `{"apiUrl": "listing/{id}/", "method": "PUT", "fields": [{"name": "title", "type": "text"}]}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/listing/4/":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "New title", payload["title"])
			io.WriteString(w, `{"id": 4}`)
		default:
			http.NotFound(w, r)
		}
	})

	schema, err := c.FormSchema(context.Background(), "listing")
	require.NoError(t, err)
	assert.Equal(t, "listing", schema.Name)
	assert.Equal(t, forms.KindText, schema.Fields[0].Kind)

	target, err := schema.ResolveURL("4")
	require.NoError(t, err)
	body, err := c.Submit(context.Background(), schema.Method, target, map[string]any{"title": "New title"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 4}`, string(body))

	_, err = c.Submit(context.Background(), http.MethodDelete, target, nil)
	assert.Error(t, err)
}

func TestFormSchemaUnknownKindIsDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"apiUrl": "x/", "fields": [{"name": "a", "type": "hologram"}]}`)
	})
	_, err := c.FormSchema(context.Background(), "odd")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, forms.ErrUnknownKind)
}

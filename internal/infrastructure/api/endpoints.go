package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
)

// segment escapes ref as a single path segment. Empty and dot segments
// would resolve outside the collection, so they never reach the API.
func segment(ref string) (string, error) {
	ref = strings.TrimSpace(strings.Trim(ref, "/"))
	switch ref {
	case "", ".", "..":
		return "", fmt.Errorf("%w: invalid reference %q", ErrNotFound, ref)
	}
	return url.PathEscape(ref), nil
}

func getItem[T any](ctx context.Context, c *Client, collection, ref string) (*T, error) {
	seg, err := segment(ref)
	if err != nil {
		return nil, err
	}
	v, err := getOne[T](ctx, c, collection+"/"+seg+"/", nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListArtists fetches every artist profile.
func (c *Client) ListArtists(ctx context.Context) ([]catalog.Artist, error) {
	return getList[catalog.Artist](ctx, c, "artist/", nil)
}

// GetArtist fetches one artist by id or path.
func (c *Client) GetArtist(ctx context.Context, ref string) (*catalog.Artist, error) {
	return getItem[catalog.Artist](ctx, c, "artist", ref)
}

// ListingFilter narrows ListListings.
type ListingFilter struct {
	Category string
	ArtistID string
}

func (f ListingFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.ArtistID != "" {
		q.Set("artist", f.ArtistID)
	}
	return q
}

// ListListings fetches marketplace listings.
func (c *Client) ListListings(ctx context.Context, filter ListingFilter) ([]catalog.Listing, error) {
	return getList[catalog.Listing](ctx, c, "listing/", filter.query())
}

// GetListing fetches one listing.
func (c *Client) GetListing(ctx context.Context, id string) (*catalog.Listing, error) {
	return getItem[catalog.Listing](ctx, c, "listing", id)
}

// ListBlogPosts fetches blog posts.
func (c *Client) ListBlogPosts(ctx context.Context) ([]catalog.BlogPost, error) {
	return getList[catalog.BlogPost](ctx, c, "blog/", nil)
}

// GetBlogPost fetches one post by slug.
func (c *Client) GetBlogPost(ctx context.Context, slug string) (*catalog.BlogPost, error) {
	return getItem[catalog.BlogPost](ctx, c, "blog", slug)
}

// ListEvents fetches guild events.
func (c *Client) ListEvents(ctx context.Context) ([]catalog.Event, error) {
	return getList[catalog.Event](ctx, c, "event/", nil)
}

// GetEvent fetches one event by id or path.
func (c *Client) GetEvent(ctx context.Context, ref string) (*catalog.Event, error) {
	return getItem[catalog.Event](ctx, c, "event", ref)
}

// Search runs a keyword search across the catalog.
func (c *Client) Search(ctx context.Context, keyword string) ([]catalog.SearchResult, error) {
	return getList[catalog.SearchResult](ctx, c, "utility_search/search", url.Values{"keyword": {keyword}})
}

// FormSchema fetches and resolves the metadata for a named form.
func (c *Client) FormSchema(ctx context.Context, name string) (*forms.Schema, error) {
	seg, err := segment(name)
	if err != nil {
		return nil, err
	}
	path := "forms_metadata/" + seg
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	schema, err := forms.Decode(raw)
	if err != nil {
		return nil, &DecodeError{Path: path, Raw: string(raw), Err: err}
	}
	if schema.Name == "" {
		schema.Name = name
	}
	return schema, nil
}

// Submit sends a form payload with POST or PUT and returns the response body.
func (c *Client) Submit(ctx context.Context, method, path string, payload map[string]any) (json.RawMessage, error) {
	if method != http.MethodPost && method != http.MethodPut {
		return nil, fmt.Errorf("unsupported submit method %q", method)
	}
	raw, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, &DecodeError{Path: path, Raw: string(raw), Err: fmt.Errorf("invalid JSON")}
	}
	return json.RawMessage(raw), nil
}

// ReactionAck is the API's answer to a reaction. Count is set when the API
// reports the new total.
type ReactionAck struct {
	Count    int64
	HasCount bool
}

// PostReaction records one reaction with POST {kind}/{id}/{reaction}/.
func (c *Client) PostReaction(ctx context.Context, kind catalog.Kind, id string, reaction catalog.Reaction) (ReactionAck, error) {
	seg, err := segment(id)
	if err != nil {
		return ReactionAck{}, err
	}
	path := string(kind) + "/" + seg + "/" + string(reaction) + "/"
	raw, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{})
	if err != nil {
		return ReactionAck{}, err
	}

	var body map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &body) != nil {
		return ReactionAck{}, nil
	}
	for _, key := range []string{string(reaction), "count"} {
		if v, ok := body[key]; ok {
			var n int64
			if json.Unmarshal(v, &n) == nil {
				return ReactionAck{Count: n, HasCount: true}, nil
			}
		}
	}
	return ReactionAck{}, nil
}

package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtistDecodesNumericID(t *testing.T) {
	var a Artist
	require.NoError(t, json.Unmarshal([]byte(`{"id": 17, "title": "Mara", "loves": 42, "path": "/mara/"}`), &a))
	assert.Equal(t, ID("17"), a.ID)
	assert.Equal(t, int64(42), a.Loves)
	assert.Equal(t, "mara", a.Slug())

	a.Path = ""
	assert.Equal(t, "17", a.Slug())
}

func TestIDRejectsObjects(t *testing.T) {
	var a Artist
	assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &a))
}

func TestTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-05-01T10:00:00Z"`: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		`"2024-05-01T10:00:00"`:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		`"2024-05-01"`:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, want.Equal(ts.Time), raw)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
	assert.Equal(t, "", ts.Display())
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestDisplayPrice(t *testing.T) {
	assert.Equal(t, "$1,250.00", Listing{Price: 1250}.DisplayPrice())
	assert.Equal(t, "$19.99", Listing{Price: 19.99}.DisplayPrice())
	assert.Equal(t, "$0.50", Listing{Price: 0.5}.DisplayPrice())
	assert.Equal(t, "$1,000,000.00", Listing{Price: 999999.999}.DisplayPrice())
}

func TestSearchResultHref(t *testing.T) {
	assert.Equal(t, "/artists/mara", SearchResult{Kind: "Artist", Path: "mara"}.Href())
	assert.Equal(t, "/listings/9", SearchResult{Kind: "listing", ID: "9"}.Href())
	assert.Equal(t, "/search", SearchResult{Kind: "other"}.Href())
}

func TestParseReaction(t *testing.T) {
	kind, err := ParseKind("artist")
	require.NoError(t, err)

	r, err := ParseReaction(kind, "followers")
	require.NoError(t, err)
	assert.Equal(t, ReactionFollowers, r)

	_, err = ParseReaction(KindListing, "followers")
	assert.Error(t, err)

	_, err = ParseKind("blog")
	assert.Error(t, err)
}

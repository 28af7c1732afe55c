// Package catalog defines the records the guild REST API serves: artists,
// listings, blog posts, events and search hits. The API owns all of them;
// these types are the explicit schema the front end decodes into.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID accepts both numeric and string identifiers from the API.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Artist is a guild member's public profile.
type Artist struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Byline     string `json:"byline"`
	ProfilePic string `json:"profilePic"`
	Path       string `json:"path"`
	Loves      int64  `json:"loves"`
	Likes      int64  `json:"likes"`
	Followers  int64  `json:"followers"`
	Bio        string `json:"bio,omitempty"`
}

// Slug returns the path segment used in artist URLs.
func (a Artist) Slug() string {
	if p := strings.Trim(a.Path, "/"); p != "" {
		return p
	}
	return a.ID.String()
}

// Listing is an item an artist offers in the marketplace.
type Listing struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ArtistID    ID        `json:"artist"`
	ArtistName  string    `json:"artistName,omitempty"`
	ProfilePic  string    `json:"profilePic"`
	Created     Timestamp `json:"created"`
	Loves       int64     `json:"loves"`
	Likes       int64     `json:"likes"`
}

// DisplayPrice formats the price for cards, e.g. "$1,250.00".
func (l Listing) DisplayPrice() string {
	whole := int64(l.Price)
	cents := int64((l.Price-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("$%s.%02d", b.String(), cents)
}

// BlogPost is an article from the guild blog. Body is HTML.
type BlogPost struct {
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Byline  string    `json:"byline"`
	Body    string    `json:"body"`
	Created Timestamp `json:"created"`
}

// Event is a guild event; Applied is when the artist applied to it.
type Event struct {
	ID      ID        `json:"id"`
	Path    string    `json:"path"`
	Title   string    `json:"title"`
	Byline  string    `json:"byline"`
	Applied Timestamp `json:"applied"`
}

// Slug returns the path segment used in event URLs.
func (e Event) Slug() string {
	if p := strings.Trim(e.Path, "/"); p != "" {
		return p
	}
	return e.ID.String()
}

// SearchResult is one hit from utility_search.
type SearchResult struct {
	Kind  string `json:"type"`
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	Blurb string `json:"byline"`
}

// Href links a hit to the page rendering it.
func (r SearchResult) Href() string {
	ref := strings.Trim(r.Path, "/")
	if ref == "" {
		ref = r.ID.String()
	}
	switch strings.ToLower(r.Kind) {
	case "artist":
		return "/artists/" + ref
	case "listing":
		return "/listings/" + ref
	case "blog":
		return "/blog/" + ref
	case "event":
		return "/events/" + ref
	default:
		return "/search"
	}
}

// Timestamp decodes the API's date strings, which come either as RFC 3339
// or as a plain date.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// Display renders the date for cards.
func (t Timestamp) Display() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

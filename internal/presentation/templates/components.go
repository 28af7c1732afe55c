package templates

import (
	"html/template"
	"net/url"
	"strconv"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagination"
)

const componentTemplates = `
{{define "reaction"}}<button type="button" class="reaction" data-react="/api/reactions/{{.Kind}}/{{.ID}}/{{.Reaction}}" aria-label="{{.Label}}">
  <span aria-hidden="true">{{.Icon}}</span> <span data-counter="{{.Kind}}:{{.ID}}:{{.Reaction}}">{{.Count}}</span>
</button>{{end}}

{{define "artist-card"}}<article class="card artist-card">
  <a href="{{.Href}}">
    {{if .Artist.ProfilePic}}<img src="{{.Artist.ProfilePic}}" alt="{{.Artist.Title}}" loading="lazy">{{end}}
    <h3>{{.Artist.Title}}</h3>
  </a>
  {{if .Artist.Byline}}<p>{{.Artist.Byline}}</p>{{end}}
  <div class="reactions">{{range .Reactions}}{{template "reaction" .}}{{end}}</div>
</article>{{end}}

{{define "listing-card"}}<article class="card listing-card">
  <a href="{{.Href}}">
    {{if .Listing.ProfilePic}}<img src="{{.Listing.ProfilePic}}" alt="{{.Listing.Title}}" loading="lazy">{{end}}
    <h3>{{.Listing.Title}}</h3>
  </a>
  <p class="price">{{.Listing.DisplayPrice}}</p>
  {{if .Listing.ArtistName}}<p class="byline">by <a href="/artists/{{.Listing.ArtistID}}">{{.Listing.ArtistName}}</a></p>{{end}}
  <div class="reactions">{{range .Reactions}}{{template "reaction" .}}{{end}}</div>
</article>{{end}}

{{define "post-card"}}<article class="card post-card">
  <a href="/blog/{{.Slug}}"><h3>{{.Title}}</h3></a>
  {{if .Byline}}<p>{{.Byline}}</p>{{end}}
  {{with .Created.Display}}<time>{{.}}</time>{{end}}
</article>{{end}}

{{define "event-card"}}<article class="card event-card">
  <a href="/events/{{.Slug}}"><h3>{{.Title}}</h3></a>
  {{if .Byline}}<p>{{.Byline}}</p>{{end}}
  {{with .Applied.Display}}<p class="applied">Applied {{.}}</p>{{end}}
</article>{{end}}

{{define "pagination"}}{{if gt .Total 1}}<nav class="pagination" aria-label="Pagination">
  {{if .Prev}}<a class="btn" href="{{.Prev}}" rel="prev">&laquo; Previous</a>{{else}}<span class="btn disabled">&laquo; Previous</span>{{end}}
  {{range .Pages}}{{if .Current}}<span class="btn active" aria-current="page">{{.Number}}</span>{{else}}<a class="btn" href="{{.Href}}">{{.Number}}</a>{{end}}
  {{end}}
  {{if .Next}}<a class="btn" href="{{.Next}}" rel="next">Next &raquo;</a>{{else}}<span class="btn disabled">Next &raquo;</span>{{end}}
</nav>{{end}}{{end}}

{{define "error-panel"}}<section class="alert alert-error" role="alert">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  <p class="actions">
    {{if .RetryURL}}<a class="btn" href="{{.RetryURL}}">Try again</a>{{end}}
    <a class="btn" href="{{.BackURL}}">Go back</a>
  </p>
</section>{{end}}
`

type reactionButton struct {
	Kind     catalog.Kind
	ID       string
	Reaction catalog.Reaction
	Label    string
	Icon     string
	Count    int64
}

var reactionIcons = map[catalog.Reaction]string{
	catalog.ReactionLoves:     "♥",
	catalog.ReactionLikes:     "\U0001F44D",
	catalog.ReactionFollowers: "★",
}

func reactions(kind catalog.Kind, id string, counts map[catalog.Reaction]int64, order ...catalog.Reaction) []reactionButton {
	out := make([]reactionButton, 0, len(order))
	for _, r := range order {
		out = append(out, reactionButton{
			Kind:     kind,
			ID:       id,
			Reaction: r,
			Label:    string(r),
			Icon:     reactionIcons[r],
			Count:    counts[r],
		})
	}
	return out
}

type artistCard struct {
	Artist    catalog.Artist
	Href      string
	Reactions []reactionButton
}

func newArtistCard(a catalog.Artist) artistCard {
	return artistCard{
		Artist: a,
		Href:   "/artists/" + a.Slug(),
		Reactions: reactions(catalog.KindArtist, a.ID.String(), a.Counts(),
			catalog.ReactionLoves, catalog.ReactionLikes, catalog.ReactionFollowers),
	}
}

type listingCard struct {
	Listing   catalog.Listing
	Href      string
	Reactions []reactionButton
}

func newListingCard(l catalog.Listing) listingCard {
	return listingCard{
		Listing:   l,
		Href:      "/listings/" + l.ID.String(),
		Reactions: reactions(catalog.KindListing, l.ID.String(), l.Counts(), catalog.ReactionLoves, catalog.ReactionLikes),
	}
}

// ArtistCard renders one artist with its reaction counters.
func ArtistCard(a catalog.Artist) string {
	return execute(views, "artist-card", newArtistCard(a))
}

// ListingCard renders one listing with its reaction counters.
func ListingCard(l catalog.Listing) string {
	return execute(views, "listing-card", newListingCard(l))
}

type pageLink struct {
	Number  int
	Href    string
	Current bool
}

type paginationData struct {
	Total int
	Prev  string
	Next  string
	Pages []pageLink
}

func newPagination(p *pagination.Paginator, basePath string, query url.Values) paginationData {
	href := func(page int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if page > 1 {
			q.Set("page", strconv.Itoa(page))
		} else {
			q.Del("page")
		}
		if enc := q.Encode(); enc != "" {
			return basePath + "?" + enc
		}
		return basePath
	}

	data := paginationData{Total: p.TotalPages()}
	if p.HasPrev() {
		data.Prev = href(p.Current() - 1)
	}
	if p.HasNext() {
		data.Next = href(p.Current() + 1)
	}
	for _, n := range p.Pages() {
		data.Pages = append(data.Pages, pageLink{Number: n, Href: href(n), Current: n == p.Current()})
	}
	return data
}

// Pagination renders the page strip for p. Links keep the other query
// parameters; nothing is rendered for a single page.
func Pagination(p *pagination.Paginator, basePath string, query url.Values) string {
	return execute(views, "pagination", newPagination(p, basePath, query))
}

// ErrorPanelProps describes a failed page load.
type ErrorPanelProps struct {
	Title    string
	Message  string
	RetryURL string
	BackURL  string
}

// ErrorPanel renders the uniform error affordance: what went wrong, a retry
// link and a way back.
func ErrorPanel(props ErrorPanelProps) string {
	if props.Title == "" {
		props.Title = "Something went wrong"
	}
	if props.BackURL == "" {
		props.BackURL = "/"
	}
	return execute(views, "error-panel", props)
}

// views holds every named component and page body.
var views = template.Must(template.New("views").Parse(componentTemplates + pageTemplates + formTemplates + signInTemplates))

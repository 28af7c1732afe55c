package templates

import (
	"html/template"
	"net/url"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagination"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// In-page sections of pages with a table of contents. The anchors below
// match the ids the page bodies render.
var (
	HomeSections = []pagestate.Section{
		{ID: "featured-artists", Label: "Featured artists"},
		{ID: "new-listings", Label: "New in the marketplace"},
		{ID: "upcoming-events", Label: "Events"},
		{ID: "from-the-blog", Label: "From the blog"},
	}
	ArtistSections = []pagestate.Section{
		{ID: "about", Label: "About"},
		{ID: "listings", Label: "Listings"},
	}
	DashboardSections = []pagestate.Section{
		{ID: "profile", Label: "Profile"},
		{ID: "membership", Label: "Membership"},
	}
)

const pageTemplates = `
{{define "home"}}<section class="hero">
  <h1>{{.SiteName}}</h1>
  <p>{{.Tagline}}</p>
</section>
<section id="featured-artists">
  <h2>Featured artists</h2>
  <div class="grid">{{range .Artists}}{{template "artist-card" .}}{{else}}<p>No artists yet.</p>{{end}}</div>
  <a href="/artists">All artists</a>
</section>
<section id="new-listings">
  <h2>New in the marketplace</h2>
  <div class="grid">{{range .Listings}}{{template "listing-card" .}}{{else}}<p>Nothing listed yet.</p>{{end}}</div>
  <a href="/listings">Browse the marketplace</a>
</section>
<section id="upcoming-events">
  <h2>Events</h2>
  <div class="grid">{{range .Events}}{{template "event-card" .}}{{else}}<p>No events scheduled.</p>{{end}}</div>
</section>
<section id="from-the-blog">
  <h2>From the blog</h2>
  <div class="grid">{{range .Posts}}{{template "post-card" .}}{{else}}<p>No posts yet.</p>{{end}}</div>
</section>{{end}}

{{define "artists"}}<h1>Artists</h1>
<div class="grid">{{range .Artists}}{{template "artist-card" .}}{{else}}<p>No artists yet.</p>{{end}}</div>
{{template "pagination" .Pager}}{{end}}

{{define "artist"}}<article class="artist">
  <header>
    {{if .Artist.ProfilePic}}<img class="avatar-lg" src="{{.Artist.ProfilePic}}" alt="{{.Artist.Title}}">{{end}}
    <h1>{{.Artist.Title}}</h1>
    {{if .Artist.Byline}}<p class="byline">{{.Artist.Byline}}</p>{{end}}
    <div class="reactions">{{range .Reactions}}{{template "reaction" .}}{{end}}</div>
  </header>
  <section id="about">
    <h2>About</h2>
    {{if .Artist.Bio}}<p>{{.Artist.Bio}}</p>{{else}}<p>This artist has not written a bio yet.</p>{{end}}
  </section>
  <section id="listings">
    <h2>Listings</h2>
    {{if .ListingsError}}{{.ListingsError}}{{else}}
    <div class="grid">{{range .Listings}}{{template "listing-card" .}}{{else}}<p>No listings yet.</p>{{end}}</div>
    {{end}}
  </section>
</article>{{end}}

{{define "listings"}}<h1>{{if .Category}}{{.Category}}{{else}}Marketplace{{end}}</h1>
<form class="filters" action="/listings" method="get">
  <label>Category <input type="text" name="category" value="{{.Category}}"></label>
  <button type="submit" class="btn">Filter</button>
</form>
<div class="grid">{{range .Listings}}{{template "listing-card" .}}{{else}}<p>Nothing listed here yet.</p>{{end}}</div>
{{template "pagination" .Pager}}{{end}}

{{define "listing"}}<article class="listing">
  {{if .Listing.ProfilePic}}<img src="{{.Listing.ProfilePic}}" alt="{{.Listing.Title}}">{{end}}
  <h1>{{.Listing.Title}}</h1>
  <p class="price">{{.Listing.DisplayPrice}}</p>
  {{if .Listing.Category}}<p class="category"><a href="/listings?category={{.Listing.Category}}">{{.Listing.Category}}</a></p>{{end}}
  {{if .Listing.ArtistName}}<p class="byline">by <a href="/artists/{{.Listing.ArtistID}}">{{.Listing.ArtistName}}</a></p>{{end}}
  {{with .Listing.Created.Display}}<p>Listed {{.}}</p>{{end}}
  <p>{{.Listing.Description}}</p>
  <div class="reactions">{{range .Reactions}}{{template "reaction" .}}{{end}}</div>
</article>{{end}}

{{define "blog-index"}}<h1>Blog</h1>
<div class="list">{{range .Posts}}{{template "post-card" .}}{{else}}<p>No posts yet.</p>{{end}}</div>
{{template "pagination" .Pager}}{{end}}

{{define "blog-post"}}<article class="prose">
  <h1>{{.Post.Title}}</h1>
  {{if .Post.Byline}}<p class="byline">{{.Post.Byline}}</p>{{end}}
  {{with .Post.Created.Display}}<time>{{.}}</time>{{end}}
  <div class="body">{{.Body}}</div>
</article>{{end}}

{{define "events"}}<h1>Events</h1>
<div class="grid">{{range .Events}}{{template "event-card" .}}{{else}}<p>No events scheduled.</p>{{end}}</div>
{{template "pagination" .Pager}}{{end}}

{{define "event"}}<article class="event">
  <h1>{{.Title}}</h1>
  {{if .Byline}}<p class="byline">{{.Byline}}</p>{{end}}
  {{with .Applied.Display}}<p>Applied {{.}}</p>{{end}}
</article>{{end}}

{{define "search"}}<h1>Search</h1>
<form class="search-form" action="/search" method="get">
  <input type="search" name="keyword" value="{{.Keyword}}" placeholder="Artists, listings, posts, events" aria-label="Keyword">
  <button type="submit" class="btn">Search</button>
</form>
{{if .Keyword}}
  {{if .Results}}<p>{{.Total}} result{{if ne .Total 1}}s{{end}} for &ldquo;{{.Keyword}}&rdquo;</p>
  <ul class="results">{{range .Results}}<li><a href="{{.Href}}">{{.Title}}</a> <span class="badge">{{.Kind}}</span>{{if .Blurb}}<p>{{.Blurb}}</p>{{end}}</li>
  {{end}}</ul>
  {{template "pagination" .Pager}}
  {{else}}<p>No results for &ldquo;{{.Keyword}}&rdquo;.</p>{{end}}
{{end}}{{end}}

{{define "dashboard"}}<h1>Welcome, {{.Name}}</h1>
{{if .Notice}}<div class="alert alert-info">{{.Notice}}</div>{{end}}
<section id="profile">
  <h2>Profile</h2>
  <dl>
    <dt>Email</dt><dd>{{.User.Email}}</dd>
    {{if .User.Role}}<dt>Role</dt><dd>{{.User.Role}}</dd>{{end}}
  </dl>
</section>
<section id="membership">
  <h2>Membership</h2>
  {{if .Subscription}}
  <p>Status: <span class="badge" data-status="{{.Subscription.Status}}">{{.Subscription.Status}}</span></p>
  {{if .PeriodEnd}}<p>Current period ends {{.PeriodEnd}}</p>{{end}}
  {{else}}<p>You are not subscribed.</p>{{end}}
  {{if .SubscriptionError}}{{.SubscriptionError}}{{end}}
  {{if not .Active}}<div class="plans">{{range .Prices}}<button type="button" class="btn" data-checkout="{{.ID}}">{{.Label}}</button>
  {{end}}</div>{{end}}
</section>{{end}}
`

// HomeProps is the landing page's content.
type HomeProps struct {
	SiteName string
	Tagline  string
	Artists  []catalog.Artist
	Listings []catalog.Listing
	Posts    []catalog.BlogPost
	Events   []catalog.Event
}

// HomePage renders the landing page body.
func HomePage(props HomeProps) string {
	data := struct {
		SiteName string
		Tagline  string
		Artists  []artistCard
		Listings []listingCard
		Posts    []catalog.BlogPost
		Events   []catalog.Event
	}{
		SiteName: props.SiteName,
		Tagline:  props.Tagline,
		Artists:  artistCards(props.Artists),
		Listings: listingCards(props.Listings),
		Posts:    props.Posts,
		Events:   props.Events,
	}
	return execute(views, "home", data)
}

// ArtistsPage renders one page of the artist directory.
func ArtistsPage(artists []catalog.Artist, pager *pagination.Paginator) string {
	data := struct {
		Artists []artistCard
		Pager   paginationData
	}{artistCards(artists), newPagination(pager, "/artists", nil)}
	return execute(views, "artists", data)
}

// ArtistProps is an artist profile. ListingsError, when set, replaces the
// listings grid.
type ArtistProps struct {
	Artist        catalog.Artist
	Listings      []catalog.Listing
	ListingsError string
}

// ArtistPage renders an artist profile.
func ArtistPage(props ArtistProps) string {
	card := newArtistCard(props.Artist)
	data := struct {
		Artist        catalog.Artist
		Reactions     []reactionButton
		Listings      []listingCard
		ListingsError template.HTML
	}{
		Artist:        props.Artist,
		Reactions:     card.Reactions,
		Listings:      listingCards(props.Listings),
		ListingsError: template.HTML(props.ListingsError),
	}
	return execute(views, "artist", data)
}

// ListingsPage renders one page of the marketplace, optionally filtered by
// category.
func ListingsPage(listings []catalog.Listing, category string, pager *pagination.Paginator) string {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	data := struct {
		Listings []listingCard
		Category string
		Pager    paginationData
	}{listingCards(listings), category, newPagination(pager, "/listings", query)}
	return execute(views, "listings", data)
}

// ListingPage renders one listing.
func ListingPage(l catalog.Listing) string {
	return execute(views, "listing", newListingCard(l))
}

// BlogIndexPage renders one page of blog posts.
func BlogIndexPage(posts []catalog.BlogPost, pager *pagination.Paginator) string {
	data := struct {
		Posts []catalog.BlogPost
		Pager paginationData
	}{posts, newPagination(pager, "/blog", nil)}
	return execute(views, "blog-index", data)
}

// BlogPostPage renders a post. The body must already be sanitized.
func BlogPostPage(post catalog.BlogPost) string {
	data := struct {
		Post catalog.BlogPost
		Body template.HTML
	}{post, template.HTML(post.Body)}
	return execute(views, "blog-post", data)
}

// EventsPage renders one page of events.
func EventsPage(events []catalog.Event, pager *pagination.Paginator) string {
	data := struct {
		Events []catalog.Event
		Pager  paginationData
	}{events, newPagination(pager, "/events", nil)}
	return execute(views, "events", data)
}

// EventPage renders one event.
func EventPage(e catalog.Event) string {
	return execute(views, "event", e)
}

// SearchPage renders the search form and, for a keyword, one page of hits
// out of total.
func SearchPage(keyword string, results []catalog.SearchResult, total int, pager *pagination.Paginator) string {
	query := url.Values{}
	if keyword != "" {
		query.Set("keyword", keyword)
	}
	data := struct {
		Keyword string
		Results []catalog.SearchResult
		Total   int
		Pager   paginationData
	}{Keyword: keyword, Results: results, Total: total}
	if pager != nil {
		data.Pager = newPagination(pager, "/search", query)
	}
	return execute(views, "search", data)
}

// DashboardProps is the signed-in member's dashboard. SubscriptionError,
// when set, is an error panel shown in place of the plan list status.
type DashboardProps struct {
	User              user.SessionUser
	Subscription      *user.Subscription
	SubscriptionError string
	Prices            []config.Price
	Notice            string
}

// DashboardPage renders the member dashboard.
func DashboardPage(props DashboardProps) string {
	data := struct {
		DashboardProps
		Name              string
		PeriodEnd         string
		Active            bool
		SubscriptionError template.HTML
	}{
		DashboardProps:    props,
		Name:              props.User.DisplayName(),
		SubscriptionError: template.HTML(props.SubscriptionError),
	}
	if s := props.Subscription; s != nil {
		data.Active = s.Status == "active" || s.Status == "trialing"
		if !s.CurrentPeriodEnd.IsZero() {
			data.PeriodEnd = s.CurrentPeriodEnd.Format(time.DateOnly)
		}
	}
	return execute(views, "dashboard", data)
}

func artistCards(artists []catalog.Artist) []artistCard {
	out := make([]artistCard, 0, len(artists))
	for _, a := range artists {
		out = append(out, newArtistCard(a))
	}
	return out
}

func listingCards(listings []catalog.Listing) []listingCard {
	out := make([]listingCard, 0, len(listings))
	for _, l := range listings {
		out = append(out, newListingCard(l))
	}
	return out
}

package templates

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagination"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/theme"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

func TestRenderLayoutSEO(t *testing.T) {
	site := config.DefaultSite()
	site.SEO.TwitterSite = "@tag"

	html := RenderLayout(LayoutProps{
		Site:    site,
		BaseURL: "https://guild.test/",
		SEO:     SEO{Title: "Ada", Description: "Painter", Path: "/artists/ada", Type: "profile"},
		Content: "<p>hello</p>",
	})

	assert.Contains(t, html, "<title>Ada | Twisted Artists Guild</title>")
	assert.Contains(t, html, `<link rel="canonical" href="https://guild.test/artists/ada">`)
	assert.Contains(t, html, `<meta property="og:type" content="profile">`)
	assert.Contains(t, html, `<meta property="og:image" content="https://guild.test/static/og-default.png">`)
	assert.Contains(t, html, `<meta name="twitter:site" content="@tag">`)
	assert.Contains(t, html, `<meta name="description" content="Painter">`)
	assert.Contains(t, html, "<p>hello</p>")
}

func TestRenderLayoutDefaultsDescription(t *testing.T) {
	site := config.DefaultSite()
	html := RenderLayout(LayoutProps{Site: site, BaseURL: "https://guild.test"})

	assert.Contains(t, html, "<title>Twisted Artists Guild</title>")
	assert.Contains(t, html, site.SEO.Description)
	assert.Contains(t, html, `href="https://guild.test/"`)
}

func TestRenderLayoutNav(t *testing.T) {
	site := config.DefaultSite()

	anon := RenderLayout(LayoutProps{Site: site, State: pagestate.Snapshot{ActiveNav: "artists"}})
	assert.Contains(t, anon, `<a href="/artists" class="active" aria-current="page">Artists</a>`)
	assert.NotContains(t, anon, `<a href="/dashboard"`, "private items are hidden from visitors")
	assert.Contains(t, anon, "Sign in")

	signedIn := RenderLayout(LayoutProps{Site: site, State: pagestate.Snapshot{
		ActiveNav: "dashboard",
		User:      &pagestate.User{ID: "u1", Name: "Ada"},
	}})
	assert.Contains(t, signedIn, `<a href="/dashboard" class="active" aria-current="page">Dashboard</a>`)
	assert.Contains(t, signedIn, "Sign out")
	assert.NotContains(t, signedIn, `class="active" aria-current="page">Artists`)
}

func TestRenderLayoutTOC(t *testing.T) {
	html := RenderLayout(LayoutProps{State: pagestate.Snapshot{Sections: HomeSections}})
	for _, s := range HomeSections {
		assert.Contains(t, html, `<a href="#`+s.ID+`">`+s.Label+`</a>`)
	}

	bare := RenderLayout(LayoutProps{})
	assert.NotContains(t, bare, `class="toc"`)
}

func TestRenderLayoutTheme(t *testing.T) {
	site := config.DefaultSite()

	html := RenderLayout(LayoutProps{Site: site, State: pagestate.Snapshot{Theme: "dark"}})
	assert.Contains(t, html, `data-theme="dark"`)
	assert.Contains(t, html, `data-theme-choice="dark" class="active"`)

	dd := theme.NewDropdown(site.Themes, "retro")
	dd.Open()
	open := RenderLayout(LayoutProps{Site: site, Theme: dd})
	assert.Contains(t, open, `data-theme="retro"`)
	assert.Contains(t, open, `class="dropdown theme-dropdown" open`)

	unknown := RenderLayout(LayoutProps{Site: site, State: pagestate.Snapshot{Theme: "nope"}})
	assert.Contains(t, unknown, `data-theme="light"`)
}

func TestRenderLayoutEscapesTitle(t *testing.T) {
	html := RenderLayout(LayoutProps{SEO: SEO{Title: "<script>x</script>"}})
	assert.NotContains(t, html, "<title><script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestPaginationLinks(t *testing.T) {
	p, err := pagination.New(25, 10)
	require.NoError(t, err)
	require.True(t, p.GoTo(2))

	got := newPagination(p, "/listings", url.Values{"category": {"prints"}})
	want := paginationData{
		Total: 3,
		Prev:  "/listings?category=prints",
		Next:  "/listings?category=prints&page=3",
		Pages: []pageLink{
			{Number: 1, Href: "/listings?category=prints"},
			{Number: 2, Href: "/listings?category=prints&page=2", Current: true},
			{Number: 3, Href: "/listings?category=prints&page=3"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pagination mismatch (-want +got):\n%s", diff)
	}
}

func TestPaginationSinglePage(t *testing.T) {
	p, err := pagination.New(5, 12)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(Pagination(p, "/artists", nil)))
}

func TestPaginationEdges(t *testing.T) {
	p, err := pagination.New(25, 10)
	require.NoError(t, err)

	first := Pagination(p, "/artists", nil)
	assert.Contains(t, first, `<span class="btn disabled">&laquo; Previous</span>`)
	assert.Contains(t, first, `href="/artists?page=2" rel="next"`)

	require.True(t, p.GoTo(3))
	last := Pagination(p, "/artists", nil)
	assert.Contains(t, last, `<span class="btn disabled">Next &raquo;</span>`)
	assert.Contains(t, last, `<span class="btn active" aria-current="page">3</span>`)
}

func TestArtistCardReactions(t *testing.T) {
	html := ArtistCard(catalog.Artist{ID: "7", Title: "Ada", Path: "/ada/", Loves: 42, Likes: 3, Followers: 9})

	assert.Contains(t, html, `href="/artists/ada"`)
	assert.Contains(t, html, `data-react="/api/reactions/artist/7/loves"`)
	assert.Contains(t, html, `<span data-counter="artist:7:loves">42</span>`)
	assert.Contains(t, html, `<span data-counter="artist:7:followers">9</span>`)
}

func TestListingCardHasNoFollowers(t *testing.T) {
	html := ListingCard(catalog.Listing{ID: "3", Title: "Print", Price: 1250, Loves: 1, ArtistID: "7", ArtistName: "Ada"})

	assert.Contains(t, html, "$1,250.00")
	assert.Contains(t, html, `data-counter="listing:3:loves"`)
	assert.NotContains(t, html, "followers")
	assert.Contains(t, html, `href="/artists/7"`)
}

func TestErrorPanel(t *testing.T) {
	html := ErrorPanel(ErrorPanelProps{Message: "The guild service is having trouble right now.", RetryURL: "/artists?page=2"})

	assert.Contains(t, html, "Something went wrong")
	assert.Contains(t, html, "The guild service is having trouble right now.")
	assert.Contains(t, html, `<a class="btn" href="/artists?page=2">Try again</a>`)
	assert.Contains(t, html, `<a class="btn" href="/">Go back</a>`)

	noRetry := ErrorPanel(ErrorPanelProps{Title: "Not found", Message: "gone", BackURL: "/blog"})
	assert.NotContains(t, noRetry, "Try again")
	assert.Contains(t, noRetry, `href="/blog"`)
}

func TestBlogPostBodyIsTrusted(t *testing.T) {
	html := BlogPostPage(catalog.BlogPost{Slug: "hello", Title: "Hello", Body: "<p><strong>bold</strong></p>"})
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestSearchPage(t *testing.T) {
	empty := SearchPage("", nil, 0, nil)
	assert.NotContains(t, empty, "No results")

	none := SearchPage("zzz", nil, 0, nil)
	assert.Contains(t, none, "No results for &ldquo;zzz&rdquo;")

	p, err := pagination.New(1, 12)
	require.NoError(t, err)
	hits := SearchPage("ada", []catalog.SearchResult{{Kind: "artist", ID: "7", Title: "Ada", Path: "ada"}}, 1, p)
	assert.Contains(t, hits, "1 result for")
	assert.Contains(t, hits, `<a href="/artists/ada">Ada</a>`)
}

func TestFormPageRendersByKind(t *testing.T) {
	zero := 0.0
	schema := &forms.Schema{
		Name:  "artist_profile",
		Title: "Edit profile",
		Fields: []forms.Field{
			{Name: "title", Label: "Title", Kind: forms.KindText, Required: true, MaxLength: 40},
			{Name: "bio", Label: "Bio", Kind: forms.KindRichText},
			{Name: "price", Label: "Price", Kind: forms.KindNumber, Min: &zero},
			{Name: "medium", Label: "Medium", Kind: forms.KindSelect, Options: []forms.Option{{Value: "oil", Label: "Oil"}, {Value: "ink", Label: "Ink"}}},
			{Name: "public", Label: "Public", Kind: forms.KindCheckbox},
			{Name: "photo", Label: "Photo", Kind: forms.KindImage},
			{Name: "artist", Kind: forms.KindHidden, Default: "7"},
		},
	}

	html := FormPage(FormProps{
		Schema: schema,
		ID:     "7",
		Values: map[string]string{"title": "", "medium": "ink", "public": "true", "photo": "/media/uploads/p.png"},
		Errors: forms.FieldErrors{"title": "is required"},
	})

	assert.Contains(t, html, `action="/forms/artist_profile?id=7"`)
	assert.Contains(t, html, `<input type="text" id="f-title" name="title" value="" placeholder="" maxlength="40" required>`)
	assert.Contains(t, html, `Title is required`)
	assert.Contains(t, html, `data-richtext`)
	assert.Contains(t, html, `type="number" id="f-price" name="price" value="" placeholder="" min="0"`)
	assert.Contains(t, html, `<option value="ink" selected>Ink</option>`)
	assert.Contains(t, html, `name="public" value="true" checked`)
	assert.Contains(t, html, `<img class="preview" src="/media/uploads/p.png"`)
	assert.Contains(t, html, `name="photo__file"`)
	assert.Contains(t, html, `<input type="hidden" name="artist" value="7">`)
	assert.Contains(t, html, "Please correct the highlighted fields.")
}

func TestSignInPage(t *testing.T) {
	html := SignInPage(SignInProps{
		CallbackURL: "/dashboard",
		Providers: []SignInProvider{
			{ID: "google", Name: "Google", Type: "oauth", SignInURL: "https://guild.test/api/auth/signin/google"},
			{ID: "email", Name: "Email", Type: "email", SignInURL: "https://guild.test/api/auth/signin/email"},
		},
	})

	assert.Contains(t, html, "Sign in with Google")
	assert.Contains(t, html, "callbackUrl=%2fdashboard")
	assert.Contains(t, html, `action="/api/auth/signin/email"`)
	assert.NotContains(t, html, "Sign in with Email")

	oauthOnly := SignInPage(SignInProps{Providers: []SignInProvider{{ID: "google", Name: "Google", Type: "oauth"}}})
	assert.NotContains(t, oauthOnly, `name="email"`)
}

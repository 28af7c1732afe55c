package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagination"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/templates"
)

// pageMoved is returned by paginate for a ?page= past the end. The handler
// answers with a redirect to the last valid page instead of an error panel.
type pageMoved struct {
	requested int
	last      int
}

func (e *pageMoved) Error() string {
	return fmt.Sprintf("page %d out of range, last page is %d", e.requested, e.last)
}

// location is the current URL with ?page= set to the last valid page.
func (e *pageMoved) location(r *http.Request) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(e.last))
	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// PageHandlers renders the public catalog pages and the member dashboard.
type PageHandlers struct {
	catalog     *services.CatalogService
	checkout    *services.CheckoutService
	renderer    *Renderer
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewPageHandlers creates page handlers with injected dependencies
func NewPageHandlers(catalog *services.CatalogService, checkout *services.CheckoutService, renderer *Renderer, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PageHandlers {
	return &PageHandlers{
		catalog:     catalog,
		checkout:    checkout,
		renderer:    renderer,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// paginate positions a paginator on the ?page= of c. A page past the end
// is rejected with *pageMoved, leaving the visitor on the last valid page.
func paginate[T any](c *gin.Context, items []T, pageSize int) ([]T, *pagination.Paginator, error) {
	p, err := pagination.New(len(items), pageSize)
	if err != nil {
		return nil, nil, err
	}
	requested := pagination.FromQuery(c.Query("page"))
	if !p.GoTo(requested) {
		return nil, nil, &pageMoved{requested: requested, last: p.TotalPages()}
	}
	return pagination.Slice(items, p), p, nil
}

func (h *PageHandlers) pageSize() int {
	return h.renderer.Site().PageSize
}

func (h *PageHandlers) finish(marker *performance.Marker, op string, start time.Time, err error) {
	var moved *pageMoved
	if errors.As(err, &moved) {
		marker.SetSuccess(true)
		h.logger.Content().Debug(op+" page redirected", "requested", moved.requested, "last", moved.last, "duration", time.Since(start))
		return
	}
	if err != nil {
		marker.SetError(err)
		h.logger.Content().Warn(op+" page failed", "error", err.Error(), "duration", time.Since(start))
		return
	}
	marker.SetSuccess(true)
	h.logger.Content().Info(op+" page completed", "duration", time.Since(start))
}

// Home renders the landing page.
func (h *PageHandlers) Home(c *gin.Context) {
	start := time.Now()
	h.logger.Content().Debug("Received home page request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("home_page_request", "pages")
	defer marker.Complete()

	home, err := h.catalog.Home(c.Request.Context())
	h.finish(marker, "Home", start, err)
	if err != nil {
		h.renderer.RenderError(c, "home", err, "/")
		return
	}

	site := h.renderer.Site()
	h.renderer.Render(c, Page{
		Nav:      "home",
		Sections: templates.HomeSections,
		Body: templates.HomePage(templates.HomeProps{
			SiteName: site.SEO.SiteName,
			Tagline:  site.SEO.Description,
			Artists:  home.Artists,
			Listings: home.Listings,
			Posts:    home.Posts,
			Events:   home.Events,
		}),
	})
	h.logger.Perf().Info("Performance for Home request", "duration", marker.Duration, "success", true)
}

// Artists renders the artist directory.
func (h *PageHandlers) Artists(c *gin.Context) {
	start := time.Now()
	h.logger.Content().Debug("Received artists page request", "method", c.Request.Method, "path", c.Request.URL.Path, "page", c.Query("page"))
	marker := h.perfTracker.StartOperation("artists_page_request", "pages")
	defer marker.Complete()

	artists, err := h.catalog.ListArtists(c.Request.Context())
	if err == nil {
		var pager *pagination.Paginator
		artists, pager, err = paginate(c, artists, h.pageSize())
		if err == nil {
			h.finish(marker, "Artists", start, nil)
			h.renderer.Render(c, Page{
				Nav:  "artists",
				SEO:  templates.SEO{Title: "Artists", Description: "Meet the artists of the guild."},
				Body: templates.ArtistsPage(artists, pager),
			})
			return
		}
	}
	h.finish(marker, "Artists", start, err)
	h.renderer.RenderError(c, "artists", err, "/")
}

// Artist renders one artist profile with their listings. A listings
// failure shows an error panel in place of the grid.
func (h *PageHandlers) Artist(c *gin.Context) {
	start := time.Now()
	ref := c.Param("id")
	h.logger.Content().Debug("Received artist page request", "method", c.Request.Method, "path", c.Request.URL.Path, "artist", ref)
	marker := h.perfTracker.StartOperation("artist_page_request", "pages")
	defer marker.Complete()

	ctx := c.Request.Context()
	artist, err := h.catalog.GetArtist(ctx, ref)
	if err != nil {
		h.finish(marker, "Artist", start, err)
		h.renderer.RenderError(c, "artists", err, "/artists")
		return
	}

	props := templates.ArtistProps{Artist: *artist}
	listings, err := h.catalog.ListArtistListings(ctx, artist.ID.String())
	if err != nil {
		h.logger.Content().Warn("Artist listings failed to load", "artist", artist.ID, "error", err.Error())
		props.ListingsError = templates.ErrorPanel(templates.ErrorPanelProps{
			Title:    "Listings unavailable",
			Message:  messageFor(err),
			RetryURL: c.Request.URL.RequestURI(),
			BackURL:  "/artists",
		})
	} else {
		props.Listings = listings
	}

	h.finish(marker, "Artist", start, nil)
	h.renderer.Render(c, Page{
		Nav:      "artists",
		Sections: templates.ArtistSections,
		SEO: templates.SEO{
			Title:       artist.Title,
			Description: artist.Byline,
			Image:       artist.ProfilePic,
			Path:        "/artists/" + artist.Slug(),
			Type:        "profile",
		},
		Body: templates.ArtistPage(props),
	})
	h.logger.Perf().Info("Performance for Artist request", "duration", marker.Duration, "artist", artist.ID, "success", true)
}

// Listings renders the marketplace, optionally filtered by ?category=.
func (h *PageHandlers) Listings(c *gin.Context) {
	start := time.Now()
	category := strings.TrimSpace(c.Query("category"))
	h.logger.Content().Debug("Received listings page request", "method", c.Request.Method, "path", c.Request.URL.Path, "category", category)
	marker := h.perfTracker.StartOperation("listings_page_request", "pages")
	defer marker.Complete()

	listings, err := h.catalog.ListListings(c.Request.Context(), category)
	if err == nil {
		var pager *pagination.Paginator
		listings, pager, err = paginate(c, listings, h.pageSize())
		if err == nil {
			title := "Marketplace"
			if category != "" {
				title = category
			}
			h.finish(marker, "Listings", start, nil)
			h.renderer.Render(c, Page{
				Nav:  "listings",
				SEO:  templates.SEO{Title: title, Description: "Original work for sale by guild artists."},
				Body: templates.ListingsPage(listings, category, pager),
			})
			return
		}
	}
	h.finish(marker, "Listings", start, err)
	h.renderer.RenderError(c, "listings", err, "/")
}

// Listing renders one listing.
func (h *PageHandlers) Listing(c *gin.Context) {
	start := time.Now()
	id := c.Param("id")
	h.logger.Content().Debug("Received listing page request", "method", c.Request.Method, "path", c.Request.URL.Path, "listing", id)
	marker := h.perfTracker.StartOperation("listing_page_request", "pages")
	defer marker.Complete()

	listing, err := h.catalog.GetListing(c.Request.Context(), id)
	h.finish(marker, "Listing", start, err)
	if err != nil {
		h.renderer.RenderError(c, "listings", err, "/listings")
		return
	}
	h.renderer.Render(c, Page{
		Nav: "listings",
		SEO: templates.SEO{
			Title:       listing.Title,
			Description: listing.Description,
			Image:       listing.ProfilePic,
			Type:        "product",
		},
		Body: templates.ListingPage(*listing),
	})
}

// Blog renders the blog index.
func (h *PageHandlers) Blog(c *gin.Context) {
	start := time.Now()
	h.logger.Content().Debug("Received blog page request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("blog_page_request", "pages")
	defer marker.Complete()

	posts, err := h.catalog.ListBlogPosts(c.Request.Context())
	if err == nil {
		var pager *pagination.Paginator
		posts, pager, err = paginate(c, posts, h.pageSize())
		if err == nil {
			h.finish(marker, "Blog", start, nil)
			h.renderer.Render(c, Page{
				Nav:  "blog",
				SEO:  templates.SEO{Title: "Blog", Description: "News and stories from the guild."},
				Body: templates.BlogIndexPage(posts, pager),
			})
			return
		}
	}
	h.finish(marker, "Blog", start, err)
	h.renderer.RenderError(c, "blog", err, "/")
}

// BlogPost renders one post.
func (h *PageHandlers) BlogPost(c *gin.Context) {
	start := time.Now()
	slug := c.Param("slug")
	h.logger.Content().Debug("Received blog post request", "method", c.Request.Method, "path", c.Request.URL.Path, "slug", slug)
	marker := h.perfTracker.StartOperation("blog_post_request", "pages")
	defer marker.Complete()

	post, err := h.catalog.GetBlogPost(c.Request.Context(), slug)
	h.finish(marker, "BlogPost", start, err)
	if err != nil {
		h.renderer.RenderError(c, "blog", err, "/blog")
		return
	}
	h.renderer.Render(c, Page{
		Nav:  "blog",
		SEO:  templates.SEO{Title: post.Title, Description: post.Byline, Type: "article"},
		Body: templates.BlogPostPage(*post),
	})
}

// Events renders the events list.
func (h *PageHandlers) Events(c *gin.Context) {
	start := time.Now()
	h.logger.Content().Debug("Received events page request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("events_page_request", "pages")
	defer marker.Complete()

	events, err := h.catalog.ListEvents(c.Request.Context())
	if err == nil {
		var pager *pagination.Paginator
		events, pager, err = paginate(c, events, h.pageSize())
		if err == nil {
			h.finish(marker, "Events", start, nil)
			h.renderer.Render(c, Page{
				Nav:  "events",
				SEO:  templates.SEO{Title: "Events", Description: "Shows, fairs and open calls."},
				Body: templates.EventsPage(events, pager),
			})
			return
		}
	}
	h.finish(marker, "Events", start, err)
	h.renderer.RenderError(c, "events", err, "/")
}

// Event renders one event.
func (h *PageHandlers) Event(c *gin.Context) {
	start := time.Now()
	ref := c.Param("id")
	h.logger.Content().Debug("Received event page request", "method", c.Request.Method, "path", c.Request.URL.Path, "event", ref)
	marker := h.perfTracker.StartOperation("event_page_request", "pages")
	defer marker.Complete()

	event, err := h.catalog.GetEvent(c.Request.Context(), ref)
	h.finish(marker, "Event", start, err)
	if err != nil {
		h.renderer.RenderError(c, "events", err, "/events")
		return
	}
	h.renderer.Render(c, Page{
		Nav:  "events",
		SEO:  templates.SEO{Title: event.Title, Description: event.Byline, Path: "/events/" + event.Slug()},
		Body: templates.EventPage(*event),
	})
}

// Search renders results for ?keyword=. A blank keyword shows the form only.
func (h *PageHandlers) Search(c *gin.Context) {
	start := time.Now()
	keyword := strings.TrimSpace(c.Query("keyword"))
	h.logger.Content().Debug("Received search request", "method", c.Request.Method, "path", c.Request.URL.Path, "keyword", keyword)
	marker := h.perfTracker.StartOperation("search_page_request", "pages")
	defer marker.Complete()

	seo := templates.SEO{Title: "Search", NoIndex: true}
	if keyword == "" {
		h.finish(marker, "Search", start, nil)
		h.renderer.Render(c, Page{Nav: "search", SEO: seo, Body: templates.SearchPage("", nil, 0, nil)})
		return
	}

	results, err := h.catalog.Search(c.Request.Context(), keyword)
	total := len(results)
	var pager *pagination.Paginator
	if err == nil {
		results, pager, err = paginate(c, results, h.pageSize())
	}
	h.finish(marker, "Search", start, err)
	if err != nil {
		h.renderer.RenderError(c, "search", err, "/search")
		return
	}
	h.renderer.Render(c, Page{Nav: "search", SEO: seo, Body: templates.SearchPage(keyword, results, total, pager)})
	h.logger.Perf().Info("Performance for Search request", "duration", marker.Duration, "results", total, "success", true)
}

var checkoutNotices = map[string]string{
	"success":  "Thanks! Your membership is being activated.",
	"canceled": "Checkout was canceled. You have not been charged.",
}

// Dashboard renders the signed-in member's profile and membership.
func (h *PageHandlers) Dashboard(c *gin.Context) {
	start := time.Now()
	h.logger.Content().Debug("Received dashboard request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("dashboard_request", "pages")
	defer marker.Complete()

	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	props := templates.DashboardProps{
		User:   *u,
		Prices: h.renderer.Site().Prices,
		Notice: checkoutNotices[c.Query("checkout")],
	}
	sub, err := h.checkout.Subscription(c.Request.Context(), u.ID)
	if err != nil {
		h.logger.Payments().Error("Subscription lookup failed", "userId", logging.MaskID(u.ID), "error", err.Error())
		props.SubscriptionError = templates.ErrorPanel(templates.ErrorPanelProps{
			Title:    "Membership unavailable",
			Message:  "We couldn't load your membership. Please try again.",
			RetryURL: c.Request.URL.RequestURI(),
			BackURL:  "/",
		})
	}
	props.Subscription = sub

	h.finish(marker, "Dashboard", start, nil)
	h.renderer.Render(c, Page{
		Nav:      "dashboard",
		Sections: templates.DashboardSections,
		SEO:      templates.SEO{Title: "Dashboard", NoIndex: true},
		Body:     templates.DashboardPage(props),
	})
	h.logger.Perf().Info("Performance for Dashboard request", "duration", marker.Duration, "userId", logging.MaskID(u.ID), "success", true)
}

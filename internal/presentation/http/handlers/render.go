// Package handlers provides the HTTP handlers for pages and JSON routes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/templates"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// Page is one rendered page: its nav item, in-page sections and body.
type Page struct {
	Status   int
	Nav      string
	Sections []pagestate.Section
	SEO      templates.SEO
	Body     string
}

// Renderer wraps page bodies in the site layout.
type Renderer struct {
	site    *config.Site
	baseURL string
}

// NewRenderer creates a renderer for site served from baseURL.
func NewRenderer(site *config.Site, baseURL string) *Renderer {
	if site == nil {
		site = config.DefaultSite()
	}
	return &Renderer{site: site, baseURL: baseURL}
}

// Site returns the site settings pages are rendered with.
func (r *Renderer) Site() *config.Site { return r.site }

// Render mounts the page in the visitor's page state for the duration of
// the render, so the layout sees its nav item and sections.
func (r *Renderer) Render(c *gin.Context, p Page) {
	mount := middleware.PageState(c).Mount(p.Nav, p.Sections)
	defer mount.Unmount()

	if p.SEO.Path == "" {
		p.SEO.Path = c.Request.URL.Path
	}
	if p.Status == 0 {
		p.Status = http.StatusOK
	}
	html := templates.RenderLayout(templates.LayoutProps{
		Site:    r.site,
		BaseURL: r.baseURL,
		SEO:     p.SEO,
		State:   mount.Snapshot(),
		Content: p.Body,
	})
	c.Data(p.Status, "text/html; charset=utf-8", []byte(html))
}

// RenderError shows the error panel for err inside the layout. Retry
// reloads the current URL. A page past the end redirects to the last page.
func (r *Renderer) RenderError(c *gin.Context, nav string, err error, backURL string) {
	var moved *pageMoved
	if errors.As(err, &moved) {
		c.Redirect(http.StatusFound, moved.location(c.Request))
		return
	}
	status := statusFor(err)
	title := "Something went wrong"
	if status == http.StatusNotFound {
		title = "Not found"
	}
	retry := c.Request.URL.RequestURI()
	if status == http.StatusNotFound {
		retry = ""
	}
	r.Render(c, Page{
		Status: status,
		Nav:    nav,
		SEO:    templates.SEO{Title: title, NoIndex: true},
		Body: templates.ErrorPanel(templates.ErrorPanelProps{
			Title:    title,
			Message:  messageFor(err),
			RetryURL: retry,
			BackURL:  backURL,
		}),
	})
}

// RenderPanic is the recovery middleware's fallback page.
func (r *Renderer) RenderPanic(c *gin.Context, _ error) {
	r.Render(c, Page{
		Status: http.StatusInternalServerError,
		SEO:    templates.SEO{Title: "Something went wrong", NoIndex: true},
		Body: templates.ErrorPanel(templates.ErrorPanelProps{
			Message:  "The page failed to render. Please try again.",
			RetryURL: c.Request.URL.RequestURI(),
			BackURL:  "/",
		}),
	})
}

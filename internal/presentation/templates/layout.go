// Package templates renders the site's pages with html/template. Every
// renderer returns a string; page bodies are wrapped by RenderLayout.
package templates

import (
	"bytes"
	"html/template"
	"log/slog"
	"strings"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/theme"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// SEO is the per-page meta data. Empty fields fall back to the site defaults.
type SEO struct {
	Title       string
	Description string
	Image       string
	Path        string
	Type        string
	NoIndex     bool
}

// LayoutProps is everything the page shell needs.
type LayoutProps struct {
	Site    *config.Site
	BaseURL string
	SEO     SEO
	State   pagestate.Snapshot
	Theme   *theme.Dropdown
	Content string
}

type navLink struct {
	Label  string
	Href   string
	Active bool
}

type layoutData struct {
	Title       string
	Description string
	Canonical   string
	Image       string
	Type        string
	SiteName    string
	TwitterSite string
	NoIndex     bool
	Nav         []navLink
	User        *pagestate.User
	Sections    []pagestate.Section
	Theme       string
	Themes      []string
	ThemeOpen   bool
	SignInURL   string
	Content     template.HTML
	Script      template.JS
}

var layoutTemplate = template.Must(template.New("layout").Parse(`<!doctype html>
<html lang="en" data-theme="{{.Theme}}">
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <meta name="description" content="{{.Description}}">
    {{if .NoIndex}}<meta name="robots" content="noindex">{{end}}
    <link rel="canonical" href="{{.Canonical}}">
    <meta property="og:site_name" content="{{.SiteName}}">
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:description" content="{{.Description}}">
    <meta property="og:type" content="{{.Type}}">
    <meta property="og:url" content="{{.Canonical}}">
    <meta property="og:image" content="{{.Image}}">
    <meta name="twitter:card" content="summary_large_image">
    {{if .TwitterSite}}<meta name="twitter:site" content="{{.TwitterSite}}">{{end}}
    <meta name="twitter:title" content="{{.Title}}">
    <meta name="twitter:description" content="{{.Description}}">
    <meta name="twitter:image" content="{{.Image}}">
    <link rel="stylesheet" href="/static/site.css">
  </head>
  <body>
    <header class="navbar">
      <a class="brand" href="/">{{.SiteName}}</a>
      <nav>
        <ul class="menu">
          {{range .Nav}}<li><a href="{{.Href}}"{{if .Active}} class="active" aria-current="page"{{end}}>{{.Label}}</a></li>
          {{end}}
        </ul>
      </nav>
      <form class="search" action="/search" method="get"><input type="search" name="keyword" placeholder="Search" aria-label="Search"></form>
      <details class="dropdown theme-dropdown"{{if .ThemeOpen}} open{{end}}>
        <summary>Theme</summary>
        <ul class="menu">
          {{range .Themes}}<li><button type="button" data-theme-choice="{{.}}"{{if eq . $.Theme}} class="active"{{end}}>{{.}}</button></li>
          {{end}}
        </ul>
      </details>
      {{if .User}}
      <details class="dropdown user-menu">
        <summary>{{if .User.Image}}<img class="avatar" src="{{.User.Image}}" alt="">{{end}}{{.User.Name}}</summary>
        <ul class="menu">
          <li><a href="/dashboard">Dashboard</a></li>
          <li><form action="/api/auth/signout" method="post"><button type="submit">Sign out</button></form></li>
        </ul>
      </details>
      {{else}}
      <a class="btn" href="{{.SignInURL}}">Sign in</a>
      {{end}}
    </header>
    <div class="page">
      {{if .Sections}}
      <aside class="toc">
        <p>On this page</p>
        <ul>
          {{range .Sections}}<li><a href="#{{.ID}}">{{.Label}}</a></li>
          {{end}}
        </ul>
      </aside>
      {{end}}
      <main>{{.Content}}</main>
    </div>
    <footer class="footer">&copy; {{.SiteName}}</footer>
    <script>{{.Script}}</script>
  </body>
</html>`))

// RenderLayout wraps props.Content, which must already be safe HTML, in the
// site shell.
func RenderLayout(props LayoutProps) string {
	site := props.Site
	if site == nil {
		site = config.DefaultSite()
	}
	state := props.State

	data := layoutData{
		Title:       pageTitle(props.SEO.Title, site.SEO.SiteName),
		Description: firstNonEmpty(props.SEO.Description, site.SEO.Description),
		Canonical:   absoluteURL(props.BaseURL, firstNonEmpty(props.SEO.Path, "/")),
		Image:       absoluteURL(props.BaseURL, firstNonEmpty(props.SEO.Image, site.SEO.Image)),
		Type:        firstNonEmpty(props.SEO.Type, "website"),
		SiteName:    site.SEO.SiteName,
		TwitterSite: site.SEO.TwitterSite,
		NoIndex:     props.SEO.NoIndex,
		User:        state.User,
		Sections:    state.Sections,
		SignInURL:   "/api/auth/signin?callbackUrl=" + template.URLQueryEscaper(firstNonEmpty(props.SEO.Path, "/")),
		Content:     template.HTML(props.Content),
		Script:      template.JS(clientScript),
	}
	for _, item := range site.Nav {
		if item.Private && state.User == nil {
			continue
		}
		data.Nav = append(data.Nav, navLink{Label: item.Label, Href: item.Href, Active: item.ID == state.ActiveNav})
	}

	dropdown := props.Theme
	if dropdown == nil {
		dropdown = theme.NewDropdown(site.Themes, firstNonEmpty(state.Theme, site.DefaultTheme))
	}
	data.Theme = dropdown.Active()
	data.Themes = dropdown.Themes()
	data.ThemeOpen = dropdown.IsOpen()

	var buf bytes.Buffer
	if err := layoutTemplate.Execute(&buf, data); err != nil {
		slog.Error("Error executing layout template", "error", err)
		return "<!doctype html><html><body>" + props.Content + "</body></html>"
	}
	return buf.String()
}

func pageTitle(title, siteName string) string {
	switch {
	case title == "":
		return siteName
	case siteName == "" || title == siteName:
		return title
	default:
		return title + " | " + siteName
	}
}

func absoluteURL(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func execute(t *template.Template, name string, data any) string {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Error executing template", "template", name, "error", err)
		return ""
	}
	return buf.String()
}

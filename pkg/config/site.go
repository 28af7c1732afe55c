package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NavItem is one entry of the top navigation bar.
type NavItem struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Href    string `yaml:"href"`
	Private bool   `yaml:"private"`
}

// SEODefaults fill in meta tags a page does not set itself.
type SEODefaults struct {
	SiteName    string `yaml:"siteName"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	TwitterSite string `yaml:"twitterSite"`
}

// Site holds the presentation settings read from site.yaml.
type Site struct {
	Nav          []NavItem   `yaml:"nav"`
	Themes       []string    `yaml:"themes"`
	DefaultTheme string      `yaml:"defaultTheme"`
	SEO          SEODefaults `yaml:"seo"`
	PageSize     int         `yaml:"pageSize"`
	Prices       []Price     `yaml:"prices"`
}

// Price is a subscription plan offered on the dashboard.
type Price struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// DefaultSite is used when no site.yaml is present.
func DefaultSite() *Site {
	return &Site{
		Nav: []NavItem{
			{ID: "home", Label: "Home", Href: "/"},
			{ID: "artists", Label: "Artists", Href: "/artists"},
			{ID: "listings", Label: "Marketplace", Href: "/listings"},
			{ID: "events", Label: "Events", Href: "/events"},
			{ID: "blog", Label: "Blog", Href: "/blog"},
			{ID: "dashboard", Label: "Dashboard", Href: "/dashboard", Private: true},
		},
		Themes:       []string{"light", "dark", "cupcake", "synthwave", "retro", "cyberpunk"},
		DefaultTheme: "light",
		SEO: SEODefaults{
			SiteName:    "Twisted Artists Guild",
			Description: "A marketplace connecting artists, buyers, event-goers and investors.",
			Image:       "/static/og-default.png",
		},
		PageSize: 12,
	}
}

// LoadSite reads path, falling back to DefaultSite when the file is absent.
// Fields missing from the file keep their defaults.
func LoadSite(path string) (*Site, error) {
	site := DefaultSite()

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, site); err != nil {
		return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}

	if site.PageSize < 1 {
		site.PageSize = DefaultSite().PageSize
	}
	if len(site.Themes) == 0 {
		site.Themes = DefaultSite().Themes
	}
	if !contains(site.Themes, site.DefaultTheme) {
		site.DefaultTheme = site.Themes[0]
	}
	return site, nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

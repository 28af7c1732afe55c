package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSite_MissingFileUsesDefaults(t *testing.T) {
	site, err := LoadSite(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSite(), site)
}

func TestLoadSite_OverridesAndRepairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	body := `
themes: [night, day]
defaultTheme: sepia
pageSize: 0
seo:
  siteName: TAG
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	site, err := LoadSite(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"night", "day"}, site.Themes)
	assert.Equal(t, "night", site.DefaultTheme, "unknown default falls back to first theme")
	assert.Equal(t, 12, site.PageSize)
	assert.Equal(t, "TAG", site.SEO.SiteName)
	assert.NotEmpty(t, site.Nav, "nav keeps defaults when the file omits it")
}

func TestLoadSite_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("themes: [unterminated"), 0o644))

	_, err := LoadSite(path)
	assert.Error(t, err)
}

func TestLoad_APIURLAlias(t *testing.T) {
	t.Setenv("TAG_API_URL", "")
	t.Setenv("NEXT_PUBLIC_TAG_API_URL", "https://api.example.com/")
	Load()
	assert.Equal(t, "https://api.example.com/", APIBaseURL)

	t.Setenv("TAG_API_URL", "https://primary.example.com/")
	Load()
	assert.Equal(t, "https://primary.example.com/", APIBaseURL)
}

func TestMissing(t *testing.T) {
	got := Missing(map[string]string{"B": "", "A": " ", "C": "set"})
	assert.Equal(t, []string{"A", "B"}, got)
}

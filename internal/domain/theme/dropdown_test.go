package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var themes = []string{"light", "dark", "synthwave"}

func TestSelectSetsThemeAndCloses(t *testing.T) {
	for _, want := range themes {
		d := NewDropdown(themes, "light")
		d.Open()
		assert.NoError(t, d.Select(want))
		assert.Equal(t, want, d.Active())
		assert.False(t, d.IsOpen())
	}
}

func TestClickOutsideClosesWithoutChange(t *testing.T) {
	d := NewDropdown(themes, "dark")
	d.Toggle()
	assert.True(t, d.IsOpen())

	d.ClickOutside()
	assert.False(t, d.IsOpen())
	assert.Equal(t, "dark", d.Active())
}

func TestSelectUnknownTheme(t *testing.T) {
	d := NewDropdown(themes, "dark")
	d.Open()
	err := d.Select("neon")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	assert.Equal(t, "dark", d.Active())
	assert.True(t, d.IsOpen(), "rejected selection leaves the menu as it was")
}

func TestNewDropdownFallsBack(t *testing.T) {
	assert.Equal(t, "light", NewDropdown(themes, "neon").Active())
	assert.Equal(t, "", NewDropdown(nil, "neon").Active())
}

func TestThemesIsACopy(t *testing.T) {
	d := NewDropdown(themes, "light")
	got := d.Themes()
	got[0] = "mutated"
	assert.True(t, d.Offers("light"))
}

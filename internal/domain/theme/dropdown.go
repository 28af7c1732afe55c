// Package theme models the theme switcher dropdown.
package theme

import (
	"errors"
	"fmt"
)

// ErrUnknownTheme is returned when selecting a theme that is not offered.
var ErrUnknownTheme = errors.New("unknown theme")

// Dropdown is the open/closed state of the theme menu plus the active theme.
type Dropdown struct {
	themes []string
	active string
	open   bool
}

// NewDropdown builds a closed dropdown. An active theme not in themes falls
// back to the first theme.
func NewDropdown(themes []string, active string) *Dropdown {
	d := &Dropdown{themes: append([]string{}, themes...)}
	if d.Offers(active) {
		d.active = active
	} else if len(d.themes) > 0 {
		d.active = d.themes[0]
	}
	return d
}

func (d *Dropdown) Active() string   { return d.active }
func (d *Dropdown) IsOpen() bool     { return d.open }
func (d *Dropdown) Themes() []string { return append([]string{}, d.themes...) }

// Offers reports whether theme is in the list.
func (d *Dropdown) Offers(theme string) bool {
	for _, t := range d.themes {
		if t == theme {
			return true
		}
	}
	return false
}

func (d *Dropdown) Open()   { d.open = true }
func (d *Dropdown) Toggle() { d.open = !d.open }

// Select makes theme active and closes the menu. Unknown themes leave the
// dropdown untouched.
func (d *Dropdown) Select(theme string) error {
	if !d.Offers(theme) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	d.active = theme
	d.open = false
	return nil
}

// ClickOutside closes an open menu without changing the theme.
func (d *Dropdown) ClickOutside() {
	d.open = false
}

// Package pagination computes page counts and page windows over lists that
// are already fully loaded, or over an externally reported total.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidPageSize = errors.New("items per page must be at least 1")
	ErrNegativeTotal   = errors.New("total items cannot be negative")
)

// Paginator tracks the current page over totalItems split into pages of
// itemsPerPage. Current is always within [1, TotalPages].
//
// In controlled mode the parent owns the page number: navigation calls
// onChange with the requested page and the paginator only moves when the
// parent calls SetCurrent.
type Paginator struct {
	totalItems   int
	itemsPerPage int
	current      int
	onChange     func(page int)
}

// New returns an uncontrolled paginator positioned on page 1.
func New(totalItems, itemsPerPage int) (*Paginator, error) {
	if err := validate(totalItems, itemsPerPage); err != nil {
		return nil, err
	}
	return &Paginator{totalItems: totalItems, itemsPerPage: itemsPerPage, current: 1}, nil
}

// NewControlled returns a paginator whose page is owned by the caller.
// current is clamped into range.
func NewControlled(totalItems, itemsPerPage, current int, onChange func(page int)) (*Paginator, error) {
	if err := validate(totalItems, itemsPerPage); err != nil {
		return nil, err
	}
	p := &Paginator{totalItems: totalItems, itemsPerPage: itemsPerPage, onChange: onChange}
	p.current = p.clamp(current)
	return p, nil
}

func validate(totalItems, itemsPerPage int) error {
	if itemsPerPage < 1 {
		return ErrInvalidPageSize
	}
	if totalItems < 0 {
		return ErrNegativeTotal
	}
	return nil
}

// TotalPages is max(1, ceil(totalItems/itemsPerPage)).
func (p *Paginator) TotalPages() int {
	pages := (p.totalItems + p.itemsPerPage - 1) / p.itemsPerPage
	if pages < 1 {
		return 1
	}
	return pages
}

func (p *Paginator) Current() int      { return p.current }
func (p *Paginator) TotalItems() int   { return p.totalItems }
func (p *Paginator) ItemsPerPage() int { return p.itemsPerPage }
func (p *Paginator) Controlled() bool  { return p.onChange != nil }
func (p *Paginator) HasPrev() bool     { return p.current > 1 }
func (p *Paginator) HasNext() bool     { return p.current < p.TotalPages() }

// GoTo moves to page. Pages outside [1, TotalPages] are rejected and leave
// the paginator where it was.
func (p *Paginator) GoTo(page int) bool {
	if page < 1 || page > p.TotalPages() {
		return false
	}
	if page == p.current {
		return true
	}
	if p.onChange != nil {
		p.onChange(page)
		return true
	}
	p.current = page
	return true
}

// Next advances one page, staying on the last page.
func (p *Paginator) Next() bool {
	if !p.HasNext() {
		return false
	}
	return p.GoTo(p.current + 1)
}

// Prev goes back one page, staying on the first page.
func (p *Paginator) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	return p.GoTo(p.current - 1)
}

// SetCurrent is how a controlling parent pushes its page back in.
func (p *Paginator) SetCurrent(page int) {
	p.current = p.clamp(page)
}

// SetTotal updates the item count (a new external total, or a reloaded
// list) and re-clamps the current page.
func (p *Paginator) SetTotal(totalItems int) error {
	if totalItems < 0 {
		return ErrNegativeTotal
	}
	p.totalItems = totalItems
	p.current = p.clamp(p.current)
	return nil
}

// Bounds returns the half-open [start, end) item window of the current page.
func (p *Paginator) Bounds() (start, end int) {
	start = (p.current - 1) * p.itemsPerPage
	if start > p.totalItems {
		start = p.totalItems
	}
	end = start + p.itemsPerPage
	if end > p.totalItems {
		end = p.totalItems
	}
	return start, end
}

// Offset is the index of the first item on the current page.
func (p *Paginator) Offset() int {
	start, _ := p.Bounds()
	return start
}

// Pages lists page numbers for rendering a page strip.
func (p *Paginator) Pages() []int {
	pages := make([]int, p.TotalPages())
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

func (p *Paginator) clamp(page int) int {
	if page < 1 {
		return 1
	}
	if total := p.TotalPages(); page > total {
		return total
	}
	return page
}

// Slice returns the items on the paginator's current page.
func Slice[T any](items []T, p *Paginator) []T {
	start, end := p.Bounds()
	if start >= len(items) {
		return []T{}
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// FromQuery parses a ?page= value, treating anything unusable as page 1.
func FromQuery(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

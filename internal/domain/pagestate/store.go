// Package pagestate holds the transient UI state shared between a page and
// the layout around it: the active nav item, a mirror of the signed-in
// user, the selected theme, and the page's in-page sections used for the
// table of contents.
package pagestate

import (
	"sync"
)

// Section is one in-page navigation anchor.
type Section struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// User mirrors the session user for rendering; the auth layer owns the real one.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
	Role  string `json:"role,omitempty"`
}

// Snapshot is an immutable copy of a Store's state.
type Snapshot struct {
	ActiveNav string    `json:"activeNav"`
	User      *User     `json:"user,omitempty"`
	Sections  []Section `json:"sections"`
	Theme     string    `json:"theme"`
}

// Store is the application-state container. Pages Mount on entry and
// Unmount on exit; the layout reads Snapshot or Subscribes.
type Store struct {
	mu          sync.RWMutex
	activeNav   string
	user        *User
	sections    []Section
	theme       string
	owner       *Mount
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// NewStore returns an empty store using theme as the initial theme.
func NewStore(theme string) *Store {
	return &Store{
		theme:       theme,
		sections:    []Section{},
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Mount is a page's claim on the section list. Only the current owner's
// Unmount clears it, so a late Unmount from a previous page cannot wipe the
// next page's sections.
type Mount struct {
	store *Store
	page  string
	snap  Snapshot
	once  sync.Once
}

// Page returns the nav id the mount was registered under.
func (m *Mount) Page() string { return m.page }

// Snapshot returns the state as it was when the mount took effect. A
// concurrent Mount on the same store cannot leak into it.
func (m *Mount) Snapshot() Snapshot {
	snap := m.snap
	snap.Sections = append([]Section{}, m.snap.Sections...)
	return snap
}

// Mount registers nav as the active item and sections as the page's anchors,
// replacing whatever a previous page left behind.
func (s *Store) Mount(nav string, sections []Section) *Mount {
	m := &Mount{store: s, page: nav}

	s.mu.Lock()
	s.activeNav = nav
	s.sections = append([]Section{}, sections...)
	s.owner = m
	snap, subs := s.snapshotLocked()
	m.snap = snap
	s.mu.Unlock()

	publish(subs, m.Snapshot())
	return m
}

// Unmount clears the sections if m still owns them. Safe to call twice.
func (m *Mount) Unmount() {
	m.once.Do(func() {
		s := m.store
		s.mu.Lock()
		if s.owner != m {
			s.mu.Unlock()
			return
		}
		s.owner = nil
		s.sections = []Section{}
		snap, subs := s.snapshotLocked()
		s.mu.Unlock()

		publish(subs, snap)
	})
}

// SetSections replaces the sections of the owning mount, e.g. after the page
// loaded data that adds anchors. Ignored for stale mounts.
func (m *Mount) SetSections(sections []Section) {
	s := m.store
	s.mu.Lock()
	if s.owner != m {
		s.mu.Unlock()
		return
	}
	s.sections = append([]Section{}, sections...)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	publish(subs, snap)
}

// Subscribe registers fn for every state change. The returned func
// unsubscribes; it is safe to call more than once.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// SubscriberCount is exposed for leak checks in tests and diagnostics.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// SetUser mirrors the session user; nil clears it.
func (s *Store) SetUser(user *User) {
	s.mu.Lock()
	if user != nil {
		u := *user
		user = &u
	}
	s.user = user
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	publish(subs, snap)
}

// SetTheme records the active theme.
func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	s.theme = theme
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	publish(subs, snap)
}

// Reset drops the page-scoped state: active nav and sections. The user
// mirror and theme outlive navigation.
func (s *Store) Reset() {
	s.mu.Lock()
	s.activeNav = ""
	s.sections = []Section{}
	s.owner = nil
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	publish(subs, snap)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, _ := s.snapshotLocked()
	return snap
}

func (s *Store) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snap := Snapshot{
		ActiveNav: s.activeNav,
		Sections:  append([]Section{}, s.sections...),
		Theme:     s.theme,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}

	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return snap, subs
}

func publish(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

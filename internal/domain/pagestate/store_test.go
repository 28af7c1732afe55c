package pagestate

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var artistSections = []Section{
	{ID: "about", Label: "About"},
	{ID: "listings", Label: "Listings"},
	{ID: "events", Label: "Events"},
}

func TestMountUnmountClearsSections(t *testing.T) {
	s := NewStore("light")
	m := s.Mount("artists", artistSections)

	snap := s.Snapshot()
	assert.Equal(t, "artists", snap.ActiveNav)
	if diff := cmp.Diff(artistSections, snap.Sections); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}

	m.Unmount()
	assert.Equal(t, []Section{}, s.Snapshot().Sections)
}

func TestMountSnapshotIsItsOwnPage(t *testing.T) {
	s := NewStore("light")
	first := s.Mount("artists", artistSections)
	second := s.Mount("events", []Section{{ID: "upcoming", Label: "Upcoming"}})

	snap := first.Snapshot()
	assert.Equal(t, "artists", snap.ActiveNav)
	if diff := cmp.Diff(artistSections, snap.Sections); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "events", s.Snapshot().ActiveNav)

	snap.Sections[0].Label = "changed"
	assert.Equal(t, "About", first.Snapshot().Sections[0].Label)
	second.Unmount()
	first.Unmount()
}

func TestConcurrentMountsKeepTheirSnapshots(t *testing.T) {
	s := NewStore("light")
	pages := map[string][]Section{
		"artists": artistSections,
		"events":  {{ID: "upcoming", Label: "Upcoming"}},
	}

	var wg sync.WaitGroup
	for nav, sections := range pages {
		wg.Add(1)
		go func(nav string, sections []Section) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				m := s.Mount(nav, sections)
				snap := m.Snapshot()
				m.Unmount()
				if snap.ActiveNav != nav || len(snap.Sections) != len(sections) {
					t.Errorf("mount for %s saw %s with %d sections", nav, snap.ActiveNav, len(snap.Sections))
					return
				}
			}
		}(nav, sections)
	}
	wg.Wait()
}

func TestNextPageWithoutSectionsSeesEmptyRegistry(t *testing.T) {
	s := NewStore("light")
	s.Mount("artists", artistSections).Unmount()

	next := s.Mount("listings", nil)
	defer next.Unmount()
	assert.Empty(t, s.Snapshot().Sections)
	assert.Equal(t, "listings", s.Snapshot().ActiveNav)
}

func TestStaleUnmountDoesNotClearNewPage(t *testing.T) {
	s := NewStore("light")
	first := s.Mount("artists", artistSections)
	second := s.Mount("blog", []Section{{ID: "post", Label: "Post"}})

	first.Unmount()
	assert.Equal(t, []Section{{ID: "post", Label: "Post"}}, s.Snapshot().Sections)

	first.SetSections(artistSections)
	assert.Len(t, s.Snapshot().Sections, 1, "stale mounts cannot write either")

	second.Unmount()
	second.Unmount()
	assert.Empty(t, s.Snapshot().Sections)
}

func TestMountCopiesInput(t *testing.T) {
	s := NewStore("light")
	in := []Section{{ID: "a", Label: "A"}}
	m := s.Mount("x", in)
	defer m.Unmount()

	in[0].Label = "mutated"
	assert.Equal(t, "A", s.Snapshot().Sections[0].Label)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewStore("light")
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	require.Equal(t, 1, s.SubscriberCount())

	m := s.Mount("artists", artistSections)
	m.Unmount()
	s.SetTheme("dark")

	require.Len(t, got, 3)
	assert.Len(t, got[0].Sections, 3)
	assert.Empty(t, got[1].Sections)
	assert.Equal(t, "dark", got[2].Theme)

	unsubscribe()
	unsubscribe()
	assert.Zero(t, s.SubscriberCount())

	s.SetTheme("light")
	assert.Len(t, got, 3)
}

func TestUserMirrorAndReset(t *testing.T) {
	s := NewStore("light")
	s.SetUser(&User{ID: "u1", Name: "Ada"})
	s.Mount("dashboard", artistSections)

	s.Reset()
	snap := s.Snapshot()
	assert.Empty(t, snap.ActiveNav)
	assert.Empty(t, snap.Sections)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Ada", snap.User.Name)
	assert.Equal(t, "light", snap.Theme)

	s.SetUser(nil)
	assert.Nil(t, s.Snapshot().User)
}

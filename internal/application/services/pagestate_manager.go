package services

import (
	"sync"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
)

// PageStateManager keeps one page state store per visitor. Idle visitors
// expire with the backing TTL store.
type PageStateManager struct {
	visitors     *stores.TTLStore[*pagestate.Store]
	defaultTheme string
	logger       *logging.ChanneledLogger
	mu           sync.Mutex
}

// NewPageStateManager creates the manager.
func NewPageStateManager(visitors *stores.TTLStore[*pagestate.Store], defaultTheme string, logger *logging.ChanneledLogger) *PageStateManager {
	return &PageStateManager{visitors: visitors, defaultTheme: defaultTheme, logger: logger}
}

// NewVisitorID returns an id for the visitor cookie.
func (m *PageStateManager) NewVisitorID() string {
	return security.GenerateULID()
}

// Get returns the visitor's store, creating it on first use, and extends its
// life.
func (m *PageStateManager) Get(visitorID string) *pagestate.Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.visitors.Get(visitorID); ok {
		m.visitors.Touch(visitorID)
		return s
	}
	s := pagestate.NewStore(m.defaultTheme)
	m.visitors.Set(visitorID, s)
	m.logger.Cache().Debug("Visitor page state created", "visitor", logging.MaskID(visitorID))
	return s
}

// Peek returns the visitor's store without creating one.
func (m *PageStateManager) Peek(visitorID string) (*pagestate.Store, bool) {
	return m.visitors.Get(visitorID)
}

// Drop forgets a visitor.
func (m *PageStateManager) Drop(visitorID string) {
	m.visitors.Delete(visitorID)
}

// Len counts tracked visitors, including expired ones not yet swept.
func (m *PageStateManager) Len() int {
	return m.visitors.Len()
}

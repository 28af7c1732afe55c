package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Tracker keeps a bounded window of completed markers and flags slow ones
type Tracker struct {
	mu        sync.RWMutex
	completed []Marker
	next      int
	full      bool
	config    *TrackerConfig
	logger    *slog.Logger
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers    int           // ring size for completed markers
	SlowThreshold time.Duration // markers slower than this are logged as warnings
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    1000,
		SlowThreshold: 2 * time.Second,
	}
}

// NewTracker creates a new performance tracker. logger may be nil.
func NewTracker(config *TrackerConfig, logger *slog.Logger) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.MaxMarkers < 1 {
		config.MaxMarkers = 1
	}
	return &Tracker{
		completed: make([]Marker, config.MaxMarkers),
		config:    config,
		logger:    logger,
	}
}

// StartOperation creates a marker that reports back when completed
func (t *Tracker) StartOperation(operation, scope string) *Marker {
	return &Marker{
		Operation: operation,
		Scope:     scope,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // until proven otherwise
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	t.completed[t.next] = *m
	t.completed[t.next].tracker = nil
	t.next = (t.next + 1) % len(t.completed)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()

	if t.logger != nil && m.Duration > t.config.SlowThreshold {
		t.logger.Warn("Slow operation detected",
			"operation", m.Operation,
			"scope", m.Scope,
			"duration", m.Duration,
			"threshold", t.config.SlowThreshold)
	}
}

// Recent returns completed markers, newest first.
func (t *Tracker) Recent() []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.next
	if t.full {
		n = len(t.completed)
	}
	out := make([]Marker, 0, n)
	out = append(out, t.completed[:n]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime.After(out[j].EndTime) })
	return out
}

// Summary aggregates recent markers by operation.
type Summary struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Failures  int           `json:"failures"`
	Average   time.Duration `json:"average"`
	Max       time.Duration `json:"max"`
}

// Summarize groups recent markers by operation name
func (t *Tracker) Summarize() []Summary {
	byOp := make(map[string]*Summary)
	var total = make(map[string]time.Duration)
	for _, m := range t.Recent() {
		s, ok := byOp[m.Operation]
		if !ok {
			s = &Summary{Operation: m.Operation}
			byOp[m.Operation] = s
		}
		s.Count++
		if !m.Success {
			s.Failures++
		}
		if m.Duration > s.Max {
			s.Max = m.Duration
		}
		total[m.Operation] += m.Duration
	}

	out := make([]Summary, 0, len(byOp))
	for op, s := range byOp {
		s.Average = total[op] / time.Duration(s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

package cleanup

import (
	"fmt"
	"strings"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/interfaces"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// Reporter renders store occupancy for verbose cleanup runs.
type Reporter struct {
	logger *logging.ChanneledLogger
	stores []interfaces.Expirer
}

func NewReporter(logger *logging.ChanneledLogger, stores []interfaces.Expirer) *Reporter {
	return &Reporter{logger: logger, stores: stores}
}

// Table returns a fixed-width table of store sizes.
func (r *Reporter) Table() string {
	width := len("store")
	for _, s := range r.stores {
		if len(s.Name()) > width {
			width = len(s.Name())
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %8s\n", width, "store", "entries")
	fmt.Fprintf(&b, "%s  %s\n", strings.Repeat("-", width), strings.Repeat("-", 8))
	for _, s := range r.stores {
		fmt.Fprintf(&b, "%-*s  %8d\n", width, s.Name(), s.Len())
	}
	return b.String()
}

// LogReport writes the table to the cache channel.
func (r *Reporter) LogReport(stage string) {
	sizes := make(map[string]int, len(r.stores))
	for _, s := range r.stores {
		sizes[s.Name()] = s.Len()
	}
	r.logger.Cache().Info("Cache occupancy", "stage", stage, "stores", sizes)
}

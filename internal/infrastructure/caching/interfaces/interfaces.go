// Package interfaces defines the contracts the cleanup worker relies on.
package interfaces

import "time"

// Expirer is a store whose entries age out.
type Expirer interface {
	// Name identifies the store in logs and reports.
	Name() string
	// PurgeExpired drops entries that expired at or before now and returns
	// how many were removed.
	PurgeExpired(now time.Time) int
	// Len is the current number of entries.
	Len() int
}

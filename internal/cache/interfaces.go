package cache

import (
	"context"
	"time"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// ClickBuffer accumulates resolve hits in memory until they are flushed to the repository
type ClickBuffer interface {
	// Add records one click for a code
	Add(ctx context.Context, code string, clickedAt time.Time) error

	// Pending returns the unflushed clicks for a code
	Pending(ctx context.Context, code string) (domain.PendingClicks, bool)

	// Drop discards any unflushed clicks for a code
	Drop(ctx context.Context, code string) error

	// Drain removes and returns every pending entry
	Drain(ctx context.Context) (map[string]domain.PendingClicks, error)

	// Restore merges entries that could not be flushed back into the buffer
	Restore(ctx context.Context, entries map[string]domain.PendingClicks) error

	// Len reports how many codes have pending clicks
	Len() int

	// Close stops background synchronization
	Close() error
}

// SyncableBuffer extends ClickBuffer with a periodic flush loop
type SyncableBuffer interface {
	ClickBuffer

	// StartBackgroundSync calls syncFunc every interval until stopped
	StartBackgroundSync(ctx context.Context, interval time.Duration, syncFunc func(context.Context) error) error

	// StopBackgroundSync stops the loop after one final sync and waits for it to exit
	StopBackgroundSync() error
}

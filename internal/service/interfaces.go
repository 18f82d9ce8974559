package service

import (
	"context"
	"time"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// LinkStore defines the short link operations exposed to the transport layer
type LinkStore interface {
	// Create stores url under code, or under a generated code when code is empty
	Create(ctx context.Context, code, url string) (*domain.Link, error)

	// Get retrieves a link without touching its counters
	Get(ctx context.Context, code string) (*domain.Link, error)

	// List retrieves every live link, newest first
	List(ctx context.Context) ([]*domain.Link, error)

	// Delete removes a link
	Delete(ctx context.Context, code string) error

	// Resolve returns the target URL for code and counts one click
	Resolve(ctx context.Context, code string) (string, error)

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	// StartClickSync starts the background flush of buffered clicks
	StartClickSync(ctx context.Context, interval time.Duration) error

	// StopClickSync stops the background flush after a final flush
	StopClickSync() error

	// FlushClicks writes buffered clicks to the repository now
	FlushClicks(ctx context.Context) error

	// Close flushes pending clicks and closes the store and its dependencies
	Close() error
}

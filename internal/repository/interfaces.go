package repository

import (
	"context"
	"time"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// LinkRepository defines the persisted link table. Every method is a single
// atomic unit of work against the backing store.
type LinkRepository interface {
	// CreateLink inserts a new link; a live code yields domain.ErrCodeConflict
	CreateLink(ctx context.Context, code, url string, createdAt time.Time) (*domain.Link, error)

	// GetLink retrieves a link by its code, or domain.ErrNotFound
	GetLink(ctx context.Context, code string) (*domain.Link, error)

	// ListLinks retrieves all links ordered by creation date (desc)
	ListLinks(ctx context.Context) ([]*domain.Link, error)

	// DeleteLink removes a link, or returns domain.ErrNotFound
	DeleteLink(ctx context.Context, code string) error

	// RecordClick increments clicks by one, stamps last_clicked and returns the URL
	RecordClick(ctx context.Context, code string, clickedAt time.Time) (string, error)

	// AddClicks applies a batch of buffered clicks, or returns domain.ErrNotFound
	AddClicks(ctx context.Context, code string, clicks int64, lastClicked time.Time) error

	// LoadCounter returns a stored generator counter, 0 when absent
	LoadCounter(ctx context.Context, key string) (int64, error)

	// StoreCounter upserts a generator counter
	StoreCounter(ctx context.Context, key string, value int64) error

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/tinylink/db/sqlc"
	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/repository"
)

// busyTimeoutMillis bounds how long a statement waits on a locked database
const busyTimeoutMillis = 5000

// Repository implements repository.LinkRepository using SQLite
type Repository struct {
	db      *sql.DB
	queries *sqlc.Queries
}

// New opens (or creates) the SQLite database at databasePath and applies migrations
func New(databasePath string) (*Repository, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", databasePath, busyTimeoutMillis)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises every statement through SQLite and keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{
		db:      db,
		queries: sqlc.New(db),
	}

	if err := repo.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// CreateLink inserts a new link. The primary key rejects duplicates atomically.
func (r *Repository) CreateLink(ctx context.Context, code, url string, createdAt time.Time) (*domain.Link, error) {
	createdAt = createdAt.UTC()

	err := r.queries.CreateLink(ctx, sqlc.CreateLinkParams{
		Code:      code,
		Url:       url,
		CreatedAt: createdAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create link %s: %w", code, domain.ErrCodeConflict)
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return &domain.Link{
		Code:      code,
		URL:       url,
		Clicks:    0,
		CreatedAt: createdAt,
	}, nil
}

// GetLink retrieves a link by its code
func (r *Repository) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	link, err := r.queries.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return sqlcLinkToDomain(link), nil
}

// ListLinks retrieves all links ordered by creation date (desc)
func (r *Repository) ListLinks(ctx context.Context) ([]*domain.Link, error) {
	links, err := r.queries.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	entries := make([]*domain.Link, len(links))
	for i, link := range links {
		entries[i] = sqlcLinkToDomain(link)
	}

	return entries, nil
}

// DeleteLink removes a link by its code
func (r *Repository) DeleteLink(ctx context.Context, code string) error {
	affected, err := r.queries.DeleteLink(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

// RecordClick bumps the counter and returns the target URL in one UPDATE ... RETURNING
func (r *Repository) RecordClick(ctx context.Context, code string, clickedAt time.Time) (string, error) {
	url, err := r.queries.RecordClick(ctx, sqlc.RecordClickParams{
		LastClicked: sql.NullTime{Time: clickedAt.UTC(), Valid: true},
		Code:        code,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
		}
		return "", fmt.Errorf("failed to record click: %w", err)
	}
	return url, nil
}

// AddClicks applies a batch of buffered clicks in a single UPDATE
func (r *Repository) AddClicks(ctx context.Context, code string, clicks int64, lastClicked time.Time) error {
	affected, err := r.queries.AddClicks(ctx, sqlc.AddClicksParams{
		Clicks:      clicks,
		LastClicked: sql.NullTime{Time: lastClicked.UTC(), Valid: true},
		Code:        code,
	})
	if err != nil {
		return fmt.Errorf("failed to add clicks: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

// LoadCounter returns a stored generator counter, 0 when absent
func (r *Repository) LoadCounter(ctx context.Context, key string) (int64, error) {
	value, err := r.queries.GetCounter(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	return value, nil
}

// StoreCounter upserts a generator counter
func (r *Repository) StoreCounter(ctx context.Context, key string, value int64) error {
	if err := r.queries.SetCounter(ctx, sqlc.SetCounterParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to set counter: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// isUniqueViolation reports whether err is a primary key or unique constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// sqlcLinkToDomain converts a sqlc.Link to domain.Link
func sqlcLinkToDomain(link sqlc.Link) *domain.Link {
	entry := &domain.Link{
		Code:      link.Code,
		URL:       link.Url,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt.UTC(),
	}

	if link.LastClicked.Valid {
		lastClicked := link.LastClicked.Time.UTC()
		entry.LastClicked = &lastClicked
	}

	return entry
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// LinkRepository is a mock implementation of repository.LinkRepository
type LinkRepository struct {
	mock.Mock
}

// CreateLink inserts a new link
func (m *LinkRepository) CreateLink(ctx context.Context, code, url string, createdAt time.Time) (*domain.Link, error) {
	args := m.Called(ctx, code, url, createdAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetLink retrieves a link by its code
func (m *LinkRepository) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// ListLinks retrieves all links ordered by creation date (desc)
func (m *LinkRepository) ListLinks(ctx context.Context) ([]*domain.Link, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// DeleteLink removes a link by its code
func (m *LinkRepository) DeleteLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// RecordClick records one click and returns the URL
func (m *LinkRepository) RecordClick(ctx context.Context, code string, clickedAt time.Time) (string, error) {
	args := m.Called(ctx, code, clickedAt)
	return args.String(0), args.Error(1)
}

// AddClicks applies a batch of clicks
func (m *LinkRepository) AddClicks(ctx context.Context, code string, clicks int64, lastClicked time.Time) error {
	args := m.Called(ctx, code, clicks, lastClicked)
	return args.Error(0)
}

// LoadCounter returns a stored counter
func (m *LinkRepository) LoadCounter(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

// StoreCounter stores a counter
func (m *LinkRepository) StoreCounter(ctx context.Context, key string, value int64) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Ping verifies the store is reachable
func (m *LinkRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the repository connection
func (m *LinkRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

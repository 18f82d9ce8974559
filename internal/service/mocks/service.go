package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// LinkStore is a mock implementation of service.LinkStore
type LinkStore struct {
	mock.Mock
}

// Create stores a link
func (m *LinkStore) Create(ctx context.Context, code, url string) (*domain.Link, error) {
	args := m.Called(ctx, code, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Get retrieves a link
func (m *LinkStore) Get(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// List retrieves every link
func (m *LinkStore) List(ctx context.Context) ([]*domain.Link, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// Delete removes a link
func (m *LinkStore) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// Resolve returns the target URL and counts a click
func (m *LinkStore) Resolve(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

// Ping verifies the store is reachable
func (m *LinkStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// StartClickSync starts the click flush loop
func (m *LinkStore) StartClickSync(ctx context.Context, interval time.Duration) error {
	args := m.Called(ctx, interval)
	return args.Error(0)
}

// StopClickSync stops the click flush loop
func (m *LinkStore) StopClickSync() error {
	args := m.Called()
	return args.Error(0)
}

// FlushClicks writes buffered clicks
func (m *LinkStore) FlushClicks(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the store
func (m *LinkStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

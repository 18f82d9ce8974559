package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// Buffer is a mock implementation of cache.SyncableBuffer
type Buffer struct {
	mock.Mock
}

// Add records one click for a code
func (m *Buffer) Add(ctx context.Context, code string, clickedAt time.Time) error {
	args := m.Called(ctx, code, clickedAt)
	return args.Error(0)
}

// Pending returns the unflushed clicks for a code
func (m *Buffer) Pending(ctx context.Context, code string) (domain.PendingClicks, bool) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.PendingClicks), args.Bool(1)
}

// Drop discards unflushed clicks for a code
func (m *Buffer) Drop(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// Drain removes and returns every pending entry
func (m *Buffer) Drain(ctx context.Context) (map[string]domain.PendingClicks, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.PendingClicks), args.Error(1)
}

// Restore merges entries back into the buffer
func (m *Buffer) Restore(ctx context.Context, entries map[string]domain.PendingClicks) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// Len reports how many codes have pending clicks
func (m *Buffer) Len() int {
	args := m.Called()
	return args.Int(0)
}

// Close stops background synchronization
func (m *Buffer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// StartBackgroundSync starts the flush loop
func (m *Buffer) StartBackgroundSync(ctx context.Context, interval time.Duration, syncFunc func(context.Context) error) error {
	args := m.Called(ctx, interval, syncFunc)
	return args.Error(0)
}

// StopBackgroundSync stops the flush loop
func (m *Buffer) StopBackgroundSync() error {
	args := m.Called()
	return args.Error(0)
}

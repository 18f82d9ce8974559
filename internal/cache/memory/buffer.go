package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joshdurbin/tinylink/internal/cache"
	"github.com/joshdurbin/tinylink/internal/domain"
)

// Buffer implements cache.SyncableBuffer using in-memory storage
type Buffer struct {
	data  map[string]domain.PendingClicks
	mutex sync.RWMutex

	syncMutex sync.Mutex
	stopChan  chan struct{}
	doneChan  chan struct{}
	running   bool
}

// New creates a new in-memory click buffer
func New() *Buffer {
	return &Buffer{
		data: make(map[string]domain.PendingClicks),
	}
}

// Add records one click for a code
func (b *Buffer) Add(ctx context.Context, code string, clickedAt time.Time) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	entry := b.data[code]
	entry.Merge(domain.PendingClicks{Count: 1, LastClicked: clickedAt.UTC()})
	b.data[code] = entry
	return nil
}

// Pending returns the unflushed clicks for a code
func (b *Buffer) Pending(ctx context.Context, code string) (domain.PendingClicks, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	entry, exists := b.data[code]
	return entry, exists
}

// Drop discards any unflushed clicks for a code
func (b *Buffer) Drop(ctx context.Context, code string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.data, code)
	return nil
}

// Drain removes and returns every pending entry
func (b *Buffer) Drain(ctx context.Context) (map[string]domain.PendingClicks, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	drained := b.data
	b.data = make(map[string]domain.PendingClicks)
	return drained, nil
}

// Restore merges entries that could not be flushed back into the buffer
func (b *Buffer) Restore(ctx context.Context, entries map[string]domain.PendingClicks) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for code, pending := range entries {
		entry := b.data[code]
		entry.Merge(pending)
		b.data[code] = entry
	}
	return nil
}

// Len reports how many codes have pending clicks
func (b *Buffer) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return len(b.data)
}

// StartBackgroundSync calls syncFunc every interval until stopped
func (b *Buffer) StartBackgroundSync(ctx context.Context, interval time.Duration, syncFunc func(context.Context) error) error {
	b.syncMutex.Lock()
	defer b.syncMutex.Unlock()

	if b.running {
		return nil
	}

	b.running = true
	b.stopChan = make(chan struct{})
	b.doneChan = make(chan struct{})

	go b.backgroundSync(ctx, interval, syncFunc, b.stopChan, b.doneChan)
	return nil
}

// StopBackgroundSync stops the loop after one final sync and waits for it to exit
func (b *Buffer) StopBackgroundSync() error {
	b.syncMutex.Lock()
	if !b.running {
		b.syncMutex.Unlock()
		return nil
	}
	b.running = false
	stopChan, doneChan := b.stopChan, b.doneChan
	b.syncMutex.Unlock()

	close(stopChan)
	<-doneChan
	return nil
}

// backgroundSync runs the synchronization loop
func (b *Buffer) backgroundSync(ctx context.Context, interval time.Duration, syncFunc func(context.Context) error, stopChan <-chan struct{}, doneChan chan<- struct{}) {
	defer close(doneChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.sync(ctx, syncFunc)
		case <-stopChan:
			b.sync(ctx, syncFunc)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (b *Buffer) sync(ctx context.Context, syncFunc func(context.Context) error) {
	if b.Len() == 0 {
		return
	}

	if err := syncFunc(ctx); err != nil {
		log.Error().Err(err).Int("pending_codes", b.Len()).Msg("Error flushing buffered clicks")
	}
}

// Close stops background synchronization
func (b *Buffer) Close() error {
	return b.StopBackgroundSync()
}

// Ensure Buffer implements the interfaces
var _ cache.ClickBuffer = (*Buffer)(nil)
var _ cache.SyncableBuffer = (*Buffer)(nil)

package shortener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CounterCache hands out counter values from memory and reserves blocks of
// size jumpAhead in the backing store, writing reservations back asynchronously.
type CounterCache struct {
	mu          sync.Mutex
	store       CounterStore
	counters    map[string]*counterEntry
	jumpAhead   int64
	writebackCh chan writebackRequest
	stopCh      chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

type counterEntry struct {
	current   int64
	allocated int64
	dirty     bool
}

type writebackRequest struct {
	key   string
	value int64
}

// NewCounterCache creates a new counter cache
func NewCounterCache(store CounterStore, jumpAhead int64) *CounterCache {
	if jumpAhead <= 0 {
		jumpAhead = 1
	}

	cache := &CounterCache{
		store:       store,
		counters:    make(map[string]*counterEntry),
		jumpAhead:   jumpAhead,
		writebackCh: make(chan writebackRequest, 100),
		stopCh:      make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.writebackWorker()

	return cache
}

// GetNextCounter returns the next counter value, reserving another block in the store if needed
func (c *CounterCache) GetNextCounter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.counters[key]
	if !exists {
		stored, err := c.store.LoadCounter(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to load counter %s: %w", key, err)
		}

		entry = &counterEntry{
			current:   stored,
			allocated: stored + c.jumpAhead,
			dirty:     true,
		}
		c.counters[key] = entry
		c.enqueueWriteback(key, entry.allocated)
	}

	if entry.current >= entry.allocated {
		entry.allocated += c.jumpAhead
		entry.dirty = true
		c.enqueueWriteback(key, entry.allocated)
	}

	entry.current++
	return entry.current, nil
}

// enqueueWriteback queues a reservation without blocking; a full queue is caught up by Sync on close
func (c *CounterCache) enqueueWriteback(key string, value int64) {
	select {
	case c.writebackCh <- writebackRequest{key: key, value: value}:
	default:
		log.Debug().Str("counter", key).Int64("value", value).Msg("Counter writeback queue full, deferring to sync")
	}
}

// writebackWorker drains queued reservations into the store
func (c *CounterCache) writebackWorker() {
	defer c.wg.Done()

	for {
		select {
		case req := <-c.writebackCh:
			c.writeback(req)
		case <-c.stopCh:
			for {
				select {
				case req := <-c.writebackCh:
					c.writeback(req)
				default:
					return
				}
			}
		}
	}
}

func (c *CounterCache) writeback(req writebackRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.StoreCounter(ctx, req.key, req.value); err != nil {
		log.Warn().Err(err).Str("counter", req.key).Msg("Failed to write back counter reservation")
	}
}

// Sync synchronously writes all dirty entries to the store
func (c *CounterCache) Sync(ctx context.Context) error {
	c.mu.Lock()
	dirtyEntries := make(map[string]int64)
	for key, entry := range c.counters {
		if entry.dirty {
			dirtyEntries[key] = entry.allocated
		}
	}
	c.mu.Unlock()

	for key, value := range dirtyEntries {
		if err := c.store.StoreCounter(ctx, key, value); err != nil {
			return fmt.Errorf("failed to sync counter %s: %w", key, err)
		}

		c.mu.Lock()
		if entry, exists := c.counters[key]; exists && entry.allocated == value {
			entry.dirty = false
		}
		c.mu.Unlock()
	}

	return nil
}

// Close stops the writeback worker and syncs all dirty entries
func (c *CounterCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = c.Sync(ctx)
	})
	return err
}

// Ensure CounterCache implements CounterProvider
var _ CounterProvider = (*CounterCache)(nil)

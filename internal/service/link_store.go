package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joshdurbin/tinylink/internal/cache"
	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/metrics"
	"github.com/joshdurbin/tinylink/internal/repository"
	"github.com/joshdurbin/tinylink/internal/shortener"
)

// ErrClickBufferDisabled is returned by StartClickSync when the store resolves clicks directly
var ErrClickBufferDisabled = errors.New("click buffering is disabled")

// Options tunes a LinkStore
type Options struct {
	// MaxAttempts bounds the generated-code retry loop
	MaxAttempts int
	// Metrics may be nil
	Metrics *metrics.Metrics
	// Now overrides the clock, mostly for tests
	Now func() time.Time
}

// linkStore implements LinkStore
type linkStore struct {
	repo        repository.LinkRepository
	buffer      cache.SyncableBuffer
	generator   shortener.Generator
	metrics     *metrics.Metrics
	maxAttempts int
	now         func() time.Time

	// mu orders buffered click flushes against reads and deletes; unused when buffer is nil
	mu sync.RWMutex
}

// NewLinkStore creates a new link store. A nil buffer makes Resolve write
// every click straight to the repository.
func NewLinkStore(repo repository.LinkRepository, buffer cache.SyncableBuffer, generator shortener.Generator, opts Options) LinkStore {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = shortener.DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &linkStore{
		repo:        repo,
		buffer:      buffer,
		generator:   generator,
		metrics:     opts.Metrics,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
	}
}

func (s *linkStore) buffered() bool {
	return s.buffer != nil
}

func (s *linkStore) readLock() func() {
	if !s.buffered() {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *linkStore) writeLock() func() {
	if !s.buffered() {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Create stores url under code, or under a generated code when code is empty
func (s *linkStore) Create(ctx context.Context, code, url string) (*domain.Link, error) {
	if url == "" {
		return nil, fmt.Errorf("url is required: %w", domain.ErrInvalidInput)
	}

	createdAt := s.now().UTC()

	if code != "" {
		return s.createCustom(ctx, code, url, createdAt)
	}
	return s.createGenerated(ctx, url, createdAt)
}

func (s *linkStore) createCustom(ctx context.Context, code, url string, createdAt time.Time) (*domain.Link, error) {
	if !shortener.IsValidCode(code) {
		return nil, fmt.Errorf("code %q must be 1-%d letters or digits: %w", code, shortener.MaxCustomCodeLength, domain.ErrInvalidInput)
	}

	link, err := s.repo.CreateLink(ctx, code, url, createdAt)
	if err != nil {
		if domain.IsConflict(err) {
			s.metrics.CreateConflict()
			return nil, err
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.metrics.LinkCreated(metrics.SourceCustom)
	log.Debug().Str("code", code).Msg("Created link with custom code")

	return link, nil
}

func (s *linkStore) createGenerated(ctx context.Context, url string, createdAt time.Time) (*domain.Link, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generator.GenerateCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		link, err := s.repo.CreateLink(ctx, code, url, createdAt)
		if err == nil {
			s.metrics.LinkCreated(metrics.SourceGenerated)
			log.Debug().Str("code", code).Int("attempt", attempt).Msg("Created link with generated code")
			return link, nil
		}

		if !domain.IsConflict(err) {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		s.metrics.GenerationRetry()
		log.Debug().Str("code", code).Int("attempt", attempt).Msg("Generated code collided, retrying")
	}

	s.metrics.GenerationExhausted()
	log.Warn().Int("attempts", s.maxAttempts).Str("generator", s.generator.Type()).Msg("Code generation exhausted")

	return nil, fmt.Errorf("no free code after %d attempts: %w", s.maxAttempts, domain.ErrGenerationExhausted)
}

// Get retrieves a link, including clicks that are still buffered
func (s *linkStore) Get(ctx context.Context, code string) (*domain.Link, error) {
	unlock := s.readLock()
	defer unlock()

	link, err := s.repo.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	s.applyPending(ctx, link)
	return link, nil
}

// List retrieves every live link newest first, including buffered clicks
func (s *linkStore) List(ctx context.Context) ([]*domain.Link, error) {
	unlock := s.readLock()
	defer unlock()

	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	for _, link := range links {
		s.applyPending(ctx, link)
	}
	return links, nil
}

func (s *linkStore) applyPending(ctx context.Context, link *domain.Link) {
	if !s.buffered() {
		return
	}
	if pending, exists := s.buffer.Pending(ctx, link.Code); exists {
		pending.ApplyTo(link)
	}
}

// Delete removes a link and any clicks buffered for it
func (s *linkStore) Delete(ctx context.Context, code string) error {
	unlock := s.writeLock()
	defer unlock()

	if err := s.repo.DeleteLink(ctx, code); err != nil {
		return err
	}

	if s.buffered() {
		if err := s.buffer.Drop(ctx, code); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("Failed to drop buffered clicks")
		}
	}

	s.metrics.LinkDeleted()
	log.Debug().Str("code", code).Msg("Deleted link")
	return nil
}

// Resolve returns the target URL for code and counts one click
func (s *linkStore) Resolve(ctx context.Context, code string) (string, error) {
	var (
		url string
		err error
	)
	if s.buffered() {
		url, err = s.resolveBuffered(ctx, code)
	} else {
		url, err = s.repo.RecordClick(ctx, code, s.now().UTC())
	}

	if err != nil {
		if domain.IsNotFound(err) {
			s.metrics.Resolved(metrics.ResultMiss)
		}
		return "", err
	}

	s.metrics.Resolved(metrics.ResultHit)
	return url, nil
}

func (s *linkStore) resolveBuffered(ctx context.Context, code string) (string, error) {
	unlock := s.readLock()
	defer unlock()

	link, err := s.repo.GetLink(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.buffer.Add(ctx, code, s.now().UTC()); err != nil {
		return "", fmt.Errorf("failed to buffer click: %w", err)
	}

	return link.URL, nil
}

// Ping verifies the backing store is reachable
func (s *linkStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// StartClickSync starts the background flush of buffered clicks
func (s *linkStore) StartClickSync(ctx context.Context, interval time.Duration) error {
	if !s.buffered() {
		return ErrClickBufferDisabled
	}
	if interval <= 0 {
		return fmt.Errorf("invalid flush interval %s", interval)
	}

	log.Info().Dur("interval", interval).Msg("Starting click flush loop")
	return s.buffer.StartBackgroundSync(ctx, interval, s.FlushClicks)
}

// StopClickSync stops the background flush after a final flush
func (s *linkStore) StopClickSync() error {
	if !s.buffered() {
		return nil
	}
	return s.buffer.StopBackgroundSync()
}

// FlushClicks writes buffered clicks to the repository. Entries that fail
// are put back so the next flush retries them.
func (s *linkStore) FlushClicks(ctx context.Context) error {
	if !s.buffered() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.buffer.Drain(ctx)
	if err != nil {
		return fmt.Errorf("failed to drain click buffer: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	failed := make(map[string]domain.PendingClicks)
	var errs []error
	for code, clicks := range pending {
		err := s.repo.AddClicks(ctx, code, clicks.Count, clicks.LastClicked)
		if err == nil {
			continue
		}
		if domain.IsNotFound(err) {
			// deleted links take their clicks with them
			log.Debug().Str("code", code).Int64("clicks", clicks.Count).Msg("Discarding clicks for missing link")
			continue
		}
		failed[code] = clicks
		errs = append(errs, fmt.Errorf("failed to flush clicks for %s: %w", code, err))
	}

	if len(failed) > 0 {
		if err := s.buffer.Restore(ctx, failed); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore click buffer: %w", err))
		}
	}

	flushErr := errors.Join(errs...)
	s.metrics.ClickFlush(flushErr)
	s.metrics.SetPendingClicks(s.buffer.Len())

	log.Debug().Int("codes", len(pending)).Int("failed", len(failed)).Msg("Flushed buffered clicks")
	return flushErr
}

// Close flushes pending clicks and closes the store and its dependencies
func (s *linkStore) Close() error {
	if err := s.StopClickSync(); err != nil {
		return fmt.Errorf("failed to stop click sync: %w", err)
	}
	if s.buffered() {
		// catches clicks buffered while no loop was running
		if err := s.FlushClicks(context.Background()); err != nil {
			log.Error().Err(err).Msg("Final click flush failed")
		}
	}
	if err := s.generator.Close(); err != nil {
		return fmt.Errorf("failed to close generator: %w", err)
	}
	if s.buffered() {
		if err := s.buffer.Close(); err != nil {
			return fmt.Errorf("failed to close click buffer: %w", err)
		}
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

// Ensure linkStore implements LinkStore
var _ LinkStore = (*linkStore)(nil)

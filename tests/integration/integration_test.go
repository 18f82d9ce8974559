package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/tinylink/internal/cache"
	"github.com/joshdurbin/tinylink/internal/cache/memory"
	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/metrics"
	"github.com/joshdurbin/tinylink/internal/repository"
	"github.com/joshdurbin/tinylink/internal/repository/redis"
	"github.com/joshdurbin/tinylink/internal/repository/sqlite"
	"github.com/joshdurbin/tinylink/internal/service"
	"github.com/joshdurbin/tinylink/internal/shortener"
	"github.com/joshdurbin/tinylink/internal/transport/client"
	httpTransport "github.com/joshdurbin/tinylink/internal/transport/http"
)

type backend struct {
	name string
	open func(t *testing.T) repository.LinkRepository
}

var backends = []backend{
	{
		name: "sqlite",
		open: func(t *testing.T) repository.LinkRepository {
			repo, err := sqlite.New(filepath.Join(t.TempDir(), "links.db"))
			require.NoError(t, err)
			return repo
		},
	},
	{
		name: "redis",
		open: func(t *testing.T) repository.LinkRepository {
			s := miniredis.RunT(t)
			repo, err := redis.New(context.Background(), redis.Options{Address: s.Addr(), KeyPrefix: "it:"})
			require.NoError(t, err)
			return repo
		},
	},
}

// eachStore runs fn against every backend in direct and buffered click mode
func eachStore(t *testing.T, fn func(t *testing.T, store service.LinkStore)) {
	for _, b := range backends {
		for _, buffered := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/buffered=%v", b.name, buffered), func(t *testing.T) {
				repo := b.open(t)
				generator, err := shortener.NewGenerator(shortener.DefaultConfig(), repo)
				require.NoError(t, err)

				var buffer cache.SyncableBuffer
				if buffered {
					buffer = memory.New()
				}

				store := service.NewLinkStore(repo, buffer, generator, service.Options{})
				t.Cleanup(func() { store.Close() })

				if buffered {
					require.NoError(t, store.StartClickSync(context.Background(), 50*time.Millisecond))
				}

				fn(t, store)
			})
		}
	}
}

func TestIntegration_FullWorkflow(t *testing.T) {
	eachStore(t, func(t *testing.T, store service.LinkStore) {
		ctx := context.Background()
		target := "https://example.com/very/long/path/to/resource"

		link, err := store.Create(ctx, "", target)
		require.NoError(t, err)
		assert.Len(t, link.Code, shortener.DefaultCodeLength)
		assert.Equal(t, target, link.URL)
		assert.Equal(t, int64(0), link.Clicks)

		custom, err := store.Create(ctx, "promo2024", "https://example.com/promo")
		require.NoError(t, err)
		assert.Equal(t, "promo2024", custom.Code)

		_, err = store.Create(ctx, "promo2024", "https://example.com/other")
		assert.ErrorIs(t, err, domain.ErrCodeConflict)

		_, err = store.Create(ctx, "bad code!", "https://example.com")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = store.Create(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		for i := 0; i < 3; i++ {
			url, err := store.Resolve(ctx, link.Code)
			require.NoError(t, err)
			assert.Equal(t, target, url)
		}

		got, err := store.Get(ctx, link.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Clicks)
		require.NotNil(t, got.LastClicked)

		links, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 2)
		codes := []string{links[0].Code, links[1].Code}
		assert.ElementsMatch(t, []string{link.Code, "promo2024"}, codes)

		require.NoError(t, store.Delete(ctx, link.Code))
		_, err = store.Get(ctx, link.Code)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.Resolve(ctx, link.Code)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		links, err = store.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "promo2024", links[0].Code)

		assert.NoError(t, store.Ping(ctx))
	})
}

func TestIntegration_ConcurrentResolve(t *testing.T) {
	eachStore(t, func(t *testing.T, store service.LinkStore) {
		ctx := context.Background()

		_, err := store.Create(ctx, "hot", "https://example.com")
		require.NoError(t, err)

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Resolve(ctx, "hot")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		link, err := store.Get(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(n), link.Clicks)
	})
}

func TestIntegration_ConcurrentCreateSameCode(t *testing.T) {
	eachStore(t, func(t *testing.T, store service.LinkStore) {
		ctx := context.Background()

		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				_, errs[id] = store.Create(ctx, "race", fmt.Sprintf("https://example.com/%d", id))
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrCodeConflict)
		}
		assert.Equal(t, 1, successes)
	})
}

func TestIntegration_CounterGenerator(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "links.db")
	ctx := context.Background()
	cfg := shortener.Config{Type: shortener.TypeCounter, CodeLength: 6, CounterStep: 10}

	codes := map[string]bool{}
	for round := 0; round < 2; round++ {
		repo, err := sqlite.New(dbPath)
		require.NoError(t, err)

		generator, err := shortener.NewGenerator(cfg, repo)
		require.NoError(t, err)

		store := service.NewLinkStore(repo, nil, generator, service.Options{})
		for i := 0; i < 25; i++ {
			link, err := store.Create(ctx, "", fmt.Sprintf("https://example.com/%d/%d", round, i))
			require.NoError(t, err)
			assert.Len(t, link.Code, 6)
			assert.False(t, codes[link.Code], "duplicate code %s", link.Code)
			codes[link.Code] = true
		}
		require.NoError(t, store.Close())
	}

	assert.Len(t, codes, 50)
}

func TestIntegration_HTTP(t *testing.T) {
	eachStore(t, func(t *testing.T, store service.LinkStore) {
		reg := prometheus.NewRegistry()
		server := httpTransport.NewServer(store, httpTransport.Options{
			ServerURL: "http://sho.rt",
			Metrics:   metrics.New(reg),
			Gatherer:  reg,
		})
		ts := httptest.NewServer(server.Router())
		defer ts.Close()

		ctx := context.Background()
		c := client.NewClient(ts.URL)

		link, err := c.CreateLink(ctx, "https://example.com/docs", "docs")
		require.NoError(t, err)
		assert.Equal(t, "docs", link.Code)

		_, err = c.CreateLink(ctx, "https://example.com/again", "docs")
		assert.ErrorIs(t, err, domain.ErrCodeConflict)

		_, err = c.CreateLink(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		generated, err := c.CreateLink(ctx, "https://example.com/generated", "")
		require.NoError(t, err)
		assert.Len(t, generated.Code, shortener.DefaultCodeLength)

		target, err := c.Resolve(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/docs", target)

		got, err := c.GetLink(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Clicks)
		assert.NotNil(t, got.LastClicked)

		links, err := c.ListLinks(ctx)
		require.NoError(t, err)
		assert.Len(t, links, 2)

		png, err := c.QRCode(ctx, "docs", 0)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG", string(png[:4]))

		require.NoError(t, c.DeleteLink(ctx, "docs"))
		assert.ErrorIs(t, c.DeleteLink(ctx, "docs"), domain.ErrNotFound)

		_, err = c.Resolve(ctx, "docs")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = c.QRCode(ctx, "docs", 0)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/tinylink/internal/cache/memory"
	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/repository/sqlite"
	"github.com/joshdurbin/tinylink/internal/shortener"
)

func newSQLiteStore(t *testing.T, buffered bool, opts Options) LinkStore {
	t.Helper()

	repo, err := sqlite.New(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)

	var store LinkStore
	if buffered {
		store = NewLinkStore(repo, memory.New(), shortener.NewRandomGenerator(shortener.DefaultCodeLength), opts)
	} else {
		store = NewLinkStore(repo, nil, shortener.NewRandomGenerator(shortener.DefaultCodeLength), opts)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// steppingClock returns a clock that advances one second per call
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func TestLinkStore_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t, false, Options{})
	ctx := context.Background()

	created, err := store.Create(ctx, "abc123", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Clicks)

	link, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", link.Code)
	assert.Equal(t, "https://example.com", link.URL)
	assert.Equal(t, int64(0), link.Clicks)
	assert.Nil(t, link.LastClicked)
}

func TestLinkStore_ConflictKeepsFirstURL(t *testing.T) {
	store := newSQLiteStore(t, false, Options{})
	ctx := context.Background()

	_, err := store.Create(ctx, "abc123", "https://first.example.com")
	require.NoError(t, err)

	_, err = store.Create(ctx, "abc123", "https://second.example.com")
	assert.ErrorIs(t, err, domain.ErrCodeConflict)

	link, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example.com", link.URL)
}

func TestLinkStore_UnvalidatedURLStoredVerbatim(t *testing.T) {
	store := newSQLiteStore(t, false, Options{})
	ctx := context.Background()

	for i, target := range []string{"ftp://files.example.com/a b", "javascript:alert(1)", "not a url at all"} {
		code := fmt.Sprintf("raw%d", i)
		_, err := store.Create(ctx, code, target)
		require.NoError(t, err)

		url, err := store.Resolve(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, target, url)
	}
}

func TestLinkStore_DeletionFinality(t *testing.T) {
	for _, buffered := range []bool{false, true} {
		t.Run(fmt.Sprintf("buffered=%v", buffered), func(t *testing.T) {
			store := newSQLiteStore(t, buffered, Options{})
			ctx := context.Background()

			_, err := store.Create(ctx, "xyz", "https://example.com")
			require.NoError(t, err)
			_, err = store.Resolve(ctx, "xyz")
			require.NoError(t, err)

			require.NoError(t, store.Delete(ctx, "xyz"))

			_, err = store.Resolve(ctx, "xyz")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = store.Get(ctx, "xyz")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, "xyz"), domain.ErrNotFound)

			// a re-created code starts from zero clicks
			require.NoError(t, store.FlushClicks(ctx))
			_, err = store.Create(ctx, "xyz", "https://again.example.com")
			require.NoError(t, err)
			link, err := store.Get(ctx, "xyz")
			require.NoError(t, err)
			assert.Equal(t, int64(0), link.Clicks)
			assert.Nil(t, link.LastClicked)
		})
	}
}

func TestLinkStore_GenerationUniqueness(t *testing.T) {
	store := newSQLiteStore(t, false, Options{})
	ctx := context.Background()

	codes := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		link, err := store.Create(ctx, "", fmt.Sprintf("https://example.com/%d", i))
		require.NoError(t, err)
		assert.Len(t, link.Code, shortener.DefaultCodeLength)
		assert.True(t, shortener.IsValidCode(link.Code))
		assert.False(t, codes[link.Code], "duplicate code %s", link.Code)
		codes[link.Code] = true
	}
	assert.Len(t, codes, 1000)
}

func TestLinkStore_ConcurrentCreateSameCode(t *testing.T) {
	store := newSQLiteStore(t, false, Options{})
	ctx := context.Background()

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, errs[id] = store.Create(ctx, "same", fmt.Sprintf("https://example.com/%d", id))
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domain.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestLinkStore_ConcurrentResolve(t *testing.T) {
	for _, buffered := range []bool{false, true} {
		for _, n := range []int{1, 10, 100} {
			t.Run(fmt.Sprintf("buffered=%v/n=%d", buffered, n), func(t *testing.T) {
				store := newSQLiteStore(t, buffered, Options{})
				ctx := context.Background()

				_, err := store.Create(ctx, "hot", "https://example.com")
				require.NoError(t, err)

				var wg sync.WaitGroup
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						url, err := store.Resolve(ctx, "hot")
						assert.NoError(t, err)
						assert.Equal(t, "https://example.com", url)
					}()
				}
				wg.Wait()

				link, err := store.Get(ctx, "hot")
				require.NoError(t, err)
				assert.Equal(t, int64(n), link.Clicks)
				assert.NotNil(t, link.LastClicked)

				require.NoError(t, store.FlushClicks(ctx))

				link, err = store.Get(ctx, "hot")
				require.NoError(t, err)
				assert.Equal(t, int64(n), link.Clicks)
			})
		}
	}
}

func TestLinkStore_CounterMonotonicity(t *testing.T) {
	store := newSQLiteStore(t, true, Options{})
	ctx := context.Background()

	_, err := store.Create(ctx, "mono", "https://example.com")
	require.NoError(t, err)

	var last int64
	for i := 0; i < 20; i++ {
		_, err := store.Resolve(ctx, "mono")
		require.NoError(t, err)

		if i%5 == 0 {
			require.NoError(t, store.FlushClicks(ctx))
		}

		link, err := store.Get(ctx, "mono")
		require.NoError(t, err)
		assert.Equal(t, last+1, link.Clicks)
		last = link.Clicks
	}
}

func TestLinkStore_ListOrdering(t *testing.T) {
	store := newSQLiteStore(t, false, Options{Now: steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))})
	ctx := context.Background()

	for _, code := range []string{"t1", "t2", "t3"} {
		_, err := store.Create(ctx, code, "https://example.com/"+code)
		require.NoError(t, err)
	}

	links, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "t3", links[0].Code)
	assert.Equal(t, "t2", links[1].Code)
	assert.Equal(t, "t1", links[2].Code)
	assert.True(t, links[0].CreatedAt.After(links[1].CreatedAt))
}

func TestLinkStore_ListIncludesBufferedClicks(t *testing.T) {
	store := newSQLiteStore(t, true, Options{})
	ctx := context.Background()

	_, err := store.Create(ctx, "a", "https://a.example.com")
	require.NoError(t, err)
	_, err = store.Create(ctx, "b", "https://b.example.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.Resolve(ctx, "a")
		require.NoError(t, err)
	}

	links, err := store.List(ctx)
	require.NoError(t, err)

	clicks := make(map[string]int64)
	for _, link := range links {
		clicks[link.Code] = link.Clicks
	}
	assert.Equal(t, int64(3), clicks["a"])
	assert.Equal(t, int64(0), clicks["b"])
}

func TestLinkStore_BackgroundClickSync(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "links.db")
	ctx := context.Background()

	repo, err := sqlite.New(dbPath)
	require.NoError(t, err)

	store := NewLinkStore(repo, memory.New(), shortener.NewRandomGenerator(shortener.DefaultCodeLength), Options{})
	require.NoError(t, store.StartClickSync(ctx, 20*time.Millisecond))

	_, err = store.Create(ctx, "bg", "https://example.com")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := store.Resolve(ctx, "bg")
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		link, err := repo.GetLink(ctx, "bg")
		return err == nil && link.Clicks == 5
	}, 2*time.Second, 10*time.Millisecond)

	// clicks recorded right before Close survive the shutdown flush
	_, err = store.Resolve(ctx, "bg")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	link, err := reopened.GetLink(ctx, "bg")
	require.NoError(t, err)
	assert.Equal(t, int64(6), link.Clicks)
}

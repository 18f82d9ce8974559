package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/repository"
)

// DefaultKeyPrefix namespaces every key the repository touches
const DefaultKeyPrefix = "tinylink:"

// Options configures the Redis connection
type Options struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
}

// Each mutation is a Lua script so that the check and the write happen as
// one unit on the server.
var (
	createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[1], 'url', ARGV[2], 'clicks', 0, 'created_at', ARGV[3], 'seq', seq)
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`)

	recordClickScript = goredis.NewScript(`
local url = redis.call('HGET', KEYS[1], 'url')
if not url then
	return false
end
redis.call('HINCRBY', KEYS[1], 'clicks', 1)
redis.call('HSET', KEYS[1], 'last_clicked', ARGV[1])
return url
`)

	addClicksScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'clicks', ARGV[1])
local current = redis.call('HGET', KEYS[1], 'last_clicked')
if not current or tonumber(ARGV[2]) > tonumber(current) then
	redis.call('HSET', KEYS[1], 'last_clicked', ARGV[2])
end
return 1
`)

	deleteScript = goredis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

	listScript = goredis.NewScript(`
local codes = redis.call('ZREVRANGE', KEYS[1], 0, -1)
local result = {}
for _, code in ipairs(codes) do
	local f = redis.call('HMGET', ARGV[1] .. code, 'url', 'clicks', 'last_clicked', 'created_at', 'seq')
	if f[1] then
		result[#result + 1] = {code, f[1], f[2], f[3], f[4], f[5]}
	end
end
return result
`)
)

// Repository implements repository.LinkRepository on Redis hashes. Links live
// at <prefix>link:<code>, a sorted set <prefix>links indexes them by creation
// time and timestamps are stored as Unix microseconds.
type Repository struct {
	client *goredis.Client
	prefix string
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, opts Options) (*Repository, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("address", opts.Address).Int("db", opts.DB).Msg("Connected to Redis")

	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *goredis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) linkKey(code string) string {
	return r.prefix + "link:" + code
}

func (r *Repository) indexKey() string {
	return r.prefix + "links"
}

func (r *Repository) seqKey() string {
	return r.prefix + "seq"
}

func (r *Repository) counterKey(key string) string {
	return r.prefix + "counter:" + key
}

// CreateLink stores a new link unless the code is already live
func (r *Repository) CreateLink(ctx context.Context, code, url string, createdAt time.Time) (*domain.Link, error) {
	createdAt = createdAt.UTC().Truncate(time.Microsecond)

	created, err := createScript.Run(ctx, r.client,
		[]string{r.linkKey(code), r.indexKey(), r.seqKey()},
		code, url, createdAt.UnixMicro(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	if created == 0 {
		return nil, fmt.Errorf("failed to create link %s: %w", code, domain.ErrCodeConflict)
	}

	return &domain.Link{
		Code:      code,
		URL:       url,
		Clicks:    0,
		CreatedAt: createdAt,
	}, nil
}

// GetLink reads a link hash in a single HGETALL
func (r *Repository) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	fields, err := r.client.HGetAll(ctx, r.linkKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
	}

	link, _, err := parseLink(code, fields["url"], fields["clicks"], fields["last_clicked"], fields["created_at"], fields["seq"])
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ListLinks returns a consistent snapshot ordered by creation date (desc)
func (r *Repository) ListLinks(ctx context.Context) ([]*domain.Link, error) {
	raw, err := listScript.Run(ctx, r.client, []string{r.indexKey()}, r.prefix+"link:").Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	type entry struct {
		link *domain.Link
		seq  int64
	}

	entries := make([]entry, 0, len(raw))
	for _, item := range raw {
		row, ok := item.([]interface{})
		if !ok || len(row) != 6 {
			return nil, fmt.Errorf("failed to list links: unexpected row %v", item)
		}

		link, seq, err := parseLink(str(row[0]), str(row[1]), str(row[2]), str(row[3]), str(row[4]), str(row[5]))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{link: link, seq: seq})
	}

	// equal timestamps fall back to insertion order, newest first
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].link.CreatedAt.Equal(entries[j].link.CreatedAt) {
			return entries[i].link.CreatedAt.After(entries[j].link.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	links := make([]*domain.Link, len(entries))
	for i, e := range entries {
		links[i] = e.link
	}
	return links, nil
}

// DeleteLink removes the link hash and its index entry
func (r *Repository) DeleteLink(ctx context.Context, code string) error {
	deleted, err := deleteScript.Run(ctx, r.client, []string{r.linkKey(code), r.indexKey()}, code).Int()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

// RecordClick increments clicks, stamps last_clicked and returns the URL
func (r *Repository) RecordClick(ctx context.Context, code string, clickedAt time.Time) (string, error) {
	url, err := recordClickScript.Run(ctx, r.client, []string{r.linkKey(code)}, clickedAt.UTC().UnixMicro()).Text()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
		}
		return "", fmt.Errorf("failed to record click: %w", err)
	}
	return url, nil
}

// AddClicks applies a batch of buffered clicks; last_clicked only moves forward
func (r *Repository) AddClicks(ctx context.Context, code string, clicks int64, lastClicked time.Time) error {
	applied, err := addClicksScript.Run(ctx, r.client, []string{r.linkKey(code)}, clicks, lastClicked.UTC().UnixMicro()).Int()
	if err != nil {
		return fmt.Errorf("failed to add clicks: %w", err)
	}
	if applied == 0 {
		return fmt.Errorf("link %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

// LoadCounter returns a stored generator counter, 0 when absent
func (r *Repository) LoadCounter(ctx context.Context, key string) (int64, error) {
	value, err := r.client.Get(ctx, r.counterKey(key)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	return value, nil
}

// StoreCounter overwrites a generator counter
func (r *Repository) StoreCounter(ctx context.Context, key string, value int64) error {
	if err := r.client.Set(ctx, r.counterKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set counter: %w", err)
	}
	return nil
}

// Ping verifies the server is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (r *Repository) Close() error {
	return r.client.Close()
}

func parseLink(code, url, clicks, lastClicked, createdAt, seq string) (*domain.Link, int64, error) {
	link := &domain.Link{Code: code, URL: url}

	var err error
	if clicks != "" {
		if link.Clicks, err = strconv.ParseInt(clicks, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("invalid clicks for link %s: %w", code, err)
		}
	}

	created, err := strconv.ParseInt(createdAt, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid created_at for link %s: %w", code, err)
	}
	link.CreatedAt = time.UnixMicro(created).UTC()

	if lastClicked != "" {
		micros, err := strconv.ParseInt(lastClicked, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid last_clicked for link %s: %w", code, err)
		}
		clicked := time.UnixMicro(micros).UTC()
		link.LastClicked = &clicked
	}

	var sequence int64
	if seq != "" {
		if sequence, err = strconv.ParseInt(seq, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("invalid seq for link %s: %w", code, err)
		}
	}

	return link, sequence, nil
}

// str converts a script reply element to a string; nil replies become ""
func str(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatline/internal/metrics"
	"chatline/internal/model"
)

const (
	DefaultPrefix = "chat:messages"
	DefaultTTL    = time.Hour
)

// Page is one cached response of the paginated message read. Limit is
// only set on latest pages.
type Page struct {
	Messages  []model.Message `json:"messages"`
	Limit     int             `json:"limit,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Options struct {
	Prefix string
	TTL    time.Duration
	Logger zerolog.Logger
	Now    func() time.Time
}

// RangeCache caches pages of the message log by Key. Writes to the log
// either drop every page (InvalidateAll) or rewrite the pages holding an
// edited message (Patch).
type RangeCache struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time

	// serialises Put, Patch and InvalidateAll
	mu sync.Mutex
}

func New(backend Backend, opts Options) *RangeCache {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RangeCache{
		backend: backend,
		prefix:  strings.TrimSuffix(opts.Prefix, ":") + ":",
		ttl:     opts.TTL,
		log:     opts.Logger.With().Str("component", "cache").Logger(),
		now:     opts.Now,
	}
}

func (c *RangeCache) storageKey(k Key) string {
	return c.prefix + k.String()
}

// Get returns the page stored under key. Backend failures and undecodable
// payloads are reported as a miss, as is a latest page cached for a
// different limit than key.Limit.
func (c *RangeCache) Get(ctx context.Context, key Key) (*Page, bool) {
	page, err := c.load(ctx, c.storageKey(key))
	if err == nil && key.Latest && key.Limit > 0 && page.Limit != key.Limit {
		err = ErrMiss
	}
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn().Err(err).Str("key", key.String()).Msg("cache read failed")
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return page, true
}

// Put stores messages under key with a full TTL, replacing any earlier page.
// A latest page records key.Limit.
func (c *RangeCache) Put(ctx context.Context, key Key, messages []model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if messages == nil {
		messages = []model.Message{}
	}
	limit := 0
	if key.Latest {
		limit = key.Limit
	}
	return c.store(ctx, c.storageKey(key), messages, limit)
}

// InvalidateAll drops every page under the cache prefix. Keys outside the
// prefix are left alone.
func (c *RangeCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	metrics.CacheInvalidations.Inc()
	c.log.Debug().Int("keys", len(keys)).Msg("cache invalidated")
	return nil
}

// Patch rewrites the content of message id in every cached page that holds
// it and resets those pages' TTL. Range pages are selected by range
// containment; the latest page only when it actually lists the message.
// It returns the number of pages rewritten.
func (c *RangeCache) Patch(ctx context.Context, id int64, content string, updatedAt time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx, c.prefix)
	if err != nil {
		return 0, fmt.Errorf("list cache keys: %w", err)
	}

	seen := make(map[string]struct{}, len(keys))
	patched := 0
	for _, storageKey := range keys {
		if _, dup := seen[storageKey]; dup {
			continue
		}
		seen[storageKey] = struct{}{}

		key, err := ParseKey(strings.TrimPrefix(storageKey, c.prefix))
		if err != nil {
			continue
		}
		if !key.Latest && !key.Contains(id) {
			continue
		}

		page, err := c.load(ctx, storageKey)
		if err != nil {
			if !errors.Is(err, ErrMiss) {
				c.log.Warn().Err(err).Str("key", storageKey).Msg("cache page unreadable during patch")
			}
			continue
		}
		if !rewrite(page.Messages, id, content, updatedAt) {
			continue
		}
		if err := c.store(ctx, storageKey, page.Messages, page.Limit); err != nil {
			return patched, fmt.Errorf("rewrite %s: %w", storageKey, err)
		}
		patched++
	}

	if patched > 0 {
		metrics.CachePagesPatched.Add(float64(patched))
	}
	return patched, nil
}

func (c *RangeCache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

func (c *RangeCache) Close() error {
	return c.backend.Close()
}

func (c *RangeCache) load(ctx context.Context, storageKey string) (*Page, error) {
	raw, err := c.backend.Get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if !page.ExpiresAt.IsZero() && !c.now().Before(page.ExpiresAt) {
		return nil, ErrMiss
	}
	return &page, nil
}

func (c *RangeCache) store(ctx context.Context, storageKey string, messages []model.Message, limit int) error {
	page := Page{Messages: messages, Limit: limit, ExpiresAt: c.now().Add(c.ttl).UTC()}
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return c.backend.Set(ctx, storageKey, raw, c.ttl)
}

func rewrite(messages []model.Message, id int64, content string, updatedAt time.Time) bool {
	for i := range messages {
		if messages[i].ID == id {
			at := updatedAt.UTC()
			messages[i].Content = content
			messages[i].UpdatedAt = &at
			return true
		}
	}
	return false
}

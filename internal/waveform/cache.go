package waveform

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

// Cache stores envelopes keyed by resource URL. Entries are write-once: a
// second Put for the same URL is ignored. Synthetic envelopes are never
// stored.
type Cache interface {
	Get(ctx context.Context, url string) (*Envelope, bool)
	Put(ctx context.Context, url string, env *Envelope) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Envelope
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Envelope)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, url string) (*Envelope, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	env, ok := c.entries[url]
	return env, ok
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, url string, env *Envelope) error {
	if env == nil || env.Synthetic {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[url]; !exists {
		c.entries[url] = env
	}
	return nil
}

// Len returns the number of cached envelopes.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const envelopePrefix = "envelope:"

// BadgerCache persists envelopes across restarts. Keys are the blake2b-256
// digest of the URL, since upstream URLs can be long and carry query strings.
type BadgerCache struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadgerCache opens (or creates) a cache database at path.
func OpenBadgerCache(path string, logger *slog.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open envelope cache: %w", err)
	}

	if logger != nil {
		logger.Info("Envelope cache opened", "path", path)
	}
	return &BadgerCache{db: db, logger: logger}, nil
}

func envelopeKey(url string) []byte {
	sum := blake2b.Sum256([]byte(url))
	return []byte(envelopePrefix + hex.EncodeToString(sum[:]))
}

// Get implements Cache. Read errors count as misses.
func (c *BadgerCache) Get(_ context.Context, url string) (*Envelope, bool) {
	var env Envelope
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(envelopeKey(url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) && c.logger != nil {
			c.logger.Warn("envelope cache read failed", "url", url, "error", err)
		}
		return nil, false
	}
	return &env, true
}

// Put implements Cache.
func (c *BadgerCache) Put(_ context.Context, url string, env *Envelope) error {
	if env == nil || env.Synthetic {
		return nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	key := envelopeKey(url)
	return c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	if c.logger != nil {
		c.logger.Info("Closing envelope cache")
	}
	return c.db.Close()
}

// Tiered reads through a fast cache in front of a persistent one and fills
// the fast cache on a slow-tier hit. Puts go to both.
type Tiered struct {
	fast Cache
	slow Cache
}

// NewTiered combines two caches.
func NewTiered(fast, slow Cache) *Tiered {
	return &Tiered{fast: fast, slow: slow}
}

// Get implements Cache.
func (t *Tiered) Get(ctx context.Context, url string) (*Envelope, bool) {
	if env, ok := t.fast.Get(ctx, url); ok {
		return env, true
	}
	env, ok := t.slow.Get(ctx, url)
	if !ok {
		return nil, false
	}
	_ = t.fast.Put(ctx, url, env)
	return env, true
}

// Put implements Cache.
func (t *Tiered) Put(ctx context.Context, url string, env *Envelope) error {
	if err := t.fast.Put(ctx, url, env); err != nil {
		return err
	}
	return t.slow.Put(ctx, url, env)
}

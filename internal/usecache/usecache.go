// Package usecache memoizes `use` clause resolution in a local SQLite
// database keyed by the resolved file's path and a content hash, so a
// multi-file wuffscheck invocation that imports the same package from
// several files resolves it from disk (or a remote search root) at
// most once per run.
//
// This caches resolution, not signature-checking: internal/sema's
// checkUse still re-tokenizes, re-parses, and re-checks the returned
// source every time it is called. Hoisting that work out too would
// mean checkUse accepting an already-built signature instead of raw
// bytes, a wider change to sema's ResolveUse contract than this cache
// layer makes on its own.
package usecache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Record is one cached resolution: the use path it was resolved from,
// the content hash of the source at the time it was cached, and the
// source bytes themselves.
type Record struct {
	Path        string `gorm:"primaryKey"`
	ContentHash string `gorm:"index"`
	Source      []byte `gorm:"type:blob"`
	CachedAt    time.Time
}

// Cache wraps a gorm handle onto a SQLite database of Records.
type Cache struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// ensures its schema is migrated.
func Open(dsn string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Hash computes the content hash Get/Put key on.
func Hash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached source for path if a Record exists whose
// ContentHash matches hash.
func (c *Cache) Get(path, hash string) ([]byte, bool) {
	var rec Record
	err := c.db.Where("path = ? AND content_hash = ?", path, hash).First(&rec).Error
	if err != nil {
		return nil, false
	}
	return rec.Source, true
}

// GetByPath returns the cached source for path regardless of content
// hash: a deliberately optimistic lookup, used to skip a second
// resolution of the same use path within (or across) a run entirely,
// on the assumption the underlying file hasn't changed mid-invocation.
func (c *Cache) GetByPath(path string) ([]byte, bool) {
	var rec Record
	if err := c.db.Where("path = ?", path).First(&rec).Error; err != nil {
		return nil, false
	}
	return rec.Source, true
}

// Put inserts or replaces the cached Record for path.
func (c *Cache) Put(path, hash string, source []byte) error {
	rec := Record{Path: path, ContentHash: hash, Source: source, CachedAt: time.Now()}
	return c.db.Save(&rec).Error
}

// Resolver wraps an inner resolve function with a Cache: a hit returns
// the cached bytes without invoking inner at all; a miss invokes inner,
// hashes its result, and populates the cache before returning.
type Resolver struct {
	cache *Cache
	inner func(path string) ([]byte, error)
}

// NewResolver builds a caching wrapper around inner, matching
// internal/sema.ResolveUse's signature once its Resolve method is
// bound.
func NewResolver(cache *Cache, inner func(path string) ([]byte, error)) *Resolver {
	return &Resolver{cache: cache, inner: inner}
}

// Resolve implements sema.ResolveUse: a path already seen this run (or
// a prior one, against the same cache database) short-circuits inner
// entirely; a miss resolves through inner once and populates the
// cache for every later call.
func (r *Resolver) Resolve(path string) ([]byte, error) {
	if cached, ok := r.cache.GetByPath(path); ok {
		return cached, nil
	}
	src, err := r.inner(path)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Put(path, Hash(src), src); err != nil {
		return nil, err
	}
	return src, nil
}

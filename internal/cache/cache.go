package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the entry cap when none is configured.
const DefaultSize = 512

// #region key
// Key identifies a repeatable question. Two questions with the same normalized text,
// intent, language and category get the same decision.
type Key struct {
	Query    string
	Intent   string
	Language string
	Category string
}

// String joins the fields with the ASCII unit separator, which cannot occur in
// normalized query text.
func (k Key) String() string {
	return strings.Join([]string{k.Query, k.Intent, k.Language, k.Category}, "\x1f")
}

// #endregion key

// #region cache
// Cache is a bounded LRU safe for concurrent use. A nil *Cache is a disabled cache.
type Cache[V any] struct {
	lru *lru.Cache[string, V]
}

// New creates a cache holding at most size entries. size <= 0 returns a nil (disabled) cache.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l}, nil
}

// Get returns the cached value for k.
func (c *Cache[V]) Get(k Key) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(k.String())
}

// Add stores v under k, evicting the least recently used entry when full.
func (c *Cache[V]) Add(k Key, v V) {
	if c == nil {
		return
	}
	c.lru.Add(k.String(), v)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// #endregion cache

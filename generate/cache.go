package generate

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const completionCacheSize = 100

// CompletionCache remembers completions by the prefix they were made for.
type CompletionCache struct {
	cache *lru.Cache[string, string]
}

// NewCompletionCache creates an LRU cache of the given size.
func NewCompletionCache(size int) *CompletionCache {
	if size <= 0 {
		size = completionCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		panic(err)
	}
	return &CompletionCache{cache: c}
}

// Put stores completion for prefix.
func (c *CompletionCache) Put(prefix, completion string) {
	c.cache.Add(prefix, completion)
}

// Get returns the completion for prefix. Besides exact hits it serves the
// user typing along a shown suggestion: a cached prefix that the current one
// extends, whose completion starts with the characters typed since, yields
// the rest of that completion.
func (c *CompletionCache) Get(prefix string) (string, bool) {
	if v, ok := c.cache.Get(prefix); ok {
		return v, true
	}
	for _, key := range c.cache.Keys() {
		if len(key) >= len(prefix) || !strings.HasPrefix(prefix, key) {
			continue
		}
		v, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		typed := prefix[len(key):]
		if rest, found := strings.CutPrefix(v, typed); found && strings.TrimSpace(rest) != "" {
			return rest, true
		}
	}
	return "", false
}

// Len returns the number of cached completions.
func (c *CompletionCache) Len() int {
	return c.cache.Len()
}

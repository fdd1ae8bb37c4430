package strategy

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RegexCacheSize caps the compiled patterns kept per strategy instance.
const RegexCacheSize = 50

// regexCache memoizes compiled patterns with least-recently-used eviction.
// The underlying cache is synchronized.
type regexCache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

func newRegexCache() *regexCache {
	c, err := lru.New[string, *regexp.Regexp](RegexCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic("strategy: regex cache: " + err.Error())
	}
	return &regexCache{compiled: c}
}

// compile returns the cached pattern or compiles and caches it.
func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.compiled.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled.Add(pattern, re)
	return re, nil
}

// len reports the number of cached patterns.
func (c *regexCache) len() int {
	return c.compiled.Len()
}

package fitness

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"morningbrief/internal/domain/briefing"
)

// dayCache remembers snapshots for settled days. Today and yesterday are
// never stored, nor are days that came back without metrics.
type dayCache struct {
	entries *lru.Cache[string, briefing.FitnessSnapshot]
}

func newDayCache(size int) *dayCache {
	if size <= 0 {
		return &dayCache{}
	}
	entries, err := lru.New[string, briefing.FitnessSnapshot](size)
	if err != nil {
		return &dayCache{}
	}
	return &dayCache{entries: entries}
}

func (c *dayCache) get(key string) (briefing.FitnessSnapshot, bool) {
	if c == nil || c.entries == nil {
		return briefing.FitnessSnapshot{}, false
	}
	return c.entries.Get(key)
}

func (c *dayCache) put(key string, snapshot briefing.FitnessSnapshot) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(key, snapshot)
}

func (c *dayCache) len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

package adducttable

import (
	"sync"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

// Cache maps a source key to its loaded table. Entries are never replaced
// or evicted.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]*domain.AdductTable
}

func NewCache() *Cache {
	return &Cache{tables: make(map[string]*domain.AdductTable)}
}

func (c *Cache) Lookup(key string) (*domain.AdductTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.tables[key]
	return table, ok
}

// StoreIfAbsent inserts table under key unless an entry exists and returns
// whichever table is cached afterwards.
func (c *Cache) StoreIfAbsent(key string, table *domain.AdductTable) *domain.AdductTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.tables[key]; ok {
		return existing
	}
	c.tables[key] = table
	return table
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

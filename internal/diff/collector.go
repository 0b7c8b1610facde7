package diff

import (
	"maps"
	"strings"
	"sync"
)

// collector accumulates the records of a run in emission order together with
// their per-type counts. It may be read while the run is still emitting.
type collector struct {
	mu     sync.RWMutex
	infos  []ObjectsDiffInfo
	counts map[DiffType]int
}

func newCollector() *collector {
	c := &collector{counts: make(map[DiffType]int, len(diffTypeNames))}
	for _, t := range DiffTypes() {
		c.counts[t] = 0
	}
	return c
}

// Collect appends an emitted record.
func (c *collector) Collect(info ObjectsDiffInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info.SQL = strings.TrimSpace(info.SQL)
	c.infos = append(c.infos, info)
	c.counts[info.Type]++
}

// Infos returns a copy of the collected records.
func (c *collector) Infos() []ObjectsDiffInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ObjectsDiffInfo(nil), c.infos...)
}

// Len returns the number of collected records.
func (c *collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.infos)
}

// Count returns the number of records of one type.
func (c *collector) Count(t DiffType) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[t]
}

// Counts returns a copy of the per-type counts.
func (c *collector) Counts() map[DiffType]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.counts)
}

// Definition concatenates the DDL collected so far.
func (c *collector) Definition() string {
	result := Result{Infos: c.Infos()}
	return result.Definition()
}

package dwd

import (
	"sort"
	"sync"

	"github.com/retrowetter/retrowetter/internal/types"
)

// seriesCache is the in-memory cache of full per-station time series. It is
// keyed by station ID only; callers range-filter after retrieval. Entries are
// evicted only by explicit invalidation.
type seriesCache struct {
	mu     sync.RWMutex
	series map[string]types.TimeSeries
}

func newSeriesCache() *seriesCache {
	return &seriesCache{series: make(map[string]types.TimeSeries)}
}

func (c *seriesCache) get(stationID string) (types.TimeSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.series[stationID]
	return ts, ok
}

func (c *seriesCache) put(ts types.TimeSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series[ts.StationID] = ts
}

func (c *seriesCache) delete(stationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.series, stationID)
}

func (c *seriesCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = make(map[string]types.TimeSeries)
}

func (c *seriesCache) stations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.series))
	for id := range c.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

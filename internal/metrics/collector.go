package metrics

import (
	"time"

	"album-engine/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds a point-in-time snapshot of the engine
type Stats struct {
	CachedRecords   int  `json:"cachedRecords"`
	FirstPageSize   int  `json:"firstPageSize"`
	LiveObjects     int  `json:"liveObjects"`
	PoolWorkers     int  `json:"poolWorkers"`
	PoolActive      int  `json:"poolActive"`
	PoolQueued      int  `json:"poolQueued"`
	OperatorQueued  int  `json:"operatorQueued"`
	PendingEvents   int  `json:"pendingEvents"`
	DBOpenConns     int  `json:"dbOpenConns"`
	OperatorRunning bool `json:"operatorRunning"`
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CacheEntries.Set(float64(stats.CachedRecords))
	CachePageSize.Set(float64(stats.FirstPageSize))
	RegistryObjects.Set(float64(stats.LiveObjects))
	OperatorQueueDepth.Set(float64(stats.OperatorQueued))
	EventsPending.Set(float64(stats.PendingEvents))
	DBConnectionsOpen.Set(float64(stats.DBOpenConns))

	logging.Debug("Metrics collected: records=%d, page=%d, objects=%d, pool=%d/%d queued=%d",
		stats.CachedRecords, stats.FirstPageSize, stats.LiveObjects,
		stats.PoolActive, stats.PoolWorkers, stats.PoolQueued)
}

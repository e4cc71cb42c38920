package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu   sync.Mutex
	jobs map[string]*jobStats
}

type jobStats struct {
	Runs         uint64 `json:"runs"`
	Failures     uint64 `json:"failures"`
	LastDuration int64  `json:"lastDurationMs"`
	LastError    string `json:"lastError,omitempty"`
}

func New() *Collector {
	return &Collector{jobs: map[string]*jobStats{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordJob(name string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.jobs[name]
	if !ok {
		stats = &jobStats{}
		c.jobs[name] = stats
	}
	stats.Runs++
	stats.LastDuration = duration.Milliseconds()
	stats.LastError = ""
	if err != nil {
		stats.Failures++
		stats.LastError = err.Error()
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	jobs := make(map[string]jobStats, len(c.jobs))
	for name, stats := range c.jobs {
		jobs[name] = *stats
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"jobs":             jobs,
	}
}

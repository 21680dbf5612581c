package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests     uint64
	errorRequests     uint64
	rateLimited       uint64
	totalDurationMs   uint64
	transitions       uint64
	transitionErrors  uint64
	recomputes        uint64
	recomputeFailures uint64
}

func New() *Collector {
	return &Collector{}
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

func (c *Collector) RecordTransition(ok bool) {
	atomic.AddUint64(&c.transitions, 1)
	if !ok {
		atomic.AddUint64(&c.transitionErrors, 1)
	}
}

func (c *Collector) RecordRecompute(ok bool) {
	atomic.AddUint64(&c.recomputes, 1)
	if !ok {
		atomic.AddUint64(&c.recomputeFailures, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	durations := atomic.LoadUint64(&c.totalDurationMs)

	var avgMs float64
	if total > 0 {
		avgMs = float64(durations) / float64(total)
	}

	return map[string]any{
		"totalRequests":     total,
		"errorRequests":     atomic.LoadUint64(&c.errorRequests),
		"rateLimited":       atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":     avgMs,
		"transitions":       atomic.LoadUint64(&c.transitions),
		"transitionErrors":  atomic.LoadUint64(&c.transitionErrors),
		"recomputes":        atomic.LoadUint64(&c.recomputes),
		"recomputeFailures": atomic.LoadUint64(&c.recomputeFailures),
	}
}

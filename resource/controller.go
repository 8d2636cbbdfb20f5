// Package resource bounds the memory, worker and file throughput used while
// loading and generating matrices.
//
// A nil *Controller imposes no limits.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean unlimited, except Workers
// which defaults to 1.
type Config struct {
	// SampleMemoryBytes caps the decoded samples held at once.
	SampleMemoryBytes int64

	// Workers is the number of matrices parsed or rows generated in parallel.
	Workers int64

	// ReadBytesPerSec throttles reads of record files and matrix files.
	ReadBytesPerSec int64
}

// Controller hands out memory, worker slots and read bandwidth.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted
	memUsed atomic.Int64

	workers *semaphore.Weighted

	reads *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.Workers),
	}
	if cfg.SampleMemoryBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.SampleMemoryBytes)
	}
	if cfg.ReadBytesPerSec > 0 {
		c.reads = rate.NewLimiter(rate.Limit(cfg.ReadBytesPerSec), int(cfg.ReadBytesPerSec))
	}
	return c
}

// Workers returns the configured worker count; 1 for a nil controller.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.Workers)
}

// AcquireMemory reserves bytes, blocking while the limit would be exceeded.
// A request larger than the limit takes the whole limit.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, min(bytes, c.cfg.SampleMemoryBytes)); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(min(bytes, c.cfg.SampleMemoryBytes)) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns bytes reserved by AcquireMemory or TryAcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(min(bytes, c.cfg.SampleMemoryBytes))
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWorker blocks until a worker slot is free.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker takes a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker frees a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitRead blocks until n bytes may be read.
func (c *Controller) WaitRead(ctx context.Context, n int) error {
	if c == nil || c.reads == nil || n <= 0 {
		return nil
	}
	for n > 0 {
		chunk := min(n, c.reads.Burst())
		if err := c.reads.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

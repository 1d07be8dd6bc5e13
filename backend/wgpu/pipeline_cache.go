// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline cache errors.
var (
	// ErrPipelineCacheNilProgram is returned when a variant is requested without a program.
	ErrPipelineCacheNilProgram = errors.New("wgpu: pipeline program is nil")
)

// pipelineKey is the render state baked into one pipeline object. A
// program has one pipeline per distinct key it is drawn with.
type pipelineKey struct {
	program   uint64
	depthTest bool
	depthMask bool
	decal     bool
	blend     bool
	topology  gputypes.PrimitiveTopology
}

// pipelineCache caches render pipeline variants.
//
// Pipeline creation involves shader compilation and validation. Variants
// live as long as their program.
//
// pipelineCache is safe for concurrent use. It uses RWMutex with
// double-check locking for efficient reads and safe writes.
type pipelineCache struct {
	mu        sync.RWMutex
	pipelines map[pipelineKey]hal.RenderPipeline

	// hits and misses are read lock-free by Stats.
	hits   uint64
	misses uint64
}

func newPipelineCache() *pipelineCache {
	return &pipelineCache{pipelines: make(map[pipelineKey]hal.RenderPipeline)}
}

// getOrCreate returns the cached variant for key or builds it with create.
func (c *pipelineCache) getOrCreate(key pipelineKey, create func() (hal.RenderPipeline, error)) (hal.RenderPipeline, error) {
	if key.program == 0 {
		return nil, ErrPipelineCacheNilProgram
	}

	// Fast path: read lock
	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.mu.RUnlock()

	// Slow path: write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	p, err := create()
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	atomic.AddUint64(&c.misses, 1)
	return p, nil
}

// dropProgram removes every variant of program and returns them for
// destruction.
func (c *pipelineCache) dropProgram(program uint64) []hal.RenderPipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dropped []hal.RenderPipeline
	for key, p := range c.pipelines {
		if key.program == program {
			dropped = append(dropped, p)
			delete(c.pipelines, key)
		}
	}
	return dropped
}

// drain empties the cache and returns every pipeline for destruction.
// Statistics are reset.
func (c *pipelineCache) drain() []hal.RenderPipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]hal.RenderPipeline, 0, len(c.pipelines))
	for _, p := range c.pipelines {
		all = append(all, p)
	}
	c.pipelines = make(map[pipelineKey]hal.RenderPipeline)
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
	return all
}

// Stats returns the number of cache hits and misses.
func (c *pipelineCache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// HitRate returns the cache hit rate (0.0 to 1.0), 0 before any request.
func (c *pipelineCache) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Size returns the number of cached pipelines.
func (c *pipelineCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

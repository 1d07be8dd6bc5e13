// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func TestPipelineCacheGetOrCreate(t *testing.T) {
	c := newPipelineCache()
	created := 0
	create := func() (hal.RenderPipeline, error) {
		created++
		return &noop.Resource{}, nil
	}

	key := pipelineKey{program: 1, depthTest: true}
	for i := 0; i < 3; i++ {
		if _, err := c.getOrCreate(key, create); err != nil {
			t.Fatalf("getOrCreate: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", hits, misses)
	}
	if got := c.HitRate(); got < 0.66 || got > 0.67 {
		t.Errorf("HitRate() = %v, want 2/3", got)
	}

	key.depthMask = true
	if _, err := c.getOrCreate(key, create); err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestPipelineCacheErrors(t *testing.T) {
	c := newPipelineCache()
	if _, err := c.getOrCreate(pipelineKey{}, nil); !errors.Is(err, ErrPipelineCacheNilProgram) {
		t.Errorf("zero program: %v", err)
	}
	boom := errors.New("boom")
	_, err := c.getOrCreate(pipelineKey{program: 2}, func() (hal.RenderPipeline, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("create error = %v", err)
	}
	if c.Size() != 0 {
		t.Error("failed creation was cached")
	}
	if c.HitRate() != 0 {
		t.Error("HitRate() non-zero without hits")
	}
}

func TestPipelineCacheDrop(t *testing.T) {
	c := newPipelineCache()
	create := func() (hal.RenderPipeline, error) { return &noop.Resource{}, nil }
	for _, k := range []pipelineKey{{program: 1}, {program: 1, blend: true}, {program: 2}} {
		if _, err := c.getOrCreate(k, create); err != nil {
			t.Fatalf("getOrCreate: %v", err)
		}
	}
	if got := len(c.dropProgram(1)); got != 2 {
		t.Errorf("dropProgram(1) = %d pipelines, want 2", got)
	}
	if got := len(c.dropProgram(1)); got != 0 {
		t.Errorf("second dropProgram(1) = %d pipelines, want 0", got)
	}
	if got := len(c.drain()); got != 1 {
		t.Errorf("drain() = %d pipelines, want 1", got)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after drain", c.Size())
	}
}

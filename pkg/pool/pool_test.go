/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestPoolLimitInvariant(t *testing.T) {
	p := New("test", 3)
	defer p.Close()

	var running, peak int32
	var wg sync.WaitGroup
	release := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(fmt.Sprintf("unit-%d", i), func(ctx context.Context) (interface{}, error) {
			defer wg.Done()
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
			return nil, nil
		})
		assert.NilError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	stats := p.Stats()
	assert.Assert(t, stats.Running <= stats.Limit, "running %d > limit %d", stats.Running, stats.Limit)
	assert.Equal(t, 3, stats.Running)
	assert.Equal(t, 17, stats.Pending)

	close(release)
	wg.Wait()
	assert.Assert(t, atomic.LoadInt32(&peak) <= 3, "peak concurrency %d exceeded limit", peak)
}

func TestPoolSetLimitRaise(t *testing.T) {
	p := New("test", 1)
	defer p.Close()

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		err := p.Submit(fmt.Sprintf("unit-%d", i), func(ctx context.Context) (interface{}, error) {
			defer wg.Done()
			<-release
			return nil, nil
		})
		assert.NilError(t, err)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, p.Stats().Running)

	p.SetLimit(4)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, p.Stats().Running)

	close(release)
	wg.Wait()
	assert.Equal(t, 4, p.Stats().Completed)
}

func TestPoolCancelPending(t *testing.T) {
	p := New("test", 1)
	defer p.Close()

	started := make(chan struct{})
	block := make(chan struct{})
	err := p.Submit("runner", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-block
		return nil, nil
	})
	assert.NilError(t, err)
	// admission is not FIFO, so only queue the waiter once the runner
	// provably holds the single slot
	<-started
	err = p.Submit("waiter", func(ctx context.Context) (interface{}, error) {
		return "should not run", nil
	})
	assert.NilError(t, err)

	p.Cancel("waiter")
	result, ok := p.GetResult("waiter", true)
	assert.Assert(t, ok)
	assert.Equal(t, ErrCancelled, result.Err)

	close(block)
}

func TestPoolCancelInflight(t *testing.T) {
	p := New("test", 1)
	defer p.Close()

	started := make(chan struct{})
	err := p.Submit("unit", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.NilError(t, err)
	<-started
	p.Cancel("unit")

	result, ok := p.GetResult("unit", true)
	assert.Assert(t, ok)
	assert.Equal(t, context.Canceled, result.Err)
}

func TestPoolGetResult(t *testing.T) {
	p := New("test", 2)
	defer p.Close()

	err := p.Submit("unit", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	assert.NilError(t, err)

	result, ok := p.GetResult("unit", true)
	assert.Assert(t, ok)
	assert.NilError(t, result.Err)
	assert.Equal(t, 42, result.Value)

	// unknown unit without waiting
	_, ok = p.GetResult("missing", false)
	assert.Assert(t, !ok)
}

func TestPoolDuplicateSubmit(t *testing.T) {
	p := New("test", 1)
	defer p.Close()

	block := make(chan struct{})
	assert.NilError(t, p.Submit("unit", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	}))
	time.Sleep(10 * time.Millisecond)
	err := p.Submit("unit", func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.Assert(t, err != nil)
	close(block)
}

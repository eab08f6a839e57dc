/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package pool

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// UnitFunc is one schedulable unit of work. The context is cancelled when
// the unit is cancelled individually or the pool shuts down.
type UnitFunc func(ctx context.Context) (interface{}, error)

// Result is the cached outcome of a finished unit.
type Result struct {
	Value interface{}
	Err   error
}

// ErrCancelled is returned as a unit's result error when it was cancelled
// before admission.
var ErrCancelled = fmt.Errorf("unit cancelled before start")

// Stats is a point-in-time snapshot of one pool.
type Stats struct {
	Running   int
	Pending   int
	Completed int
	Limit     int
	Available int
}

type unit struct {
	id        string
	fn        UnitFunc
	cancelled bool
}

// Pool is a bounded concurrent executor. At most limit units run at once;
// the rest wait for a slot. Admission order is not guaranteed. The limit is
// adjustable at runtime: raising it admits waiting units immediately,
// lowering it drains as running units complete without killing them.
type Pool struct {
	name string

	mu        sync.Mutex
	cond      *sync.Cond
	limit     int
	running   int
	completed int
	pending   map[string]*unit
	inflight  map[string]context.CancelFunc
	results   map[string]*Result
	closed    bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

func New(name string, limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:       name,
		limit:      limit,
		pending:    make(map[string]*unit),
		inflight:   make(map[string]context.CancelFunc),
		results:    make(map[string]*Result),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	setLimitMetric(name, limit)
	return p
}

func (p *Pool) Name() string {
	return p.name
}

// Submit registers a unit under the given id and schedules it. The call
// returns immediately; the unit runs once a slot is acquired.
func (p *Pool) Submit(id string, fn UnitFunc) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("pool %s is closed", p.name)
	}
	if _, ok := p.pending[id]; ok {
		p.mu.Unlock()
		return fmt.Errorf("unit %s already submitted", id)
	}
	if _, ok := p.inflight[id]; ok {
		p.mu.Unlock()
		return fmt.Errorf("unit %s already running", id)
	}
	u := &unit{id: id, fn: fn}
	p.pending[id] = u
	p.publishMetricsLocked()
	p.mu.Unlock()

	go p.run(u)
	return nil
}

func (p *Pool) run(u *unit) {
	p.mu.Lock()
	for p.running >= p.limit && !u.cancelled && !p.closed {
		p.cond.Wait()
	}
	if u.cancelled || p.closed {
		delete(p.pending, u.id)
		p.results[u.id] = &Result{Err: ErrCancelled}
		p.completed++
		p.publishMetricsLocked()
		p.cond.Broadcast()
		p.mu.Unlock()
		return
	}
	delete(p.pending, u.id)
	p.running++
	ctx, cancel := context.WithCancel(p.baseCtx)
	p.inflight[u.id] = cancel
	p.publishMetricsLocked()
	p.mu.Unlock()

	value, err := u.fn(ctx)
	cancel()

	p.mu.Lock()
	p.running--
	p.completed++
	delete(p.inflight, u.id)
	p.results[u.id] = &Result{Value: value, Err: err}
	p.publishMetricsLocked()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Cancel removes a pending unit before admission or interrupts a running
// one via its context. Unknown ids are a no-op.
func (p *Pool) Cancel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.pending[id]; ok {
		u.cancelled = true
		p.cond.Broadcast()
		return
	}
	if cancel, ok := p.inflight[id]; ok {
		cancel()
	}
}

// SetLimit adjusts the concurrency cap at runtime.
func (p *Pool) SetLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit == p.limit {
		return
	}
	klog.Infof("pool %s limit %d -> %d", p.name, p.limit, limit)
	p.limit = limit
	p.publishMetricsLocked()
	p.cond.Broadcast()
}

// GetResult fetches the cached result of a unit. With wait=true it blocks
// until the unit finishes or the pool closes.
func (p *Pool) GetResult(id string, wait bool) (*Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if result, ok := p.results[id]; ok {
			return result, true
		}
		if !wait || p.closed {
			return nil, false
		}
		_, isPending := p.pending[id]
		_, isRunning := p.inflight[id]
		if !isPending && !isRunning {
			return nil, false
		}
		p.cond.Wait()
	}
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	available := p.limit - p.running
	if available < 0 {
		available = 0
	}
	return Stats{
		Running:   p.running,
		Pending:   len(p.pending),
		Completed: p.completed,
		Limit:     p.limit,
		Available: available,
	}
}

// Close cancels everything and rejects further submissions.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	for _, u := range p.pending {
		u.cancelled = true
	}
	p.cond.Broadcast()
	p.mu.Unlock()
	p.baseCancel()
}

func (p *Pool) publishMetricsLocked() {
	setRunningMetric(p.name, p.running)
	setPendingMetric(p.name, len(p.pending))
	setLimitMetric(p.name, p.limit)
	setCompletedMetric(p.name, p.completed)
}

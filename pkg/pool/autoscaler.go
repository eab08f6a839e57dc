/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package pool

import (
	"context"
	"time"

	"k8s.io/klog/v2"
)

// ScalePolicy bounds one pool's autoscaling behaviour. IdleHold, when
// positive, delays any scale-down until the pool has been continuously
// empty for that long. Used for capacity-fragile backends that thrash
// under aggressive downscale.
type ScalePolicy struct {
	Min               int
	Max               int
	Step              int
	ScaleUpInterval   time.Duration
	ScaleDownInterval time.Duration
	IdleHold          time.Duration
}

// Autoscaler adjusts one pool's limit from its load. Load counts both
// running and queued units, so a saturated pool with a deep backlog scales
// up even though running can never exceed the limit.
type Autoscaler struct {
	pool     *Pool
	policy   ScalePolicy
	interval time.Duration

	lastScaleUp   time.Time
	lastScaleDown time.Time
	emptySince    time.Time
}

func NewAutoscaler(p *Pool, policy ScalePolicy, interval time.Duration) *Autoscaler {
	return &Autoscaler{pool: p, policy: policy, interval: interval}
}

// Run evaluates the policy periodically until the context ends.
func (a *Autoscaler) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evaluate(time.Now())
		}
	}
}

func (a *Autoscaler) evaluate(now time.Time) {
	stats := a.pool.Stats()

	if stats.Running > 0 {
		a.emptySince = time.Time{}
	} else if a.emptySince.IsZero() {
		a.emptySince = now
	}

	load := stats.Running + stats.Pending
	if load >= 2*stats.Limit && stats.Limit < a.policy.Max &&
		now.Sub(a.lastScaleUp) >= a.policy.ScaleUpInterval {
		next := stats.Limit + a.policy.Step
		if next > a.policy.Max {
			next = a.policy.Max
		}
		klog.Infof("pool %s scaling up to %d (load %d)", a.pool.Name(), next, load)
		a.pool.SetLimit(next)
		a.lastScaleUp = now
		return
	}

	if stats.Running < stats.Limit/2 && stats.Limit > a.policy.Min &&
		now.Sub(a.lastScaleDown) >= a.policy.ScaleDownInterval {
		if a.policy.IdleHold > 0 {
			if a.emptySince.IsZero() || now.Sub(a.emptySince) < a.policy.IdleHold {
				return
			}
		}
		next := stats.Limit - a.policy.Step
		if next < a.policy.Min {
			next = a.policy.Min
		}
		klog.Infof("pool %s scaling down to %d (running %d)", a.pool.Name(), next, stats.Running)
		a.pool.SetLimit(next)
		a.lastScaleDown = now
	}
}

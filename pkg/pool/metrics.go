/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runningGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nietest",
		Subsystem: "pool",
		Name:      "running_units",
		Help:      "Units currently executing in the pool.",
	}, []string{"pool"})

	pendingGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nietest",
		Subsystem: "pool",
		Name:      "pending_units",
		Help:      "Units waiting for a pool slot.",
	}, []string{"pool"})

	limitGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nietest",
		Subsystem: "pool",
		Name:      "limit",
		Help:      "Current concurrency cap of the pool.",
	}, []string{"pool"})

	completedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nietest",
		Subsystem: "pool",
		Name:      "completed_units_total",
		Help:      "Units finished since process start, including cancelled ones.",
	}, []string{"pool"})
)

func setRunningMetric(pool string, v int) {
	runningGauge.WithLabelValues(pool).Set(float64(v))
}

func setPendingMetric(pool string, v int) {
	pendingGauge.WithLabelValues(pool).Set(float64(v))
}

func setLimitMetric(pool string, v int) {
	limitGauge.WithLabelValues(pool).Set(float64(v))
}

func setCompletedMetric(pool string, v int) {
	completedGauge.WithLabelValues(pool).Set(float64(v))
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	commonconfig "github.com/talesofai/nietest/pkg/config"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
)

// StartSweeper schedules the periodic hard-delete of expired soft-deleted
// tasks. The returned cron is already running; stop it at shutdown.
func StartSweeper(store dbclient.TaskInterface) (*cron.Cron, error) {
	schedule := commonconfig.GetTaskSweepSchedule()
	ttl := time.Duration(commonconfig.GetTaskTTLDay()) * 24 * time.Hour
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		cutoff := time.Now().UTC().Add(-ttl)
		removed, err := store.DeleteExpiredTasks(context.Background(), cutoff)
		if err != nil {
			klog.ErrorS(err, "expired task sweep failed")
			return
		}
		if removed > 0 {
			klog.Infof("swept %d expired tasks deleted before %s", removed, cutoff.Format(time.RFC3339))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	klog.Infof("task sweeper scheduled: %s (ttl %d days)", schedule, commonconfig.GetTaskTTLDay())
	return c, nil
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package monitor

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/notification"
)

// Store is the slice of the database client the monitor reads and finalizes
// through.
type Store interface {
	GetTask(ctx context.Context, taskId string) (*v1.Task, error)
	CountSubtaskStatuses(ctx context.Context, taskId string) (*dbclient.SubtaskStatusCounts, error)
	SetTaskFinished(ctx context.Context, taskId string, status v1.TaskStatus, processed, progress int) error
}

// Notifier delivers task lifecycle events. Delivery failures never affect
// task state.
type Notifier interface {
	Notify(ctx context.Context, message *notification.Message)
}

// Monitor watches one active task until every subtask reaches a terminal
// state, then writes the task's final status and emits the matching event.
type Monitor struct {
	store    Store
	notifier Notifier
	interval time.Duration
}

func New(store Store, notifier Notifier, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{store: store, notifier: notifier, interval: interval}
}

// Watch polls the task's subtask aggregate until the task finishes or the
// context ends. It is meant to run as its own goroutine per active task.
func (m *Monitor) Watch(ctx context.Context, taskId string) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := m.observe(ctx, taskId); done {
				return
			}
		}
	}
}

// observe runs one polling round. Returns true when the watch should stop.
func (m *Monitor) observe(ctx context.Context, taskId string) bool {
	task, err := m.store.GetTask(ctx, taskId)
	if err != nil {
		klog.ErrorS(err, "monitor failed to read task", "TaskId", taskId)
		return false
	}
	if task.Status == v1.TaskCancelled {
		klog.Infof("task %s cancelled, monitor exiting", taskId)
		return true
	}
	if task.IsEnd() {
		return true
	}

	counts, err := m.store.CountSubtaskStatuses(ctx, taskId)
	if err != nil {
		klog.ErrorS(err, "monitor failed to count subtasks", "TaskId", taskId)
		return false
	}
	if counts.Total == 0 || counts.Completed+counts.Failed < counts.Total {
		return false
	}

	status, event := Finalize(counts)
	processed := counts.Completed + counts.Failed
	if err = m.store.SetTaskFinished(ctx, taskId, status, processed, 100); err != nil {
		klog.ErrorS(err, "monitor failed to finish task", "TaskId", taskId)
		return false
	}
	klog.Infof("task %s finished with status %s (%d completed, %d failed)",
		taskId, status, counts.Completed, counts.Failed)

	if m.notifier != nil {
		message := notification.NewMessage(event, task, counts)
		go m.notifier.Notify(context.Background(), message)
	}
	return true
}

// Finalize maps a fully terminal subtask aggregate to the parent's final
// status and notification event. A task with at least one success completes
// even when others failed.
func Finalize(counts *dbclient.SubtaskStatusCounts) (v1.TaskStatus, string) {
	switch {
	case counts.Completed == 0:
		return v1.TaskFailed, notification.EventTaskFailed
	case counts.Failed == 0:
		return v1.TaskCompleted, notification.EventTaskCompleted
	default:
		return v1.TaskCompleted, notification.EventTaskPartialCompleted
	}
}

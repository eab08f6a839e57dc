/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
)

type Interface interface {
	TaskInterface
	SubtaskInterface
	NotificationInterface
}

type TaskInterface interface {
	InsertTask(ctx context.Context, task *v1.Task) error
	SelectTasks(ctx context.Context, query sqrl.Sqlizer, sortBy, order string, limit, offset int) ([]*v1.Task, error)
	CountTasks(ctx context.Context, query sqrl.Sqlizer) (int, error)
	GetTask(ctx context.Context, taskId string) (*v1.Task, error)
	SetTaskProcessing(ctx context.Context, taskId string) error
	SetTaskFinished(ctx context.Context, taskId string, status v1.TaskStatus, processed, progress int) error
	SetTaskFailedMessage(ctx context.Context, taskId, message string) error
	SetTaskCancelled(ctx context.Context, taskId string) error
	SetTaskDeleted(ctx context.Context, taskId string) error
	IncrementTaskProcessed(ctx context.Context, taskId string) error
	IsTaskCancelled(ctx context.Context, taskId string) (bool, error)
	DeleteExpiredTasks(ctx context.Context, before time.Time) (int64, error)
}

type SubtaskInterface interface {
	InsertSubtasks(ctx context.Context, subtasks []*v1.Subtask) (int, error)
	SelectSubtasks(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*v1.Subtask, error)
	GetExistingIndexedKeys(ctx context.Context, taskId string, keys []string) (map[string]bool, error)
	CountSubtaskStatuses(ctx context.Context, taskId string) (*SubtaskStatusCounts, error)
	SetSubtaskProcessing(ctx context.Context, subtaskId string) error
	IncrementSubtaskRetry(ctx context.Context, subtaskId, message string) error
	SetSubtaskFailed(ctx context.Context, subtaskId, message string) error
	SetSubtaskCancelled(ctx context.Context, subtaskId string) error
	SetSubtaskResult(ctx context.Context, subtaskId string, result *v1.SubtaskResult) error
}

type NotificationInterface interface {
	SubmitNotification(ctx context.Context, record *NotificationRecord) error
	MarkNotificationSent(ctx context.Context, id int64) error
	ListUnsentNotifications(ctx context.Context) ([]*NotificationRecord, error)
}

// SubtaskStatusCounts aggregates the subtasks of one task by status.
type SubtaskStatusCounts struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

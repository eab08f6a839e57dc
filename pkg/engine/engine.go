/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"context"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/dispatcher"
	"github.com/talesofai/nietest/pkg/expander"
	"github.com/talesofai/nietest/pkg/matrix"
	"github.com/talesofai/nietest/pkg/monitor"
	"github.com/talesofai/nietest/pkg/notification"
)

// Engine wires the task lifecycle end to end: validation, expansion,
// persistence, dispatch and monitoring.
type Engine struct {
	store      dbclient.Interface
	dispatcher *dispatcher.Dispatcher
	monitors   *monitor.Manager
	notifier   *notification.Notifier
}

func New(store dbclient.Interface, d *dispatcher.Dispatcher, monitors *monitor.Manager, notifier *notification.Notifier) *Engine {
	return &Engine{
		store:      store,
		dispatcher: d,
		monitors:   monitors,
		notifier:   notifier,
	}
}

// CreateTask validates and persists a new task, expands it into subtasks
// and fires the asynchronous dispatch plus the monitor. The call returns
// as soon as the task is accepted; execution continues in the background.
func (e *Engine) CreateTask(ctx context.Context, task *v1.Task) (*v1.Task, error) {
	if err := ValidateTask(task); err != nil {
		return nil, err
	}
	total, err := expander.TotalImages(task)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if task.Id == "" {
		task.Id = v1.NewTaskId()
	}
	if task.Priority == 0 {
		task.Priority = v1.DefaultPriority
	}
	task.Status = v1.TaskPending
	task.TotalImages = total
	task.ProcessedImages = 0
	task.Progress = 0
	task.CreatedAt = now
	task.UpdatedAt = now
	if err = e.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}

	subtasks, err := expander.Expand(task)
	if err != nil {
		klog.ErrorS(err, "expansion failed", "TaskId", task.Id)
		if setErr := e.store.SetTaskFailedMessage(ctx, task.Id, err.Error()); setErr != nil {
			klog.ErrorS(setErr, "failed to record expansion error", "TaskId", task.Id)
		}
		return nil, err
	}

	fresh, err := e.dedup(ctx, task.Id, subtasks)
	if err != nil {
		return nil, err
	}
	if _, err = e.store.InsertSubtasks(ctx, fresh); err != nil {
		return nil, err
	}
	if err = e.store.SetTaskProcessing(ctx, task.Id); err != nil {
		return nil, err
	}
	task.Status = v1.TaskProcessing
	klog.Infof("task %s accepted: %d subtasks (%d new)", task.Id, len(subtasks), len(fresh))

	if e.notifier != nil {
		message := notification.NewMessage(notification.EventTaskSubmitted, task, nil)
		go e.notifier.Notify(context.Background(), message)
	}
	e.dispatcher.SubmitTask(task, fresh)
	e.monitors.StartWatch(task.Id)
	return task, nil
}

// dedup drops pinned-seed subtasks whose coordinate already exists for the
// task, so a re-dispatch never duplicates deterministic cells. Random-seed
// subtasks always pass through.
func (e *Engine) dedup(ctx context.Context, taskId string, subtasks []*v1.Subtask) ([]*v1.Subtask, error) {
	var keys []string
	for _, subtask := range subtasks {
		if subtask.Seed != v1.RandomSeed {
			keys = append(keys, subtask.IndexedKey())
		}
	}
	existing, err := e.store.GetExistingIndexedKeys(ctx, taskId, keys)
	if err != nil {
		return nil, err
	}
	fresh := make([]*v1.Subtask, 0, len(subtasks))
	for _, subtask := range subtasks {
		if subtask.Seed != v1.RandomSeed && existing[subtask.IndexedKey()] {
			continue
		}
		fresh = append(fresh, subtask)
	}
	return fresh, nil
}

func (e *Engine) GetTask(ctx context.Context, taskId string) (*v1.Task, error) {
	return e.store.GetTask(ctx, taskId)
}

// ListFilter narrows ListTasks beyond the implicit is_deleted=false.
type ListFilter struct {
	Owner  string
	Status v1.TaskStatus
	Since  time.Time
	Until  time.Time
}

// ListTasks pages through non-deleted tasks matching the filter.
func (e *Engine) ListTasks(ctx context.Context, filter *ListFilter, sortBy, order string, limit, offset int) ([]*v1.Task, int, error) {
	dbTags := dbclient.GetTaskFieldTags()
	query := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(dbTags, "IsDeleted"): false}}
	if filter.Owner != "" {
		query = append(query, sqrl.Eq{dbclient.GetFieldTag(dbTags, "Owner"): filter.Owner})
	}
	if filter.Status != "" {
		query = append(query, sqrl.Eq{dbclient.GetFieldTag(dbTags, "Status"): string(filter.Status)})
	}
	if !filter.Since.IsZero() {
		query = append(query, sqrl.GtOrEq{dbclient.GetFieldTag(dbTags, "CreateTime"): filter.Since})
	}
	if !filter.Until.IsZero() {
		query = append(query, sqrl.LtOrEq{dbclient.GetFieldTag(dbTags, "CreateTime"): filter.Until})
	}
	if sortBy == "" {
		sortBy = dbclient.CreateTime
		order = dbclient.DESC
	}
	total, err := e.store.CountTasks(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	tasks, err := e.store.SelectTasks(ctx, query, sortBy, order, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// CancelTask flips the task to cancelled and stops its monitor. Running
// subtasks are not force-killed; they observe the cancellation at their
// next checkpoint.
func (e *Engine) CancelTask(ctx context.Context, taskId string) error {
	task, err := e.store.GetTask(ctx, taskId)
	if err != nil {
		return err
	}
	if task.IsEnd() {
		return nil
	}
	if err = e.store.SetTaskCancelled(ctx, taskId); err != nil {
		return err
	}
	e.monitors.StopWatch(taskId)
	klog.Infof("task %s cancelled", taskId)
	return nil
}

// DeleteTask soft-deletes the task. The periodic sweep removes expired
// records for good.
func (e *Engine) DeleteTask(ctx context.Context, taskId string) error {
	task, err := e.store.GetTask(ctx, taskId)
	if err != nil {
		return err
	}
	if !task.IsEnd() {
		if err = e.CancelTask(ctx, taskId); err != nil {
			return err
		}
	}
	return e.store.SetTaskDeleted(ctx, taskId)
}

// GetMatrix assembles the result matrix of a task from its completed
// subtasks.
func (e *Engine) GetMatrix(ctx context.Context, taskId string) (*matrix.Matrix, error) {
	task, err := e.store.GetTask(ctx, taskId)
	if err != nil {
		return nil, err
	}
	subtasks, err := e.selectTaskSubtasks(ctx, taskId, v1.SubtaskCompleted)
	if err != nil {
		return nil, err
	}
	return matrix.Assemble(task, subtasks), nil
}

// GetSubtasks lists a task's subtasks, optionally filtered by status.
func (e *Engine) GetSubtasks(ctx context.Context, taskId string, status v1.SubtaskStatus) ([]*v1.Subtask, error) {
	if _, err := e.store.GetTask(ctx, taskId); err != nil {
		return nil, err
	}
	return e.selectTaskSubtasks(ctx, taskId, status)
}

func (e *Engine) selectTaskSubtasks(ctx context.Context, taskId string, status v1.SubtaskStatus) ([]*v1.Subtask, error) {
	dbTags := dbclient.GetSubtaskFieldTags()
	query := sqrl.And{sqrl.Eq{dbclient.GetFieldTag(dbTags, "TaskId"): taskId}}
	if status != "" {
		query = append(query, sqrl.Eq{dbclient.GetFieldTag(dbTags, "Status"): string(status)})
	}
	return e.store.SelectSubtasks(ctx, query, []string{dbclient.CreateTime + " asc"}, -1, 0)
}

// ResumeProcessingTasks re-arms dispatch and monitoring for tasks that were
// mid-flight when the process last stopped.
func (e *Engine) ResumeProcessingTasks(ctx context.Context) error {
	dbTags := dbclient.GetTaskFieldTags()
	query := sqrl.And{
		sqrl.Eq{dbclient.GetFieldTag(dbTags, "IsDeleted"): false},
		sqrl.Eq{dbclient.GetFieldTag(dbTags, "Status"): string(v1.TaskProcessing)},
	}
	tasks, err := e.store.SelectTasks(ctx, query, dbclient.CreateTime, dbclient.ASC, -1, 0)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		pending, err := e.selectTaskSubtasks(ctx, task.Id, v1.SubtaskPending)
		if err != nil {
			klog.ErrorS(err, "failed to load pending subtasks", "TaskId", task.Id)
			continue
		}
		stalled, err := e.selectTaskSubtasks(ctx, task.Id, v1.SubtaskProcessing)
		if err != nil {
			klog.ErrorS(err, "failed to load stalled subtasks", "TaskId", task.Id)
			continue
		}
		remaining := append(pending, stalled...)
		if len(remaining) > 0 {
			e.dispatcher.SubmitTask(task, remaining)
		}
		e.monitors.StartWatch(task.Id)
		klog.Infof("resumed task %s with %d remaining subtasks", task.Id, len(remaining))
	}
	return nil
}

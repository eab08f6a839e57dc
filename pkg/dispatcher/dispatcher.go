/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"strings"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	"github.com/talesofai/nietest/pkg/imageapi"
	"github.com/talesofai/nietest/pkg/pool"
)

// Store is the slice of the database client the dispatcher writes through.
type Store interface {
	SetSubtaskProcessing(ctx context.Context, subtaskId string) error
	IncrementSubtaskRetry(ctx context.Context, subtaskId, message string) error
	SetSubtaskFailed(ctx context.Context, subtaskId, message string) error
	SetSubtaskCancelled(ctx context.Context, subtaskId string) error
	SetSubtaskResult(ctx context.Context, subtaskId string, result *v1.SubtaskResult) error
	IncrementTaskProcessed(ctx context.Context, taskId string) error
	IsTaskCancelled(ctx context.Context, taskId string) (bool, error)
}

// Dispatcher routes subtasks onto the two executor pools and runs each one
// through the generate-classify-writeback cycle.
type Dispatcher struct {
	store     Store
	generator imageapi.Interface
	defPool   *pool.Pool
	lumina    *pool.Pool
	sleepFunc func(ctx context.Context, d time.Duration) error
}

func New(store Store, generator imageapi.Interface, defPool, luminaPool *pool.Pool) *Dispatcher {
	return &Dispatcher{
		store:     store,
		generator: generator,
		defPool:   defPool,
		lumina:    luminaPool,
		sleepFunc: sleepWithContext,
	}
}

// IsLumina reports whether a subtask targets the Lumina backend: any prompt
// whose name contains "lumina", case-insensitive.
func IsLumina(subtask *v1.Subtask) bool {
	for i := range subtask.Prompts {
		if strings.Contains(strings.ToLower(subtask.Prompts[i].Name), "lumina") {
			return true
		}
	}
	return false
}

func (d *Dispatcher) routeFor(subtask *v1.Subtask) *pool.Pool {
	if IsLumina(subtask) {
		return d.lumina
	}
	return d.defPool
}

// SubmitTask submits a task's subtasks asynchronously and returns at once.
// A positive concurrency setting raises the default pool's limit; it never
// lowers it below what the autoscaler chose.
func (d *Dispatcher) SubmitTask(task *v1.Task, subtasks []*v1.Subtask) {
	if task.Settings.Concurrency > 0 {
		stats := d.defPool.Stats()
		if task.Settings.Concurrency > stats.Limit {
			d.defPool.SetLimit(task.Settings.Concurrency)
		}
	}
	go func() {
		for i, subtask := range subtasks {
			st := subtask
			target := d.routeFor(st)
			err := target.Submit(st.Id, func(ctx context.Context) (interface{}, error) {
				return nil, d.execute(ctx, st)
			})
			if err != nil {
				klog.ErrorS(err, "failed to submit subtask", "SubtaskId", st.Id, "pool", target.Name())
				continue
			}
			if (i+1)%10 == 0 {
				klog.Infof("task %s: submitted %d/%d subtasks", task.Id, i+1, len(subtasks))
			}
		}
		klog.Infof("task %s: all %d subtasks submitted", task.Id, len(subtasks))
	}()
}

// execute runs one subtask to a terminal state. Failed attempts bump the
// retry counter first, then the policy decides between re-running inside
// this same unit and failing terminally. Every terminal transition advances
// the parent's processed counter exactly once.
func (d *Dispatcher) execute(ctx context.Context, subtask *v1.Subtask) error {
	cancelled, err := d.store.IsTaskCancelled(ctx, subtask.ParentTaskId)
	if err != nil {
		klog.ErrorS(err, "failed to read parent status", "SubtaskId", subtask.Id)
	}
	if cancelled {
		if err = d.store.SetSubtaskCancelled(ctx, subtask.Id); err != nil {
			klog.ErrorS(err, "failed to cancel subtask", "SubtaskId", subtask.Id)
		}
		return nil
	}

	if err = d.store.SetSubtaskProcessing(ctx, subtask.Id); err != nil {
		klog.ErrorS(err, "failed to mark subtask processing", "SubtaskId", subtask.Id)
	}
	spec := &imageapi.GenerateSpec{
		Prompts:    subtask.Prompts,
		Ratio:      subtask.Ratio,
		Seed:       subtask.Seed,
		UsePolish:  subtask.UsePolish,
		ClientArgs: subtask.ClientArgs,
		Queue:      subtask.Queue,
	}
	retryCount := subtask.RetryCount
	for {
		result, genErr := d.generator.Generate(ctx, spec)
		if genErr == nil {
			return d.complete(ctx, subtask, result)
		}

		retryCount++
		if err = d.store.IncrementSubtaskRetry(ctx, subtask.Id, genErr.Error()); err != nil {
			klog.ErrorS(err, "failed to bump retry count", "SubtaskId", subtask.Id)
		}
		decision := Classify(genErr, retryCount)
		if !decision.Retry {
			return d.fail(ctx, subtask, genErr)
		}
		klog.V(2).Infof("subtask %s retrying (attempt %d): %v", subtask.Id, retryCount+1, genErr)
		if decision.Delay > 0 {
			if err = d.sleepFunc(ctx, decision.Delay); err != nil {
				return d.fail(ctx, subtask, genErr)
			}
		}
	}
}

func (d *Dispatcher) complete(ctx context.Context, subtask *v1.Subtask, result *imageapi.GenerateResult) error {
	record := &v1.SubtaskResult{
		Url:       result.Url,
		Width:     result.Width,
		Height:    result.Height,
		Seed:      result.Seed,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.SetSubtaskResult(ctx, subtask.Id, record); err != nil {
		klog.ErrorS(err, "failed to store subtask result", "SubtaskId", subtask.Id)
		return err
	}
	if err := d.store.IncrementTaskProcessed(ctx, subtask.ParentTaskId); err != nil {
		klog.ErrorS(err, "failed to advance task progress", "TaskId", subtask.ParentTaskId)
	}
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, subtask *v1.Subtask, genErr error) error {
	klog.Infof("subtask %s failed terminally: %v", subtask.Id, genErr)
	if err := d.store.SetSubtaskFailed(ctx, subtask.Id, genErr.Error()); err != nil {
		klog.ErrorS(err, "failed to mark subtask failed", "SubtaskId", subtask.Id)
		return err
	}
	if err := d.store.IncrementTaskProcessed(ctx, subtask.ParentTaskId); err != nil {
		klog.ErrorS(err, "failed to advance task progress", "TaskId", subtask.ParentTaskId)
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbutils "github.com/talesofai/nietest/pkg/database/utils"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

const (
	TTask = "task"
)

var (
	insertTaskFormat = `INSERT INTO ` + TTask + ` (%s) VALUES (%s)`
)

func (c *Client) InsertTask(ctx context.Context, task *v1.Task) error {
	if task == nil {
		return nil
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	row := CvtToTaskRow(task)
	if _, err = db.NamedExecContext(ctx, genInsertCommand(*row, insertTaskFormat, "id"), row); err != nil {
		klog.ErrorS(err, "failed to insert task db", "id", task.Id)
		return err
	}
	return nil
}

func (c *Client) SelectTasks(ctx context.Context, query sqrl.Sqlizer, sortBy, order string, limit, offset int) ([]*v1.Task, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	orderBy := func() []string {
		var results []string
		if sortBy == "" || order == "" {
			return results
		}
		if order == DESC {
			results = append(results, fmt.Sprintf("%s desc", sortBy))
		} else {
			results = append(results, fmt.Sprintf("%s asc", sortBy))
		}
		return results
	}()
	if limit < 0 {
		if limit, err = c.CountTasks(ctx, query); err != nil {
			return nil, err
		}
	}
	if offset < 0 {
		offset = 0
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTask).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*Task
	if c.RequestTimeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
		err = db.SelectContext(ctx2, &rows, sql, args...)
	} else {
		err = db.SelectContext(ctx, &rows, sql, args...)
	}
	if err != nil {
		return nil, err
	}
	tasks := make([]*v1.Task, 0, len(rows))
	for _, row := range rows {
		task, err := CvtToApiTask(row)
		if err != nil {
			klog.ErrorS(err, "skip malformed task row", "id", row.TaskId)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (c *Client) CountTasks(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TTask).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

func (c *Client) GetTask(ctx context.Context, taskId string) (*v1.Task, error) {
	dbTags := GetTaskFieldTags()
	dbSql := sqrl.And{
		sqrl.Eq{GetFieldTag(dbTags, "IsDeleted"): false},
		sqrl.Eq{GetFieldTag(dbTags, "TaskId"): taskId},
	}
	tasks, err := c.SelectTasks(ctx, dbSql, "", "", 1, 0)
	if err != nil {
		klog.ErrorS(err, "failed to select task", "sql", dbutils.CvtToSqlStr(dbSql))
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, commonerrors.NewTaskNotFound(taskId)
	}
	return tasks[0], nil
}

// SetTaskProcessing transitions a pending task to processing and stamps its
// start time once.
func (c *Client) SetTaskProcessing(ctx context.Context, taskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', start_time=COALESCE(start_time, $2), update_time=$2 WHERE task_id=$1`,
		TTask, v1.TaskProcessing)
	if _, err = db.ExecContext(ctx, cmd, taskId, now); err != nil {
		klog.ErrorS(err, "failed to update task db", "TaskId", taskId)
		return err
	}
	return nil
}

// SetTaskFinished writes the terminal status with the final aggregates.
func (c *Client) SetTaskFinished(ctx context.Context, taskId string, status v1.TaskStatus, processed, progress int) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s
		SET status=$2,
		    processed_images=$3,
		    progress=$4,
		    all_subtasks_completed=true,
		    end_time=$5,
		    update_time=$5
		WHERE task_id=$1 AND status NOT IN ('%s','%s')`,
		TTask, v1.TaskCompleted, v1.TaskFailed)
	if _, err = db.ExecContext(ctx, cmd, taskId, string(status), processed, progress, now); err != nil {
		klog.ErrorS(err, "failed to finish task db", "TaskId", taskId)
		return err
	}
	return nil
}

func (c *Client) SetTaskFailedMessage(ctx context.Context, taskId, message string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', error_message=$2, end_time=$3, update_time=$3 WHERE task_id=$1`,
		TTask, v1.TaskFailed)
	if _, err = db.ExecContext(ctx, cmd, taskId, message, now); err != nil {
		klog.ErrorS(err, "failed to update task db", "TaskId", taskId)
		return err
	}
	return nil
}

func (c *Client) SetTaskCancelled(ctx context.Context, taskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', end_time=$2, update_time=$2 WHERE task_id=$1 AND status NOT IN ('%s','%s')`,
		TTask, v1.TaskCancelled, v1.TaskCompleted, v1.TaskFailed)
	if _, err = db.ExecContext(ctx, cmd, taskId, now); err != nil {
		klog.ErrorS(err, "failed to cancel task db", "TaskId", taskId)
		return err
	}
	return nil
}

func (c *Client) SetTaskDeleted(ctx context.Context, taskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET is_deleted=true, delete_time=$2, update_time=$2 WHERE task_id=$1`, TTask)
	if _, err = db.ExecContext(ctx, cmd, taskId, now); err != nil {
		klog.ErrorS(err, "failed to update task db", "TaskId", taskId)
		return err
	}
	return nil
}

// IncrementTaskProcessed advances the parent counter by one when a subtask
// reaches a terminal state, recomputing progress in the same statement.
// processed_images never exceeds total_images.
func (c *Client) IncrementTaskProcessed(ctx context.Context, taskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s
		SET processed_images = LEAST(processed_images + 1, total_images),
		    progress = CASE WHEN total_images > 0
		        THEN LEAST(processed_images + 1, total_images) * 100 / total_images
		        ELSE 0 END,
		    update_time = $2
		WHERE task_id = $1`, TTask)
	if _, err = db.ExecContext(ctx, cmd, taskId, now); err != nil {
		klog.ErrorS(err, "failed to increment task progress", "TaskId", taskId)
		return err
	}
	return nil
}

func (c *Client) IsTaskCancelled(ctx context.Context, taskId string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	cmd := fmt.Sprintf(`SELECT status FROM %s WHERE task_id = $1 LIMIT 1`, TTask)
	var status string
	if err = db.GetContext(ctx, &status, cmd, taskId); err != nil {
		return false, err
	}
	return v1.TaskStatus(status) == v1.TaskCancelled, nil
}

// DeleteExpiredTasks hard-removes soft-deleted tasks whose delete time is
// older than the cutoff, along with their subtasks.
func (c *Client) DeleteExpiredTasks(ctx context.Context, before time.Time) (int64, error) {
	if c == nil || c.db == nil {
		return 0, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff := dbutils.NullTime(before)
	subCmd := fmt.Sprintf(`DELETE FROM %s WHERE task_id IN (SELECT task_id FROM %s WHERE is_deleted=true AND delete_time < $1)`,
		TSubtask, TTask)
	if _, err = tx.ExecContext(ctx, subCmd, cutoff); err != nil {
		return 0, err
	}
	taskCmd := fmt.Sprintf(`DELETE FROM %s WHERE is_deleted=true AND delete_time < $1`, TTask)
	result, err := tx.ExecContext(ctx, taskCmd, cutoff)
	if err != nil {
		return 0, err
	}
	removed, _ := result.RowsAffected()
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

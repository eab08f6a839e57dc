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
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbutils "github.com/talesofai/nietest/pkg/database/utils"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
	jsonutils "github.com/talesofai/nietest/pkg/utils/json"
)

const (
	TSubtask = "subtask"
)

var (
	// The partial unique index on (task_id, indexed_key) only covers rows with
	// a pinned seed, so re-submitted random-seed cells are never deduplicated.
	insertSubtaskFormat = `INSERT INTO ` + TSubtask + ` (%s) VALUES (%s) ON CONFLICT (task_id, indexed_key) WHERE seed <> 0 DO NOTHING`
)

// InsertSubtasks persists a batch of subtasks in one transaction and returns
// how many rows were actually inserted: either the whole batch lands or none
// of it does. Duplicates of an existing (task, coordinate) pair with a pinned
// seed are silently skipped.
func (c *Client) InsertSubtasks(ctx context.Context, subtasks []*v1.Subtask) (int, error) {
	if len(subtasks) == 0 {
		return 0, nil
	}
	if c == nil || c.db == nil {
		return 0, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, subtask := range subtasks {
		row := CvtToSubtaskRow(subtask)
		result, err := tx.NamedExecContext(ctx, genInsertCommand(*row, insertSubtaskFormat, "id"), row)
		if err != nil {
			klog.ErrorS(err, "failed to insert subtask db", "id", subtask.Id, "task", subtask.ParentTaskId)
			return 0, err
		}
		affected, _ := result.RowsAffected()
		inserted += int(affected)
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (c *Client) SelectSubtasks(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*v1.Subtask, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	builder := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).From(TSubtask).Where(query).OrderBy(orderBy...)
	if limit >= 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*Subtask
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
	subtasks := make([]*v1.Subtask, 0, len(rows))
	for _, row := range rows {
		subtask, err := CvtToApiSubtask(row)
		if err != nil {
			klog.ErrorS(err, "skip malformed subtask row", "id", row.SubtaskId)
			continue
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, nil
}

// GetExistingIndexedKeys reports which of the given coordinate keys already
// have a row for the task.
func (c *Client) GetExistingIndexedKeys(ctx context.Context, taskId string, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(keys) == 0 {
		return existing, nil
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf(`SELECT indexed_key FROM %s WHERE task_id = $1 AND indexed_key = ANY($2)`, TSubtask)
	var found []string
	if err = db.SelectContext(ctx, &found, cmd, taskId, pq.Array(keys)); err != nil {
		klog.ErrorS(err, "failed to select indexed keys", "TaskId", taskId)
		return nil, err
	}
	for _, key := range found {
		existing[key] = true
	}
	return existing, nil
}

// CountSubtaskStatuses aggregates the task's subtasks by status in one scan.
func (c *Client) CountSubtaskStatuses(ctx context.Context, taskId string) (*SubtaskStatusCounts, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf(`SELECT status, COUNT(*) AS cnt FROM %s WHERE task_id = $1 GROUP BY status`, TSubtask)
	var rows []struct {
		Status string `db:"status"`
		Cnt    int    `db:"cnt"`
	}
	if err = db.SelectContext(ctx, &rows, cmd, taskId); err != nil {
		klog.ErrorS(err, "failed to count subtask statuses", "TaskId", taskId)
		return nil, err
	}
	counts := &SubtaskStatusCounts{}
	for _, row := range rows {
		counts.Total += row.Cnt
		switch v1.SubtaskStatus(row.Status) {
		case v1.SubtaskPending:
			counts.Pending += row.Cnt
		case v1.SubtaskProcessing:
			counts.Processing += row.Cnt
		case v1.SubtaskCompleted:
			counts.Completed += row.Cnt
		case v1.SubtaskFailed:
			counts.Failed += row.Cnt
		case v1.SubtaskCancelled:
			counts.Cancelled += row.Cnt
		}
	}
	return counts, nil
}

// SetSubtaskProcessing marks a subtask as picked up by a worker. The start
// time is only stamped on the first attempt.
func (c *Client) SetSubtaskProcessing(ctx context.Context, subtaskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', start_time=COALESCE(start_time, $2), update_time=$2 WHERE subtask_id=$1 AND status NOT IN ('%s','%s','%s')`,
		TSubtask, v1.SubtaskProcessing, v1.SubtaskCompleted, v1.SubtaskFailed, v1.SubtaskCancelled)
	if _, err = db.ExecContext(ctx, cmd, subtaskId, now); err != nil {
		klog.ErrorS(err, "failed to update subtask db", "SubtaskId", subtaskId)
		return err
	}
	return nil
}

// IncrementSubtaskRetry bumps retry_count after a failed attempt and records
// the most recent error without finalizing the subtask.
func (c *Client) IncrementSubtaskRetry(ctx context.Context, subtaskId, message string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET retry_count = retry_count + 1, error_message=$2, update_time=$3 WHERE subtask_id=$1`, TSubtask)
	if _, err = db.ExecContext(ctx, cmd, subtaskId, dbutils.NullString(message), now); err != nil {
		klog.ErrorS(err, "failed to bump subtask retry", "SubtaskId", subtaskId)
		return err
	}
	return nil
}

func (c *Client) SetSubtaskFailed(ctx context.Context, subtaskId, message string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', error_message=$2, end_time=$3, update_time=$3 WHERE subtask_id=$1 AND status NOT IN ('%s','%s')`,
		TSubtask, v1.SubtaskFailed, v1.SubtaskCompleted, v1.SubtaskCancelled)
	if _, err = db.ExecContext(ctx, cmd, subtaskId, dbutils.NullString(message), now); err != nil {
		klog.ErrorS(err, "failed to update subtask db", "SubtaskId", subtaskId)
		return err
	}
	return nil
}

func (c *Client) SetSubtaskCancelled(ctx context.Context, subtaskId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', end_time=$2, update_time=$2 WHERE subtask_id=$1 AND status NOT IN ('%s','%s')`,
		TSubtask, v1.SubtaskCancelled, v1.SubtaskCompleted, v1.SubtaskFailed)
	if _, err = db.ExecContext(ctx, cmd, subtaskId, now); err != nil {
		klog.ErrorS(err, "failed to cancel subtask db", "SubtaskId", subtaskId)
		return err
	}
	return nil
}

// SetSubtaskResult stores the generated image and completes the subtask.
func (c *Client) SetSubtaskResult(ctx context.Context, subtaskId string, result *v1.SubtaskResult) error {
	if result == nil {
		return commonerrors.NewBadRequest("subtask result must not be empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	body := jsonutils.MarshalSilently(result)
	now := dbutils.NullTime(time.Now().UTC())
	cmd := fmt.Sprintf(`UPDATE %s SET status='%s', result=$2, error_message=NULL, end_time=$3, update_time=$3 WHERE subtask_id=$1 AND status NOT IN ('%s','%s')`,
		TSubtask, v1.SubtaskCompleted, v1.SubtaskFailed, v1.SubtaskCancelled)
	if _, err = db.ExecContext(ctx, cmd, subtaskId, body, now); err != nil {
		klog.ErrorS(err, "failed to store subtask result", "SubtaskId", subtaskId)
		return err
	}
	return nil
}

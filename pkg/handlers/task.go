/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"k8s.io/klog/v2"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/engine"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
	"github.com/talesofai/nietest/pkg/handlers/types"
	"github.com/talesofai/nietest/pkg/utils/timeutil"
)

func (h *Handler) CreateTask(c *gin.Context) {
	handle(c, h.createTask)
}

func (h *Handler) ListTask(c *gin.Context) {
	handle(c, h.listTask)
}

func (h *Handler) GetTask(c *gin.Context) {
	handle(c, h.getTask)
}

func (h *Handler) CancelTask(c *gin.Context) {
	handle(c, h.cancelTask)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	handle(c, h.deleteTask)
}

func (h *Handler) ListSubtask(c *gin.Context) {
	handle(c, h.listSubtask)
}

func (h *Handler) createTask(c *gin.Context) (interface{}, error) {
	var req types.CreateTaskRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	task := &v1.Task{
		Name:      req.Name,
		Owner:     req.Owner,
		Tags:      req.Tags,
		Variables: req.Variables,
		Settings:  req.Settings,
		Priority:  req.Priority,
	}
	task, err := h.engine.CreateTask(c.Request.Context(), task)
	if err != nil {
		klog.ErrorS(err, "failed to create task", "name", req.Name, "owner", req.Owner)
		return nil, err
	}
	klog.Infof("create task: %s, owner: %s, total images: %d", task.Id, task.Owner, task.TotalImages)
	return &types.CreateTaskResponse{
		TaskId:      task.Id,
		TotalImages: task.TotalImages,
		Status:      string(task.Status),
	}, nil
}

func (h *Handler) listTask(c *gin.Context) (interface{}, error) {
	var query types.ListTaskQuery
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if query.Order == "" {
		query.Order = dbclient.DESC
	}
	since, err := timeutil.CvtStrToRFC3339Milli(query.Since)
	if err != nil {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("malformed since: %v", err))
	}
	until, err := timeutil.CvtStrToRFC3339Milli(query.Until)
	if err != nil {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("malformed until: %v", err))
	}
	filter := &engine.ListFilter{
		Owner:  query.Owner,
		Status: v1.TaskStatus(query.Status),
		Since:  since,
		Until:  until,
	}
	tasks, count, err := h.engine.ListTasks(c.Request.Context(),
		filter, query.SortBy, query.Order, query.Limit, query.Offset)
	if err != nil {
		return nil, err
	}
	result := &types.ListTaskResponse{TotalCount: count}
	for _, task := range tasks {
		result.Items = append(result.Items, cvtToTaskResponseItem(task))
	}
	return result, nil
}

func (h *Handler) getTask(c *gin.Context) (interface{}, error) {
	task, err := h.engine.GetTask(c.Request.Context(), c.Param(TaskId))
	if err != nil {
		return nil, err
	}
	return &types.GetTaskResponse{
		TaskResponseItem: *cvtToTaskResponseItem(task),
		Tags:             task.Tags,
		Variables:        task.Variables,
		Settings:         task.Settings,
	}, nil
}

func (h *Handler) cancelTask(c *gin.Context) (interface{}, error) {
	taskId := c.Param(TaskId)
	if err := h.engine.CancelTask(c.Request.Context(), taskId); err != nil {
		return nil, err
	}
	klog.Infof("cancel task: %s", taskId)
	return gin.H{"task_id": taskId, "status": string(v1.TaskCancelled)}, nil
}

func (h *Handler) deleteTask(c *gin.Context) (interface{}, error) {
	taskId := c.Param(TaskId)
	if err := h.engine.DeleteTask(c.Request.Context(), taskId); err != nil {
		return nil, err
	}
	klog.Infof("delete task: %s", taskId)
	return gin.H{"task_id": taskId}, nil
}

func (h *Handler) listSubtask(c *gin.Context) (interface{}, error) {
	var query types.ListSubtaskQuery
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	subtasks, err := h.engine.GetSubtasks(c.Request.Context(), c.Param(TaskId), v1.SubtaskStatus(query.Status))
	if err != nil {
		return nil, err
	}
	result := &types.ListSubtaskResponse{TotalCount: len(subtasks)}
	for _, subtask := range subtasks {
		result.Items = append(result.Items, cvtToSubtaskResponseItem(subtask))
	}
	return result, nil
}

func cvtToTaskResponseItem(task *v1.Task) *types.TaskResponseItem {
	createdAt := task.CreatedAt
	return &types.TaskResponseItem{
		TaskId:          task.Id,
		Name:            task.Name,
		Owner:           task.Owner,
		Status:          string(task.Status),
		Priority:        task.Priority,
		TotalImages:     task.TotalImages,
		ProcessedImages: task.ProcessedImages,
		Progress:        task.Progress,
		Error:           task.Error,
		CreateTime:      timeutil.FormatRFC3339(&createdAt),
		StartTime:       timeutil.FormatRFC3339(task.StartedAt),
		EndTime:         timeutil.FormatRFC3339(task.CompletedAt),
	}
}

func cvtToSubtaskResponseItem(subtask *v1.Subtask) *types.SubtaskResponseItem {
	createdAt := subtask.CreatedAt
	return &types.SubtaskResponseItem{
		SubtaskId:  subtask.Id,
		IndexedKey: subtask.IndexedKey(),
		Queue:      subtask.Queue,
		Status:     string(subtask.Status),
		RetryCount: subtask.RetryCount,
		Error:      subtask.Error,
		Result:     subtask.Result,
		CreateTime: timeutil.FormatRFC3339(&createdAt),
		StartTime:  timeutil.FormatRFC3339(subtask.StartedAt),
		EndTime:    timeutil.FormatRFC3339(subtask.CompletedAt),
	}
}

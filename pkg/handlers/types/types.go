/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package types

import (
	v1 "github.com/talesofai/nietest/pkg/apis/v1"
)

type CreateTaskRequest struct {
	Name      string                 `json:"name" binding:"required"`
	Owner     string                 `json:"owner" binding:"required"`
	Tags      []v1.Tag               `json:"tags" binding:"required"`
	Variables map[string]v1.Variable `json:"variables"`
	Settings  v1.TaskSettings        `json:"settings"`
	Priority  int                    `json:"priority"`
}

type CreateTaskResponse struct {
	TaskId      string `json:"task_id"`
	TotalImages int    `json:"total_images"`
	Status      string `json:"status"`
}

type ListTaskQuery struct {
	Owner  string `form:"owner"`
	Status string `form:"status"`
	Since  string `form:"since"`
	Until  string `form:"until"`
	SortBy string `form:"sort_by"`
	Order  string `form:"order"`
	Limit  int    `form:"limit,default=20"`
	Offset int    `form:"offset,default=0"`
}

type ListTaskResponse struct {
	TotalCount int                 `json:"totalCount"`
	Items      []*TaskResponseItem `json:"items"`
}

type TaskResponseItem struct {
	TaskId          string `json:"task_id"`
	Name            string `json:"name"`
	Owner           string `json:"owner"`
	Status          string `json:"status"`
	Priority        int    `json:"priority"`
	TotalImages     int    `json:"total_images"`
	ProcessedImages int    `json:"processed_images"`
	Progress        int    `json:"progress"`
	Error           string `json:"error,omitempty"`
	CreateTime      string `json:"createTime,omitempty"`
	StartTime       string `json:"startTime,omitempty"`
	EndTime         string `json:"endTime,omitempty"`
}

type GetTaskResponse struct {
	TaskResponseItem
	Tags      []v1.Tag               `json:"tags,omitempty"`
	Variables map[string]v1.Variable `json:"variables,omitempty"`
	Settings  v1.TaskSettings        `json:"settings"`
}

type ListSubtaskQuery struct {
	Status string `form:"status"`
}

type ListSubtaskResponse struct {
	TotalCount int                    `json:"totalCount"`
	Items      []*SubtaskResponseItem `json:"items"`
}

type SubtaskResponseItem struct {
	SubtaskId  string            `json:"subtask_id"`
	IndexedKey string            `json:"indexed_key"`
	Queue      string            `json:"make_api_queue"`
	Status     string            `json:"status"`
	RetryCount int               `json:"retry_count"`
	Error      string            `json:"error,omitempty"`
	Result     *v1.SubtaskResult `json:"result,omitempty"`
	CreateTime string            `json:"createTime,omitempty"`
	StartTime  string            `json:"startTime,omitempty"`
	EndTime    string            `json:"endTime,omitempty"`
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"time"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
)

// Task lifecycle events delivered to the configured channels.
const (
	EventTaskSubmitted        = "task_submitted"
	EventTaskCompleted        = "task_completed"
	EventTaskPartialCompleted = "task_partial_completed"
	EventTaskFailed           = "task_failed"
)

// Message is one outbound notification payload.
type Message struct {
	Event          string  `json:"event"`
	TaskId         string  `json:"task_id"`
	TaskName       string  `json:"task_name"`
	Owner          string  `json:"owner"`
	TotalImages    int     `json:"total_images"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// NewMessage builds the payload for a task event. counts may be nil for
// submission events.
func NewMessage(event string, task *v1.Task, counts *dbclient.SubtaskStatusCounts) *Message {
	message := &Message{
		Event:       event,
		TaskId:      task.Id,
		TaskName:    task.Name,
		Owner:       task.Owner,
		TotalImages: task.TotalImages,
	}
	if counts != nil {
		message.Completed = counts.Completed
		message.Failed = counts.Failed
	}
	if task.StartedAt != nil {
		message.ElapsedSeconds = time.Since(*task.StartedAt).Seconds()
	}
	return message
}

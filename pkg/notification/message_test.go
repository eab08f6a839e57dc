/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"testing"
	"time"

	"gotest.tools/assert"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
)

func TestNewMessage(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	task := &v1.Task{
		Id:          "task-1",
		Name:        "grid",
		Owner:       "alice",
		TotalImages: 6,
		StartedAt:   &started,
	}
	counts := &dbclient.SubtaskStatusCounts{Total: 6, Completed: 5, Failed: 1}

	message := NewMessage(EventTaskPartialCompleted, task, counts)
	assert.Equal(t, EventTaskPartialCompleted, message.Event)
	assert.Equal(t, "task-1", message.TaskId)
	assert.Equal(t, "alice", message.Owner)
	assert.Equal(t, 6, message.TotalImages)
	assert.Equal(t, 5, message.Completed)
	assert.Equal(t, 1, message.Failed)
	assert.Assert(t, message.ElapsedSeconds >= 90)
}

func TestNewMessageSubmission(t *testing.T) {
	task := &v1.Task{Id: "task-1", Name: "grid", Owner: "alice", TotalImages: 6}
	message := NewMessage(EventTaskSubmitted, task, nil)
	assert.Equal(t, 0, message.Completed)
	assert.Equal(t, 0, message.Failed)
	assert.Equal(t, float64(0), message.ElapsedSeconds)
}

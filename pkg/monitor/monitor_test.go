/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/notification"
)

type fakeMonitorStore struct {
	mu     sync.Mutex
	task   *v1.Task
	counts *dbclient.SubtaskStatusCounts

	finishedStatus    v1.TaskStatus
	finishedProcessed int
	finishedProgress  int
	finishCalls       int
}

func (s *fakeMonitorStore) GetTask(_ context.Context, _ string) (*v1.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.task
	return &copied, nil
}

func (s *fakeMonitorStore) CountSubtaskStatuses(_ context.Context, _ string) (*dbclient.SubtaskStatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.counts
	return &copied, nil
}

func (s *fakeMonitorStore) SetTaskFinished(_ context.Context, _ string, status v1.TaskStatus, processed, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishedStatus = status
	s.finishedProcessed = processed
	s.finishedProgress = progress
	s.finishCalls++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*notification.Message
	notified chan struct{}
}

func (n *fakeNotifier) Notify(_ context.Context, message *notification.Message) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
	if n.notified != nil {
		n.notified <- struct{}{}
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name   string
		counts dbclient.SubtaskStatusCounts
		status v1.TaskStatus
		event  string
	}{
		{"all completed", dbclient.SubtaskStatusCounts{Total: 4, Completed: 4},
			v1.TaskCompleted, notification.EventTaskCompleted},
		{"all failed", dbclient.SubtaskStatusCounts{Total: 4, Failed: 4},
			v1.TaskFailed, notification.EventTaskFailed},
		{"mixed", dbclient.SubtaskStatusCounts{Total: 4, Completed: 3, Failed: 1},
			v1.TaskCompleted, notification.EventTaskPartialCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, event := Finalize(&tt.counts)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.event, event)
		})
	}
}

func TestObserveNotDoneYet(t *testing.T) {
	store := &fakeMonitorStore{
		task:   &v1.Task{Id: "task-1", Status: v1.TaskProcessing, TotalImages: 4},
		counts: &dbclient.SubtaskStatusCounts{Total: 4, Completed: 2, Processing: 2},
	}
	m := New(store, nil, time.Second)
	assert.Assert(t, !m.observe(context.Background(), "task-1"))
	assert.Equal(t, 0, store.finishCalls)
}

func TestObservePartialCompletion(t *testing.T) {
	notifier := &fakeNotifier{notified: make(chan struct{}, 1)}
	started := time.Now().Add(-time.Minute)
	store := &fakeMonitorStore{
		task: &v1.Task{
			Id: "task-1", Name: "grid", Owner: "alice",
			Status: v1.TaskProcessing, TotalImages: 4, StartedAt: &started,
		},
		counts: &dbclient.SubtaskStatusCounts{Total: 4, Completed: 3, Failed: 1},
	}
	m := New(store, notifier, time.Second)
	assert.Assert(t, m.observe(context.Background(), "task-1"))
	assert.Equal(t, v1.TaskCompleted, store.finishedStatus)
	assert.Equal(t, 4, store.finishedProcessed)
	assert.Equal(t, 100, store.finishedProgress)

	select {
	case <-notifier.notified:
	case <-time.After(time.Second):
		t.Fatal("notification not emitted")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, 1, len(notifier.messages))
	assert.Equal(t, notification.EventTaskPartialCompleted, notifier.messages[0].Event)
	assert.Equal(t, 3, notifier.messages[0].Completed)
	assert.Equal(t, 1, notifier.messages[0].Failed)
}

func TestObserveCancelledTask(t *testing.T) {
	store := &fakeMonitorStore{
		task:   &v1.Task{Id: "task-1", Status: v1.TaskCancelled},
		counts: &dbclient.SubtaskStatusCounts{},
	}
	m := New(store, nil, time.Second)
	assert.Assert(t, m.observe(context.Background(), "task-1"))
	assert.Equal(t, 0, store.finishCalls)
}

func TestWatchStopsOnCompletion(t *testing.T) {
	store := &fakeMonitorStore{
		task:   &v1.Task{Id: "task-1", Status: v1.TaskProcessing, TotalImages: 2},
		counts: &dbclient.SubtaskStatusCounts{Total: 2, Completed: 2},
	}
	m := New(store, nil, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Watch(context.Background(), "task-1")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after completion")
	}
	assert.Equal(t, 1, store.finishCalls)
}

func TestManagerDedupesWatches(t *testing.T) {
	store := &fakeMonitorStore{
		task:   &v1.Task{Id: "task-1", Status: v1.TaskProcessing},
		counts: &dbclient.SubtaskStatusCounts{Total: 1, Processing: 1},
	}
	manager := NewManager(New(store, nil, time.Hour))
	manager.StartWatch("task-1")
	manager.StartWatch("task-1")

	manager.mu.Lock()
	assert.Equal(t, 1, len(manager.watches))
	manager.mu.Unlock()
	manager.StopAll()
}

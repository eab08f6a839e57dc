/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	"github.com/talesofai/nietest/pkg/imageapi"
	"github.com/talesofai/nietest/pkg/pool"
)

type fakeStore struct {
	mu sync.Mutex

	retryCounts      map[string]int
	failed           map[string]string
	cancelled        map[string]bool
	results          map[string]*v1.SubtaskResult
	processedByTask  map[string]int
	cancelledTasks   map[string]bool
	processingMarked map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		retryCounts:      make(map[string]int),
		failed:           make(map[string]string),
		cancelled:        make(map[string]bool),
		results:          make(map[string]*v1.SubtaskResult),
		processedByTask:  make(map[string]int),
		cancelledTasks:   make(map[string]bool),
		processingMarked: make(map[string]int),
	}
}

func (s *fakeStore) SetSubtaskProcessing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processingMarked[id]++
	return nil
}

func (s *fakeStore) IncrementSubtaskRetry(_ context.Context, id, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCounts[id]++
	return nil
}

func (s *fakeStore) SetSubtaskFailed(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = message
	return nil
}

func (s *fakeStore) SetSubtaskCancelled(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled[id] = true
	return nil
}

func (s *fakeStore) SetSubtaskResult(_ context.Context, id string, result *v1.SubtaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = result
	return nil
}

func (s *fakeStore) IncrementTaskProcessed(_ context.Context, taskId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processedByTask[taskId]++
	return nil
}

func (s *fakeStore) IsTaskCancelled(_ context.Context, taskId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelledTasks[taskId], nil
}

// scriptedGenerator returns the queued errors in order, then succeeds.
type scriptedGenerator struct {
	mu       sync.Mutex
	failures []error
	calls    int
}

func (g *scriptedGenerator) Generate(_ context.Context, spec *imageapi.GenerateSpec) (*imageapi.GenerateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		return nil, err
	}
	return &imageapi.GenerateResult{Url: "http://cdn/img.png", Width: 1024, Height: 1024, Seed: spec.Seed}, nil
}

func genSubtask(id, taskId string) *v1.Subtask {
	return &v1.Subtask{
		Id:           id,
		ParentTaskId: taskId,
		Coordinate:   v1.NewCoordinate(),
		Prompts:      []v1.PromptItem{{Type: v1.PromptFreetext, Value: "1girl", Weight: 1}},
		Ratio:        "1:1",
		Queue:        v1.QueueProd,
		Status:       v1.SubtaskPending,
	}
}

func newTestDispatcher(store Store, gen imageapi.Interface) (*Dispatcher, *pool.Pool, *pool.Pool) {
	defPool := pool.New("default-test", 5)
	luminaPool := pool.New("lumina-test", 5)
	d := New(store, gen, defPool, luminaPool)
	d.sleepFunc = func(context.Context, time.Duration) error { return nil }
	return d, defPool, luminaPool
}

func TestExecuteTimeoutRetriesThenSuccess(t *testing.T) {
	store := newFakeStore()
	timeout := &imageapi.Error{Kind: imageapi.KindTimeout, Message: "timeout"}
	gen := &scriptedGenerator{failures: []error{timeout, timeout, timeout, timeout}}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	subtask := genSubtask("sub-1", "task-1")
	assert.NilError(t, d.execute(context.Background(), subtask))

	assert.Equal(t, 5, gen.calls)
	assert.Equal(t, 4, store.retryCounts["sub-1"])
	assert.Assert(t, store.results["sub-1"] != nil)
	_, isFailed := store.failed["sub-1"]
	assert.Assert(t, !isFailed)
	assert.Equal(t, 1, store.processedByTask["task-1"])
}

func TestExecuteTimeoutExhaustion(t *testing.T) {
	store := newFakeStore()
	timeout := &imageapi.Error{Kind: imageapi.KindTimeout, Message: "timeout"}
	gen := &scriptedGenerator{failures: []error{timeout, timeout, timeout, timeout, timeout, timeout}}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	subtask := genSubtask("sub-1", "task-1")
	assert.NilError(t, d.execute(context.Background(), subtask))

	assert.Equal(t, 5, gen.calls)
	assert.Equal(t, 5, store.retryCounts["sub-1"])
	_, isFailed := store.failed["sub-1"]
	assert.Assert(t, isFailed)
	assert.Equal(t, 1, store.processedByTask["task-1"])
}

func TestExecuteIllegalContentFailsImmediately(t *testing.T) {
	store := newFakeStore()
	illegal := &imageapi.Error{Kind: imageapi.KindIllegalContent, Message: "451"}
	gen := &scriptedGenerator{failures: []error{illegal}}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	subtask := genSubtask("sub-1", "task-1")
	assert.NilError(t, d.execute(context.Background(), subtask))

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, store.retryCounts["sub-1"])
	_, isFailed := store.failed["sub-1"]
	assert.Assert(t, isFailed)
	assert.Equal(t, 1, store.processedByTask["task-1"])
}

func TestExecuteGenericRetryBound(t *testing.T) {
	store := newFakeStore()
	failure := &imageapi.Error{Kind: imageapi.KindFailure, Message: "FAILURE"}
	gen := &scriptedGenerator{failures: []error{failure, failure, failure}}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	subtask := genSubtask("sub-1", "task-1")
	assert.NilError(t, d.execute(context.Background(), subtask))

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, store.retryCounts["sub-1"])
	_, isFailed := store.failed["sub-1"]
	assert.Assert(t, isFailed)
}

func TestExecuteCancelledTask(t *testing.T) {
	store := newFakeStore()
	store.cancelledTasks["task-1"] = true
	gen := &scriptedGenerator{}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	subtask := genSubtask("sub-1", "task-1")
	assert.NilError(t, d.execute(context.Background(), subtask))

	assert.Equal(t, 0, gen.calls)
	assert.Assert(t, store.cancelled["sub-1"])
	assert.Equal(t, 0, store.processedByTask["task-1"])
}

func TestIsLuminaRouting(t *testing.T) {
	tests := []struct {
		name   string
		prompt v1.PromptItem
		lumina bool
	}{
		{"plain freetext", v1.PromptItem{Type: v1.PromptFreetext, Value: "1girl"}, false},
		{"lumina lowercase", v1.PromptItem{Type: v1.PromptCharacter, Name: "lumina-chan"}, true},
		{"lumina mixed case", v1.PromptItem{Type: v1.PromptCharacter, Name: "LuMiNa v2"}, true},
		{"substring", v1.PromptItem{Type: v1.PromptCharacter, Name: "illuminated"}, true},
		{"other name", v1.PromptItem{Type: v1.PromptCharacter, Name: "alice"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtask := genSubtask("sub-1", "task-1")
			subtask.Prompts = append(subtask.Prompts, tt.prompt)
			assert.Equal(t, tt.lumina, IsLumina(subtask))
		})
	}
}

func TestSubmitTaskRunsSubtasks(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGenerator{}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	task := &v1.Task{Id: "task-1", Name: "t"}
	var subtasks []*v1.Subtask
	for i := 0; i < 4; i++ {
		subtasks = append(subtasks, genSubtask(v1.NewSubtaskId(), task.Id))
	}
	d.SubmitTask(task, subtasks)

	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		done := store.processedByTask["task-1"] == 4
		store.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("subtasks did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 4, len(store.results))
}

func TestSubmitTaskRaisesConcurrency(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGenerator{}
	d, defPool, luminaPool := newTestDispatcher(store, gen)
	defer defPool.Close()
	defer luminaPool.Close()

	task := &v1.Task{Id: "task-1", Settings: v1.TaskSettings{Concurrency: 30}}
	d.SubmitTask(task, nil)
	assert.Equal(t, 30, defPool.Stats().Limit)

	// a lower setting never shrinks the pool
	task2 := &v1.Task{Id: "task-2", Settings: v1.TaskSettings{Concurrency: 5}}
	d.SubmitTask(task2, nil)
	assert.Equal(t, 30, defPool.Stats().Limit)
}

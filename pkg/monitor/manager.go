/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package monitor

import (
	"context"
	"sync"

	"k8s.io/klog/v2"
)

// Manager tracks one running watch per active task so a cancel or shutdown
// can stop it.
type Manager struct {
	monitor *Monitor

	mu      sync.Mutex
	watches map[string]context.CancelFunc
}

func NewManager(monitor *Monitor) *Manager {
	return &Manager{
		monitor: monitor,
		watches: make(map[string]context.CancelFunc),
	}
}

// StartWatch spawns a watch goroutine for the task. A second call for the
// same task is a no-op while the first watch is alive.
func (m *Manager) StartWatch(taskId string) {
	m.mu.Lock()
	if _, ok := m.watches[taskId]; ok {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watches[taskId] = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.watches, taskId)
			m.mu.Unlock()
		}()
		m.monitor.Watch(ctx, taskId)
	}()
	klog.Infof("monitor started for task %s", taskId)
}

// StopWatch cancels the task's watch if one is running.
func (m *Manager) StopWatch(taskId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.watches[taskId]; ok {
		cancel()
		delete(m.watches, taskId)
	}
}

// StopAll cancels every running watch; used at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for taskId, cancel := range m.watches {
		cancel()
		delete(m.watches, taskId)
	}
}

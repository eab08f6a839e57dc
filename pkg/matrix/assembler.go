/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package matrix

import (
	"time"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
)

// Matrix is the assembled result view of a task: one image URL per
// coordinate of the Cartesian product, keyed by the canonical indexed key.
type Matrix struct {
	TaskId    string                 `json:"task_id"`
	TaskName  string                 `json:"task_name"`
	CreatedAt time.Time              `json:"created_at"`
	Variables map[string]v1.Variable `json:"variables,omitempty"`
	// CoordinatesByIndices maps "c0,c1,c2,c3,c4,c5" to the image URL.
	CoordinatesByIndices map[string]string `json:"coordinates_by_indices"`
}

// Assemble builds the matrix from a task's completed subtasks. Random-seed
// cells may legitimately share a coordinate; the freshest result wins, with
// the lexicographically larger subtask id as tie-breaker.
func Assemble(task *v1.Task, subtasks []*v1.Subtask) *Matrix {
	cells := make(map[string]string)
	winners := make(map[string]*v1.Subtask)
	for _, subtask := range subtasks {
		if subtask.Status != v1.SubtaskCompleted || subtask.Result == nil || subtask.Result.Url == "" {
			continue
		}
		key := subtask.IndexedKey()
		if current, ok := winners[key]; ok && !supersedes(subtask, current) {
			continue
		}
		winners[key] = subtask
		cells[key] = subtask.Result.Url
	}
	return &Matrix{
		TaskId:               task.Id,
		TaskName:             task.Name,
		CreatedAt:            task.CreatedAt,
		Variables:            task.Variables,
		CoordinatesByIndices: cells,
	}
}

func supersedes(candidate, current *v1.Subtask) bool {
	if candidate.UpdatedAt.After(current.UpdatedAt) {
		return true
	}
	if current.UpdatedAt.After(candidate.UpdatedAt) {
		return false
	}
	return candidate.Id > current.Id
}

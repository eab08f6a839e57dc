/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"fmt"
	"sort"
	"time"
)

// Tag is one parameter entry of a task. Non-variable tags carry a literal
// value; variable tags reference a variable slot by name.
type Tag struct {
	Id         string   `json:"id"`
	Type       TagType  `json:"type"`
	Value      string   `json:"value"`
	IsVariable bool     `json:"is_variable"`
	Name       string   `json:"name,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

// VariableValue is one value-record of a variable. Character and element
// variables additionally carry the preset uuid and header image.
type VariableValue struct {
	Id        string `json:"id,omitempty"`
	Value     string `json:"value"`
	Uuid      string `json:"uuid,omitempty"`
	HeaderImg string `json:"header_img,omitempty"`
}

// Variable is one indexed slot vK with its ordered value list.
type Variable struct {
	Name        string          `json:"name"`
	TagId       string          `json:"tag_id"`
	Values      []VariableValue `json:"values"`
	ValuesCount int             `json:"values_count"`
}

// ClientArgs bundles optional generation hyperparameters.
type ClientArgs struct {
	CkptName string  `json:"ckpt_name,omitempty"`
	Steps    int     `json:"steps,omitempty"`
	Cfg      float64 `json:"cfg,omitempty"`
}

type TaskSettings struct {
	// Concurrency raises the default pool limit when the task is dispatched.
	Concurrency int         `json:"concurrency,omitempty"`
	ClientArgs  *ClientArgs `json:"client_args,omitempty"`
	// Queue selects the image API queue variant, default "prod".
	Queue string `json:"queue,omitempty"`
}

type Task struct {
	Id        string              `json:"id"`
	Name      string              `json:"name"`
	Owner     string              `json:"owner"`
	Tags      []Tag               `json:"tags"`
	Variables map[string]Variable `json:"variables"`
	Settings  TaskSettings        `json:"settings"`
	Priority  int                 `json:"priority"`
	Status    TaskStatus          `json:"status"`

	TotalImages          int    `json:"total_images"`
	ProcessedImages      int    `json:"processed_images"`
	Progress             int    `json:"progress"`
	AllSubtasksCompleted bool   `json:"all_subtasks_completed"`
	IsDeleted            bool   `json:"is_deleted"`
	Error                string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// VariableSlot renders the canonical slot name for index k, e.g. "v0".
func VariableSlot(k int) string {
	return fmt.Sprintf("v%d", k)
}

// SlotIndex parses a slot name back to its index, or -1 when invalid.
func SlotIndex(slot string) int {
	for k := 0; k < MaxVariables; k++ {
		if slot == VariableSlot(k) {
			return k
		}
	}
	return -1
}

// UsedVariableSlots returns the slot indices with values_count > 0,
// ascending. This is the expansion order of the Cartesian product.
func (t *Task) UsedVariableSlots() []int {
	var slots []int
	for slot, variable := range t.Variables {
		if variable.ValuesCount <= 0 {
			continue
		}
		if k := SlotIndex(slot); k >= 0 {
			slots = append(slots, k)
		}
	}
	sort.Ints(slots)
	return slots
}

// FindTag returns the last non-variable tag of the given type, honoring the
// duplicates-last-wins rule of the task input schema.
func (t *Task) FindTag(tagType TagType) *Tag {
	var found *Tag
	for i := range t.Tags {
		if t.Tags[i].Type == tagType && !t.Tags[i].IsVariable {
			found = &t.Tags[i]
		}
	}
	return found
}

// IsEnd reports whether the task has reached a terminal status.
func (t *Task) IsEnd() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed || t.Status == TaskCancelled
}

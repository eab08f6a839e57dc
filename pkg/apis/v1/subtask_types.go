/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"time"
)

type PromptType string

const (
	PromptFreetext  PromptType = "freetext"
	PromptCharacter PromptType = "oc_vtoken_adaptor"
	PromptElement   PromptType = "elementum"
)

// PromptItem is one entry of a subtask's ordered prompt list. Character and
// element items carry value=uuid plus the display name and header image of
// the chosen preset.
type PromptItem struct {
	Type   PromptType `json:"type"`
	Value  string     `json:"value"`
	Weight float64    `json:"weight"`
	Uuid   string     `json:"uuid,omitempty"`
	Name   string     `json:"name,omitempty"`
	ImgUrl string     `json:"img_url,omitempty"`
}

// SubtaskResult holds the outcome of one completed generation.
type SubtaskResult struct {
	Url       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
}

// Subtask is one image-generation unit corresponding to one coordinate of
// its parent task's result matrix.
type Subtask struct {
	Id           string     `json:"id"`
	ParentTaskId string     `json:"parent_task_id"`
	Coordinate   Coordinate `json:"coordinate"`

	// VariableTypes maps used slots (vK) to their tag type; TypeToVariable
	// is the inverse. Both cover exactly the slots used by the parent.
	VariableTypes  map[string]TagType `json:"variable_types_map,omitempty"`
	TypeToVariable map[TagType]string `json:"type_to_variable,omitempty"`

	Prompts    []PromptItem `json:"prompts"`
	Ratio      string       `json:"ratio"`
	Seed       int64        `json:"seed"`
	UsePolish  bool         `json:"use_polish"`
	ClientArgs *ClientArgs  `json:"client_args,omitempty"`
	// Queue is the make_api_queue field selecting the image API variant.
	Queue string `json:"make_api_queue"`

	Status     SubtaskStatus  `json:"status"`
	RetryCount int            `json:"retry_count"`
	Error      string         `json:"error,omitempty"`
	Result     *SubtaskResult `json:"result,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsEnd reports whether the subtask has reached a terminal status. A
// subtask never transitions out of a terminal status.
func (s *Subtask) IsEnd() bool {
	return s.Status == SubtaskCompleted || s.Status == SubtaskFailed || s.Status == SubtaskCancelled
}

// IndexedKey is the canonical string form of the subtask's coordinate.
func (s *Subtask) IndexedKey() string {
	return s.Coordinate.IndexedKey()
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package v1

// MaxVariables is the number of indexed variable slots (v0..v5) a task may use.
const MaxVariables = 6

const (
	TaskKind    = "Task"
	SubtaskKind = "Subtask"
)

type TagType string

const (
	TagPrompt    TagType = "prompt"
	TagCharacter TagType = "character"
	TagElement   TagType = "element"
	TagRatio     TagType = "ratio"
	TagSeed      TagType = "seed"
	TagPolish    TagType = "polish"
	TagBatch     TagType = "batch"
	TagCkptName  TagType = "ckpt_name"
	TagSteps     TagType = "steps"
	TagCfg       TagType = "cfg"
)

// IsPromptTag reports whether the tag type contributes a prompt item.
func IsPromptTag(t TagType) bool {
	return t == TagPrompt || t == TagCharacter || t == TagElement
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

type SubtaskStatus string

const (
	SubtaskPending    SubtaskStatus = "pending"
	SubtaskProcessing SubtaskStatus = "processing"
	SubtaskCompleted  SubtaskStatus = "completed"
	SubtaskFailed     SubtaskStatus = "failed"
	SubtaskCancelled  SubtaskStatus = "cancelled"
)

// Queue variants of the downstream image API.
const (
	QueueProd = "prod"
	QueueDev  = "dev"
	QueueOps  = "ops"
)

const (
	// DefaultPrompt is inserted when a task yields no prompt items at all.
	DefaultPrompt = "1girl"
	// DefaultRatio is used when a ratio tag has no ":" separator.
	DefaultRatio = "1:1"
	// DefaultWeight applies to prompt items whose tag carries no weight.
	DefaultWeight = 1.0
)

// RandomSeed marks a subtask as server-random and non-deduplicable.
const RandomSeed = 0

const (
	DefaultPriority = 1
	MinConcurrency  = 1
	MaxConcurrency  = 50
	MinSteps        = 1
	MaxSteps        = 50
	MinCfg          = 0.1
	MaxCfg          = 10.0
)

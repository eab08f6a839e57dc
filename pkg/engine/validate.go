/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"fmt"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

var knownTagTypes = map[v1.TagType]bool{
	v1.TagPrompt:    true,
	v1.TagCharacter: true,
	v1.TagElement:   true,
	v1.TagRatio:     true,
	v1.TagSeed:      true,
	v1.TagPolish:    true,
	v1.TagBatch:     true,
	v1.TagCkptName:  true,
	v1.TagSteps:     true,
	v1.TagCfg:       true,
}

// ValidateTask rejects malformed task definitions before anything is
// persisted.
func ValidateTask(task *v1.Task) error {
	if task == nil {
		return commonerrors.NewBadRequest("task must not be empty")
	}
	if task.Name == "" {
		return commonerrors.NewBadRequest("task name is required")
	}
	if task.Owner == "" {
		return commonerrors.NewBadRequest("task owner is required")
	}
	if len(task.Tags) == 0 {
		return commonerrors.NewBadRequest("task needs at least one tag")
	}

	variableNames := make(map[string]bool)
	for slot, variable := range task.Variables {
		if v1.SlotIndex(slot) < 0 {
			return commonerrors.NewBadRequest(fmt.Sprintf("unknown variable slot %q", slot))
		}
		if variable.ValuesCount < 0 {
			return commonerrors.NewBadRequest(fmt.Sprintf("variable %s has negative values_count", slot))
		}
		if len(variable.Values) > 0 && len(variable.Values) != variable.ValuesCount {
			return commonerrors.NewBadRequest(fmt.Sprintf(
				"variable %s declares %d values but carries %d", slot, variable.ValuesCount, len(variable.Values)))
		}
		if variable.ValuesCount > 0 {
			variableNames[variable.Name] = true
		}
	}

	for i := range task.Tags {
		tag := &task.Tags[i]
		if !knownTagTypes[tag.Type] {
			return commonerrors.NewBadRequest(fmt.Sprintf("unknown tag type %q", tag.Type))
		}
		if tag.IsVariable {
			if tag.Name == "" {
				return commonerrors.NewBadRequest("variable tag without a name")
			}
			if !variableNames[tag.Name] {
				return commonerrors.NewUnmatchedVariable(tag.Name)
			}
		}
	}

	return validateSettings(&task.Settings)
}

func validateSettings(settings *v1.TaskSettings) error {
	if settings.Concurrency != 0 &&
		(settings.Concurrency < v1.MinConcurrency || settings.Concurrency > v1.MaxConcurrency) {
		return commonerrors.NewBadRequest(fmt.Sprintf(
			"concurrency must be within [%d, %d]", v1.MinConcurrency, v1.MaxConcurrency))
	}
	switch settings.Queue {
	case "", v1.QueueProd, v1.QueueDev, v1.QueueOps:
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown queue %q", settings.Queue))
	}
	if args := settings.ClientArgs; args != nil {
		if args.Steps != 0 && (args.Steps < v1.MinSteps || args.Steps > v1.MaxSteps) {
			return commonerrors.NewBadRequest(fmt.Sprintf(
				"steps must be within [%d, %d]", v1.MinSteps, v1.MaxSteps))
		}
		if args.Cfg != 0 && (args.Cfg < v1.MinCfg || args.Cfg > v1.MaxCfg) {
			return commonerrors.NewBadRequest(fmt.Sprintf(
				"cfg must be within [%.1f, %.1f]", v1.MinCfg, v1.MaxCfg))
		}
	}
	return nil
}

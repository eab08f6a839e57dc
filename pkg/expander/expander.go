/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package expander

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

// combination is one point of the Cartesian product: chosen value index per
// used slot, plus the batch replica index.
type combination struct {
	indices    map[int]int
	batchIndex int
}

// Expand turns a task into the ordered list of subtask specs covering the
// full Cartesian product of its variables, replicated by the batch factor.
// Expansion is deterministic: the same task always yields the same
// coordinates in the same order.
func Expand(task *v1.Task) ([]*v1.Subtask, error) {
	batch, err := batchSize(task)
	if err != nil {
		return nil, err
	}

	slots := task.UsedVariableSlots()
	if batch > 1 {
		for _, k := range slots {
			if k == v1.MaxVariables-1 {
				return nil, commonerrors.NewInvalidBatch(
					fmt.Sprintf("batch %d needs slot v%d but it is occupied by a variable", batch, v1.MaxVariables-1))
			}
		}
	}

	values := make(map[int][]v1.VariableValue, len(slots))
	nameToSlot := make(map[string]int, len(slots))
	for _, k := range slots {
		variable := task.Variables[v1.VariableSlot(k)]
		values[k] = materializeValues(&variable)
		nameToSlot[variable.Name] = k
	}

	combinations := enumerate(slots, values, batch)
	now := time.Now().UTC()
	subtasks := make([]*v1.Subtask, 0, len(combinations))
	for _, combo := range combinations {
		subtask, err := buildSubtask(task, values, nameToSlot, combo, batch, now)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, nil
}

// TotalImages computes the expected subtask count without expanding:
// batch_size times the product of all non-empty variable value counts.
func TotalImages(task *v1.Task) (int, error) {
	batch, err := batchSize(task)
	if err != nil {
		return 0, err
	}
	total := batch
	for _, k := range task.UsedVariableSlots() {
		total *= task.Variables[v1.VariableSlot(k)].ValuesCount
	}
	return total, nil
}

func batchSize(task *v1.Task) (int, error) {
	tag := task.FindTag(v1.TagBatch)
	if tag == nil || tag.Value == "" {
		return 1, nil
	}
	batch, err := strconv.Atoi(strings.TrimSpace(tag.Value))
	if err != nil {
		return 0, commonerrors.NewInvalidBatch(fmt.Sprintf("batch value %q is not an integer", tag.Value))
	}
	if batch < 1 {
		return 1, nil
	}
	return batch, nil
}

// materializeValues returns the variable's value list, padding with
// placeholder records when values_count promises more than the list holds.
func materializeValues(variable *v1.Variable) []v1.VariableValue {
	values := variable.Values
	for i := len(values); i < variable.ValuesCount; i++ {
		values = append(values, v1.VariableValue{Value: fmt.Sprintf("placeholder_%d", i)})
	}
	if len(values) > variable.ValuesCount {
		values = values[:variable.ValuesCount]
	}
	return values
}

// enumerate walks the Cartesian product with the highest slot varying
// fastest, then replicates each base combination batch times.
func enumerate(slots []int, values map[int][]v1.VariableValue, batch int) []combination {
	base := []map[int]int{{}}
	for _, k := range slots {
		var next []map[int]int
		for _, partial := range base {
			for i := range values[k] {
				combo := make(map[int]int, len(partial)+1)
				for slot, idx := range partial {
					combo[slot] = idx
				}
				combo[k] = i
				next = append(next, combo)
			}
		}
		base = next
	}
	results := make([]combination, 0, len(base)*batch)
	for _, indices := range base {
		for b := 0; b < batch; b++ {
			results = append(results, combination{indices: indices, batchIndex: b})
		}
	}
	return results
}

func buildSubtask(task *v1.Task, values map[int][]v1.VariableValue,
	nameToSlot map[string]int, combo combination, batch int, now time.Time) (*v1.Subtask, error) {
	subtask := &v1.Subtask{
		Id:           v1.NewSubtaskId(),
		ParentTaskId: task.Id,
		Coordinate:   v1.NewCoordinate(),
		Ratio:        v1.DefaultRatio,
		Seed:         v1.RandomSeed,
		Queue:        queueOf(task),
		Status:       v1.SubtaskPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if task.Settings.ClientArgs != nil {
		args := *task.Settings.ClientArgs
		subtask.ClientArgs = &args
	}

	variableTypes := make(map[string]v1.TagType)
	for _, tag := range task.Tags {
		var value string
		var record *v1.VariableValue
		if tag.IsVariable {
			k, ok := nameToSlot[tag.Name]
			if !ok {
				return nil, commonerrors.NewUnmatchedVariable(tag.Name)
			}
			idx := combo.indices[k]
			record = &values[k][idx]
			value = record.Value
			subtask.Coordinate[k] = idx
			variableTypes[v1.VariableSlot(k)] = tag.Type
		} else {
			value = tag.Value
		}
		if err := applyTag(subtask, &tag, value, record); err != nil {
			return nil, err
		}
	}

	if batch > 1 {
		subtask.Coordinate[v1.MaxVariables-1] = combo.batchIndex
	}
	if len(subtask.Prompts) == 0 {
		subtask.Prompts = []v1.PromptItem{{
			Type:   v1.PromptFreetext,
			Value:  v1.DefaultPrompt,
			Weight: v1.DefaultWeight,
		}}
	}
	if len(variableTypes) > 0 {
		subtask.VariableTypes = variableTypes
		subtask.TypeToVariable = make(map[v1.TagType]string, len(variableTypes))
		for slot, tagType := range variableTypes {
			subtask.TypeToVariable[tagType] = slot
		}
	}
	return subtask, nil
}

// applyTag routes one tag's resolved value into the matching subtask bucket.
// Prompt-family tags append items in tag order; scalar tags overwrite, so a
// later duplicate wins.
func applyTag(subtask *v1.Subtask, tag *v1.Tag, value string, record *v1.VariableValue) error {
	switch tag.Type {
	case v1.TagPrompt:
		subtask.Prompts = append(subtask.Prompts, v1.PromptItem{
			Type:   v1.PromptFreetext,
			Value:  value,
			Weight: weightOf(tag),
		})
	case v1.TagCharacter, v1.TagElement:
		item := v1.PromptItem{
			Type:   v1.PromptCharacter,
			Value:  value,
			Uuid:   value,
			Weight: weightOf(tag),
		}
		if tag.Type == v1.TagElement {
			item.Type = v1.PromptElement
		}
		if record != nil {
			item.Uuid = record.Uuid
			item.Value = record.Uuid
			item.Name = record.Value
			item.ImgUrl = record.HeaderImg
		}
		subtask.Prompts = append(subtask.Prompts, item)
	case v1.TagRatio:
		if strings.Contains(value, ":") {
			subtask.Ratio = value
		} else {
			subtask.Ratio = v1.DefaultRatio
		}
	case v1.TagSeed:
		seed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			seed = v1.RandomSeed
		}
		subtask.Seed = seed
	case v1.TagPolish:
		subtask.UsePolish = strings.EqualFold(strings.TrimSpace(value), "true")
	case v1.TagBatch:
		// consumed by batchSize
	case v1.TagCkptName:
		ensureClientArgs(subtask).CkptName = value
	case v1.TagSteps:
		if steps, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			ensureClientArgs(subtask).Steps = steps
		}
	case v1.TagCfg:
		if cfg, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			ensureClientArgs(subtask).Cfg = cfg
		}
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown tag type %q", tag.Type))
	}
	return nil
}

func ensureClientArgs(subtask *v1.Subtask) *v1.ClientArgs {
	if subtask.ClientArgs == nil {
		subtask.ClientArgs = &v1.ClientArgs{}
	}
	return subtask.ClientArgs
}

func weightOf(tag *v1.Tag) float64 {
	if tag.Weight != nil {
		return *tag.Weight
	}
	return v1.DefaultWeight
}

func queueOf(task *v1.Task) string {
	switch task.Settings.Queue {
	case v1.QueueDev, v1.QueueOps:
		return task.Settings.Queue
	default:
		return v1.QueueProd
	}
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package engine

import (
	"testing"

	"gotest.tools/assert"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

func genValidTask() *v1.Task {
	return &v1.Task{
		Name:  "grid",
		Owner: "alice",
		Tags: []v1.Tag{
			{Id: "t-0", Type: v1.TagPrompt, IsVariable: true, Name: "style"},
			{Id: "t-1", Type: v1.TagRatio, Value: "1:1"},
		},
		Variables: map[string]v1.Variable{
			"v0": {
				Name:        "style",
				TagId:       "t-0",
				Values:      []v1.VariableValue{{Value: "oil painting"}, {Value: "sketch"}},
				ValuesCount: 2,
			},
		},
	}
}

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(task *v1.Task)
		errCode string
	}{
		{"valid", func(task *v1.Task) {}, ""},
		{"missing name", func(task *v1.Task) { task.Name = "" }, commonerrors.BadRequest},
		{"missing owner", func(task *v1.Task) { task.Owner = "" }, commonerrors.BadRequest},
		{"no tags", func(task *v1.Task) { task.Tags = nil }, commonerrors.BadRequest},
		{"unknown tag type", func(task *v1.Task) {
			task.Tags[1].Type = "gradient"
		}, commonerrors.BadRequest},
		{"bad variable slot", func(task *v1.Task) {
			task.Variables["v9"] = v1.Variable{Name: "x", ValuesCount: 1, Values: []v1.VariableValue{{Value: "a"}}}
		}, commonerrors.BadRequest},
		{"negative values count", func(task *v1.Task) {
			task.Variables["v1"] = v1.Variable{Name: "x", ValuesCount: -1}
		}, commonerrors.BadRequest},
		{"values count mismatch", func(task *v1.Task) {
			v := task.Variables["v0"]
			v.ValuesCount = 3
			task.Variables["v0"] = v
		}, commonerrors.BadRequest},
		{"variable tag without name", func(task *v1.Task) {
			task.Tags[0].Name = ""
		}, commonerrors.BadRequest},
		{"variable tag without variable", func(task *v1.Task) {
			task.Tags[0].Name = "missing"
		}, commonerrors.UnmatchedVariable},
		{"empty variable ignored for matching", func(task *v1.Task) {
			task.Variables["v1"] = v1.Variable{Name: "unused", ValuesCount: 0}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := genValidTask()
			tt.mutate(task)
			err := ValidateTask(task)
			if tt.errCode == "" {
				assert.NilError(t, err)
			} else {
				assert.Equal(t, tt.errCode, commonerrors.GetErrorCode(err))
			}
		})
	}
}

func TestValidateTaskNil(t *testing.T) {
	err := ValidateTask(nil)
	assert.Assert(t, commonerrors.IsBadRequest(err))
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings v1.TaskSettings
		valid    bool
	}{
		{"defaults", v1.TaskSettings{}, true},
		{"concurrency in range", v1.TaskSettings{Concurrency: 50}, true},
		{"concurrency too high", v1.TaskSettings{Concurrency: 51}, false},
		{"concurrency negative", v1.TaskSettings{Concurrency: -1}, false},
		{"prod queue", v1.TaskSettings{Queue: v1.QueueProd}, true},
		{"dev queue", v1.TaskSettings{Queue: v1.QueueDev}, true},
		{"unknown queue", v1.TaskSettings{Queue: "staging"}, false},
		{"steps in range", v1.TaskSettings{ClientArgs: &v1.ClientArgs{Steps: 30}}, true},
		{"steps too high", v1.TaskSettings{ClientArgs: &v1.ClientArgs{Steps: 51}}, false},
		{"cfg in range", v1.TaskSettings{ClientArgs: &v1.ClientArgs{Cfg: 7.5}}, true},
		{"cfg too low", v1.TaskSettings{ClientArgs: &v1.ClientArgs{Cfg: 0.05}}, false},
		{"cfg too high", v1.TaskSettings{ClientArgs: &v1.ClientArgs{Cfg: 10.5}}, false},
		{"zero args untouched", v1.TaskSettings{ClientArgs: &v1.ClientArgs{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := genValidTask()
			task.Settings = tt.settings
			err := ValidateTask(task)
			if tt.valid {
				assert.NilError(t, err)
			} else {
				assert.Assert(t, commonerrors.IsBadRequest(err))
			}
		})
	}
}

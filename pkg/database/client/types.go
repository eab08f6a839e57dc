/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	dbutils "github.com/talesofai/nietest/pkg/database/utils"
	jsonutils "github.com/talesofai/nietest/pkg/utils/json"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreateTime = "create_time"
)

type Task struct {
	Id                   int64          `db:"id"`
	TaskId               string         `db:"task_id"`
	Name                 string         `db:"name"`
	Owner                string         `db:"owner"`
	Tags                 []byte         `db:"tags"`
	Variables            []byte         `db:"variables"`
	Settings             []byte         `db:"settings"`
	Status               string         `db:"status"`
	Priority             int            `db:"priority"`
	TotalImages          int            `db:"total_images"`
	ProcessedImages      int            `db:"processed_images"`
	Progress             int            `db:"progress"`
	AllSubtasksCompleted bool           `db:"all_subtasks_completed"`
	IsDeleted            bool           `db:"is_deleted"`
	ErrorMessage         sql.NullString `db:"error_message"`
	CreateTime           pq.NullTime    `db:"create_time"`
	UpdateTime           pq.NullTime    `db:"update_time"`
	StartTime            pq.NullTime    `db:"start_time"`
	EndTime              pq.NullTime    `db:"end_time"`
	DeleteTime           pq.NullTime    `db:"delete_time"`
}

// GetTaskFieldTags returns the TaskFieldTags value.
func GetTaskFieldTags() map[string]string {
	t := Task{}
	return getFieldTags(t)
}

type Subtask struct {
	Id             int64          `db:"id"`
	SubtaskId      string         `db:"subtask_id"`
	TaskId         string         `db:"task_id"`
	IndexedKey     string         `db:"indexed_key"`
	VariableTypes  []byte         `db:"variable_types"`
	TypeToVariable []byte         `db:"type_to_variable"`
	Prompts        []byte         `db:"prompts"`
	Ratio          string         `db:"ratio"`
	Seed           int64          `db:"seed"`
	UsePolish      bool           `db:"use_polish"`
	ClientArgs     []byte         `db:"client_args"`
	Queue          string         `db:"queue"`
	Status         string         `db:"status"`
	RetryCount     int            `db:"retry_count"`
	ErrorMessage   sql.NullString `db:"error_message"`
	Result         []byte         `db:"result"`
	CreateTime     pq.NullTime    `db:"create_time"`
	UpdateTime     pq.NullTime    `db:"update_time"`
	StartTime      pq.NullTime    `db:"start_time"`
	EndTime        pq.NullTime    `db:"end_time"`
}

// GetSubtaskFieldTags returns the SubtaskFieldTags value.
func GetSubtaskFieldTags() map[string]string {
	s := Subtask{}
	return getFieldTags(s)
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// GetFieldTag looks up the db column of a struct field by (lowercased) name.
func GetFieldTag(tags map[string]string, field string) string {
	return tags[strings.ToLower(field)]
}

// genInsertCommand generates an INSERT command using reflection.
// Iterates through struct fields and builds column and value lists,
// skipping fields with the specified ignoreTag.
func genInsertCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, ":"+tag)
	}
	return fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
}

// CvtToTaskRow converts the api task into its persisted row form.
func CvtToTaskRow(task *v1.Task) *Task {
	return &Task{
		TaskId:               task.Id,
		Name:                 task.Name,
		Owner:                task.Owner,
		Tags:                 jsonutils.MarshalSilently(task.Tags),
		Variables:            jsonutils.MarshalSilently(task.Variables),
		Settings:             jsonutils.MarshalSilently(task.Settings),
		Status:               string(task.Status),
		Priority:             task.Priority,
		TotalImages:          task.TotalImages,
		ProcessedImages:      task.ProcessedImages,
		Progress:             task.Progress,
		AllSubtasksCompleted: task.AllSubtasksCompleted,
		IsDeleted:            task.IsDeleted,
		ErrorMessage:         dbutils.NullString(task.Error),
		CreateTime:           dbutils.NullTime(task.CreatedAt),
		UpdateTime:           dbutils.NullTime(task.UpdatedAt),
		StartTime:            dbutils.NullTimePtr(task.StartedAt),
		EndTime:              dbutils.NullTimePtr(task.CompletedAt),
	}
}

// CvtToApiTask converts a persisted row back to the api task.
func CvtToApiTask(row *Task) (*v1.Task, error) {
	task := &v1.Task{
		Id:                   row.TaskId,
		Name:                 row.Name,
		Owner:                row.Owner,
		Status:               v1.TaskStatus(row.Status),
		Priority:             row.Priority,
		TotalImages:          row.TotalImages,
		ProcessedImages:      row.ProcessedImages,
		Progress:             row.Progress,
		AllSubtasksCompleted: row.AllSubtasksCompleted,
		IsDeleted:            row.IsDeleted,
		Error:                dbutils.ParseNullString(row.ErrorMessage),
		CreatedAt:            dbutils.ParseNullTime(row.CreateTime),
		UpdatedAt:            dbutils.ParseNullTime(row.UpdateTime),
		StartedAt:            dbutils.ParseNullTimePtr(row.StartTime),
		CompletedAt:          dbutils.ParseNullTimePtr(row.EndTime),
	}
	if len(row.Tags) > 0 {
		if err := jsonutils.UnmarshalWithCheck(row.Tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("task %s has malformed tags: %v", row.TaskId, err)
		}
	}
	if len(row.Variables) > 0 {
		if err := jsonutils.UnmarshalWithCheck(row.Variables, &task.Variables); err != nil {
			return nil, fmt.Errorf("task %s has malformed variables: %v", row.TaskId, err)
		}
	}
	if len(row.Settings) > 0 {
		if err := jsonutils.UnmarshalWithCheck(row.Settings, &task.Settings); err != nil {
			return nil, fmt.Errorf("task %s has malformed settings: %v", row.TaskId, err)
		}
	}
	return task, nil
}

// CvtToSubtaskRow converts the api subtask into its persisted row form.
func CvtToSubtaskRow(subtask *v1.Subtask) *Subtask {
	row := &Subtask{
		SubtaskId:      subtask.Id,
		TaskId:         subtask.ParentTaskId,
		IndexedKey:     subtask.IndexedKey(),
		VariableTypes:  jsonutils.MarshalSilently(subtask.VariableTypes),
		TypeToVariable: jsonutils.MarshalSilently(subtask.TypeToVariable),
		Prompts:        jsonutils.MarshalSilently(subtask.Prompts),
		Ratio:          subtask.Ratio,
		Seed:           subtask.Seed,
		UsePolish:      subtask.UsePolish,
		Queue:          subtask.Queue,
		Status:         string(subtask.Status),
		RetryCount:     subtask.RetryCount,
		ErrorMessage:   dbutils.NullString(subtask.Error),
		CreateTime:     dbutils.NullTime(subtask.CreatedAt),
		UpdateTime:     dbutils.NullTime(subtask.UpdatedAt),
		StartTime:      dbutils.NullTimePtr(subtask.StartedAt),
		EndTime:        dbutils.NullTimePtr(subtask.CompletedAt),
	}
	if subtask.ClientArgs != nil {
		row.ClientArgs = jsonutils.MarshalSilently(subtask.ClientArgs)
	}
	if subtask.Result != nil {
		row.Result = jsonutils.MarshalSilently(subtask.Result)
	}
	return row
}

// CvtToApiSubtask converts a persisted row back to the api subtask.
func CvtToApiSubtask(row *Subtask) (*v1.Subtask, error) {
	coordinate, err := v1.ParseIndexedKey(row.IndexedKey)
	if err != nil {
		return nil, fmt.Errorf("subtask %s: %v", row.SubtaskId, err)
	}
	subtask := &v1.Subtask{
		Id:           row.SubtaskId,
		ParentTaskId: row.TaskId,
		Coordinate:   coordinate,
		Ratio:        row.Ratio,
		Seed:         row.Seed,
		UsePolish:    row.UsePolish,
		Queue:        row.Queue,
		Status:       v1.SubtaskStatus(row.Status),
		RetryCount:   row.RetryCount,
		Error:        dbutils.ParseNullString(row.ErrorMessage),
		CreatedAt:    dbutils.ParseNullTime(row.CreateTime),
		UpdatedAt:    dbutils.ParseNullTime(row.UpdateTime),
		StartedAt:    dbutils.ParseNullTimePtr(row.StartTime),
		CompletedAt:  dbutils.ParseNullTimePtr(row.EndTime),
	}
	if len(row.VariableTypes) > 0 {
		if err = jsonutils.UnmarshalWithCheck(row.VariableTypes, &subtask.VariableTypes); err != nil {
			return nil, fmt.Errorf("subtask %s has malformed variable types: %v", row.SubtaskId, err)
		}
	}
	if len(row.TypeToVariable) > 0 {
		if err = jsonutils.UnmarshalWithCheck(row.TypeToVariable, &subtask.TypeToVariable); err != nil {
			return nil, fmt.Errorf("subtask %s has malformed type map: %v", row.SubtaskId, err)
		}
	}
	if len(row.Prompts) > 0 {
		if err = jsonutils.UnmarshalWithCheck(row.Prompts, &subtask.Prompts); err != nil {
			return nil, fmt.Errorf("subtask %s has malformed prompts: %v", row.SubtaskId, err)
		}
	}
	if len(row.ClientArgs) > 0 {
		subtask.ClientArgs = &v1.ClientArgs{}
		if err = jsonutils.UnmarshalWithCheck(row.ClientArgs, subtask.ClientArgs); err != nil {
			return nil, fmt.Errorf("subtask %s has malformed client args: %v", row.SubtaskId, err)
		}
	}
	if len(row.Result) > 0 {
		subtask.Result = &v1.SubtaskResult{}
		if err = jsonutils.UnmarshalWithCheck(row.Result, subtask.Result); err != nil {
			return nil, fmt.Errorf("subtask %s has malformed result: %v", row.SubtaskId, err)
		}
	}
	return subtask, nil
}

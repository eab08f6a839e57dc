/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"gotest.tools/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *ApiError
		httpCode int
		code     string
	}{
		{"bad request", NewBadRequest("boom"), http.StatusBadRequest, BadRequest},
		{"internal", NewInternalError("boom"), http.StatusInternalServerError, InternalError},
		{"forbidden", NewForbidden("boom"), http.StatusForbidden, Forbidden},
		{"already exist", NewAlreadyExist("boom"), http.StatusConflict, AlreadyExist},
		{"not found", NewNotFound("task", "t-1"), http.StatusNotFound, NotFound},
		{"task not found", NewTaskNotFound("t-1"), http.StatusNotFound, TaskNotFound},
		{"unmatched variable", NewUnmatchedVariable("style"), http.StatusBadRequest, UnmatchedVariable},
		{"invalid batch", NewInvalidBatch("three"), http.StatusBadRequest, InvalidBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.httpCode, tt.err.HttpCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.Assert(t, tt.err.Error() != "")
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.Assert(t, IsBadRequest(NewBadRequest("x")))
	assert.Assert(t, !IsBadRequest(NewInternalError("x")))
	assert.Assert(t, IsNotFound(NewTaskNotFound("t-1")))
	assert.Assert(t, IsNotFound(NewNotFound("task", "t-1")))
	assert.Assert(t, !IsNotFound(NewBadRequest("x")))
	assert.Assert(t, IsExpansion(NewUnmatchedVariable("style")))
	assert.Assert(t, IsExpansion(NewInvalidBatch("0")))
	assert.Assert(t, !IsExpansion(NewBadRequest("x")))
	assert.Assert(t, IsNiet(NewBadRequest("x")))
	assert.Assert(t, !IsNiet(fmt.Errorf("plain")))
	assert.Assert(t, !IsNiet(nil))
}

func TestGetErrorCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("create task: %w", NewTaskNotFound("t-1"))
	assert.Equal(t, TaskNotFound, GetErrorCode(wrapped))
	assert.Assert(t, IsNotFound(wrapped))
	assert.Equal(t, "", GetErrorCode(fmt.Errorf("plain")))
}

func TestIgnoreFound(t *testing.T) {
	assert.NilError(t, IgnoreFound(nil))
	assert.NilError(t, IgnoreFound(NewTaskNotFound("t-1")))
	err := NewInternalError("boom")
	assert.Equal(t, error(err), IgnoreFound(err))
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"
)

const NietPrefix = "Niet."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Task-related errors
   02: Subtask-related errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError         = NietPrefix + "00001"
	BadRequest            = NietPrefix + "00002"
	Forbidden             = NietPrefix + "00003"
	AlreadyExist          = NietPrefix + "00004"
	NotFound              = NietPrefix + "00005"
	RequestEntityTooLarge = NietPrefix + "00006"
	NotImplemented        = NietPrefix + "00007"
)

// task: 01xxx
const (
	TaskNotFound      = NietPrefix + "01001"
	UnmatchedVariable = NietPrefix + "01002"
	InvalidBatch      = NietPrefix + "01003"
)

// subtask: 02xxx
const (
	SubtaskNotFound = NietPrefix + "02001"
)

// ApiError is the wire form of every error surfaced by the API.
type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *ApiError) Error() string {
	return e.ErrorMessage
}

// returns true if the specified error carries a niet error code.
func IsNiet(err error) bool {
	return strings.HasPrefix(GetErrorCode(err), NietPrefix)
}

func IsAlreadyExist(err error) bool {
	return GetErrorCode(err) == AlreadyExist
}

func IsBadRequest(err error) bool {
	return GetErrorCode(err) == BadRequest
}

func IsInternal(err error) bool {
	return GetErrorCode(err) == InternalError
}

func IsNotFound(err error) bool {
	code := GetErrorCode(err)
	return code == NotFound || code == TaskNotFound || code == SubtaskNotFound
}

func IsExpansion(err error) bool {
	code := GetErrorCode(err)
	return code == UnmatchedVariable || code == InvalidBatch
}

func IgnoreFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *ApiError
	if goerrors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return ""
}

func NewBadRequest(message string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusBadRequest,
		ErrorCode:    BadRequest,
		ErrorMessage: fmt.Sprintf("Bad request. %s", message),
	}
}

func NewInternalError(message string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusInternalServerError,
		ErrorCode:    InternalError,
		ErrorMessage: fmt.Sprintf("Internal error. %s", message),
	}
}

func NewForbidden(message string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusForbidden,
		ErrorCode:    Forbidden,
		ErrorMessage: fmt.Sprintf("Forbidden. %s", message),
	}
}

func NewAlreadyExist(message string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusConflict,
		ErrorCode:    AlreadyExist,
		ErrorMessage: fmt.Sprintf("Already exists. %s", message),
	}
}

func NewNotFound(kind, name string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusNotFound,
		ErrorCode:    NotFound,
		ErrorMessage: fmt.Sprintf("%s %q not found", kind, name),
	}
}

func NewNotFoundWithMessage(message string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusNotFound,
		ErrorCode:    NotFound,
		ErrorMessage: message,
	}
}

func NewTaskNotFound(taskId string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusNotFound,
		ErrorCode:    TaskNotFound,
		ErrorMessage: fmt.Sprintf("task %q not found", taskId),
	}
}

func NewUnmatchedVariable(tagName string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusBadRequest,
		ErrorCode:    UnmatchedVariable,
		ErrorMessage: fmt.Sprintf("variable tag %q has no matching variable", tagName),
	}
}

func NewInvalidBatch(value string) *ApiError {
	return &ApiError{
		HttpCode:     http.StatusBadRequest,
		ErrorCode:    InvalidBatch,
		ErrorMessage: fmt.Sprintf("batch tag value %q is not a positive integer", value),
	}
}

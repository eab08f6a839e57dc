/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package imageapi

import (
	"errors"
	"fmt"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
)

// Kind partitions generation failures for the retry policy.
type Kind string

const (
	// KindTimeout covers explicit TIMEOUT statuses and poll exhaustion.
	KindTimeout Kind = "timeout"
	// KindIllegalContent covers HTTP 451 and ILLEGAL_IMAGE verdicts. Never retried.
	KindIllegalContent Kind = "illegal_content"
	// KindFailure covers everything else, including transport errors.
	KindFailure Kind = "failure"
)

// Error is the classified failure of one generation request.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("image api %s: %s", e.Kind, e.Message)
}

// KindOf extracts the failure kind; anything that is not an *Error counts as
// a generic failure.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindFailure
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// GenerateSpec carries everything one generation request needs.
type GenerateSpec struct {
	Prompts    []v1.PromptItem
	Ratio      string
	Seed       int64
	UsePolish  bool
	ClientArgs *v1.ClientArgs
	Queue      string
}

// GenerateResult is the final image of a successful request.
type GenerateResult struct {
	Url    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   int64  `json:"seed"`
}

// submitPayload is the wire form of a generation submit.
type submitPayload struct {
	Prompts    []v1.PromptItem `json:"prompts"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Seed       int64           `json:"seed"`
	BatchSize  int             `json:"batch_size"`
	Quality    string          `json:"quality"`
	UsePolish  bool            `json:"use_polish"`
	ClientArgs *v1.ClientArgs  `json:"client_args,omitempty"`
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"fmt"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/talesofai/nietest/pkg/imageapi"
)

func TestClassify(t *testing.T) {
	timeout := &imageapi.Error{Kind: imageapi.KindTimeout, Message: "poll exhausted"}
	illegal := &imageapi.Error{Kind: imageapi.KindIllegalContent, Message: "451"}
	failure := &imageapi.Error{Kind: imageapi.KindFailure, Message: "FAILURE"}
	transport := fmt.Errorf("connection refused")

	tests := []struct {
		name       string
		err        error
		retryCount int
		retry      bool
		delay      time.Duration
	}{
		{"illegal first attempt", illegal, 1, false, 0},
		{"illegal late attempt", illegal, 4, false, 0},
		{"timeout below bound", timeout, 1, true, 0},
		{"timeout at last allowed", timeout, 4, true, 0},
		{"timeout exhausted", timeout, 5, false, 0},
		{"generic below bound", failure, 1, true, GenericRetryDelay},
		{"generic exhausted", failure, 2, false, 0},
		{"transport error counts as generic", transport, 1, true, GenericRetryDelay},
		{"transport exhausted", transport, 2, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Classify(tt.err, tt.retryCount)
			assert.Equal(t, tt.retry, decision.Retry)
			assert.Equal(t, tt.delay, decision.Delay)
		})
	}
}

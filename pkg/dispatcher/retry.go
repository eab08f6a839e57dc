/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"time"

	"github.com/talesofai/nietest/pkg/imageapi"
)

const (
	// MaxTimeoutRetries bounds attempts on timeout failures, counting the
	// initial attempt.
	MaxTimeoutRetries = 5
	// MaxGenericRetries bounds attempts on any other failure.
	MaxGenericRetries = 2
	// GenericRetryDelay is slept before re-running a generically failed unit.
	GenericRetryDelay = 3 * time.Second
)

// Decision tells the executing unit what to do after a failed attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Classify applies the retry policy to a failed attempt. retryCount is the
// subtask's counter after the failed attempt was recorded, so it equals the
// number of attempts made so far.
//
// Illegal content is never retried. Timeouts retry immediately up to their
// bound; everything else retries after a short delay up to a tighter bound.
func Classify(err error, retryCount int) Decision {
	switch imageapi.KindOf(err) {
	case imageapi.KindIllegalContent:
		return Decision{}
	case imageapi.KindTimeout:
		if retryCount < MaxTimeoutRetries {
			return Decision{Retry: true}
		}
		return Decision{}
	default:
		if retryCount < MaxGenericRetries {
			return Decision{Retry: true, Delay: GenericRetryDelay}
		}
		return Decision{}
	}
}

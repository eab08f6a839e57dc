/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"fmt"

	"github.com/google/uuid"
)

func NewTaskId() string {
	return fmt.Sprintf("task-%s", uuid.NewString())
}

func NewSubtaskId() string {
	return fmt.Sprintf("sub-%s", uuid.NewString())
}

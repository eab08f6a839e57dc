/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) GetMatrix(c *gin.Context) {
	handle(c, h.getMatrix)
}

func (h *Handler) getMatrix(c *gin.Context) (interface{}, error) {
	return h.engine.GetMatrix(c.Request.Context(), c.Param(TaskId))
}

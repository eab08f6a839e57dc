/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commonconfig "github.com/talesofai/nietest/pkg/config"
	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

const (
	RouterRootPath = "/api/v1"

	TaskId = "taskId"
)

// InitHttpHandlers builds the gin engine with the task routes plus the
// operational endpoints.
func InitHttpHandlers(h *Handler) *gin.Engine {
	e := gin.New()
	e.Use(Logger(), gin.Recovery())
	e.NoRoute(func(c *gin.Context) {
		AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	InitTaskRouters(e, h)
	initOpsRouters(e)
	return e
}

func InitTaskRouters(e *gin.Engine, h *Handler) {
	group := e.Group(RouterRootPath)
	{
		group.POST("tasks", h.CreateTask)
		group.GET("tasks", h.ListTask)
		group.GET(fmt.Sprintf("tasks/:%s", TaskId), h.GetTask)
		group.POST(fmt.Sprintf("tasks/:%s/cancel", TaskId), h.CancelTask)
		group.DELETE(fmt.Sprintf("tasks/:%s", TaskId), h.DeleteTask)
		group.GET(fmt.Sprintf("tasks/:%s/subtasks", TaskId), h.ListSubtask)
		group.GET(fmt.Sprintf("tasks/:%s/matrix", TaskId), h.GetMatrix)
	}
}

func initOpsRouters(e *gin.Engine) {
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if commonconfig.IsHealthCheckEnabled() {
		e.GET("/healthz", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
	}
	if commonconfig.IsPprofEnable() {
		e.GET("/debug/pprof/", gin.WrapF(pprof.Index))
		e.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		e.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		e.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		e.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}
}

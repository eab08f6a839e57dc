/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// Logger is the access-log middleware. Health probes are logged at a higher
// verbosity to keep the output readable.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if c.Request.URL.Path == "/healthz" {
			klog.V(5).Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency)
			return
		}
		klog.Infof("%s %s %d %s %s", c.Request.Method, c.Request.URL.RequestURI(),
			c.Writer.Status(), latency, c.ClientIP())
	}
}

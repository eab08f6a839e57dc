/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	goerrors "errors"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

// AbortWithApiError terminates the request with the error's wire form.
// Errors without an api code are reported as internal.
func AbortWithApiError(c *gin.Context, err error) {
	rsp := cvtToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

func cvtToErrResponse(err error) commonerrors.ApiError {
	var result *commonerrors.ApiError
	if goerrors.As(err, &result) {
		return *result
	}
	return *commonerrors.NewInternalError(err.Error())
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package imageapi

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 1024

	// targetArea is the pixel budget every ratio is scaled to.
	targetArea = 1024 * 1024
)

// ParseDimensions converts an aspect ratio like "3:4" into concrete pixel
// dimensions whose area approximates the target budget, each side rounded to
// the nearest multiple of 8. Malformed ratios fall back to the square default.
func ParseDimensions(ratio string) (int, int) {
	parts := strings.Split(ratio, ":")
	if len(parts) != 2 {
		return DefaultWidth, DefaultHeight
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return DefaultWidth, DefaultHeight
	}
	// w/h preserved, w*h ~= targetArea
	width := math.Sqrt(targetArea * w / h)
	height := targetArea / width
	return roundToMultipleOf8(width), roundToMultipleOf8(height)
}

func roundToMultipleOf8(v float64) int {
	rounded := int(math.Round(v/8)) * 8
	if rounded < 8 {
		return 8
	}
	return rounded
}

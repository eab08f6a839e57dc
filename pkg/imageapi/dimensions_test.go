/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package imageapi

import (
	"testing"

	"gotest.tools/assert"
)

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		name   string
		ratio  string
		width  int
		height int
	}{
		{"square", "1:1", 1024, 1024},
		{"landscape", "16:9", 1368, 768},
		{"portrait", "9:16", 768, 1368},
		{"classic", "4:3", 1184, 888},
		{"malformed", "square", 1024, 1024},
		{"missing part", "16:", 1024, 1024},
		{"zero side", "0:1", 1024, 1024},
		{"negative", "-4:3", 1024, 1024},
		{"empty", "", 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ParseDimensions(tt.ratio)
			assert.Equal(t, tt.width, w)
			assert.Equal(t, tt.height, h)
		})
	}
}

func TestParseDimensionsMultipleOf8(t *testing.T) {
	for _, ratio := range []string{"1:1", "16:9", "3:4", "21:9", "2:3", "5:4"} {
		w, h := ParseDimensions(ratio)
		assert.Equal(t, 0, w%8, "width of %s", ratio)
		assert.Equal(t, 0, h%8, "height of %s", ratio)
	}
}

/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// UnsetIndex marks a variable slot that is not used by the parent task.
const UnsetIndex = -1

// Coordinate identifies the cell of a subtask in the result matrix.
// Each element is the index of the chosen value within the variable's
// value list, or UnsetIndex when the slot is unused. Business logic works
// on Coordinate values; the comma-joined indexed key exists only at
// persistence and API boundaries.
type Coordinate [MaxVariables]int

// NewCoordinate returns a coordinate with every slot unset.
func NewCoordinate() Coordinate {
	var c Coordinate
	for i := range c {
		c[i] = UnsetIndex
	}
	return c
}

// Used reports whether slot k carries an index.
func (c Coordinate) Used(k int) bool {
	return k >= 0 && k < MaxVariables && c[k] != UnsetIndex
}

// IndexedKey renders the canonical comma-joined form, e.g. "0,1,,,,".
// Unset slots render as empty strings.
func (c Coordinate) IndexedKey() string {
	parts := make([]string, MaxVariables)
	for i, idx := range c {
		if idx != UnsetIndex {
			parts[i] = strconv.Itoa(idx)
		}
	}
	return strings.Join(parts, ",")
}

// ParseIndexedKey decodes the canonical key back into a coordinate.
func ParseIndexedKey(key string) (Coordinate, error) {
	c := NewCoordinate()
	parts := strings.Split(key, ",")
	if len(parts) != MaxVariables {
		return c, fmt.Errorf("indexed key %q must have %d parts, got %d", key, MaxVariables, len(parts))
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return NewCoordinate(), fmt.Errorf("indexed key %q has invalid index at slot %d", key, i)
		}
		c[i] = idx
	}
	return c, nil
}

// MarshalJSON renders the coordinate as a 6-array with null for unset slots.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, idx := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if idx == UnsetIndex {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.Itoa(idx))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either the 6-array form or the indexed-key string.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty coordinate")
	}
	if trimmed[0] == '"' {
		key, err := strconv.Unquote(string(trimmed))
		if err != nil {
			return err
		}
		parsed, err := ParseIndexedKey(key)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	inner := bytes.TrimSuffix(bytes.TrimPrefix(trimmed, []byte("[")), []byte("]"))
	parts := bytes.Split(inner, []byte(","))
	if len(parts) != MaxVariables {
		return fmt.Errorf("coordinate array must have %d elements, got %d", MaxVariables, len(parts))
	}
	result := NewCoordinate()
	for i, part := range parts {
		val := string(bytes.TrimSpace(part))
		if val == "null" || val == "" {
			continue
		}
		idx, err := strconv.Atoi(val)
		if err != nil || idx < 0 {
			return fmt.Errorf("coordinate has invalid index %q at slot %d", val, i)
		}
		result[i] = idx
	}
	*c = result
	return nil
}

package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ilpatch/internal/ir"
)

// marshalPositions converts a position list to canonical JSON TEXT.
// A nil list is stored as "[]" so reads never see NULL.
func marshalPositions(positions []int) (string, error) {
	arr := make([]any, len(positions))
	for i, p := range positions {
		arr[i] = p
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal positions: %w", err)
	}
	return string(data), nil
}

// unmarshalPositions parses canonical JSON TEXT into a position list.
// Always returns a non-nil slice.
func unmarshalPositions(data string) ([]int, error) {
	positions := []int{}
	if data == "" || data == "[]" {
		return positions, nil
	}
	if err := json.Unmarshal([]byte(data), &positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	return positions, nil
}

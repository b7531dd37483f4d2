package approval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceID(t *testing.T) {
	testCases := []struct {
		name   string
		input  interface{}
		expect int64
	}{
		{"nil", nil, 0},
		{"int", 42, 42},
		{"int64", int64(7), 7},
		{"uint64", uint64(9), 9},
		{"float from json", float64(15), 15},
		{"fractional float", 1.5, 0},
		{"json number", json.Number("101"), 101},
		{"numeric string", " 12 ", 12},
		{"zero", 0, 0},
		{"negative", -3, 0},
		{"negative string", "-3", 0},
		{"garbage", "abc", 0},
		{"bool", true, 0},
		{"overflow", uint64(1 << 63), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CoerceID(tc.input))
		})
	}
}

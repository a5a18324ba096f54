package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionTranslator(t *testing.T) {
	var tr positionTranslator

	assert.Equal(t, 7, tr.translate(7), "no edits is identity")

	tr.record(2, 3)   // insert three at 2
	tr.record(10, -1) // shrink window at 10 by one

	tests := []struct {
		orig int
		want int
	}{
		{0, 0},
		{2, 2},
		{3, 6},
		{10, 13},
		{11, 13},
		{20, 22},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.translate(tt.orig), "translate(%d)", tt.orig)
	}
	assert.Equal(t, 2, tr.netDelta())
}

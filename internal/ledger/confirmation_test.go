package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		confirmations, required, want int
	}{
		{3, 12, 25},
		{0, 0, 100},
		{5, 0, 100},
		{5, -1, 100},
		{0, 12, 0},
		{-2, 12, 0},
		{1, 3, 33},
		{2, 3, 66},
		{12, 12, 100},
		{40, 12, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Progress(tt.confirmations, tt.required), "progress(%d, %d)", tt.confirmations, tt.required)
	}
}

func TestIsConfirming(t *testing.T) {
	assert.True(t, IsConfirming(StatusConfirming, 3, 12))
	assert.False(t, IsConfirming(StatusConfirming, 12, 12))
	assert.False(t, IsConfirming(StatusConfirming, 0, 0))
	assert.False(t, IsConfirming(StatusPending, 3, 12))
	assert.False(t, IsConfirming(StatusCompleted, 3, 12))
}

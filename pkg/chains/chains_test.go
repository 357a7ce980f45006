package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		id   uint64
		want string
	}{
		{Mainnet, "mainnet"},
		{Sepolia, "sepolia"},
		{Base, "base"},
		{BaseSepolia, "base-sepolia"},
		{31337, "chain-31337"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.id))
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(BaseSepolia))
	assert.False(t, Supported(31337))
}

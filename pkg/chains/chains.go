// Package chains lists the networks the launcher knows how to target.
package chains

import "fmt"

const (
	Mainnet     uint64 = 1
	Sepolia     uint64 = 11155111
	Base        uint64 = 8453
	BaseSepolia uint64 = 84532
)

var names = map[uint64]string{
	Mainnet:     "mainnet",
	Sepolia:     "sepolia",
	Base:        "base",
	BaseSepolia: "base-sepolia",
}

// Name returns the network name for id.
func Name(id uint64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("chain-%d", id)
}

// Supported reports whether id is a known network.
func Supported(id uint64) bool {
	_, ok := names[id]
	return ok
}

package vm

// EIP-7954 raises the deployed-code limit from 24,576 to 32,768 bytes and
// the init-code limit from 49,152 to 65,536 bytes. Like the other
// speculative post-Prague rules in this package it is gated behind a
// ForkRules flag no shipped chain config sets.

const (
	MaxCodeSizeGlamsterdam     = 32768
	MaxInitCodeSizeGlamsterdam = 65536
)

// MaxCodeSizeForFork returns the maximum deployed contract code size for
// the given fork rules.
func MaxCodeSizeForFork(rules ForkRules) int {
	if rules.IsEIP7954 {
		return MaxCodeSizeGlamsterdam
	}
	return MaxCodeSize
}

// MaxInitCodeSizeForFork returns the maximum init code size for the given
// fork rules.
func MaxInitCodeSizeForFork(rules ForkRules) int {
	if rules.IsEIP7954 {
		return MaxInitCodeSizeGlamsterdam
	}
	return MaxInitCodeSize
}

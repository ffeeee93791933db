package core

import (
	"math/big"

	"github.com/ethvm/evm/core/vm"
)

// ChainConfig describes the fork schedule of a chain. Pre-merge forks
// activate by block number; post-merge forks activate by block timestamp,
// matching the activation scheme Ethereum mainnet itself switched to at
// the Paris upgrade.
type ChainConfig struct {
	ChainID *big.Int

	HomesteadBlock      *big.Int
	EIP150Block         *big.Int // Tangerine Whistle
	EIP158Block         *big.Int // Spurious Dragon
	ByzantiumBlock      *big.Int
	ConstantinopleBlock *big.Int
	IstanbulBlock       *big.Int
	BerlinBlock         *big.Int
	LondonBlock         *big.Int

	ShanghaiTime *uint64
	CancunTime   *uint64
	PragueTime   *uint64
}

// MainnetConfig is a representative configuration with every fork through
// Cancun activated at genesis/time zero, suitable as a default for callers
// that don't construct their own schedule. PragueTime is left unset, so
// Prague rules are never active under this configuration.
var MainnetConfig = &ChainConfig{
	ChainID:             big.NewInt(1),
	HomesteadBlock:      big.NewInt(0),
	EIP150Block:         big.NewInt(0),
	EIP158Block:         big.NewInt(0),
	ByzantiumBlock:      big.NewInt(0),
	ConstantinopleBlock: big.NewInt(0),
	IstanbulBlock:       big.NewInt(0),
	BerlinBlock:         big.NewInt(0),
	LondonBlock:         big.NewInt(0),
	ShanghaiTime:        u64ptr(0),
	CancunTime:          u64ptr(0),
}

func u64ptr(v uint64) *uint64 { return &v }

func blockActive(threshold, block *big.Int) bool {
	if threshold == nil || block == nil {
		return false
	}
	return block.Cmp(threshold) >= 0
}

func timeActive(threshold *uint64, time uint64) bool {
	if threshold == nil {
		return false
	}
	return time >= *threshold
}

func (c *ChainConfig) IsHomestead(block *big.Int) bool { return blockActive(c.HomesteadBlock, block) }
func (c *ChainConfig) IsEIP150(block *big.Int) bool    { return blockActive(c.EIP150Block, block) }
func (c *ChainConfig) IsEIP158(block *big.Int) bool    { return blockActive(c.EIP158Block, block) }
func (c *ChainConfig) IsByzantium(block *big.Int) bool  { return blockActive(c.ByzantiumBlock, block) }
func (c *ChainConfig) IsConstantinople(block *big.Int) bool {
	return blockActive(c.ConstantinopleBlock, block)
}
func (c *ChainConfig) IsIstanbul(block *big.Int) bool { return blockActive(c.IstanbulBlock, block) }
func (c *ChainConfig) IsBerlin(block *big.Int) bool   { return blockActive(c.BerlinBlock, block) }
func (c *ChainConfig) IsLondon(block *big.Int) bool   { return blockActive(c.LondonBlock, block) }

func (c *ChainConfig) IsShanghai(time uint64) bool { return timeActive(c.ShanghaiTime, time) }
func (c *ChainConfig) IsCancun(time uint64) bool   { return timeActive(c.CancunTime, time) }
func (c *ChainConfig) IsPrague(time uint64) bool   { return timeActive(c.PragueTime, time) }

// Rules returns the fork flags active for the given block number and time,
// translated into the vm package's fork-selection struct so the interpreter
// and processor stay decoupled from ChainConfig's representation.
func (c *ChainConfig) Rules(block *big.Int, time uint64) vm.ForkRules {
	return vm.ForkRules{
		IsHomestead:      c.IsHomestead(block),
		IsEIP158:         c.IsEIP158(block),
		IsByzantium:      c.IsByzantium(block),
		IsConstantinople: c.IsConstantinople(block),
		IsIstanbul:       c.IsIstanbul(block),
		IsBerlin:         c.IsBerlin(block),
		IsLondon:         c.IsLondon(block),
		IsMerge:          c.IsLondon(block),
		IsShanghai:       c.IsShanghai(time),
		IsCancun:         c.IsCancun(time),
		IsPrague:         c.IsPrague(time),
	}
}

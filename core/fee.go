package core

import (
	"math/big"

	"github.com/ethvm/evm/core/types"
)

// EIP-1559 constants.
var (
	InitialBaseFee              = big.NewInt(1_000_000_000)
	MinBaseFee                  = big.NewInt(7)
	baseFeeChangeDenominator    = big.NewInt(8)
	elasticityMultiplier  int64 = 2
)

// CalcBaseFee computes the base fee for the block following parent, per
// EIP-1559: the base fee moves by at most 12.5% per block depending on how
// full the parent block was relative to its gas target.
func CalcBaseFee(parent *types.Header) *big.Int {
	if parent.BaseFee == nil {
		return new(big.Int).Set(InitialBaseFee)
	}

	parentGasTarget := parent.GasLimit / uint64(elasticityMultiplier)
	if parent.GasUsed == parentGasTarget {
		return new(big.Int).Set(parent.BaseFee)
	}

	if parent.GasUsed > parentGasTarget {
		gasUsedDelta := new(big.Int).SetUint64(parent.GasUsed - parentGasTarget)
		x := new(big.Int).Mul(parent.BaseFee, gasUsedDelta)
		y := x.Div(x, new(big.Int).SetUint64(parentGasTarget))
		baseFeeDelta := bigMax(new(big.Int).Div(y, baseFeeChangeDenominator), big.NewInt(1))

		newBaseFee := new(big.Int).Add(parent.BaseFee, baseFeeDelta)
		if newBaseFee.Cmp(MinBaseFee) < 0 {
			return new(big.Int).Set(MinBaseFee)
		}
		return newBaseFee
	}

	gasUsedDelta := new(big.Int).SetUint64(parentGasTarget - parent.GasUsed)
	x := new(big.Int).Mul(parent.BaseFee, gasUsedDelta)
	y := x.Div(x, new(big.Int).SetUint64(parentGasTarget))
	baseFeeDelta := new(big.Int).Div(y, baseFeeChangeDenominator)

	newBaseFee := new(big.Int).Sub(parent.BaseFee, baseFeeDelta)
	if newBaseFee.Cmp(MinBaseFee) < 0 {
		return new(big.Int).Set(MinBaseFee)
	}
	return newBaseFee
}

func bigMax(a, b *big.Int) *big.Int {
	if a.Cmp(b) > 0 {
		return a
	}
	return b
}

package core

import "errors"

// ErrGasPoolExhausted is returned when a transaction would consume more gas
// than remains in the block's gas pool.
var ErrGasPoolExhausted = errors.New("gas pool exhausted")

// GasPool tracks the gas available within a single block.
type GasPool uint64

// AddGas makes gas available for execution.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	if uint64(*gp) > uint64(*gp)+amount {
		panic("gas pool overflow")
	}
	*gp += GasPool(amount)
	return gp
}

// SubGas deducts the given amount from the pool, failing if insufficient
// gas remains.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 {
	return uint64(*gp)
}

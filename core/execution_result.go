package core

import (
	"errors"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
)

// ExecutionResult is the outcome of applying a single message (transaction)
// against the EVM.
type ExecutionResult struct {
	UsedGas         uint64
	Err             error
	ReturnData      []byte
	ContractAddress types.Address
}

// Unwrap returns the inner EVM error, if any, for errors.Is/As chaining.
func (r *ExecutionResult) Unwrap() error {
	return r.Err
}

// Failed reports whether the EVM execution itself failed (reverted or
// trapped). It does not reflect errors rejecting the transaction before
// execution started.
func (r *ExecutionResult) Failed() bool {
	return r.Err != nil
}

// Return returns the data returned by EVM execution, or nil on revert with
// no returned reason.
func (r *ExecutionResult) Return() []byte {
	if r.Err != nil {
		return nil
	}
	return r.ReturnData
}

// Revert returns the concrete revert reason bytes when execution stopped via
// REVERT, or nil otherwise.
func (r *ExecutionResult) Revert() []byte {
	if !errors.Is(r.Err, vm.ErrExecutionReverted) {
		return nil
	}
	return r.ReturnData
}

package core

import (
	"fmt"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
)

// StateProcessor sequences a block's transactions against a StateDB,
// producing receipts. It owns no storage of its own: all durable state
// lives in the StateDB the caller supplies.
type StateProcessor struct {
	config  *ChainConfig
	getHash vm.GetHashFunc
}

// NewStateProcessor creates a processor for the given chain configuration.
func NewStateProcessor(config *ChainConfig) *StateProcessor {
	return &StateProcessor{config: config}
}

// SetGetHash installs the BLOCKHASH opcode's block-hash lookup function.
func (p *StateProcessor) SetGetHash(fn vm.GetHashFunc) {
	p.getHash = fn
}

// Process applies every transaction in the block to statedb in order,
// returning one receipt per transaction. A transaction that fails
// validation aborts the whole block; a transaction whose EVM execution
// reverts still produces a (failed) receipt and consumes its gas.
func (p *StateProcessor) Process(block *types.Block, statedb vm.StateDB) ([]*types.Receipt, error) {
	header := block.Header()
	rules := p.config.Rules(header.Number, header.Time)

	gp := new(GasPool).AddGas(header.GasLimit)

	receipts := make([]*types.Receipt, 0, len(block.Transactions()))
	var cumulativeGasUsed uint64

	for i, tx := range block.Transactions() {
		msg := TransactionToMessage(tx)

		if err := ValidateMessage(statedb, &msg, header, rules, gp); err != nil {
			return nil, fmt.Errorf("transaction %d [%s]: %w", i, tx.Hash(), err)
		}

		snapshot := statedb.Snapshot()
		result, err := ApplyMessage(statedb, &msg, header, p.config, gp, p.getHash)
		if err != nil {
			statedb.RevertToSnapshot(snapshot)
			return nil, fmt.Errorf("transaction %d [%s]: %w", i, tx.Hash(), err)
		}

		if rules.IsEIP158 {
			sweepEmptyAccounts(statedb, touchedAccounts(&msg, result, header.Coinbase))
		}

		cumulativeGasUsed += result.UsedGas
		receipt := buildReceipt(tx, msg, result, statedb, header, cumulativeGasUsed)
		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

func buildReceipt(tx *types.Transaction, msg Message, result *ExecutionResult, statedb vm.StateDB, header *types.Header, cumulativeGasUsed uint64) *types.Receipt {
	receipt := &types.Receipt{
		Type:              tx.Type(),
		CumulativeGasUsed: cumulativeGasUsed,
		GasUsed:           result.UsedGas,
		TxHash:            tx.Hash(),
		BlockNumber:       header.Number,
		EffectiveGasPrice: msgEffectiveGasPrice(&msg, header.BaseFee),
	}
	if result.Failed() {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
	}
	if msg.To == nil && !result.Failed() {
		receipt.ContractAddress = result.ContractAddress
	}

	logs := statedb.GetLogs(tx.Hash())
	for _, log := range logs {
		log.BlockNumber = header.Number.Uint64()
	}
	receipt.Logs = logs
	receipt.Bloom = types.LogsBloom(logs)
	return receipt
}

// touchedAccounts returns every address EIP-161 emptiness cleanup should
// consider after a message: sender, destination/created contract, and
// coinbase all have their balance/nonce/code touched by fee settlement or
// execution.
func touchedAccounts(msg *Message, result *ExecutionResult, coinbase types.Address) []types.Address {
	addrs := []types.Address{msg.From}
	if msg.To != nil {
		addrs = append(addrs, *msg.To)
	} else if !result.Failed() {
		addrs = append(addrs, result.ContractAddress)
	}
	return append(addrs, coinbase)
}

// sweepEmptyAccounts deletes accounts that are empty per EIP-161/EIP-158:
// zero nonce, zero balance, and no code.
func sweepEmptyAccounts(statedb vm.StateDB, addrs []types.Address) {
	for _, addr := range addrs {
		if statedb.Exist(addr) && statedb.Empty(addr) {
			statedb.SelfDestruct(addr)
		}
	}
}

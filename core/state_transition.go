package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
)

// Intrinsic gas constants (EIP-2, EIP-2028, EIP-2930, EIP-7702).
const (
	TxGas            uint64 = 21000
	TxDataZeroGas    uint64 = 4
	TxDataNonZeroGas uint64 = 16
	TxCreateGas      uint64 = 32000

	// PerAuthBaseCost is charged per EIP-7702 authorization list entry.
	PerAuthBaseCost uint64 = 12500
	// PerEmptyAccountCost is an additional charge for authorizations that
	// target an account not yet present in state.
	PerEmptyAccountCost uint64 = 25000

	// EIP-2930 access list pricing.
	TxAccessListAddressGas    uint64 = 2400
	TxAccessListStorageKeyGas uint64 = 1900

	// EIP-7623 calldata floor pricing (Prague+): a transaction whose
	// intrinsic-plus-execution gas would otherwise be cheap is charged at
	// least this floor, computed from "tokens" (zero bytes count once,
	// non-zero bytes count four times).
	TxFloorCostPerToken uint64 = 10
)

var (
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrNonceTooHigh        = errors.New("nonce too high")
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrGasLimitExceeded    = errors.New("gas limit exceeds block limit")
	ErrIntrinsicGasTooLow  = errors.New("intrinsic gas too low")
	ErrFeeCapTooLow        = errors.New("max fee per gas less than block base fee")
	ErrTipAboveFeeCap      = errors.New("max priority fee per gas higher than max fee per gas")
	ErrBlobFeeCapTooLow    = errors.New("max fee per blob gas less than block blob base fee")
)

// blobBaseFee returns the block's blob base fee, computed from the header's
// excess blob gas per EIP-4844. Headers before Cancun carry no blob fields
// and price blob gas at zero.
func blobBaseFee(header *types.Header) *big.Int {
	if header.ExcessBlobGas == nil {
		return new(big.Int)
	}
	return types.CalcBlobFee(*header.ExcessBlobGas)
}

// blobGasCost returns the blob gas consumed by a message's blob hashes.
func blobGasCost(msg *Message) uint64 {
	return types.GetBlobGasUsed(len(msg.BlobHashes))
}

// intrinsicGas computes the base gas cost of a message before EVM execution,
// per the active fork's data/authorization/access-list pricing rules.
func intrinsicGas(msg *Message, rules vm.ForkRules, authCount, emptyAuthCount uint64) uint64 {
	isCreate := msg.To == nil

	gas := TxGas
	if isCreate {
		gas += TxCreateGas
	}
	for _, b := range msg.Data {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGas
		}
	}
	// EIP-3860: charge for initcode words on contract creation (Shanghai+).
	if isCreate && rules.IsShanghai {
		words := (uint64(len(msg.Data)) + 31) / 32
		gas += words * vm.InitCodeWordGas
	}
	gas += accessListGas(msg.AccessList)
	gas += authCount * PerAuthBaseCost
	gas += emptyAuthCount * PerEmptyAccountCost
	return gas
}

// accessListGas computes the EIP-2930 access list gas cost.
func accessListGas(accessList types.AccessList) uint64 {
	var gas uint64
	for _, tuple := range accessList {
		gas += TxAccessListAddressGas
		gas += uint64(len(tuple.StorageKeys)) * TxAccessListStorageKeyGas
	}
	return gas
}

// calldataTokens computes the EIP-7623 token count for calldata: zero bytes
// count once, non-zero bytes count four times.
func calldataTokens(data []byte) uint64 {
	var tokens uint64
	for _, b := range data {
		if b == 0 {
			tokens++
		} else {
			tokens += 4
		}
	}
	return tokens
}

// calldataFloorGas computes the EIP-7623 calldata floor: a minimum intrinsic
// gas charge that applies regardless of how little work the message does,
// to discourage calldata use in favor of blobs.
func calldataFloorGas(msg *Message) uint64 {
	floor := TxGas + calldataTokens(msg.Data)*TxFloorCostPerToken
	if msg.To == nil {
		floor += TxCreateGas
	}
	return floor
}

// countAuthorizations returns the number of authorizations, and how many of
// those target an account not yet present in state (charged extra).
func countAuthorizations(statedb vm.StateDB, authList []types.Authorization) (total, empty uint64) {
	total = uint64(len(authList))
	for _, auth := range authList {
		if !statedb.Exist(auth.Address) {
			empty++
		}
	}
	return total, empty
}

// msgEffectiveGasPrice computes the price actually paid per unit of gas.
// Legacy transactions pay GasPrice directly; EIP-1559 transactions pay
// min(GasFeeCap, BaseFee + GasTipCap).
func msgEffectiveGasPrice(msg *Message, baseFee *big.Int) *big.Int {
	if msg.GasFeeCap != nil && baseFee != nil && baseFee.Sign() > 0 {
		tip := msg.GasTipCap
		if tip == nil {
			tip = new(big.Int)
		}
		price := new(big.Int).Add(baseFee, tip)
		if price.Cmp(msg.GasFeeCap) > 0 {
			price = new(big.Int).Set(msg.GasFeeCap)
		}
		return price
	}
	if msg.GasPrice != nil {
		return new(big.Int).Set(msg.GasPrice)
	}
	return new(big.Int)
}

// ValidateMessage performs the pre-execution checks a transaction must pass
// before it may consume gas from the block's pool: nonce, fee-cap ordering,
// balance, gas-limit-vs-block-limit, and intrinsic gas.
func ValidateMessage(statedb vm.StateDB, msg *Message, header *types.Header, rules vm.ForkRules, gp *GasPool) error {
	if msg.GasLimit > gp.Gas() {
		return ErrGasLimitExceeded
	}

	senderNonce := statedb.GetNonce(msg.From)
	if senderNonce < msg.Nonce {
		return ErrNonceTooHigh
	}
	if senderNonce > msg.Nonce {
		return ErrNonceTooLow
	}

	if rules.IsLondon {
		if msg.GasFeeCap == nil || msg.GasFeeCap.Sign() < 0 {
			return fmt.Errorf("%w: nil or negative fee cap", ErrFeeCapTooLow)
		}
		if msg.GasTipCap != nil && msg.GasTipCap.Cmp(msg.GasFeeCap) > 0 {
			return ErrTipAboveFeeCap
		}
		if header.BaseFee != nil && msg.GasFeeCap.Cmp(header.BaseFee) < 0 {
			return ErrFeeCapTooLow
		}
	}

	_, emptyAuth := countAuthorizations(statedb, msg.AuthList)
	igas := intrinsicGas(msg, rules, uint64(len(msg.AuthList)), emptyAuth)
	if msg.GasLimit < igas {
		return ErrIntrinsicGasTooLow
	}

	if len(msg.BlobHashes) > 0 {
		if msg.BlobGasFeeCap == nil || msg.BlobGasFeeCap.Cmp(blobBaseFee(header)) < 0 {
			return ErrBlobFeeCapTooLow
		}
	}

	cost := TxCost(msg, header.BaseFee)
	if len(msg.BlobHashes) > 0 {
		cost.Add(cost, new(big.Int).Mul(msg.BlobGasFeeCap, new(big.Int).SetUint64(blobGasCost(msg))))
	}
	if statedb.GetBalance(msg.From).Cmp(cost) < 0 {
		return ErrInsufficientBalance
	}

	return nil
}

// TxCost returns the maximum amount of wei a message could deduct from its
// sender's balance: gas-limit worth of fee plus the value transferred.
func TxCost(msg *Message, baseFee *big.Int) *big.Int {
	price := msg.GasFeeCap
	if price == nil || baseFee == nil {
		price = msg.GasPrice
	}
	if price == nil {
		price = new(big.Int)
	}
	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(msg.GasLimit))
	if msg.Value != nil {
		cost.Add(cost, msg.Value)
	}
	return cost
}

// ApplyMessage executes a single message against the EVM, charging and
// refunding gas against gp and statedb, and returns the outcome. The caller
// is responsible for calling ValidateMessage first.
func ApplyMessage(statedb vm.StateDB, msg *Message, header *types.Header, config *ChainConfig, gp *GasPool, getHash vm.GetHashFunc) (*ExecutionResult, error) {
	return ApplyMessageWithTracer(statedb, msg, header, config, gp, getHash, nil)
}

// ApplyMessageWithTracer is ApplyMessage with a per-opcode logger attached
// to the EVM; every executed opcode is reported to tracer before it runs.
// A nil tracer executes untraced.
func ApplyMessageWithTracer(statedb vm.StateDB, msg *Message, header *types.Header, config *ChainConfig, gp *GasPool, getHash vm.GetHashFunc, tracer vm.EVMLogger) (*ExecutionResult, error) {
	rules := config.Rules(header.Number, header.Time)

	if err := gp.SubGas(msg.GasLimit); err != nil {
		return nil, err
	}

	gasPrice := msgEffectiveGasPrice(msg, header.BaseFee)

	// Deduct the full gas-limit worth of fee up front; unused gas (after
	// intrinsic and execution costs) is refunded to the sender below.
	upfrontCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(msg.GasLimit))
	statedb.SubBalance(msg.From, upfrontCost)

	// EIP-4844: blob gas is charged up front at the block's blob base fee and
	// burned outright, never credited to the coinbase.
	if len(msg.BlobHashes) > 0 {
		blobFee := new(big.Int).Mul(blobBaseFee(header), new(big.Int).SetUint64(blobGasCost(msg)))
		statedb.SubBalance(msg.From, blobFee)
	}

	isCreate := msg.To == nil
	if !isCreate {
		statedb.SetNonce(msg.From, statedb.GetNonce(msg.From)+1)
	}

	_, emptyAuth := countAuthorizations(statedb, msg.AuthList)
	igas := intrinsicGas(msg, rules, uint64(len(msg.AuthList)), emptyAuth)
	gasLeft := msg.GasLimit - igas

	blockCtx := vm.BlockContext{
		GetHash:     getHash,
		BlockNumber: header.Number,
		Time:        header.Time,
		Coinbase:    header.Coinbase,
		GasLimit:    header.GasLimit,
		BaseFee:     header.BaseFee,
		PrevRandao:  header.MixDigest,
	}
	txCtx := vm.TxContext{
		Origin:     msg.From,
		GasPrice:   gasPrice,
		BlobHashes: msg.BlobHashes,
	}
	cfg := vm.Config{}
	if tracer != nil {
		cfg.Debug = true
		cfg.Tracer = tracer
	}
	evm := vm.NewEVMWithState(blockCtx, txCtx, cfg, statedb)
	evm.SetJumpTable(vm.SelectJumpTable(rules))
	precompileAddrs := vm.SelectPrecompiles(rules)
	evm.SetPrecompiles(precompileAddrs)
	evm.SetForkRules(rules)

	// EIP-2929/2930 pre-warming: sender, destination, coinbase, active
	// precompiles, and any addresses/slots named in the access list all
	// start warm for this transaction. Warmth from a previous transaction
	// in the block must not leak in.
	statedb.ClearAccessList()
	statedb.AddAddressToAccessList(msg.From)
	if msg.To != nil {
		statedb.AddAddressToAccessList(*msg.To)
	}
	statedb.AddAddressToAccessList(header.Coinbase)
	for addr := range precompileAddrs {
		statedb.AddAddressToAccessList(addr)
	}
	for _, tuple := range msg.AccessList {
		statedb.AddAddressToAccessList(tuple.Address)
		for _, key := range tuple.StorageKeys {
			statedb.AddSlotToAccessList(tuple.Address, key)
		}
	}

	// EIP-7702: authorizations are applied before execution begins.
	if msg.TxType == types.SetCodeTxType && len(msg.AuthList) > 0 {
		if err := ProcessAuthorizations(statedb, msg.AuthList, config.ChainID); err != nil {
			return nil, fmt.Errorf("processing authorizations: %w", err)
		}
	}

	var (
		execErr      error
		returnData   []byte
		gasRemaining uint64
		contractAddr types.Address
	)
	if isCreate {
		returnData, contractAddr, gasRemaining, execErr = evm.Create(msg.From, msg.Data, gasLeft, valueOrZero(msg.Value))
	} else {
		returnData, gasRemaining, execErr = evm.Call(msg.From, *msg.To, msg.Data, gasLeft, valueOrZero(msg.Value))
	}

	// EIP-1153: transient storage does not survive the transaction.
	statedb.ClearTransientStorage()

	gasUsed := igas + (gasLeft - gasRemaining)

	// EIP-3529: capped refund (gasUsed/5 from London; gasUsed/2 before).
	quotient := vm.MaxRefundQuotient
	if !rules.IsLondon {
		quotient = vm.RefundQuotientPreLondon
	}
	refund := statedb.GetRefund()
	if maxRefund := gasUsed / quotient; refund > maxRefund {
		refund = maxRefund
	}
	// The counter is per-transaction; drain it so the next transaction in
	// the block starts from zero.
	if r := statedb.GetRefund(); r > 0 {
		statedb.SubRefund(r)
	}
	gasUsed -= refund

	// EIP-7623: calldata floor applies from Prague onward.
	if rules.IsPrague {
		if floor := calldataFloorGas(msg); floor > gasUsed {
			gasUsed = floor
		}
	}

	remainingGas := msg.GasLimit - gasUsed
	if remainingGas > 0 {
		statedb.AddBalance(msg.From, new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(remainingGas)))
	}
	gp.AddGas(remainingGas)

	// Fee settlement: post-London the base fee portion is burned (it was
	// never credited to anyone) and only the tip goes to the coinbase;
	// pre-London the full gas price goes to the coinbase.
	if header.BaseFee != nil && header.BaseFee.Sign() > 0 {
		tip := new(big.Int).Sub(gasPrice, header.BaseFee)
		if tip.Sign() > 0 {
			statedb.AddBalance(header.Coinbase, new(big.Int).Mul(tip, new(big.Int).SetUint64(gasUsed)))
		}
	} else {
		statedb.AddBalance(header.Coinbase, new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasUsed)))
	}

	return &ExecutionResult{
		UsedGas:         gasUsed,
		Err:             execErr,
		ReturnData:      returnData,
		ContractAddress: contractAddr,
	}, nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

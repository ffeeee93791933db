package vm

import (
	"math/big"

	"github.com/ethvm/evm/core/types"
)

// EIP-7708: nonzero ETH transfers emit a LOG3 shaped like an ERC-20
// Transfer event, attributed to the system address. Gated behind
// ForkRules.IsEIP7708, which no shipped chain config sets.

var (
	// SystemAddress is the EIP-4788 system address used as the log emitter.
	SystemAddress = types.HexToAddress("0xfffffffffffffffffffffffffffffffffffffffe")

	// TransferEventTopic is keccak256("Transfer(address,address,uint256)").
	TransferEventTopic = types.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
)

// EmitTransferLog records an ETH transfer log for a nonzero-value CALL,
// CREATE, or SELFDESTRUCT credit.
func EmitTransferLog(statedb StateDB, from, to types.Address, amount *big.Int) {
	if statedb == nil || amount == nil || amount.Sign() <= 0 {
		return
	}

	data := make([]byte, 32)
	amountBytes := amount.Bytes()
	copy(data[32-len(amountBytes):], amountBytes)

	statedb.AddLog(&types.Log{
		Address: SystemAddress,
		Topics: []types.Hash{
			TransferEventTopic,
			addressToTopic(from),
			addressToTopic(to),
		},
		Data: data,
	})
}

// addressToTopic left-pads an address into a 32-byte log topic.
func addressToTopic(addr types.Address) types.Hash {
	var topic types.Hash
	copy(topic[12:], addr[:])
	return topic
}

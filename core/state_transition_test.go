package core

import (
	"math/big"
	"testing"

	"github.com/ethvm/evm/core/state"
	"github.com/ethvm/evm/core/types"
)

func newTestHeader() *types.Header {
	return &types.Header{
		Number:   big.NewInt(1),
		Time:     1000,
		GasLimit: 30_000_000,
		BaseFee:  big.NewInt(1_000_000_000),
		Coinbase: types.HexToAddress("0xc011baae00000000000000000000000000001234"),
	}
}

func newTestMessage(from, to types.Address, value int64, gasLimit uint64) *Message {
	return &Message{
		From:      from,
		To:        &to,
		Value:     big.NewInt(value),
		GasLimit:  gasLimit,
		GasFeeCap: big.NewInt(2_000_000_000),
		GasTipCap: big.NewInt(1_000_000),
	}
}

func TestApplyMessage_SimpleTransfer(t *testing.T) {
	statedb := state.NewMemoryStateDB()
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress("0x2222222222222222222222222222222222222222")

	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000))

	header := newTestHeader()
	msg := newTestMessage(from, to, 1000, 100_000)
	gp := new(GasPool).AddGas(header.GasLimit)

	if err := ValidateMessage(statedb, msg, header, MainnetConfig.Rules(header.Number, header.Time), gp); err != nil {
		t.Fatalf("ValidateMessage: %v", err)
	}

	result, err := ApplyMessage(statedb, msg, header, MainnetConfig, gp, nil)
	if err != nil {
		t.Fatalf("ApplyMessage: %v", err)
	}
	if result.Failed() {
		t.Fatalf("execution failed: %v", result.Err)
	}
	if result.UsedGas != TxGas {
		t.Fatalf("UsedGas = %d, want %d", result.UsedGas, TxGas)
	}
	if got := statedb.GetBalance(to); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("recipient balance = %s, want 1000", got)
	}
}

func TestValidateMessage_NonceTooLow(t *testing.T) {
	statedb := state.NewMemoryStateDB()
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress("0x2222222222222222222222222222222222222222")
	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000))
	statedb.SetNonce(from, 5)

	header := newTestHeader()
	msg := newTestMessage(from, to, 0, 100_000)
	msg.Nonce = 1
	gp := new(GasPool).AddGas(header.GasLimit)

	err := ValidateMessage(statedb, msg, header, MainnetConfig.Rules(header.Number, header.Time), gp)
	if err != ErrNonceTooLow {
		t.Fatalf("err = %v, want ErrNonceTooLow", err)
	}
}

func TestValidateMessage_IntrinsicGasTooLow(t *testing.T) {
	statedb := state.NewMemoryStateDB()
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress("0x2222222222222222222222222222222222222222")
	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000))

	header := newTestHeader()
	msg := newTestMessage(from, to, 0, 1000)
	gp := new(GasPool).AddGas(header.GasLimit)

	err := ValidateMessage(statedb, msg, header, MainnetConfig.Rules(header.Number, header.Time), gp)
	if err != ErrIntrinsicGasTooLow {
		t.Fatalf("err = %v, want ErrIntrinsicGasTooLow", err)
	}
}

func TestValidateMessage_BlobFeeCapTooLow(t *testing.T) {
	statedb := state.NewMemoryStateDB()
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress("0x2222222222222222222222222222222222222222")
	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000))

	header := newTestHeader()
	excess := uint64(10_000_000)
	header.ExcessBlobGas = &excess

	msg := newTestMessage(from, to, 0, 100_000)
	msg.BlobHashes = []types.Hash{{0x01}}
	msg.BlobGasFeeCap = big.NewInt(1)
	gp := new(GasPool).AddGas(header.GasLimit)

	err := ValidateMessage(statedb, msg, header, MainnetConfig.Rules(header.Number, header.Time), gp)
	if err != ErrBlobFeeCapTooLow {
		t.Fatalf("err = %v, want ErrBlobFeeCapTooLow", err)
	}
}

func TestApplyMessage_BlobGasBurned(t *testing.T) {
	statedb := state.NewMemoryStateDB()
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress("0x2222222222222222222222222222222222222222")
	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000_000))

	header := newTestHeader()
	excess := uint64(0)
	header.ExcessBlobGas = &excess

	msg := newTestMessage(from, to, 0, 100_000)
	msg.BlobHashes = []types.Hash{{0x01}}
	msg.BlobGasFeeCap = big.NewInt(1_000_000_000)
	gp := new(GasPool).AddGas(header.GasLimit)

	senderBalanceBefore := statedb.GetBalance(from)
	coinbaseBefore := statedb.GetBalance(header.Coinbase)

	if err := ValidateMessage(statedb, msg, header, MainnetConfig.Rules(header.Number, header.Time), gp); err != nil {
		t.Fatalf("ValidateMessage: %v", err)
	}
	result, err := ApplyMessage(statedb, msg, header, MainnetConfig, gp, nil)
	if err != nil {
		t.Fatalf("ApplyMessage: %v", err)
	}

	blobFee := new(big.Int).Mul(blobBaseFee(header), new(big.Int).SetUint64(blobGasCost(msg)))
	spent := new(big.Int).Sub(senderBalanceBefore, statedb.GetBalance(from))
	if spent.Cmp(blobFee) < 0 {
		t.Fatalf("sender was not charged blob gas: spent %s, want at least %s", spent, blobFee)
	}
	// The coinbase earns exactly the priority fee on the gas used; nothing
	// of the blob fee is added to it.
	coinbaseGain := new(big.Int).Sub(statedb.GetBalance(header.Coinbase), coinbaseBefore)
	tip := new(big.Int).Sub(msgEffectiveGasPrice(msg, header.BaseFee), header.BaseFee)
	tipReward := new(big.Int).Mul(tip, new(big.Int).SetUint64(result.UsedGas))
	if coinbaseGain.Cmp(tipReward) != 0 {
		t.Fatalf("coinbase gain %s, want tip reward %s with blob fee %s burned", coinbaseGain, tipReward, blobFee)
	}
}

func TestCalcBaseFee_StableWhenAtTarget(t *testing.T) {
	parent := &types.Header{
		GasLimit: 30_000_000,
		GasUsed:  15_000_000,
		BaseFee:  big.NewInt(1_000_000_000),
	}
	got := CalcBaseFee(parent)
	if got.Cmp(parent.BaseFee) != 0 {
		t.Fatalf("CalcBaseFee = %s, want unchanged %s", got, parent.BaseFee)
	}
}

func TestCalcBaseFee_RisesWhenAboveTarget(t *testing.T) {
	parent := &types.Header{
		GasLimit: 30_000_000,
		GasUsed:  30_000_000,
		BaseFee:  big.NewInt(1_000_000_000),
	}
	got := CalcBaseFee(parent)
	if got.Cmp(parent.BaseFee) <= 0 {
		t.Fatalf("CalcBaseFee = %s, want > %s", got, parent.BaseFee)
	}
}

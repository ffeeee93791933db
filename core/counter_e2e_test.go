package core

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethvm/evm/core/state"
	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
)

// A hand-assembled counter contract with the Solidity ABI surface:
//
//	get()          selector 0x6d4ce63c  -> returns slot 0 as one word
//	set(uint256)   selector 0x60fe47b1  -> stores the argument at slot 0
//	anything else  (dec)                -> slot0--, Panic(0x11) on underflow
//
// The panic path mirrors what solc emits for checked arithmetic: revert
// with Panic(uint256) selector 0x4e487b71 and code 0x11.
func counterCode() []byte {
	const (
		getDest   = 0x2a
		setDest   = 0x36
		panicDest = 0x3e
	)
	return []byte{
		// Dispatch: selector = calldata[0:4] >> 224.
		byte(vm.PUSH1), 0x00, // 0x00
		byte(vm.CALLDATALOAD),  // 0x02
		byte(vm.PUSH1), 0xe0,   // 0x03
		byte(vm.SHR),           // 0x05
		byte(vm.DUP1),          // 0x06
		byte(vm.PUSH4), 0x6d, 0x4c, 0xe6, 0x3c, // 0x07 get()
		byte(vm.EQ),              // 0x0c
		byte(vm.PUSH1), getDest,  // 0x0d
		byte(vm.JUMPI),           // 0x0f
		byte(vm.DUP1),            // 0x10
		byte(vm.PUSH4), 0x60, 0xfe, 0x47, 0xb1, // 0x11 set(uint256)
		byte(vm.EQ),             // 0x16
		byte(vm.PUSH1), setDest, // 0x17
		byte(vm.JUMPI),          // 0x19
		// dec(): v = slot0; if v == 0 panic; else slot0 = v - 1.
		byte(vm.PUSH1), 0x00, // 0x1a
		byte(vm.SLOAD),            // 0x1c
		byte(vm.DUP1),             // 0x1d
		byte(vm.ISZERO),           // 0x1e
		byte(vm.PUSH1), panicDest, // 0x1f
		byte(vm.JUMPI),            // 0x21
		byte(vm.PUSH1), 0x01,      // 0x22
		byte(vm.SWAP1),            // 0x24
		byte(vm.SUB),              // 0x25
		byte(vm.PUSH1), 0x00,      // 0x26
		byte(vm.SSTORE),           // 0x28
		byte(vm.STOP),             // 0x29
		// get(): return slot 0.
		byte(vm.JUMPDEST),    // 0x2a
		byte(vm.PUSH1), 0x00, // 0x2b
		byte(vm.SLOAD),       // 0x2d
		byte(vm.PUSH1), 0x00, // 0x2e
		byte(vm.MSTORE),      // 0x30
		byte(vm.PUSH1), 0x20, // 0x31
		byte(vm.PUSH1), 0x00, // 0x33
		byte(vm.RETURN),      // 0x35
		// set(x): slot0 = calldata[4:36].
		byte(vm.JUMPDEST),    // 0x36
		byte(vm.PUSH1), 0x04, // 0x37
		byte(vm.CALLDATALOAD), // 0x39
		byte(vm.PUSH1), 0x00,  // 0x3a
		byte(vm.SSTORE),       // 0x3c
		byte(vm.STOP),         // 0x3d
		// Panic(0x11): revert with 0x4e487b71 || uint256(0x11).
		byte(vm.JUMPDEST),                      // 0x3e
		byte(vm.PUSH4), 0x4e, 0x48, 0x7b, 0x71, // 0x3f
		byte(vm.PUSH1), 0xe0, // 0x44
		byte(vm.SHL),         // 0x46
		byte(vm.PUSH1), 0x00, // 0x47
		byte(vm.MSTORE),      // 0x49
		byte(vm.PUSH1), 0x11, // 0x4a
		byte(vm.PUSH1), 0x04, // 0x4c
		byte(vm.MSTORE),      // 0x4e
		byte(vm.PUSH1), 0x24, // 0x4f
		byte(vm.PUSH1), 0x00, // 0x51
		byte(vm.REVERT),      // 0x53
	}
}

func newCounterWorld(t *testing.T) (*state.MemoryStateDB, types.Address, types.Address) {
	t.Helper()
	statedb := state.NewMemoryStateDB()
	sender := types.HexToAddress("0x1111111111111111111111111111111111111111")
	counter := types.HexToAddress("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0")

	statedb.CreateAccount(sender)
	statedb.AddBalance(sender, big.NewInt(1_000_000_000_000_000_000))
	statedb.CreateAccount(counter)
	statedb.SetCode(counter, counterCode())
	return statedb, sender, counter
}

func callCounter(t *testing.T, statedb *state.MemoryStateDB, sender, counter types.Address, data []byte) *ExecutionResult {
	t.Helper()
	header := newTestHeader()
	msg := &Message{
		From:      sender,
		To:        &counter,
		Value:     new(big.Int),
		GasLimit:  200_000,
		GasFeeCap: big.NewInt(2_000_000_000),
		GasTipCap: big.NewInt(1_000_000),
		Data:      data,
	}
	gp := new(GasPool).AddGas(header.GasLimit)
	result, err := ApplyMessage(statedb, msg, header, MainnetConfig, gp, nil)
	if err != nil {
		t.Fatalf("ApplyMessage: %v", err)
	}
	return result
}

func TestCounterGetFresh(t *testing.T) {
	statedb, sender, counter := newCounterWorld(t)

	result := callCounter(t, statedb, sender, counter, []byte{0x6d, 0x4c, 0xe6, 0x3c})
	if result.Failed() {
		t.Fatalf("get() failed: %v", result.Err)
	}
	if len(result.ReturnData) != 32 {
		t.Fatalf("get() returned %d bytes, want 32", len(result.ReturnData))
	}
	if !bytes.Equal(result.ReturnData, make([]byte, 32)) {
		t.Fatalf("get() on fresh contract = %x, want 32 zero bytes", result.ReturnData)
	}

	// 21000 intrinsic + 4 non-zero calldata bytes, plus the dispatch and
	// return sequence with one cold SLOAD and one word of memory growth.
	const (
		intrinsic = 21000 + 4*16
		dispatch  = 3 + 3 + 3 + 3 + 3 + 3 + 3 + 3 + 10       // through the taken JUMPI
		getBody   = 1 + 3 + 2100 + 3 + 3 + 3 + 3 + 3 + 0     // JUMPDEST..RETURN, cold slot, 1-word MSTORE
	)
	if want := uint64(intrinsic + dispatch + getBody); result.UsedGas != want {
		t.Fatalf("get() UsedGas = %d, want %d", result.UsedGas, want)
	}
}

func TestCounterSet(t *testing.T) {
	statedb, sender, counter := newCounterWorld(t)

	arg := make([]byte, 32)
	arg[31] = 0x42
	data := append([]byte{0x60, 0xfe, 0x47, 0xb1}, arg...)

	result := callCounter(t, statedb, sender, counter, data)
	if result.Failed() {
		t.Fatalf("set(0x42) failed: %v", result.Err)
	}
	if len(result.ReturnData) != 0 {
		t.Fatalf("set(0x42) returned %x, want empty", result.ReturnData)
	}

	var slot0 types.Hash
	got := statedb.GetState(counter, slot0)
	var want types.Hash
	want[31] = 0x42
	if got != want {
		t.Fatalf("slot 0 = %x, want %x", got, want)
	}
}

func TestCounterDecUnderflowPanics(t *testing.T) {
	statedb, sender, counter := newCounterWorld(t)

	// Any unknown selector falls through to dec(); slot 0 is still zero.
	result := callCounter(t, statedb, sender, counter, []byte{0xde, 0xad, 0xbe, 0xef})
	if !result.Failed() {
		t.Fatal("dec() on zero counter should revert")
	}
	if !errors.Is(result.Err, vm.ErrExecutionReverted) {
		t.Fatalf("dec() error = %v, want ErrExecutionReverted", result.Err)
	}

	want := make([]byte, 36)
	copy(want, []byte{0x4e, 0x48, 0x7b, 0x71})
	want[35] = 0x11
	if !bytes.Equal(result.Revert(), want) {
		t.Fatalf("revert data = %x, want %x (Panic(0x11))", result.Revert(), want)
	}

	// The reverted frame must not have touched storage.
	var slot0 types.Hash
	if got := statedb.GetState(counter, slot0); got != (types.Hash{}) {
		t.Fatalf("slot 0 after reverted dec() = %x, want zero", got)
	}
}

func TestCounterSetThenDec(t *testing.T) {
	statedb, sender, counter := newCounterWorld(t)

	arg := make([]byte, 32)
	arg[31] = 0x02
	if result := callCounter(t, statedb, sender, counter, append([]byte{0x60, 0xfe, 0x47, 0xb1}, arg...)); result.Failed() {
		t.Fatalf("set(2) failed: %v", result.Err)
	}
	if result := callCounter(t, statedb, sender, counter, []byte{0xde, 0xad, 0xbe, 0xef}); result.Failed() {
		t.Fatalf("dec() failed: %v", result.Err)
	}

	var slot0 types.Hash
	var want types.Hash
	want[31] = 0x01
	if got := statedb.GetState(counter, slot0); got != want {
		t.Fatalf("slot 0 = %x, want %x", got, want)
	}
}

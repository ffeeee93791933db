// Package tracing defines the streaming per-opcode trace sink the
// interpreter invokes after every instruction. A sink must never be
// retained by the interpreter across steps and must do O(1) work per
// call: some transactions emit hundreds of thousands of records, so an
// accumulating buffer owned by the core would make large traces
// unworkable.
package tracing

import (
	"math/big"

	"github.com/ethvm/evm/core/types"
)

// StepRecord is the per-opcode snapshot handed to a Sink. Fields are
// reused by value; a Sink that needs to retain data across the call must
// copy slices it keeps (Stack, Memory).
type StepRecord struct {
	PC         uint64
	Op         byte
	OpName     string
	Gas        uint64
	GasCost    uint64
	Depth      int
	Stack      []*big.Int
	Memory     []byte
	Contract   types.Address
	Err        error
	RefundSize uint64
}

// Sink receives one StepRecord per executed opcode. Implementations must
// be safe to call synchronously from the interpreter's hot loop and must
// not block on I/O that depends on interpreter progress (that would
// deadlock a single-threaded embedding).
type Sink interface {
	OnStep(record StepRecord)
}

// NullSink discards every record; it is the zero-overhead default when no
// tracing is requested.
type NullSink struct{}

func (NullSink) OnStep(StepRecord) {}

package vm

import (
	"math/big"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/tracing"
)

// SinkLogger bridges the interpreter's EVMLogger hooks onto a streaming
// tracing.Sink: one StepRecord per executed opcode, handed to the sink
// synchronously and never retained. Stack snapshots are copied top-first;
// the memory snapshot is a copy of the frame's current memory.
type SinkLogger struct {
	sink     tracing.Sink
	contract types.Address
}

// NewSinkLogger returns an EVMLogger forwarding every step to sink.
func NewSinkLogger(sink tracing.Sink) *SinkLogger {
	return &SinkLogger{sink: sink}
}

func (l *SinkLogger) CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *big.Int) {
	l.contract = to
}

func (l *SinkLogger) CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, memory *Memory, depth int, err error) {
	rec := tracing.StepRecord{
		PC:       pc,
		Op:       byte(op),
		OpName:   op.String(),
		Gas:      gas,
		GasCost:  cost,
		Depth:    depth,
		Contract: l.contract,
		Err:      err,
	}
	if stack != nil {
		data := stack.Data()
		rec.Stack = make([]*big.Int, len(data))
		for i, v := range data {
			// Reverse so the top of the stack comes first.
			rec.Stack[i] = new(big.Int).Set(data[len(data)-1-i])
		}
	}
	if memory != nil && memory.Len() > 0 {
		rec.Memory = make([]byte, memory.Len())
		copy(rec.Memory, memory.Data())
	}
	l.sink.OnStep(rec)
}

func (l *SinkLogger) CaptureEnd(output []byte, gasUsed uint64, err error) {}

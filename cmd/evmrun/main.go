// Command evmrun wires a fixture world-state oracle, a single transaction,
// and a block context together and runs it through the EVM, printing the
// execution result. It exists to demonstrate the external interface of
// this module's core; it is not itself in scope for correctness testing.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethvm/evm/core"
	"github.com/ethvm/evm/core/state"
	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
	"github.com/ethvm/evm/tracing"
)

func main() {
	app := &cli.App{
		Name:  "evmrun",
		Usage: "execute a single synthetic transaction against an in-memory world state",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "recipient address (20-byte hex)", Value: "0x2222222222222222222222222222222222222222"},
			&cli.Int64Flag{Name: "value", Usage: "wei to transfer", Value: 1000},
			&cli.Uint64Flag{Name: "gas", Usage: "gas limit", Value: 100_000},
			&cli.BoolFlag{Name: "trace", Usage: "stream a JSON record per opcode to stderr"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "evmrun:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	from := types.HexToAddress("0x1111111111111111111111111111111111111111")
	to := types.HexToAddress(c.String("to"))

	statedb := state.NewMemoryStateDB()
	statedb.CreateAccount(from)
	statedb.AddBalance(from, big.NewInt(1_000_000_000_000_000))

	header := &types.Header{
		Number:   big.NewInt(1),
		Time:     1000,
		GasLimit: 30_000_000,
		BaseFee:  big.NewInt(1_000_000_000),
		Coinbase: types.HexToAddress("0x3333333333333333333333333333333333333333"),
	}

	msg := &core.Message{
		From:      from,
		To:        &to,
		Value:     big.NewInt(c.Int64("value")),
		GasLimit:  c.Uint64("gas"),
		GasFeeCap: big.NewInt(2_000_000_000),
		GasTipCap: big.NewInt(1_000_000),
	}

	gp := new(core.GasPool).AddGas(header.GasLimit)
	rules := core.MainnetConfig.Rules(header.Number, header.Time)

	if err := core.ValidateMessage(statedb, msg, header, rules, gp); err != nil {
		return fmt.Errorf("validating message: %w", err)
	}
	var tracer vm.EVMLogger
	if c.Bool("trace") {
		tracer = vm.NewSinkLogger(tracing.NewJSONSink(os.Stderr))
	}
	result, err := core.ApplyMessageWithTracer(statedb, msg, header, core.MainnetConfig, gp, nil, tracer)
	if err != nil {
		return fmt.Errorf("applying message: %w", err)
	}

	fmt.Printf("usedGas=%d failed=%v returnData=%x\n", result.UsedGas, result.Failed(), result.ReturnData)
	return nil
}

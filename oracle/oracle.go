// Package oracle defines the external world-state capability the EVM
// interpreter depends on but never implements: code, balance, nonce,
// storage, and block-header lookups by address/key/number. All real I/O
// (JSON-RPC fetchers, on-disk replay harnesses) lives outside this module;
// this package only specifies the contract and ships an in-memory fixture
// used by tests.
package oracle

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/crypto"
)

// ErrNotFound is returned by a WorldState when no data exists for a query.
// Callers generally treat this the same as a zero-value account per
// EIP-161, not as a fatal condition; only the oracle call itself failing
// for transport/context reasons is transaction-fatal.
var ErrNotFound = errors.New("oracle: not found")

// WorldState is the abstract external state surface the interpreter reads
// through. Every method takes a context so that a caller driving many
// concurrent transactions (e.g. a WASM host polling several executions)
// can cancel an in-flight fetch without tearing down the whole process.
type WorldState interface {
	GetBlockHeader(ctx context.Context, number uint64) (*types.Header, error)
	GetCode(ctx context.Context, addr types.Address) ([]byte, error)
	GetCodeHash(ctx context.Context, addr types.Address) (types.Hash, error)
	GetBalance(ctx context.Context, addr types.Address) (*big.Int, error)
	GetNonce(ctx context.Context, addr types.Address) (uint64, error)
	GetStorage(ctx context.Context, addr types.Address, key types.Hash) (types.Hash, error)
}

// FixtureOracle is an in-memory WorldState backed by plain maps. It is the
// only WorldState implementation this module ships; JSON-RPC-backed
// implementations are a deployment concern outside this module's scope.
type FixtureOracle struct {
	headers map[uint64]*types.Header
	code    map[types.Address][]byte
	balance map[types.Address]*big.Int
	nonce   map[types.Address]uint64
	storage map[types.Address]map[types.Hash]types.Hash
}

// NewFixtureOracle returns an empty fixture; use the Set* methods to seed it.
func NewFixtureOracle() *FixtureOracle {
	return &FixtureOracle{
		headers: make(map[uint64]*types.Header),
		code:    make(map[types.Address][]byte),
		balance: make(map[types.Address]*big.Int),
		nonce:   make(map[types.Address]uint64),
		storage: make(map[types.Address]map[types.Hash]types.Hash),
	}
}

func (f *FixtureOracle) SetHeader(number uint64, h *types.Header) { f.headers[number] = h }
func (f *FixtureOracle) SetCode(addr types.Address, code []byte) { f.code[addr] = code }
func (f *FixtureOracle) SetBalance(addr types.Address, bal *big.Int) {
	f.balance[addr] = new(big.Int).Set(bal)
}
func (f *FixtureOracle) SetNonce(addr types.Address, nonce uint64) { f.nonce[addr] = nonce }
func (f *FixtureOracle) SetStorage(addr types.Address, key, value types.Hash) {
	slots, ok := f.storage[addr]
	if !ok {
		slots = make(map[types.Hash]types.Hash)
		f.storage[addr] = slots
	}
	slots[key] = value
}

func (f *FixtureOracle) GetBlockHeader(ctx context.Context, number uint64) (*types.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, ok := f.headers[number]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (f *FixtureOracle) GetCode(ctx context.Context, addr types.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.code[addr], nil
}

func (f *FixtureOracle) GetCodeHash(ctx context.Context, addr types.Address) (types.Hash, error) {
	code, err := f.GetCode(ctx, addr)
	if err != nil {
		return types.Hash{}, err
	}
	if len(code) == 0 {
		return types.EmptyCodeHash, nil
	}
	return crypto.Keccak256Hash(code), nil
}

func (f *FixtureOracle) GetBalance(ctx context.Context, addr types.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bal, ok := f.balance[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (f *FixtureOracle) GetNonce(ctx context.Context, addr types.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.nonce[addr], nil
}

func (f *FixtureOracle) GetStorage(ctx context.Context, addr types.Address, key types.Hash) (types.Hash, error) {
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	return f.storage[addr][key], nil
}

package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethvm/evm/core/types"
	"github.com/ethvm/evm/core/vm"
	"github.com/ethvm/evm/crypto"
	"github.com/ethvm/evm/rlp"
)

var (
	ErrAuthChainID    = errors.New("authorization chain ID mismatch")
	ErrAuthNonce      = errors.New("authorization nonce mismatch")
	ErrAuthSignature  = errors.New("authorization signature recovery failed")
	ErrAuthInvalidSig = errors.New("authorization signature values invalid")
)

// ProcessAuthorizations processes EIP-7702 authorization entries for a
// SetCode transaction. For each authorization, it verifies the chain ID,
// nonce, and signature, then sets the signer's code to a delegation
// designator pointing at the authorized address.
//
// Per EIP-7702, invalid authorizations are skipped rather than failing the
// transaction as a whole.
func ProcessAuthorizations(statedb vm.StateDB, authorizations []types.Authorization, chainID *big.Int) error {
	for i := range authorizations {
		_ = processOneAuthorization(statedb, &authorizations[i], chainID)
	}
	return nil
}

func processOneAuthorization(statedb vm.StateDB, auth *types.Authorization, chainID *big.Int) error {
	if auth.ChainID != nil && auth.ChainID.Sign() != 0 {
		if chainID == nil || auth.ChainID.Cmp(chainID) != 0 {
			return ErrAuthChainID
		}
	}

	v := byte(0)
	if auth.V != nil {
		if !auth.V.IsUint64() || auth.V.Uint64() > 1 {
			return ErrAuthInvalidSig
		}
		v = byte(auth.V.Uint64())
	}
	if !crypto.ValidateSignatureValues(v, auth.R, auth.S, true) {
		return ErrAuthInvalidSig
	}

	authHash, err := computeAuthorizationHash(auth)
	if err != nil {
		return fmt.Errorf("encoding authorization: %w", err)
	}

	sig := make([]byte, 65)
	if auth.R != nil {
		rBytes := auth.R.Bytes()
		copy(sig[32-len(rBytes):32], rBytes)
	}
	if auth.S != nil {
		sBytes := auth.S.Bytes()
		copy(sig[64-len(sBytes):64], sBytes)
	}
	sig[64] = v

	pubBytes, err := crypto.Ecrecover(authHash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthSignature, err)
	}

	signerAddr := types.BytesToAddress(crypto.Keccak256(pubBytes[1:])[12:])

	currentNonce := statedb.GetNonce(signerAddr)
	if auth.Nonce != currentNonce {
		return ErrAuthNonce
	}

	if (auth.Address == types.Address{}) {
		// A delegation to the zero address clears any existing designator
		// rather than installing one pointing at the zero address.
		statedb.SetCode(signerAddr, nil)
	} else {
		statedb.SetCode(signerAddr, types.AddressToDelegation(auth.Address))
	}
	statedb.SetNonce(signerAddr, currentNonce+1)

	return nil
}

// authorizationRLP mirrors the [chain_id, address, nonce] tuple that gets
// RLP-encoded and hashed to produce an EIP-7702 authorization's signing hash.
type authorizationRLP struct {
	ChainID *big.Int
	Address types.Address
	Nonce   uint64
}

// computeAuthorizationHash computes the EIP-7702 authorization signing hash:
// keccak256(0x05 || rlp([chain_id, address, nonce])).
func computeAuthorizationHash(auth *types.Authorization) ([]byte, error) {
	chainID := auth.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	payload, err := rlp.EncodeToBytes(authorizationRLP{
		ChainID: chainID,
		Address: auth.Address,
		Nonce:   auth.Nonce,
	})
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, 1+len(payload))
	msg = append(msg, types.AuthMagic)
	msg = append(msg, payload...)
	return crypto.Keccak256(msg), nil
}

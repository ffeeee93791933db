package core

import (
	"math/big"

	"github.com/ethvm/evm/core/types"
)

// Message is the canonical, decoded view of a transaction that the EVM
// processor consumes. It flattens the differences between legacy,
// access-list, dynamic-fee, blob, and set-code transaction encodings.
type Message struct {
	From          types.Address
	To            *types.Address
	Nonce         uint64
	Value         *big.Int
	GasLimit      uint64
	GasPrice      *big.Int
	GasFeeCap     *big.Int
	GasTipCap     *big.Int
	Data          []byte
	AccessList    types.AccessList
	BlobHashes    []types.Hash
	BlobGasFeeCap *big.Int
	AuthList      []types.Authorization
	TxType        uint8
}

// TransactionToMessage converts a signed transaction into a Message. The
// sender must already have been recovered and attached via tx.SetSender.
func TransactionToMessage(tx *types.Transaction) Message {
	msg := Message{
		Nonce:         tx.Nonce(),
		GasLimit:      tx.Gas(),
		GasPrice:      tx.GasPrice(),
		GasFeeCap:     tx.GasFeeCap(),
		GasTipCap:     tx.GasTipCap(),
		To:            tx.To(),
		Value:         tx.Value(),
		Data:          tx.Data(),
		AccessList:    tx.AccessList(),
		BlobHashes:    tx.BlobHashes(),
		BlobGasFeeCap: tx.BlobGasFeeCap(),
		AuthList:      tx.AuthorizationList(),
		TxType:        tx.Type(),
	}
	if sender := tx.Sender(); sender != nil {
		msg.From = *sender
	}
	return msg
}

package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxPlan is a fully prepared but unsigned transaction for one opportunity.
type TxPlan struct {
	OpportunityID string
	To            common.Address // executor contract
	CallData      []byte
	Encoder       string // name of the encoder that produced CallData
	FeeTier       int    // pool fee tier baked into the call
	GasLimit      uint64 // node estimate inflated by the safety factor
	GasPrice      *big.Int
	Nonce         uint64
	Value         *big.Int
	BuiltAt       time.Time
}

// SentTx describes a broadcast transaction with the values actually used
// after pre-send reconciliation.
type SentTx struct {
	Hash     common.Hash
	Nonce    uint64
	GasPrice *big.Int
	// AlreadyKnown is set when the node reported it had the transaction
	// already; the broadcast is treated as successful.
	AlreadyKnown bool
	SentAt       time.Time
}

// Confirmation is the result of waiting for a receipt.
type Confirmation struct {
	TxHash         common.Hash
	TimedOut       bool
	Status         uint64 // receipt status; valid only when !TimedOut
	BlockNumber    uint64
	GasUsed        uint64
	EffectivePrice *big.Int
	Logs           []*types.Log
	Waited         time.Duration
}

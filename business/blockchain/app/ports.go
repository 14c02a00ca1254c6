// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sumitrevolt/flasharb/business/blockchain/domain"
)

// ChainClient defines node access for both reads and transaction submission.
// Read operations route through a circuit breaker; SendTransaction never does,
// so a tripped breaker cannot drop a transaction that was already built.
type ChainClient interface {
	// Connect establishes the node connection and verifies the chain ID.
	Connect(ctx context.Context) error

	// ChainID returns the connected chain's ID.
	ChainID(ctx context.Context) (*big.Int, error)

	// BalanceAt returns the latest balance of an account.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// PendingNonceAt returns the next nonce including pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// NonceAt returns the confirmed nonce at the latest block.
	NonceAt(ctx context.Context, account common.Address) (uint64, error)

	// SuggestGasPrice returns the node's suggested gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// CodeAt returns the contract code at the given address.
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)

	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	// EstimateGas estimates the gas needed for the given call.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// SendTransaction broadcasts a signed transaction.
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// TransactionReceipt returns the receipt for a mined transaction.
	// Returns ethereum.NotFound (wrapped) while the transaction is pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Close releases the connection.
	Close() error
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, from common.Address, to common.Address, data []byte) (uint64, error)
}

// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sumitrevolt/flasharb/business/blockchain/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
)

// ChainService coordinates node access for other contexts.
type ChainService struct {
	client    ChainClient
	gasOracle GasOracle
}

// NewChainService creates a new ChainService.
func NewChainService(client ChainClient, gasOracle GasOracle) *ChainService {
	return &ChainService{
		client:    client,
		gasOracle: gasOracle,
	}
}

// Client returns the underlying chain client.
func (s *ChainService) Client() ChainClient {
	return s.client
}

// GetGasPrice retrieves the current gas price.
func (s *ChainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// EnsureContract verifies that contract code exists at the given address.
func (s *ChainService) EnsureContract(ctx context.Context, addr common.Address) error {
	code, err := s.client.CodeAt(ctx, addr)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return apperror.New(apperror.CodeContractNotDeployed,
			apperror.WithContext(fmt.Sprintf("no code at %s", addr.Hex())))
	}
	return nil
}

// Balance returns the latest balance of an account.
func (s *ChainService) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.client.BalanceAt(ctx, account)
}

// ConnectionState returns the current connection state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.client.State()
}

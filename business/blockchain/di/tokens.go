// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("blockchain.ChainService")
	ChainClient  = di.NewToken[app.ChainClient]("blockchain.ChainClient")
	GasOracle    = di.NewToken[app.GasOracle]("blockchain.GasOracle")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetChainClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, ChainClient)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

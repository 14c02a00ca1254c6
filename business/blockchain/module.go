// Package blockchain implements the blockchain bounded context for Ethereum node access.
package blockchain

import (
	"context"

	"github.com/sumitrevolt/flasharb/business/blockchain/app"
	blockchainDI "github.com/sumitrevolt/flasharb/business/blockchain/di"
	"github.com/sumitrevolt/flasharb/business/blockchain/infra/ethereum"
	"github.com/sumitrevolt/flasharb/internal/config"
	"github.com/sumitrevolt/flasharb/internal/di"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ChainClient (public - other contexts submit transactions through it)
	di.RegisterToken(c, blockchainDI.ChainClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := ethereum.DefaultClientConfig(cfg.Ethereum.HTTPURL)
		clientCfg.ExpectedChainID = cfg.Ethereum.ChainID

		client, err := ethereum.NewClient(clientCfg, log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	// Register GasOracle (public - the execution gate and builder read
	// prices through its cache)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)

		// The oracle's clamp is a sanity bound only. The executor's gas
		// price ceiling is enforced by the execution gate, which must see
		// the real network price to reject it.
		oracleCfg := ethereum.DefaultGasOracleConfig()

		oracle, err := ethereum.NewGasOracle(oracleCfg, blockchainDI.GetChainClient(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		client := blockchainDI.GetChainClient(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		return app.NewChainService(client, oracle)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	client := blockchainDI.GetChainClient(mono.Services())
	if err := client.Connect(ctx); err != nil {
		return err
	}

	// Verify the executor contract is deployed before accepting work.
	svc := blockchainDI.GetChainService(mono.Services())
	contractAddr := mono.Config().Executor.ContractAddressHex()
	if err := svc.EnsureContract(ctx, contractAddr); err != nil {
		return err
	}

	log.Info(ctx, "blockchain module started", "contract", contractAddr.Hex())
	return nil
}

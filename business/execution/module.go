// Package execution implements the execution bounded context: gating,
// decision-time verification, transaction build/sign/send, confirmation,
// outcome classification, and the execution history.
package execution

import (
	"context"
	"math/big"

	blockchainDI "github.com/sumitrevolt/flasharb/business/blockchain/di"
	"github.com/sumitrevolt/flasharb/business/execution/app"
	executionDI "github.com/sumitrevolt/flasharb/business/execution/di"
	"github.com/sumitrevolt/flasharb/business/execution/infra/contract"
	"github.com/sumitrevolt/flasharb/business/execution/infra/history"
	"github.com/sumitrevolt/flasharb/business/execution/infra/report"
	pricingDI "github.com/sumitrevolt/flasharb/business/pricing/di"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/config"
	"github.com/sumitrevolt/flasharb/internal/di"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/monolith"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Encoder fallback chain (private)
	di.RegisterToken(c, executionDI.Encoders, func(sr di.ServiceRegistry) []app.PlanEncoder {
		venues := sr.Get("venueRegistry").(*venue.Registry)
		return contract.DefaultEncoders(venues)
	})

	// Builder (private)
	di.RegisterToken(c, executionDI.Builder, func(sr di.ServiceRegistry) *app.Builder {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		venues := sr.Get("venueRegistry").(*venue.Registry)
		assets := sr.Get("assetRegistry").(*asset.Registry)
		client := blockchainDI.GetChainClient(sr)
		gas := blockchainDI.GetGasOracle(sr)
		sender := executionDI.GetSender(sr)

		builder, err := app.NewBuilder(client, gas, venues, assets, executionDI.GetEncoders(sr), app.BuilderConfig{
			ChainID:         cfg.Ethereum.ChainID,
			Contract:        cfg.Executor.ContractAddressHex(),
			From:            sender.From(),
			DefaultGasLimit: cfg.Executor.DefaultGasLimit,
			MaxGasPrice:     cfg.Executor.MaxGasPriceWei(),
		}, log)
		if err != nil {
			panic("failed to create builder: " + err.Error())
		}
		return builder
	})

	// Sender (private). The signing key is parsed here and lives only
	// inside the Sender.
	di.RegisterToken(c, executionDI.Sender, func(sr di.ServiceRegistry) *app.Sender {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := blockchainDI.GetChainClient(sr)

		sender, err := app.NewSender(client, cfg.Wallet.PrivateKey, cfg.Wallet.Address,
			new(big.Int).SetUint64(cfg.Ethereum.ChainID), log)
		if err != nil {
			panic("failed to create sender: " + err.Error())
		}
		return sender
	})

	// Waiter (private)
	di.RegisterToken(c, executionDI.Waiter, func(sr di.ServiceRegistry) *app.Waiter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := blockchainDI.GetChainClient(sr)

		waiterCfg := app.DefaultWaiterConfig()
		if cfg.Executor.ConfirmTimeout > 0 {
			waiterCfg.Timeout = cfg.Executor.ConfirmTimeout
		}
		if cfg.Executor.ReceiptPollEvery > 0 {
			waiterCfg.PollEvery = cfg.Executor.ReceiptPollEvery
		}
		return app.NewWaiter(client, waiterCfg, log)
	})

	// Classifier (private)
	di.RegisterToken(c, executionDI.Classifier, func(sr di.ServiceRegistry) *app.Classifier {
		cfg := sr.Get("config").(*config.Config)
		return app.NewClassifier(cfg.Executor.ContractAddressHex())
	})

	// History store (private). An empty path disables persistence.
	di.RegisterToken(c, executionDI.HistoryStore, func(sr di.ServiceRegistry) app.HistoryStore {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Executor.HistoryDB == "" {
			return nil
		}
		store, err := history.NewSQLiteStore(cfg.Executor.HistoryDB, log)
		if err != nil {
			panic("failed to open history store: " + err.Error())
		}
		return store
	})

	// Tracker (public)
	di.RegisterToken(c, executionDI.Tracker, func(sr di.ServiceRegistry) *app.Tracker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		tracker, err := app.NewTracker(cfg.Executor.HistoryCap, executionDI.GetHistoryStore(sr), log)
		if err != nil {
			panic("failed to create tracker: " + err.Error())
		}
		return tracker
	})

	// Reporters (private)
	di.RegisterToken(c, executionDI.Reporters, func(sr di.ServiceRegistry) []app.Reporter {
		return []app.Reporter{report.NewConsoleReporter()}
	})

	// Orchestrator (public - exposed to other modules)
	di.RegisterToken(c, executionDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		allowedTokens := make(map[string]struct{}, len(cfg.Executor.AllowedTokens))
		for _, s := range cfg.Executor.AllowedTokens {
			allowedTokens[s] = struct{}{}
		}
		allowedVenues := make(map[string]struct{}, len(cfg.Executor.AllowedVenues))
		for _, s := range cfg.Executor.AllowedVenues {
			allowedVenues[s] = struct{}{}
		}

		orch, err := app.NewOrchestrator(app.OrchestratorConfig{
			ChainID:         cfg.Ethereum.ChainID,
			AllowedTokens:   allowedTokens,
			AllowedVenues:   allowedVenues,
			MinProfitUSD:    cfg.Executor.MinProfitUSDDecimal(),
			MaxTradeSizeUSD: cfg.Executor.MaxTradeSizeUSDDecimal(),
			MaxGasPriceWei:  cfg.Executor.MaxGasPriceWei(),
			GasBudgetGas:    cfg.Executor.DefaultGasLimit,
			RetryCap:        cfg.Executor.RetryCap,
		},
			pricingDI.GetPricingService(sr),
			blockchainDI.GetChainClient(sr),
			blockchainDI.GetGasOracle(sr),
			assets,
			executionDI.GetBuilder(sr),
			executionDI.GetSender(sr),
			executionDI.GetWaiter(sr),
			executionDI.GetClassifier(sr),
			executionDI.GetTracker(sr),
			executionDI.GetReporters(sr),
			log,
		)
		if err != nil {
			panic("failed to create orchestrator: " + err.Error())
		}
		return orch
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	// Force construction so configuration errors (a bad key, a missing
	// contract) surface at startup, not on the first opportunity.
	orch := executionDI.GetOrchestrator(mono.Services())
	_ = orch

	client := blockchainDI.GetChainClient(mono.Services())
	sender := executionDI.GetSender(mono.Services())

	// The blockchain module has already verified the executor contract is
	// deployed; surface the wallet's funding level here.
	if balance, err := client.BalanceAt(ctx, sender.From()); err != nil {
		log.Warn(ctx, "could not read wallet balance at startup", "error", err)
	} else {
		log.Info(ctx, "wallet balance",
			"wallet", sender.From().Hex(),
			"balance_wei", balance.String(),
		)
	}

	log.Info(ctx, "execution module started",
		"wallet", sender.From().Hex(),
		"contract", cfg.Executor.ContractAddressHex().Hex(),
	)
	return nil
}

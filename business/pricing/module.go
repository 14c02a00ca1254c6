// Package pricing implements the pricing bounded context: decision-time venue
// quotes, spread verification, and USD reference prices.
package pricing

import (
	"context"
	"time"

	blockchainDI "github.com/sumitrevolt/flasharb/business/blockchain/di"
	"github.com/sumitrevolt/flasharb/business/pricing/app"
	pricingDI "github.com/sumitrevolt/flasharb/business/pricing/di"
	"github.com/sumitrevolt/flasharb/business/pricing/infra/binance"
	"github.com/sumitrevolt/flasharb/business/pricing/infra/uniswap"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/config"
	"github.com/sumitrevolt/flasharb/internal/di"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/monolith"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register venue quoters (private - one per allowed venue)
	di.RegisterToken(c, pricingDI.VenueQuoters, func(sr di.ServiceRegistry) []app.VenueQuoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		venues := sr.Get("venueRegistry").(*venue.Registry)
		assets := sr.Get("assetRegistry").(*asset.Registry)
		client := blockchainDI.GetChainClient(sr)

		quoters := make([]app.VenueQuoter, 0, len(cfg.Executor.AllowedVenues))
		for _, id := range cfg.Executor.AllowedVenues {
			v, ok := venues.Get(id)
			if !ok {
				panic("allowed venue not in registry: " + id)
			}
			q, err := uniswap.NewQuoter(client, v, assets, log)
			if err != nil {
				panic("failed to create quoter for " + id + ": " + err.Error())
			}
			quoters = append(quoters, q)
		}
		return quoters
	})

	// Register Verifier (private)
	di.RegisterToken(c, pricingDI.Verifier, func(sr di.ServiceRegistry) *app.Verifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		verifierCfg := app.DefaultVerifierConfig()
		verifierCfg.MinSpreadPct = cfg.Executor.MinSpreadPctDecimal()

		return app.NewVerifier(verifierCfg, pricingDI.GetVenueQuoters(sr), log)
	})

	// Register SpotFeed (private)
	di.RegisterToken(c, pricingDI.SpotFeed, func(sr di.ServiceRegistry) app.SpotPriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		streamCfg := binance.DefaultClientConfig(cfg.PriceFeed.Symbols)
		if cfg.PriceFeed.WebSocketURL != "" {
			streamCfg.BaseURL = cfg.PriceFeed.WebSocketURL
		}
		stream, err := binance.NewClient(streamCfg, log)
		if err != nil {
			panic("failed to create binance stream: " + err.Error())
		}

		restCfg := binance.DefaultHTTPClientConfig()
		if cfg.PriceFeed.RESTURL != "" {
			restCfg.BaseURL = cfg.PriceFeed.RESTURL
		}
		rest, err := binance.NewHTTPClient(restCfg, log)
		if err != nil {
			panic("failed to create binance REST client: " + err.Error())
		}

		return binance.NewSpotFeed(stream, rest, cfg.PriceFeed.CacheTTL, log)
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		verifier := pricingDI.GetVerifier(sr)
		spot := pricingDI.GetSpotFeed(sr)
		return app.NewPricingService(verifier, spot)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Connect the spot feed stream. Startup never blocks on it: the REST
	// fallback serves prices until the stream comes up.
	spot := pricingDI.GetSpotFeed(mono.Services())
	if starter, ok := spot.(interface{ Start(context.Context) error }); ok {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := starter.Start(connectCtx); err != nil {
			log.Warn(ctx, "spot feed connection failed, REST fallback active", "error", err)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
						if err := starter.Start(ctx); err != nil {
							log.Warn(ctx, "spot feed retry failed", "error", err)
						} else {
							log.Info(ctx, "spot feed connected")
							return
						}
					}
				}
			}()
		}
	}

	log.Info(ctx, "pricing module started")
	return nil
}

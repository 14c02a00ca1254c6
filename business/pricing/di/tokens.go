// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/sumitrevolt/flasharb/business/pricing/app"
	"github.com/sumitrevolt/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	VenueQuoters = di.NewToken[[]app.VenueQuoter]("pricing:venueQuoters")
	Verifier     = di.NewToken[*app.Verifier]("pricing:verifier")
	SpotFeed     = di.NewToken[app.SpotPriceSource]("pricing:spotFeed")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetVenueQuoters(c di.ServiceRegistry) []app.VenueQuoter {
	return di.GetToken(c, VenueQuoters)
}

func GetVerifier(c di.ServiceRegistry) *app.Verifier {
	return di.GetToken(c, Verifier)
}

func GetSpotFeed(c di.ServiceRegistry) app.SpotPriceSource {
	return di.GetToken(c, SpotFeed)
}

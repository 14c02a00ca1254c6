package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/ratelimit"
)

const tracerName = "flasharb/pricing"

// VerifierConfig holds price verification tunables.
type VerifierConfig struct {
	MinSpreadPct    decimal.Decimal // minimum live round-trip spread, percent
	MaxQuoteAge     time.Duration   // quotes older than this are stale
	QuotesPerMinute int             // quoter rate limit
}

// DefaultVerifierConfig returns sensible defaults.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		MinSpreadPct:    decimal.RequireFromString("0.5"),
		MaxQuoteAge:     10 * time.Second,
		QuotesPerMinute: 120,
	}
}

// Verifier re-quotes both legs of an opportunity at decision time. It fails
// closed: any quote error, stale quote, or unknown venue rejects the
// opportunity rather than letting it through.
type Verifier struct {
	config  VerifierConfig
	quoters map[string]VenueQuoter // keyed by venue id
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewVerifier creates a Verifier over the given quoters.
func NewVerifier(cfg VerifierConfig, quoters []VenueQuoter, log logger.LoggerInterface) *Verifier {
	byID := make(map[string]VenueQuoter, len(quoters))
	for _, q := range quoters {
		byID[q.Venue().ID()] = q
	}

	return &Verifier{
		config:  cfg,
		quoters: byID,
		limiter: ratelimit.New(cfg.QuotesPerMinute),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
}

// Verify re-quotes the buy leg on buyVenueID and the sell leg on sellVenueID
// for an exact-input round trip of amountIn. The returned Verification's
// Passed field reports whether the live spread clears the configured minimum.
// A non-nil error means verification itself could not complete and the
// opportunity must be rejected.
func (v *Verifier) Verify(ctx context.Context, buyVenueID, sellVenueID string, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Verification, error) {
	ctx, span := v.tracer.Start(ctx, "pricing.verify",
		trace.WithAttributes(
			attribute.String("buy_venue", buyVenueID),
			attribute.String("sell_venue", sellVenueID),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	if amountIn == nil || amountIn.Sign() <= 0 {
		err := apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("amount in must be positive"))
		span.RecordError(err)
		return nil, err
	}

	buyQuoter, ok := v.quoters[buyVenueID]
	if !ok {
		err := apperror.New(apperror.CodeUnknownVenue,
			apperror.WithContext(fmt.Sprintf("no quoter for venue %q", buyVenueID)))
		span.RecordError(err)
		return nil, err
	}
	sellQuoter, ok := v.quoters[sellVenueID]
	if !ok {
		err := apperror.New(apperror.CodeUnknownVenue,
			apperror.WithContext(fmt.Sprintf("no quoter for venue %q", sellVenueID)))
		span.RecordError(err)
		return nil, err
	}

	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	buy, err := buyQuoter.GetQuote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "buy leg quote failed")
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("buy leg on %s", buyVenueID)))
	}

	sell, err := sellQuoter.GetQuote(ctx, tokenOut, tokenIn, buy.AmountOut.Raw())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sell leg quote failed")
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("sell leg on %s", sellVenueID)))
	}

	if err := v.checkFreshness(buy); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := v.checkFreshness(sell); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := domain.NewVerification(*buy, *sell, v.config.MinSpreadPct)

	span.SetAttributes(
		attribute.Bool("passed", result.Passed),
		attribute.String("spread_pct", result.Spread.Percent.String()),
	)
	span.SetStatus(codes.Ok, "verified")

	if !result.Passed {
		v.logger.Info(ctx, "opportunity rejected by price verification",
			"buy_venue", buyVenueID,
			"sell_venue", sellVenueID,
			"spread_pct", result.Spread.Percent.String(),
			"reason", result.Reason)
	}

	return &result, nil
}

// checkFreshness rejects quotes older than the configured maximum age.
func (v *Verifier) checkFreshness(q *domain.Quote) error {
	if age := q.Age(); age > v.config.MaxQuoteAge {
		return apperror.New(apperror.CodeStalePrice,
			apperror.WithContext(fmt.Sprintf("quote from %s is %s old, max %s",
				q.VenueID, age.Round(time.Millisecond), v.config.MaxQuoteAge)))
	}
	return nil
}

// Package uniswap implements the VenueQuoter interface for Uniswap V3 style
// venues (Uniswap V3, Sushiswap V3) via the QuoterV2 contract.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/pricing/app"
	"github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/circuitbreaker"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

const (
	tracerName = "flasharb/uniswap"
	meterName  = "flasharb/uniswap"
)

// Ensure Quoter implements VenueQuoter.
var _ app.VenueQuoter = (*Quoter)(nil)

// quoterMetrics holds OTEL metric instruments.
type quoterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Quoter implements VenueQuoter for one V3-style venue.
type Quoter struct {
	client    chainapp.ChainClient
	venue     *venue.Venue
	quoterABI abi.ABI

	registry *asset.Registry
	logger   logger.LoggerInterface
	cb       *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates a quoter for the given venue.
func NewQuoter(client chainapp.ChainClient, v *venue.Venue, registry *asset.Registry, log logger.LoggerInterface) (*Quoter, error) {
	parsedABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}

	q := &Quoter{
		client:    client,
		venue:     v,
		quoterABI: parsedABI,
		registry:  registry,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig(v.ID() + "-quoter")
	q.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return q, nil
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.quotesTotal, err = meter.Int64Counter(
		"venue_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteLatency, err = meter.Float64Histogram(
		"venue_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteErrors, err = meter.Int64Counter(
		"venue_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Venue returns the venue this quoter serves.
func (q *Quoter) Venue() *venue.Venue {
	return q.venue
}

// GetQuote retrieves an exact-input quote, probing fee tiers best guess
// first and keeping the highest output.
func (q *Quoter) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "uniswap.get_quote",
		trace.WithAttributes(
			attribute.String("venue", q.venue.ID()),
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	venueAttr := metric.WithAttributes(attribute.String("venue", q.venue.ID()))
	q.metrics.quotesTotal.Add(ctx, 1, venueAttr)

	assetIn := q.resolveAsset(tokenIn)
	assetOut := q.resolveAsset(tokenOut)

	pairClass := venue.ClassifyPair(assetIn.Symbol(), assetOut.Symbol())
	feeTiers := venue.CandidateFeeTiers(q.venue.Kind(), pairClass)

	// Try each fee tier to find the best quote
	var bestQuote *QuoteResult
	var bestFeeTier int

	for _, feeTier := range feeTiers {
		quote, err := q.getQuoteForFeeTier(ctx, tokenIn, tokenOut, amountIn, feeTier)
		if err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", feeTier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}

		// Keep the best (highest output) quote
		if bestQuote == nil || quote.AmountOut.Cmp(bestQuote.AmountOut) > 0 {
			bestQuote = quote
			bestFeeTier = feeTier
		}
	}

	latency := float64(time.Since(start).Milliseconds())
	q.metrics.quoteLatency.Record(ctx, latency, venueAttr)

	if bestQuote == nil {
		q.metrics.quoteErrors.Add(ctx, 1, venueAttr)
		span.SetStatus(codes.Error, "no valid quote")
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext(fmt.Sprintf("%s: no pool found for token pair", q.venue.ID())))
	}

	amtIn := asset.NewAmount(assetIn, amountIn)
	amtOut := asset.NewAmount(assetOut, bestQuote.AmountOut)

	result := domain.NewQuote(q.venue.ID(), assetIn, assetOut, amtIn, amtOut, bestQuote.GasEstimate.Uint64(), bestFeeTier)

	span.SetAttributes(
		attribute.String("amount_out", bestQuote.AmountOut.String()),
		attribute.Int("fee_tier", bestFeeTier),
		attribute.Int64("gas_estimate", bestQuote.GasEstimate.Int64()),
	)
	span.SetStatus(codes.Ok, "quote received")

	q.logger.Debug(ctx, "venue quote",
		"venue", q.venue.ID(),
		"token_in", tokenIn.Hex(),
		"token_out", tokenOut.Hex(),
		"amount_in", amountIn.String(),
		"amount_out", bestQuote.AmountOut.String(),
		"fee_tier", bestFeeTier,
	)

	return &result, nil
}

// getQuoteForFeeTier calls QuoterV2.quoteExactInputSingle for a specific fee tier.
func (q *Quoter) getQuoteForFeeTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	// Encode call data for quoteExactInputSingle
	callData, err := q.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0), // No price limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	quoterAddr := q.venue.Quoter()

	// Execute call through circuit breaker
	result, err := q.cb.Execute(func() ([]byte, error) {
		return q.client.CallContract(ctx, ethereum.CallMsg{
			To:   &quoterAddr,
			Data: callData,
		})
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: quoter call failed for fee tier %d", q.venue.ID(), feeTier)))
	}

	// Decode result
	outputs, err := q.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

// resolveAsset attempts to find the asset in the registry.
func (q *Quoter) resolveAsset(addr common.Address) *asset.Asset {
	if a, ok := q.registry.GetToken(asset.ChainIDEthereum, addr); ok {
		return a
	}
	// Return a generic ERC20 if not found
	return asset.NewAsset(
		asset.NewTokenAssetID(asset.ChainIDEthereum, addr),
		addr.Hex()[:8],
		18, // Assume 18 decimals
	)
}

package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

const builderTracerName = "flasharb/execution/builder"

// Gas safety factors. The estimate is inflated because flash-loan execution
// paths consume more gas under contention than under simulation; the price is
// bumped so the transaction does not sit at the bottom of the pool.
var (
	gasLimitNumerator   = big.NewInt(3) // x1.5
	gasLimitDenominator = big.NewInt(2)
	gasPriceNumerator   = big.NewInt(11) // x1.1
	gasPriceDenominator = big.NewInt(10)
)

// BuilderConfig carries the static inputs for plan construction.
type BuilderConfig struct {
	// ChainID selects the token registry namespace.
	ChainID uint64
	// Contract is the executor contract every plan calls into.
	Contract common.Address
	// From is the sending account, used for nonce and gas estimation.
	From common.Address
	// DefaultGasLimit stands in when the dry-run estimate is unavailable.
	DefaultGasLimit uint64
	// MaxGasPrice caps the bumped gas price. Zero means no cap.
	MaxGasPrice *big.Int
}

// Builder turns a verified opportunity into an unsigned transaction plan:
// calldata from the encoder chain, a gas limit from the oracle's dry-run
// estimate (default limit when the node cannot estimate), a bumped gas
// price, and the account's pending nonce.
type Builder struct {
	client   chainapp.ChainClient
	gas      chainapp.GasOracle
	venues   *venue.Registry
	assets   *asset.Registry
	encoders []PlanEncoder
	cfg      BuilderConfig
	log      logger.LoggerInterface
	tracer   trace.Tracer
}

// NewBuilder creates a Builder. Encoders are tried in the given order.
func NewBuilder(client chainapp.ChainClient, gas chainapp.GasOracle, venues *venue.Registry, assets *asset.Registry, encoders []PlanEncoder, cfg BuilderConfig, log logger.LoggerInterface) (*Builder, error) {
	if client == nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("builder requires a chain client"))
	}
	if gas == nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("builder requires a gas oracle"))
	}
	if assets == nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("builder requires an asset registry"))
	}
	if len(encoders) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("builder requires at least one encoder"))
	}
	return &Builder{
		client:   client,
		gas:      gas,
		venues:   venues,
		assets:   assets,
		encoders: encoders,
		cfg:      cfg,
		log:      log,
		tracer:   otel.Tracer(builderTracerName),
	}, nil
}

// Build assembles a transaction plan for the opportunity.
func (b *Builder) Build(ctx context.Context, opp *domain.Opportunity) (*domain.TxPlan, error) {
	ctx, span := b.tracer.Start(ctx, "builder.Build",
		trace.WithAttributes(
			attribute.String("opportunity.id", opp.ID),
			attribute.String("buy.venue", opp.BuyVenue),
			attribute.String("sell.venue", opp.SellVenue),
		))
	defer span.End()

	if err := b.resolveTokens(opp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown token")
		return nil, err
	}

	feeTier := b.feeTierFor(opp)

	callData, encoderName, err := b.encode(opp, feeTier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encoding failed")
		return nil, err
	}

	gasLimit, err := b.estimateGas(ctx, callData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas estimation failed")
		return nil, err
	}

	gasPrice, err := b.gasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	nonce, err := b.client.PendingNonceAt(ctx, b.cfg.From)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch pending nonce"))
	}

	plan := &domain.TxPlan{
		OpportunityID: opp.ID,
		To:            b.cfg.Contract,
		CallData:      callData,
		Encoder:       encoderName,
		FeeTier:       feeTier,
		GasLimit:      gasLimit,
		GasPrice:      gasPrice,
		Nonce:         nonce,
		Value:         big.NewInt(0),
		BuiltAt:       time.Now(),
	}

	span.SetAttributes(
		attribute.String("plan.encoder", encoderName),
		attribute.Int("plan.fee_tier", feeTier),
		attribute.Int64("plan.gas_limit", int64(gasLimit)),
	)
	b.log.Debug(ctx, "transaction plan built",
		"opportunity_id", opp.ID,
		"encoder", encoderName,
		"fee_tier", feeTier,
		"gas_limit", gasLimit,
		"gas_price_wei", gasPrice.String(),
		"nonce", nonce,
	)
	return plan, nil
}

// resolveTokens requires both legs of the opportunity to be registered
// assets. An address no registry knows is a data-quality problem upstream,
// never something to sign for.
func (b *Builder) resolveTokens(opp *domain.Opportunity) error {
	if _, ok := b.assets.GetToken(b.cfg.ChainID, opp.TokenIn); !ok {
		return apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("token in %s (%s) is not registered on chain %d",
				opp.TokenIn.Hex(), opp.TokenInSymbol, b.cfg.ChainID)))
	}
	if _, ok := b.assets.GetToken(b.cfg.ChainID, opp.TokenOut); !ok {
		return apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("token out %s (%s) is not registered on chain %d",
				opp.TokenOut.Hex(), opp.TokenOutSymbol, b.cfg.ChainID)))
	}
	return nil
}

// feeTierFor picks the pool fee tier from the pair's liquidity class and the
// buy venue's kind. An unknown venue falls back to the class default.
func (b *Builder) feeTierFor(opp *domain.Opportunity) int {
	class := venue.ClassifyPair(opp.TokenInSymbol, opp.TokenOutSymbol)
	if v, ok := b.venues.Get(opp.BuyVenue); ok {
		return venue.FeeTierFor(v.Kind(), class)
	}
	return venue.FeeTierFor(venue.KindUniswapV3, class)
}

// encode walks the encoder chain in order and returns the first successful
// encoding. All failures are collected so the final error names every
// encoder that was tried.
func (b *Builder) encode(opp *domain.Opportunity, feeTier int) ([]byte, string, error) {
	var attempts []string
	for _, enc := range b.encoders {
		data, err := enc.Encode(opp, feeTier)
		if err == nil {
			return data, enc.Name(), nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", enc.Name(), err))
	}
	return nil, "", apperror.New(apperror.CodeEncodingFailed,
		apperror.WithContext(fmt.Sprintf("all encoders failed: %v", attempts)))
}

// estimateGas dry-runs the call and inflates the node's estimate. An
// estimation failure is absorbed: the configured default limit stands in, on
// the grounds that a revert costs the gas either way and the estimate is only
// a sizing hint.
func (b *Builder) estimateGas(ctx context.Context, callData []byte) (uint64, error) {
	estimate, err := b.gas.EstimateGas(ctx, b.cfg.From, b.cfg.Contract, callData)
	if err != nil {
		if b.cfg.DefaultGasLimit == 0 {
			return 0, apperror.New(apperror.CodeGasEstimationFailed,
				apperror.WithCause(err),
				apperror.WithContext("estimation failed and no default gas limit is configured"))
		}
		b.log.Warn(ctx, "gas estimation failed, using default limit",
			"default_gas_limit", b.cfg.DefaultGasLimit,
			"error", err,
		)
		return b.cfg.DefaultGasLimit, nil
	}
	limit := new(big.Int).SetUint64(estimate)
	limit.Mul(limit, gasLimitNumerator)
	limit.Div(limit, gasLimitDenominator)
	return limit.Uint64(), nil
}

func (b *Builder) gasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := b.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch gas price"))
	}
	price := new(big.Int).Set(suggested.Wei)
	price.Mul(price, gasPriceNumerator)
	price.Div(price, gasPriceDenominator)
	if b.cfg.MaxGasPrice != nil && b.cfg.MaxGasPrice.Sign() > 0 && price.Cmp(b.cfg.MaxGasPrice) > 0 {
		price.Set(b.cfg.MaxGasPrice)
	}
	return price, nil
}

package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/blockchain/domain"
	"github.com/sumitrevolt/flasharb/internal/cache"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // How long to cache gas prices
	MaxGasPrice *big.Int      // Maximum acceptable gas price (safety clamp)
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas := new(big.Int)
	maxGas.SetString("300000000000", 10) // 300 gwei max

	return GasOracleConfig{
		CacheTTL:    12 * time.Second, // ~1 block
		MaxGasPrice: maxGas,
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// GasOracle implements the GasOracle interface on top of the chain client.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	client app.ChainClient

	priceCache    *cache.Cache[string, *domain.GasPrice]
	priceCacheTTL time.Duration

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

var _ app.GasOracle = (*GasOracle)(nil)

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, client app.ChainClient, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:        cfg,
		logger:        log,
		client:        client,
		priceCache:    cache.New[string, *domain.GasPrice](5 * time.Minute),
		priceCacheTTL: cfg.CacheTTL,
		tracer:        otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetGasPrice retrieves the current gas price with caching.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	// Check cache first
	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	// Safety clamp
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max, clamping", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)

	g.priceCache.Set(ctx, "current", price, g.priceCacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei())

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// EstimateGas estimates the gas needed for a transaction.
func (g *GasOracle) EstimateGas(ctx context.Context, from common.Address, to common.Address, data []byte) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	msg := ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	}

	gas, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, err
	}

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// Close releases the oracle's cache.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}

// Package ethereum provides go-ethereum backed adapters for the blockchain context.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/blockchain/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/circuitbreaker"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/ratelimit"
)

const (
	tracerName = "flasharb/blockchain"
	meterName  = "flasharb/blockchain"
)

// ClientConfig holds configuration for the chain client.
type ClientConfig struct {
	HTTPURL           string
	DialTimeout       time.Duration
	RequestsPerMinute int
	ExpectedChainID   uint64 // 0 = accept whatever the node reports
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(httpURL string) ClientConfig {
	return ClientConfig{
		HTTPURL:           httpURL,
		DialTimeout:       10 * time.Second,
		RequestsPerMinute: 600,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	rpcCalls  metric.Int64Counter
	rpcErrors metric.Int64Counter
	txSent    metric.Int64Counter
}

// Client implements app.ChainClient using go-ethereum.
//
// Read operations are rate limited and routed through a circuit breaker.
// SendTransaction and TransactionReceipt bypass the breaker: a send must
// never be dropped by a tripped breaker once the transaction is signed, and
// receipt polling treats ethereum.NotFound as a normal pending state rather
// than a node failure.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	eth     *ethclient.Client
	chainID *big.Int
	state   domain.ConnectionState
	mu      sync.RWMutex

	cb      *circuitbreaker.CircuitBreaker[any]
	limiter *ratelimit.Limiter

	tracer  trace.Tracer
	metrics *clientMetrics
}

var _ app.ChainClient = (*Client)(nil)

// NewClient creates a new chain client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:  cfg,
		logger:  log,
		state:   domain.StateDisconnected,
		cb:      circuitbreaker.New[any](circuitbreaker.DefaultConfig("chain-client")),
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		tracer:  otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.rpcCalls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total RPC calls issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcErrors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Total failed RPC calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.txSent, err = meter.Int64Counter(
		"chain_tx_sent_total",
		metric.WithDescription("Total transactions broadcast"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect dials the node and verifies the chain ID.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "chain.connect",
		trace.WithAttributes(attribute.String("url", c.config.HTTPURL)),
	)
	defer span.End()

	c.setState(domain.StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(dialCtx, c.config.HTTPURL)
	if err != nil {
		c.setState(domain.StateDisconnected)
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("dial %s", c.config.HTTPURL)))
	}

	chainID, err := eth.ChainID(dialCtx)
	if err != nil {
		eth.Close()
		c.setState(domain.StateDisconnected)
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("query chain id"))
	}

	if c.config.ExpectedChainID != 0 && chainID.Uint64() != c.config.ExpectedChainID {
		eth.Close()
		c.setState(domain.StateDisconnected)
		err := apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext(fmt.Sprintf("chain id mismatch: node reports %s, expected %d",
				chainID, c.config.ExpectedChainID)))
		span.RecordError(err)
		return err
	}

	c.mu.Lock()
	c.eth = eth
	c.chainID = chainID
	c.mu.Unlock()
	c.setState(domain.StateConnected)

	span.SetAttributes(attribute.String("chain_id", chainID.String()))
	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "chain client connected", "url", c.config.HTTPURL, "chain_id", chainID.String())

	return nil
}

// client returns the underlying ethclient or an error when disconnected.
func (c *Client) client() (*ethclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.eth == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("chain client not connected"))
	}
	return c.eth, nil
}

// read runs a read RPC through the rate limiter and circuit breaker.
func read[T any](ctx context.Context, c *Client, op string, fn func(eth *ethclient.Client) (T, error)) (T, error) {
	var zero T

	eth, err := c.client()
	if err != nil {
		return zero, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	c.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))

	result, err := c.cb.Execute(func() (any, error) {
		return fn(eth)
	})
	if err != nil {
		c.metrics.rpcErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return zero, err
		}
		return zero, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(op))
	}

	return result.(T), nil
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.chainID == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("chain client not connected"))
	}
	return new(big.Int).Set(c.chainID), nil
}

// BalanceAt returns the latest balance of an account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return read(ctx, c, "balance_at", func(eth *ethclient.Client) (*big.Int, error) {
		return eth.BalanceAt(ctx, account, nil)
	})
}

// PendingNonceAt returns the next nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(ctx, c, "pending_nonce_at", func(eth *ethclient.Client) (uint64, error) {
		return eth.PendingNonceAt(ctx, account)
	})
}

// NonceAt returns the confirmed nonce at the latest block.
func (c *Client) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(ctx, c, "nonce_at", func(eth *ethclient.Client) (uint64, error) {
		return eth.NonceAt(ctx, account, nil)
	})
}

// SuggestGasPrice returns the node's suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, "suggest_gas_price", func(eth *ethclient.Client) (*big.Int, error) {
		return eth.SuggestGasPrice(ctx)
	})
}

// CodeAt returns the contract code at the given address.
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return read(ctx, c, "code_at", func(eth *ethclient.Client) ([]byte, error) {
		return eth.CodeAt(ctx, account, nil)
	})
}

// CallContract executes a read-only contract call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return read(ctx, c, "call_contract", func(eth *ethclient.Client) ([]byte, error) {
		return eth.CallContract(ctx, msg, nil)
	})
}

// EstimateGas estimates the gas needed for the given call.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := read(ctx, c, "estimate_gas", func(eth *ethclient.Client) (uint64, error) {
		return eth.EstimateGas(ctx, msg)
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeEthereumRPCError {
			return 0, apperror.New(apperror.CodeGasEstimationFailed,
				apperror.WithCause(err),
				apperror.WithContext("estimate gas"))
		}
		return 0, err
	}
	return gas, nil
}

// SendTransaction broadcasts a signed transaction. It never routes through
// the circuit breaker: the raw node error is preserved for classification
// by the caller.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, span := c.tracer.Start(ctx, "chain.send_transaction",
		trace.WithAttributes(attribute.String("tx_hash", tx.Hash().Hex())),
	)
	defer span.End()

	eth, err := c.client()
	if err != nil {
		span.RecordError(err)
		return err
	}

	c.metrics.txSent.Add(ctx, 1)

	if err := eth.SendTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}

	span.SetStatus(codes.Ok, "sent")
	return nil
}

// TransactionReceipt returns the receipt for a mined transaction. While the
// transaction is pending the error satisfies errors.Is(err, ethereum.NotFound).
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	eth, err := c.client()
	if err != nil {
		return nil, err
	}

	receipt, err := eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("receipt for %s", txHash.Hex())))
	}
	return receipt, nil
}

// State returns the current connection state.
func (c *Client) State() domain.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(state domain.ConnectionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.state = domain.StateDisconnected
	return nil
}

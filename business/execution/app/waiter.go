package app

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const waiterTracerName = "flasharb/execution/waiter"

// WaiterConfig controls receipt polling.
type WaiterConfig struct {
	// PollEvery is the interval between receipt queries.
	PollEvery time.Duration
	// Timeout bounds the total wait. A transaction that has not mined by
	// then is reported as timed out, not failed: it may still mine later.
	Timeout time.Duration
}

// DefaultWaiterConfig returns the standard polling settings.
func DefaultWaiterConfig() WaiterConfig {
	return WaiterConfig{
		PollEvery: 2 * time.Second,
		Timeout:   180 * time.Second,
	}
}

// Waiter polls for a transaction receipt until it appears or the window
// closes. Timeout is a distinct third outcome alongside mined-ok and
// mined-reverted.
type Waiter struct {
	client chainapp.ChainClient
	cfg    WaiterConfig
	log    logger.LoggerInterface
	tracer trace.Tracer

	waitSeconds metric.Float64Histogram
}

func NewWaiter(client chainapp.ChainClient, cfg WaiterConfig, log logger.LoggerInterface) *Waiter {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	w := &Waiter{
		client: client,
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer(waiterTracerName),
	}
	w.waitSeconds, _ = otel.Meter(waiterTracerName).Float64Histogram(
		"execution.receipt.wait.seconds",
		metric.WithDescription("Time spent waiting for a transaction receipt"),
	)
	return w
}

func (w *Waiter) recordWait(ctx context.Context, waited time.Duration, timedOut bool) {
	if w.waitSeconds == nil {
		return
	}
	w.waitSeconds.Record(ctx, waited.Seconds(),
		metric.WithAttributes(attribute.Bool("timed_out", timedOut)))
}

// Wait blocks until the transaction mines or the confirmation window closes.
// It returns a Confirmation in both cases; an error is returned only for
// infrastructure failures other than a still-pending transaction.
func (w *Waiter) Wait(ctx context.Context, txHash common.Hash) (*domain.Confirmation, error) {
	ctx, span := w.tracer.Start(ctx, "waiter.Wait",
		trace.WithAttributes(attribute.String("tx.hash", txHash.Hex())))
	defer span.End()

	start := time.Now()
	deadline := start.Add(w.cfg.Timeout)

	ticker := time.NewTicker(w.cfg.PollEvery)
	defer ticker.Stop()

	for {
		receipt, err := w.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			conf := &domain.Confirmation{
				TxHash:         txHash,
				Status:         receipt.Status,
				BlockNumber:    receipt.BlockNumber.Uint64(),
				GasUsed:        receipt.GasUsed,
				EffectivePrice: receipt.EffectiveGasPrice,
				Logs:           receipt.Logs,
				Waited:         time.Since(start),
			}
			span.SetAttributes(
				attribute.Int64("receipt.status", int64(receipt.Status)),
				attribute.Int64("receipt.block", int64(conf.BlockNumber)),
			)
			w.log.Info(ctx, "transaction mined",
				"tx_hash", txHash.Hex(),
				"status", receipt.Status,
				"block", conf.BlockNumber,
				"waited", conf.Waited.String(),
			)
			w.recordWait(ctx, conf.Waited, false)
			return conf, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeEthereumRPCError,
				apperror.WithCause(err),
				apperror.WithContext("receipt polling failed"))
		}

		if time.Now().After(deadline) {
			w.log.Warn(ctx, "confirmation window closed with no receipt",
				"tx_hash", txHash.Hex(),
				"timeout", w.cfg.Timeout.String(),
			)
			span.SetAttributes(attribute.Bool("tx.timed_out", true))
			waited := time.Since(start)
			w.recordWait(ctx, waited, true)
			return &domain.Confirmation{
				TxHash:   txHash,
				TimedOut: true,
				Waited:   waited,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	chaindomain "github.com/sumitrevolt/flasharb/business/blockchain/domain"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	pricingapp "github.com/sumitrevolt/flasharb/business/pricing/app"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const orchestratorTracerName = "flasharb/execution/orchestrator"

// OrchestratorConfig carries the gating thresholds and retry policy.
type OrchestratorConfig struct {
	ChainID         uint64
	AllowedTokens   map[string]struct{} // token symbols cleared for execution
	AllowedVenues   map[string]struct{}
	MinProfitUSD    decimal.Decimal
	MaxTradeSizeUSD decimal.Decimal // zero disables the ceiling
	// MaxGasPriceWei gates out executions while the network is too
	// expensive. Nil or zero disables the check.
	MaxGasPriceWei *big.Int
	// GasBudgetGas sizes the wallet balance pre-check: the account must
	// cover this much gas at the current price before anything is built.
	GasBudgetGas uint64
	// RetryCap bounds rebuild-and-resend attempts after the first send.
	RetryCap int
}

// Orchestrator drives one opportunity through the full pipeline: gate,
// verify, build, sign, send, confirm, classify, record. Executions from the
// single sending account are serialized so nonces stay monotonic. Every
// opportunity produces exactly one record no matter where the pipeline stops.
type Orchestrator struct {
	cfg        OrchestratorConfig
	pricing    *pricingapp.PricingService
	client     chainapp.ChainClient
	gas        chainapp.GasOracle
	assets     *asset.Registry
	builder    *Builder
	sender     *Sender
	waiter     *Waiter
	classifier *Classifier
	tracker    *Tracker
	reporters  []Reporter
	log        logger.LoggerInterface
	tracer     trace.Tracer

	sendRetries metric.Int64Counter

	// accountMu serializes the build-to-send window per sending account.
	accountMu sync.Mutex
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	cfg OrchestratorConfig,
	pricing *pricingapp.PricingService,
	client chainapp.ChainClient,
	gas chainapp.GasOracle,
	assets *asset.Registry,
	builder *Builder,
	sender *Sender,
	waiter *Waiter,
	classifier *Classifier,
	tracker *Tracker,
	reporters []Reporter,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	if pricing == nil || client == nil || gas == nil || builder == nil || sender == nil || waiter == nil || classifier == nil || tracker == nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("orchestrator is missing a pipeline stage"))
	}
	if cfg.RetryCap < 0 {
		cfg.RetryCap = 0
	}
	if cfg.GasBudgetGas == 0 {
		cfg.GasBudgetGas = 600000
	}
	o := &Orchestrator{
		cfg:        cfg,
		pricing:    pricing,
		client:     client,
		gas:        gas,
		assets:     assets,
		builder:    builder,
		sender:     sender,
		waiter:     waiter,
		classifier: classifier,
		tracker:    tracker,
		reporters:  reporters,
		log:        log,
		tracer:     otel.Tracer(orchestratorTracerName),
	}
	o.sendRetries, _ = otel.Meter(orchestratorTracerName).Int64Counter(
		"execution.send.retries.total",
		metric.WithDescription("Broadcast rejections that triggered a rebuild-and-resend"),
	)
	return o, nil
}

// Execute runs the opportunity through the pipeline and returns its record.
// A gated or losing opportunity is not an error: the record says it was
// skipped and no transaction is sent. The returned error is non-nil only when
// an attempt actually failed.
func (o *Orchestrator) Execute(ctx context.Context, opp *domain.Opportunity) (*domain.ExecutionRecord, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Execute",
		trace.WithAttributes(
			attribute.String("opportunity.id", opp.ID),
			attribute.String("pair", opp.TokenInSymbol+"/"+opp.TokenOutSymbol),
		))
	defer span.End()

	record := domain.NewExecutionRecord(opp.ID)

	if reason := o.gate(ctx, opp); reason != "" {
		o.log.Info(ctx, "opportunity gated out", "opportunity_id", opp.ID, "reason", reason)
		span.SetAttributes(attribute.String("gate.reason", reason))
		o.finish(ctx, record, domain.Skipped(reason))
		return record, nil
	}

	verification, err := o.pricing.Verify(ctx, opp.BuyVenue, opp.SellVenue, opp.TokenIn, opp.TokenOut, opp.AmountIn)
	if err != nil {
		// Verification failures fail closed: no quote, no trade.
		o.log.Warn(ctx, "decision-time verification unavailable",
			"opportunity_id", opp.ID, "error", err)
		span.RecordError(err)
		o.finish(ctx, record, domain.Skipped(fmt.Sprintf("verification failed: %v", err)))
		return record, nil
	}
	if !verification.Passed {
		o.log.Info(ctx, "opportunity no longer profitable at decision time",
			"opportunity_id", opp.ID, "reason", verification.Reason)
		o.finish(ctx, record, domain.Skipped(verification.Reason))
		return record, nil
	}
	if err := record.Transition(domain.StateVerified); err != nil {
		return record, err
	}

	// From here on chain state is consumed; hold the account lock so a
	// concurrent execution cannot interleave nonces.
	o.accountMu.Lock()
	defer o.accountMu.Unlock()

	conf, err := o.attempt(ctx, opp, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution attempt failed")
		if record.TxHash != "" {
			// The broadcast was accepted; losing the receipt poll does
			// not mean the trade failed. The transaction may still mine,
			// so its fate is unknown, not lost.
			o.finish(ctx, record, domain.TimedOut(fmt.Sprintf("receipt polling failed: %v", err)))
		} else {
			o.finish(ctx, record, domain.Failed(err.Error()))
		}
		return record, err
	}

	if err := record.Transition(domain.StateConfirmed); err != nil {
		return record, err
	}

	outcome := o.classifier.Classify(conf)
	if outcome.HasProfit() {
		outcome.ProfitUSD = o.profitUSD(ctx, opp, outcome.Profit)
	}
	if err := record.Transition(domain.StateClassified); err != nil {
		return record, err
	}

	o.finish(ctx, record, outcome)
	o.log.Info(ctx, "execution recorded",
		"opportunity_id", opp.ID,
		"record_id", record.ID,
		"outcome", string(outcome.Kind),
		"tx_hash", record.TxHash,
		"attempts", record.Attempts,
	)
	return record, nil
}

// attempt builds, signs, sends, and waits for one transaction, rebuilding and
// resending once when the node rejects the broadcast for a nonce conflict or
// an underpriced fee. All other rejections are final.
func (o *Orchestrator) attempt(ctx context.Context, opp *domain.Opportunity, record *domain.ExecutionRecord) (*domain.Confirmation, error) {
	var lastErr error
	var bumpFloor *big.Int // set after an underpriced rejection

	for try := 0; try <= o.cfg.RetryCap; try++ {
		plan, err := o.builder.Build(ctx, opp)
		if err != nil {
			return nil, err
		}
		if bumpFloor != nil && plan.GasPrice.Cmp(bumpFloor) < 0 {
			plan.GasPrice = bumpFloor
		}
		if record.State == domain.StateVerified {
			if err := record.Transition(domain.StateBuilt); err != nil {
				return nil, err
			}
		}
		if err := record.Transition(domain.StateSigned); err != nil {
			return nil, err
		}

		record.Attempts++
		sent, err := o.sender.SignAndSend(ctx, plan)
		if err != nil {
			lastErr = err
			if !retryable(err) || try == o.cfg.RetryCap {
				return nil, err
			}
			o.log.Warn(ctx, "broadcast rejected, rebuilding plan",
				"opportunity_id", opp.ID,
				"attempt", record.Attempts,
				"error", err,
			)
			if o.sendRetries != nil {
				o.sendRetries.Add(ctx, 1, metric.WithAttributes(
					attribute.String("cause", string(apperror.GetCode(err)))))
			}
			if apperror.GetCode(err) == apperror.CodeTxUnderpriced {
				// A rebuild at the same suggested price would be
				// rejected again; retry at 1.2x the rejected price.
				bumpFloor = new(big.Int).Div(
					new(big.Int).Mul(plan.GasPrice, big.NewInt(12)), big.NewInt(10))
				if o.cfg.MaxGasPriceWei != nil && bumpFloor.Cmp(o.cfg.MaxGasPriceWei) > 0 {
					bumpFloor.Set(o.cfg.MaxGasPriceWei)
				}
			}
			if err := record.Transition(domain.StateBuilt); err != nil {
				return nil, err
			}
			continue
		}

		if err := record.Transition(domain.StateSent); err != nil {
			return nil, err
		}
		record.TxHash = sent.Hash.Hex()

		return o.waiter.Wait(ctx, sent.Hash)
	}

	return nil, lastErr
}

// gate applies the cheap local checks before any chain work. It returns an
// empty string when the opportunity may proceed.
func (o *Orchestrator) gate(ctx context.Context, opp *domain.Opportunity) string {
	if opp.AmountIn == nil || opp.AmountIn.Sign() <= 0 {
		return "trade size must be positive"
	}
	if len(o.cfg.AllowedTokens) > 0 {
		if _, ok := o.cfg.AllowedTokens[opp.TokenInSymbol]; !ok {
			return fmt.Sprintf("token %s not in allowlist", opp.TokenInSymbol)
		}
		if _, ok := o.cfg.AllowedTokens[opp.TokenOutSymbol]; !ok {
			return fmt.Sprintf("token %s not in allowlist", opp.TokenOutSymbol)
		}
	}
	if len(o.cfg.AllowedVenues) > 0 {
		if _, ok := o.cfg.AllowedVenues[opp.BuyVenue]; !ok {
			return fmt.Sprintf("venue %s not in allowlist", opp.BuyVenue)
		}
		if _, ok := o.cfg.AllowedVenues[opp.SellVenue]; !ok {
			return fmt.Sprintf("venue %s not in allowlist", opp.SellVenue)
		}
	}

	// Profit and size thresholds are in USD; a dead reference feed turns
	// the expected profit into zero, which fails the minimum. Closed.
	expectedUSD := o.pricing.ToUSD(ctx, opp.ExpectedProfit, opp.TokenInSymbol)
	if expectedUSD.LessThan(o.cfg.MinProfitUSD) {
		return fmt.Sprintf("expected profit %s USD below minimum %s USD",
			expectedUSD.StringFixed(2), o.cfg.MinProfitUSD.StringFixed(2))
	}

	if o.cfg.MaxTradeSizeUSD.IsPositive() {
		if sizeUSD, ok := o.tradeSizeUSD(ctx, opp); ok && sizeUSD.GreaterThan(o.cfg.MaxTradeSizeUSD) {
			return fmt.Sprintf("trade size %s USD above ceiling %s USD",
				sizeUSD.StringFixed(2), o.cfg.MaxTradeSizeUSD.StringFixed(2))
		}
	}

	if reason := o.checkGasConditions(ctx); reason != "" {
		return reason
	}
	return ""
}

// tradeSizeUSD values the borrowed amount in USD. Unknown tokens cannot be
// sized and are reported as not-ok; the symbol allowlist is the real guard.
func (o *Orchestrator) tradeSizeUSD(ctx context.Context, opp *domain.Opportunity) (decimal.Decimal, bool) {
	if o.assets == nil {
		return decimal.Zero, false
	}
	a, ok := o.assets.GetToken(o.cfg.ChainID, opp.TokenIn)
	if !ok {
		return decimal.Zero, false
	}
	amount := asset.NewAmount(a, opp.AmountIn)
	return o.pricing.ToUSD(ctx, amount.ToDecimal(), opp.TokenInSymbol), true
}

// checkGasConditions rejects executions while the network price exceeds the
// configured ceiling, and verifies the wallet can pay for the configured gas
// budget at the current price before anything is built or signed.
func (o *Orchestrator) checkGasConditions(ctx context.Context) string {
	price, err := o.gas.GetGasPrice(ctx)
	if err != nil {
		return fmt.Sprintf("gas price unavailable: %v", err)
	}
	if o.cfg.MaxGasPriceWei != nil && o.cfg.MaxGasPriceWei.Sign() > 0 && price.Wei.Cmp(o.cfg.MaxGasPriceWei) > 0 {
		return fmt.Sprintf("gas price %s wei above ceiling %s wei",
			price.Wei.String(), o.cfg.MaxGasPriceWei.String())
	}

	balance, err := o.client.BalanceAt(ctx, o.sender.From())
	if err != nil {
		return fmt.Sprintf("wallet balance unavailable: %v", err)
	}
	budget := chaindomain.NewGasEstimate(o.cfg.GasBudgetGas, price)
	if balance.Cmp(budget.TotalWei) < 0 {
		return fmt.Sprintf("wallet balance %s wei below gas budget %s wei",
			balance.String(), budget.TotalWei.String())
	}
	return ""
}

// profitUSD values an observed on-chain profit for reporting.
func (o *Orchestrator) profitUSD(ctx context.Context, opp *domain.Opportunity, profit *big.Int) decimal.Decimal {
	if o.assets == nil {
		return decimal.Zero
	}
	a, ok := o.assets.GetToken(o.cfg.ChainID, opp.TokenIn)
	if !ok {
		return decimal.Zero
	}
	amount := asset.NewAmount(a, profit)
	return o.pricing.ToUSD(ctx, amount.ToDecimal(), opp.TokenInSymbol)
}

// finish finalizes the record exactly once and hands it to history and the
// reporters.
func (o *Orchestrator) finish(ctx context.Context, record *domain.ExecutionRecord, outcome domain.Outcome) {
	if err := record.Finalize(outcome); err != nil {
		o.log.Error(ctx, "record already finalized", "record_id", record.ID, "error", err)
		return
	}
	o.tracker.Add(ctx, record)
	for _, r := range o.reporters {
		r.Report(ctx, record)
	}
}

// retryable reports whether a send rejection warrants one rebuild-and-resend.
func retryable(err error) bool {
	switch apperror.GetCode(err) {
	case apperror.CodeNonceConflict, apperror.CodeTxUnderpriced:
		return true
	}
	return false
}

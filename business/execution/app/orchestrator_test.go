package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	pricingapp "github.com/sumitrevolt/flasharb/business/pricing/app"
	pricingdomain "github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

// fakeVenueQuoter scripts on-chain quotes for the decision-time verifier.
type fakeVenueQuoter struct {
	v   *venue.Venue
	out map[common.Address]*big.Int // tokenIn -> amountOut
	err error
}

func (f *fakeVenueQuoter) Venue() *venue.Venue { return f.v }

func (f *fakeVenueQuoter) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*pricingdomain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	assetIn, _ := asset.DefaultRegistry().GetToken(asset.ChainIDEthereum, tokenIn)
	assetOut, _ := asset.DefaultRegistry().GetToken(asset.ChainIDEthereum, tokenOut)
	q := pricingdomain.NewQuote(f.v.ID(),
		assetIn, assetOut,
		asset.NewAmount(assetIn, amountIn),
		asset.NewAmount(assetOut, f.out[tokenIn]),
		80_000, venue.FeeTier030)
	return &q, nil
}

// fakeSpot serves fixed USD prices.
type fakeSpot struct {
	prices map[string]decimal.Decimal
}

func (f *fakeSpot) SpotUSD(ctx context.Context, symbol string) (pricingdomain.SpotPrice, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return pricingdomain.SpotPrice{}, errors.New("no price")
	}
	return pricingdomain.SpotPrice{Symbol: symbol, Bid: p, Ask: p, Timestamp: time.Now()}, nil
}

type orchestratorFixture struct {
	chain   *fakeChain
	tracker *Tracker
	orch    *Orchestrator
}

// newFixture wires a full pipeline over the fake chain. The default quotes
// give a 1% round-trip spread, comfortably above the 0.5% minimum.
func newFixture(t *testing.T, mutate func(*fakeChain, *fakeVenueQuoter, *fakeVenueQuoter)) *orchestratorFixture {
	t.Helper()

	chain := newFakeChain()
	buy := &fakeVenueQuoter{
		v:   venue.New("uniswap-v3", venue.KindUniswapV3, common.Address{1}, common.Address{2}),
		out: map[common.Address]*big.Int{asset.AddrUSDCEthereum: big.NewInt(3_000_000_000_000_000_000)},
	}
	sell := &fakeVenueQuoter{
		v:   venue.New("sushiswap-v3", venue.KindUniswapV3, common.Address{3}, common.Address{4}),
		out: map[common.Address]*big.Int{asset.AddrWETHEthereum: big.NewInt(10_100_000_000)},
	}
	if mutate != nil {
		mutate(chain, buy, sell)
	}

	verifier := pricingapp.NewVerifier(pricingapp.DefaultVerifierConfig(),
		[]pricingapp.VenueQuoter{buy, sell}, testLogger())
	spot := &fakeSpot{prices: map[string]decimal.Decimal{
		"USDC": decimal.RequireFromString("1"),
		"WETH": decimal.RequireFromString("3000"),
	}}
	pricing := pricingapp.NewPricingService(verifier, spot)

	sender, err := NewSender(chain, testPrivateKey, testWalletAddr, big.NewInt(1), testLogger())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	gas := testGasOracle(t, chain)
	builder, err := NewBuilder(chain, gas, testVenues(), asset.DefaultRegistry(), []PlanEncoder{&fakeEncoder{name: "e", data: []byte{0x01}}}, BuilderConfig{
		ChainID:  asset.ChainIDEthereum,
		Contract: common.HexToAddress(testContractHex),
		From:     sender.From(),
	}, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	waiter := NewWaiter(chain, WaiterConfig{PollEvery: time.Millisecond, Timeout: 50 * time.Millisecond}, testLogger())
	classifier := NewClassifier(common.HexToAddress(testContractHex))
	tracker, err := NewTracker(100, nil, testLogger())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	orch, err := NewOrchestrator(OrchestratorConfig{
		ChainID:         asset.ChainIDEthereum,
		AllowedTokens:   map[string]struct{}{"USDC": {}, "WETH": {}},
		AllowedVenues:   map[string]struct{}{"uniswap-v3": {}, "sushiswap-v3": {}},
		MinProfitUSD:    decimal.RequireFromString("10"),
		MaxTradeSizeUSD: decimal.RequireFromString("50000"),
		RetryCap:        1,
	}, pricing, chain, gas, asset.DefaultRegistry(), builder, sender, waiter, classifier, tracker, nil, testLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	return &orchestratorFixture{chain: chain, tracker: tracker, orch: orch}
}

func successReceipt() *types.Receipt {
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		BlockNumber:       big.NewInt(100),
		GasUsed:           90_000,
		EffectiveGasPrice: big.NewInt(110_000_000_000),
		Logs: []*types.Log{
			profitLog(common.HexToAddress(testContractHex), "ArbitrageExecuted(address,uint256)", 55_000_000),
		},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.receipts = []*types.Receipt{successReceipt()}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !record.Finalized() {
		t.Fatal("record not finalized")
	}
	if record.Outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success", record.Outcome.Kind, record.Outcome.Reason)
	}
	if record.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", record.Attempts)
	}
	if record.TxHash == "" {
		t.Error("TxHash not recorded")
	}
	if !record.Outcome.HasProfit() || record.Outcome.Profit.Int64() != 55_000_000 {
		t.Errorf("Profit = %v, want 55000000", record.Outcome.Profit)
	}
	// 55 USDC at $1 each.
	if !record.Outcome.ProfitUSD.Equal(decimal.RequireFromString("55")) {
		t.Errorf("ProfitUSD = %s, want 55", record.Outcome.ProfitUSD)
	}
	if f.tracker.Len() != 1 {
		t.Errorf("tracker holds %d records, want 1", f.tracker.Len())
	}
}

func TestExecuteGateSkipSendsNothing(t *testing.T) {
	f := newFixture(t, nil)

	opp := testOpportunity()
	opp.TokenInSymbol = "SHIB" // not in the allowlist

	record, err := f.orch.Execute(context.Background(), opp)
	if err != nil {
		t.Fatalf("a gate skip is not an error: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 0 {
		t.Errorf("%d transactions sent for a gated opportunity, want 0", f.chain.sendCount())
	}
	if f.tracker.Len() != 1 {
		t.Errorf("tracker holds %d records, want exactly 1", f.tracker.Len())
	}
}

func TestExecuteSkipsWhenVerificationFailsClosed(t *testing.T) {
	f := newFixture(t, func(_ *fakeChain, buy, _ *fakeVenueQuoter) {
		buy.err = errors.New("node unavailable")
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped (fail closed)", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 0 {
		t.Errorf("%d transactions sent without verification, want 0", f.chain.sendCount())
	}
}

func TestExecuteSkipsWhenSpreadCollapsed(t *testing.T) {
	f := newFixture(t, func(_ *fakeChain, _, sell *fakeVenueQuoter) {
		// Round trip returns only +0.2%, below the 0.5% minimum.
		sell.out[asset.AddrWETHEthereum] = big.NewInt(10_020_000_000)
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 0 {
		t.Errorf("%d transactions sent for a collapsed spread, want 0", f.chain.sendCount())
	}
}

func TestExecuteRetriesOnceOnNonceConflict(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.sendErrs = []error{errors.New("nonce too low")}
		chain.receipts = []*types.Receipt{successReceipt()}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success after retry", record.Outcome.Kind, record.Outcome.Reason)
	}
	if record.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", record.Attempts)
	}
	if f.chain.sendCount() != 2 {
		t.Errorf("sends = %d, want 2", f.chain.sendCount())
	}
}

func TestExecuteRetryCapIsHonored(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.sendErrs = []error{
			errors.New("replacement transaction underpriced"),
			errors.New("replacement transaction underpriced"),
			errors.New("replacement transaction underpriced"),
		}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected error when the retry budget is exhausted")
	}
	if record.Outcome.Kind != domain.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 2 {
		t.Errorf("sends = %d, want 2 (initial + one retry)", f.chain.sendCount())
	}
	if f.tracker.Len() != 1 {
		t.Errorf("tracker holds %d records, want exactly 1", f.tracker.Len())
	}
}

func TestExecuteNonRetryableRejectionFailsImmediately(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.sendErrs = []error{errors.New("insufficient funds for gas * price + value")}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected error")
	}
	if record.Outcome.Kind != domain.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 1 {
		t.Errorf("sends = %d, want 1 (no retry for insufficient funds)", f.chain.sendCount())
	}
}

func TestExecuteTimeoutIsDistinctOutcome(t *testing.T) {
	f := newFixture(t, nil) // no receipt ever arrives

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("a timeout is an outcome, not an error: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeTimeout {
		t.Errorf("outcome = %s, want timeout", record.Outcome.Kind)
	}
	if record.Outcome.HasProfit() {
		t.Error("timed-out execution must not claim a profit")
	}
	if record.TxHash == "" {
		t.Error("the broadcast hash must be recorded even on timeout")
	}
}

func TestExecuteOneRecordPerOpportunity(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.receipts = []*types.Receipt{successReceipt(), successReceipt(), successReceipt()}
	})

	for i := 0; i < 3; i++ {
		if _, err := f.orch.Execute(context.Background(), testOpportunity()); err != nil {
			t.Fatalf("Execute #%d: %v", i, err)
		}
	}
	if f.tracker.Len() != 3 {
		t.Errorf("tracker holds %d records for 3 opportunities, want 3", f.tracker.Len())
	}
}

func TestExecuteGateGasPriceCeiling(t *testing.T) {
	f := newFixture(t, nil)
	f.orch.cfg.MaxGasPriceWei = big.NewInt(50_000_000_000) // 50 gwei, below the 100 gwei suggestion

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped while gas is expensive", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 0 {
		t.Errorf("%d transactions sent above the gas ceiling, want 0", f.chain.sendCount())
	}
}

func TestExecuteGateMinProfit(t *testing.T) {
	f := newFixture(t, nil)

	opp := testOpportunity()
	opp.ExpectedProfit = decimal.RequireFromString("5") // below the $10 minimum

	record, err := f.orch.Execute(context.Background(), opp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", record.Outcome.Kind)
	}
}

func TestExecuteGateMaxTradeSize(t *testing.T) {
	f := newFixture(t, nil)

	opp := testOpportunity()
	opp.AmountIn = big.NewInt(100_000_000_000) // 100,000 USDC, above the $50,000 ceiling
	opp.ExpectedProfit = decimal.RequireFromString("100")

	record, err := f.orch.Execute(context.Background(), opp)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 0 {
		t.Errorf("%d transactions sent above the size ceiling, want 0", f.chain.sendCount())
	}
}

func TestExecuteBumpsGasPriceOnUnderpricedRetry(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.sendErrs = []error{errors.New("replacement transaction underpriced")}
		chain.receipts = []*types.Receipt{successReceipt()}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success after retry", record.Outcome.Kind)
	}
	if f.chain.sendCount() != 2 {
		t.Fatalf("sends = %d, want 2", f.chain.sendCount())
	}

	first := f.chain.sent[0].GasPrice()
	second := f.chain.sent[1].GasPrice()

	// Retry must go out at 1.2x the rejected price, not a fresh quote at
	// the same suggestion.
	wantFloor := new(big.Int).Div(new(big.Int).Mul(first, big.NewInt(12)), big.NewInt(10))
	if second.Cmp(wantFloor) < 0 {
		t.Errorf("retry gas price = %s, want >= %s (1.2x of %s)", second, wantFloor, first)
	}
}

func TestExecuteNoncesIncreaseAcrossSequentialRuns(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.receipts = []*types.Receipt{successReceipt(), successReceipt(), successReceipt()}
	})

	for i := 0; i < 3; i++ {
		if _, err := f.orch.Execute(context.Background(), testOpportunity()); err != nil {
			t.Fatalf("Execute #%d: %v", i+1, err)
		}
	}
	if f.chain.sendCount() != 3 {
		t.Fatalf("sends = %d, want 3", f.chain.sendCount())
	}

	prev := f.chain.sent[0].Nonce()
	for i, tx := range f.chain.sent[1:] {
		if tx.Nonce() <= prev {
			t.Errorf("send #%d nonce = %d, want > %d", i+2, tx.Nonce(), prev)
		}
		prev = tx.Nonce()
	}
}

func TestExecuteReceiptPollErrorAfterBroadcastIsNotFailure(t *testing.T) {
	f := newFixture(t, func(chain *fakeChain, _, _ *fakeVenueQuoter) {
		chain.receiptErrs = []error{errors.New("rpc connection lost")}
	})

	record, err := f.orch.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected the polling error to surface to the caller")
	}
	if record.TxHash == "" {
		t.Fatal("the broadcast hash must be recorded before polling starts")
	}
	// The transaction left the wallet; losing the receipt poll says nothing
	// about whether it mined. Its fate is unknown, not failed.
	if record.Outcome.Kind != domain.OutcomeTimeout {
		t.Errorf("outcome = %s (%s), want timeout", record.Outcome.Kind, record.Outcome.Reason)
	}
	if record.Outcome.HasProfit() {
		t.Error("an unresolved execution must not claim a profit")
	}
	if f.tracker.Len() != 1 {
		t.Errorf("tracker holds %d records, want exactly 1", f.tracker.Len())
	}
}

package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/pricing/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/asset"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

var (
	testTokenIn  = asset.AddrUSDCEthereum
	testTokenOut = asset.AddrWETHEthereum
)

// fakeQuoter returns scripted quotes keyed by input token.
type fakeQuoter struct {
	v        *venue.Venue
	out      map[common.Address]*big.Int // tokenIn -> amountOut
	err      error
	quoteAge time.Duration
}

func (f *fakeQuoter) Venue() *venue.Venue { return f.v }

func (f *fakeQuoter) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}

	assetIn, _ := asset.DefaultRegistry().GetToken(asset.ChainIDEthereum, tokenIn)
	assetOut, _ := asset.DefaultRegistry().GetToken(asset.ChainIDEthereum, tokenOut)

	q := domain.NewQuote(f.v.ID(),
		assetIn, assetOut,
		asset.NewAmount(assetIn, amountIn),
		asset.NewAmount(assetOut, f.out[tokenIn]),
		80000, venue.FeeTier030)
	q.Timestamp = time.Now().Add(-f.quoteAge)
	return &q, nil
}

func testVenue(id string) *venue.Venue {
	return venue.New(id, venue.KindUniswapV3,
		common.HexToAddress("0x1000000000000000000000000000000000000001"),
		common.HexToAddress("0x1000000000000000000000000000000000000002"))
}

func testLogger() logger.LoggerInterface {
	return logger.New(nil, logger.LevelError, "test", nil)
}

func newTestVerifier(buy, sell VenueQuoter) *Verifier {
	return NewVerifier(DefaultVerifierConfig(), []VenueQuoter{buy, sell}, testLogger())
}

func TestVerifyPassesAboveMinSpread(t *testing.T) {
	amountIn := big.NewInt(10_000_000_000) // 10,000 USDC (6 decimals)

	buy := &fakeQuoter{
		v:   testVenue("uniswap-v3"),
		out: map[common.Address]*big.Int{testTokenIn: big.NewInt(3_000_000_000_000_000_000)}, // 3 WETH
	}
	sell := &fakeQuoter{
		v:   testVenue("sushiswap-v3"),
		out: map[common.Address]*big.Int{testTokenOut: big.NewInt(10_100_000_000)}, // 10,100 USDC back
	}

	v := newTestVerifier(buy, sell)

	result, err := v.Verify(context.Background(), "uniswap-v3", "sushiswap-v3", testTokenIn, testTokenOut, amountIn)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Passed {
		t.Errorf("Passed = false, reason = %q", result.Reason)
	}
	if !result.Spread.Percent.Equal(decimal.RequireFromString("1")) {
		t.Errorf("Spread.Percent = %s, want 1", result.Spread.Percent)
	}
}

func TestVerifyRejectsBelowMinSpread(t *testing.T) {
	amountIn := big.NewInt(10_000_000_000)

	buy := &fakeQuoter{
		v:   testVenue("uniswap-v3"),
		out: map[common.Address]*big.Int{testTokenIn: big.NewInt(3_000_000_000_000_000_000)},
	}
	sell := &fakeQuoter{
		v:   testVenue("sushiswap-v3"),
		out: map[common.Address]*big.Int{testTokenOut: big.NewInt(10_020_000_000)}, // +0.2%, below 0.5%
	}

	v := newTestVerifier(buy, sell)

	result, err := v.Verify(context.Background(), "uniswap-v3", "sushiswap-v3", testTokenIn, testTokenOut, amountIn)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Passed {
		t.Error("Passed = true for 0.2% spread with 0.5% minimum")
	}
	if result.Reason == "" {
		t.Error("Reason empty for rejected verification")
	}
}

func TestVerifyFailsClosedOnQuoteError(t *testing.T) {
	buy := &fakeQuoter{
		v:   testVenue("uniswap-v3"),
		err: apperror.New(apperror.CodeContractCallFailed),
	}
	sell := &fakeQuoter{
		v:   testVenue("sushiswap-v3"),
		out: map[common.Address]*big.Int{testTokenOut: big.NewInt(1)},
	}

	v := newTestVerifier(buy, sell)

	_, err := v.Verify(context.Background(), "uniswap-v3", "sushiswap-v3", testTokenIn, testTokenOut, big.NewInt(1_000_000))
	if err == nil {
		t.Fatal("expected error when buy leg quote fails")
	}
	if apperror.GetCode(err) != apperror.CodeQuoteFailed {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodeQuoteFailed)
	}
}

func TestVerifyFailsClosedOnStaleQuote(t *testing.T) {
	buy := &fakeQuoter{
		v:        testVenue("uniswap-v3"),
		out:      map[common.Address]*big.Int{testTokenIn: big.NewInt(3_000_000_000_000_000_000)},
		quoteAge: time.Minute,
	}
	sell := &fakeQuoter{
		v:   testVenue("sushiswap-v3"),
		out: map[common.Address]*big.Int{testTokenOut: big.NewInt(10_100_000_000)},
	}

	v := newTestVerifier(buy, sell)

	_, err := v.Verify(context.Background(), "uniswap-v3", "sushiswap-v3", testTokenIn, testTokenOut, big.NewInt(10_000_000_000))
	if err == nil {
		t.Fatal("expected error for stale quote")
	}
	if apperror.GetCode(err) != apperror.CodeStalePrice {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodeStalePrice)
	}
}

func TestVerifyUnknownVenue(t *testing.T) {
	buy := &fakeQuoter{
		v:   testVenue("uniswap-v3"),
		out: map[common.Address]*big.Int{testTokenIn: big.NewInt(1)},
	}

	v := NewVerifier(DefaultVerifierConfig(), []VenueQuoter{buy}, testLogger())

	_, err := v.Verify(context.Background(), "uniswap-v3", "no-such-venue", testTokenIn, testTokenOut, big.NewInt(1_000_000))
	if err == nil {
		t.Fatal("expected error for unknown venue")
	}
	if apperror.GetCode(err) != apperror.CodeUnknownVenue {
		t.Errorf("GetCode() = %v, want %v", apperror.GetCode(err), apperror.CodeUnknownVenue)
	}
}

func TestVerifyInvalidTradeSize(t *testing.T) {
	buy := &fakeQuoter{v: testVenue("uniswap-v3")}
	sell := &fakeQuoter{v: testVenue("sushiswap-v3")}

	v := newTestVerifier(buy, sell)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, err := v.Verify(context.Background(), "uniswap-v3", "sushiswap-v3", testTokenIn, testTokenOut, amount)
		if apperror.GetCode(err) != apperror.CodeInvalidTradeSize {
			t.Errorf("amount %v: GetCode() = %v, want %v", amount, apperror.GetCode(err), apperror.CodeInvalidTradeSize)
		}
	}
}

package intake

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

type captureExecutor struct {
	opps []*domain.Opportunity
	err  error
}

func (c *captureExecutor) Execute(ctx context.Context, opp *domain.Opportunity) (*domain.ExecutionRecord, error) {
	c.opps = append(c.opps, opp)
	if c.err != nil {
		return nil, c.err
	}
	return domain.NewExecutionRecord(opp.ID), nil
}

func testLog() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

const validLine = `{"token_in":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","token_out":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","token_in_symbol":"USDC","token_out_symbol":"WETH","buy_venue":"uniswap-v3","sell_venue":"sushiswap","amount_in":"10000000000","expected_profit":"25.5"}`

func TestReaderExecutesValidLines(t *testing.T) {
	exec := &captureExecutor{}
	r := NewReader(strings.NewReader(validLine+"\n"+validLine+"\n"), exec, testLog())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(exec.opps) != 2 {
		t.Fatalf("executed %d opportunities, want 2", len(exec.opps))
	}

	opp := exec.opps[0]
	if opp.TokenInSymbol != "USDC" || opp.BuyVenue != "uniswap-v3" {
		t.Errorf("unexpected opportunity fields: %+v", opp)
	}
	if opp.AmountIn.String() != "10000000000" {
		t.Errorf("AmountIn = %s, want 10000000000", opp.AmountIn)
	}
	if !opp.ExpectedProfit.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("ExpectedProfit = %s, want 25.5", opp.ExpectedProfit)
	}
	if opp.ID == "" {
		t.Error("expected a generated opportunity ID")
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`not json`,
		`{"token_in":"garbage","token_out":"also-garbage","amount_in":"1"}`,
		`{"token_in":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","token_out":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","amount_in":"-5"}`,
		validLine,
	}, "\n")

	exec := &captureExecutor{}
	r := NewReader(strings.NewReader(input), exec, testLog())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(exec.opps) != 1 {
		t.Fatalf("executed %d opportunities, want 1 (malformed skipped)", len(exec.opps))
	}
}

func TestReaderContinuesAfterExecutionFailure(t *testing.T) {
	exec := &captureExecutor{err: errors.New("node unavailable")}
	r := NewReader(strings.NewReader(validLine+"\n"+validLine+"\n"), exec, testLog())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(exec.opps) != 2 {
		t.Fatalf("executed %d opportunities, want 2 (stream survives failures)", len(exec.opps))
	}
}

func TestReaderStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &captureExecutor{}
	r := NewReader(strings.NewReader(validLine+"\n"), exec, testLog())

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(exec.opps) != 0 {
		t.Errorf("executed %d opportunities after cancel, want 0", len(exec.opps))
	}
}

package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestWaitReturnsMinedReceipt(t *testing.T) {
	chain := newFakeChain()
	// Pending twice, then mined.
	chain.receipts = []*types.Receipt{nil, nil, {
		Status:            types.ReceiptStatusSuccessful,
		BlockNumber:       big.NewInt(123),
		GasUsed:           90_000,
		EffectiveGasPrice: big.NewInt(110_000_000_000),
	}}

	w := NewWaiter(chain, WaiterConfig{PollEvery: time.Millisecond, Timeout: time.Second}, testLogger())

	conf, err := w.Wait(context.Background(), common.HexToHash("0xabc"))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if conf.TimedOut {
		t.Error("TimedOut = true for a mined transaction")
	}
	if conf.Status != types.ReceiptStatusSuccessful {
		t.Errorf("Status = %d, want success", conf.Status)
	}
	if conf.BlockNumber != 123 {
		t.Errorf("BlockNumber = %d, want 123", conf.BlockNumber)
	}
}

func TestWaitTimesOutWhilePending(t *testing.T) {
	chain := newFakeChain() // never returns a receipt
	w := NewWaiter(chain, WaiterConfig{PollEvery: time.Millisecond, Timeout: 20 * time.Millisecond}, testLogger())

	conf, err := w.Wait(context.Background(), common.HexToHash("0xdef"))
	if err != nil {
		t.Fatalf("a timeout is an outcome, not an error: %v", err)
	}
	if !conf.TimedOut {
		t.Error("TimedOut = false after the confirmation window closed")
	}
	if conf.Status != 0 || conf.Logs != nil {
		t.Error("timed-out confirmation must not carry receipt data")
	}
}

func TestWaitSurfacesInfrastructureErrors(t *testing.T) {
	chain := newFakeChain()
	chain.receiptErrs = []error{errors.New("connection refused")}

	w := NewWaiter(chain, WaiterConfig{PollEvery: time.Millisecond, Timeout: time.Second}, testLogger())

	if _, err := w.Wait(context.Background(), common.HexToHash("0x123")); err == nil {
		t.Error("expected error for a non-pending receipt failure")
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	chain := newFakeChain()
	w := NewWaiter(chain, WaiterConfig{PollEvery: 10 * time.Millisecond, Timeout: time.Minute}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Wait(ctx, common.HexToHash("0x456")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

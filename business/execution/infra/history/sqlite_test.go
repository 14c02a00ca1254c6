package history

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), logger.New(nil, logger.LevelError, "test", nil))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	r := domain.NewExecutionRecord("opp-1")
	r.TxHash = "0xabc"
	r.Attempts = 2
	if err := r.Finalize(domain.Outcome{
		Kind:              domain.OutcomeSuccess,
		Profit:            big.NewInt(55_000_000),
		ProfitUSD:         decimal.RequireFromString("55"),
		ProfitEvent:       "ArbitrageExecuted",
		GasUsed:           90_000,
		EffectiveGasPrice: big.NewInt(110_000_000_000),
	}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, 10)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d records, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != r.ID || got.OpportunityID != "opp-1" {
		t.Errorf("identity mismatch: %s / %s", got.ID, got.OpportunityID)
	}
	if got.State != domain.StateRecorded {
		t.Errorf("State = %s, want %s", got.State, domain.StateRecorded)
	}
	if got.TxHash != "0xabc" || got.Attempts != 2 {
		t.Errorf("tx fields mismatch: %s / %d", got.TxHash, got.Attempts)
	}
	if got.Outcome == nil {
		t.Fatal("Outcome not loaded")
	}
	if got.Outcome.Kind != domain.OutcomeSuccess {
		t.Errorf("Kind = %s, want success", got.Outcome.Kind)
	}
	if got.Outcome.Profit == nil || got.Outcome.Profit.Int64() != 55_000_000 {
		t.Errorf("Profit = %v, want 55000000", got.Outcome.Profit)
	}
	if !got.Outcome.ProfitUSD.Equal(decimal.RequireFromString("55")) {
		t.Errorf("ProfitUSD = %s, want 55", got.Outcome.ProfitUSD)
	}
}

func TestSaveIsIdempotentPerRecord(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	r := domain.NewExecutionRecord("opp-2")
	if err := r.Finalize(domain.Skipped("gated")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(ctx, 10)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("loaded %d records after double save, want 1", len(loaded))
	}
}

func TestLoadNilProfitStaysNil(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	r := domain.NewExecutionRecord("opp-3")
	if err := r.Finalize(domain.Outcome{Kind: domain.OutcomeSuccess, GasUsed: 80_000}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[0].Outcome.Profit != nil {
		t.Errorf("Profit = %v, want nil (never fabricated)", loaded[0].Outcome.Profit)
	}
}

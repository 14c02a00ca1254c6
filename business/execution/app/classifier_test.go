package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
)

var (
	testContract = common.HexToAddress(testContractHex)
	otherAddr    = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func profitLog(emitter common.Address, signature string, profit int64) *types.Log {
	data := make([]byte, 32)
	big.NewInt(profit).FillBytes(data)
	return &types.Log{
		Address: emitter,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(signature))},
		Data:    data,
	}
}

func minedConfirmation(status uint64, logs ...*types.Log) *domain.Confirmation {
	return &domain.Confirmation{
		TxHash:         common.HexToHash("0xabc"),
		Status:         status,
		BlockNumber:    100,
		GasUsed:        90_000,
		EffectivePrice: big.NewInt(110_000_000_000),
		Logs:           logs,
	}
}

func TestClassifyTimeout(t *testing.T) {
	c := NewClassifier(testContract)
	out := c.Classify(&domain.Confirmation{TimedOut: true})
	if out.Kind != domain.OutcomeTimeout {
		t.Errorf("Kind = %s, want %s", out.Kind, domain.OutcomeTimeout)
	}
	if out.HasProfit() {
		t.Error("timeout must not carry a profit")
	}
}

func TestClassifyReverted(t *testing.T) {
	c := NewClassifier(testContract)
	// A revert can still leave logs from before the failing call; none of
	// them count.
	out := c.Classify(minedConfirmation(types.ReceiptStatusFailed,
		profitLog(testContract, "ArbitrageExecuted(address,uint256)", 500)))
	if out.Kind != domain.OutcomeReverted {
		t.Errorf("Kind = %s, want %s", out.Kind, domain.OutcomeReverted)
	}
	if out.HasProfit() {
		t.Error("reverted execution must not carry a profit")
	}
	if out.GasUsed != 90_000 {
		t.Errorf("GasUsed = %d, want 90000", out.GasUsed)
	}
}

func TestClassifySuccessWithArbitrageEvent(t *testing.T) {
	c := NewClassifier(testContract)
	out := c.Classify(minedConfirmation(types.ReceiptStatusSuccessful,
		profitLog(testContract, "ArbitrageExecuted(address,uint256)", 12345)))
	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("Kind = %s, want %s", out.Kind, domain.OutcomeSuccess)
	}
	if !out.HasProfit() || out.Profit.Int64() != 12345 {
		t.Errorf("Profit = %v, want 12345", out.Profit)
	}
	if out.ProfitEvent != "ArbitrageExecuted" {
		t.Errorf("ProfitEvent = %q, want ArbitrageExecuted", out.ProfitEvent)
	}
}

func TestClassifyEventPriority(t *testing.T) {
	c := NewClassifier(testContract)
	// When both events appear ArbitrageExecuted wins, regardless of order.
	out := c.Classify(minedConfirmation(types.ReceiptStatusSuccessful,
		profitLog(testContract, "FlashLoanExecuted(address,uint256,uint256)", 111),
		profitLog(testContract, "ArbitrageExecuted(address,uint256)", 222)))
	if out.ProfitEvent != "ArbitrageExecuted" {
		t.Errorf("ProfitEvent = %q, want ArbitrageExecuted", out.ProfitEvent)
	}
	if out.Profit.Int64() != 222 {
		t.Errorf("Profit = %v, want 222", out.Profit)
	}
}

func TestClassifyFlashLoanFallback(t *testing.T) {
	c := NewClassifier(testContract)
	out := c.Classify(minedConfirmation(types.ReceiptStatusSuccessful,
		profitLog(testContract, "FlashLoanExecuted(address,uint256,uint256)", 777)))
	if out.ProfitEvent != "FlashLoanExecuted" {
		t.Errorf("ProfitEvent = %q, want FlashLoanExecuted", out.ProfitEvent)
	}
	if out.Profit.Int64() != 777 {
		t.Errorf("Profit = %v, want 777", out.Profit)
	}
}

func TestClassifySuccessWithoutEvent(t *testing.T) {
	c := NewClassifier(testContract)
	out := c.Classify(minedConfirmation(types.ReceiptStatusSuccessful))
	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("Kind = %s, want %s", out.Kind, domain.OutcomeSuccess)
	}
	// No event means no profit claim; the success stands on its own.
	if out.HasProfit() {
		t.Errorf("Profit = %v, want nil", out.Profit)
	}
}

func TestClassifyIgnoresForeignContractLogs(t *testing.T) {
	c := NewClassifier(testContract)
	out := c.Classify(minedConfirmation(types.ReceiptStatusSuccessful,
		profitLog(otherAddr, "ArbitrageExecuted(address,uint256)", 999)))
	if out.HasProfit() {
		t.Errorf("profit decoded from a log the executor did not emit: %v", out.Profit)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier(testContract)
	conf := minedConfirmation(types.ReceiptStatusSuccessful,
		profitLog(testContract, "ArbitrageExecuted(address,uint256)", 42))

	first := c.Classify(conf)
	second := c.Classify(conf)
	if first.Kind != second.Kind || first.ProfitEvent != second.ProfitEvent {
		t.Errorf("classification differs between runs: %+v vs %+v", first, second)
	}
	if first.Profit.Cmp(second.Profit) != 0 {
		t.Errorf("profit differs between runs: %v vs %v", first.Profit, second.Profit)
	}
}

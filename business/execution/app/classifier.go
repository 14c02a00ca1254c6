package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
)

// Executor contract event signatures, in priority order. When a receipt
// carries both, the more specific ArbitrageExecuted wins.
var (
	arbitrageExecutedTopic = crypto.Keccak256Hash([]byte("ArbitrageExecuted(address,uint256)"))
	flashLoanExecutedTopic = crypto.Keccak256Hash([]byte("FlashLoanExecuted(address,uint256,uint256)"))
)

// Classifier turns a confirmation into a terminal outcome. It is a pure
// function of its inputs: classifying the same confirmation twice yields the
// same outcome.
type Classifier struct {
	contract common.Address
}

// NewClassifier creates a classifier bound to the executor contract address.
// Only events emitted by that contract are trusted for profit.
func NewClassifier(contract common.Address) *Classifier {
	return &Classifier{contract: contract}
}

// Classify maps a confirmation to an outcome:
//
//   - timed out           -> OutcomeTimeout, fate unknown
//   - mined with status 0 -> OutcomeReverted
//   - mined with status 1 -> OutcomeSuccess; profit only when an executor
//     event attests to it, otherwise profit stays nil
//
// Profit is never inferred from anything but the contract's own events.
func (c *Classifier) Classify(conf *domain.Confirmation) domain.Outcome {
	if conf.TimedOut {
		return domain.TimedOut("no receipt within confirmation window")
	}

	if conf.Status == types.ReceiptStatusFailed {
		return domain.Outcome{
			Kind:              domain.OutcomeReverted,
			Reason:            "transaction reverted on-chain",
			GasUsed:           conf.GasUsed,
			EffectiveGasPrice: conf.EffectivePrice,
		}
	}

	outcome := domain.Outcome{
		Kind:              domain.OutcomeSuccess,
		GasUsed:           conf.GasUsed,
		EffectiveGasPrice: conf.EffectivePrice,
	}
	if profit, event, ok := c.extractProfit(conf.Logs); ok {
		outcome.Profit = profit
		outcome.ProfitEvent = event
	}
	return outcome
}

// extractProfit scans receipt logs for the executor's profit events. Both
// events put the profit in the last data word; logs from other contracts are
// ignored, whatever their topics claim.
func (c *Classifier) extractProfit(logs []*types.Log) (*big.Int, string, bool) {
	var flashLoanProfit *big.Int

	for _, l := range logs {
		if l == nil || l.Address != c.contract || len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case arbitrageExecutedTopic:
			if profit, ok := lastDataWord(l.Data); ok {
				return profit, "ArbitrageExecuted", true
			}
		case flashLoanExecutedTopic:
			if profit, ok := lastDataWord(l.Data); ok && flashLoanProfit == nil {
				flashLoanProfit = profit
			}
		}
	}

	if flashLoanProfit != nil {
		return flashLoanProfit, "FlashLoanExecuted", true
	}
	return nil, "", false
}

// lastDataWord returns the final 32-byte word of ABI-encoded event data.
func lastDataWord(data []byte) (*big.Int, bool) {
	if len(data) < 32 || len(data)%32 != 0 {
		return nil, false
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), true
}

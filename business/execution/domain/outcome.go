package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// OutcomeKind is the terminal result of an execution attempt.
type OutcomeKind string

const (
	// OutcomeSkipped means the opportunity never produced a transaction.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeSuccess means the transaction mined with status 1.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeReverted means the transaction mined with status 0.
	OutcomeReverted OutcomeKind = "reverted"
	// OutcomeFailed means the attempt failed before or during broadcast.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeTimeout means the transaction was broadcast but no receipt
	// arrived within the confirmation window. Its fate is unknown; it is
	// neither a success nor a failure.
	OutcomeTimeout OutcomeKind = "timeout"
)

// Outcome is the classified result of an execution. Profit is nil unless it
// was decoded from an on-chain event: an absent profit is reported as absent,
// never estimated.
type Outcome struct {
	Kind              OutcomeKind
	Reason            string          // why skipped / failed / reverted
	Profit            *big.Int        // decoded from logs, in TokenIn units; nil = not observed
	ProfitUSD         decimal.Decimal // reporting-only conversion; zero when Profit is nil
	ProfitEvent       string          // event name the profit was decoded from
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Skipped builds a skip outcome.
func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds a failure outcome.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// TimedOut builds a timeout outcome.
func TimedOut(reason string) Outcome {
	return Outcome{Kind: OutcomeTimeout, Reason: reason}
}

// HasProfit reports whether a profit value was actually observed on-chain.
func (o Outcome) HasProfit() bool {
	return o.Profit != nil
}

// Terminal reports whether the kind is a valid terminal classification.
func (k OutcomeKind) Terminal() bool {
	switch k {
	case OutcomeSkipped, OutcomeSuccess, OutcomeReverted, OutcomeFailed, OutcomeTimeout:
		return true
	}
	return false
}

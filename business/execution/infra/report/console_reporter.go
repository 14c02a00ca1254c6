// Package report contains operator-facing output adapters for the execution context.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sumitrevolt/flasharb/business/execution/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

var _ app.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Report prints a finalized execution record.
func (r *ConsoleReporter) Report(_ context.Context, record *domain.ExecutionRecord) {
	outcome := record.Outcome
	if outcome == nil {
		return
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "EXECUTION %s\n", headline(outcome.Kind))
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Record:         %s\n", record.ID)
	fmt.Fprintf(r.out, "Opportunity:    %s\n", record.OpportunityID)
	fmt.Fprintf(r.out, "Finalized:      %s\n", record.FinalizedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Duration:       %s\n", record.Duration().Round(time.Millisecond))
	if record.TxHash != "" {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintln(r.out, "TRANSACTION")
		fmt.Fprintf(r.out, "  Hash:           %s\n", record.TxHash)
		fmt.Fprintf(r.out, "  Attempts:       %d\n", record.Attempts)
		if outcome.GasUsed > 0 {
			fmt.Fprintf(r.out, "  Gas Used:       %d\n", outcome.GasUsed)
		}
		if outcome.EffectiveGasPrice != nil {
			fmt.Fprintf(r.out, "  Gas Price:      %s wei\n", outcome.EffectiveGasPrice.String())
		}
	}
	if outcome.Reason != "" {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(r.out, "Reason:         %s\n", outcome.Reason)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	if outcome.HasProfit() {
		fmt.Fprintf(r.out, "  On-chain:       %s (%s)\n", outcome.Profit.String(), outcome.ProfitEvent)
		fmt.Fprintf(r.out, "  USD:            $%s\n", outcome.ProfitUSD.StringFixed(2))
	} else {
		fmt.Fprintln(r.out, "  Not observed on-chain")
	}
	fmt.Fprintln(r.out, "================================================================================")
}

func headline(kind domain.OutcomeKind) string {
	switch kind {
	case domain.OutcomeSuccess:
		return "SUCCEEDED"
	case domain.OutcomeReverted:
		return "REVERTED"
	case domain.OutcomeTimeout:
		return "TIMED OUT"
	case domain.OutcomeSkipped:
		return "SKIPPED"
	default:
		return "FAILED"
	}
}

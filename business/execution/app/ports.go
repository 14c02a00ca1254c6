package app

import (
	"context"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
)

// PlanEncoder produces calldata for the executor contract. Encoders are tried
// in registration order; the first one that encodes the opportunity wins.
type PlanEncoder interface {
	// Name identifies the encoder in records and logs.
	Name() string
	// Encode packs the opportunity into calldata for the given fee tier.
	Encode(opp *domain.Opportunity, feeTier int) ([]byte, error)
}

// HistoryStore persists finalized execution records.
type HistoryStore interface {
	Save(ctx context.Context, record *domain.ExecutionRecord) error
	Load(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error)
	Close() error
}

// Reporter receives finalized records for operator-facing output.
type Reporter interface {
	Report(ctx context.Context, record *domain.ExecutionRecord)
}

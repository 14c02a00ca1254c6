package app

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const trackerMeterName = "flasharb/execution"

// defaultHistoryCap bounds the in-memory history when no cap is configured.
const defaultHistoryCap = 1000

// trackerMetrics holds OTEL metric instruments.
type trackerMetrics struct {
	recordsTotal   metric.Int64Counter
	historySize    metric.Int64Gauge
	profitObserved metric.Int64Counter
}

// Tracker keeps a bounded append-only history of finalized executions. When
// the cap is reached the oldest record is dropped; records themselves are
// never mutated after they are added.
type Tracker struct {
	mu      sync.RWMutex
	records []*domain.ExecutionRecord
	cap     int

	store   HistoryStore // optional durable copy
	log     logger.LoggerInterface
	metrics *trackerMetrics
}

// NewTracker creates a Tracker. The store may be nil for in-memory only.
func NewTracker(cap int, store HistoryStore, log logger.LoggerInterface) (*Tracker, error) {
	if cap <= 0 {
		cap = defaultHistoryCap
	}
	t := &Tracker{
		records: make([]*domain.ExecutionRecord, 0, cap),
		cap:     cap,
		store:   store,
		log:     log,
	}
	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return t, nil
}

func (t *Tracker) initMetrics() error {
	meter := otel.Meter(trackerMeterName)
	var err error

	t.metrics = &trackerMetrics{}

	t.metrics.recordsTotal, err = meter.Int64Counter(
		"execution.records.total",
		metric.WithDescription("Finalized execution records by outcome"),
	)
	if err != nil {
		return err
	}

	t.metrics.historySize, err = meter.Int64Gauge(
		"execution.history.size",
		metric.WithDescription("Records currently held in history"),
	)
	if err != nil {
		return err
	}

	t.metrics.profitObserved, err = meter.Int64Counter(
		"execution.profit.observed.total",
		metric.WithDescription("Executions where an on-chain profit event was decoded"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Add appends a finalized record. A persistence failure is logged but does
// not reject the record; the in-memory history is the source of truth for
// the running process.
func (t *Tracker) Add(ctx context.Context, record *domain.ExecutionRecord) {
	t.mu.Lock()
	if len(t.records) >= t.cap {
		// Drop the oldest; shift rather than reslice so the backing
		// array does not pin evicted records.
		copy(t.records, t.records[1:])
		t.records = t.records[:len(t.records)-1]
	}
	t.records = append(t.records, record)
	size := len(t.records)
	t.mu.Unlock()

	kind := ""
	if record.Outcome != nil {
		kind = string(record.Outcome.Kind)
	}
	t.metrics.recordsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind)))
	t.metrics.historySize.Record(ctx, int64(size))
	if record.Outcome != nil && record.Outcome.HasProfit() {
		t.metrics.profitObserved.Add(ctx, 1)
	}

	if t.store != nil {
		if err := t.store.Save(ctx, record); err != nil {
			t.log.Error(ctx, "failed to persist execution record",
				"record_id", record.ID,
				"error", err,
			)
		}
	}
}

// Recent returns up to n records, newest first.
func (t *Tracker) Recent(n int) []*domain.ExecutionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || n > len(t.records) {
		n = len(t.records)
	}
	out := make([]*domain.ExecutionRecord, 0, n)
	for i := len(t.records) - 1; i >= len(t.records)-n; i-- {
		out = append(out, t.records[i])
	}
	return out
}

// Len returns the number of records currently held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Summary aggregates outcomes across the held history.
type Summary struct {
	Total     int
	ByOutcome map[domain.OutcomeKind]int
}

// Summarize counts records by outcome kind.
func (t *Tracker) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		Total:     len(t.records),
		ByOutcome: make(map[domain.OutcomeKind]int),
	}
	for _, r := range t.records {
		if r.Outcome != nil {
			s.ByOutcome[r.Outcome.Kind]++
		}
	}
	return s
}

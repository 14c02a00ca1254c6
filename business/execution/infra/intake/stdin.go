// Package intake feeds opportunities from an external detector into the
// execution engine. Detectors speak newline-delimited JSON on any reader,
// typically a pipe on stdin.
package intake

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

// opportunityMsg is the wire form an external detector emits, one JSON
// object per line.
type opportunityMsg struct {
	ID             string `json:"id,omitempty"`
	TokenIn        string `json:"token_in"`
	TokenOut       string `json:"token_out"`
	TokenInSymbol  string `json:"token_in_symbol"`
	TokenOutSymbol string `json:"token_out_symbol"`
	BuyVenue       string `json:"buy_venue"`
	SellVenue      string `json:"sell_venue"`
	AmountIn       string `json:"amount_in"`
	ExpectedProfit string `json:"expected_profit,omitempty"`
}

// Executor runs a single opportunity to completion. Satisfied by
// app.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, opp *domain.Opportunity) (*domain.ExecutionRecord, error)
}

// Reader decodes opportunities from a stream and hands each one to the
// executor. Executions run sequentially in arrival order.
type Reader struct {
	src  io.Reader
	exec Executor
	log  logger.LoggerInterface
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader, exec Executor, log logger.LoggerInterface) *Reader {
	return &Reader{src: src, exec: exec, log: log}
}

// Run consumes the stream until EOF or context cancellation. Malformed
// lines are logged and skipped; execution failures are logged and do not
// stop the stream.
func (r *Reader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		opp, err := parseOpportunity(line)
		if err != nil {
			r.log.Warn(ctx, "dropping malformed opportunity", "error", err)
			continue
		}

		record, err := r.exec.Execute(ctx, opp)
		if err != nil {
			r.log.Error(ctx, "execution failed",
				"opportunity", opp.ID,
				"error", err,
			)
			continue
		}
		if record != nil && record.Outcome != nil {
			r.log.Info(ctx, "opportunity executed",
				"opportunity", opp.ID,
				"outcome", string(record.Outcome.Kind),
			)
		}
	}
	return scanner.Err()
}

func parseOpportunity(line []byte) (*domain.Opportunity, error) {
	var msg opportunityMsg
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, apperror.New(apperror.CodeValidationError,
			apperror.WithContext("decoding opportunity JSON"),
			apperror.WithCause(err))
	}

	if !common.IsHexAddress(msg.TokenIn) || !common.IsHexAddress(msg.TokenOut) {
		return nil, apperror.New(apperror.CodeValidationError,
			apperror.WithContext(fmt.Sprintf("invalid token address: in=%q out=%q", msg.TokenIn, msg.TokenOut)))
	}

	amountIn, ok := new(big.Int).SetString(msg.AmountIn, 10)
	if !ok || amountIn.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeValidationError,
			apperror.WithContext(fmt.Sprintf("invalid amount_in %q", msg.AmountIn)))
	}

	expectedProfit := decimal.Zero
	if msg.ExpectedProfit != "" {
		var err error
		expectedProfit, err = decimal.NewFromString(msg.ExpectedProfit)
		if err != nil {
			return nil, apperror.New(apperror.CodeValidationError,
				apperror.WithContext(fmt.Sprintf("invalid expected_profit %q", msg.ExpectedProfit)),
				apperror.WithCause(err))
		}
	}

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &domain.Opportunity{
		ID:             id,
		TokenIn:        common.HexToAddress(msg.TokenIn),
		TokenOut:       common.HexToAddress(msg.TokenOut),
		TokenInSymbol:  msg.TokenInSymbol,
		TokenOutSymbol: msg.TokenOutSymbol,
		BuyVenue:       msg.BuyVenue,
		SellVenue:      msg.SellVenue,
		AmountIn:       amountIn,
		ExpectedProfit: expectedProfit,
		DetectedAt:     time.Now(),
	}, nil
}

package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
)

func newTestSender(t *testing.T, chain *fakeChain) *Sender {
	t.Helper()
	s, err := NewSender(chain, testPrivateKey, testWalletAddr, big.NewInt(1), testLogger())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	return s
}

func testPlan(gasPrice int64) *domain.TxPlan {
	to := common.HexToAddress(testContractHex)
	return &domain.TxPlan{
		OpportunityID: "opp-1",
		To:            to,
		CallData:      []byte{0x01, 0x02},
		Encoder:       "executeArbitrage/tiered",
		GasLimit:      150_000,
		GasPrice:      big.NewInt(gasPrice),
		Nonce:         7,
		Value:         big.NewInt(0),
		BuiltAt:       time.Now(),
	}
}

func TestNewSenderValidation(t *testing.T) {
	chain := newFakeChain()

	if _, err := NewSender(chain, "not-hex", "", big.NewInt(1), testLogger()); err == nil {
		t.Error("expected error for malformed private key")
	}
	if _, err := NewSender(chain, testPrivateKey, "0x2000000000000000000000000000000000000001", big.NewInt(1), testLogger()); err == nil {
		t.Error("expected error for mismatched wallet address")
	}
	if _, err := NewSender(chain, testPrivateKey, testWalletAddr, nil, testLogger()); err == nil {
		t.Error("expected error for missing chain ID")
	}

	s, err := NewSender(chain, testPrivateKey, testWalletAddr, big.NewInt(1), testLogger())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if s.From() != common.HexToAddress(testWalletAddr) {
		t.Errorf("From() = %s, want %s", s.From().Hex(), testWalletAddr)
	}
}

func TestSignAndSendUsesFreshNonce(t *testing.T) {
	chain := newFakeChain()
	chain.pendingNonce = 42
	s := newTestSender(t, chain)

	plan := testPlan(110_000_000_000) // within band of the 100 gwei suggestion
	plan.Nonce = 7                    // stale

	sent, err := s.SignAndSend(context.Background(), plan)
	if err != nil {
		t.Fatalf("SignAndSend: %v", err)
	}
	if sent.Nonce != 42 {
		t.Errorf("nonce = %d, want refreshed 42", sent.Nonce)
	}
	if tx := chain.lastSent(); tx.Nonce() != 42 {
		t.Errorf("broadcast nonce = %d, want 42", tx.Nonce())
	}
}

func TestSignAndSendGasPriceReconciliation(t *testing.T) {
	// Current suggestion is 100 gwei; the acceptance band is [80, 150] and
	// anything outside it is repriced at 120 gwei.
	tests := []struct {
		name    string
		planned int64
		want    int64
	}{
		{"within band is kept", 110_000_000_000, 110_000_000_000},
		{"lower bound is kept", 80_000_000_000, 80_000_000_000},
		{"too low is repriced", 50_000_000_000, 120_000_000_000},
		{"too high is repriced", 200_000_000_000, 120_000_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			s := newTestSender(t, chain)

			sent, err := s.SignAndSend(context.Background(), testPlan(tt.planned))
			if err != nil {
				t.Fatalf("SignAndSend: %v", err)
			}
			if sent.GasPrice.Int64() != tt.want {
				t.Errorf("gas price = %d, want %d", sent.GasPrice.Int64(), tt.want)
			}
			if tx := chain.lastSent(); tx.GasPrice().Int64() != tt.want {
				t.Errorf("broadcast gas price = %d, want %d", tx.GasPrice().Int64(), tt.want)
			}
		})
	}
}

func TestSignAndSendClassifiesNodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		nodeErr  string
		wantCode apperror.Code
	}{
		{"nonce too low", "nonce too low: next nonce 43, tx nonce 42", apperror.CodeNonceConflict},
		{"underpriced", "replacement transaction underpriced", apperror.CodeTxUnderpriced},
		{"insufficient funds", "insufficient funds for gas * price + value", apperror.CodeInsufficientFunds},
		{"anything else", "txpool is full", apperror.CodeTxSendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.sendErrs = []error{errors.New(tt.nodeErr)}
			s := newTestSender(t, chain)

			_, err := s.SignAndSend(context.Background(), testPlan(110_000_000_000))
			if err == nil {
				t.Fatal("expected error")
			}
			if code := apperror.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestSignAndSendAlreadyKnownIsSuccess(t *testing.T) {
	chain := newFakeChain()
	chain.sendErrs = []error{errors.New("already known")}
	s := newTestSender(t, chain)

	sent, err := s.SignAndSend(context.Background(), testPlan(110_000_000_000))
	if err != nil {
		t.Fatalf("SignAndSend: %v", err)
	}
	if !sent.AlreadyKnown {
		t.Error("AlreadyKnown = false, want true")
	}
	if sent.Hash == (common.Hash{}) {
		t.Error("hash not set for already-known transaction")
	}
}

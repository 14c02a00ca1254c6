package app

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	chaindomain "github.com/sumitrevolt/flasharb/business/blockchain/domain"
	ethinfra "github.com/sumitrevolt/flasharb/business/blockchain/infra/ethereum"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

// Hardhat's well-known first dev account. Never funded on mainnet.
const (
	testPrivateKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testWalletAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testContractHex = "0x2000000000000000000000000000000000000001"
)

func testLogger() logger.LoggerInterface {
	return logger.New(nil, logger.LevelError, "test", nil)
}

// testGasOracle wraps the fake chain in the real oracle so price reads go
// through the same cache the wired pipeline uses.
func testGasOracle(t *testing.T, chain *fakeChain) chainapp.GasOracle {
	t.Helper()
	oracle, err := ethinfra.NewGasOracle(ethinfra.DefaultGasOracleConfig(), chain, testLogger())
	if err != nil {
		t.Fatalf("NewGasOracle: %v", err)
	}
	return oracle
}

// fakeChain is a scripted chain client for pipeline tests.
type fakeChain struct {
	mu sync.Mutex

	balance      *big.Int
	pendingNonce uint64
	nonceErr     error
	suggestPrice *big.Int
	suggestErr   error
	estimate     uint64
	estimateErr  error

	// sendErrs is consumed one per SendTransaction call; nil means accept.
	sendErrs []error
	sent     []*types.Transaction

	// receipts is consumed one per TransactionReceipt call; a nil receipt
	// with a nil error yields ethereum.NotFound.
	receipts    []*types.Receipt
	receiptErrs []error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balance:      new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)), // 10 ETH
		pendingNonce: 7,
		suggestPrice: big.NewInt(100_000_000_000), // 100 gwei
		estimate:     100_000,
	}
}

func (f *fakeChain) Connect(ctx context.Context) error { return nil }

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.pendingNonce, nil
}

func (f *fakeChain) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.pendingNonce, nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return new(big.Int).Set(f.suggestPrice), nil
}

func (f *fakeChain) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return nil, nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, tx)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	// An accepted transaction occupies its nonce in the pending pool.
	f.pendingNonce++
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.receiptErrs) > 0 {
		err := f.receiptErrs[0]
		f.receiptErrs = f.receiptErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.receipts) > 0 {
		r := f.receipts[0]
		f.receipts = f.receipts[1:]
		if r != nil {
			return r, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) State() chaindomain.ConnectionState {
	return chaindomain.StateConnected
}

func (f *fakeChain) Close() error { return nil }

func (f *fakeChain) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChain) lastSent() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

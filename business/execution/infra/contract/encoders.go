package contract

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sumitrevolt/flasharb/business/execution/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/venue"
)

// executorABI covers the executor contract entrypoints we can call. Deployed
// executors differ by vintage: newer ones take the fee tier explicitly, older
// ones pick the pool themselves, and the oldest expose only the raw flash-loan
// callback signature.
const executorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenIn", "type": "address"},
			{"internalType": "address", "name": "tokenOut", "type": "address"},
			{"internalType": "address", "name": "buyRouter", "type": "address"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "tokenIn", "type": "address"},
			{"internalType": "address", "name": "tokenOut", "type": "address"},
			{"internalType": "address", "name": "buyRouter", "type": "address"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"}
		],
		"name": "executeArbitrageLegacy",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "executeOperation",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	parsedABI abi.ABI
	parseOnce sync.Once
	parseErr  error
)

func executorInterface() (abi.ABI, error) {
	parseOnce.Do(func() {
		parsedABI, parseErr = abi.JSON(strings.NewReader(executorABI))
	})
	return parsedABI, parseErr
}

// TieredEncoder packs executeArbitrage(address,address,address,uint256,uint24)
// for executors that route through a specific fee tier. It is the preferred
// encoding and is tried first.
type TieredEncoder struct {
	venues *venue.Registry
}

var _ app.PlanEncoder = (*TieredEncoder)(nil)

func NewTieredEncoder(venues *venue.Registry) *TieredEncoder {
	return &TieredEncoder{venues: venues}
}

func (e *TieredEncoder) Name() string { return "executeArbitrage/tiered" }

func (e *TieredEncoder) Encode(opp *domain.Opportunity, feeTier int) ([]byte, error) {
	if feeTier <= 0 {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithContext("fee tier required for tiered encoding"))
	}
	router, err := routerFor(e.venues, opp.BuyVenue)
	if err != nil {
		return nil, err
	}
	contractABI, err := executorInterface()
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err))
	}
	data, err := contractABI.Pack("executeArbitrage",
		opp.TokenIn,
		opp.TokenOut,
		router,
		new(big.Int).Set(opp.AmountIn),
		big.NewInt(int64(feeTier)),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(e.Name()))
	}
	return data, nil
}

// LegacyEncoder packs executeArbitrage(address,address,address,uint256) for
// executors that select the pool themselves.
type LegacyEncoder struct {
	venues *venue.Registry
}

var _ app.PlanEncoder = (*LegacyEncoder)(nil)

func NewLegacyEncoder(venues *venue.Registry) *LegacyEncoder {
	return &LegacyEncoder{venues: venues}
}

func (e *LegacyEncoder) Name() string { return "executeArbitrage/legacy" }

func (e *LegacyEncoder) Encode(opp *domain.Opportunity, _ int) ([]byte, error) {
	router, err := routerFor(e.venues, opp.BuyVenue)
	if err != nil {
		return nil, err
	}
	contractABI, err := executorInterface()
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err))
	}
	data, err := contractABI.Pack("executeArbitrageLegacy",
		opp.TokenIn,
		opp.TokenOut,
		router,
		new(big.Int).Set(opp.AmountIn),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(e.Name()))
	}
	return data, nil
}

// FlashLoanEncoder packs executeOperation(address,uint256), the bare
// flash-loan entrypoint. It is the last resort: it carries only the borrowed
// asset and amount, leaving routing entirely to the contract.
type FlashLoanEncoder struct{}

var _ app.PlanEncoder = (*FlashLoanEncoder)(nil)

func NewFlashLoanEncoder() *FlashLoanEncoder { return &FlashLoanEncoder{} }

func (e *FlashLoanEncoder) Name() string { return "executeOperation" }

func (e *FlashLoanEncoder) Encode(opp *domain.Opportunity, _ int) ([]byte, error) {
	contractABI, err := executorInterface()
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed, apperror.WithCause(err))
	}
	data, err := contractABI.Pack("executeOperation",
		opp.TokenIn,
		new(big.Int).Set(opp.AmountIn),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(e.Name()))
	}
	return data, nil
}

// DefaultEncoders returns the encoder fallback chain in preference order.
func DefaultEncoders(venues *venue.Registry) []app.PlanEncoder {
	return []app.PlanEncoder{
		NewTieredEncoder(venues),
		NewLegacyEncoder(venues),
		NewFlashLoanEncoder(),
	}
}

func routerFor(venues *venue.Registry, venueID string) (common.Address, error) {
	v, ok := venues.Get(venueID)
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeUnknownVenue,
			apperror.WithContext(fmt.Sprintf("no venue %q for encoding", venueID)))
	}
	return v.Router(), nil
}

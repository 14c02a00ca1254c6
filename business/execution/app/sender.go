package app

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/sumitrevolt/flasharb/business/blockchain/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const senderTracerName = "flasharb/execution/sender"

// Gas price reconciliation bounds, relative to the node's current suggestion.
// A plan whose price moved outside [0.8x, 1.5x] between build and send is
// re-priced at 1.2x current.
var (
	reconcileLowNum   = big.NewInt(8) // 0.8x
	reconcileLowDen   = big.NewInt(10)
	reconcileHighNum  = big.NewInt(15) // 1.5x
	reconcileHighDen  = big.NewInt(10)
	reconcileResetNum = big.NewInt(12) // 1.2x
	reconcileResetDen = big.NewInt(10)
)

// Sender signs and broadcasts transaction plans. The signing key lives only
// inside the Sender; it is never logged and never written to records.
type Sender struct {
	client  chainapp.ChainClient
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	signer  types.Signer
	log     logger.LoggerInterface
	tracer  trace.Tracer
}

// NewSender parses the hex-encoded private key and verifies it matches the
// configured wallet address when one is given.
func NewSender(client chainapp.ChainClient, privateKeyHex, expectedAddress string, chainID *big.Int, log logger.LoggerInterface) (*Sender, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid wallet private key"))
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	if expectedAddress != "" && from != common.HexToAddress(expectedAddress) {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("wallet private key does not match configured address"))
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("sender requires a chain ID"))
	}
	return &Sender{
		client:  client,
		key:     key,
		from:    from,
		chainID: new(big.Int).Set(chainID),
		signer:  types.NewLondonSigner(chainID),
		log:     log,
		tracer:  otel.Tracer(senderTracerName),
	}, nil
}

// From returns the sending address derived from the signing key.
func (s *Sender) From() common.Address { return s.from }

// SignAndSend reconciles the plan's nonce and gas price against current chain
// state, signs the transaction, and broadcasts it. Node rejection strings are
// mapped to typed errors so the orchestrator can decide whether to retry.
func (s *Sender) SignAndSend(ctx context.Context, plan *domain.TxPlan) (*domain.SentTx, error) {
	ctx, span := s.tracer.Start(ctx, "sender.SignAndSend",
		trace.WithAttributes(attribute.String("opportunity.id", plan.OpportunityID)))
	defer span.End()

	nonce, gasPrice, err := s.reconcile(ctx, plan)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      plan.GasLimit,
		To:       &plan.To,
		Value:    plan.Value,
		Data:     plan.CallData,
	})

	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signing failed")
		return nil, apperror.New(apperror.CodeTxSendFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to sign transaction"))
	}

	sent := &domain.SentTx{
		Hash:     signed.Hash(),
		Nonce:    nonce,
		GasPrice: gasPrice,
		SentAt:   time.Now(),
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		classified := classifySendError(err)
		// A node that already has the transaction has accepted it; the
		// broadcast succeeded on a previous attempt or another path.
		if apperror.GetCode(classified) == apperror.CodeTxAlreadyKnown {
			sent.AlreadyKnown = true
			s.log.Warn(ctx, "transaction already known to node",
				"tx_hash", sent.Hash.Hex(), "nonce", nonce)
			span.SetAttributes(attribute.Bool("tx.already_known", true))
			return sent, nil
		}
		span.RecordError(classified)
		span.SetStatus(codes.Error, "broadcast rejected")
		return nil, classified
	}

	s.log.Info(ctx, "transaction broadcast",
		"tx_hash", sent.Hash.Hex(),
		"from", s.from.Hex(),
		"nonce", nonce,
		"gas_price_wei", gasPrice.String(),
	)
	span.SetAttributes(attribute.String("tx.hash", sent.Hash.Hex()))
	return sent, nil
}

// reconcile re-fetches the pending nonce and checks the plan's gas price
// against the node's current suggestion. The plan may be seconds old; chain
// state moves underneath it.
func (s *Sender) reconcile(ctx context.Context, plan *domain.TxPlan) (uint64, *big.Int, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return 0, nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to refresh nonce before send"))
	}

	current, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to refresh gas price before send"))
	}

	gasPrice := new(big.Int).Set(plan.GasPrice)
	low := new(big.Int).Mul(current, reconcileLowNum)
	low.Div(low, reconcileLowDen)
	high := new(big.Int).Mul(current, reconcileHighNum)
	high.Div(high, reconcileHighDen)

	if gasPrice.Cmp(low) < 0 || gasPrice.Cmp(high) > 0 {
		repriced := new(big.Int).Mul(current, reconcileResetNum)
		repriced.Div(repriced, reconcileResetDen)
		s.log.Debug(ctx, "gas price drifted since build, repricing",
			"planned_wei", gasPrice.String(),
			"current_wei", current.String(),
			"repriced_wei", repriced.String(),
		)
		gasPrice = repriced
	}

	return nonce, gasPrice, nil
}

// classifySendError maps the node's rejection string to a typed error. Node
// implementations phrase these differently; matching is substring-based and
// case-insensitive.
func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low"):
		return apperror.New(apperror.CodeNonceConflict,
			apperror.WithCause(err))
	case strings.Contains(msg, "already known"), strings.Contains(msg, "known transaction"):
		return apperror.New(apperror.CodeTxAlreadyKnown,
			apperror.WithCause(err))
	case strings.Contains(msg, "underpriced"):
		return apperror.New(apperror.CodeTxUnderpriced,
			apperror.WithCause(err))
	case strings.Contains(msg, "insufficient funds"):
		return apperror.New(apperror.CodeInsufficientFunds,
			apperror.WithCause(err))
	default:
		return apperror.New(apperror.CodeTxSendFailed,
			apperror.WithCause(err))
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coldsats/lnwallet/internal/gateway"
	"github.com/coldsats/lnwallet/internal/lnurl"
	"github.com/coldsats/lnwallet/internal/model"
	"github.com/coldsats/lnwallet/internal/repo"
)

const minK1Length = 10

// WalletService coordinates the LNURL-withdraw handshake and deposit
// initiation over the ledger store and the Lightning gateway.
type WalletService struct {
	repo         repo.RepositoryInterface
	gw           gateway.Gateway
	signer       *lnurl.Signer
	log          *zap.SugaredLogger
	callbackBase string
	withdrawTTL  time.Duration
}

func NewWalletService(r repo.RepositoryInterface, gw gateway.Gateway, signer *lnurl.Signer,
	log *zap.SugaredLogger, callbackBase string, withdrawTTL time.Duration) *WalletService {
	return &WalletService{
		repo:         r,
		gw:           gw,
		signer:       signer,
		log:          log,
		callbackBase: callbackBase,
		withdrawTTL:  withdrawTTL,
	}
}

// WithdrawLink is the result of reserving funds behind a withdraw nonce.
type WithdrawLink struct {
	Lnurl     string    `json:"lnurl"`
	K1        string    `json:"k1"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateWithdrawLink reserves amountMsats in a PENDING transaction behind a
// fresh single-use k1 and returns the bech32-encoded callback for the
// user's external wallet to scan.
func (s *WalletService) CreateWithdrawLink(ctx context.Context, userID string, amountMsats int64, description string) (*WithdrawLink, error) {
	if userID == "" {
		return nil, validationErr("missing user id")
	}
	if amountMsats <= 0 {
		return nil, validationErr("amount must be positive")
	}
	k1, err := lnurl.GenerateK1()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.withdrawTTL)
	tx := &model.Transaction{
		UserID:      userID,
		Type:        model.TypeWithdraw,
		AmountMsats: amountMsats,
		Status:      model.StatusPending,
		ContextKind: model.ContextNone,
		Lightning: model.Lightning{
			K1:                   k1,
			ExpiresAt:            &expiresAt,
			MaxWithdrawableMsats: amountMsats,
		},
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	callback := lnurl.CallbackURL(s.callbackBase, "/withdraw/callback")
	discovery := lnurl.WithdrawRequest{
		Tag:                lnurl.TagWithdrawRequest,
		Callback:           callback,
		K1:                 k1,
		DefaultDescription: description,
		MinWithdrawable:    amountMsats,
		MaxWithdrawable:    amountMsats,
	}
	if payload, err := json.Marshal(discovery); err == nil {
		if err := s.repo.CacheDiscovery(ctx, k1, payload, s.withdrawTTL); err != nil {
			s.log.Warnf("cache discovery k1=%s: %v", k1, err)
		}
	}

	encoded, err := lnurl.Encode(fmt.Sprintf("%s?k1=%s", callback, k1))
	if err != nil {
		return nil, err
	}
	return &WithdrawLink{Lnurl: encoded, K1: k1, ExpiresAt: expiresAt}, nil
}

// FirstStepRequest carries the discovery-step callback parameters.
type FirstStepRequest struct {
	K1              string
	Tag             string
	Callback        string
	MaxWithdrawable int64
	MinWithdrawable int64
	Description     string
	PR              string
}

// FirstStep answers the discovery step of the handshake. It is a pure read:
// the withdrawal point is validated and its payload echoed back unchanged.
func (s *WalletService) FirstStep(ctx context.Context, req FirstStepRequest) (*lnurl.WithdrawRequest, error) {
	if len(req.K1) < minK1Length {
		return nil, validationErr("invalid k1")
	}
	// An invoice alongside a non-withdrawRequest tag means the wallet
	// replayed the first step out of order; tolerate it.
	if req.Tag != lnurl.TagWithdrawRequest && req.PR == "" {
		return nil, validationErr("invalid tag")
	}

	tx, err := s.lookupWithdrawal(ctx, req.K1)
	if err != nil {
		return nil, err
	}
	if tx.Status != model.StatusPending {
		return nil, ErrNotFoundOrExpired
	}
	if req.MaxWithdrawable != tx.Lightning.MaxWithdrawableMsats {
		return nil, ErrAmountMismatch
	}

	if cached, err := s.repo.GetCachedDiscovery(ctx, req.K1); err == nil {
		var discovery lnurl.WithdrawRequest
		if json.Unmarshal(cached, &discovery) == nil {
			return &discovery, nil
		}
	}
	return &lnurl.WithdrawRequest{
		Tag:                lnurl.TagWithdrawRequest,
		Callback:           req.Callback,
		K1:                 req.K1,
		DefaultDescription: req.Description,
		MinWithdrawable:    req.MinWithdrawable,
		MaxWithdrawable:    req.MaxWithdrawable,
	}, nil
}

// SecondStep pays the wallet-supplied invoice against the reserved
// withdrawal. The PENDING→PROCESSING compare-and-set is committed before
// the gateway is contacted; that transition, not any in-memory lock, is
// what stops duplicate callback deliveries from paying twice.
func (s *WalletService) SecondStep(ctx context.Context, k1, invoice string) error {
	if len(k1) < minK1Length {
		return validationErr("invalid k1")
	}
	if invoice == "" {
		return validationErr("missing pr")
	}

	tx, err := s.lookupWithdrawal(ctx, k1)
	if err != nil {
		return err
	}
	if tx.Status != model.StatusPending {
		return ErrInvalidOrExpired
	}

	ok, err := s.repo.CasStatus(ctx, tx.ID, model.StatusPending, model.StatusProcessing)
	if err != nil {
		return err
	}
	if !ok {
		// a concurrent delivery won the race
		return ErrInvalidOrExpired
	}

	res, err := s.gw.Pay(ctx, invoice)
	if err != nil {
		// Permanent rejections burn the withdrawal; anything else reverts
		// to PENDING so the wallet may retry.
		revertTo := model.StatusPending
		if gateway.IsPermanent(err) {
			revertTo = model.StatusFailed
		}
		if _, casErr := s.repo.CasStatus(ctx, tx.ID, model.StatusProcessing, revertTo); casErr != nil {
			s.log.Errorf("revert withdrawal id=%d to %s: %v", tx.ID, revertTo, casErr)
		}
		return err
	}

	if err := s.repo.SetInvoice(ctx, tx.ID, invoice, res.OperationID); err != nil {
		s.log.Errorf("record invoice id=%d: %v", tx.ID, err)
	}
	if _, err := s.repo.CasStatus(ctx, tx.ID, model.StatusProcessing, model.StatusComplete); err != nil {
		return err
	}
	return nil
}

func (s *WalletService) lookupWithdrawal(ctx context.Context, k1 string) (*model.Transaction, error) {
	tx, err := s.repo.FindByK1(ctx, k1)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFoundOrExpired
		}
		return nil, err
	}
	if tx.WithdrawalExpired(time.Now()) {
		return nil, ErrNotFoundOrExpired
	}
	return tx, nil
}

// DepositInvoice is the result of deposit initiation: the invoice to pay,
// its gateway tracker, and an HMAC signature so the invoice can later be
// recognized as our own.
type DepositInvoice struct {
	Invoice     string `json:"invoice"`
	OperationID string `json:"operationId"`
	Signature   string `json:"signature"`
}

// CreateDepositInvoice asks the gateway for an invoice and records the
// PENDING deposit keyed by the gateway operation id. The raw correlation
// payload is decoded into the typed context exactly once, here.
func (s *WalletService) CreateDepositInvoice(ctx context.Context, userID string, amountMsats int64, description, rawContext string) (*DepositInvoice, error) {
	if userID == "" {
		return nil, validationErr("missing user id")
	}
	if amountMsats <= 0 {
		return nil, validationErr("amount must be positive")
	}

	inv, err := s.gw.Invoice(ctx, amountMsats, description)
	if err != nil {
		return nil, err
	}

	txCtx := model.DecodeTxContext(rawContext)
	tx := &model.Transaction{
		UserID:         userID,
		Type:           model.TypeDeposit,
		AmountMsats:    amountMsats,
		Status:         model.StatusPending,
		PaymentTracker: inv.OperationID,
		ContextKind:    txCtx.Kind,
		ContextTracker: txCtx.TrackerID,
		RawContext:     rawContext,
		Lightning:      model.Lightning{Invoice: inv.Invoice},
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &DepositInvoice{
		Invoice:     inv.Invoice,
		OperationID: inv.OperationID,
		Signature:   s.signer.Sign(inv.Invoice),
	}, nil
}

// Summary aggregates the user's ledger by type and status.
func (s *WalletService) Summary(ctx context.Context, userID string) ([]repo.SummaryRow, error) {
	return s.repo.UserSummary(ctx, userID)
}

// Repo exposes underlying repository (unit tests helper).
func (s *WalletService) Repo() repo.RepositoryInterface {
	return s.repo
}

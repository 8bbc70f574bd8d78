package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph475/e-commerce/internal/domain"
	"github.com/joseph475/e-commerce/internal/emvqr"
	"github.com/joseph475/e-commerce/internal/repository"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Store is the persistence the lifecycle needs. Transition methods must
// apply only when the row is still pending and report whether they did.
type Store interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	GetByTransactionID(ctx context.Context, ref string) (*domain.Transaction, error)
	MarkExpired(ctx context.Context, ref string, now time.Time) (bool, error)
	Complete(ctx context.Context, ref string, gw domain.GatewayDetails, now time.Time) (bool, error)
	Cancel(ctx context.Context, ref, reason string, now time.Time) (bool, error)
	ListTransactions(ctx context.Context, f repository.TxFilter, limit, offset int) ([]domain.Transaction, error)
}

type QRUsecase struct {
	repo     Store
	merchant emvqr.Merchant
	now      func() time.Time
}

type Option func(*QRUsecase)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(u *QRUsecase) { u.now = now }
}

// WithMerchant sets the merchant identity encoded into payloads.
func WithMerchant(m emvqr.Merchant) Option {
	return func(u *QRUsecase) { u.merchant = m }
}

func NewQRUsecase(r Store, opts ...Option) *QRUsecase {
	u := &QRUsecase{repo: r, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type CreateRequest struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	MerchantID    string
	Customer      domain.Customer
	PaymentMethod string
}

type CreateResult struct {
	Transaction *domain.Transaction
	QRData      string
}

func (u *QRUsecase) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be > 0 at 2 decimal places, got %s", domain.ErrValidation, req.Amount)
	}
	if amount.GreaterThan(domain.MaxAmount) {
		return nil, fmt.Errorf("%w: amount must not exceed %s", domain.ErrValidation, domain.MaxAmount.StringFixed(2))
	}

	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	if !emvqr.Supported(currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", domain.ErrValidation, currency)
	}

	merchantID := req.MerchantID
	if merchantID == "" {
		merchantID = u.merchant.ID
	}
	if merchantID == "" {
		merchantID = domain.DefaultMerchantID
	}

	method := req.PaymentMethod
	if method == "" {
		method = domain.DefaultPaymentMethod
	}

	now := u.now().UTC()
	tx := &domain.Transaction{
		TransactionID: newTransactionID(now),
		OrderID:       req.OrderID,
		Amount:        amount,
		Currency:      currency,
		MerchantID:    merchantID,
		Customer:      req.Customer,
		PaymentMethod: method,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.PaymentWindow),
	}

	if err := emvqr.Check(u.descriptor(tx)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := u.repo.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}

	log.Printf("[qr] created %s order=%s amount=%s %s", tx.TransactionID, tx.OrderID, tx.Amount.StringFixed(2), tx.Currency)
	return &CreateResult{Transaction: tx, QRData: u.payload(tx)}, nil
}

// newTransactionID builds "QR" + unix millis + 8 uppercase alphanumerics.
func newTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "QR" + strconv.FormatInt(now.UnixMilli(), 10) + suffix
}

func (u *QRUsecase) descriptor(t *domain.Transaction) emvqr.Descriptor {
	m := u.merchant
	m.ID = t.MerchantID
	return emvqr.Descriptor{
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Merchant:      m,
		Description:   t.Description(),
	}
}

func (u *QRUsecase) payload(t *domain.Transaction) string {
	return emvqr.Generate(u.descriptor(t))
}

// GetStatus returns the transaction, first persisting the pending -> expired
// transition if its deadline has passed.
func (u *QRUsecase) GetStatus(ctx context.Context, ref string) (*domain.Transaction, error) {
	t, err := u.repo.GetByTransactionID(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if t.Status != domain.StatusPending || !t.PastDeadline(now) {
		return t, nil
	}

	ok, err := u.repo.MarkExpired(ctx, ref, now)
	if err != nil {
		return nil, fmt.Errorf("expire %s: %w", ref, err)
	}
	if !ok {
		// Someone else moved it first; report what they stored.
		return u.repo.GetByTransactionID(ctx, ref)
	}

	log.Printf("[qr] expired %s", ref)
	t.Status = domain.StatusExpired
	return t, nil
}

type ConfirmRequest struct {
	GatewayTransactionID string
	GatewayReference     string
	PaymentGateway       string
	GatewayResponse      string
}

// Confirm completes a pending transaction on behalf of a payment gateway.
// Past the deadline it fails with ErrExpired and leaves the record alone.
func (u *QRUsecase) Confirm(ctx context.Context, ref string, req ConfirmRequest) (*domain.Transaction, error) {
	gw := domain.GatewayDetails{
		TransactionID: req.GatewayTransactionID,
		Reference:     req.GatewayReference,
		Gateway:       req.PaymentGateway,
		Response:      req.GatewayResponse,
	}
	if gw.Gateway == "" {
		gw.Gateway = domain.DefaultPaymentGateway
	}

	now := u.now()
	ok, err := u.repo.Complete(ctx, ref, gw, now)
	if err != nil {
		return nil, fmt.Errorf("confirm %s: %w", ref, err)
	}
	if !ok {
		return nil, u.rejection(ctx, "confirm", ref, now, true)
	}

	log.Printf("[qr] completed %s via %s", ref, gw.Gateway)
	return u.repo.GetByTransactionID(ctx, ref)
}

// Cancel aborts a pending transaction. The deadline is not checked.
func (u *QRUsecase) Cancel(ctx context.Context, ref, reason string) (*domain.Transaction, error) {
	if reason == "" {
		reason = domain.DefaultCancelReason
	}

	now := u.now()
	ok, err := u.repo.Cancel(ctx, ref, reason, now)
	if err != nil {
		return nil, fmt.Errorf("cancel %s: %w", ref, err)
	}
	if !ok {
		return nil, u.rejection(ctx, "cancel", ref, now, false)
	}

	log.Printf("[qr] cancelled %s: %s", ref, reason)
	return u.repo.GetByTransactionID(ctx, ref)
}

// rejection explains why a conditional transition did not apply.
func (u *QRUsecase) rejection(ctx context.Context, op, ref string, now time.Time, checkDeadline bool) error {
	t, err := u.repo.GetByTransactionID(ctx, ref)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, ref, err)
	}

	switch {
	case checkDeadline && t.Status == domain.StatusExpired:
		return fmt.Errorf("%s %s: %w: %w", op, ref, domain.ErrExpired, domain.ErrStateConflict)
	case t.Status != domain.StatusPending:
		return fmt.Errorf("%s %s (%s): %w", op, ref, t.Status, domain.ErrStateConflict)
	case checkDeadline && t.PastDeadline(now):
		return fmt.Errorf("%s %s: %w", op, ref, domain.ErrExpired)
	default:
		return fmt.Errorf("%s %s: %w", op, ref, domain.ErrStateConflict)
	}
}

type HistoryFilter struct {
	Status domain.TxStatus
	From   *time.Time
	To     *time.Time
}

// ListHistory pages through transactions newest first. Expiry is derived,
// not persisted: a stale pending record is filtered and returned as expired
// while storage keeps it pending until GetStatus flips it.
func (u *QRUsecase) ListHistory(ctx context.Context, f HistoryFilter, limit, offset int) ([]domain.Transaction, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, f.Status)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	now := u.now()
	txs, err := u.repo.ListTransactions(ctx, repository.TxFilter{
		Status: f.Status,
		From:   f.From,
		To:     f.To,
		Now:    now,
	}, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	for i := range txs {
		txs[i].Status = txs[i].EffectiveStatus(now)
	}
	return txs, nil
}

// QRData re-derives the payload of a transaction that can still be paid.
func (u *QRUsecase) QRData(ctx context.Context, ref string) (string, error) {
	t, err := u.repo.GetByTransactionID(ctx, ref)
	if err != nil {
		return "", err
	}
	if st := t.EffectiveStatus(u.now()); st != domain.StatusPending {
		return "", fmt.Errorf("qr %s (%s): %w", ref, st, domain.ErrStateConflict)
	}
	return u.payload(t), nil
}

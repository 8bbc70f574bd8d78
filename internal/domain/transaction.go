package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusExpired   TxStatus = "expired"
	StatusCancelled TxStatus = "cancelled"
)

// PaymentWindow is how long a transaction stays payable after creation.
const PaymentWindow = 5 * time.Minute

const (
	DefaultCurrency       = "PHP"
	DefaultMerchantID     = "MERCHANT001"
	DefaultPaymentMethod  = "qr_payment"
	DefaultPaymentGateway = "manual"
	DefaultCancelReason   = "User cancelled"
)

// MaxAmount is the largest amount a QR payload can carry (13 characters in
// tag 54).
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Terminal reports whether no further transition is defined out of s.
func (s TxStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusCancelled
}

func (s TxStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

// GatewayDetails is what a payment gateway reports when it settles a transaction.
type GatewayDetails struct {
	TransactionID string
	Reference     string
	Gateway       string
	Response      string
}

type Transaction struct {
	ID            int64
	TransactionID string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	MerchantID    string
	Customer      Customer
	PaymentMethod string
	Status        TxStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time

	CompletedAt *time.Time
	Gateway     *GatewayDetails

	CancelledAt     *time.Time
	CancelledReason string
}

// PastDeadline reports whether now is strictly after the expiry instant.
func (t Transaction) PastDeadline(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EffectiveStatus is the status a reader should see at now: a pending
// transaction past its deadline is expired even if storage says otherwise.
func (t Transaction) EffectiveStatus(now time.Time) TxStatus {
	if t.Status == StatusPending && t.PastDeadline(now) {
		return StatusExpired
	}
	return t.Status
}

// Description is the reference label encoded into the QR payload.
func (t Transaction) Description() string {
	return "Order " + t.OrderID
}

package httpd

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type CreateReq struct {
	OrderID       string          `json:"order_id" validate:"required,max=64"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0,lte=9999999999.99"`
	Currency      string          `json:"currency" validate:"omitempty,len=3,uppercase"`
	MerchantID    string          `json:"merchant_id" validate:"omitempty,max=50"`
	CustomerInfo  *CustomerInfo   `json:"customer_info"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=32"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreateResp struct {
	TransactionID string    `json:"transaction_id"`
	QRData        string    `json:"qr_data"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type StatusResp struct {
	TransactionID string      `json:"transaction_id"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
	CompletedAt   *time.Time  `json:"completed_at"`
}

type ConfirmReq struct {
	GatewayTransactionID string          `json:"gateway_transaction_id" validate:"max=128"`
	GatewayReference     string          `json:"gateway_reference" validate:"max=128"`
	PaymentGateway       string          `json:"payment_gateway" validate:"omitempty,max=32"`
	GatewayResponse      json.RawMessage `json:"gateway_response"`
}

type ConfirmResp struct {
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completed_at"`
}

type CancelReq struct {
	Reason string `json:"reason" validate:"max=255"`
}

type CancelResp struct {
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at"`
}

type HistoryQuery struct {
	Status string `validate:"omitempty,oneof=pending completed expired cancelled"`
}

type TxItem struct {
	TransactionID        string      `json:"transaction_id"`
	OrderID              string      `json:"order_id"`
	Amount               json.Number `json:"amount"`
	Currency             string      `json:"currency"`
	MerchantID           string      `json:"merchant_id"`
	CustomerName         string      `json:"customer_name,omitempty"`
	CustomerEmail        string      `json:"customer_email,omitempty"`
	CustomerPhone        string      `json:"customer_phone,omitempty"`
	PaymentMethod        string      `json:"payment_method"`
	Status               string      `json:"status"`
	CreatedAt            time.Time   `json:"created_at"`
	ExpiresAt            time.Time   `json:"expires_at"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
	GatewayTransactionID string      `json:"gateway_transaction_id,omitempty"`
	GatewayReference     string      `json:"gateway_reference,omitempty"`
	PaymentGateway       string      `json:"payment_gateway,omitempty"`
	GatewayResponse      string      `json:"gateway_response,omitempty"`
	CancelledAt          *time.Time  `json:"cancelled_at,omitempty"`
	CancelledReason      string      `json:"cancelled_reason,omitempty"`
}

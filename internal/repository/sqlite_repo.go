package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph475/e-commerce/internal/domain"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so that string comparison
// in SQL orders them chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One connection: pragmas stick, ":memory:" stays a single database, and
	// conditional updates never race each other.
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	r := &SQLiteRepo{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return r, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepo) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS qr_payments(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			order_id TEXT NOT NULL,
			amount_value_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			merchant_id TEXT NOT NULL,
			customer_name TEXT,
			customer_email TEXT,
			customer_phone TEXT,
			payment_method TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			completed_at TEXT,
			gateway_transaction_id TEXT,
			gateway_reference TEXT,
			payment_gateway TEXT,
			gateway_response TEXT,
			cancelled_at TEXT,
			cancelled_reason TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_qr_status ON qr_payments(status);
		CREATE INDEX IF NOT EXISTS idx_qr_created_at ON qr_payments(created_at);
		CREATE INDEX IF NOT EXISTS idx_qr_order_id ON qr_payments(order_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

const selectColumns = `
	SELECT
		id,
		transaction_id,
		order_id,
		amount_value_minor,
		currency,
		merchant_id,
		customer_name,
		customer_email,
		customer_phone,
		payment_method,
		status,
		created_at,
		expires_at,
		completed_at,
		gateway_transaction_id,
		gateway_reference,
		payment_gateway,
		gateway_response,
		cancelled_at,
		cancelled_reason
	FROM qr_payments
`

func (r *SQLiteRepo) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	q := `
		INSERT INTO qr_payments(
			transaction_id,
			order_id,
			amount_value_minor,
			currency,
			merchant_id,
			customer_name,
			customer_email,
			customer_phone,
			payment_method,
			status,
			created_at,
			expires_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	minor, err := toMinor(t.Amount)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.TransactionID, err)
	}

	res, err := r.db.ExecContext(
		ctx, q,
		t.TransactionID,
		t.OrderID,
		minor,
		t.Currency,
		t.MerchantID,
		nullString(t.Customer.Name),
		nullString(t.Customer.Email),
		nullString(t.Customer.Phone),
		t.PaymentMethod,
		string(t.Status),
		formatTime(t.CreatedAt),
		formatTime(t.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.TransactionID, err)
	}

	if id, err := res.LastInsertId(); err == nil {
		t.ID = id
	}
	return nil
}

func (r *SQLiteRepo) GetByTransactionID(ctx context.Context, ref string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE transaction_id = ?", ref)
	t, err := scanTx(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// MarkExpired flips a pending transaction whose deadline is before now. It
// reports false when the row is missing, no longer pending, or still in time.
func (r *SQLiteRepo) MarkExpired(ctx context.Context, ref string, now time.Time) (bool, error) {
	q := `
		UPDATE qr_payments SET status = ?
		WHERE transaction_id = ? AND status = ? AND expires_at < ?
	`
	return r.execTransition(ctx, q,
		string(domain.StatusExpired), ref, string(domain.StatusPending), formatTime(now))
}

// Complete records a gateway confirmation. Only a pending transaction whose
// deadline has not passed at now is updated.
func (r *SQLiteRepo) Complete(ctx context.Context, ref string, gw domain.GatewayDetails, now time.Time) (bool, error) {
	q := `
		UPDATE qr_payments SET
			status = ?,
			completed_at = ?,
			gateway_transaction_id = ?,
			gateway_reference = ?,
			payment_gateway = ?,
			gateway_response = ?
		WHERE transaction_id = ? AND status = ? AND expires_at >= ?
	`
	ts := formatTime(now)
	return r.execTransition(ctx, q,
		string(domain.StatusCompleted), ts,
		nullString(gw.TransactionID),
		nullString(gw.Reference),
		nullString(gw.Gateway),
		nullString(gw.Response),
		ref, string(domain.StatusPending), ts)
}

// Cancel aborts a pending transaction regardless of its deadline.
func (r *SQLiteRepo) Cancel(ctx context.Context, ref, reason string, now time.Time) (bool, error) {
	q := `
		UPDATE qr_payments SET status = ?, cancelled_at = ?, cancelled_reason = ?
		WHERE transaction_id = ? AND status = ?
	`
	return r.execTransition(ctx, q,
		string(domain.StatusCancelled), formatTime(now), reason, ref, string(domain.StatusPending))
}

func (r *SQLiteRepo) execTransition(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// TxFilter narrows a history listing. Status is matched against the
// effective status at Now, so pending rows past their deadline count as
// expired.
type TxFilter struct {
	Status domain.TxStatus
	From   *time.Time
	To     *time.Time
	Now    time.Time
}

func (r *SQLiteRepo) ListTransactions(ctx context.Context, f TxFilter, limit, offset int) ([]domain.Transaction, error) {
	q := selectColumns + " WHERE 1 = 1"
	args := []any{}

	now := formatTime(f.Now)
	switch f.Status {
	case "":
	case domain.StatusPending:
		q += " AND status = ? AND expires_at >= ?"
		args = append(args, string(domain.StatusPending), now)
	case domain.StatusExpired:
		q += " AND (status = ? OR (status = ? AND expires_at < ?))"
		args = append(args, string(domain.StatusExpired), string(domain.StatusPending), now)
	default:
		q += " AND status = ?"
		args = append(args, string(f.Status))
	}

	if f.From != nil {
		q += " AND created_at >= ?"
		args = append(args, formatTime(*f.From))
	}

	if f.To != nil {
		q += " AND created_at <= ?"
		args = append(args, formatTime(*f.To))
	}

	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}

		res = append(res, *t)
	}

	return res, rows.Err()
}

func scanTx(scanner interface {
	Scan(dest ...any) error
}) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountMinor int64
	var status, createdStr, expiresStr string
	var customerName, customerEmail, customerPhone sql.NullString
	var completedStr, gwTxID, gwRef, gwName, gwResp sql.NullString
	var cancelledStr, cancelledReason sql.NullString

	if err := scanner.Scan(
		&t.ID,
		&t.TransactionID,
		&t.OrderID,
		&amountMinor,
		&t.Currency,
		&t.MerchantID,
		&customerName,
		&customerEmail,
		&customerPhone,
		&t.PaymentMethod,
		&status,
		&createdStr,
		&expiresStr,
		&completedStr,
		&gwTxID,
		&gwRef,
		&gwName,
		&gwResp,
		&cancelledStr,
		&cancelledReason,
	); err != nil {
		return nil, err
	}

	t.Amount = fromMinor(amountMinor)
	t.Status = domain.TxStatus(status)
	t.Customer = domain.Customer{
		Name:  customerName.String,
		Email: customerEmail.String,
		Phone: customerPhone.String,
	}
	t.CancelledReason = cancelledReason.String

	var err error
	if t.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.ExpiresAt, err = parseTime(expiresStr); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if t.CompletedAt, err = parseNullTime(completedStr); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if t.CancelledAt, err = parseNullTime(cancelledStr); err != nil {
		return nil, fmt.Errorf("parse cancelled_at: %w", err)
	}

	if t.CompletedAt != nil {
		t.Gateway = &domain.GatewayDetails{
			TransactionID: gwTxID.String,
			Reference:     gwRef.String,
			Gateway:       gwName.String,
			Response:      gwResp.String,
		}
	}

	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toMinor converts to cents, failing rather than wrapping outside int64.
func toMinor(d decimal.Decimal) (int64, error) {
	m := d.Round(2).Shift(2)
	if !m.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return m.IntPart(), nil
}

func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph475/e-commerce/internal/domain"
)

var baseTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// createTestRepo opens a SQLite file in a per-test temp dir.
func createTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()

	repo, err := NewSQLiteRepo(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func makeTestTx(id string, created time.Time) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: id,
		OrderID:       "ORD-" + id,
		Amount:        decimal.RequireFromString("150.25"),
		Currency:      domain.DefaultCurrency,
		MerchantID:    domain.DefaultMerchantID,
		PaymentMethod: domain.DefaultPaymentMethod,
		Status:        domain.StatusPending,
		CreatedAt:     created,
		ExpiresAt:     created.Add(domain.PaymentWindow),
	}
}

func seedTx(t *testing.T, repo *SQLiteRepo, txs ...*domain.Transaction) {
	t.Helper()
	for _, tx := range txs {
		if err := repo.InsertTransaction(context.Background(), tx); err != nil {
			t.Fatalf("Failed to seed %s: %v", tx.TransactionID, err)
		}
	}
}

func TestInsertAndGet(t *testing.T) {
	repo := createTestRepo(t)
	ctx := context.Background()

	tx := makeTestTx("QR1", baseTime)
	tx.Customer = domain.Customer{Name: "Ana", Email: "ana@example.com"}
	seedTx(t, repo, tx)

	if tx.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	got, err := repo.GetByTransactionID(ctx, "QR1")
	if err != nil {
		t.Fatalf("GetByTransactionID: %v", err)
	}

	if !got.Amount.Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("amount = %s", got.Amount)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s", got.Status)
	}
	if !got.CreatedAt.Equal(baseTime) || !got.ExpiresAt.Equal(baseTime.Add(5*time.Minute)) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.ExpiresAt)
	}
	if got.Customer.Name != "Ana" || got.Customer.Email != "ana@example.com" || got.Customer.Phone != "" {
		t.Errorf("customer = %+v", got.Customer)
	}
	if got.CompletedAt != nil || got.CancelledAt != nil || got.Gateway != nil {
		t.Errorf("terminal fields set on pending record: %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	repo := createTestRepo(t)

	_, err := repo.GetByTransactionID(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateTransactionID(t *testing.T) {
	repo := createTestRepo(t)
	seedTx(t, repo, makeTestTx("QR1", baseTime))

	if err := repo.InsertTransaction(context.Background(), makeTestTx("QR1", baseTime)); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestInsertAmountOutOfRange(t *testing.T) {
	repo := createTestRepo(t)

	tx := makeTestTx("QR1", baseTime)
	tx.Amount = decimal.RequireFromString("100000000000000000")
	if err := repo.InsertTransaction(context.Background(), tx); err == nil {
		t.Fatal("expected error for amount beyond int64 cents")
	}
	if _, err := repo.GetByTransactionID(context.Background(), "QR1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("out-of-range amount was stored: err = %v", err)
	}
}

func TestTransitions(t *testing.T) {
	deadline := baseTime.Add(domain.PaymentWindow)
	gw := domain.GatewayDetails{TransactionID: "GW-1", Reference: "REF-1", Gateway: "manual", Response: `{"ok":true}`}

	tests := []struct {
		name       string
		apply      func(r *SQLiteRepo) (bool, error)
		wantOK     bool
		wantStatus domain.TxStatus
	}{
		{
			name:       "Given pending When completing in time Then completed",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.Complete(context.Background(), "QR1", gw, baseTime.Add(10*time.Second)) },
			wantOK:     true,
			wantStatus: domain.StatusCompleted,
		},
		{
			name:       "Given pending When completing exactly at deadline Then completed",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.Complete(context.Background(), "QR1", gw, deadline) },
			wantOK:     true,
			wantStatus: domain.StatusCompleted,
		},
		{
			name:       "Given pending When completing after deadline Then unchanged",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.Complete(context.Background(), "QR1", gw, deadline.Add(time.Second)) },
			wantOK:     false,
			wantStatus: domain.StatusPending,
		},
		{
			name:       "Given pending When expiring before deadline Then unchanged",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.MarkExpired(context.Background(), "QR1", deadline) },
			wantOK:     false,
			wantStatus: domain.StatusPending,
		},
		{
			name:       "Given pending When expiring after deadline Then expired",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.MarkExpired(context.Background(), "QR1", deadline.Add(time.Second)) },
			wantOK:     true,
			wantStatus: domain.StatusExpired,
		},
		{
			name:       "Given pending past deadline When cancelling Then cancelled",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.Cancel(context.Background(), "QR1", "changed mind", deadline.Add(time.Hour)) },
			wantOK:     true,
			wantStatus: domain.StatusCancelled,
		},
		{
			name:       "Given missing row When cancelling Then no rows",
			apply:      func(r *SQLiteRepo) (bool, error) { return r.Cancel(context.Background(), "QR-missing", "x", baseTime) },
			wantOK:     false,
			wantStatus: domain.StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := createTestRepo(t)
			seedTx(t, repo, makeTestTx("QR1", baseTime))

			ok, err := tt.apply(repo)
			if err != nil {
				t.Fatalf("transition error: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}

			got, err := repo.GetByTransactionID(context.Background(), "QR1")
			if err != nil {
				t.Fatalf("GetByTransactionID: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestTerminalStatusIsFinal(t *testing.T) {
	repo := createTestRepo(t)
	ctx := context.Background()
	seedTx(t, repo, makeTestTx("QR1", baseTime))

	if ok, err := repo.Cancel(ctx, "QR1", "first", baseTime); err != nil || !ok {
		t.Fatalf("first cancel: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.Cancel(ctx, "QR1", "second", baseTime); ok {
		t.Error("second cancel succeeded")
	}
	if ok, _ := repo.Complete(ctx, "QR1", domain.GatewayDetails{}, baseTime); ok {
		t.Error("complete after cancel succeeded")
	}

	got, _ := repo.GetByTransactionID(ctx, "QR1")
	if got.CancelledReason != "first" || got.CancelledAt == nil {
		t.Errorf("cancel fields = %q %v", got.CancelledReason, got.CancelledAt)
	}
	if got.CompletedAt != nil {
		t.Error("completed_at set on cancelled record")
	}
}

func TestCompleteStoresGateway(t *testing.T) {
	repo := createTestRepo(t)
	ctx := context.Background()
	seedTx(t, repo, makeTestTx("QR1", baseTime))

	gw := domain.GatewayDetails{TransactionID: "GW-1", Reference: "REF-1", Gateway: "gcash", Response: `{"ok":true}`}
	if ok, err := repo.Complete(ctx, "QR1", gw, baseTime.Add(time.Minute)); err != nil || !ok {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}

	got, _ := repo.GetByTransactionID(ctx, "QR1")
	if got.Gateway == nil || *got.Gateway != gw {
		t.Errorf("gateway = %+v, want %+v", got.Gateway, gw)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("completed_at = %v", got.CompletedAt)
	}
}

func TestListTransactions(t *testing.T) {
	repo := createTestRepo(t)
	ctx := context.Background()

	// QR0 oldest ... QR4 newest, one minute apart.
	for i := 0; i < 5; i++ {
		seedTx(t, repo, makeTestTx(fmt.Sprintf("QR%d", i), baseTime.Add(time.Duration(i)*time.Minute)))
	}
	if _, err := repo.Cancel(ctx, "QR3", "x", baseTime); err != nil {
		t.Fatal(err)
	}

	// At +5m30s QR0 is past its deadline but still stored as pending.
	now := baseTime.Add(5*time.Minute + 30*time.Second)
	from := baseTime.Add(time.Minute)
	to := baseTime.Add(3 * time.Minute)

	tests := []struct {
		name    string
		filter  TxFilter
		limit   int
		offset  int
		wantIDs []string
	}{
		{
			name:    "Given no filter When listing Then newest first",
			filter:  TxFilter{Now: now},
			limit:   50,
			wantIDs: []string{"QR4", "QR3", "QR2", "QR1", "QR0"},
		},
		{
			name:    "Given limit and offset When listing Then page returned",
			filter:  TxFilter{Now: now},
			limit:   2,
			offset:  1,
			wantIDs: []string{"QR3", "QR2"},
		},
		{
			name:    "Given pending filter When listing Then stale pending excluded",
			filter:  TxFilter{Status: domain.StatusPending, Now: now},
			limit:   50,
			wantIDs: []string{"QR4", "QR2", "QR1"},
		},
		{
			name:    "Given expired filter When listing Then stale pending included",
			filter:  TxFilter{Status: domain.StatusExpired, Now: now},
			limit:   50,
			wantIDs: []string{"QR0"},
		},
		{
			name:    "Given cancelled filter When listing Then only cancelled",
			filter:  TxFilter{Status: domain.StatusCancelled, Now: now},
			limit:   50,
			wantIDs: []string{"QR3"},
		},
		{
			name:    "Given date range When listing Then bounds inclusive",
			filter:  TxFilter{From: &from, To: &to, Now: now},
			limit:   50,
			wantIDs: []string{"QR3", "QR2", "QR1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.filter, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].TransactionID != id {
					t.Errorf("row %d = %s, want %s", i, got[i].TransactionID, id)
				}
			}
		})
	}

	// Listing never writes.
	stale, _ := repo.GetByTransactionID(ctx, "QR0")
	if stale.Status != domain.StatusPending {
		t.Errorf("listing changed stored status to %s", stale.Status)
	}
}

func TestInMemoryDSN(t *testing.T) {
	repo, err := NewSQLiteRepo(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteRepo: %v", err)
	}
	defer repo.Close()

	seedTx(t, repo, makeTestTx("QR1", baseTime))
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if _, err := repo.GetByTransactionID(context.Background(), "QR1"); err != nil {
		t.Errorf("GetByTransactionID: %v", err)
	}
}

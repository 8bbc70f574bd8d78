package domain

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	created := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	tx := Transaction{Status: StatusPending, CreatedAt: created, ExpiresAt: created.Add(PaymentWindow)}

	tests := []struct {
		name   string
		status TxStatus
		at     time.Duration
		want   TxStatus
	}{
		{"pending in time", StatusPending, 4*time.Minute + 59*time.Second, StatusPending},
		{"pending at deadline", StatusPending, 5 * time.Minute, StatusPending},
		{"pending past deadline", StatusPending, 5*time.Minute + time.Second, StatusExpired},
		{"completed past deadline", StatusCompleted, time.Hour, StatusCompleted},
		{"cancelled past deadline", StatusCancelled, time.Hour, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx.Status = tt.status
			if got := tx.EffectiveStatus(created.Add(tt.at)); got != tt.want {
				t.Errorf("EffectiveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []TxStatus{StatusCompleted, StatusExpired, StatusCancelled} {
		if !s.Terminal() || !s.Valid() {
			t.Errorf("%s should be terminal and valid", s)
		}
	}
	if TxStatus("refunded").Valid() {
		t.Error("unknown status reported valid")
	}
}

package service

import (
	"errors"
	"testing"

	"greenpay/internal/domain"
	"greenpay/internal/models"
)

func TestFold(t *testing.T) {
	rows := []models.Transaction{
		{Type: domain.TxTypeDeposit, Currency: "USD", AmountCents: 10000, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeSend, Currency: "USD", AmountCents: 2500, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeReceive, Currency: "KES", AmountCents: 700, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeExchange, Currency: "USD", AmountCents: 1000, FeeCents: 15,
			TargetCurrency: "KES", ConvertedAmountCents: 129000, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeWithdraw, Currency: "USD", AmountCents: 1000, FeeCents: 20, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeWithdraw, Currency: "USD", AmountCents: 4000, FeeCents: 80, Status: domain.TxStatusPending},
		{Type: domain.TxTypeAirtime, Currency: "KES", AmountCents: 5000, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeSend, Currency: "USD", AmountCents: 9999, Status: domain.TxStatusFailed},
	}
	got := Fold(rows)
	want := Balances{USD: 10000 - 2500 - 1015 - 1020, KES: 700 + 129000 - 5000}
	if got != want {
		t.Fatalf("Fold = %+v, want %+v", got, want)
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	f := newFixture(t)
	u := createDriftUser(t, f)
	r, err := f.balances.Reconcile(u)
	if err != nil {
		t.Fatal(err)
	}
	if r.Consistent {
		t.Fatal("balance set without a ledger row must not reconcile")
	}
	if r.Stored.USD != 500 || r.Derived.USD != 0 {
		t.Fatalf("stored %d derived %d", r.Stored.USD, r.Derived.USD)
	}
	if _, err := f.balances.Reconcile(424242); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func createDriftUser(t *testing.T, f *fixture) uint {
	t.Helper()
	u := &models.User{Email: "drift@example.com", Username: "drift", Phone: "254700111222", BalanceCents: 500}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatal(err)
	}
	return u.ID
}

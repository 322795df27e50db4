package service

import (
	"context"
	"errors"
	"testing"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"
	"greenpay/internal/testutil"
)

func TestAdminDashboardAndRoles(t *testing.T) {
	f := newFixture(t)
	admin := NewAdminService(f.db, f.balances, f.settings)
	root := testutil.CreateUser(t, f.db, "root", testutil.AsAdmin())
	u := testutil.CreateUser(t, f.db, "u", testutil.WithCard())
	testutil.SeedDeposit(t, f.db, u.ID, domain.CurrencyUSD, 10000)
	ctx := context.Background()

	if _, err := f.wallet.RequestWithdrawal(ctx, WithdrawInput{UserID: u.ID, AmountCents: 1000}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.wallet.Exchange(ctx, ExchangeInput{UserID: u.ID, AmountCents: 1000, FromCurrency: "USD", ToCurrency: "KES"}); err != nil {
		t.Fatal(err)
	}

	d, err := admin.Dashboard(7)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Stats.TotalUsers != 2 || d.Stats.CardHolders != 1 || d.Stats.PendingWithdrawals != 1 {
		t.Fatalf("stats = %+v", d.Stats)
	}
	if d.Stats.ExchangeFeesCents != 15 {
		t.Fatalf("exchange fees = %d, want 15", d.Stats.ExchangeFeesCents)
	}

	list, total, err := admin.ListWithdrawals("", 1, 20)
	if err != nil || total != 1 || list[0].Status != domain.TxStatusPending {
		t.Fatalf("withdrawals: %d %v", total, err)
	}
	filtered, _, err := admin.ListTransactions(repository.TransactionFilter{UserID: u.ID, Type: domain.TxTypeExchange}, 1, 20)
	if err != nil || len(filtered) != 1 {
		t.Fatalf("filtered transactions: %d %v", len(filtered), err)
	}

	if err := admin.SetRole(root.ID, u.ID, "SUPERUSER"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if err := admin.SetRole(root.ID, u.ID, domain.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReloadUser(t, f.db, u.ID).Role; got != domain.RoleAdmin {
		t.Fatalf("role = %s", got)
	}
	logs, _, err := admin.AuditLogs("user.role", 1, 20)
	if err != nil || len(logs) != 1 {
		t.Fatalf("audit logs: %d %v", len(logs), err)
	}
	if err := admin.UpdateSetting(root.ID, domain.SettingWithdrawalFeeBps, "abc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := NewAdminService(f.db, f.balances, f.settings)
	root := testutil.CreateUser(t, f.db, "root", testutil.AsAdmin())
	u := testutil.CreateUser(t, f.db, "u")
	testutil.SeedDeposit(t, f.db, u.ID, domain.CurrencyKES, 500)
	ctx := context.Background()

	if err := admin.DeleteUser(ctx, root.ID, root.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("self delete err = %v", err)
	}
	if err := admin.DeleteUser(ctx, root.ID, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	f.db.Model(&models.Transaction{}).Where("user_id = ?", u.ID).Count(&n)
	if n != 0 {
		t.Fatalf("ledger rows left: %d", n)
	}
	if err := admin.DeleteUser(ctx, root.ID, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"greenpay/internal/domain"
	"greenpay/internal/testutil"
)

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "admin", testutil.AsAdmin())

	if got := f.settings.ExchangeFeeBps(); got != 150 {
		t.Fatalf("default exchange fee = %d", got)
	}
	if got := f.settings.VirtualCardPriceCents(); got != 100000 {
		t.Fatalf("card price = %d cents", got)
	}
	bad := map[string]string{
		domain.SettingExchangeFeeBps:      "-1",
		domain.SettingWithdrawalFeeBps:    "10001",
		domain.SettingVirtualCardPriceKES: "0",
		"unknown_key":                     "5",
	}
	for k, v := range bad {
		if err := f.settings.Update(k, v, admin.ID); !errors.Is(err, ErrValidation) {
			t.Errorf("Update(%s=%s) err = %v, want ErrValidation", k, v, err)
		}
	}
	if err := f.settings.Update(domain.SettingExchangeFeeBps, "300", admin.ID); err != nil {
		t.Fatal(err)
	}

	u := testutil.CreateUser(t, f.db, "u", testutil.WithCard())
	testutil.SeedDeposit(t, f.db, u.ID, domain.CurrencyUSD, 20000)
	row, err := f.wallet.Exchange(context.Background(), ExchangeInput{
		UserID: u.ID, AmountCents: 10000, FromCurrency: "USD", ToCurrency: "KES",
	})
	if err != nil {
		t.Fatal(err)
	}
	if row.FeeCents != 300 {
		t.Fatalf("fee = %d, want 300 after update", row.FeeCents)
	}
}

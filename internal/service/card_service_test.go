package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/testutil"
	"greenpay/pkg/payment"

	"github.com/shopspring/decimal"
)

type fakeSTK struct {
	reqs []payment.STKRequest
	err  error
}

func (f *fakeSTK) InitiateSTKPush(_ context.Context, req payment.STKRequest) (*payment.STKResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.STKResponse{Reference: req.Reference, Status: "QUEUED", CheckoutRequestID: "ws_CO_1"}, nil
}

func newCardFixture(t *testing.T) (*fixture, *CardService, *fakeSTK) {
	f := newFixture(t)
	stk := &fakeSTK{}
	return f, NewCardService(f.db, f.settings, stk, "https://api.greenpay.test/", nil), stk
}

func successCallback(ref, phone string) payment.PayHeroCallbackData {
	return payment.PayHeroCallbackData{
		Amount:             decimal.NewFromInt(1000),
		ExternalReference:  ref,
		MpesaReceiptNumber: "SGR7ABC123",
		Phone:              phone,
		ResultCode:         0,
		ResultDesc:         "The service request is processed successfully.",
		Status:             "Success",
	}
}

func TestInitiatePurchaseSendsSTKPush(t *testing.T) {
	f, cards, stk := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u", testutil.WithPhone("254711000111"))

	row, err := cards.InitiatePurchase(context.Background(), u.ID, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if row.Status != domain.TxStatusPending || row.AmountCents != 100000 || row.Currency != domain.CurrencyKES {
		t.Fatalf("row = %+v", row)
	}
	if !strings.HasPrefix(row.Reference, "GPY") || len(row.Reference) != 15 {
		t.Fatalf("reference = %q", row.Reference)
	}
	if len(stk.reqs) != 1 {
		t.Fatalf("stk calls = %d", len(stk.reqs))
	}
	req := stk.reqs[0]
	if req.AmountKES != 1000 || req.Phone != "254711000111" {
		t.Fatalf("stk request = %+v", req)
	}
	if !strings.HasPrefix(req.CallbackURL, "https://api.greenpay.test/api/payhero-callback?") ||
		!strings.Contains(req.CallbackURL, "reference="+row.Reference) {
		t.Fatalf("callback url = %s", req.CallbackURL)
	}
	// the purchase never touches wallet balances
	f.assertConsistent(t, u.ID)
}

func TestInitiatePurchaseGatewayFailure(t *testing.T) {
	f, cards, stk := newCardFixture(t)
	stk.err = errors.New("channel inactive")
	u := testutil.CreateUser(t, f.db, "u")

	if _, err := cards.InitiatePurchase(context.Background(), u.ID, ""); !errors.Is(err, ErrGateway) {
		t.Fatalf("err = %v, want ErrGateway", err)
	}
	var row models.Transaction
	if err := f.db.Where("user_id = ? AND type = ?", u.ID, domain.TxTypeCardPurchase).First(&row).Error; err != nil {
		t.Fatal(err)
	}
	if row.Status != domain.TxStatusFailed {
		t.Fatalf("status = %s, want failed", row.Status)
	}
}

func TestInitiatePurchaseRejectsCardHolder(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u", testutil.WithCard())
	if _, err := cards.InitiatePurchase(context.Background(), u.ID, ""); !errors.Is(err, ErrCardExists) {
		t.Fatalf("err = %v, want ErrCardExists", err)
	}
}

func TestCallbackIssuesCardOnce(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u")
	ctx := context.Background()
	row, err := cards.InitiatePurchase(ctx, u.ID, "")
	if err != nil {
		t.Fatal(err)
	}

	out, err := cards.HandleCallback(ctx, "", domain.PaymentPurposeVirtualCard, successCallback(row.Reference, "254799999999"))
	if err != nil || out != OutcomeCardIssued {
		t.Fatalf("first callback = %s, %v", out, err)
	}
	out, err = cards.HandleCallback(ctx, "", domain.PaymentPurposeVirtualCard, successCallback(row.Reference, "254799999999"))
	if err != nil || out != OutcomeReplay {
		t.Fatalf("replay = %s, %v", out, err)
	}

	if !testutil.ReloadUser(t, f.db, u.ID).HasVirtualCard {
		t.Fatal("has_virtual_card not set")
	}
	var n int64
	f.db.Model(&models.VirtualCard{}).Where("user_id = ?", u.ID).Count(&n)
	if n != 1 {
		t.Fatalf("cards = %d, want 1", n)
	}
	card, err := cards.GetCard(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if card.Status != domain.CardStatusActive || len(card.Last4) != 4 {
		t.Fatalf("card = %+v", card)
	}
	var done models.Transaction
	f.db.First(&done, row.ID)
	if done.Status != domain.TxStatusCompleted || done.CompletedAt == nil {
		t.Fatalf("purchase row = %s", done.Status)
	}
	if !strings.Contains(done.Metadata, "SGR7ABC123") {
		t.Fatalf("metadata missing receipt: %s", done.Metadata)
	}
	f.assertConsistent(t, u.ID)
}

func TestCallbackFailureMarksRowFailed(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u")
	ctx := context.Background()
	row, err := cards.InitiatePurchase(ctx, u.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	cb := successCallback("", "")
	cb.ResultCode, cb.Status, cb.ResultDesc = 1032, "Cancelled", "Request cancelled by user"

	out, err := cards.HandleCallback(ctx, row.Reference, "", cb)
	if err != nil || out != OutcomeFailed {
		t.Fatalf("callback = %s, %v", out, err)
	}
	if testutil.ReloadUser(t, f.db, u.ID).HasVirtualCard {
		t.Fatal("failed payment must not issue a card")
	}
	// a late success for a failed reference is a replay
	out, _ = cards.HandleCallback(ctx, row.Reference, "", successCallback("", ""))
	if out != OutcomeReplay {
		t.Fatalf("late success = %s, want replay", out)
	}
	if _, err := cards.GetCard(u.ID); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
}

func TestCallbackResolvesUserByPhone(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u", testutil.WithPhone("254722333444"))

	out, err := cards.HandleCallback(context.Background(), "", "", successCallback("GPYUNKNOWN0001", "0722333444"))
	if err != nil || out != OutcomeCardIssued {
		t.Fatalf("callback = %s, %v", out, err)
	}
	var row models.Transaction
	if err := f.db.Where("reference = ?", "GPYUNKNOWN0001").First(&row).Error; err != nil {
		t.Fatal(err)
	}
	if row.UserID != u.ID || row.AmountCents != 100000 || row.Status != domain.TxStatusCompleted {
		t.Fatalf("row = %+v", row)
	}

	out, err = cards.HandleCallback(context.Background(), "", "", successCallback("GPYUNKNOWN0002", "0700000000"))
	if !errors.Is(err, ErrUserNotFound) || out != OutcomeIgnored {
		t.Fatalf("unknown payer = %s, %v", out, err)
	}
	if _, err := cards.HandleCallback(context.Background(), "", "", successCallback("", "")); err == nil {
		t.Fatal("callback without reference must error")
	}
}

func TestCardPurchaseDoesNotAffectFold(t *testing.T) {
	rows := []models.Transaction{
		{Type: domain.TxTypeDeposit, Currency: "KES", AmountCents: 5000, Status: domain.TxStatusCompleted},
		{Type: domain.TxTypeCardPurchase, Currency: "KES", AmountCents: 100000, Status: domain.TxStatusCompleted},
	}
	if got := Fold(rows); got.KES != 5000 {
		t.Fatalf("KES = %d, want 5000", got.KES)
	}
}

func TestCallbackUnderpaidPendingRowFails(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u")
	ctx := context.Background()
	row, err := cards.InitiatePurchase(ctx, u.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	cb := successCallback(row.Reference, u.Phone)
	cb.Amount = decimal.NewFromInt(1)

	out, err := cards.HandleCallback(ctx, "", domain.PaymentPurposeVirtualCard, cb)
	if err != nil || out != OutcomeFailed {
		t.Fatalf("underpaid = %s, %v", out, err)
	}
	if testutil.ReloadUser(t, f.db, u.ID).HasVirtualCard {
		t.Fatal("underpaid callback must not unlock the wallet")
	}
	if _, err := cards.GetCard(u.ID); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
	var got models.Transaction
	f.db.First(&got, row.ID)
	if got.Status != domain.TxStatusFailed || !strings.Contains(got.Metadata, "underpaid") {
		t.Fatalf("row = %s %s", got.Status, got.Metadata)
	}
	// the full amount arriving later for the same reference is a replay
	if out, _ := cards.HandleCallback(ctx, "", "", successCallback(row.Reference, u.Phone)); out != OutcomeReplay {
		t.Fatalf("later full payment = %s, want replay", out)
	}
}

func TestCallbackUnderpaidUnknownReferenceIgnored(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	u := testutil.CreateUser(t, f.db, "u", testutil.WithPhone("254722333444"))
	cb := successCallback("FORGED-REF-1", "0722333444")
	cb.Amount = decimal.NewFromInt(1)

	out, err := cards.HandleCallback(context.Background(), "", "", cb)
	if !errors.Is(err, ErrUnderpaid) || out != OutcomeIgnored {
		t.Fatalf("forged = %s, %v", out, err)
	}
	if testutil.ReloadUser(t, f.db, u.ID).HasVirtualCard {
		t.Fatal("underpaid callback must not unlock the wallet")
	}
	var n int64
	f.db.Model(&models.Transaction{}).Where("reference = ?", "FORGED-REF-1").Count(&n)
	if n != 0 {
		t.Fatalf("rows for forged reference = %d", n)
	}
}

func TestCallbackReferenceWinsOverPayerPhone(t *testing.T) {
	f, cards, _ := newCardFixture(t)
	buyer := testutil.CreateUser(t, f.db, "buyer", testutil.WithPhone("254711000111"))
	payer := testutil.CreateUser(t, f.db, "payer", testutil.WithPhone("254722333444"))
	ctx := context.Background()
	row, err := cards.InitiatePurchase(ctx, buyer.ID, "")
	if err != nil {
		t.Fatal(err)
	}

	out, err := cards.HandleCallback(ctx, "", "", successCallback(row.Reference, "0722333444"))
	if err != nil || out != OutcomeCardIssued {
		t.Fatalf("callback = %s, %v", out, err)
	}
	if !testutil.ReloadUser(t, f.db, buyer.ID).HasVirtualCard {
		t.Fatal("card must go to the user who started the purchase")
	}
	if testutil.ReloadUser(t, f.db, payer.ID).HasVirtualCard {
		t.Fatal("payer phone must not receive the card")
	}
}

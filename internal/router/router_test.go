package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"greenpay/config"
	"greenpay/internal/auth"
	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/testutil"
	"greenpay/pkg/payment"
	"greenpay/pkg/rates"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type testServer struct {
	t   *testing.T
	cfg *config.Config
	db  *gorm.DB
	r   *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			AccessSecret: "test-access", RefreshSecret: "test-refresh",
			AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "greenpay",
		},
		PayHero: config.PayHeroConfig{WebhookBaseURL: "http://localhost:8080"},
		Fees:    testutil.DefaultFees,
	}
	db := testutil.NewDB(t)
	r := Setup(cfg, db, Providers{
		STK:      &payment.StubProvider{},
		Deposits: &payment.StubProvider{Currency: "KES"},
		Rates:    rates.Static{"USDKES": decimal.NewFromInt(129)},
	})
	return &testServer{t: t, cfg: cfg, db: db, r: r}
}

func (s *testServer) token(u *models.User) string {
	s.t.Helper()
	tok, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		s.t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice", testutil.WithCard())
	bob := testutil.CreateUser(t, s.db, "bob")
	testutil.SeedDeposit(t, s.db, alice.ID, domain.CurrencyUSD, 5000)
	tok := s.token(alice)

	w, body := s.do(http.MethodPost, "/api/transfer", tok, map[string]interface{}{
		"toUserId": bob.ID, "amount": "40.00", "currency": "USD",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	tx := body["transaction"].(map[string]interface{})
	if tx["amount"] != "40.00" || tx["type"] != "send" {
		t.Fatalf("transaction = %v", tx)
	}

	w, body = s.do(http.MethodPost, "/api/transfer", tok, map[string]interface{}{
		"toUserId": bob.ID, "amount": 10.01, "currency": "USD",
	})
	if w.Code != http.StatusBadRequest || body["message"] != "Insufficient balance" {
		t.Fatalf("overdraft: %d %v", w.Code, body)
	}

	w, body = s.do(http.MethodPost, "/api/transfer", s.token(bob), map[string]interface{}{
		"toUserId": alice.ID, "amount": "1.00",
	})
	if w.Code != http.StatusForbidden || body["message"] != "Virtual card required" {
		t.Fatalf("no card: %d %v", w.Code, body)
	}

	w, _ = s.do(http.MethodPost, "/api/transfer", s.token(bob), map[string]interface{}{
		"fromUserId": alice.ID, "toUserId": bob.ID, "amount": "1.00",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("acting for another user: %d", w.Code)
	}

	w, _ = s.do(http.MethodPost, "/api/transfer", "", map[string]interface{}{"toUserId": bob.ID, "amount": "1.00"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}

	w, body = s.do(http.MethodPost, "/api/transfer", tok, map[string]interface{}{
		"toUserId": bob.ID, "amount": "1.005",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("three decimals: %d %v", w.Code, body)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice", testutil.WithCard())
	bob := testutil.CreateUser(t, s.db, "bob")
	admin := testutil.CreateUser(t, s.db, "admin", testutil.AsAdmin())
	testutil.SeedDeposit(t, s.db, alice.ID, domain.CurrencyUSD, 5000)
	tok := s.token(alice)
	for _, amt := range []string{"1.00", "2.00"} {
		if w, _ := s.do(http.MethodPost, "/api/transfer", tok, map[string]interface{}{"toUserId": bob.ID, "amount": amt}); w.Code != http.StatusCreated {
			t.Fatalf("transfer %s: %d", amt, w.Code)
		}
	}

	path := "/api/transactions/" + itoa(alice.ID)
	w, body := s.do(http.MethodGet, path, tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := body["transactions"].([]interface{})
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if first := list[0].(map[string]interface{}); first["amount"] != "2.00" {
		t.Fatalf("newest first: got %v", first["amount"])
	}

	if w, _ := s.do(http.MethodGet, path, s.token(bob), nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign history: %d", w.Code)
	}
	if w, _ := s.do(http.MethodGet, path, s.token(admin), nil); w.Code != http.StatusOK {
		t.Fatalf("admin history: %d", w.Code)
	}
}

func TestGetTransactionShowsTransferLegsToAdmin(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice", testutil.WithCard())
	bob := testutil.CreateUser(t, s.db, "bob")
	admin := testutil.CreateUser(t, s.db, "admin", testutil.AsAdmin())
	testutil.SeedDeposit(t, s.db, alice.ID, domain.CurrencyUSD, 5000)

	w, body := s.do(http.MethodPost, "/api/transfer", s.token(alice), map[string]interface{}{"toUserId": bob.ID, "amount": "5.00"})
	if w.Code != http.StatusCreated {
		t.Fatalf("transfer: %d %v", w.Code, body)
	}
	path := "/api/transaction/" + itoa(uint(body["transaction"].(map[string]interface{})["id"].(float64)))

	w, body = s.do(http.MethodGet, path, s.token(alice), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner read: %d", w.Code)
	}
	if _, ok := body["legs"]; ok {
		t.Fatal("legs must only be shown to admins")
	}
	if w, _ := s.do(http.MethodGet, path, s.token(bob), nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign read: %d", w.Code)
	}

	w, body = s.do(http.MethodGet, path, s.token(admin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin read: %d", w.Code)
	}
	legs := body["legs"].([]interface{})
	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}
	send, receive := legs[0].(map[string]interface{}), legs[1].(map[string]interface{})
	if send["type"] != "send" || receive["type"] != "receive" || receive["amount"] != "5.00" {
		t.Fatalf("legs = %v", legs)
	}
}

func TestPayHeroCallbackAlwaysAcks(t *testing.T) {
	s := newTestServer(t)
	u := testutil.CreateUser(t, s.db, "u")

	w, body := s.do(http.MethodPost, "/api/virtual-card/purchase", s.token(u), map[string]interface{}{})
	if w.Code != http.StatusAccepted {
		t.Fatalf("purchase: %d %s", w.Code, w.Body.String())
	}
	ref := body["transaction"].(map[string]interface{})["reference"].(string)

	cb := map[string]interface{}{
		"status": true,
		"response": map[string]interface{}{
			"Amount": 1000, "ExternalReference": ref, "MpesaReceiptNumber": "SGR7XYZ",
			"Phone": u.Phone, "ResultCode": 0, "ResultDesc": "ok", "Status": "Success",
		},
	}
	path := "/api/payhero-callback?type=virtual-card&reference=" + ref
	w, body = s.do(http.MethodPost, path, "", cb)
	if w.Code != http.StatusOK || body["outcome"] != "card_issued" {
		t.Fatalf("callback: %d %v", w.Code, body)
	}
	w, body = s.do(http.MethodPost, path, "", cb)
	if w.Code != http.StatusOK || body["outcome"] != "already_processed" {
		t.Fatalf("replay: %d %v", w.Code, body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payhero-callback", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("garbage body: %d", rec.Code)
	}

	w, body = s.do(http.MethodGet, "/api/virtual-card", s.token(u), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get card: %d %v", w.Code, body)
	}
	if w, _ := s.do(http.MethodGet, "/api/wallet", s.token(u), nil); w.Code != http.StatusOK {
		t.Fatalf("wallet: %d", w.Code)
	}
}

func TestAdminWithdrawalFlow(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", testutil.AsAdmin())
	u := testutil.CreateUser(t, s.db, "u", testutil.WithCard())
	testutil.SeedDeposit(t, s.db, u.ID, domain.CurrencyUSD, 10000)

	w, body := s.do(http.MethodPost, "/api/transactions", s.token(u), map[string]interface{}{
		"type": "withdraw", "amount": "50.00", "currency": "USD",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("withdraw: %d %v", w.Code, body)
	}
	id := uint(body["transaction"].(map[string]interface{})["id"].(float64))

	if w, _ := s.do(http.MethodGet, "/api/admin/withdrawals", s.token(u), nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin: %d", w.Code)
	}
	w, body = s.do(http.MethodGet, "/api/admin/withdrawals", s.token(admin), nil)
	if w.Code != http.StatusOK || body["total"].(float64) != 1 {
		t.Fatalf("pending list: %d %v", w.Code, body)
	}
	w, body = s.do(http.MethodPost, "/api/admin/withdrawals/"+itoa(id)+"/approve", s.token(admin), map[string]string{"adminNotes": "sent"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %v", w.Code, body)
	}
	w, _ = s.do(http.MethodPost, "/api/admin/withdrawals/"+itoa(id)+"/reject", s.token(admin), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("reject after approve: %d", w.Code)
	}

	w, body = s.do(http.MethodGet, "/api/admin/users/"+itoa(u.ID)+"/reconcile", s.token(admin), nil)
	if w.Code != http.StatusOK || body["consistent"] != true {
		t.Fatalf("reconcile: %d %v", w.Code, body)
	}
	if got := testutil.ReloadUser(t, s.db, u.ID).BalanceCents; got != 10000-5000-100 {
		t.Fatalf("balance = %d", got)
	}
}

func TestDefaultProvidersRefuseStubsInProduction(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Env: "production"}}
	if _, err := DefaultProviders(cfg, nil); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("no credentials: err = %v", err)
	}
	cfg.PayHero.AuthToken = "Basic abc"
	if _, err := DefaultProviders(cfg, nil); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("no paystack secret: err = %v", err)
	}
	cfg.Paystack.SecretKey = "sk_live"
	p, err := DefaultProviders(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Deposits.(*payment.PaystackProvider); !ok {
		t.Fatalf("deposits = %T, want paystack", p.Deposits)
	}
	if _, ok := p.STK.(*payment.PayHeroProvider); !ok {
		t.Fatalf("stk = %T, want payhero", p.STK)
	}

	dev := &config.Config{Server: config.ServerConfig{Env: "development"}}
	p, err = DefaultProviders(dev, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Deposits.(*payment.StubProvider); !ok {
		t.Fatalf("development deposits = %T, want stub", p.Deposits)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

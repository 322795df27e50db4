package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaystackVerifyDeposit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("missing bearer secret")
		}
		switch r.URL.Path {
		case "/transaction/verify/ok-ref":
			_, _ = w.Write([]byte(`{"status":true,"data":{"status":"success","reference":"ok-ref","amount":250000,"currency":"KES","customer":{"email":"payer@example.com"}}}`))
		case "/transaction/verify/abandoned":
			_, _ = w.Write([]byte(`{"status":true,"data":{"status":"abandoned","reference":"abandoned","amount":250000,"currency":"KES"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewPaystackProvider(srv.URL, "sk_test")
	v, err := p.VerifyDeposit(context.Background(), "ok-ref")
	if err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
	if v.AmountCents != 250000 || v.Currency != "KES" || v.CustomerEmail != "payer@example.com" {
		t.Fatalf("unexpected verification %+v", v)
	}
	if _, err := p.VerifyDeposit(context.Background(), "abandoned"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("abandoned: err = %v, want ErrNotVerified", err)
	}
	if _, err := p.VerifyDeposit(context.Background(), "missing"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("missing: err = %v, want ErrNotVerified", err)
	}
}

func TestStubProviderVerifyDeposit(t *testing.T) {
	s := &StubProvider{}
	v, err := s.VerifyDeposit(context.Background(), "stub_5000_x")
	if err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
	if v.AmountCents != 5000 || v.Currency != "KES" {
		t.Fatalf("unexpected verification %+v", v)
	}
	if _, err := s.VerifyDeposit(context.Background(), "real-ref"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("err = %v, want ErrNotVerified", err)
	}
}

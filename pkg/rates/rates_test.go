package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClientRate_Remote(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v6/key123/pair/USD/KES" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","conversion_rate":130.25}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123", time.Second)
	r, err := c.Rate(context.Background(), "usd", "kes")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !r.Equal(decimal.RequireFromString("130.25")) {
		t.Fatalf("rate = %s, want 130.25", r)
	}
	if _, err := c.Rate(context.Background(), "USD", "KES"); err != nil {
		t.Fatalf("Rate (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (second quote cached)", calls)
	}
}

func TestClientRate_FallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", time.Second)
	r, err := c.Rate(context.Background(), "USD", "KES")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !r.Equal(FallbackUSDKES) {
		t.Fatalf("rate = %s, want fallback %s", r, FallbackUSDKES)
	}
}

func TestClientRate_NoKeyUsesFallback(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	r, err := c.Rate(context.Background(), "KES", "USD")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	want := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(129), 10)
	if !r.Equal(want) {
		t.Fatalf("rate = %s, want %s", r, want)
	}
}

func TestFallback_Unsupported(t *testing.T) {
	if _, err := Fallback("USD", "EUR"); err == nil {
		t.Fatal("expected error for unsupported pair")
	}
}

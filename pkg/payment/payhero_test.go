package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPayHeroInitiateSTKPush(t *testing.T) {
	var got payHeroSTKReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/payments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Basic tok" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"status":"QUEUED","reference":"PH-1","CheckoutRequestID":"ws_CO_1"}`))
	}))
	defer srv.Close()

	p := NewPayHeroProvider(srv.URL, "tok", 42)
	resp, err := p.InitiateSTKPush(context.Background(), STKRequest{
		AmountKES:   1000,
		Phone:       "254712345678",
		Reference:   "CARD-ABC",
		CallbackURL: "https://api.example.com/api/payhero-callback?type=virtual-card",
	})
	if err != nil {
		t.Fatalf("InitiateSTKPush: %v", err)
	}
	if resp.CheckoutRequestID != "ws_CO_1" || resp.Status != "QUEUED" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Amount != 1000 || got.ChannelID != 42 || got.Provider != "m-pesa" || got.ExternalReference != "CARD-ABC" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestPayHeroInitiateSTKPush_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPayHeroProvider(srv.URL, "bad", 1)
	if _, err := p.InitiateSTKPush(context.Background(), STKRequest{AmountKES: 10, Phone: "254700000000"}); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestPayHeroCallbackSucceeded(t *testing.T) {
	raw := `{"response":{"Amount":1000,"CheckoutRequestID":"ws_CO_1","ExternalReference":"CARD-1",
		"MerchantRequestID":"m1","MpesaReceiptNumber":"SAE3YULR0Y","Phone":"+254712345678",
		"ResultCode":0,"ResultDesc":"The service request is processed successfully.","Status":"Success"},"status":true}`
	var cb PayHeroCallback
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cb.Response.Succeeded() {
		t.Fatal("expected success")
	}
	cb.Response.ResultCode = 1032
	cb.Response.Status = "Failed"
	if cb.Response.Succeeded() {
		t.Fatal("expected failure")
	}
	cb.Response.ResultCode = 0
	if cb.Response.Succeeded() {
		t.Fatal("result code 0 with non-Success status must not succeed")
	}
}

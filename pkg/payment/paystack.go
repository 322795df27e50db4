package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PaystackProvider verifies card deposits made through Paystack checkout.
type PaystackProvider struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewPaystackProvider(baseURL, secretKey string) *PaystackProvider {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackProvider{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

type paystackVerifyResp struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// VerifyDeposit returns ErrNotVerified unless Paystack reports the charge as "success".
func (p *PaystackProvider) VerifyDeposit(ctx context.Context, reference string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.BaseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrNotVerified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify: %d", resp.StatusCode)
	}
	var out paystackVerifyResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paystack verify: decode: %w", err)
	}
	zap.L().Info("[Paystack] verify", zap.String("reference", reference), zap.String("status", out.Data.Status))
	if !out.Status || out.Data.Status != "success" || out.Data.Amount <= 0 {
		return nil, ErrNotVerified
	}
	return &Verification{
		Reference:     out.Data.Reference,
		Status:        out.Data.Status,
		AmountCents:   out.Data.Amount,
		Currency:      out.Data.Currency,
		CustomerEmail: out.Data.Customer.Email,
	}, nil
}

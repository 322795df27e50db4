package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PayHeroProvider implements M-Pesa STK push via the PayHero v2 payments API.
type PayHeroProvider struct {
	BaseURL   string
	AuthToken string // sent as "Basic <token>"
	ChannelID int
	client    *http.Client
}

func NewPayHeroProvider(baseURL, authToken string, channelID int) *PayHeroProvider {
	if baseURL == "" {
		baseURL = "https://backend.payhero.co.ke"
	}
	return &PayHeroProvider{
		BaseURL:   baseURL,
		AuthToken: authToken,
		ChannelID: channelID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type payHeroSTKReq struct {
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         int    `json:"channel_id"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	CustomerName      string `json:"customer_name,omitempty"`
	CallbackURL       string `json:"callback_url"`
}

type payHeroSTKResp struct {
	Success           bool   `json:"success"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

func (p *PayHeroProvider) InitiateSTKPush(ctx context.Context, req STKRequest) (*STKResponse, error) {
	if req.AmountKES <= 0 {
		return nil, fmt.Errorf("payhero: amount must be positive")
	}
	body, _ := json.Marshal(payHeroSTKReq{
		Amount:            req.AmountKES,
		PhoneNumber:       req.Phone,
		ChannelID:         p.ChannelID,
		Provider:          "m-pesa",
		ExternalReference: req.Reference,
		CustomerName:      req.CustomerName,
		CallbackURL:       req.CallbackURL,
	})
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", "Basic "+p.AuthToken)
	zap.L().Info("[PayHero] POST /api/v2/payments",
		zap.String("reference", req.Reference), zap.Int64("amount_kes", req.AmountKES), zap.String("callback", req.CallbackURL))
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		zap.L().Warn("[PayHero] stk push rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return nil, fmt.Errorf("payhero stk: %d", resp.StatusCode)
	}
	var out payHeroSTKResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("payhero stk: decode: %w", err)
	}
	ref := out.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &STKResponse{Reference: ref, Status: out.Status, CheckoutRequestID: out.CheckoutRequestID}, nil
}

// PayHeroCallback is the body PayHero posts to callback_url.
type PayHeroCallback struct {
	Status   bool                `json:"status"`
	Response PayHeroCallbackData `json:"response"`
}

type PayHeroCallbackData struct {
	Amount             decimal.Decimal `json:"Amount"`
	CheckoutRequestID  string          `json:"CheckoutRequestID"`
	ExternalReference  string          `json:"ExternalReference"`
	MerchantRequestID  string          `json:"MerchantRequestID"`
	MpesaReceiptNumber string          `json:"MpesaReceiptNumber"`
	Phone              string          `json:"Phone"`
	ResultCode         int             `json:"ResultCode"`
	ResultDesc         string          `json:"ResultDesc"`
	Status             string          `json:"Status"`
}

// Succeeded reports a paid STK push: result code 0 and status "Success".
func (d PayHeroCallbackData) Succeeded() bool {
	return d.ResultCode == 0 && d.Status == "Success"
}

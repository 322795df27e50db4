package payment

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StubProvider stands in for PayHero and Paystack in development when no credentials
// are configured. Deposits verify only for references prefixed "stub_"; the amount is
// encoded after the prefix as stub_<cents>_<anything>.
type StubProvider struct {
	Currency string
}

func (s *StubProvider) InitiateSTKPush(ctx context.Context, req STKRequest) (*STKResponse, error) {
	ref := req.Reference
	if ref == "" {
		ref = fmt.Sprintf("stub_%d", time.Now().UnixNano())
	}
	return &STKResponse{Reference: ref, Status: "QUEUED", CheckoutRequestID: "ws_CO_" + ref}, nil
}

func (s *StubProvider) VerifyDeposit(ctx context.Context, reference string) (*Verification, error) {
	if !strings.HasPrefix(reference, "stub_") {
		return nil, ErrNotVerified
	}
	var cents int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(reference, "stub_"), "%d", &cents); err != nil || cents <= 0 {
		return nil, ErrNotVerified
	}
	cur := s.Currency
	if cur == "" {
		cur = "KES"
	}
	return &Verification{Reference: reference, Status: "success", AmountCents: cents, Currency: cur}, nil
}

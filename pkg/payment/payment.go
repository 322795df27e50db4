package payment

import (
	"context"
	"errors"
)

// ErrNotVerified is returned when a gateway reports a payment that did not succeed.
var ErrNotVerified = errors.New("payment not verified")

// STKRequest asks the customer's phone to approve an M-Pesa charge.
type STKRequest struct {
	AmountKES    int64  // whole shillings
	Phone        string // 2547XXXXXXXX
	Reference    string // our external_reference, echoed back in the callback
	CustomerName string
	CallbackURL  string
}

type STKResponse struct {
	Reference         string
	Status            string
	CheckoutRequestID string
}

// STKPusher initiates mobile-money collections whose result arrives by callback.
type STKPusher interface {
	InitiateSTKPush(ctx context.Context, req STKRequest) (*STKResponse, error)
}

// Verification is a gateway's view of a completed charge.
type Verification struct {
	Reference     string
	Status        string
	AmountCents   int64 // gateway subunits
	Currency      string
	CustomerEmail string // empty when the gateway does not report a payer
}

// DepositVerifier confirms a card/bank deposit by reference.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, reference string) (*Verification, error)
}

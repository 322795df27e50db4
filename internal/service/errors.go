package service

import (
	"errors"

	"greenpay/internal/repository"

	"gorm.io/gorm"
)

var (
	// ErrValidation wraps request problems that map to 400.
	ErrValidation          = errors.New("validation failed")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrSameCurrency        = errors.New("source and target currency must differ")
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrUserNotFound        = errors.New("user not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrSameUser            = errors.New("cannot transfer to yourself")
	ErrCardRequired        = errors.New("virtual card required")
	ErrCardNotFound        = errors.New("virtual card not found")
	ErrCardExists          = errors.New("virtual card already issued")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotWithdrawal       = errors.New("transaction is not a withdrawal")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrReferenceInUse      = errors.New("reference belongs to another transaction")
	ErrPaymentNotVerified  = errors.New("payment not verified")
	ErrPaymentNotYours     = errors.New("payment was made by another customer")
	ErrGateway             = errors.New("payment gateway error")
	ErrUnderpaid           = errors.New("payment below card price")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrAlreadyReviewed     = errors.New("document already reviewed")
)

// mapNotFound swaps gorm's not-found error for a domain sentinel.
func mapNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"greenpay/internal/auth"
	"greenpay/internal/domain"
	"greenpay/internal/middleware"
	"greenpay/internal/models"
	"greenpay/internal/money"
	"greenpay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail writes the error body clients expect: a human-readable message, mirrored
// under "error" for older clients.
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg, "error": msg})
}

// userMessages are the client-facing texts for service errors.
var userMessages = map[error]string{
	service.ErrInsufficientBalance: "Insufficient balance",
	service.ErrCardRequired:        "Virtual card required",
}

// respondError maps service sentinels to status codes. Anything unknown is a 500
// with a generic message, and the cause is logged.
func respondError(c *gin.Context, err error, fallback string) {
	msg := err.Error()
	if m, ok := userMessages[err]; ok {
		msg = m
	}
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		fail(c, http.StatusBadRequest, userMessages[service.ErrInsufficientBalance])
	case errors.Is(err, service.ErrCardRequired):
		fail(c, http.StatusForbidden, userMessages[service.ErrCardRequired])
	case errors.Is(err, service.ErrPaymentNotYours):
		fail(c, http.StatusForbidden, msg)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNonPositive),
		errors.Is(err, money.ErrTooManyDecimals),
		errors.Is(err, service.ErrUnsupportedCurrency),
		errors.Is(err, service.ErrSameCurrency),
		errors.Is(err, service.ErrSameUser),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrPaymentNotVerified),
		errors.Is(err, service.ErrNotWithdrawal),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRecipientNotFound),
		errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		fail(c, http.StatusNotFound, msg)
	case errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrCardExists),
		errors.Is(err, service.ErrReferenceInUse),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUsernameExists),
		errors.Is(err, service.ErrPhoneExists):
		fail(c, http.StatusConflict, msg)
	case errors.Is(err, service.ErrInvalidCreds), errors.Is(err, auth.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, msg)
	case errors.Is(err, service.ErrGateway):
		fail(c, http.StatusBadGateway, msg)
	default:
		zap.L().Error("[API] "+fallback, zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, fallback)
	}
}

// selfOrAdmin resolves the user a request acts on. An omitted id means the caller;
// only admins may act on someone else.
func selfOrAdmin(c *gin.Context, requested uint) (uint, bool) {
	caller := middleware.GetUserID(c)
	if requested == 0 || requested == caller {
		return caller, true
	}
	if middleware.IsAdmin(c) {
		return requested, true
	}
	fail(c, http.StatusForbidden, "forbidden")
	return 0, false
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads page/limit with sane bounds.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// TransactionView is the API shape of a ledger row; money is rendered as 2dp strings.
type TransactionView struct {
	ID              uint            `json:"id"`
	UserID          uint            `json:"userId"`
	Type            string          `json:"type"`
	Amount          string          `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Fee             string          `json:"fee"`
	RecipientID     *uint           `json:"recipientId"`
	TransferID      string          `json:"transferId,omitempty"`
	ExchangeRate    *string         `json:"exchangeRate"`
	ConvertedAmount string          `json:"convertedAmount,omitempty"`
	TargetCurrency  string          `json:"targetCurrency,omitempty"`
	Description     string          `json:"description"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	Reference       string          `json:"reference"`
	AdminNotes      string          `json:"adminNotes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt"`
}

func transactionView(t *models.Transaction) TransactionView {
	v := TransactionView{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        t.Type,
		Amount:      money.Format(t.AmountCents),
		Currency:    t.Currency,
		Status:      t.Status,
		Fee:         money.Format(t.FeeCents),
		RecipientID: t.RecipientID,
		TransferID:  t.TransferID,
		Description: t.Description,
		Reference:   t.Reference,
		AdminNotes:  t.AdminNotes,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.ExchangeRate != "" {
		rate := t.ExchangeRate
		v.ExchangeRate = &rate
	}
	if t.Type == domain.TxTypeExchange {
		v.ConvertedAmount = money.Format(t.ConvertedAmountCents)
		v.TargetCurrency = t.TargetCurrency
	}
	if t.Metadata != "" && json.Valid([]byte(t.Metadata)) {
		v.Metadata = json.RawMessage(t.Metadata)
	}
	return v
}

func transactionViews(list []models.Transaction) []TransactionView {
	out := make([]TransactionView, 0, len(list))
	for i := range list {
		out = append(out, transactionView(&list[i]))
	}
	return out
}

// WalletView is the balance block returned by /api/wallet and /api/me.
type WalletView struct {
	Balance             string `json:"balance"`
	KesBalance          string `json:"kesBalance"`
	HeldBalance         string `json:"heldBalance"`
	HeldKesBalance      string `json:"heldKesBalance"`
	AvailableBalance    string `json:"availableBalance"`
	AvailableKesBalance string `json:"availableKesBalance"`
	HasVirtualCard      bool   `json:"hasVirtualCard"`
}

func walletView(u *models.User) WalletView {
	return WalletView{
		Balance:             money.Format(u.BalanceCents),
		KesBalance:          money.Format(u.KesBalanceCents),
		HeldBalance:         money.Format(u.HeldCents),
		HeldKesBalance:      money.Format(u.KesHeldCents),
		AvailableBalance:    money.Format(u.Available(domain.CurrencyUSD)),
		AvailableKesBalance: money.Format(u.Available(domain.CurrencyKES)),
		HasVirtualCard:      u.HasVirtualCard,
	}
}

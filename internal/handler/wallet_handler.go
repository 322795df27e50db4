package handler

import (
	"net/http"
	"strconv"
	"strings"

	"greenpay/internal/domain"
	"greenpay/internal/middleware"
	"greenpay/internal/money"
	"greenpay/internal/service"
	"greenpay/pkg/rates"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	svc   *service.WalletService
	rates rates.Source
}

func NewWalletHandler(svc *service.WalletService, rateSource rates.Source) *WalletHandler {
	return &WalletHandler{svc: svc, rates: rateSource}
}

// Amounts accept either a JSON number or a decimal string.
type TransferRequest struct {
	FromUserID  uint            `json:"fromUserId"`
	ToUserID    uint            `json:"toUserId"`
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// Transfer handles POST /api/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	fromID, ok := selfOrAdmin(c, req.FromUserID)
	if !ok {
		return
	}
	if req.ToUserID == 0 && strings.TrimSpace(req.Recipient) == "" {
		fail(c, http.StatusBadRequest, "toUserId or recipient is required")
		return
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = domain.CurrencyUSD
	}
	res, err := h.svc.Transfer(c.Request.Context(), service.TransferInput{
		FromUserID:  fromID,
		ToUserID:    req.ToUserID,
		Recipient:   req.Recipient,
		AmountCents: amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "Transaction failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Transfer completed",
		"transferId":  res.TransferID,
		"transaction": transactionView(res.Send),
		"receive":     transactionView(res.Receive),
	})
}

type ExchangeRequest struct {
	UserID       uint            `json:"userId"`
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency" binding:"required"`
	ToCurrency   string          `json:"toCurrency" binding:"required"`
}

// Exchange handles POST /api/exchange/convert.
func (h *WalletHandler) Exchange(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "fromCurrency and toCurrency are required")
		return
	}
	userID, ok := selfOrAdmin(c, req.UserID)
	if !ok {
		return
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.Exchange(c.Request.Context(), service.ExchangeInput{
		UserID:       userID,
		AmountCents:  amount,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
	})
	if err != nil {
		respondError(c, err, "Transaction failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":         "Exchange completed",
		"transaction":     transactionView(t),
		"exchangeRate":    t.ExchangeRate,
		"fee":             money.Format(t.FeeCents),
		"convertedAmount": money.Format(t.ConvertedAmountCents),
	})
}

// Rate handles GET /api/exchange/rate?from=USD&to=KES.
func (h *WalletHandler) Rate(c *gin.Context) {
	from := strings.ToUpper(c.DefaultQuery("from", domain.CurrencyUSD))
	to := strings.ToUpper(c.DefaultQuery("to", domain.CurrencyKES))
	if !domain.IsSupportedCurrency(from) || !domain.IsSupportedCurrency(to) {
		fail(c, http.StatusBadRequest, service.ErrUnsupportedCurrency.Error())
		return
	}
	r, err := h.rates.Rate(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err, "rate lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "rate": r.String()})
}

// VerifyDeposit handles POST /api/deposit/verify-payment.
func (h *WalletHandler) VerifyDeposit(c *gin.Context) {
	var req struct {
		Reference string `json:"reference" binding:"required"`
		UserID    uint   `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "reference is required")
		return
	}
	userID, ok := selfOrAdmin(c, req.UserID)
	if !ok {
		return
	}
	res, err := h.svc.VerifyDeposit(c.Request.Context(), userID, req.Reference)
	if err != nil {
		respondError(c, err, "Transaction failed")
		return
	}
	status, msg := http.StatusCreated, "Deposit successful"
	if res.Duplicate {
		status, msg = http.StatusOK, "Deposit already processed"
	}
	c.JSON(status, gin.H{"message": msg, "transaction": transactionView(res.Transaction)})
}

type CreateTransactionRequest struct {
	Type        string          `json:"type" binding:"required"`
	UserID      uint            `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Phone       string          `json:"phoneNumber"`
	Description string          `json:"description"`
}

// CreateTransaction handles POST /api/transactions for withdraw and airtime.
func (h *WalletHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "type is required")
		return
	}
	userID, ok := selfOrAdmin(c, req.UserID)
	if !ok {
		return
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	switch req.Type {
	case domain.TxTypeWithdraw:
		t, err := h.svc.RequestWithdrawal(ctx, service.WithdrawInput{
			UserID:      userID,
			AmountCents: amount,
			Currency:    req.Currency,
			Phone:       req.Phone,
			Description: req.Description,
		})
		if err != nil {
			respondError(c, err, "Transaction failed")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Withdrawal submitted for approval", "transaction": transactionView(t)})
	case domain.TxTypeAirtime:
		if req.Currency != "" && strings.ToUpper(req.Currency) != domain.CurrencyKES {
			fail(c, http.StatusBadRequest, "airtime is paid in KES")
			return
		}
		t, err := h.svc.PurchaseAirtime(ctx, service.AirtimeInput{UserID: userID, AmountCents: amount, Phone: req.Phone})
		if err != nil {
			respondError(c, err, "Transaction failed")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Airtime purchased", "transaction": transactionView(t)})
	default:
		fail(c, http.StatusBadRequest, "unsupported transaction type")
	}
}

// History handles GET /api/transactions/:userId, newest first.
func (h *WalletHandler) History(c *gin.Context) {
	requested, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid userId")
		return
	}
	userID, ok := selfOrAdmin(c, uint(requested))
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.svc.History(userID, limit, offset)
	if err != nil {
		respondError(c, err, "failed to load transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactionViews(list), "total": total})
}

// GetTransaction handles GET /api/transaction/:id. Admin reads of a transfer
// also carry both legs.
func (h *WalletHandler) GetTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	admin := middleware.IsAdmin(c)
	t, err := h.svc.GetTransaction(id, middleware.GetUserID(c), admin)
	if err != nil {
		respondError(c, err, "failed to load transaction")
		return
	}
	resp := gin.H{"transaction": transactionView(t)}
	// admins see both sides of a transfer
	if admin && t.TransferID != "" {
		legs, err := h.svc.TransferLegs(t.TransferID)
		if err != nil {
			respondError(c, err, "failed to load transfer")
			return
		}
		resp["legs"] = transactionViews(legs)
	}
	c.JSON(http.StatusOK, resp)
}

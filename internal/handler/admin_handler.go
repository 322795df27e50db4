package handler

import (
	"net/http"
	"strconv"

	"greenpay/internal/middleware"
	"greenpay/internal/repository"
	"greenpay/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin  *service.AdminService
	wallet *service.WalletService
	kyc    *service.KYCService
}

func NewAdminHandler(admin *service.AdminService, wallet *service.WalletService, kyc *service.KYCService) *AdminHandler {
	return &AdminHandler{admin: admin, wallet: wallet, kyc: kyc}
}

// Dashboard handles GET /api/admin/dashboard?days=30.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	d, err := h.admin.Dashboard(days)
	if err != nil {
		respondError(c, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)
	users, total, err := h.admin.ListUsers(c.Query("search"), c.Query("role"), page, limit)
	if err != nil {
		respondError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users, "total": total, "page": page, "limit": limit})
}

// GetUser handles GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := h.admin.GetUser(id)
	if err != nil {
		respondError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "wallet": walletView(u)})
}

// DeleteUser handles DELETE /api/admin/users/:id; the user's ledger goes with them.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// SetRole handles PATCH /api/admin/users/:id/role.
func (h *AdminHandler) SetRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "role is required")
		return
	}
	if err := h.admin.SetRole(middleware.GetUserID(c), id, req.Role); err != nil {
		respondError(c, err, "failed to update role")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Reconcile handles GET /api/admin/users/:id/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.admin.Reconcile(id)
	if err != nil {
		respondError(c, err, "reconciliation failed")
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListTransactions handles GET /api/admin/transactions?type=&status=&userId=.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	page, limit := parsePagination(c)
	uid, _ := strconv.ParseUint(c.Query("userId"), 10, 64)
	list, total, err := h.admin.ListTransactions(repository.TransactionFilter{
		UserID: uint(uid),
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}, page, limit)
	if err != nil {
		respondError(c, err, "failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transactionViews(list), "total": total, "page": page, "limit": limit})
}

// ListWithdrawals handles GET /api/admin/withdrawals (pending by default).
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.admin.ListWithdrawals(c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err, "failed to list withdrawals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transactionViews(list), "total": total, "page": page, "limit": limit})
}

type decisionRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// ApproveWithdrawal handles POST /api/admin/withdrawals/:id/approve.
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	h.decideWithdrawal(c, true)
}

// RejectWithdrawal handles POST /api/admin/withdrawals/:id/reject.
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	h.decideWithdrawal(c, false)
}

func (h *AdminHandler) decideWithdrawal(c *gin.Context, approve bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)
	decide, msg := h.wallet.RejectWithdrawal, "Withdrawal rejected"
	if approve {
		decide, msg = h.wallet.ApproveWithdrawal, "Withdrawal approved"
	}
	t, err := decide(c.Request.Context(), middleware.GetUserID(c), id, req.AdminNotes)
	if err != nil {
		respondError(c, err, "Transaction failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "transaction": transactionView(t)})
}

// GetSettings handles GET /api/admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.admin.Settings()
	if err != nil {
		respondError(c, err, "failed to load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// UpdateSettings handles PUT /api/admin/settings.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	adminID := middleware.GetUserID(c)
	for k, v := range req.Settings {
		if err := h.admin.UpdateSetting(adminID, k, v); err != nil {
			respondError(c, err, "failed to update setting: "+k)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListKYC handles GET /api/admin/kyc?status=pending.
func (h *AdminHandler) ListKYC(c *gin.Context) {
	page, limit := parsePagination(c)
	docs, total, err := h.kyc.List(c.DefaultQuery("status", "pending"), page, limit)
	if err != nil {
		respondError(c, err, "failed to list documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs, "total": total, "page": page, "limit": limit})
}

// ApproveKYC handles POST /api/admin/kyc/:id/approve.
func (h *AdminHandler) ApproveKYC(c *gin.Context) { h.reviewKYC(c, true) }

// RejectKYC handles POST /api/admin/kyc/:id/reject.
func (h *AdminHandler) RejectKYC(c *gin.Context) { h.reviewKYC(c, false) }

func (h *AdminHandler) reviewKYC(c *gin.Context, approve bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)
	doc, err := h.kyc.Review(c.Request.Context(), middleware.GetUserID(c), id, approve, req.Notes)
	if err != nil {
		respondError(c, err, "review failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// AuditLogs handles GET /api/admin/audit-logs?action=.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	page, limit := parsePagination(c)
	logs, total, err := h.admin.AuditLogs(c.Query("action"), page, limit)
	if err != nil {
		respondError(c, err, "failed to load audit logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs, "total": total, "page": page, "limit": limit})
}

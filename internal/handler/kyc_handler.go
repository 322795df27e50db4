package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"greenpay/internal/middleware"
	"greenpay/internal/service"

	"github.com/gin-gonic/gin"
)

const maxDocumentBytes = 8 << 20

var documentExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true, ".webp": true}

type KYCHandler struct {
	svc *service.KYCService
}

func NewKYCHandler(svc *service.KYCService) *KYCHandler {
	return &KYCHandler{svc: svc}
}

// Submit handles POST /api/kyc/documents (multipart: file, documentType).
func (h *KYCHandler) Submit(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "file required")
		return
	}
	if file.Size > maxDocumentBytes {
		fail(c, http.StatusBadRequest, "file too large")
		return
	}
	if !documentExts[strings.ToLower(filepath.Ext(file.Filename))] {
		fail(c, http.StatusBadRequest, "unsupported file type")
		return
	}
	f, err := file.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read file")
		return
	}
	defer f.Close()

	doc, err := h.svc.Submit(c.Request.Context(), middleware.GetUserID(c), c.PostForm("documentType"), f)
	if err != nil {
		respondError(c, err, "upload failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Document submitted for review", "document": doc})
}

// ListMine handles GET /api/kyc/documents.
func (h *KYCHandler) ListMine(c *gin.Context) {
	docs, err := h.svc.ListMine(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

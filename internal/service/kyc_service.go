package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"
	"greenpay/pkg/cloudinary"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var kycDocumentTypes = map[string]bool{"NATIONAL_ID": true, "PASSPORT": true, "SELFIE": true}

type KYCService struct {
	db       *gorm.DB
	repo     *repository.KYCRepository
	users    *repository.UserRepository
	audit    *repository.AuditLogRepository
	uploader cloudinary.Uploader
	notifier *NotificationService
}

func NewKYCService(db *gorm.DB, uploader cloudinary.Uploader, notifier *NotificationService) *KYCService {
	return &KYCService{
		db:       db,
		repo:     repository.NewKYCRepository(db),
		users:    repository.NewUserRepository(db),
		audit:    repository.NewAuditLogRepository(db),
		uploader: uploader,
		notifier: notifier,
	}
}

// Submit uploads a document and moves the user to kyc "pending".
func (s *KYCService) Submit(ctx context.Context, userID uint, docType string, file io.Reader) (*models.KYCDocument, error) {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	if !kycDocumentTypes[docType] {
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrValidation, docType)
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("document storage not configured")
	}
	publicID := fmt.Sprintf("user_%d_%s_%d", userID, strings.ToLower(docType), time.Now().Unix())
	up, err := s.uploader.UploadDocument(ctx, file, cloudinary.DocumentFolder, publicID)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	doc := &models.KYCDocument{UserID: userID, DocumentType: docType, URL: up.URL, Status: domain.KYCDocPending}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(doc); err != nil {
			return err
		}
		return repository.NewUserRepository(tx).UpdateFields(userID, map[string]interface{}{"kyc_status": domain.KYCStatusPending})
	})
	if err != nil {
		if derr := s.uploader.Delete(ctx, up.PublicID); derr != nil {
			zap.L().Warn("[KYC] orphaned upload", zap.String("public_id", up.PublicID), zap.Error(derr))
		}
		return nil, err
	}
	return doc, nil
}

func (s *KYCService) ListMine(userID uint) ([]models.KYCDocument, error) {
	return s.repo.ListByUserID(userID)
}

func (s *KYCService) List(status string, page, limit int) ([]models.KYCDocument, int64, error) {
	return s.repo.ListByStatus(status, page, limit)
}

// Review approves or rejects a document. Approval verifies the user; rejection
// marks them rejected so they can resubmit.
func (s *KYCService) Review(ctx context.Context, adminID, docID uint, approve bool, notes string) (*models.KYCDocument, error) {
	var doc *models.KYCDocument
	userStatus := domain.KYCStatusRejected
	if approve {
		userStatus = domain.KYCStatusVerified
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		d, err := repo.GetByIDForUpdate(docID)
		if err != nil {
			return mapNotFound(err, ErrDocumentNotFound)
		}
		if d.Status != domain.KYCDocPending {
			return ErrAlreadyReviewed
		}
		now := time.Now()
		d.Status = domain.KYCDocRejected
		if approve {
			d.Status = domain.KYCDocApproved
		}
		d.ReviewNotes, d.ReviewedBy, d.ReviewedAt = notes, &adminID, &now
		if err := repo.Update(d); err != nil {
			return err
		}
		if err := repository.NewUserRepository(tx).UpdateFields(d.UserID, map[string]interface{}{"kyc_status": userStatus}); err != nil {
			return err
		}
		doc = d
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			ActorID:    &adminID,
			Action:     "kyc." + d.Status,
			Resource:   "kyc_document",
			ResourceID: fmt.Sprint(d.ID),
			Metadata:   metadataJSON(map[string]interface{}{"notes": notes, "user_id": d.UserID}),
		})
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyKYC(doc.UserID, userStatus)
	return doc, nil
}

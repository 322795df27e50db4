package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/money"
	"greenpay/internal/repository"
	"greenpay/pkg/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CardService sells the virtual card over M-Pesa and applies PayHero callbacks.
type CardService struct {
	db          *gorm.DB
	users       *repository.UserRepository
	cards       *repository.CardRepository
	txs         *repository.TransactionRepository
	audit       *repository.AuditLogRepository
	settings    *SettingsService
	stk         payment.STKPusher
	callbackURL string
	notifier    *NotificationService
}

// NewCardService; webhookBase is the public API origin PayHero calls back to.
func NewCardService(db *gorm.DB, settings *SettingsService, stk payment.STKPusher, webhookBase string, notifier *NotificationService) *CardService {
	return &CardService{
		db:          db,
		users:       repository.NewUserRepository(db),
		cards:       repository.NewCardRepository(db),
		txs:         repository.NewTransactionRepository(db),
		audit:       repository.NewAuditLogRepository(db),
		settings:    settings,
		stk:         stk,
		callbackURL: strings.TrimRight(webhookBase, "/") + "/api/payhero-callback",
		notifier:    notifier,
	}
}

// NewCardReference returns a purchase reference such as "GPY1A2B3C4D5E6F".
func NewCardReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GPY" + id[:12]
}

func (s *CardService) GetCard(userID uint) (*models.VirtualCard, error) {
	c, err := s.cards.GetByUserID(userID)
	if err != nil {
		return nil, mapNotFound(err, ErrCardNotFound)
	}
	return c, nil
}

// InitiatePurchase records a pending card_purchase row and sends the STK push.
// The row is failed if PayHero refuses the request.
func (s *CardService) InitiatePurchase(ctx context.Context, userID uint, rawPhone string) (*models.Transaction, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if u.HasVirtualCard {
		return nil, ErrCardExists
	}
	phone := u.Phone
	if rawPhone != "" {
		phone = NormalizePhone(rawPhone)
	}
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	price := s.settings.VirtualCardPriceCents()
	ref := NewCardReference()
	row := &models.Transaction{
		UserID:      u.ID,
		Type:        domain.TxTypeCardPurchase,
		AmountCents: price,
		Currency:    domain.CurrencyKES,
		Status:      domain.TxStatusPending,
		Description: "Virtual card purchase",
		Metadata:    metadataJSON(map[string]interface{}{"phone": phone}),
		Reference:   ref,
	}
	if err := s.txs.Create(row); err != nil {
		return nil, err
	}

	q := url.Values{"reference": {ref}, "type": {domain.PaymentPurposeVirtualCard}}
	resp, err := s.stk.InitiateSTKPush(ctx, payment.STKRequest{
		AmountKES:    price / 100,
		Phone:        phone,
		Reference:    ref,
		CustomerName: u.FullName,
		CallbackURL:  s.callbackURL + "?" + q.Encode(),
	})
	if err != nil {
		zap.L().Warn("[Card] stk push failed", zap.String("reference", ref), zap.Error(err))
		if uerr := s.txs.UpdateFields(row.ID, map[string]interface{}{
			"status":     domain.TxStatusFailed,
			"metadata":   metadataJSON(map[string]interface{}{"phone": phone, "error": err.Error()}),
			"updated_at": time.Now(),
		}); uerr != nil {
			zap.L().Error("[Card] mark failed", zap.String("reference", ref), zap.Error(uerr))
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	meta := metadataJSON(map[string]interface{}{"phone": phone, "checkoutRequestId": resp.CheckoutRequestID})
	if err := s.txs.UpdateFields(row.ID, map[string]interface{}{"metadata": meta}); err != nil {
		return nil, err
	}
	row.Metadata = meta
	return row, nil
}

// CallbackOutcome describes what a PayHero callback did; the HTTP layer always acks.
type CallbackOutcome string

const (
	OutcomeCardIssued CallbackOutcome = "card_issued"
	OutcomeCompleted  CallbackOutcome = "completed" // paid, card already existed
	OutcomeFailed     CallbackOutcome = "failed"
	OutcomeReplay     CallbackOutcome = "already_processed"
	OutcomeIgnored    CallbackOutcome = "ignored"
)

// HandleCallback applies a PayHero STK result. Replays of a reference that already
// reached a terminal state are no-ops. A payment below the card price never issues
// a card: a pending row is failed and an unknown reference is ignored.
func (s *CardService) HandleCallback(ctx context.Context, queryRef, purpose string, cb payment.PayHeroCallbackData) (CallbackOutcome, error) {
	ref := strings.TrimSpace(cb.ExternalReference)
	if ref == "" {
		ref = strings.TrimSpace(queryRef)
	}
	if ref == "" {
		return OutcomeIgnored, errors.New("callback without reference")
	}
	if purpose != "" && purpose != domain.PaymentPurposeVirtualCard {
		return OutcomeIgnored, fmt.Errorf("unsupported callback type %q", purpose)
	}

	price := s.settings.VirtualCardPriceCents()
	var (
		outcome CallbackOutcome
		userID  uint
		card    *models.VirtualCard
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := s.txs.WithTx(tx)
		row, err := txs.GetByReferenceForUpdate(ref)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if row != nil {
			if row.Type != domain.TxTypeCardPurchase {
				outcome = OutcomeIgnored
				return nil
			}
			if row.Status == domain.TxStatusCompleted || row.Status == domain.TxStatusFailed {
				outcome = OutcomeReplay
				return nil
			}
		}

		if !cb.Succeeded() {
			outcome = OutcomeFailed
			if row == nil {
				return nil
			}
			return txs.UpdateFields(row.ID, map[string]interface{}{
				"status":     domain.TxStatusFailed,
				"metadata":   callbackMetadata(row.Metadata, cb),
				"updated_at": time.Now(),
			})
		}

		// zero when missing or malformed
		paid, _ := money.FromDecimal(cb.Amount)
		if row != nil {
			if paid < row.AmountCents {
				zap.L().Warn("[Card] underpaid callback", zap.String("reference", ref),
					zap.Int64("paid_cents", paid), zap.Int64("price_cents", row.AmountCents))
				outcome = OutcomeFailed
				meta := map[string]interface{}{}
				_ = jsonUnmarshal(callbackMetadata(row.Metadata, cb), &meta)
				meta["error"] = "underpaid"
				meta["paidAmount"] = money.Format(paid)
				return txs.UpdateFields(row.ID, map[string]interface{}{
					"status":     domain.TxStatusFailed,
					"metadata":   metadataJSON(meta),
					"updated_at": time.Now(),
				})
			}
			userID = row.UserID
		} else {
			if paid < price {
				return fmt.Errorf("%w: paid %s KES", ErrUnderpaid, money.Format(paid))
			}
			phone := NormalizePhone(cb.Phone)
			if phone == "" {
				return ErrUserNotFound
			}
			u, err := repository.NewUserRepository(tx).GetByPhone(phone)
			if err != nil {
				return mapNotFound(err, ErrUserNotFound)
			}
			userID = u.ID
		}
		if _, err := lockOne(tx, userID); err != nil {
			return err
		}

		cards := s.cards.WithTx(tx)
		n, err := cards.CountByUserID(userID)
		if err != nil {
			return err
		}
		outcome = OutcomeCompleted
		if n == 0 {
			card = newCard(userID, ref)
			if err := cards.Create(card); err != nil {
				return err
			}
			outcome = OutcomeCardIssued
		}

		now := time.Now()
		if row != nil {
			err = txs.UpdateFields(row.ID, map[string]interface{}{
				"status":       domain.TxStatusCompleted,
				"completed_at": now,
				"metadata":     callbackMetadata(row.Metadata, cb),
				"updated_at":   now,
			})
		} else {
			err = txs.Create(&models.Transaction{
				UserID:      userID,
				Type:        domain.TxTypeCardPurchase,
				AmountCents: paid,
				Currency:    domain.CurrencyKES,
				Status:      domain.TxStatusCompleted,
				Description: "Virtual card purchase",
				Metadata:    callbackMetadata("", cb),
				Reference:   ref,
				CompletedAt: &now,
			})
		}
		if err != nil {
			return err
		}
		if err := repository.NewUserRepository(tx).UpdateFields(userID, map[string]interface{}{"has_virtual_card": true}); err != nil {
			return err
		}
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			Action:     "card.purchase",
			Resource:   "transaction",
			ResourceID: ref,
			Metadata:   metadataJSON(map[string]interface{}{"receipt": cb.MpesaReceiptNumber, "user_id": userID}),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent delivery of the same callback committed first
		return OutcomeReplay, nil
	}
	if err != nil {
		return OutcomeIgnored, err
	}
	zap.L().Info("[Card] payhero callback",
		zap.String("reference", ref), zap.String("outcome", string(outcome)), zap.Int("result_code", cb.ResultCode))
	if card != nil {
		s.notifier.NotifyCardIssued(userID, card)
	}
	return outcome, nil
}

func callbackMetadata(existing string, cb payment.PayHeroCallbackData) string {
	m := map[string]interface{}{}
	if existing != "" {
		_ = jsonUnmarshal(existing, &m)
	}
	m["mpesaReceiptNumber"] = cb.MpesaReceiptNumber
	m["checkoutRequestId"] = cb.CheckoutRequestID
	m["resultCode"] = cb.ResultCode
	m["resultDesc"] = cb.ResultDesc
	m["payerPhone"] = cb.Phone
	return metadataJSON(m)
}

func newCard(userID uint, ref string) *models.VirtualCard {
	last4 := fmt.Sprintf("%04d", rand.IntN(10000))
	exp := time.Now().AddDate(3, 0, 0)
	return &models.VirtualCard{
		UserID:       userID,
		Last4:        last4,
		MaskedNumber: "**** **** **** " + last4,
		Brand:        "VISA",
		ExpiryMonth:  int(exp.Month()),
		ExpiryYear:   exp.Year(),
		Status:       domain.CardStatusActive,
		Reference:    ref,
	}
}

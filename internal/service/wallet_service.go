package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/money"
	"greenpay/internal/repository"
	"greenpay/pkg/payment"
	"greenpay/pkg/rates"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WalletService runs every balance-moving operation. Each one is a single DB
// transaction: lock the users involved (ascending id), apply conditional balance
// updates, write the ledger rows. Notifications and socket pushes happen after commit.
type WalletService struct {
	db       *gorm.DB
	users    *repository.UserRepository
	wallets  *repository.WalletRepository
	txs      *repository.TransactionRepository
	audit    *repository.AuditLogRepository
	settings *SettingsService
	rates    rates.Source
	deposits payment.DepositVerifier
	notifier *NotificationService
}

func NewWalletService(
	db *gorm.DB,
	settings *SettingsService,
	rateSource rates.Source,
	deposits payment.DepositVerifier,
	notifier *NotificationService,
) *WalletService {
	return &WalletService{
		db:       db,
		users:    repository.NewUserRepository(db),
		wallets:  repository.NewWalletRepository(db),
		txs:      repository.NewTransactionRepository(db),
		audit:    repository.NewAuditLogRepository(db),
		settings: settings,
		rates:    rateSource,
		deposits: deposits,
		notifier: notifier,
	}
}

func validateAmount(cents int64, currency string) error {
	if cents <= 0 {
		return ErrInvalidAmount
	}
	if !domain.IsSupportedCurrency(currency) {
		return ErrUnsupportedCurrency
	}
	return nil
}

func metadataJSON(m map[string]interface{}) string {
	b, _ := json.Marshal(m)
	return string(b)
}

func jsonUnmarshal(s string, v interface{}) error {
	return json.Unmarshal([]byte(s), v)
}

// lockOne locks a single user row inside tx.
func lockOne(tx *gorm.DB, id uint) (*models.User, error) {
	locked, err := repository.NewUserRepository(tx).LockByIDs(id)
	if err != nil {
		return nil, err
	}
	u, ok := locked[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// TransferInput moves money between two users. Either ToUserID or Recipient
// (email, phone or username) names the receiver.
type TransferInput struct {
	FromUserID  uint
	ToUserID    uint
	Recipient   string
	AmountCents int64
	Currency    string
	Description string
}

type TransferResult struct {
	TransferID string              `json:"transferId"`
	Send       *models.Transaction `json:"send"`
	Receive    *models.Transaction `json:"receive"`
}

func (s *WalletService) resolveRecipient(in TransferInput) (uint, error) {
	if in.ToUserID != 0 {
		return in.ToUserID, nil
	}
	ident := strings.TrimSpace(in.Recipient)
	if ident == "" {
		return 0, ErrRecipientNotFound
	}
	u, err := s.users.FindByIdentifier(ident, NormalizePhone(ident))
	if err != nil {
		return 0, mapNotFound(err, ErrRecipientNotFound)
	}
	return u.ID, nil
}

// Transfer debits the sender and credits the recipient with no fee, writing a
// send/receive pair that shares a transfer id.
func (s *WalletService) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	in.Currency = strings.ToUpper(in.Currency)
	if err := validateAmount(in.AmountCents, in.Currency); err != nil {
		return nil, err
	}
	toID, err := s.resolveRecipient(in)
	if err != nil {
		return nil, err
	}
	if toID == in.FromUserID {
		return nil, ErrSameUser
	}

	res := &TransferResult{TransferID: uuid.NewString()}
	var senderName, recipientName string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := repository.NewUserRepository(tx).LockByIDs(in.FromUserID, toID)
		if err != nil {
			return err
		}
		sender, ok := locked[in.FromUserID]
		if !ok {
			return ErrUserNotFound
		}
		recipient, ok := locked[toID]
		if !ok {
			return ErrRecipientNotFound
		}
		if !sender.HasVirtualCard {
			return ErrCardRequired
		}
		senderName, recipientName = sender.Username, recipient.Username

		wallets := s.wallets.WithTx(tx)
		if err := wallets.Debit(sender.ID, in.Currency, in.AmountCents); err != nil {
			return err
		}
		if err := wallets.Credit(recipient.ID, in.Currency, in.AmountCents); err != nil {
			return err
		}

		now := time.Now()
		desc := in.Description
		if desc == "" {
			desc = "Transfer to " + recipient.Username
		}
		res.Send = &models.Transaction{
			UserID:      sender.ID,
			Type:        domain.TxTypeSend,
			AmountCents: in.AmountCents,
			Currency:    in.Currency,
			Status:      domain.TxStatusCompleted,
			RecipientID: &recipient.ID,
			TransferID:  res.TransferID,
			Description: desc,
			Reference:   repository.NewReference("TRF"),
			CompletedAt: &now,
		}
		res.Receive = &models.Transaction{
			UserID:      recipient.ID,
			Type:        domain.TxTypeReceive,
			AmountCents: in.AmountCents,
			Currency:    in.Currency,
			Status:      domain.TxStatusCompleted,
			RecipientID: &sender.ID,
			TransferID:  res.TransferID,
			Description: "Transfer from " + sender.Username,
			Reference:   repository.NewReference("TRF"),
			CompletedAt: &now,
		}
		txs := s.txs.WithTx(tx)
		if err := txs.Create(res.Send); err != nil {
			return fmt.Errorf("record send: %w", err)
		}
		if err := txs.Create(res.Receive); err != nil {
			return fmt.Errorf("record receive: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("[Wallet] transfer",
		zap.String("transfer_id", res.TransferID), zap.Uint("from", in.FromUserID), zap.Uint("to", toID),
		zap.Int64("amount_cents", in.AmountCents), zap.String("currency", in.Currency))
	s.notifier.NotifyTransfer(res.Send, res.Receive, senderName, recipientName)
	s.notifier.PushBalance(res.Send.UserID, res.Send.ID)
	s.notifier.PushBalance(res.Receive.UserID, res.Receive.ID)
	return res, nil
}

type ExchangeInput struct {
	UserID       uint
	AmountCents  int64
	FromCurrency string
	ToCurrency   string
}

// Exchange converts between the user's two wallets. The fee is charged in the
// source currency on top of the amount.
func (s *WalletService) Exchange(ctx context.Context, in ExchangeInput) (*models.Transaction, error) {
	in.FromCurrency, in.ToCurrency = strings.ToUpper(in.FromCurrency), strings.ToUpper(in.ToCurrency)
	if err := validateAmount(in.AmountCents, in.FromCurrency); err != nil {
		return nil, err
	}
	if !domain.IsSupportedCurrency(in.ToCurrency) {
		return nil, ErrUnsupportedCurrency
	}
	if in.FromCurrency == in.ToCurrency {
		return nil, ErrSameCurrency
	}
	rate, err := s.rates.Rate(ctx, in.FromCurrency, in.ToCurrency)
	if err != nil {
		return nil, fmt.Errorf("exchange rate: %w", err)
	}
	fee := money.ApplyBps(in.AmountCents, s.settings.ExchangeFeeBps())
	converted := money.Convert(in.AmountCents, rate)
	if converted <= 0 {
		return nil, ErrInvalidAmount
	}

	var row *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockOne(tx, in.UserID)
		if err != nil {
			return err
		}
		if !u.HasVirtualCard {
			return ErrCardRequired
		}
		wallets := s.wallets.WithTx(tx)
		if err := wallets.Debit(u.ID, in.FromCurrency, in.AmountCents+fee); err != nil {
			return err
		}
		if err := wallets.Credit(u.ID, in.ToCurrency, converted); err != nil {
			return err
		}
		now := time.Now()
		row = &models.Transaction{
			UserID:               u.ID,
			Type:                 domain.TxTypeExchange,
			AmountCents:          in.AmountCents,
			Currency:             in.FromCurrency,
			Status:               domain.TxStatusCompleted,
			FeeCents:             fee,
			ExchangeRate:         rate.String(),
			ConvertedAmountCents: converted,
			TargetCurrency:       in.ToCurrency,
			Description:          fmt.Sprintf("Exchange %s to %s", in.FromCurrency, in.ToCurrency),
			Metadata: metadataJSON(map[string]interface{}{
				"convertedAmount": money.Format(converted),
				"targetCurrency":  in.ToCurrency,
				"exchangeRate":    rate.String(),
			}),
			Reference:   repository.NewReference("EXC"),
			CompletedAt: &now,
		}
		return s.txs.WithTx(tx).Create(row)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyExchange(row)
	s.notifier.PushBalance(row.UserID, row.ID)
	return row, nil
}

// DepositResult reports whether the reference had already been credited.
type DepositResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Duplicate   bool                `json:"duplicate"`
}

// VerifyDeposit confirms a Paystack charge and credits the USD wallet once per
// reference. Charges in KES are converted at the current KES/USD rate. When the
// gateway reports a payer email it must match the caller's.
func (s *WalletService) VerifyDeposit(ctx context.Context, userID uint, reference string) (*DepositResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrPaymentNotVerified
	}
	if existing, err := s.txs.GetByReference(reference); err == nil {
		return s.existingDeposit(existing, userID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	v, err := s.deposits.VerifyDeposit(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrNotVerified) {
			return nil, ErrPaymentNotVerified
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	gatewayCurrency := strings.ToUpper(v.Currency)
	if gatewayCurrency == "" {
		gatewayCurrency = domain.CurrencyKES
	}
	if !domain.IsSupportedCurrency(gatewayCurrency) {
		return nil, ErrUnsupportedCurrency
	}
	rate, err := s.rates.Rate(ctx, gatewayCurrency, domain.CurrencyUSD)
	if err != nil {
		return nil, fmt.Errorf("exchange rate: %w", err)
	}
	credit := money.Convert(v.AmountCents, rate)
	if credit <= 0 {
		return nil, ErrInvalidAmount
	}

	var row *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockOne(tx, userID)
		if err != nil {
			return err
		}
		if v.CustomerEmail != "" && !strings.EqualFold(v.CustomerEmail, u.Email) {
			zap.L().Warn("[Deposit] payer email mismatch", zap.String("reference", reference), zap.Uint("user_id", u.ID))
			return ErrPaymentNotYours
		}
		now := time.Now()
		row = &models.Transaction{
			UserID:      u.ID,
			Type:        domain.TxTypeDeposit,
			AmountCents: credit,
			Currency:    domain.CurrencyUSD,
			Status:      domain.TxStatusCompleted,
			Description: "Card deposit",
			Metadata: metadataJSON(map[string]interface{}{
				"gateway":         "paystack",
				"gatewayAmount":   money.Format(v.AmountCents),
				"gatewayCurrency": gatewayCurrency,
				"exchangeRate":    rate.String(),
			}),
			Reference:   reference,
			CompletedAt: &now,
		}
		if err := s.txs.WithTx(tx).Create(row); err != nil {
			return err
		}
		return s.wallets.WithTx(tx).Credit(u.ID, domain.CurrencyUSD, credit)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent verify of the same reference won
		existing, gerr := s.txs.GetByReference(reference)
		if gerr != nil {
			return nil, gerr
		}
		return s.existingDeposit(existing, userID)
	}
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyDeposit(row)
	s.notifier.PushBalance(row.UserID, row.ID)
	return &DepositResult{Transaction: row}, nil
}

func (s *WalletService) existingDeposit(t *models.Transaction, userID uint) (*DepositResult, error) {
	if t.Type != domain.TxTypeDeposit || t.UserID != userID {
		return nil, ErrReferenceInUse
	}
	return &DepositResult{Transaction: t, Duplicate: true}, nil
}

type WithdrawInput struct {
	UserID      uint
	AmountCents int64
	Currency    string
	Phone       string
	Description string
}

// RequestWithdrawal places a hold of amount+fee and records a pending row for
// admin review. The balance itself moves only on approval.
func (s *WalletService) RequestWithdrawal(ctx context.Context, in WithdrawInput) (*models.Transaction, error) {
	in.Currency = strings.ToUpper(in.Currency)
	if in.Currency == "" {
		in.Currency = domain.CurrencyUSD
	}
	if err := validateAmount(in.AmountCents, in.Currency); err != nil {
		return nil, err
	}
	fee := money.ApplyBps(in.AmountCents, s.settings.WithdrawalFeeBps())

	var row *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockOne(tx, in.UserID)
		if err != nil {
			return err
		}
		if !u.HasVirtualCard {
			return ErrCardRequired
		}
		if err := s.wallets.WithTx(tx).Hold(u.ID, in.Currency, in.AmountCents+fee); err != nil {
			return err
		}
		phone := NormalizePhone(in.Phone)
		if phone == "" {
			phone = u.Phone
		}
		desc := in.Description
		if desc == "" {
			desc = "Withdrawal to " + phone
		}
		row = &models.Transaction{
			UserID:      u.ID,
			Type:        domain.TxTypeWithdraw,
			AmountCents: in.AmountCents,
			Currency:    in.Currency,
			Status:      domain.TxStatusPending,
			FeeCents:    fee,
			Description: desc,
			Metadata:    metadataJSON(map[string]interface{}{"phone": phone}),
			Reference:   repository.NewReference("WDR"),
		}
		return s.txs.WithTx(tx).Create(row)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.PushBalance(row.UserID, row.ID)
	return row, nil
}

// ApproveWithdrawal turns the hold into a debit and completes the row.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, adminID, txID uint, notes string) (*models.Transaction, error) {
	return s.decideWithdrawal(ctx, adminID, txID, notes, true)
}

// RejectWithdrawal releases the hold and fails the row.
func (s *WalletService) RejectWithdrawal(ctx context.Context, adminID, txID uint, notes string) (*models.Transaction, error) {
	return s.decideWithdrawal(ctx, adminID, txID, notes, false)
}

func (s *WalletService) decideWithdrawal(ctx context.Context, adminID, txID uint, notes string, approve bool) (*models.Transaction, error) {
	var row *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := s.txs.WithTx(tx)
		t, err := txs.GetByIDForUpdate(txID)
		if err != nil {
			return mapNotFound(err, ErrTransactionNotFound)
		}
		if t.Type != domain.TxTypeWithdraw {
			return ErrNotWithdrawal
		}
		if t.Status != domain.TxStatusPending {
			return ErrNotPending
		}
		if _, err := lockOne(tx, t.UserID); err != nil {
			return err
		}
		wallets := s.wallets.WithTx(tx)
		total := t.AmountCents + t.FeeCents
		fields := map[string]interface{}{"admin_notes": notes, "updated_at": time.Now()}
		action := "withdrawal.reject"
		if approve {
			if err := wallets.SettleHold(t.UserID, t.Currency, total); err != nil {
				return err
			}
			now := time.Now()
			fields["status"] = domain.TxStatusCompleted
			fields["completed_at"] = now
			t.Status, t.CompletedAt = domain.TxStatusCompleted, &now
			action = "withdrawal.approve"
		} else {
			if err := wallets.ReleaseHold(t.UserID, t.Currency, total); err != nil {
				return err
			}
			fields["status"] = domain.TxStatusFailed
			t.Status = domain.TxStatusFailed
		}
		if err := txs.UpdateFields(t.ID, fields); err != nil {
			return err
		}
		t.AdminNotes = notes
		row = t
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			ActorID:    &adminID,
			Action:     action,
			Resource:   "transaction",
			ResourceID: fmt.Sprint(t.ID),
			Metadata:   metadataJSON(map[string]interface{}{"notes": notes, "amount": money.Format(t.AmountCents), "currency": t.Currency}),
		})
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("[Wallet] withdrawal decided",
		zap.Uint("transaction_id", row.ID), zap.String("status", row.Status), zap.Uint("admin_id", adminID))
	s.notifier.NotifyWithdrawal(row)
	s.notifier.PushBalance(row.UserID, row.ID)
	return row, nil
}

type AirtimeInput struct {
	UserID      uint
	AmountCents int64
	Phone       string
}

// PurchaseAirtime debits the KES wallet and completes immediately.
func (s *WalletService) PurchaseAirtime(ctx context.Context, in AirtimeInput) (*models.Transaction, error) {
	if err := validateAmount(in.AmountCents, domain.CurrencyKES); err != nil {
		return nil, err
	}
	var row *models.Transaction
	var phone string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockOne(tx, in.UserID)
		if err != nil {
			return err
		}
		if !u.HasVirtualCard {
			return ErrCardRequired
		}
		phone = u.Phone
		if in.Phone != "" {
			if phone = NormalizePhone(in.Phone); phone == "" {
				return ErrInvalidPhone
			}
		}
		if err := s.wallets.WithTx(tx).Debit(u.ID, domain.CurrencyKES, in.AmountCents); err != nil {
			return err
		}
		now := time.Now()
		row = &models.Transaction{
			UserID:      u.ID,
			Type:        domain.TxTypeAirtime,
			AmountCents: in.AmountCents,
			Currency:    domain.CurrencyKES,
			Status:      domain.TxStatusCompleted,
			Description: "Airtime for " + phone,
			Metadata:    metadataJSON(map[string]interface{}{"phone": phone}),
			Reference:   repository.NewReference("AIR"),
			CompletedAt: &now,
		}
		return s.txs.WithTx(tx).Create(row)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyAirtime(row, phone)
	s.notifier.PushBalance(row.UserID, row.ID)
	return row, nil
}

// History returns the user's ledger rows newest first.
func (s *WalletService) History(userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	list, err := s.txs.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txs.CountByUserID(userID)
	return list, total, err
}

// GetTransaction loads one row; non-admins may only read their own.
func (s *WalletService) GetTransaction(id, userID uint, admin bool) (*models.Transaction, error) {
	t, err := s.txs.GetByID(id)
	if err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	if !admin && t.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// TransferLegs returns the send and receive rows sharing transferID.
func (s *WalletService) TransferLegs(transferID string) ([]models.Transaction, error) {
	if transferID == "" {
		return nil, nil
	}
	return s.txs.ListByTransferID(transferID)
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/money"
	"greenpay/internal/repository"

	"go.uber.org/zap"
)

// Publisher delivers realtime events to a user's open sockets.
type Publisher interface {
	BroadcastToUser(userID uint, payload interface{})
}

// BalanceEvent is pushed on /ws/wallet after every committed balance change.
type BalanceEvent struct {
	Type          string `json:"type"`
	USD           string `json:"balance"`
	KES           string `json:"kesBalance"`
	USDAvailable  string `json:"availableBalance"`
	KESAvailable  string `json:"availableKesBalance"`
	TransactionID uint   `json:"transactionId,omitempty"`
}

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      *FCMService
	hub      Publisher
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, fcm *FCMService, hub Publisher) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm, hub: hub}
}

// Notify stores a notification, then pushes it over FCM and the socket hub.
// Callers treat it as fire-and-forget; failures are logged here.
func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{UserID: userID, Type: notifType, Title: title, Body: body, Data: dataJSON}
	if err := s.repo.Create(n); err != nil {
		zap.L().Warn("[Notify] store failed", zap.Uint("user_id", userID), zap.String("type", notifType), zap.Error(err))
		return
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, map[string]interface{}{"type": "notification", "notification": n})
	}
	s.sendPush(userID, notifType, title, body, data)
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	go func(token string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.fcm.SendToUser(ctx, token, notifType, title, body, data)
	}(u.FCMToken)
}

// PushBalance sends the user's current balances to their open wallet sockets.
func (s *NotificationService) PushBalance(userID, txID uint) {
	if s == nil || s.hub == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		zap.L().Warn("[Notify] balance push: load user", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	s.hub.BroadcastToUser(userID, BalanceEvent{
		Type:          "balance",
		USD:           money.Format(u.BalanceCents),
		KES:           money.Format(u.KesBalanceCents),
		USDAvailable:  money.Format(u.Available(domain.CurrencyUSD)),
		KESAvailable:  money.Format(u.Available(domain.CurrencyKES)),
		TransactionID: txID,
	})
}

func (s *NotificationService) NotifyTransfer(send, receive *models.Transaction, senderName, recipientName string) {
	amt := money.Format(send.AmountCents) + " " + send.Currency
	s.Notify(send.UserID, domain.NotifTransferSent, "Money sent", "You sent "+amt+" to "+recipientName,
		map[string]interface{}{"transaction_id": send.ID, "transfer_id": send.TransferID})
	s.Notify(receive.UserID, domain.NotifTransferReceived, "Money received", "You received "+amt+" from "+senderName,
		map[string]interface{}{"transaction_id": receive.ID, "transfer_id": receive.TransferID})
}

func (s *NotificationService) NotifyExchange(t *models.Transaction) {
	s.Notify(t.UserID, domain.NotifExchangeCompleted, "Exchange completed",
		"Converted "+money.Format(t.AmountCents)+" "+t.Currency+" to "+money.Format(t.ConvertedAmountCents)+" "+t.TargetCurrency,
		map[string]interface{}{"transaction_id": t.ID})
}

func (s *NotificationService) NotifyDeposit(t *models.Transaction) {
	s.Notify(t.UserID, domain.NotifDepositCompleted, "Deposit received",
		money.Format(t.AmountCents)+" "+t.Currency+" was added to your wallet",
		map[string]interface{}{"transaction_id": t.ID, "reference": t.Reference})
}

func (s *NotificationService) NotifyWithdrawal(t *models.Transaction) {
	kind, title, verb := domain.NotifWithdrawalApproved, "Withdrawal approved", "was approved"
	if t.Status == domain.TxStatusFailed {
		kind, title, verb = domain.NotifWithdrawalRejected, "Withdrawal rejected", "was rejected and the funds released"
	}
	s.Notify(t.UserID, kind, title, "Your withdrawal of "+money.Format(t.AmountCents)+" "+t.Currency+" "+verb,
		map[string]interface{}{"transaction_id": t.ID})
}

func (s *NotificationService) NotifyAirtime(t *models.Transaction, phone string) {
	s.Notify(t.UserID, domain.NotifAirtimePurchased, "Airtime purchased",
		"KES "+money.Format(t.AmountCents)+" airtime sent to "+phone,
		map[string]interface{}{"transaction_id": t.ID})
}

func (s *NotificationService) NotifyCardIssued(userID uint, card *models.VirtualCard) {
	s.Notify(userID, domain.NotifCardIssued, "Virtual card ready",
		"Your virtual card ending "+card.Last4+" is active",
		map[string]interface{}{"card_id": card.ID})
}

func (s *NotificationService) NotifyKYC(userID uint, status string) {
	s.Notify(userID, domain.NotifKYCReviewed, "Verification update", "Your identity verification is "+status,
		map[string]interface{}{"kyc_status": status})
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, int64, error) {
	list, err := s.repo.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(userID)
	return list, unread, err
}

func (s *NotificationService) MarkRead(id, userID uint) error {
	return s.repo.MarkRead(id, userID)
}

func (s *NotificationService) RegisterFCMToken(userID uint, token string) error {
	return s.userRepo.UpdateFields(userID, map[string]interface{}{"fcm_token": token})
}

package service

import (
	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"
)

// Balances is a pair of wallet amounts in minor units.
type Balances struct {
	USD int64 `json:"usd_cents"`
	KES int64 `json:"kes_cents"`
}

func (b *Balances) add(currency string, cents int64) {
	if currency == domain.CurrencyKES {
		b.KES += cents
	} else {
		b.USD += cents
	}
}

// Fold derives wallet balances from ledger rows. Only completed rows count.
func Fold(rows []models.Transaction) Balances {
	var b Balances
	for _, t := range rows {
		if t.Status != domain.TxStatusCompleted {
			continue
		}
		switch t.Type {
		case domain.TxTypeSend, domain.TxTypeWithdraw:
			b.add(t.Currency, -(t.AmountCents + t.FeeCents))
		case domain.TxTypeReceive, domain.TxTypeDeposit:
			b.add(t.Currency, t.AmountCents)
		case domain.TxTypeExchange:
			b.add(t.Currency, -(t.AmountCents + t.FeeCents))
			b.add(t.TargetCurrency, t.ConvertedAmountCents)
		case domain.TxTypeAirtime:
			b.add(domain.CurrencyKES, -t.AmountCents)
		case domain.TxTypeCardPurchase:
			// paid over M-Pesa, never touches the wallet
		}
	}
	return b
}

// Reconciliation compares the stored balance columns with the ledger fold.
type Reconciliation struct {
	UserID     uint     `json:"user_id"`
	Stored     Balances `json:"stored"`
	Derived    Balances `json:"derived"`
	Held       Balances `json:"held"`
	Pending    Balances `json:"pending_withdrawals"`
	Available  Balances `json:"available"`
	Consistent bool     `json:"consistent"`
}

// BalanceService reads and verifies wallet balances.
type BalanceService struct {
	users *repository.UserRepository
	txs   *repository.TransactionRepository
}

func NewBalanceService(users *repository.UserRepository, txs *repository.TransactionRepository) *BalanceService {
	return &BalanceService{users: users, txs: txs}
}

// Derive folds the user's completed ledger rows.
func (s *BalanceService) Derive(userID uint) (Balances, error) {
	rows, err := s.txs.ListCompletedByUserID(userID)
	if err != nil {
		return Balances{}, err
	}
	return Fold(rows), nil
}

// Reconcile checks stored == fold and held == pending withdrawals for both currencies.
func (s *BalanceService) Reconcile(userID uint) (*Reconciliation, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	derived, err := s.Derive(userID)
	if err != nil {
		return nil, err
	}
	var pending Balances
	for _, cur := range []string{domain.CurrencyUSD, domain.CurrencyKES} {
		n, err := s.txs.SumPending(userID, domain.TxTypeWithdraw, cur)
		if err != nil {
			return nil, err
		}
		pending.add(cur, n)
	}
	r := &Reconciliation{
		UserID:  userID,
		Stored:  Balances{USD: u.BalanceCents, KES: u.KesBalanceCents},
		Derived: derived,
		Held:    Balances{USD: u.HeldCents, KES: u.KesHeldCents},
		Pending: pending,
		Available: Balances{
			USD: u.Available(domain.CurrencyUSD),
			KES: u.Available(domain.CurrencyKES),
		},
	}
	r.Consistent = r.Stored == r.Derived && r.Held == r.Pending
	return r, nil
}

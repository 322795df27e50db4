package service

import (
	"context"
	"fmt"

	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminService backs the back-office endpoints that are not money movements.
type AdminService struct {
	db       *gorm.DB
	admin    *repository.AdminRepository
	users    *repository.UserRepository
	txs      *repository.TransactionRepository
	audit    *repository.AuditLogRepository
	balances *BalanceService
	settings *SettingsService
}

func NewAdminService(db *gorm.DB, balances *BalanceService, settings *SettingsService) *AdminService {
	return &AdminService{
		db:       db,
		admin:    repository.NewAdminRepository(db),
		users:    repository.NewUserRepository(db),
		txs:      repository.NewTransactionRepository(db),
		audit:    repository.NewAuditLogRepository(db),
		balances: balances,
		settings: settings,
	}
}

type Dashboard struct {
	Stats          *repository.DashboardStats   `json:"stats"`
	Signups        []repository.TimeSeriesPoint `json:"signups"`
	DepositVolume  []repository.VolumePoint     `json:"deposit_volume"`
	TransferVolume []repository.VolumePoint     `json:"transfer_volume"`
}

func (s *AdminService) Dashboard(days int) (*Dashboard, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	stats, err := s.admin.GetDashboardStats()
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Stats: stats}
	if d.Signups, err = s.admin.UserSignupsByDay(days); err != nil {
		return nil, err
	}
	if d.DepositVolume, err = s.admin.VolumeByDay(domain.TxTypeDeposit, days); err != nil {
		return nil, err
	}
	if d.TransferVolume, err = s.admin.VolumeByDay(domain.TxTypeSend, days); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *AdminService) ListUsers(search, role string, page, limit int) ([]models.User, int64, error) {
	return s.admin.ListUsers(search, role, page, limit)
}

func (s *AdminService) GetUser(id uint) (*models.User, error) {
	u, err := s.admin.GetUserByID(id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *AdminService) ListTransactions(f repository.TransactionFilter, page, limit int) ([]models.Transaction, int64, error) {
	return s.txs.List(f, page, limit)
}

func (s *AdminService) ListWithdrawals(status string, page, limit int) ([]models.Transaction, int64, error) {
	if status == "" {
		status = domain.TxStatusPending
	}
	return s.txs.List(repository.TransactionFilter{Type: domain.TxTypeWithdraw, Status: status}, page, limit)
}

// DeleteUser removes the user and every row they own in one transaction.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uint) error {
	if adminID == userID {
		return fmt.Errorf("%w: cannot delete your own account", ErrValidation)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Delete(userID); err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			ActorID:    &adminID,
			Action:     "user.delete",
			Resource:   "user",
			ResourceID: fmt.Sprint(userID),
		})
	})
	if err == nil {
		zap.L().Info("[Admin] user deleted", zap.Uint("user_id", userID), zap.Uint("admin_id", adminID))
	}
	return err
}

func (s *AdminService) SetRole(adminID, userID uint, role string) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if err := s.admin.SetRole(userID, role); err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}
	return s.audit.Create(&models.AuditLog{
		ActorID: &adminID, Action: "user.role", Resource: "user",
		ResourceID: fmt.Sprint(userID), Metadata: metadataJSON(map[string]interface{}{"role": role}),
	})
}

func (s *AdminService) Reconcile(userID uint) (*Reconciliation, error) {
	return s.balances.Reconcile(userID)
}

func (s *AdminService) Settings() ([]models.SystemSetting, error) {
	return s.settings.All()
}

func (s *AdminService) UpdateSetting(adminID uint, key, value string) error {
	if err := s.settings.Update(key, value, adminID); err != nil {
		return err
	}
	return s.audit.Create(&models.AuditLog{
		ActorID: &adminID, Action: "setting.update", Resource: "system_setting",
		ResourceID: key, Metadata: metadataJSON(map[string]interface{}{"value": value}),
	})
}

func (s *AdminService) AuditLogs(action string, page, limit int) ([]models.AuditLog, int64, error) {
	return s.audit.List(action, page, limit)
}

package database

import (
	"errors"
	"strconv"

	"greenpay/config"
	"greenpay/internal/domain"
	"greenpay/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.VirtualCard{},
		&models.KYCDocument{},
		&models.Notification{},
		&models.AuditLog{},
		&models.SystemSetting{},
	)
}

// SeedSettings inserts fee and price defaults that are not yet present.
func SeedSettings(db *gorm.DB, fees config.FeeConfig) error {
	defaults := map[string]string{
		domain.SettingExchangeFeeBps:      strconv.FormatInt(fees.ExchangeFeeBps, 10),
		domain.SettingWithdrawalFeeBps:    strconv.FormatInt(fees.WithdrawalFeeBps, 10),
		domain.SettingVirtualCardPriceKES: strconv.FormatInt(fees.VirtualCardPriceKES, 10),
	}
	for k, v := range defaults {
		var count int64
		if err := db.Model(&models.SystemSetting{}).Where("`key` = ?", k).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&models.SystemSetting{Key: k, Value: v}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedAdmin creates the back-office account when ADMIN_PASSWORD is set and no admin exists.
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) {
	if cfg.Password == "" {
		zap.L().Info("[seed] ADMIN_PASSWORD not set, skipping admin seed")
		return
	}
	var existing models.User
	err := db.Where("role = ?", domain.RoleAdmin).First(&existing).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Error("[seed] admin lookup failed", zap.Error(err))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("[seed] hash admin password", zap.Error(err))
		return
	}
	admin := &models.User{
		Email:        cfg.Email,
		Username:     "admin",
		Phone:        "254700000000",
		FullName:     "GreenPay Admin",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		KYCStatus:    domain.KYCStatusVerified,
	}
	if err := db.Create(admin).Error; err != nil {
		zap.L().Error("[seed] create admin", zap.Error(err))
		return
	}
	zap.L().Info("[seed] admin created", zap.String("email", cfg.Email))
}

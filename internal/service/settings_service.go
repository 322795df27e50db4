package service

import (
	"fmt"
	"strconv"

	"greenpay/config"
	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"
)

// SettingsService exposes the admin-tunable fee settings with config fallbacks.
type SettingsService struct {
	repo     *repository.SettingRepository
	defaults config.FeeConfig
}

func NewSettingsService(repo *repository.SettingRepository, defaults config.FeeConfig) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

func (s *SettingsService) ExchangeFeeBps() int64 {
	return s.repo.GetInt64(domain.SettingExchangeFeeBps, s.defaults.ExchangeFeeBps)
}

func (s *SettingsService) WithdrawalFeeBps() int64 {
	return s.repo.GetInt64(domain.SettingWithdrawalFeeBps, s.defaults.WithdrawalFeeBps)
}

// VirtualCardPriceCents is the card price in KES minor units.
func (s *SettingsService) VirtualCardPriceCents() int64 {
	return s.repo.GetInt64(domain.SettingVirtualCardPriceKES, s.defaults.VirtualCardPriceKES) * 100
}

func (s *SettingsService) All() ([]models.SystemSetting, error) {
	return s.repo.GetAll()
}

// Update validates and stores a known setting. Every known setting is a
// non-negative integer; basis-point settings are capped at 10000.
func (s *SettingsService) Update(key, value string, actorID uint) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrValidation, key)
	}
	switch key {
	case domain.SettingExchangeFeeBps, domain.SettingWithdrawalFeeBps:
		if n > 10000 {
			return fmt.Errorf("%w: %s is at most 10000 basis points", ErrValidation, key)
		}
	case domain.SettingVirtualCardPriceKES:
		if n == 0 {
			return fmt.Errorf("%w: %s must be positive", ErrValidation, key)
		}
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrValidation, key)
	}
	return s.repo.Set(key, value, &actorID)
}

package service

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"greenpay/config"
	"greenpay/internal/auth"
	"greenpay/internal/domain"
	"greenpay/internal/models"
	"greenpay/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists    = errors.New("email already registered")
	ErrUsernameExists = errors.New("username already taken")
	ErrPhoneExists    = errors.New("phone already registered")
	ErrInvalidCreds   = errors.New("invalid credentials")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
	ErrInvalidEmail   = errors.New("invalid email")
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo}
}

type RegisterInput struct {
	Email    string
	Username string
	Phone    string
	FullName string
	Password string
}

func (s *AuthService) Register(in RegisterInput) (*models.User, *auth.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, ErrInvalidEmail
	}
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		return nil, nil, ErrInvalidPhone
	}
	if len(in.Password) < 8 {
		return nil, nil, ErrWeakPassword
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = strings.Split(email, "@")[0]
	}
	if err := s.checkFree(func() error { _, err := s.userRepo.GetByEmail(email); return err }, ErrEmailExists); err != nil {
		return nil, nil, err
	}
	if err := s.checkFree(func() error { _, err := s.userRepo.GetByUsername(username); return err }, ErrUsernameExists); err != nil {
		return nil, nil, err
	}
	if err := s.checkFree(func() error { _, err := s.userRepo.GetByPhone(phone); return err }, ErrPhoneExists); err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{
		Email:        email,
		Username:     username,
		Phone:        phone,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		KYCStatus:    domain.KYCStatusNone,
	}
	if err := s.userRepo.Create(u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrEmailExists
		}
		return nil, nil, err
	}
	pair, err := auth.IssuePair(&s.cfg.JWT, u.ID, u.Email, u.Role)
	return u, pair, err
}

// checkFree returns taken when lookup finds a row.
func (s *AuthService) checkFree(lookup func() error, taken error) error {
	err := lookup()
	if err == nil {
		return taken
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// Login accepts an email, username or phone number as identifier.
func (s *AuthService) Login(identifier, password string) (*models.User, *auth.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := s.userRepo.FindByIdentifier(identifier, NormalizePhone(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCreds
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCreds
	}
	now := time.Now()
	_ = s.userRepo.UpdateFields(u.ID, map[string]interface{}{"last_login_at": now})
	u.LastLoginAt = &now
	pair, err := auth.IssuePair(&s.cfg.JWT, u.ID, u.Email, u.Role)
	return u, pair, err
}

func (s *AuthService) Refresh(refreshToken string) (*auth.TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return auth.IssuePair(&s.cfg.JWT, u.ID, u.Email, u.Role)
}

func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return ErrInvalidCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCreds
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(u.ID, map[string]interface{}{"password_hash": string(hash)})
}

package service

import (
	"errors"
	"testing"
	"time"

	"greenpay/config"
	"greenpay/internal/auth"
	"greenpay/internal/repository"
	"greenpay/internal/testutil"
)

func newAuthService(t *testing.T) *AuthService {
	db := testutil.NewDB(t)
	cfg := &config.Config{JWT: config.JWTConfig{
		AccessSecret: "access", RefreshSecret: "refresh",
		AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "greenpay",
	}}
	return NewAuthService(cfg, repository.NewUserRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newAuthService(t)
	u, pair, err := s.Register(RegisterInput{
		Email: "Jane@Example.com", Username: "jane", Phone: "0712000111", Password: "s3cretpass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "jane@example.com" || u.Phone != "254712000111" {
		t.Fatalf("user = %+v", u)
	}
	claims, err := auth.ParseAccessToken(&s.cfg.JWT, pair.AccessToken)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("access token: %v", err)
	}

	for _, ident := range []string{"jane@example.com", "jane", "+254712000111"} {
		if _, _, err := s.Login(ident, "s3cretpass"); err != nil {
			t.Errorf("login %q: %v", ident, err)
		}
	}
	if _, _, err := s.Login("jane", "wrong"); !errors.Is(err, ErrInvalidCreds) {
		t.Fatalf("err = %v, want ErrInvalidCreds", err)
	}
	if _, err := s.Refresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newAuthService(t)
	if _, _, err := s.Register(RegisterInput{Email: "a@b.co", Username: "a", Phone: "0712000222", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		in   RegisterInput
		want error
	}{
		{RegisterInput{Email: "nope", Phone: "0712000333", Password: "longenough"}, ErrInvalidEmail},
		{RegisterInput{Email: "c@d.co", Phone: "123", Password: "longenough"}, ErrInvalidPhone},
		{RegisterInput{Email: "c@d.co", Phone: "0712000333", Password: "short"}, ErrWeakPassword},
		{RegisterInput{Email: "A@B.co", Username: "x", Phone: "0712000333", Password: "longenough"}, ErrEmailExists},
		{RegisterInput{Email: "c@d.co", Username: "a", Phone: "0712000333", Password: "longenough"}, ErrUsernameExists},
		{RegisterInput{Email: "c@d.co", Username: "c", Phone: "0712000222", Password: "longenough"}, ErrPhoneExists},
	}
	for _, tc := range cases {
		if _, _, err := s.Register(tc.in); !errors.Is(err, tc.want) {
			t.Errorf("Register(%+v) err = %v, want %v", tc.in, err, tc.want)
		}
	}
}

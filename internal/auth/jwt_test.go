package auth

import (
	"testing"
	"time"

	"greenpay/config"
)

func testCfg() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "greenpay",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testCfg()
	tok, err := GenerateAccessToken(cfg, 7, "a@b.c", "USER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAccessToken(cfg, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Role != "USER" || claims.Email != "a@b.c" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRefreshTokenNotAcceptedAsAccess(t *testing.T) {
	cfg := testCfg()
	pair, err := IssuePair(cfg, 9, "x@y.z", "ADMIN")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseAccessToken(cfg, pair.RefreshToken); err == nil {
		t.Fatal("refresh token must not parse as access token")
	}
	id, err := ParseRefreshToken(cfg, pair.RefreshToken)
	if err != nil || id != 9 {
		t.Fatalf("ParseRefreshToken = %d, %v", id, err)
	}
}

func TestExpiredAccessToken(t *testing.T) {
	cfg := testCfg()
	cfg.AccessExpiry = -time.Minute
	tok, _ := GenerateAccessToken(cfg, 1, "a@b.c", "USER")
	if _, err := ParseAccessToken(cfg, tok); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Firebase   FirebaseConfig
	PayHero    PayHeroConfig
	Paystack   PaystackConfig
	Exchange   ExchangeConfig
	Fees       FeeConfig
	Logging    LoggingConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per RateWindow per client IP.
	RateLimit  int
	RateWindow time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

// PayHeroConfig for M-Pesa STK push via PayHero.
type PayHeroConfig struct {
	BaseURL   string
	AuthToken string // Basic auth token from the PayHero dashboard
	ChannelID int
	// WebhookBaseURL e.g. https://api.greenpay.co.ke - callback is WebhookBaseURL + /api/payhero-callback
	WebhookBaseURL string
}

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
}

type ExchangeConfig struct {
	BaseURL string
	APIKey  string // empty: static fallback rates only
	Timeout time.Duration
}

// FeeConfig holds defaults seeded into system_settings; admins may change them at runtime.
type FeeConfig struct {
	ExchangeFeeBps      int64
	WithdrawalFeeBps    int64
	VirtualCardPriceKES int64
}

type LoggingConfig struct {
	Level  string
	Format string // json | console
}

type AdminConfig struct {
	Email    string
	Password string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RateLimit:    getInt("RATE_LIMIT", 120),
			RateWindow:   getDuration("RATE_WINDOW", time.Minute),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "greenpay:greenpay@tcp(localhost:3306)/greenpay?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
			Issuer:        "greenpay",
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
		PayHero: PayHeroConfig{
			BaseURL:        getEnv("PAYHERO_BASE_URL", "https://backend.payhero.co.ke"),
			AuthToken:      getEnv("PAYHERO_AUTH_TOKEN", ""),
			ChannelID:      getInt("PAYHERO_CHANNEL_ID", 0),
			WebhookBaseURL: getEnv("PAYHERO_WEBHOOK_BASE_URL", ""),
		},
		Paystack: PaystackConfig{
			BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
		},
		Exchange: ExchangeConfig{
			BaseURL: getEnv("EXCHANGE_RATE_BASE_URL", "https://v6.exchangerate-api.com"),
			APIKey:  getEnv("EXCHANGE_RATE_API_KEY", ""),
			Timeout: getDuration("EXCHANGE_RATE_TIMEOUT", 5*time.Second),
		},
		Fees: FeeConfig{
			ExchangeFeeBps:      int64(getInt("EXCHANGE_FEE_BPS", 150)),
			WithdrawalFeeBps:    int64(getInt("WITHDRAWAL_FEE_BPS", 200)),
			VirtualCardPriceKES: int64(getInt("VIRTUAL_CARD_PRICE_KES", 1000)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@greenpay.local"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

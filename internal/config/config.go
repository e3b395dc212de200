// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Appwrite
	AppwriteEndpoint    string
	AppwriteProjectID   string
	AppwriteAPIKey      string
	AppwriteDatabaseID  string
	ProjectCollectionID string
	LimitsCollectionID  string
	AvatarBucketID      string

	// Razorpay
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayEndpoint  string

	// Instamojo
	InstamojoAPIKey    string
	InstamojoAuthToken string
	InstamojoEndpoint  string
	InstamojoAmount    string
	InstamojoPurpose   string

	// Groq
	GroqAPIKey   string
	GroqModel    string
	GroqEndpoint string

	// Payment ledger（未設定の場合はインメモリ）
	DatabaseURL string

	// Mail
	SendGridAPIKey string
	MailFrom       string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitPayment int

	// Worker
	LimitRetentionDays int
	CleanupInterval    time.Duration

	// Server
	ServerPort        string
	PublicAPIURL      string
	FrontendURL       string
	CORSAllowedOrigin string
	TrustProxy        bool
	HTTPClientTimeout time.Duration

	// Cookie
	CookieSecure  bool
	CookieDomain  string
	SessionMaxAge int

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envが存在しない場合は無視する
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.AppwriteEndpoint = strings.TrimRight(required("APPWRITE_ENDPOINT"), "/")
	cfg.AppwriteProjectID = required("APPWRITE_PROJECT_ID")
	cfg.AppwriteAPIKey = required("APPWRITE_API_KEY")
	cfg.AppwriteDatabaseID = required("APPWRITE_DATABASE_ID")
	cfg.ProjectCollectionID = required("PROJECT_COLLECTION_ID")
	cfg.LimitsCollectionID = required("LIMITS_COLLECTION_ID")
	cfg.RazorpayKeyID = required("RAZORPAY_KEY_ID")
	cfg.RazorpayKeySecret = required("RAZORPAY_KEY_SECRET")
	cfg.FrontendURL = strings.TrimRight(required("FRONTEND_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AvatarBucketID = getEnvString("AVATAR_BUCKET_ID", "avatars")
	cfg.RazorpayEndpoint = getEnvString("RAZORPAY_ENDPOINT", "https://api.razorpay.com/v1")
	cfg.InstamojoAPIKey = getEnvString("INSTAMOJO_API_KEY", "")
	cfg.InstamojoAuthToken = getEnvString("INSTAMOJO_AUTH_TOKEN", "")
	cfg.InstamojoEndpoint = getEnvString("INSTAMOJO_ENDPOINT", "https://www.instamojo.com/api/1.1")
	cfg.InstamojoAmount = getEnvString("INSTAMOJO_AMOUNT", "100")
	cfg.InstamojoPurpose = getEnvString("INSTAMOJO_PURPOSE", "Toolpunk Premium")
	cfg.GroqAPIKey = getEnvString("GROQ_API_KEY", "")
	cfg.GroqModel = getEnvString("GROQ_MODEL", "llama3-70b-8192")
	cfg.GroqEndpoint = getEnvString("GROQ_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions")
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.SendGridAPIKey = getEnvString("SENDGRID_API_KEY", "")
	cfg.MailFrom = getEnvString("MAIL_FROM", "no-reply@toolpunk.app")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPayment = getEnvInt("RATE_LIMIT_PAYMENT", 20)
	cfg.LimitRetentionDays = getEnvInt("LIMIT_RETENTION_DAYS", 30)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.PublicAPIURL = strings.TrimRight(getEnvString("PUBLIC_API_URL", "http://localhost:"+cfg.ServerPort), "/")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.FrontendURL)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", true)
	cfg.HTTPClientTimeout = getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second)
	cfg.CookieSecure = strings.HasPrefix(cfg.PublicAPIURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 365*24*60*60)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// InstamojoEnabled はInstamojoの認証情報が設定されているかを返す。
func (c *Config) InstamojoEnabled() bool {
	return c.InstamojoAPIKey != "" && c.InstamojoAuthToken != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

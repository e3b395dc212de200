package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1/")
	t.Setenv("APPWRITE_PROJECT_ID", "proj-1")
	t.Setenv("APPWRITE_API_KEY", "secret-key")
	t.Setenv("APPWRITE_DATABASE_ID", "db-1")
	t.Setenv("PROJECT_COLLECTION_ID", "ideas")
	t.Setenv("LIMITS_COLLECTION_ID", "limits")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_test_secret")
	t.Setenv("FRONTEND_URL", "https://toolpunk.vercel.app/")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 末尾のスラッシュは除去される
	if cfg.AppwriteEndpoint != "https://cloud.appwrite.io/v1" {
		t.Errorf("AppwriteEndpoint = %q, want %q", cfg.AppwriteEndpoint, "https://cloud.appwrite.io/v1")
	}
	if cfg.FrontendURL != "https://toolpunk.vercel.app" {
		t.Errorf("FrontendURL = %q, want %q", cfg.FrontendURL, "https://toolpunk.vercel.app")
	}
	if cfg.RazorpayKeySecret != "rzp_test_secret" {
		t.Errorf("RazorpayKeySecret = %q, want %q", cfg.RazorpayKeySecret, "rzp_test_secret")
	}
	if cfg.LimitsCollectionID != "limits" {
		t.Errorf("LimitsCollectionID = %q, want %q", cfg.LimitsCollectionID, "limits")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.PublicAPIURL != "http://localhost:3000" {
		t.Errorf("PublicAPIURL = %q, want %q", cfg.PublicAPIURL, "http://localhost:3000")
	}
	// CORSの許可オリジンはFRONTEND_URLにフォールバックする
	if cfg.CORSAllowedOrigin != "https://toolpunk.vercel.app" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "https://toolpunk.vercel.app")
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy should default to true")
	}
	if cfg.GroqModel != "llama3-70b-8192" {
		t.Errorf("GroqModel = %q, want %q", cfg.GroqModel, "llama3-70b-8192")
	}
	if cfg.HTTPClientTimeout != 15*time.Second {
		t.Errorf("HTTPClientTimeout = %v, want %v", cfg.HTTPClientTimeout, 15*time.Second)
	}
	if cfg.LimitRetentionDays != 30 {
		t.Errorf("LimitRetentionDays = %d, want %d", cfg.LimitRetentionDays, 30)
	}
	if cfg.InstamojoAmount != "100" {
		t.Errorf("InstamojoAmount = %q, want %q", cfg.InstamojoAmount, "100")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false for http PUBLIC_API_URL")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.InstamojoEnabled() {
		t.Error("InstamojoEnabled should be false without credentials")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("PUBLIC_API_URL", "https://toolpunk-api.onrender.com")
	t.Setenv("TRUST_PROXY", "false")
	t.Setenv("RATE_LIMIT_PAYMENT", "5")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "3s")
	t.Setenv("INSTAMOJO_API_KEY", "im-key")
	t.Setenv("INSTAMOJO_AUTH_TOKEN", "im-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true for https PUBLIC_API_URL")
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy should be false")
	}
	if cfg.RateLimitPayment != 5 {
		t.Errorf("RateLimitPayment = %d, want %d", cfg.RateLimitPayment, 5)
	}
	if cfg.HTTPClientTimeout != 3*time.Second {
		t.Errorf("HTTPClientTimeout = %v, want %v", cfg.HTTPClientTimeout, 3*time.Second)
	}
	if !cfg.InstamojoEnabled() {
		t.Error("InstamojoEnabled should be true")
	}
}

func TestLoad_MissingRequired_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("APPWRITE_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required vars")
	}
	if !strings.Contains(err.Error(), "RAZORPAY_KEY_SECRET") {
		t.Errorf("error should mention RAZORPAY_KEY_SECRET: %v", err)
	}
	if !strings.Contains(err.Error(), "APPWRITE_API_KEY") {
		t.Errorf("error should mention APPWRITE_API_KEY: %v", err)
	}
}

func TestLoad_InvalidNumbers_FallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("RATE_LIMIT_GENERAL", "abc")
	t.Setenv("CLEANUP_INTERVAL", "soon")
	t.Setenv("TRUST_PROXY", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.CleanupInterval != 24*time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, 24*time.Hour)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy should fall back to true")
	}
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/middleware"
	"github.com/hitoshi/toolpunk/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	GoogleLoginURL() string
	GoogleSuccessURL() string
	GoogleFailureURL() string
	HandleGoogleCallback(ctx context.Context, userID, secret string) (*model.Session, error)
	VerifyEmail(ctx context.Context, userID, secret string) error
	Logout(ctx context.Context, creds appwrite.Credentials) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookie        middleware.CookieConfig
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はアカウント関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	UserID string `json:"userId"`
	Secret string `json:"secret"`
}

// Register はアカウントを作成し、確認メールを送信する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login はメールアドレスとパスワードでログインし、セッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	session, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.Secret)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// GoogleLogin はGoogleログインを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.service.GoogleLoginURL(), http.StatusTemporaryRedirect)
}

// GoogleCallback はIdPから渡されたuserIdとsecretでセッションを作成し、フロントエンドへリダイレクトする。
// GET /auth/google/callback?userId=xxx&secret=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	secret := r.URL.Query().Get("secret")

	session, err := h.service.HandleGoogleCallback(r.Context(), userID, secret)
	if err != nil {
		slog.Warn("google login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.service.GoogleFailureURL(), http.StatusFound)
		return
	}

	h.setSessionCookie(w, session.Secret)
	http.Redirect(w, r, h.service.GoogleSuccessURL(), http.StatusFound)
}

// VerifyEmail はメールアドレス確認を完了する。
// POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.UserID, req.Secret); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	creds := middleware.CredentialsFromRequest(r)
	if creds.JWT != "" || creds.SessionSecret != "" {
		if err := h.service.Logout(r.Context(), creds); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, secret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    secret,
		Path:     "/",
		Domain:   h.config.Cookie.Domain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: h.config.Cookie.SameSite(),
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: h.config.Cookie.SameSite(),
	})
}

// Package auth はIdP（Appwrite）のアカウントとセッションを使った認証フローを提供する。
// パスワードとセッションの管理はIdPが行い、このサービスは仲介のみを行う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
)

const (
	// MinPasswordLength はIdPが要求するパスワードの最小文字数。
	MinPasswordLength = 8

	// currentSession は現在のセッションを表すIdPのセッションID。
	currentSession = "current"
	// googleProvider はIdPのOAuth2プロバイダー名。
	googleProvider = "google"
)

// IdentityProvider はIdPのアカウント操作インターフェース。*appwrite.Client が実装する。
type IdentityProvider interface {
	CreateAccount(ctx context.Context, userID, email, password, name string) (*model.User, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (*model.Session, error)
	CreateSessionFromToken(ctx context.Context, userID, secret string) (*model.Session, error)
	GetAccount(ctx context.Context, creds appwrite.Credentials) (*model.User, error)
	DeleteSession(ctx context.Context, creds appwrite.Credentials, sessionID string) error
	CreateVerification(ctx context.Context, creds appwrite.Credentials, redirectURL string) error
	UpdateVerification(ctx context.Context, userID, secret string) error
	OAuthTokenURL(provider, success, failure string) string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	FrontendURL  string
	PublicAPIURL string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	idp    IdentityProvider
	logger *slog.Logger
	config ServiceConfig
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(idp IdentityProvider, logger *slog.Logger, config ServiceConfig) *Service {
	return &Service{
		idp:    idp,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Register はアカウントを作成し、確認メールを送信する。
// 確認メール送信のために一時的にセッションを作成し、送信後に削除する。
// ログインはメールアドレスの確認後に行う。
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewInvalidRequestError("A valid email address is required.")
	}
	if len(password) < MinPasswordLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user, err := s.idp.CreateAccount(ctx, uuid.New().String(), email, password, name)
	if err != nil {
		if appwrite.IsConflict(err) {
			return nil, model.NewAccountExistsError()
		}
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}

	session, err := s.idp.CreateEmailPasswordSession(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}
	creds := appwrite.Credentials{SessionSecret: session.Secret}

	verifyErr := s.idp.CreateVerification(ctx, creds, s.config.FrontendURL+"/verify-email")
	if err := s.idp.DeleteSession(ctx, creds, currentSession); err != nil {
		s.logger.Warn("登録時の一時セッションの削除に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("確認メールの送信に失敗しました: %w", verifyErr)
	}

	s.logger.Info("アカウントを作成しました", slog.String("user_id", user.ID))
	return user, nil
}

// Login はメールアドレスとパスワードでセッションを作成する。
// メールアドレスが未確認の場合はセッションを削除してEMAIL_NOT_VERIFIEDを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidRequestError("Email and password are required.")
	}

	session, err := s.idp.CreateEmailPasswordSession(ctx, email, password)
	if err != nil {
		if appwrite.IsUnauthorized(err) || appwrite.IsStatus(err, 400) {
			return nil, nil, model.NewInvalidCredentialsError()
		}
		return nil, nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}
	creds := appwrite.Credentials{SessionSecret: session.Secret}

	user, err := s.idp.GetAccount(ctx, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	if !user.EmailVerification {
		if err := s.idp.DeleteSession(ctx, creds, currentSession); err != nil {
			s.logger.Warn("未確認ユーザーのセッション削除に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, model.NewEmailNotVerifiedError()
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// GoogleLoginURL はGoogleログインの開始URLを返す。
// 認可後はIdPから<PUBLIC_API_URL>/auth/google/callbackへuserIdとsecretが渡される。
func (s *Service) GoogleLoginURL() string {
	return s.idp.OAuthTokenURL(
		googleProvider,
		s.config.PublicAPIURL+"/auth/google/callback",
		s.GoogleFailureURL(),
	)
}

// GoogleFailureURL はGoogleログイン失敗時のリダイレクト先を返す。
func (s *Service) GoogleFailureURL() string {
	return s.config.FrontendURL + "/login?error=google"
}

// GoogleSuccessURL はログイン成功時のリダイレクト先を返す。
func (s *Service) GoogleSuccessURL() string {
	return s.config.FrontendURL + "/projectgenerator"
}

// HandleGoogleCallback はOAuth2トークンフローのuserIdとsecretからセッションを作成する。
func (s *Service) HandleGoogleCallback(ctx context.Context, userID, secret string) (*model.Session, error) {
	if userID == "" || secret == "" {
		return nil, model.NewInvalidRequestError("Missing OAuth token.")
	}
	session, err := s.idp.CreateSessionFromToken(ctx, userID, secret)
	if err != nil {
		return nil, fmt.Errorf("OAuthセッションの作成に失敗しました: %w", err)
	}
	s.logger.Info("user logged in",
		slog.String("user_id", session.UserID),
		slog.String("provider", googleProvider),
	)
	return session, nil
}

// VerifyEmail は確認メールのuserIdとsecretでメールアドレス確認を完了する。
func (s *Service) VerifyEmail(ctx context.Context, userID, secret string) error {
	if userID == "" || secret == "" {
		return model.NewInvalidRequestError("Missing verification parameters.")
	}
	if err := s.idp.UpdateVerification(ctx, userID, secret); err != nil {
		if appwrite.IsUnauthorized(err) || appwrite.IsNotFound(err) {
			return model.NewInvalidRequestError("Verification link is invalid or expired.")
		}
		return fmt.Errorf("メールアドレス確認に失敗しました: %w", err)
	}
	return nil
}

// Logout は現在のセッションを削除する。
// セッションが既に無効な場合は成功として扱う。
func (s *Service) Logout(ctx context.Context, creds appwrite.Credentials) error {
	if err := s.idp.DeleteSession(ctx, creds, currentSession); err != nil {
		if appwrite.IsUnauthorized(err) || appwrite.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// Authenticate は認証情報からユーザーを解決する。
// JWTの場合は有効期限を事前に確認し、期限切れならIdPを呼ばずにUNAUTHORIZEDを返す。
func (s *Service) Authenticate(ctx context.Context, creds appwrite.Credentials) (*model.User, error) {
	if creds.JWT == "" && creds.SessionSecret == "" {
		return nil, model.NewUnauthorizedError()
	}

	if creds.JWT != "" {
		if _, err := ParseJWTClaims(creds.JWT, s.now()); err != nil {
			s.logger.Debug("JWTを拒否しました", slog.String("error", err.Error()))
			return nil, model.NewUnauthorizedError()
		}
	}

	user, err := s.idp.GetAccount(ctx, creds)
	if err != nil {
		var apiErr *appwrite.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, model.NewUnauthorizedError()
		}
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	return user, nil
}

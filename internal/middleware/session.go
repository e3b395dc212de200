// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
)

// SessionCookieName はIdPのセッションシークレットを保持するCookieの名前。
const SessionCookieName = "toolpunk_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey        = contextKey("user")
	credentialsContextKey = contextKey("credentials")
)

// Authenticator は認証情報からユーザーを解決するインターフェース。*auth.Service が実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, creds appwrite.Credentials) (*model.User, error)
}

// CredentialsFromRequest はリクエストから認証情報を取り出す。
// Authorization: Bearer <JWT> を優先し、なければセッションCookieを使用する。
func CredentialsFromRequest(r *http.Request) appwrite.Credentials {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return appwrite.Credentials{JWT: strings.TrimSpace(token)}
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return appwrite.Credentials{SessionSecret: cookie.Value}
	}
	return appwrite.Credentials{}
}

// NewSessionMiddleware はリクエストの認証情報をIdPで検証し、
// 解決したユーザー（ラベルを含む）と認証情報をリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewSessionMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := CredentialsFromRequest(r)
			if creds.JWT == "" && creds.SessionSecret == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				slog.Error("failed to authenticate request",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			setLoggedUserID(r.Context(), user.ID)
			ctx := ContextWithUser(r.Context(), user, creds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストからユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return user.ID, nil
}

// CredentialsFromContext はリクエストコンテキストから認証情報を取得する。
func CredentialsFromContext(ctx context.Context) appwrite.Credentials {
	creds, _ := ctx.Value(credentialsContextKey).(appwrite.Credentials)
	return creds
}

// ContextWithUser はコンテキストにユーザーと認証情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User, creds appwrite.Credentials) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, credentialsContextKey, creds)
}

package appwrite

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/toolpunk/internal/model"
)

type sessionResponse struct {
	ID     string    `json:"$id"`
	UserID string    `json:"userId"`
	Secret string    `json:"secret"`
	Expire time.Time `json:"expire"`
}

func (s *sessionResponse) toModel() *model.Session {
	return &model.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Secret:    s.Secret,
		ExpiresAt: s.Expire,
	}
}

// CreateAccount はメールアドレスとパスワードでアカウントを作成する。
func (c *Client) CreateAccount(ctx context.Context, userID, email, password, name string) (*model.User, error) {
	body := map[string]any{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/account", nil, body)
	if err != nil {
		return nil, err
	}
	c.useKey(req)

	var u userResponse
	if err := c.send(req, &u); err != nil {
		return nil, err
	}
	return u.toModel(), nil
}

// CreateEmailPasswordSession はメールアドレスとパスワードでセッションを作成する。
// APIキー付きで呼び出すため、レスポンスにセッションシークレットが含まれる。
func (c *Client) CreateEmailPasswordSession(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/account/sessions/email", nil, body)
	if err != nil {
		return nil, err
	}
	c.useKey(req)

	var s sessionResponse
	if err := c.send(req, &s); err != nil {
		return nil, err
	}
	return s.toModel(), nil
}

// CreateSessionFromToken はOAuth2トークンフローで受け取ったuserIdとsecretからセッションを作成する。
func (c *Client) CreateSessionFromToken(ctx context.Context, userID, secret string) (*model.Session, error) {
	body := map[string]any{
		"userId": userID,
		"secret": secret,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/account/sessions/token", nil, body)
	if err != nil {
		return nil, err
	}
	c.useKey(req)

	var s sessionResponse
	if err := c.send(req, &s); err != nil {
		return nil, err
	}
	return s.toModel(), nil
}

// GetAccount は認証情報に紐づくユーザーを取得する。
func (c *Client) GetAccount(ctx context.Context, creds Credentials) (*model.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/account", nil, nil)
	if err != nil {
		return nil, err
	}
	useCredentials(req, creds)

	var u userResponse
	if err := c.send(req, &u); err != nil {
		return nil, err
	}
	return u.toModel(), nil
}

// DeleteSession はセッションを削除する。sessionIDに"current"を指定すると現在のセッションを削除する。
func (c *Client) DeleteSession(ctx context.Context, creds Credentials, sessionID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil)
	if err != nil {
		return err
	}
	useCredentials(req, creds)
	return c.send(req, nil)
}

// CreateVerification は確認メールを送信する。redirectURLにはuserIdとsecretがクエリとして付与される。
func (c *Client) CreateVerification(ctx context.Context, creds Credentials, redirectURL string) error {
	body := map[string]any{"url": redirectURL}
	req, err := c.newRequest(ctx, http.MethodPost, "/account/verification", nil, body)
	if err != nil {
		return err
	}
	useCredentials(req, creds)
	return c.send(req, nil)
}

// UpdateVerification は確認メールのuserIdとsecretでメールアドレス確認を完了する。
func (c *Client) UpdateVerification(ctx context.Context, userID, secret string) error {
	body := map[string]any{
		"userId": userID,
		"secret": secret,
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/account/verification", nil, body)
	if err != nil {
		return err
	}
	return c.send(req, nil)
}

// OAuthTokenURL はOAuth2トークンフローの開始URLを返す。
// ブラウザをこのURLへリダイレクトすると、認可後にsuccessへuserIdとsecretが渡される。
func (c *Client) OAuthTokenURL(provider, success, failure string) string {
	q := url.Values{}
	q.Set("project", c.projectID)
	q.Set("success", success)
	q.Set("failure", failure)
	return c.endpoint + "/account/tokens/oauth2/" + url.PathEscape(provider) + "?" + q.Encode()
}

// Package appwrite はAppwrite（認証・ドキュメントDB・ファイルストレージ）のREST APIクライアントを提供する。
// 管理操作はAPIキー、ユーザー代理の操作はセッションシークレットまたはJWTで認証する。
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Credentials はユーザー代理でAPIを呼び出すための認証情報。
// SessionSecretとJWTのどちらか一方を設定する。
type Credentials struct {
	SessionSecret string
	JWT           string
}

// Client はAppwrite REST APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // 例: https://cloud.appwrite.io/v1
	projectID  string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, projectID, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		projectID:  projectID,
		apiKey:     apiKey,
	}
}

// Endpoint はAPIのベースURLを返す。
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ProjectID はプロジェクトIDを返す。
func (c *Client) ProjectID() string {
	return c.projectID
}

// newRequest はJSONボディ付きのリクエストを生成する。bodyがnilの場合はボディなし。
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("X-Appwrite-Response-Format", "1.5.0")
	return req, nil
}

// useKey はAPIキーによる管理者認証を設定する。
func (c *Client) useKey(req *http.Request) {
	req.Header.Set("X-Appwrite-Key", c.apiKey)
}

// useCredentials はユーザー代理の認証を設定する。
func useCredentials(req *http.Request, creds Credentials) {
	if creds.JWT != "" {
		req.Header.Set("X-Appwrite-JWT", creds.JWT)
		return
	}
	if creds.SessionSecret != "" {
		req.Header.Set("X-Appwrite-Session", creds.SessionSecret)
	}
}

// send はリクエストを実行し、2xxの場合はレスポンスをoutにデコードする。
// 2xx以外は*Errorを返す。outがnilの場合はボディを破棄する。
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Appwrite APIの呼び出しに失敗しました",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("Appwrite APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, body)
		c.logger.Warn("Appwrite APIがエラーステータスを返しました",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("type", apiErr.Type),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// Error はAppwrite APIが返したエラーレスポンスを表す。
type Error struct {
	Status  int
	Type    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("appwrite: %s (status=%d, type=%s)", e.Message, e.Status, e.Type)
}

func parseError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	apiErr := &Error{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Type = payload.Type
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// IsStatus はerrがAppwriteの指定ステータスのエラーかを判定する。
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound はerrが404（リソース未検出）かを判定する。
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsUnauthorized はerrが401（認証失敗）かを判定する。
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsConflict はerrが409（重複）かを判定する。
func IsConflict(err error) bool {
	return IsStatus(err, http.StatusConflict)
}

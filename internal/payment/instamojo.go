package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const defaultInstamojoEndpoint = "https://www.instamojo.com/api/1.1"

// StatusCompleted は支払い完了を示すInstamojoの支払いリクエストステータス。
const StatusCompleted = "Completed"

// PaymentRequestInput は支払いリクエスト作成の入力。
type PaymentRequestInput struct {
	Purpose     string
	Amount      string
	BuyerName   string
	Email       string
	Phone       string
	RedirectURL string
}

// PaymentRequestStatus は支払いリクエストの照会結果。
type PaymentRequestStatus struct {
	Success bool
	Status  string
}

// Completed は照会結果が支払い完了を示すかを返す。
func (s *PaymentRequestStatus) Completed() bool {
	return s != nil && s.Success && s.Status == StatusCompleted
}

// InstamojoClient はInstamojo Payment Requests APIのクライアント。
type InstamojoClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	authToken  string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewInstamojoClient はInstamojoClientの新しいインスタンスを生成する。
func NewInstamojoClient(httpClient *http.Client, logger *slog.Logger, apiKey, authToken, endpoint string) *InstamojoClient {
	if endpoint == "" {
		endpoint = defaultInstamojoEndpoint
	}
	return &InstamojoClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		authToken:  authToken,
		endpoint:   strings.TrimRight(endpoint, "/"),
	}
}

func (c *InstamojoClient) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Auth-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Instamojo APIの呼び出しに失敗しました",
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("Instamojo APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return body, resp.StatusCode, nil
}

// CreatePaymentRequest は支払いリクエストを作成し、ゲートウェイのJSONをそのまま返す。
// レスポンスにはリダイレクト先のpayment_request.longurlが含まれる。
func (c *InstamojoClient) CreatePaymentRequest(ctx context.Context, in PaymentRequestInput) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("purpose", in.Purpose)
	form.Set("amount", in.Amount)
	form.Set("redirect_url", in.RedirectURL)
	form.Set("allow_repeated_payments", "false")
	if in.BuyerName != "" {
		form.Set("buyer_name", in.BuyerName)
	}
	if in.Email != "" {
		form.Set("email", in.Email)
	}
	if in.Phone != "" {
		form.Set("phone", in.Phone)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/payment-requests/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		c.logger.Error("Instamojo APIがエラーステータスを返しました",
			slog.Int("http_status", status),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("Instamojo APIがステータス %d を返しました", status)
	}
	if !json.Valid(body) {
		return nil, errors.New("Instamojo APIのレスポンスがJSONではありません")
	}
	return json.RawMessage(body), nil
}

// GetPaymentRequest は支払いリクエストの詳細を照会する。
func (c *InstamojoClient) GetPaymentRequest(ctx context.Context, paymentRequestID string) (*PaymentRequestStatus, error) {
	u := c.endpoint + "/payment-requests/" + url.PathEscape(paymentRequestID) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.logger.Warn("Instamojo APIがエラーステータスを返しました",
			slog.Int("http_status", status),
			slog.String("payment_request_id", paymentRequestID),
		)
		return nil, fmt.Errorf("Instamojo APIがステータス %d を返しました", status)
	}

	var detail struct {
		Success        bool `json:"success"`
		PaymentRequest struct {
			Status string `json:"status"`
		} `json:"payment_request"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &PaymentRequestStatus{
		Success: detail.Success,
		Status:  detail.PaymentRequest.Status,
	}, nil
}

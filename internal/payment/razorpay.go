// Package payment はRazorpay/Instamojoによる決済の開始・検証とプレミアム付与を提供する。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/toolpunk/internal/model"
)

const defaultRazorpayEndpoint = "https://api.razorpay.com/v1"

// RazorpayClient はRazorpay Orders APIのクライアント。
type RazorpayClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	keyID      string
	keySecret  string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewRazorpayClient はRazorpayClientの新しいインスタンスを生成する。
func NewRazorpayClient(httpClient *http.Client, logger *slog.Logger, keyID, keySecret, endpoint string) *RazorpayClient {
	if endpoint == "" {
		endpoint = defaultRazorpayEndpoint
	}
	return &RazorpayClient{
		httpClient: httpClient,
		logger:     logger,
		keyID:      keyID,
		keySecret:  keySecret,
		endpoint:   endpoint,
	}
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder は注文を作成する。amountは最小通貨単位（パイサ）。
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*model.Order, error) {
	payload, err := json.Marshal(createOrderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Razorpay APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Razorpay APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Razorpay APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("Razorpay APIがステータス %d を返しました", resp.StatusCode)
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &model.Order{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
	}, nil
}

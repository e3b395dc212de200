package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/toolpunk/internal/middleware"
	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/payment"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*model.Order, error)
	VerifyRazorpay(ctx context.Context, v payment.RazorpayVerification) error
	InitiateInstamojo(ctx context.Context, in payment.InstamojoInitiation) (json.RawMessage, error)
	VerifyInstamojo(ctx context.Context, cb payment.InstamojoCallback) error
}

// PaymentHandler は決済ゲートウェイ連携のHTTPハンドラー。
// 既存のフロントエンドとの互換のため、エラーは {"error": "..."} 形式で返す。
type PaymentHandler struct {
	service     PaymentServiceInterface
	frontendURL string
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, frontendURL string) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		frontendURL: frontendURL,
	}
}

type createOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type createOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type verifyRazorpayRequest struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
	UserID    string `json:"userId"`
}

type instamojoInitiateRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// CreateOrder はRazorpayの注文を作成する。
// POST /api/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// 金額を読み取れないボディは金額なしとして扱う
		middleware.WriteLegacyError(w, http.StatusBadRequest, payment.ErrMissingAmount.Error())
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.Amount, req.Currency)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
}

// VerifyRazorpay はRazorpayの決済署名を検証し、premiumを付与する。
// POST /api/verify-payment
func (h *PaymentHandler) VerifyRazorpay(w http.ResponseWriter, r *http.Request) {
	var req verifyRazorpayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteLegacyError(w, http.StatusBadRequest, payment.ErrMissingPaymentDetails.Error())
		return
	}

	err := h.service.VerifyRazorpay(r.Context(), payment.RazorpayVerification{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
		UserID:    req.UserID,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// InitiateInstamojo はInstamojoの支払いリクエストを作成し、ゲートウェイのJSONをそのまま返す。
// POST /api/instamojo-initiate
func (h *PaymentHandler) InitiateInstamojo(w http.ResponseWriter, r *http.Request) {
	var req instamojoInitiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteLegacyError(w, http.StatusBadRequest, payment.ErrMissingUserID.Error())
		return
	}

	result, err := h.service.InitiateInstamojo(r.Context(), payment.InstamojoInitiation{
		UserID: req.UserID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

// VerifyInstamojo はInstamojoからのリダイレクトを検証し、フロントエンドの結果ページへリダイレクトする。
// GET /api/verify-payment?payment_id=...&payment_status=...&payment_request_id=...&userId=...
func (h *PaymentHandler) VerifyInstamojo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.service.VerifyInstamojo(r.Context(), payment.InstamojoCallback{
		PaymentID:        q.Get("payment_id"),
		PaymentStatus:    q.Get("payment_status"),
		PaymentRequestID: q.Get("payment_request_id"),
		UserID:           q.Get("userId"),
	})

	result := "success"
	if err != nil {
		result = "failed"
	}
	http.Redirect(w, r, h.frontendURL+"/premium?payment="+result, http.StatusFound)
}

// writePaymentError は決済サービスのエラーをステータスコードと {"error"} 形式に変換する。
func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrMissingAmount),
		errors.Is(err, payment.ErrMissingUserID),
		errors.Is(err, payment.ErrMissingPaymentDetails),
		errors.Is(err, payment.ErrInvalidSignature):
		middleware.WriteLegacyError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrVerificationFailed):
		middleware.WriteLegacyError(w, http.StatusInternalServerError, err.Error())
	default:
		middleware.WriteLegacyError(w, http.StatusInternalServerError, payment.ErrGatewayUnavailable.Error())
	}
}

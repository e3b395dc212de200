package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/toolpunk/internal/metrics"
	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/repository"
)

// DefaultCurrency は通貨未指定時の通貨。
const DefaultCurrency = "INR"

// 呼び出し元（HTTPハンドラー）がレスポンスの文言に使用するエラー。
var (
	ErrMissingAmount         = errors.New("Missing amount")
	ErrMissingUserID         = errors.New("Missing user ID")
	ErrMissingPaymentDetails = errors.New("Missing payment details or user ID")
	ErrInvalidSignature      = errors.New("Invalid signature")
	ErrVerificationFailed    = errors.New("Verification failed")
	ErrGatewayUnavailable    = errors.New("Internal Server Error")
)

// UserDirectory はIdPのユーザーラベル操作のインターフェース。*appwrite.Client が実装する。
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateLabels(ctx context.Context, userID string, labels []string) error
}

// OrderCreator はRazorpayの注文作成インターフェース。*RazorpayClient が実装する。
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*model.Order, error)
}

// InstamojoGateway はInstamojoの支払いリクエスト操作インターフェース。*InstamojoClient が実装する。
type InstamojoGateway interface {
	CreatePaymentRequest(ctx context.Context, in PaymentRequestInput) (json.RawMessage, error)
	GetPaymentRequest(ctx context.Context, paymentRequestID string) (*PaymentRequestStatus, error)
}

// ServiceConfig は決済サービスの設定。
type ServiceConfig struct {
	RazorpayKeySecret string
	InstamojoAmount   string
	InstamojoPurpose  string
	PublicAPIURL      string
}

// Service は決済の開始・検証とプレミアム付与のサービス層。
type Service struct {
	users     UserDirectory
	orders    OrderCreator
	instamojo InstamojoGateway // 未設定の場合はnil
	ledger    repository.PaymentLedger
	notifier  Notifier
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// instamojoがnilの場合、Instamojoの開始は常に失敗し、検証は失敗リダイレクトになる。
func NewService(
	users UserDirectory,
	orders OrderCreator,
	instamojo InstamojoGateway,
	ledger repository.PaymentLedger,
	notifier Notifier,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		users:     users,
		orders:    orders,
		instamojo: instamojo,
		ledger:    ledger,
		notifier:  notifier,
		metrics:   collector,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// CreateOrder はRazorpayの注文を作成する。amountは主通貨単位（ルピー）で、100倍してパイサで送信する。
// currencyが空の場合はINR。
func (s *Service) CreateOrder(ctx context.Context, amount float64, currency string) (*model.Order, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrMissingAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	minor := int64(math.Round(amount * 100))
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())

	order, err := s.orders.CreateOrder(ctx, minor, currency, receipt)
	if err != nil {
		s.logger.Error("Razorpayの注文作成に失敗しました",
			slog.Int64("amount", minor),
			slog.String("currency", currency),
			slog.String("error", err.Error()),
		)
		return nil, ErrGatewayUnavailable
	}

	s.metrics.RecordOrderCreated(string(model.GatewayRazorpay))
	return order, nil
}

// RazorpayVerification はRazorpay決済完了後にクライアントから送られる検証情報。
type RazorpayVerification struct {
	PaymentID string
	OrderID   string
	Signature string
	UserID    string
}

// VerifyRazorpay は署名を検証し、ユーザーにpremiumラベルを付与する。
// 処理済みの決済IDの場合はラベルを変更せずに成功を返す。
func (s *Service) VerifyRazorpay(ctx context.Context, v RazorpayVerification) error {
	if v.PaymentID == "" || v.OrderID == "" || v.Signature == "" || v.UserID == "" {
		return ErrMissingPaymentDetails
	}

	if !VerifySignature(s.config.RazorpayKeySecret, v.OrderID, v.PaymentID, v.Signature) {
		s.metrics.RecordPaymentVerification(string(model.GatewayRazorpay), metrics.ResultRejected)
		s.logger.Warn("Razorpayの署名が一致しません",
			slog.String("user_id", v.UserID),
			slog.String("order_id", v.OrderID),
			slog.String("payment_id", v.PaymentID),
		)
		return ErrInvalidSignature
	}

	processed, err := s.checkLedger(ctx, model.GatewayRazorpay, v.PaymentID, v.UserID)
	if err != nil {
		return ErrVerificationFailed
	}
	if processed {
		return nil
	}

	if err := s.grant(ctx, model.GatewayRazorpay, v.PaymentID, v.UserID, LabelMerge); err != nil {
		return ErrVerificationFailed
	}
	return nil
}

// InstamojoInitiation はInstamojo支払いリクエスト作成の入力。
type InstamojoInitiation struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// InitiateInstamojo は支払いリクエストを作成し、ゲートウェイのJSONをそのまま返す。
// 決済後のリダイレクト先は <PUBLIC_API_URL>/api/verify-payment?userId=<id>。
func (s *Service) InitiateInstamojo(ctx context.Context, in InstamojoInitiation) (json.RawMessage, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrMissingUserID
	}
	if s.instamojo == nil {
		s.logger.Error("Instamojoの認証情報が設定されていません")
		return nil, ErrGatewayUnavailable
	}

	redirectURL := s.config.PublicAPIURL + "/api/verify-payment?userId=" + url.QueryEscape(in.UserID)
	result, err := s.instamojo.CreatePaymentRequest(ctx, PaymentRequestInput{
		Purpose:     s.config.InstamojoPurpose,
		Amount:      s.config.InstamojoAmount,
		BuyerName:   in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		RedirectURL: redirectURL,
	})
	if err != nil {
		s.logger.Error("Instamojoの支払いリクエスト作成に失敗しました",
			slog.String("user_id", in.UserID),
			slog.String("error", err.Error()),
		)
		return nil, ErrGatewayUnavailable
	}

	s.metrics.RecordOrderCreated(string(model.GatewayInstamojo))
	return result, nil
}

// InstamojoCallback はInstamojoからのリダイレクトに付与されるクエリ。
type InstamojoCallback struct {
	PaymentID        string
	PaymentStatus    string
	PaymentRequestID string
	UserID           string
}

// VerifyInstamojo は支払いリクエストの状態を照会し、完了していればラベルを["premium"]で上書きする。
// いずれかのクエリが欠けている場合はゲートウェイを呼ばずに失敗とする。
// 台帳のキーはゲートウェイで完了を確認できるpayment_request_id。payment_idはクエリで
// 自由に書き換えられるため、処理済みの支払いリクエストは別のpayment_idでも再付与しない。
func (s *Service) VerifyInstamojo(ctx context.Context, cb InstamojoCallback) error {
	if cb.PaymentID == "" || cb.PaymentStatus == "" || cb.PaymentRequestID == "" || cb.UserID == "" {
		s.metrics.RecordPaymentVerification(string(model.GatewayInstamojo), metrics.ResultRejected)
		return ErrMissingPaymentDetails
	}

	processed, err := s.checkLedger(ctx, model.GatewayInstamojo, cb.PaymentRequestID, cb.UserID)
	if err != nil {
		return ErrVerificationFailed
	}
	if processed {
		return nil
	}

	if s.instamojo == nil {
		s.logger.Error("Instamojoの認証情報が設定されていません")
		return ErrVerificationFailed
	}

	status, err := s.instamojo.GetPaymentRequest(ctx, cb.PaymentRequestID)
	if err != nil {
		s.metrics.RecordPaymentVerification(string(model.GatewayInstamojo), metrics.ResultFailed)
		return ErrVerificationFailed
	}
	if !status.Completed() {
		s.metrics.RecordPaymentVerification(string(model.GatewayInstamojo), metrics.ResultRejected)
		s.logger.Warn("Instamojoの支払いが完了していません",
			slog.String("user_id", cb.UserID),
			slog.String("payment_request_id", cb.PaymentRequestID),
			slog.Bool("success", status.Success),
			slog.String("status", status.Status),
		)
		return ErrVerificationFailed
	}

	if err := s.grant(ctx, model.GatewayInstamojo, cb.PaymentRequestID, cb.UserID, LabelOverwrite); err != nil {
		return ErrVerificationFailed
	}
	return nil
}

// checkLedger は決済IDが処理済みかを確認する。処理済みの場合はtrueを返す。
func (s *Service) checkLedger(ctx context.Context, gateway model.Gateway, paymentID, userID string) (bool, error) {
	processed, err := s.ledger.Exists(ctx, gateway, paymentID)
	if err != nil {
		s.metrics.RecordPaymentVerification(string(gateway), metrics.ResultFailed)
		s.logger.Error("処理済み決済台帳の参照に失敗しました",
			slog.String("gateway", string(gateway)),
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()),
		)
		return false, err
	}
	if processed {
		s.metrics.RecordPaymentVerification(string(gateway), metrics.ResultReplayed)
		s.logger.Info("処理済みの決済のためラベル更新をスキップしました",
			slog.String("gateway", string(gateway)),
			slog.String("payment_id", paymentID),
			slog.String("user_id", userID),
		)
	}
	return processed, nil
}

// grant はラベルを更新し、台帳に記録する。呼び出し前にcheckLedgerで未処理であることを確認する。
// paymentIDは台帳のキー（Razorpayはpayment_id、Instamojoはpayment_request_id）。
func (s *Service) grant(ctx context.Context, gateway model.Gateway, paymentID, userID string, strategy LabelStrategy) error {
	user, changed, err := s.applyLabels(ctx, gateway, userID, strategy)
	if err != nil {
		s.metrics.RecordPaymentVerification(string(gateway), metrics.ResultFailed)
		return err
	}

	// ラベル付与後の台帳記録失敗は決済を失敗にしない
	inserted, err := s.ledger.Record(ctx, &model.ProcessedPayment{
		Gateway:     gateway,
		PaymentID:   paymentID,
		UserID:      userID,
		ProcessedAt: s.now(),
	})
	if err != nil {
		s.logger.Error("処理済み決済の記録に失敗しました",
			slog.String("gateway", string(gateway)),
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()),
		)
		// 記録できなかった場合も付与自体は完了しているため通知する
		inserted = true
	}

	s.metrics.RecordPaymentVerification(string(gateway), metrics.ResultGranted)
	s.logger.Info("プレミアムを付与しました",
		slog.String("gateway", string(gateway)),
		slog.String("user_id", userID),
		slog.String("payment_id", paymentID),
		slog.String("label_strategy", strategy.String()),
		slog.Bool("labels_changed", changed),
	)

	// 同時に届いた重複コールバックは先に記録した側だけが通知する
	if !inserted {
		s.logger.Info("他のリクエストで記録済みのため確認メールを送信しません",
			slog.String("gateway", string(gateway)),
			slog.String("payment_id", paymentID),
		)
		return nil
	}
	s.notify(ctx, user, gateway, userID)
	return nil
}

// applyLabels はstrategyに従ってラベルを更新する。
// LabelOverwriteは現在のラベルに依存しないため、ユーザーを取得せずに書き込み、
// 取得は通知用に後から行う（取得失敗はnilユーザーとして返す）。
func (s *Service) applyLabels(ctx context.Context, gateway model.Gateway, userID string, strategy LabelStrategy) (*model.User, bool, error) {
	if strategy == LabelOverwrite {
		labels, _ := strategy.Apply(nil)
		if err := s.writeLabels(ctx, gateway, userID, labels); err != nil {
			return nil, false, err
		}
		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn("付与後のユーザー取得に失敗しました",
				slog.String("gateway", string(gateway)),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, true, nil
		}
		user.Labels = labels
		return user, true, nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("ユーザーの取得に失敗しました",
			slog.String("gateway", string(gateway)),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, false, err
	}

	labels, changed := strategy.Apply(user.Labels)
	if !changed {
		return user, false, nil
	}
	if err := s.writeLabels(ctx, gateway, userID, labels); err != nil {
		return nil, false, err
	}
	user.Labels = labels
	return user, true, nil
}

func (s *Service) writeLabels(ctx context.Context, gateway model.Gateway, userID string, labels []string) error {
	if err := s.users.UpdateLabels(ctx, userID, labels); err != nil {
		s.logger.Error("ラベルの更新に失敗しました",
			slog.String("gateway", string(gateway)),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// notify は確認メールを送信する。送信失敗は決済を失敗にしない。
func (s *Service) notify(ctx context.Context, user *model.User, gateway model.Gateway, userID string) {
	if user == nil {
		return
	}
	if err := s.notifier.NotifyPremium(ctx, user, gateway); err != nil {
		s.logger.Warn("プレミアム確認メールの送信に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

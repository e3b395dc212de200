// Package model はドメインモデルを定義する。
package model

import "time"

// Gateway は決済ゲートウェイの種別を表す。
type Gateway string

const (
	// GatewayRazorpay はRazorpay（署名検証方式）を表す。
	GatewayRazorpay Gateway = "razorpay"
	// GatewayInstamojo はInstamojo（リダイレクト＋ステータス照会方式）を表す。
	GatewayInstamojo Gateway = "instamojo"
)

// Order はRazorpayで作成された注文を表す。Amountは最小通貨単位（パイサ）。
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// ProcessedPayment は処理済み決済の台帳エントリを表す。
// 同一(Gateway, PaymentID)のコールバック再送でラベル更新を繰り返さないために使用する。
type ProcessedPayment struct {
	Gateway     Gateway
	PaymentID   string
	UserID      string
	ProcessedAt time.Time
}

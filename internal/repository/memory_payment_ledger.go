package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/toolpunk/internal/model"
)

type ledgerKey struct {
	gateway   model.Gateway
	paymentID string
}

// MemoryPaymentLedger はプロセス内メモリの処理済み決済台帳。
// DATABASE_URL未設定時に使用する。再起動で内容は失われる。
type MemoryPaymentLedger struct {
	mu       sync.Mutex
	payments map[ledgerKey]model.ProcessedPayment
}

// NewMemoryPaymentLedger はMemoryPaymentLedgerを生成する。
func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{
		payments: make(map[ledgerKey]model.ProcessedPayment),
	}
}

// Exists は(gateway, paymentID)が処理済みかを返す。
func (l *MemoryPaymentLedger) Exists(_ context.Context, gateway model.Gateway, paymentID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.payments[ledgerKey{gateway, paymentID}]
	return ok, nil
}

// Record は処理済み決済を記録する。既に記録済みの場合はfalseを返す。
func (l *MemoryPaymentLedger) Record(_ context.Context, payment *model.ProcessedPayment) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{payment.Gateway, payment.PaymentID}
	if _, ok := l.payments[key]; ok {
		return false, nil
	}
	if payment.ProcessedAt.IsZero() {
		payment.ProcessedAt = time.Now()
	}
	l.payments[key] = *payment
	return true, nil
}

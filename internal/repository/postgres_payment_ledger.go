package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/toolpunk/internal/model"
)

// PostgresPaymentLedger はPostgreSQLを使用した処理済み決済台帳。
type PostgresPaymentLedger struct {
	db *sql.DB
}

// NewPostgresPaymentLedger はPostgresPaymentLedgerを生成する。
func NewPostgresPaymentLedger(db *sql.DB) *PostgresPaymentLedger {
	return &PostgresPaymentLedger{db: db}
}

// Exists は(gateway, paymentID)が処理済みかを返す。
func (l *PostgresPaymentLedger) Exists(ctx context.Context, gateway model.Gateway, paymentID string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_payments WHERE gateway = $1 AND payment_id = $2)`,
		string(gateway), paymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed payment: %w", err)
	}
	return exists, nil
}

// Record は処理済み決済を記録する。既に記録済みの場合はfalseを返す。
func (l *PostgresPaymentLedger) Record(ctx context.Context, payment *model.ProcessedPayment) (bool, error) {
	if payment.ProcessedAt.IsZero() {
		payment.ProcessedAt = time.Now()
	}

	result, err := l.db.ExecContext(ctx,
		`INSERT INTO processed_payments (gateway, payment_id, user_id, processed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (gateway, payment_id) DO NOTHING`,
		string(payment.Gateway), payment.PaymentID, payment.UserID, payment.ProcessedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record processed payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

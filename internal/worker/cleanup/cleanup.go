// Package cleanup は日次カウンタの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した無料枠カウンタのドキュメントを
// 定期バッチで削除する。当日分のカウンタは削除対象にならない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は日次カウンタのデフォルト保持日数。
const DefaultRetentionDays = 30

// Purger は保持期間を超過したカウンタを削除するインターフェース。
// *limit.Service が実装する。
type Purger interface {
	PurgeBefore(ctx context.Context, retentionDays int) (int, error)
}

// CleanupJob は保持期間を超過した日次カウンタの自動削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	purger        Purger
	logger        *slog.Logger
	RetentionDays int // カウンタの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger Purger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は保持期間を超過したカウンタを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.purger.PurgeBefore(ctx, j.RetentionDays)
	if err != nil {
		j.logger.Error("日次カウンタのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("deleted_count", deletedCount),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("日次カウンタのクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("日次カウンタのクリーンアップが完了しました",
		slog.Int("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Warn("cleanup run failed, retrying at next interval", slog.Duration("interval", interval))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup job stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("cleanup run failed, retrying at next interval", slog.Duration("interval", interval))
			}
		}
	}
}

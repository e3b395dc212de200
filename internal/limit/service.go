// Package limit は無料ユーザーの日次アイデア生成回数を管理する。
package limit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/repository"
)

// FreeDailyLimit は無料ユーザーが1日に生成できるアイデア数。
const FreeDailyLimit = 3

// dateLayout はカウンタの日付キーの形式。
const dateLayout = "2006-01-02"

// Today は現在のUTC日付をYYYY-MM-DD形式で返す。
func Today(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// Service は日次カウンタの読み取りと加算を行う。
// 加算は読み取り→更新の2段階でロックを取らないため、同時リクエストでは
// 加算が失われることがある。
type Service struct {
	repo   repository.LimitRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.LimitRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Today は現在のUTC日付を返す。
func (s *Service) Today() string {
	return Today(s.now())
}

// Get は指定日のカウンタを返す。
// 該当ドキュメントがない場合と読み取りに失敗した場合はCount=0として扱う。
func (s *Service) Get(ctx context.Context, userID, date string) *model.DailyLimit {
	limit, err := s.repo.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		s.logger.Warn("日次カウンタの取得に失敗しました。0として扱います",
			slog.String("user_id", userID),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return &model.DailyLimit{UserID: userID, Date: date}
	}
	if limit == nil {
		return &model.DailyLimit{UserID: userID, Date: date}
	}
	return limit
}

// Increment はカウンタをcurrent.Count+1に更新する。ドキュメントがなければ作成する。
// 更新後のカウンタを返す。
func (s *Service) Increment(ctx context.Context, current *model.DailyLimit) (*model.DailyLimit, error) {
	next := *current
	next.Count = current.Count + 1

	if current.ID != "" {
		if err := s.repo.UpdateCount(ctx, current.ID, next.Count); err != nil {
			return nil, fmt.Errorf("日次カウンタの更新に失敗しました: %w", err)
		}
		return &next, nil
	}

	if err := s.repo.Create(ctx, &next); err != nil {
		return nil, fmt.Errorf("日次カウンタの作成に失敗しました: %w", err)
	}
	return &next, nil
}

// Usage はユーザーの当日の利用状況を返す。
func (s *Service) Usage(ctx context.Context, user *model.User) model.Usage {
	current := s.Get(ctx, user.ID, s.Today())
	return model.Usage{
		DailyCount: current.Count,
		DailyLimit: FreeDailyLimit,
		Premium:    user.IsPremium(),
	}
}

// PurgeBefore はretentionDaysより古いカウンタを削除し、削除件数を返す。
func (s *Service) PurgeBefore(ctx context.Context, retentionDays int) (int, error) {
	cutoff := Today(s.now().AddDate(0, 0, -retentionDays))
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("古い日次カウンタの削除に失敗しました: %w", err)
	}
	return n, nil
}

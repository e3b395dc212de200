// Package idea はプロジェクトアイデアの生成（無料枠の判定を含む）と保存済みアイデアの管理を提供する。
package idea

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/toolpunk/internal/groq"
	"github.com/hitoshi/toolpunk/internal/limit"
	"github.com/hitoshi/toolpunk/internal/metrics"
	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/repository"
)

// ExportFilename はエクスポート時のファイル名。
const ExportFilename = "project-idea.txt"

// Generator はアイデア生成のインターフェース。*groq.Client が実装する。
type Generator interface {
	Generate(ctx context.Context, branch, difficulty string) (string, error)
}

// LimitTracker は日次カウンタのインターフェース。*limit.Service が実装する。
type LimitTracker interface {
	Today() string
	Get(ctx context.Context, userID, date string) *model.DailyLimit
	Increment(ctx context.Context, current *model.DailyLimit) (*model.DailyLimit, error)
	Usage(ctx context.Context, user *model.User) model.Usage
}

// GenerateResult はアイデア生成の結果。
type GenerateResult struct {
	Idea  string
	Usage model.Usage
}

// Service はアイデアのサービス層。
type Service struct {
	ideaRepo  repository.IdeaRepository
	limits    LimitTracker
	generator Generator
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	ideaRepo repository.IdeaRepository,
	limits LimitTracker,
	generator Generator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		ideaRepo:  ideaRepo,
		limits:    limits,
		generator: generator,
		metrics:   collector,
		logger:    logger,
	}
}

func validateSelection(branch, difficulty string) error {
	if !model.IsValidBranch(branch) {
		return model.NewInvalidBranchError(branch)
	}
	if !model.IsValidDifficulty(difficulty) {
		return model.NewInvalidDifficultyError(difficulty)
	}
	return nil
}

// Generate はアイデアを生成する。
// 無料ユーザーが当日の上限に達している場合は生成APIを呼ばずにDAILY_LIMIT_REACHEDを返す。
// 無料ユーザーの生成成功後はカウンタを加算する。加算に失敗してもアイデアは返す。
func (s *Service) Generate(ctx context.Context, user *model.User, branch, difficulty string) (*GenerateResult, error) {
	if err := validateSelection(branch, difficulty); err != nil {
		return nil, err
	}

	premium := user.IsPremium()
	if premium {
		text, err := s.generate(ctx, user, branch, difficulty)
		if err != nil {
			return nil, err
		}
		return &GenerateResult{
			Idea:  text,
			Usage: model.Usage{DailyLimit: limit.FreeDailyLimit, Premium: true},
		}, nil
	}

	current := s.limits.Get(ctx, user.ID, s.limits.Today())
	if current.Count >= limit.FreeDailyLimit {
		s.metrics.RecordLimitBlocked()
		s.logger.Info("無料枠の上限に達したため生成を拒否しました",
			slog.String("user_id", user.ID),
			slog.Int("daily_count", current.Count),
		)
		return nil, model.NewDailyLimitReachedError(limit.FreeDailyLimit, limit.FreeDailyLimit)
	}

	text, err := s.generate(ctx, user, branch, difficulty)
	if err != nil {
		return nil, err
	}

	count := current.Count + 1
	if _, err := s.limits.Increment(ctx, current); err != nil {
		s.logger.Error("日次カウンタの加算に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return &GenerateResult{
		Idea:  text,
		Usage: model.Usage{DailyCount: count, DailyLimit: limit.FreeDailyLimit},
	}, nil
}

func (s *Service) generate(ctx context.Context, user *model.User, branch, difficulty string) (string, error) {
	text, err := s.generator.Generate(ctx, branch, difficulty)
	if err != nil {
		s.logger.Error("アイデアの生成に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("branch", branch),
			slog.String("difficulty", difficulty),
			slog.String("error", err.Error()),
		)
		return "", model.NewGenerationFailedError()
	}
	s.metrics.RecordIdeaGenerated(user.IsPremium())
	return text, nil
}

// Usage はユーザーの当日の利用状況を返す。
func (s *Service) Usage(ctx context.Context, user *model.User) model.Usage {
	return s.limits.Usage(ctx, user)
}

// Save はアイデアを保存する。テキストは生成時と同じ規則で整形する。
func (s *Service) Save(ctx context.Context, user *model.User, branch, difficulty, ideaText string) (*model.Idea, error) {
	if err := validateSelection(branch, difficulty); err != nil {
		return nil, err
	}
	text := groq.Sanitize(ideaText)
	if text == "" {
		return nil, model.NewInvalidRequestError("ideaText is required")
	}

	idea := &model.Idea{
		UserID:     user.ID,
		Branch:     branch,
		Difficulty: difficulty,
		IdeaText:   text,
	}
	if err := s.ideaRepo.Create(ctx, idea); err != nil {
		return nil, fmt.Errorf("アイデアの保存に失敗しました: %w", err)
	}
	return idea, nil
}

// List はユーザーの保存済みアイデアを新しい順に返す。
// 取得に失敗した場合は空のリストを返す。
func (s *Service) List(ctx context.Context, user *model.User) []*model.Idea {
	ideas, err := s.ideaRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		s.logger.Error("保存済みアイデアの取得に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return []*model.Idea{}
	}
	return ideas
}

// findOwned はユーザーが所有するアイデアを取得する。
// 存在しない場合と他ユーザーのアイデアの場合はどちらもIDEA_NOT_FOUNDを返す。
func (s *Service) findOwned(ctx context.Context, user *model.User, ideaID string) (*model.Idea, error) {
	idea, err := s.ideaRepo.FindByID(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("アイデアの取得に失敗しました: %w", err)
	}
	if idea == nil || idea.UserID != user.ID {
		return nil, model.NewIdeaNotFoundError(ideaID)
	}
	return idea, nil
}

// Delete は保存済みアイデアを削除する。
func (s *Service) Delete(ctx context.Context, user *model.User, ideaID string) error {
	if _, err := s.findOwned(ctx, user, ideaID); err != nil {
		return err
	}
	if err := s.ideaRepo.Delete(ctx, ideaID); err != nil {
		return fmt.Errorf("アイデアの削除に失敗しました: %w", err)
	}
	return nil
}

// SetFavorite はお気に入りフラグを設定する。呼び出し1回につき更新は1回。
func (s *Service) SetFavorite(ctx context.Context, user *model.User, ideaID string, favorite bool) (*model.Idea, error) {
	idea, err := s.findOwned(ctx, user, ideaID)
	if err != nil {
		return nil, err
	}
	if err := s.ideaRepo.UpdateFavorite(ctx, ideaID, favorite); err != nil {
		return nil, fmt.Errorf("お気に入りの更新に失敗しました: %w", err)
	}
	idea.Favorite = favorite
	return idea, nil
}

// Export はアイデアをテキストファイルの内容として返す（プレミアム限定）。
func (s *Service) Export(ctx context.Context, user *model.User, ideaID string) (string, error) {
	if !user.IsPremium() {
		return "", model.NewPremiumRequiredError("Export")
	}
	idea, err := s.findOwned(ctx, user, ideaID)
	if err != nil {
		return "", err
	}
	return "Project Idea\n\n" + idea.IdeaText, nil
}

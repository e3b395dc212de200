// Package user はユーザープロフィール（表示名・自己紹介・アバター）の管理を提供する。
package user

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/security"
)

const (
	// MaxNameLength は表示名の最大文字数（IdPの制約）。
	MaxNameLength = 128
	// MaxBioLength は自己紹介の最大文字数。
	MaxBioLength = 500
	// MaxAvatarSize はアバター画像の最大バイト数。
	MaxAvatarSize = 5 * 1024 * 1024

	avatarFetchTimeout = 10 * time.Second
)

// Directory はIdPのプロフィール更新インターフェース。*appwrite.Client が実装する。
type Directory interface {
	UpdateName(ctx context.Context, userID, name string) error
	UpdatePrefs(ctx context.Context, userID string, prefs model.UserPrefs) error
}

// AvatarStore はアバター画像の保存先インターフェース。*appwrite.Client が実装する。
type AvatarStore interface {
	CreateFile(ctx context.Context, bucketID, fileID, name, contentType string, content io.Reader) (*appwrite.File, error)
	FilePreviewURL(bucketID, fileID string) string
}

// ProfileUpdate はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Name    *string
	Bio     *string
	Picture *string
}

// Service はプロフィール管理のサービス層。
type Service struct {
	directory Directory
	store     AvatarStore
	bucketID  string
	guard     security.URLGuard
	sanitizer security.TextSanitizer
	fetcher   *http.Client
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// 外部URLからのアバター取得にはguardが生成するSSRF防止クライアントを使用する。
func NewService(
	directory Directory,
	store AvatarStore,
	bucketID string,
	guard security.URLGuard,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		directory: directory,
		store:     store,
		bucketID:  bucketID,
		guard:     guard,
		sanitizer: sanitizer,
		fetcher:   guard.NewSafeClient(avatarFetchTimeout),
		logger:    logger,
	}
}

// UpdateProfile は表示名・自己紹介・画像URLを更新し、更新後のユーザーを返す。
// 自己紹介はプレーンテキスト化してMaxBioLength文字に切り詰める。
// 画像URLは公開httpsの絶対URLのみ許可する（空文字列は削除）。
func (s *Service) UpdateProfile(ctx context.Context, user *model.User, in ProfileUpdate) (*model.User, error) {
	updated := *user
	prefs := user.Prefs
	prefsChanged := false

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, model.NewInvalidProfileError("Name cannot be empty.")
		}
		if utf8.RuneCountInString(name) > MaxNameLength {
			return nil, model.NewInvalidProfileError(fmt.Sprintf("Name must be at most %d characters.", MaxNameLength))
		}
		updated.Name = name
	}

	if in.Bio != nil {
		prefs.Bio = s.sanitizer.Sanitize(*in.Bio, MaxBioLength)
		prefsChanged = true
	}

	if in.Picture != nil {
		picture := strings.TrimSpace(*in.Picture)
		if picture != "" {
			if err := s.guard.ValidateURL(picture); err != nil {
				s.logger.Warn("プロフィール画像URLを拒否しました",
					slog.String("user_id", user.ID),
					slog.String("error", err.Error()),
				)
				return nil, model.NewInvalidProfileError("Picture must be a public https URL.")
			}
		}
		prefs.Picture = picture
		prefsChanged = true
	}

	if updated.Name != user.Name {
		if err := s.directory.UpdateName(ctx, user.ID, updated.Name); err != nil {
			return nil, fmt.Errorf("表示名の更新に失敗しました: %w", err)
		}
	}
	if prefsChanged && prefs != user.Prefs {
		if err := s.directory.UpdatePrefs(ctx, user.ID, prefs); err != nil {
			return nil, fmt.Errorf("プリファレンスの更新に失敗しました: %w", err)
		}
	}

	updated.Prefs = prefs
	return &updated, nil
}

// UploadAvatar は画像をストレージに保存し、prefs.pictureをプレビューURLに更新する。
// 内容から判定したMIMEタイプが画像以外、またはMaxAvatarSizeを超える場合はINVALID_AVATARを返す。
func (s *Service) UploadAvatar(ctx context.Context, user *model.User, content io.Reader) (*model.User, error) {
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}
	return s.storeAvatar(ctx, user, data)
}

// ImportAvatar は外部URLの画像を取得してストレージに保存する。
// 取得はSSRF防止クライアントで行う。
func (s *Service) ImportAvatar(ctx context.Context, user *model.User, rawURL string) (*model.User, error) {
	if err := s.guard.ValidateURL(rawURL); err != nil {
		return nil, model.NewInvalidAvatarError("Image URL must be a public https URL.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidAvatarError("Image URL must be a public https URL.")
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.fetcher.Do(req)
	if err != nil {
		s.logger.Warn("アバター画像の取得に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidAvatarError("Could not download the image.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("アバター画像の取得でエラーステータスを受信しました",
			slog.String("user_id", user.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewInvalidAvatarError("Could not download the image.")
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return s.storeAvatar(ctx, user, data)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return nil, fmt.Errorf("画像の読み取りに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, model.NewInvalidAvatarError("Image is empty.")
	}
	if len(data) > MaxAvatarSize {
		return nil, model.NewInvalidAvatarError("Image must be smaller than 5MB.")
	}
	return data, nil
}

func (s *Service) storeAvatar(ctx context.Context, user *model.User, data []byte) (*model.User, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, model.NewInvalidAvatarError("Only image files are allowed.")
	}

	fileID := uuid.New().String()
	name := "avatar-" + user.ID + mtype.Extension()
	file, err := s.store.CreateFile(ctx, s.bucketID, fileID, name, mtype.String(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("アバター画像の保存に失敗しました: %w", err)
	}

	prefs := user.Prefs
	prefs.Picture = s.store.FilePreviewURL(s.bucketID, file.ID)
	if err := s.directory.UpdatePrefs(ctx, user.ID, prefs); err != nil {
		return nil, fmt.Errorf("プリファレンスの更新に失敗しました: %w", err)
	}

	s.logger.Info("アバター画像を更新しました",
		slog.String("user_id", user.ID),
		slog.String("file_id", file.ID),
		slog.String("mime_type", mtype.String()),
		slog.Int("size", len(data)),
	)

	updated := *user
	updated.Prefs = prefs
	return &updated, nil
}

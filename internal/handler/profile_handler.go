package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/user"
)

// multipartOverhead は画像本体以外のマルチパートヘッダー等に許容するサイズ。
const multipartOverhead = 64 << 10

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, u *model.User, in user.ProfileUpdate) (*model.User, error)
	UploadAvatar(ctx context.Context, u *model.User, content io.Reader) (*model.User, error)
	ImportAvatar(ctx context.Context, u *model.User, rawURL string) (*model.User, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。省略したフィールドは変更しない。
type updateProfileRequest struct {
	Name    *string `json:"name"`
	Bio     *string `json:"bio"`
	Picture *string `json:"picture"`
}

// Update は表示名・自己紹介・画像URLを更新する。
// PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), u, user.ProfileUpdate{
		Name:    req.Name,
		Bio:     req.Bio,
		Picture: req.Picture,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// UploadAvatar はアバター画像を保存する。
// マルチパートの file フィールドで画像本体、または url フィールドで外部画像URLを受け付ける。
// POST /api/profile/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, user.MaxAvatarSize+multipartOverhead)
	if err := r.ParseMultipartForm(user.MaxAvatarSize + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, model.NewInvalidAvatarError("Image must be smaller than 5MB."))
			return
		}
		handleServiceError(w, model.NewInvalidAvatarError("Request must be multipart/form-data with a file or url field."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var (
		updated *model.User
		err     error
	)
	file, _, fileErr := r.FormFile("file")
	switch {
	case fileErr == nil:
		defer file.Close()
		updated, err = h.service.UploadAvatar(r.Context(), u, file)
	case r.FormValue("url") != "":
		updated, err = h.service.ImportAvatar(r.Context(), u, r.FormValue("url"))
	default:
		slog.Debug("avatar upload without file or url", slog.String("user_id", u.ID))
		handleServiceError(w, model.NewInvalidAvatarError("Request must include a file or url field."))
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

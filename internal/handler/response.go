// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/toolpunk/internal/middleware"
	"github.com/hitoshi/toolpunk/internal/model"
)

// maxJSONBodySize はJSONリクエストボディの上限（1MB）。
const maxJSONBodySize = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをdstにデコードする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize)).Decode(dst)
}

// writeInvalidBody はリクエストボディ不正のエラーレスポンスを書き込む。
func writeInvalidBody(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Request body is not valid JSON."))
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidBranch,
		model.ErrCodeInvalidDifficulty,
		model.ErrCodeInvalidProfile,
		model.ErrCodeInvalidAvatar:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeEmailNotVerified, model.ErrCodePremiumRequired:
		return http.StatusForbidden
	case model.ErrCodeIdeaNotFound:
		return http.StatusNotFound
	case model.ErrCodeAccountExists:
		return http.StatusConflict
	case model.ErrCodeDailyLimitReached:
		return http.StatusTooManyRequests
	case model.ErrCodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// currentUser はセッションミドルウェアが注入したユーザーを返す。
// ユーザーがいない場合は401を書き込みfalseを返す。
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return user, true
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	EmailVerification bool     `json:"emailVerification"`
	Labels            []string `json:"labels"`
	Premium           bool     `json:"premium"`
	Picture           string   `json:"picture"`
	Bio               string   `json:"bio"`
}

func toUserResponse(u *model.User) userResponse {
	labels := u.Labels
	if labels == nil {
		labels = []string{}
	}
	return userResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		EmailVerification: u.EmailVerification,
		Labels:            labels,
		Premium:           u.IsPremium(),
		Picture:           u.Prefs.Picture,
		Bio:               u.Prefs.Bio,
	}
}

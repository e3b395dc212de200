package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/toolpunk/internal/idea"
	"github.com/hitoshi/toolpunk/internal/model"
)

// IdeaServiceInterface はアイデアハンドラーが必要とするサービスインターフェース。
type IdeaServiceInterface interface {
	Generate(ctx context.Context, user *model.User, branch, difficulty string) (*idea.GenerateResult, error)
	Usage(ctx context.Context, user *model.User) model.Usage
	Save(ctx context.Context, user *model.User, branch, difficulty, ideaText string) (*model.Idea, error)
	List(ctx context.Context, user *model.User) []*model.Idea
	Delete(ctx context.Context, user *model.User, ideaID string) error
	SetFavorite(ctx context.Context, user *model.User, ideaID string, favorite bool) (*model.Idea, error)
	Export(ctx context.Context, user *model.User, ideaID string) (string, error)
}

// IdeaHandler はアイデア生成と保存済みアイデアのHTTPハンドラー。
type IdeaHandler struct {
	service IdeaServiceInterface
}

// NewIdeaHandler はIdeaHandlerを生成する。
func NewIdeaHandler(service IdeaServiceInterface) *IdeaHandler {
	return &IdeaHandler{service: service}
}

type generateIdeaRequest struct {
	Branch     string `json:"branch"`
	Difficulty string `json:"difficulty"`
}

type saveIdeaRequest struct {
	Branch     string `json:"branch"`
	Difficulty string `json:"difficulty"`
	IdeaText   string `json:"ideaText"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// usageResponse は当日の利用状況のAPIレスポンス。
type usageResponse struct {
	DailyCount int  `json:"dailyCount"`
	DailyLimit int  `json:"dailyLimit"`
	Premium    bool `json:"premium"`
}

type generateIdeaResponse struct {
	Idea string `json:"idea"`
	usageResponse
}

// ideaResponse は保存済みアイデアのAPIレスポンス。
type ideaResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Branch     string `json:"branch"`
	Difficulty string `json:"difficulty"`
	IdeaText   string `json:"ideaText"`
	CreatedAt  string `json:"createdAt"`
	Favorite   bool   `json:"favorite"`
}

func toUsageResponse(u model.Usage) usageResponse {
	return usageResponse{
		DailyCount: u.DailyCount,
		DailyLimit: u.DailyLimit,
		Premium:    u.Premium,
	}
}

func toIdeaResponse(i *model.Idea) ideaResponse {
	return ideaResponse{
		ID:         i.ID,
		UserID:     i.UserID,
		Branch:     i.Branch,
		Difficulty: i.Difficulty,
		IdeaText:   i.IdeaText,
		CreatedAt:  i.CreatedAt.UTC().Format(time.RFC3339),
		Favorite:   i.Favorite,
	}
}

// Generate はプロジェクトアイデアを生成する。無料枠の上限に達した場合は429を返す。
// POST /api/ideas/generate
func (h *IdeaHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req generateIdeaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.Generate(r.Context(), user, req.Branch, req.Difficulty)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateIdeaResponse{
		Idea:          result.Idea,
		usageResponse: toUsageResponse(result.Usage),
	})
}

// Usage は当日の利用状況を返す。
// GET /api/ideas/usage
func (h *IdeaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUsageResponse(h.service.Usage(r.Context(), user)))
}

// List は保存済みアイデアを新しい順に返す。
// GET /api/ideas
func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ideas := h.service.List(r.Context(), user)
	resp := make([]ideaResponse, 0, len(ideas))
	for _, i := range ideas {
		resp = append(resp, toIdeaResponse(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Save はアイデアを保存する。
// POST /api/ideas
func (h *IdeaHandler) Save(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req saveIdeaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	saved, err := h.service.Save(r.Context(), user, req.Branch, req.Difficulty, req.IdeaText)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIdeaResponse(saved))
}

// Delete は保存済みアイデアを削除する。
// DELETE /api/ideas/{id}
func (h *IdeaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFavorite はお気に入りフラグを設定する。
// PUT /api/ideas/{id}/favorite
func (h *IdeaHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req favoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.Favorite == nil {
		handleServiceError(w, model.NewInvalidRequestError("favorite is required"))
		return
	}

	updated, err := h.service.SetFavorite(r.Context(), user, chi.URLParam(r, "id"), *req.Favorite)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdeaResponse(updated))
}

// Export はアイデアをテキストファイルとしてダウンロードさせる（プレミアム限定）。
// GET /api/ideas/{id}/export
func (h *IdeaHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	body, err := h.service.Export(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+idea.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

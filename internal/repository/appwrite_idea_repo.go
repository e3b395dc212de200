package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
)

// listIdeasLimit は一覧取得の上限件数。Appwriteのデフォルト（25件）では不足するため明示する。
const listIdeasLimit = 100

// ideaDocument はアイデアコレクションのドキュメント表現。
type ideaDocument struct {
	ID         string `json:"$id,omitempty"`
	UserID     string `json:"userId"`
	Branch     string `json:"branch"`
	Difficulty string `json:"difficulty"`
	IdeaText   string `json:"ideaText"`
	CreatedAt  string `json:"createdAt"`
	Favorite   bool   `json:"favorite"`
}

func (d *ideaDocument) toModel() *model.Idea {
	// createdAtはRFC3339文字列で保存している。パースできない場合はゼロ値
	createdAt, _ := time.Parse(time.RFC3339Nano, d.CreatedAt)
	return &model.Idea{
		ID:         d.ID,
		UserID:     d.UserID,
		Branch:     d.Branch,
		Difficulty: d.Difficulty,
		IdeaText:   d.IdeaText,
		CreatedAt:  createdAt,
		Favorite:   d.Favorite,
	}
}

// AppwriteIdeaRepo はAppwriteドキュメントDBを使用したアイデアリポジトリ。
type AppwriteIdeaRepo struct {
	store        DocumentStore
	databaseID   string
	collectionID string
}

// NewAppwriteIdeaRepo はAppwriteIdeaRepoを生成する。
func NewAppwriteIdeaRepo(store DocumentStore, databaseID, collectionID string) *AppwriteIdeaRepo {
	return &AppwriteIdeaRepo{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
	}
}

// Create はアイデアを作成する。
func (r *AppwriteIdeaRepo) Create(ctx context.Context, idea *model.Idea) error {
	if idea.ID == "" {
		idea.ID = uuid.New().String()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}

	data := ideaDocument{
		UserID:     idea.UserID,
		Branch:     idea.Branch,
		Difficulty: idea.Difficulty,
		IdeaText:   idea.IdeaText,
		CreatedAt:  idea.CreatedAt.Format(time.RFC3339),
		Favorite:   idea.Favorite,
	}
	if err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, idea.ID, data, nil); err != nil {
		return fmt.Errorf("failed to create idea: %w", err)
	}
	return nil
}

// FindByID は指定IDのアイデアを取得する。見つからない場合はnilを返す。
func (r *AppwriteIdeaRepo) FindByID(ctx context.Context, id string) (*model.Idea, error) {
	var doc ideaDocument
	err := r.store.GetDocument(ctx, r.databaseID, r.collectionID, id, &doc)
	if appwrite.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find idea by ID: %w", err)
	}
	return doc.toModel(), nil
}

// ListByUserID はユーザーのアイデアを作成日時の降順で返す。
func (r *AppwriteIdeaRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Idea, error) {
	list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, []string{
		appwrite.QueryEqual("userId", userID),
		appwrite.QueryOrderDesc("createdAt"),
		appwrite.QueryLimit(listIdeasLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}

	docs, err := decodeDocuments[ideaDocument](list)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ideas: %w", err)
	}

	ideas := make([]*model.Idea, len(docs))
	for i := range docs {
		ideas[i] = docs[i].toModel()
	}
	return ideas, nil
}

// UpdateFavorite はお気に入りフラグを更新する。
func (r *AppwriteIdeaRepo) UpdateFavorite(ctx context.Context, id string, favorite bool) error {
	data := map[string]any{"favorite": favorite}
	if err := r.store.UpdateDocument(ctx, r.databaseID, r.collectionID, id, data, nil); err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}
	return nil
}

// Delete は指定IDのアイデアを削除する。
func (r *AppwriteIdeaRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, id); err != nil {
		return fmt.Errorf("failed to delete idea: %w", err)
	}
	return nil
}

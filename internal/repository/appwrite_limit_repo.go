package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
)

// deleteBatchSize はDeleteBeforeで1回に取得する件数。
const deleteBatchSize = 100

// limitDocument は日次カウンタコレクションのドキュメント表現。
type limitDocument struct {
	ID     string `json:"$id,omitempty"`
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Count  int    `json:"count"`
}

// AppwriteLimitRepo はAppwriteドキュメントDBを使用した日次カウンタリポジトリ。
type AppwriteLimitRepo struct {
	store        DocumentStore
	databaseID   string
	collectionID string
}

// NewAppwriteLimitRepo はAppwriteLimitRepoを生成する。
func NewAppwriteLimitRepo(store DocumentStore, databaseID, collectionID string) *AppwriteLimitRepo {
	return &AppwriteLimitRepo{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
	}
}

// FindByUserAndDate はユーザーと日付でカウンタを取得する。見つからない場合はnilを返す。
// 同一キーのドキュメントが複数ある場合は最初の1件を使用する。
func (r *AppwriteLimitRepo) FindByUserAndDate(ctx context.Context, userID, date string) (*model.DailyLimit, error) {
	list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, []string{
		appwrite.QueryEqual("userId", userID),
		appwrite.QueryEqual("date", date),
		appwrite.QueryLimit(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find daily limit: %w", err)
	}

	docs, err := decodeDocuments[limitDocument](list)
	if err != nil {
		return nil, fmt.Errorf("failed to decode daily limit: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	d := docs[0]
	return &model.DailyLimit{ID: d.ID, UserID: d.UserID, Date: d.Date, Count: d.Count}, nil
}

// Create はカウンタを作成する。limit.IDが未設定の場合は採番する。
func (r *AppwriteLimitRepo) Create(ctx context.Context, limit *model.DailyLimit) error {
	if limit.ID == "" {
		limit.ID = uuid.New().String()
	}
	data := limitDocument{UserID: limit.UserID, Date: limit.Date, Count: limit.Count}
	if err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, limit.ID, data, nil); err != nil {
		return fmt.Errorf("failed to create daily limit: %w", err)
	}
	return nil
}

// UpdateCount はカウンタの値を更新する。
func (r *AppwriteLimitRepo) UpdateCount(ctx context.Context, id string, count int) error {
	data := map[string]any{"count": count}
	if err := r.store.UpdateDocument(ctx, r.databaseID, r.collectionID, id, data, nil); err != nil {
		return fmt.Errorf("failed to update daily limit: %w", err)
	}
	return nil
}

// DeleteBefore は指定日付より前のカウンタを削除し、削除件数を返す。
// 日付はYYYY-MM-DD形式のため文字列比較で前後を判定できる。
func (r *AppwriteLimitRepo) DeleteBefore(ctx context.Context, date string) (int, error) {
	deleted := 0
	for {
		list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, []string{
			appwrite.QueryLessThan("date", date),
			appwrite.QueryLimit(deleteBatchSize),
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to list expired daily limits: %w", err)
		}

		docs, err := decodeDocuments[limitDocument](list)
		if err != nil {
			return deleted, fmt.Errorf("failed to decode daily limits: %w", err)
		}
		if len(docs) == 0 {
			return deleted, nil
		}

		for _, d := range docs {
			if err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, d.ID); err != nil {
				return deleted, fmt.Errorf("failed to delete daily limit %s: %w", d.ID, err)
			}
			deleted++
		}

		if len(docs) < deleteBatchSize {
			return deleted, nil
		}
	}
}

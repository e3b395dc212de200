// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/model"
)

// DocumentStore はAppwriteドキュメントDBの操作インターフェース。
// *appwrite.Client が実装する。テスト時にモックに差し替え可能。
type DocumentStore interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, out any) error
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string, out any) error
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (*appwrite.DocumentList, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, out any) error
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// IdeaRepository は保存済みアイデアの永続化インターフェース。
type IdeaRepository interface {
	// Create はアイデアを作成する。idea.IDとidea.CreatedAtが未設定の場合は採番する。
	Create(ctx context.Context, idea *model.Idea) error

	// FindByID は指定IDのアイデアを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Idea, error)

	// ListByUserID はユーザーのアイデアを作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Idea, error)

	// UpdateFavorite はお気に入りフラグを更新する。
	UpdateFavorite(ctx context.Context, id string, favorite bool) error

	// Delete は指定IDのアイデアを削除する。
	Delete(ctx context.Context, id string) error
}

// LimitRepository は日次無料枠カウンタの永続化インターフェース。
type LimitRepository interface {
	// FindByUserAndDate はユーザーと日付（YYYY-MM-DD）でカウンタを取得する。
	// 見つからない場合はnilを返す。
	FindByUserAndDate(ctx context.Context, userID, date string) (*model.DailyLimit, error)

	// Create はカウンタを作成する。
	Create(ctx context.Context, limit *model.DailyLimit) error

	// UpdateCount はカウンタの値を更新する。
	UpdateCount(ctx context.Context, id string, count int) error

	// DeleteBefore は指定日付より前のカウンタを削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, date string) (int, error)
}

// PaymentLedger は処理済み決済の台帳インターフェース。
type PaymentLedger interface {
	// Exists は(gateway, paymentID)が処理済みかを返す。
	Exists(ctx context.Context, gateway model.Gateway, paymentID string) (bool, error)

	// Record は処理済み決済を記録する。既に記録済みの場合はfalseを返す。
	Record(ctx context.Context, payment *model.ProcessedPayment) (bool, error)
}

// decodeDocuments はドキュメント一覧を指定型のスライスにデコードする。
func decodeDocuments[T any](list *appwrite.DocumentList) ([]T, error) {
	docs := make([]T, 0, len(list.Documents))
	for _, raw := range list.Documents {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

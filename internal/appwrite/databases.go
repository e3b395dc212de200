package appwrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// DocumentList はドキュメント一覧のレスポンス。
// 各ドキュメントは呼び出し側の型でデコードする。
type DocumentList struct {
	Total     int               `json:"total"`
	Documents []json.RawMessage `json:"documents"`
}

func documentsPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID) + "/documents"
}

// CreateDocument はドキュメントを作成し、作成結果をoutにデコードする。
func (c *Client) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, out any) error {
	body := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	req, err := c.newRequest(ctx, http.MethodPost, documentsPath(databaseID, collectionID), nil, body)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, out)
}

// GetDocument はドキュメントを取得してoutにデコードする。
func (c *Client) GetDocument(ctx context.Context, databaseID, collectionID, documentID string, out any) error {
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, out)
}

// ListDocuments はクエリに一致するドキュメントを取得する。
// queriesはQueryEqual等で生成したクエリ文字列。
func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (*DocumentList, error) {
	q := url.Values{}
	for _, query := range queries {
		q.Add("queries[]", query)
	}
	req, err := c.newRequest(ctx, http.MethodGet, documentsPath(databaseID, collectionID), q, nil)
	if err != nil {
		return nil, err
	}
	c.useKey(req)

	var list DocumentList
	if err := c.send(req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateDocument はドキュメントの指定フィールドを更新し、更新結果をoutにデコードする。
func (c *Client) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, out any) error {
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	body := map[string]any{"data": data}
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, body)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, out)
}

// DeleteDocument はドキュメントを削除する。
func (c *Client) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, nil)
}

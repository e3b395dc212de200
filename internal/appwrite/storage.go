package appwrite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// File はストレージに保存されたファイルのメタデータ。
type File struct {
	ID       string `json:"$id"`
	BucketID string `json:"bucketId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"sizeOriginal"`
}

// CreateFile はバケットにファイルをアップロードする（管理者権限）。
func (c *Client) CreateFile(ctx context.Context, bucketID, fileID, name, contentType string, content io.Reader) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("fileId", fileID); err != nil {
		return nil, fmt.Errorf("マルチパートの構築に失敗しました: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("マルチパートの構築に失敗しました: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("ファイル内容の書き込みに失敗しました: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("マルチパートの構築に失敗しました: %w", err)
	}

	path := "/storage/buckets/" + url.PathEscape(bucketID) + "/files"
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(&buf)
	req.ContentLength = int64(buf.Len())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.useKey(req)

	var f File
	if err := c.send(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FilePreviewURL はファイルのプレビューURLを返す。
func (c *Client) FilePreviewURL(bucketID, fileID string) string {
	return c.endpoint + "/storage/buckets/" + url.PathEscape(bucketID) +
		"/files/" + url.PathEscape(fileID) + "/preview?project=" + url.QueryEscape(c.projectID)
}

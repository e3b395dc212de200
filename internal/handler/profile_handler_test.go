package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/toolpunk/internal/model"
	"github.com/hitoshi/toolpunk/internal/user"
)

// --- モック定義 ---

type mockProfileService struct {
	updateProfileFn func(ctx context.Context, u *model.User, in user.ProfileUpdate) (*model.User, error)
	uploadAvatarFn  func(ctx context.Context, u *model.User, content io.Reader) (*model.User, error)
	importAvatarFn  func(ctx context.Context, u *model.User, rawURL string) (*model.User, error)
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, u *model.User, in user.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, u, in)
	}
	return u, nil
}

func (m *mockProfileService) UploadAvatar(ctx context.Context, u *model.User, content io.Reader) (*model.User, error) {
	if m.uploadAvatarFn != nil {
		return m.uploadAvatarFn(ctx, u, content)
	}
	return u, nil
}

func (m *mockProfileService) ImportAvatar(ctx context.Context, u *model.User, rawURL string) (*model.User, error) {
	if m.importAvatarFn != nil {
		return m.importAvatarFn(ctx, u, rawURL)
	}
	return u, nil
}

// newMultipartRequest はフィールドとファイルを含むマルチパートリクエストを生成する。
func newMultipartRequest(t *testing.T, fields map[string]string, fileContent []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if fileContent != nil {
		fw, err := mw.CreateFormFile("file", "avatar.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(fileContent)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- テスト ---

func TestProfileHandler_Update_PassesOnlyProvidedFields(t *testing.T) {
	var got user.ProfileUpdate
	svc := &mockProfileService{
		updateProfileFn: func(ctx context.Context, u *model.User, in user.ProfileUpdate) (*model.User, error) {
			got = in
			updated := *u
			updated.Prefs.Bio = *in.Bio
			return &updated, nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"bio":"Final-year ECE student"}`)), testUser)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Name != nil {
		t.Errorf("Name = %v, want nil", *got.Name)
	}
	if got.Picture != nil {
		t.Errorf("Picture = %v, want nil", *got.Picture)
	}
	if got.Bio == nil || *got.Bio != "Final-year ECE student" {
		t.Errorf("Bio = %v, want %q", got.Bio, "Final-year ECE student")
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Bio != "Final-year ECE student" {
		t.Errorf("bio = %q, want %q", resp.Bio, "Final-year ECE student")
	}
}

func TestProfileHandler_Update_InvalidProfile_Returns400(t *testing.T) {
	svc := &mockProfileService{
		updateProfileFn: func(ctx context.Context, u *model.User, in user.ProfileUpdate) (*model.User, error) {
			return nil, model.NewInvalidProfileError("Picture must be a public https URL.")
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"picture":"http://169.254.169.254/"}`)), testUser)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidProfile {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidProfile)
	}
}

func TestProfileHandler_UploadAvatar_File(t *testing.T) {
	content := []byte("\x89PNG\r\n\x1a\nfake-image")
	var got []byte
	svc := &mockProfileService{
		uploadAvatarFn: func(ctx context.Context, u *model.User, r io.Reader) (*model.User, error) {
			got, _ = io.ReadAll(r)
			updated := *u
			updated.Prefs.Picture = "https://appwrite.example.com/v1/storage/buckets/avatars/files/f1/preview"
			return &updated, nil
		},
		importAvatarFn: func(ctx context.Context, u *model.User, rawURL string) (*model.User, error) {
			t.Error("ImportAvatar should not be called when a file is uploaded")
			return u, nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(newMultipartRequest(t, nil, content), testUser)
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("uploaded content = %q, want %q", got, content)
	}
	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasSuffix(resp.Picture, "/preview") {
		t.Errorf("picture = %q, want preview URL", resp.Picture)
	}
}

func TestProfileHandler_UploadAvatar_URL(t *testing.T) {
	var gotURL string
	svc := &mockProfileService{
		importAvatarFn: func(ctx context.Context, u *model.User, rawURL string) (*model.User, error) {
			gotURL = rawURL
			return u, nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(newMultipartRequest(t, map[string]string{"url": "https://images.example.com/me.jpg"}, nil), testUser)
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotURL != "https://images.example.com/me.jpg" {
		t.Errorf("url = %q, want %q", gotURL, "https://images.example.com/me.jpg")
	}
}

func TestProfileHandler_UploadAvatar_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "no file or url",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, map[string]string{"other": "x"}, nil)
			},
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", strings.NewReader(`{"url":"x"}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, nil, bytes.Repeat([]byte{0xff}, user.MaxAvatarSize+multipartOverhead+1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockProfileService{
				uploadAvatarFn: func(ctx context.Context, u *model.User, r io.Reader) (*model.User, error) {
					t.Error("UploadAvatar should not be called")
					return u, nil
				},
				importAvatarFn: func(ctx context.Context, u *model.User, rawURL string) (*model.User, error) {
					t.Error("ImportAvatar should not be called")
					return u, nil
				},
			}
			h := NewProfileHandler(svc)

			req := withUser(tt.req(t), testUser)
			w := httptest.NewRecorder()

			h.UploadAvatar(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidAvatar {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidAvatar)
			}
		})
	}
}

func TestProfileHandler_UploadAvatar_ServiceError(t *testing.T) {
	svc := &mockProfileService{
		uploadAvatarFn: func(ctx context.Context, u *model.User, r io.Reader) (*model.User, error) {
			return nil, model.NewInvalidAvatarError("Only image files are allowed.")
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(newMultipartRequest(t, nil, []byte("plain text")), testUser)
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

package appwrite

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/toolpunk/internal/model"
)

// userResponse はAppwriteのユーザーオブジェクト。
type userResponse struct {
	ID                string          `json:"$id"`
	Email             string          `json:"email"`
	Name              string          `json:"name"`
	EmailVerification bool            `json:"emailVerification"`
	Labels            []string        `json:"labels"`
	Prefs             model.UserPrefs `json:"prefs"`
	CreatedAt         time.Time       `json:"$createdAt"`
}

func (u *userResponse) toModel() *model.User {
	labels := u.Labels
	if labels == nil {
		labels = []string{}
	}
	return &model.User{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		EmailVerification: u.EmailVerification,
		Labels:            labels,
		Prefs:             u.Prefs,
		CreatedAt:         u.CreatedAt,
	}
}

// GetUser はユーザーIDでユーザーを取得する（管理者権限）。
func (c *Client) GetUser(ctx context.Context, userID string) (*model.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	c.useKey(req)

	var u userResponse
	if err := c.send(req, &u); err != nil {
		return nil, err
	}
	return u.toModel(), nil
}

// UpdateLabels はユーザーのラベル集合を置き換える（管理者権限）。
func (c *Client) UpdateLabels(ctx context.Context, userID string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	body := map[string]any{"labels": labels}
	req, err := c.newRequest(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/labels", nil, body)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, nil)
}

// UpdatePrefs はユーザーのプリファレンスを置き換える（管理者権限）。
func (c *Client) UpdatePrefs(ctx context.Context, userID string, prefs model.UserPrefs) error {
	body := map[string]any{"prefs": prefs}
	req, err := c.newRequest(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/prefs", nil, body)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, nil)
}

// UpdateName はユーザーの表示名を更新する（管理者権限）。
func (c *Client) UpdateName(ctx context.Context, userID, name string) error {
	body := map[string]any{"name": name}
	req, err := c.newRequest(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/name", nil, body)
	if err != nil {
		return err
	}
	c.useKey(req)
	return c.send(req, nil)
}

// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"time"
)

// LabelPremium はプレミアム会員を示すユーザーラベル。
const LabelPremium = "premium"

// User はIdP（Appwrite）が管理するユーザーを表す。
type User struct {
	ID                string
	Email             string
	Name              string
	EmailVerification bool
	Labels            []string
	Prefs             UserPrefs
	CreatedAt         time.Time
}

// UserPrefs はユーザーのプリファレンス（プロフィール情報）を表す。
type UserPrefs struct {
	Picture string `json:"picture,omitempty"`
	Bio     string `json:"bio,omitempty"`
}

// IsPremium はユーザーがpremiumラベルを持つかを返す。
func (u *User) IsPremium() bool {
	if u == nil {
		return false
	}
	return HasLabel(u.Labels, LabelPremium)
}

// HasLabel はラベル集合に指定ラベルが含まれるかを返す。
func HasLabel(labels []string, label string) bool {
	return slices.Contains(labels, label)
}

// Session はIdP上のログインセッションを表す。
// Secretはセッション Cookie に格納され、ユーザー代理のAPI呼び出しに使用する。
type Session struct {
	ID        string
	UserID    string
	Secret    string
	ExpiresAt time.Time
}

// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"time"
)

// Branches はアイデア生成で選択可能な学科。
var Branches = []string{"CSE", "ECE", "Mechanical", "Civil", "IT"}

// Difficulties はアイデア生成で選択可能な難易度。
var Difficulties = []string{"Easy", "Medium", "Hard"}

// IsValidBranch は学科が選択肢に含まれるかを返す。
func IsValidBranch(branch string) bool {
	return slices.Contains(Branches, branch)
}

// IsValidDifficulty は難易度が選択肢に含まれるかを返す。
func IsValidDifficulty(difficulty string) bool {
	return slices.Contains(Difficulties, difficulty)
}

// Idea は保存されたプロジェクトアイデアを表す。
// IdeaTextは作成後に変更されない。変更可能なのはFavoriteのみ。
type Idea struct {
	ID         string
	UserID     string
	Branch     string
	Difficulty string
	IdeaText   string
	CreatedAt  time.Time
	Favorite   bool
}

// DailyLimit はユーザーごと・日付ごとの無料生成回数を表す。
// Dateは UTC の YYYY-MM-DD 形式。
type DailyLimit struct {
	ID     string
	UserID string
	Date   string
	Count  int
}

// Usage は当日の利用状況を表す。
type Usage struct {
	DailyCount int
	DailyLimit int
	Premium    bool
}

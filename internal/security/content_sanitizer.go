package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力（プロフィールの自己紹介等）をプレーンテキストに正規化する。
type TextSanitizer interface {
	// Sanitize はHTMLタグを全て除去し、前後の空白を取り除いた上でmaxRunes文字に切り詰める。
	// script/styleの中身は除去される。maxRunesが0以下の場合は切り詰めない。
	Sanitize(raw string, maxRunes int) string
}

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
// Policyはスレッドセーフ。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はプレーンテキストを返す。
// StrictPolicyがエスケープした実体参照は元の文字に戻す（表示側でエスケープされる前提）。
func (s *textSanitizer) Sanitize(raw string, maxRunes int) string {
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.TrimSpace(text)

	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return text
}

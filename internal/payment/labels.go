package payment

import (
	"slices"

	"github.com/hitoshi/toolpunk/internal/model"
)

// LabelStrategy はプレミアム付与時のラベル更新方法。
// ゲートウェイごとに既存の挙動を保つため、マージと上書きを使い分ける。
type LabelStrategy int

const (
	// LabelMerge は既存ラベルを保持してpremiumを追加する。既に含まれていれば更新しない。
	LabelMerge LabelStrategy = iota
	// LabelOverwrite はラベル集合を["premium"]で置き換える。他のラベルは失われる。
	LabelOverwrite
)

// String はログ出力用の名前を返す。
func (s LabelStrategy) String() string {
	switch s {
	case LabelMerge:
		return "merge"
	case LabelOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// Apply は現在のラベルから更新後のラベルを計算する。
// changedがfalseの場合は書き込み不要。
func (s LabelStrategy) Apply(current []string) (next []string, changed bool) {
	switch s {
	case LabelOverwrite:
		return []string{model.LabelPremium}, true
	default:
		if model.HasLabel(current, model.LabelPremium) {
			return current, false
		}
		next = slices.Clone(current)
		return append(next, model.LabelPremium), true
	}
}

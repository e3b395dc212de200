package groq

import (
	"regexp"
	"strings"
)

const (
	// MaxIdeaLength はアイデアテキストの最大文字数（ルーン数）。
	MaxIdeaLength = 950
	ellipsis      = "..."
)

var (
	headingMarks = regexp.MustCompile(`#+`)
	inlineMarks  = strings.NewReplacer("`", "", "_", "")
)

// Sanitize はモデル出力からMarkdown記号を取り除き、長さを制限する。
// 950文字を超える場合は先頭947文字に"..."を付けて950文字にする。
func Sanitize(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "**", "")
	s = headingMarks.ReplaceAllString(s, "")
	s = inlineMarks.Replace(s)

	runes := []rune(s)
	if len(runes) > MaxIdeaLength {
		s = string(runes[:MaxIdeaLength-len(ellipsis)]) + ellipsis
	}
	return s
}

package appwrite

import "encoding/json"

// query はAppwriteのJSONクエリ表現。
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q query) String() string {
	// 文字列・数値のみを扱うためMarshalは失敗しない
	b, _ := json.Marshal(q)
	return string(b)
}

// QueryEqual は属性が値のいずれかに一致する条件を返す。
func QueryEqual(attribute string, values ...any) string {
	return query{Method: "equal", Attribute: attribute, Values: values}.String()
}

// QueryLessThan は属性が値より小さい条件を返す。
func QueryLessThan(attribute string, value any) string {
	return query{Method: "lessThan", Attribute: attribute, Values: []any{value}}.String()
}

// QueryOrderDesc は属性の降順ソートを返す。
func QueryOrderDesc(attribute string) string {
	return query{Method: "orderDesc", Attribute: attribute}.String()
}

// QueryLimit は取得件数の上限を返す。
func QueryLimit(n int) string {
	return query{Method: "limit", Values: []any{n}}.String()
}

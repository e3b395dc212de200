package handler

import (
	"net/http"

	"github.com/hitoshi/toolpunk/internal/middleware"
)

// rootMessage はルートパスが返す稼働確認メッセージ。
const rootMessage = "Toolpunk API is live!"

type healthResponse struct {
	Status string `json:"status"`
	Origin string `json:"origin"`
	Proxy  string `json:"proxy"`
}

// Root は稼働確認メッセージを返す。
// GET /
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

// Health はヘルスチェック結果を返す。
// originはリクエストのOriginヘッダー（なければ"none"）、proxyはプロキシ解決後のクライアントIP。
// GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "none"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "OK",
		Origin: origin,
		Proxy:  middleware.ClientIP(r),
	})
}

// NotFound は未定義のルートに {"error": "Not Found"} を返す。
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteLegacyError(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed は許可されていないメソッドに {"error": "Method Not Allowed"} を返す。
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteLegacyError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/toolpunk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TrustProxy        bool
	CORSAllowedOrigin string
	Authenticator     middleware.Authenticator
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// アイデア
	IdeaService IdeaServiceInterface

	// プロフィール
	ProfileService ProfileServiceInterface

	// 決済
	PaymentService PaymentServiceInterface
	FrontendURL    string

	// nilの場合は/metricsを公開しない
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP(TRUST_PROXY時) → Logging → Recovery → SecurityHeaders → CORS
//	  /auth/*        → CSRF (/auth/me のみ Session)
//	  決済ルート     → RateLimit(Payment)
//	  /api/ideas 等  → Session → RateLimit(General) → CSRF
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.Cookie.Secure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	ideaHandler := NewIdeaHandler(deps.IdeaService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	paymentHandler := NewPaymentHandler(deps.PaymentService, deps.FrontendURL)

	sessionMiddleware := middleware.NewSessionMiddleware(deps.Authenticator)
	csrfMiddleware := middleware.NewCSRFMiddleware(deps.AuthConfig.Cookie)

	// --- 認証不要のルート ---

	r.Get("/", Root)
	r.Get("/api/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(csrfMiddleware)

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.AuthConfig.Cookie))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/logout", authHandler.Logout)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.With(sessionMiddleware).Get("/me", authHandler.Me)
	})

	// 決済ルート（ゲートウェイからのリダイレクトを含むため未認証、クライアントIP単位で制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.PaymentMiddleware())

		r.Post("/api/create-order", paymentHandler.CreateOrder)
		r.Post("/api/verify-payment", paymentHandler.VerifyRazorpay)
		r.Get("/api/verify-payment", paymentHandler.VerifyInstamojo)
		r.Post("/api/instamojo-initiate", paymentHandler.InitiateInstamojo)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrfMiddleware)

		r.Route("/api/ideas", func(r chi.Router) {
			r.Get("/", ideaHandler.List)
			r.Post("/", ideaHandler.Save)
			r.Post("/generate", ideaHandler.Generate)
			r.Get("/usage", ideaHandler.Usage)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", ideaHandler.Delete)
				r.Put("/favorite", ideaHandler.SetFavorite)
				r.Get("/export", ideaHandler.Export)
			})
		})

		r.Route("/api/profile", func(r chi.Router) {
			r.Put("/", profileHandler.Update)
			r.Post("/avatar", profileHandler.UploadAvatar)
		})
	})

	return r
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/toolpunk/internal/appwrite"
	"github.com/hitoshi/toolpunk/internal/auth"
	"github.com/hitoshi/toolpunk/internal/config"
	"github.com/hitoshi/toolpunk/internal/database"
	"github.com/hitoshi/toolpunk/internal/groq"
	"github.com/hitoshi/toolpunk/internal/handler"
	"github.com/hitoshi/toolpunk/internal/idea"
	"github.com/hitoshi/toolpunk/internal/limit"
	"github.com/hitoshi/toolpunk/internal/logger"
	"github.com/hitoshi/toolpunk/internal/metrics"
	"github.com/hitoshi/toolpunk/internal/middleware"
	"github.com/hitoshi/toolpunk/internal/payment"
	"github.com/hitoshi/toolpunk/internal/repository"
	"github.com/hitoshi/toolpunk/internal/security"
	"github.com/hitoshi/toolpunk/internal/user"
	"github.com/hitoshi/toolpunk/internal/worker/cleanup"
)

// defaultHealthcheckPort はSERVER_PORT未設定時のヘルスチェック先ポート。
const defaultHealthcheckPort = "3000"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if !cmd.NeedsConfig() {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultHealthcheckPort
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("frontend_url", cfg.FrontendURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newAppwriteClient は設定からAppwriteクライアントを生成する。
func newAppwriteClient(cfg *config.Config, httpClient *http.Client) *appwrite.Client {
	return appwrite.NewClient(httpClient, slog.Default(),
		cfg.AppwriteEndpoint, cfg.AppwriteProjectID, cfg.AppwriteAPIKey)
}

// openLedger は処理済み決済台帳を開く。
// DATABASE_URLが設定されていればPostgreSQL（未適用マイグレーションも適用）、
// 未設定ならメモリ上の台帳を返す。返されるDBはnilの場合がある。
func openLedger(ctx context.Context, cfg *config.Config) (repository.PaymentLedger, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set, processed payments are kept in memory")
		return repository.NewMemoryPaymentLedger(), nil, nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return repository.NewPostgresPaymentLedger(db), db, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	baseClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	// 2. 外部サービスクライアントの初期化
	aw := newAppwriteClient(cfg, metrics.InstrumentClient("appwrite", baseClient, collector))
	groqClient := groq.NewClient(
		metrics.InstrumentClient("groq", baseClient, collector), slog.Default(),
		cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqEndpoint,
	)
	razorpay := payment.NewRazorpayClient(
		metrics.InstrumentClient("razorpay", baseClient, collector), slog.Default(),
		cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayEndpoint,
	)

	// nilインターフェースとして渡すため、型付きnilを避けて分岐する
	var instamojo payment.InstamojoGateway
	if cfg.InstamojoEnabled() {
		instamojo = payment.NewInstamojoClient(
			metrics.InstrumentClient("instamojo", baseClient, collector), slog.Default(),
			cfg.InstamojoAPIKey, cfg.InstamojoAuthToken, cfg.InstamojoEndpoint,
		)
	} else {
		slog.Warn("instamojo credentials are not set, instamojo payments are disabled")
	}

	var notifier payment.Notifier = payment.NopNotifier{}
	if cfg.SendGridAPIKey != "" {
		notifier = payment.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.MailFrom, cfg.FrontendURL, slog.Default())
	}

	// 3. リポジトリの初期化
	ctx := context.Background()
	ledger, db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ideaRepo := repository.NewAppwriteIdeaRepo(aw, cfg.AppwriteDatabaseID, cfg.ProjectCollectionID)
	limitRepo := repository.NewAppwriteLimitRepo(aw, cfg.AppwriteDatabaseID, cfg.LimitsCollectionID)

	// 4. ドメインサービスの初期化
	limitService := limit.NewService(limitRepo, slog.Default())
	ideaService := idea.NewService(ideaRepo, limitService, groqClient, collector, slog.Default())
	authService := auth.NewService(aw, slog.Default(), auth.ServiceConfig{
		FrontendURL:  cfg.FrontendURL,
		PublicAPIURL: cfg.PublicAPIURL,
	})
	userService := user.NewService(aw, aw, cfg.AvatarBucketID,
		security.NewSSRFGuard(), security.NewTextSanitizer(), slog.Default())
	paymentService := payment.NewService(aw, razorpay, instamojo, ledger, notifier, collector, slog.Default(),
		payment.ServiceConfig{
			RazorpayKeySecret: cfg.RazorpayKeySecret,
			InstamojoAmount:   cfg.InstamojoAmount,
			InstamojoPurpose:  cfg.InstamojoPurpose,
			PublicAPIURL:      cfg.PublicAPIURL,
		},
	)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitPayment))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TrustProxy:        cfg.TrustProxy,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Authenticator:     authService,
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			Cookie: middleware.CookieConfig{
				Secure: cfg.CookieSecure,
				Domain: cfg.CookieDomain,
			},
			SessionMaxAge: cfg.SessionMaxAge,
		},

		IdeaService:    ideaService,
		ProfileService: userService,
		PaymentService: paymentService,
		FrontendURL:    cfg.FrontendURL,

		MetricsHandler: metrics.Handler(reg),
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // アイデア生成の応答待ちを含む
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("instamojo_enabled", cfg.InstamojoEnabled()),
			slog.Bool("trust_proxy", cfg.TrustProxy),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を超過した日次カウンタのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	aw := newAppwriteClient(cfg, &http.Client{Timeout: cfg.HTTPClientTimeout})
	limitRepo := repository.NewAppwriteLimitRepo(aw, cfg.AppwriteDatabaseID, cfg.LimitsCollectionID)
	limitService := limit.NewService(limitRepo, slog.Default())

	cleanupJob := cleanup.NewCleanupJob(limitService, slog.Default())
	if cfg.LimitRetentionDays > 0 {
		cleanupJob.RetentionDays = cfg.LimitRetentionDays
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cleanupJob.RetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/api/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

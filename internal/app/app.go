// Package app はアプリケーションの起動モードごとのワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/technews/internal/article"
	"github.com/hitoshi/technews/internal/auth"
	"github.com/hitoshi/technews/internal/config"
	"github.com/hitoshi/technews/internal/database"
	"github.com/hitoshi/technews/internal/favorite"
	"github.com/hitoshi/technews/internal/handler"
	"github.com/hitoshi/technews/internal/ingest"
	"github.com/hitoshi/technews/internal/logger"
	"github.com/hitoshi/technews/internal/metrics"
	"github.com/hitoshi/technews/internal/middleware"
	"github.com/hitoshi/technews/internal/repository"
	"github.com/hitoshi/technews/internal/security"
	"github.com/hitoshi/technews/internal/source"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

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
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
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
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandIngest:
		return runIngestOnce(cfg, w)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、到達性を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// buildPipeline は取り込みパイプラインの依存関係をワイヤリングする。
func buildPipeline(db *sql.DB, cfg *config.Config, m ingest.MetricsRecorder) *ingest.Pipeline {
	sourceRepo := repository.NewPostgresSourceRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)

	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewSummarySanitizer()

	adapters := ingest.NewAdapterSet(
		ingest.NewRSSAdapter(ssrfGuard, sanitizer, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize),
		ingest.NewHackerNewsAdapter(slog.Default(), cfg.FetchTimeout, cfg.HNConcurrency, ""),
		ingest.NewDevtoAdapter(slog.Default(), cfg.FetchTimeout, ""),
	)

	orchestrator := ingest.NewOrchestrator(adapters, slog.Default())

	return ingest.NewPipeline(
		sourceRepo, articleRepo, orchestrator,
		m, slog.Default(), cfg.InsertBatchSize,
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// リポジトリの初期化
	sourceRepo := repository.NewPostgresSourceRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	readRepo := repository.NewPostgresReadArticleRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteSourceRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)

	// ドメインサービスの初期化
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(userRepo, tokenService)
	articleService := article.NewService(articleRepo, sourceRepo, readRepo)
	sourceService := source.NewService(sourceRepo)
	favoriteService := favorite.NewService(favoriteRepo, sourceRepo)

	// 取り込みパイプライン（cronトリガー用）とメトリクス
	m := metrics.New()
	pipeline := buildPipeline(db, cfg, m)

	// ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.RequestsPerMinute = cfg.RateLimitGeneral
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     tokenService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService:     authService,
		ArticleService:  articleService,
		SourceService:   sourceService,
		FavoriteService: favoriteService,
		IngestPipeline:  pipeline,

		CronSecret:     cfg.CronSecret,
		MetricsHandler: m.Handler(),
	})

	// HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は取り込みワーカーモードで起動する。
// DB接続を開き、取り込みスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	pipeline := buildPipeline(db, cfg, ingest.NoopMetrics())
	scheduler := ingest.NewScheduler(pipeline, slog.Default(), cfg.FetchInterval)

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
		slog.Duration("fetch_interval", cfg.FetchInterval),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runIngestOnce は取り込みを1回だけ実行し、サマリーを標準出力に書き出して終了する。
// 手動リカバリやcronコンテナからの利用を想定する。
func runIngestOnce(cfg *config.Config, w io.Writer) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline := buildPipeline(db, cfg, ingest.NoopMetrics())

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return json.NewEncoder(w).Encode(map[string]interface{}{
		"total_fetched":      summary.TotalFetched,
		"inserted":           summary.Inserted,
		"duplicates_skipped": summary.DuplicatesSkipped,
		"timestamp":          summary.Timestamp,
	})
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
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
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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

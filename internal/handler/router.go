package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/technews/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService     AuthServiceInterface
	ArticleService  ArticleServiceInterface
	SourceService   SourceServiceInterface
	FavoriteService FavoriteServiceInterface
	IngestPipeline  IngestPipelineInterface

	// 取り込みトリガーの認証シークレット。空の場合は認証なし
	CronSecret string

	// /metrics 用ハンドラ。nilの場合はルートを登録しない
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging
//
// 認証が必要なルートにはさらにAuth → RateLimitが積まれる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService)
	articleHandler := NewArticleHandler(deps.ArticleService)
	sourceHandler := NewSourceHandler(deps.SourceService)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	ingestHandler := NewIngestHandler(deps.IngestPipeline, deps.CronSecret)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// --- 認証不要のルート ---

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// /me のみ認証必須
			r.With(middleware.NewAuthMiddleware(deps.TokenVerifier)).
				Get("/me", authHandler.Me)
		})

		// 取り込みトリガー（CRON_SECRETによるBearer認証）
		r.Post("/cron/fetch-feeds", ingestHandler.TriggerFetch)

		// ソース一覧
		r.Get("/sources", sourceHandler.ListSources)

		// 記事一覧は匿名アクセス可。認証済みなら既読状態が付く
		r.With(middleware.NewOptionalAuthMiddleware(deps.TokenVerifier)).
			Get("/articles", articleHandler.ListArticles)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth → RateLimit
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
			r.Use(deps.RateLimiter.Middleware())

			r.Post("/articles/{articleID}/read", articleHandler.MarkRead)

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", favoriteHandler.ListFavorites)
				r.Put("/{sourceID}", favoriteHandler.AddFavorite)
				r.Delete("/{sourceID}", favoriteHandler.RemoveFavorite)
			})
		})
	})

	return r
}

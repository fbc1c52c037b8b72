package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/technews/internal/article"
	"github.com/hitoshi/technews/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// List はカーソルページネーションで記事一覧を返す。
	List(ctx context.Context, params article.ListParams) (*article.ListResult, error)
	// MarkRead は記事を既読として冪等に記録する。
	MarkRead(ctx context.Context, userID string, articleID int64) error
}

// ArticleHandler は記事APIのHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// --- レスポンス型 ---

// articleSourceResponse は記事に埋め込むソース情報のレスポンス。
type articleSourceResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	IconURL string `json:"icon_url,omitempty"`
}

// articleResponse は記事1件のレスポンス。
type articleResponse struct {
	ID          int64                  `json:"id"`
	Title       string                 `json:"title"`
	URL         string                 `json:"url"`
	Summary     string                 `json:"summary"`
	ImageURL    string                 `json:"image_url,omitempty"`
	Author      string                 `json:"author,omitempty"`
	Category    string                 `json:"category,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
	SourceID    string                 `json:"source_id"`
	Source      *articleSourceResponse `json:"source,omitempty"`
	IsRead      bool                   `json:"is_read"`
}

// articleListResponse は記事一覧のレスポンス。
// next_cursorは最終ページではnullになる。
type articleListResponse struct {
	Articles   []articleResponse `json:"articles"`
	NextCursor *int64            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

// ListArticles は記事一覧を取得する。
// GET /api/v1/articles?source=a,b&search=xxx&cursor=123&limit=20&sort=latest|oldest
//
// 認証は任意。認証済みの場合のみis_readにユーザーの既読状態が反映される。
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := article.ListParams{
		Search: query.Get("search"),
		Sort:   model.SortDirection(query.Get("sort")),
	}

	// カンマ区切りのソースIDフィルタ。空要素は無視する
	if raw := query.Get("source"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				params.SourceIDs = append(params.SourceIDs, id)
			}
		}
	}

	if raw := query.Get("cursor"); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidRequestError("cursorは正の整数で指定してください。"))
			return
		}
		params.Cursor = cursor
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidRequestError("limitは整数で指定してください。"))
			return
		}
		params.Limit = limit
	}

	// 匿名リクエストの場合userIDは空のまま
	if userID, err := userIDFromRequest(r); err == nil {
		params.UserID = userID
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := articleListResponse{
		Articles: make([]articleResponse, len(result.Articles)),
		HasMore:  result.HasMore,
	}
	if result.HasMore {
		cursor := result.NextCursor
		resp.NextCursor = &cursor
	}
	for i, a := range result.Articles {
		resp.Articles[i] = toArticleResponse(a)
	}

	writeJSON(w, http.StatusOK, resp)
}

// MarkRead は記事を既読として記録する。
// POST /api/v1/articles/{articleID}/read
func (h *ArticleHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	articleID, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil || articleID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("記事IDは正の整数で指定してください。"))
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, articleID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// toArticleResponse はドメインモデルをレスポンス型に変換する。
func toArticleResponse(a model.ArticleWithState) articleResponse {
	resp := articleResponse{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Summary:     a.Summary,
		ImageURL:    a.ImageURL,
		Author:      a.Author,
		Category:    a.Category,
		PublishedAt: a.PublishedAt,
		SourceID:    a.SourceID,
		IsRead:      a.IsRead,
	}
	if a.Source != nil {
		resp.Source = &articleSourceResponse{
			Name:    a.Source.Name,
			Kind:    string(a.Source.Kind),
			IconURL: a.Source.IconURL,
		}
	}
	return resp
}

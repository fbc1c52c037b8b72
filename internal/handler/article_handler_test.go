package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/technews/internal/article"
	"github.com/hitoshi/technews/internal/middleware"
	"github.com/hitoshi/technews/internal/model"
)

// --- モック定義 ---

// mockArticleService はArticleServiceInterfaceのモック実装。
type mockArticleService struct {
	listFn     func(ctx context.Context, params article.ListParams) (*article.ListResult, error)
	markReadFn func(ctx context.Context, userID string, articleID int64) error
}

func (m *mockArticleService) List(ctx context.Context, params article.ListParams) (*article.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return &article.ListResult{Articles: []model.ArticleWithState{}}, nil
}

func (m *mockArticleService) MarkRead(ctx context.Context, userID string, articleID int64) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, articleID)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- GET /api/v1/articles テスト ---

func TestArticleHandler_ListArticles_QueryParamsPassedToService(t *testing.T) {
	var captured article.ListParams
	svc := &mockArticleService{
		listFn: func(_ context.Context, params article.ListParams) (*article.ListResult, error) {
			captured = params
			return &article.ListResult{Articles: []model.ArticleWithState{}}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/articles?source=a,b&search=golang&cursor=500&limit=30&sort=oldest", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ListArticles(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(captured.SourceIDs) != 2 || captured.SourceIDs[0] != "a" || captured.SourceIDs[1] != "b" {
		t.Errorf("SourceIDs = %v", captured.SourceIDs)
	}
	if captured.Search != "golang" {
		t.Errorf("Search = %q", captured.Search)
	}
	if captured.Cursor != 500 {
		t.Errorf("Cursor = %d", captured.Cursor)
	}
	if captured.Limit != 30 {
		t.Errorf("Limit = %d", captured.Limit)
	}
	if captured.Sort != model.SortOldest {
		t.Errorf("Sort = %q", captured.Sort)
	}
	if captured.UserID != "user-1" {
		t.Errorf("UserID = %q", captured.UserID)
	}
}

func TestArticleHandler_ListArticles_AnonymousAllowed(t *testing.T) {
	var captured article.ListParams
	svc := &mockArticleService{
		listFn: func(_ context.Context, params article.ListParams) (*article.ListResult, error) {
			captured = params
			return &article.ListResult{Articles: []model.ArticleWithState{}}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	w := httptest.NewRecorder()

	h.ListArticles(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("匿名リクエストも200を返すこと: status = %d", w.Code)
	}
	if captured.UserID != "" {
		t.Errorf("匿名リクエストのUserIDは空であること: %q", captured.UserID)
	}
}

func TestArticleHandler_ListArticles_ResponseShape(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	svc := &mockArticleService{
		listFn: func(_ context.Context, _ article.ListParams) (*article.ListResult, error) {
			return &article.ListResult{
				Articles: []model.ArticleWithState{
					{
						Article: model.Article{
							ID: 42, Title: "Go記事", URL: "https://example.com/go",
							Summary: "summary", PublishedAt: now, SourceID: "blog",
						},
						Source: &model.ArticleSource{Name: "Blog", Kind: model.SourceKindRSS},
						IsRead: true,
					},
				},
				NextCursor: 42,
				HasMore:    true,
			}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	w := httptest.NewRecorder()
	h.ListArticles(w, req)

	var resp struct {
		Articles []struct {
			ID     int64 `json:"id"`
			IsRead bool  `json:"is_read"`
			Source *struct {
				Name string `json:"name"`
				Kind string `json:"kind"`
			} `json:"source"`
		} `json:"articles"`
		NextCursor *int64 `json:"next_cursor"`
		HasMore    bool   `json:"has_more"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Articles) != 1 || resp.Articles[0].ID != 42 || !resp.Articles[0].IsRead {
		t.Errorf("articles = %+v", resp.Articles)
	}
	if resp.Articles[0].Source == nil || resp.Articles[0].Source.Kind != "rss" {
		t.Errorf("source = %+v", resp.Articles[0].Source)
	}
	if resp.NextCursor == nil || *resp.NextCursor != 42 || !resp.HasMore {
		t.Errorf("next_cursor = %v, has_more = %v", resp.NextCursor, resp.HasMore)
	}
}

// 最終ページではnext_cursorがフィールドごと消えるのではなく明示的にnullになること。
func TestArticleHandler_ListArticles_LastPageNullCursor(t *testing.T) {
	svc := &mockArticleService{
		listFn: func(_ context.Context, _ article.ListParams) (*article.ListResult, error) {
			return &article.ListResult{
				Articles: []model.ArticleWithState{},
				HasMore:  false,
			}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	w := httptest.NewRecorder()
	h.ListArticles(w, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	cursor, ok := raw["next_cursor"]
	if !ok {
		t.Fatal("next_cursorフィールドが存在すること")
	}
	if string(cursor) != "null" {
		t.Errorf("next_cursor = %s, want null", cursor)
	}
}

func TestArticleHandler_ListArticles_InvalidCursor(t *testing.T) {
	h := NewArticleHandler(&mockArticleService{})

	for _, cursor := range []string{"abc", "-1", "1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/articles?cursor="+cursor, nil)
		w := httptest.NewRecorder()
		h.ListArticles(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("cursor=%q: status = %d, want 400", cursor, w.Code)
		}
	}
}

func TestArticleHandler_ListArticles_InvalidLimit(t *testing.T) {
	h := NewArticleHandler(&mockArticleService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles?limit=abc", nil)
	w := httptest.NewRecorder()
	h.ListArticles(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want INVALID_REQUEST", result["code"])
	}
}

// --- POST /api/v1/articles/{articleID}/read テスト ---

func TestArticleHandler_MarkRead_Success(t *testing.T) {
	var gotUserID string
	var gotArticleID int64
	svc := &mockArticleService{
		markReadFn: func(_ context.Context, userID string, articleID int64) error {
			gotUserID = userID
			gotArticleID = articleID
			return nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/42/read", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "articleID", "42")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUserID != "user-1" || gotArticleID != 42 {
		t.Errorf("userID = %q, articleID = %d", gotUserID, gotArticleID)
	}
}

func TestArticleHandler_MarkRead_Unauthenticated(t *testing.T) {
	h := NewArticleHandler(&mockArticleService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/42/read", nil)
	req = withChiURLParam(req, "articleID", "42")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestArticleHandler_MarkRead_InvalidArticleID(t *testing.T) {
	h := NewArticleHandler(&mockArticleService{})

	for _, id := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/"+id+"/read", nil)
		req = withUserID(req, "user-1")
		req = withChiURLParam(req, "articleID", id)
		w := httptest.NewRecorder()

		h.MarkRead(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("articleID=%q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestArticleHandler_MarkRead_NotFound(t *testing.T) {
	svc := &mockArticleService{
		markReadFn: func(_ context.Context, _ string, articleID int64) error {
			return model.NewArticleNotFoundError(articleID)
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/999/read", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "articleID", "999")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeArticleNotFound {
		t.Errorf("code = %q, want ARTICLE_NOT_FOUND", result["code"])
	}
}

func TestArticleHandler_MarkRead_InternalError(t *testing.T) {
	svc := &mockArticleService{
		markReadFn: func(_ context.Context, _ string, _ int64) error {
			return errors.New("db down")
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/1/read", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "articleID", "1")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	// 内部エラーの詳細はレスポンスに含めない
	result := parseAPIErrorResponse(t, w)
	if result["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", result["code"])
	}
}

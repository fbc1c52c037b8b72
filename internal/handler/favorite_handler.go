package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// Add はソースをお気に入りに冪等に追加する。
	Add(ctx context.Context, userID, sourceID string) error
	// Remove はソースをお気に入りから削除する。
	Remove(ctx context.Context, userID, sourceID string) error
	// ListSourceIDs はユーザーのお気に入りソースID一覧を返す。
	ListSourceIDs(ctx context.Context, userID string) ([]string, error)
}

// FavoriteHandler はお気に入りソースAPIのHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// favoriteListResponse はお気に入り一覧のレスポンス。
type favoriteListResponse struct {
	SourceIDs []string `json:"source_ids"`
}

// ListFavorites はお気に入りソースID一覧を取得する。
// GET /api/v1/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ids, err := h.service.ListSourceIDs(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, http.StatusOK, favoriteListResponse{SourceIDs: ids})
}

// AddFavorite はソースをお気に入りに追加する。
// PUT /api/v1/favorites/{sourceID}
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sourceID := chi.URLParam(r, "sourceID")
	if err := h.service.Add(r.Context(), userID, sourceID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RemoveFavorite はソースをお気に入りから削除する。
// DELETE /api/v1/favorites/{sourceID}
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sourceID := chi.URLParam(r, "sourceID")
	if err := h.service.Remove(r.Context(), userID, sourceID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

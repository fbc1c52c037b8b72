package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/technews/internal/source"
)

// SourceServiceInterface はソースハンドラーが必要とするサービスインターフェース。
type SourceServiceInterface interface {
	// ListActive はアクティブなソースを最新記事の公開日時付きで返す。
	ListActive(ctx context.Context) ([]source.SourceWithActivity, error)
}

// SourceHandler はソースAPIのHTTPハンドラー。
type SourceHandler struct {
	service SourceServiceInterface
}

// NewSourceHandler はSourceHandlerを生成する。
func NewSourceHandler(service SourceServiceInterface) *SourceHandler {
	return &SourceHandler{service: service}
}

// sourceResponse はソース1件のレスポンス。
type sourceResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Kind              string     `json:"kind"`
	Category          string     `json:"category,omitempty"`
	IconURL           string     `json:"icon_url,omitempty"`
	LatestPublishedAt *time.Time `json:"latest_published_at,omitempty"`
}

// sourceListResponse はソース一覧のレスポンス。
type sourceListResponse struct {
	Sources []sourceResponse `json:"sources"`
}

// ListSources はアクティブなソース一覧を取得する。
// GET /api/v1/sources
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := sourceListResponse{Sources: make([]sourceResponse, len(sources))}
	for i, s := range sources {
		resp.Sources[i] = sourceResponse{
			ID:                s.ID,
			Name:              s.Name,
			Kind:              string(s.Kind),
			Category:          s.Category,
			IconURL:           s.IconURL,
			LatestPublishedAt: s.LatestPublishedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

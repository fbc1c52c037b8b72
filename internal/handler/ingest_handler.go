package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

// IngestPipelineInterface は取り込みトリガーハンドラーが必要とするインターフェース。
type IngestPipelineInterface interface {
	// Run は取り込みを1回実行する。同時多重起動は1実行に集約される。
	Run(ctx context.Context) (*model.IngestSummary, error)
}

// IngestHandler は取り込みトリガーAPIのHTTPハンドラー。
// cronサービス等の外部スケジューラから呼び出されることを想定する。
type IngestHandler struct {
	pipeline   IngestPipelineInterface
	cronSecret string
}

// NewIngestHandler はIngestHandlerを生成する。
// cronSecretが空文字列の場合、認証チェックは行われない。
func NewIngestHandler(pipeline IngestPipelineInterface, cronSecret string) *IngestHandler {
	return &IngestHandler{
		pipeline:   pipeline,
		cronSecret: cronSecret,
	}
}

// ingestResponse は取り込み実行結果のレスポンス。
type ingestResponse struct {
	Success           bool      `json:"success"`
	Inserted          int       `json:"inserted"`
	TotalFetched      int       `json:"total_fetched"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	Timestamp         time.Time `json:"timestamp"`
}

// TriggerFetch はフィード取り込みを実行する。
// POST /api/v1/cron/fetch-feeds
//
// CRON_SECRETが設定されている場合、Authorization: Bearer <secret> が必須。
func (h *IngestHandler) TriggerFetch(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret != "" && !h.authorized(r) {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	summary, err := h.pipeline.Run(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:           true,
		Inserted:          summary.Inserted,
		TotalFetched:      summary.TotalFetched,
		DuplicatesSkipped: summary.DuplicatesSkipped,
		Timestamp:         summary.Timestamp,
	})
}

// authorized はBearerトークンをタイミング攻撃耐性のある比較で検証する。
func (h *IngestHandler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	token := strings.TrimSpace(parts[1])
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

// defaultDevtoEndpoint はdev.to記事一覧APIのURL。top=1で直近の人気記事を取得する。
const defaultDevtoEndpoint = "https://dev.to/api/articles?per_page=30&top=1"

// devtoArticle はdev.to articles APIのレスポンス要素。
type devtoArticle struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	CoverImage  string   `json:"cover_image"`
	SocialImage string   `json:"social_image"`
	PublishedAt string   `json:"published_at"`
	TagList     []string `json:"tag_list"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

// DevtoAdapter はdev.to公開APIから人気記事を取得するAdapter実装。
type DevtoAdapter struct {
	client   *http.Client
	logger   *slog.Logger
	endpoint string
}

// NewDevtoAdapter はDevtoAdapterの新しいインスタンスを生成する。
// endpointが空文字列の場合は本番APIを使用する。
func NewDevtoAdapter(logger *slog.Logger, timeout time.Duration, endpoint string) *DevtoAdapter {
	if endpoint == "" {
		endpoint = defaultDevtoEndpoint
	}
	return &DevtoAdapter{
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		endpoint: endpoint,
	}
}

// Fetch は人気記事一覧を取得し、正規化済み記事のスライスを返す。
// あらゆる失敗は内部で回復し、空スライスを返す。
func (a *DevtoAdapter) Fetch(ctx context.Context, source *model.Source) []model.NewArticle {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
	if err != nil {
		a.logger.Error("リクエストの作成に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("dev.to APIリクエストに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("dev.to APIが異常なステータスを返しました",
			slog.String("source_id", source.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil
	}

	var items []devtoArticle
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		a.logger.Error("dev.to APIレスポンスのデコードに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	articles := make([]model.NewArticle, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		articles = append(articles, a.convertArticle(&item, source))
	}

	return articles
}

// convertArticle はdev.toの記事を正規化済み記事に変換する。
func (a *DevtoAdapter) convertArticle(item *devtoArticle, source *model.Source) model.NewArticle {
	title := item.Title
	if title == "" {
		title = untitledPlaceholder
	}

	summary := truncateRunes(item.Description, maxSummaryLength)
	if summary == "" {
		summary = noSummaryPlaceholder
	}

	imageURL := item.CoverImage
	if imageURL == "" {
		imageURL = item.SocialImage
	}

	// カテゴリは先頭タグを優先し、なければソース設定値を使う
	category := source.Category
	if len(item.TagList) > 0 && item.TagList[0] != "" {
		category = item.TagList[0]
	}

	publishedAt := time.Now()
	if item.PublishedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			publishedAt = parsed
		} else {
			a.logger.Warn(fmt.Sprintf("公開日時のパースに失敗しました: %s", item.PublishedAt),
				slog.String("source_id", source.ID),
			)
		}
	}

	return model.NewArticle{
		Title:       title,
		URL:         item.URL,
		Summary:     summary,
		ImageURL:    imageURL,
		Author:      item.User.Name,
		Category:    category,
		PublishedAt: publishedAt,
		SourceID:    source.ID,
	}
}

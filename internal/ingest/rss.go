package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/security"
)

const (
	// maxEntriesPerFeed は1ソース1回あたりの最大取り込み件数。
	maxEntriesPerFeed = 30
	// maxSummaryLength はサマリーの最大文字数（rune単位）。
	maxSummaryLength = 300
	// noSummaryPlaceholder はサマリーが抽出できなかった場合の代替テキスト。
	noSummaryPlaceholder = "no summary"
	// untitledPlaceholder はタイトルが欠落したエントリの代替タイトル。
	untitledPlaceholder = "Untitled"
)

// RSSAdapter はRSS/AtomフィードをフェッチするAdapter実装。
// SSRF検証付きHTTPクライアントでフィードを取得し、gofeedでパースする。
type RSSAdapter struct {
	ssrfGuard   security.SSRFGuardService
	sanitizer   security.SummarySanitizerService
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewRSSAdapter はRSSAdapterの新しいインスタンスを生成する。
func NewRSSAdapter(
	ssrfGuard security.SSRFGuardService,
	sanitizer security.SummarySanitizerService,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *RSSAdapter {
	return &RSSAdapter{
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch はフィードをフェッチし、正規化済み記事のスライスを返す。
// あらゆる失敗は内部で回復し、空スライスを返す。
func (a *RSSAdapter) Fetch(ctx context.Context, source *model.Source) []model.NewArticle {
	if err := a.ssrfGuard.ValidateURL(source.FeedURL); err != nil {
		a.logger.Error("フィードURLのSSRF検証に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("feed_url", source.FeedURL),
			slog.String("error", err.Error()),
		)
		return nil
	}

	client := a.ssrfGuard.NewSafeClient(a.timeout, a.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.FeedURL, nil)
	if err != nil {
		a.logger.Error("リクエストの作成に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	req.Header.Set("User-Agent", "TechNews/1.0 Feed Aggregator")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		a.logger.Error("フィードのフェッチに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("feed_url", source.FeedURL),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("フィードが異常なステータスを返しました",
			slog.String("source_id", source.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBodySize))
	if err != nil {
		a.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		a.logger.Error("フィードのパースに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("feed_url", source.FeedURL),
			slog.String("error", err.Error()),
		)
		return nil
	}

	items := parsed.Items
	if len(items) > maxEntriesPerFeed {
		items = items[:maxEntriesPerFeed]
	}

	articles := make([]model.NewArticle, 0, len(items))
	for _, item := range items {
		if item == nil || item.Link == "" {
			// リンクのないエントリは重複排除キーを持てないため破棄する
			continue
		}
		articles = append(articles, a.convertItem(item, source))
	}

	return articles
}

// convertItem はgofeedのエントリを正規化済み記事に変換する。
func (a *RSSAdapter) convertItem(item *gofeed.Item, source *model.Source) model.NewArticle {
	article := model.NewArticle{
		Title:    item.Title,
		URL:      item.Link,
		Category: source.Category,
		SourceID: source.ID,
	}
	if article.Title == "" {
		article.Title = untitledPlaceholder
	}

	// サマリー: description優先、なければcontent。タグ除去の上300文字に切り詰める
	rawSummary := item.Description
	if rawSummary == "" {
		rawSummary = item.Content
	}
	summary := truncateRunes(a.sanitizer.Strip(rawSummary), maxSummaryLength)
	if summary == "" {
		summary = noSummaryPlaceholder
	}
	article.Summary = summary

	// 画像: コンテンツHTML内の最初のimgタグ、なければenclosureのURL
	contentHTML := item.Content
	if contentHTML == "" {
		contentHTML = item.Description
	}
	article.ImageURL = extractFirstImageURL(contentHTML)
	if article.ImageURL == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" {
				article.ImageURL = enc.URL
				break
			}
		}
	}

	// 公開日時: パース済みの日付がなければ取り込み時刻を使用する
	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = *item.UpdatedParsed
	} else {
		article.PublishedAt = time.Now()
	}

	// 著者
	if item.Author != nil && item.Author.Name != "" {
		article.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		article.Author = item.Authors[0].Name
	}

	return article
}

// extractFirstImageURL はHTML断片をタグ走査し、最初のimgタグのsrc属性を返す。
// imgタグが見つからない場合は空文字列を返す。
func extractFirstImageURL(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(bytes.NewReader([]byte(htmlContent)))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val
				}
			}
		}
	}
}

// truncateRunes は文字列をrune単位で最大n文字に切り詰める。
func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

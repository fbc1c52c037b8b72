package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

// defaultHackerNewsEndpoint はHacker News Firebase APIのベースURL。
const defaultHackerNewsEndpoint = "https://hacker-news.firebaseio.com/v0"

// maxHackerNewsStories は1回の取り込みで処理するトップストーリーの最大数。
const maxHackerNewsStories = 30

// hackerNewsStory はHacker News item APIのレスポンス。
type hackerNewsStory struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

// HackerNewsAdapter はHacker News Firebase APIからトップストーリーを取得するAdapter実装。
// ストーリー詳細はセマフォで並行数を制限しつつ並列に取得する。
type HackerNewsAdapter struct {
	client      *http.Client
	logger      *slog.Logger
	endpoint    string
	concurrency int
}

// NewHackerNewsAdapter はHackerNewsAdapterの新しいインスタンスを生成する。
// endpointが空文字列の場合は本番APIを使用する。
func NewHackerNewsAdapter(logger *slog.Logger, timeout time.Duration, concurrency int, endpoint string) *HackerNewsAdapter {
	if endpoint == "" {
		endpoint = defaultHackerNewsEndpoint
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &HackerNewsAdapter{
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		endpoint:    endpoint,
		concurrency: concurrency,
	}
}

// Fetch はトップストーリーを取得し、正規化済み記事のスライスを返す。
// ID一覧の取得失敗は空スライス、個別ストーリーの失敗はそのストーリーのみ欠落となる。
func (a *HackerNewsAdapter) Fetch(ctx context.Context, source *model.Source) []model.NewArticle {
	ids, err := a.fetchTopStoryIDs(ctx)
	if err != nil {
		a.logger.Error("トップストーリーID一覧の取得に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(ids) > maxHackerNewsStories {
		ids = ids[:maxHackerNewsStories]
	}

	// インデックス固定のスロットに書き込み、ランキング順を保つ
	stories := make([]*hackerNewsStory, len(ids))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			story, err := a.fetchStory(ctx, id)
			if err != nil {
				a.logger.Warn("ストーリーの取得に失敗しました",
					slog.Int64("story_id", id),
					slog.String("error", err.Error()),
				)
				return
			}
			stories[i] = story
		}(i, id)
	}
	wg.Wait()

	articles := make([]model.NewArticle, 0, len(stories))
	for _, story := range stories {
		if story == nil || story.Title == "" {
			continue
		}
		articles = append(articles, a.convertStory(story, source))
	}

	return articles
}

// fetchTopStoryIDs はtopstories APIからストーリーID一覧を取得する。
func (a *HackerNewsAdapter) fetchTopStoryIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := a.getJSON(ctx, a.endpoint+"/topstories.json", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// fetchStory は個別ストーリーの詳細を取得する。
func (a *HackerNewsAdapter) fetchStory(ctx context.Context, id int64) (*hackerNewsStory, error) {
	var story hackerNewsStory
	if err := a.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", a.endpoint, id), &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// getJSON はGETリクエストを発行し、レスポンスボディをJSONとしてデコードする。
func (a *HackerNewsAdapter) getJSON(ctx context.Context, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("APIリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("APIが異常なステータスを返しました: status=%d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return nil
}

// convertStory はストーリーを正規化済み記事に変換する。
func (a *HackerNewsAdapter) convertStory(story *hackerNewsStory, source *model.Source) model.NewArticle {
	// Ask HN等の外部URLを持たないストーリーはコメントページのURLを使う
	url := story.URL
	if url == "" {
		url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
	}

	publishedAt := time.Now()
	if story.Time > 0 {
		publishedAt = time.Unix(story.Time, 0)
	}

	return model.NewArticle{
		Title:       story.Title,
		URL:         url,
		Summary:     fmt.Sprintf("Score: %d | Comments: %d", story.Score, story.Descendants),
		Author:      story.By,
		Category:    source.Category,
		PublishedAt: publishedAt,
		SourceID:    source.ID,
	}
}

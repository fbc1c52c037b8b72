package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

func devtoSource() *model.Source {
	return &model.Source{
		ID:       "devto",
		Name:     "DEV Community",
		Kind:     model.SourceKindDevto,
		Category: "community",
		IsActive: true,
	}
}

func newTestDevtoAdapter(endpoint string) *DevtoAdapter {
	var buf bytes.Buffer
	return NewDevtoAdapter(newTestLogger(&buf), 5*time.Second, endpoint)
}

func TestDevtoAdapter_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
  {
    "title": "Understanding Go Channels",
    "url": "https://dev.to/alice/understanding-go-channels",
    "description": "A deep dive into channels",
    "cover_image": "https://dev.to/cover1.png",
    "social_image": "https://dev.to/social1.png",
    "published_at": "2025-01-15T10:30:00Z",
    "tag_list": ["go", "concurrency"],
    "user": {"name": "Alice"}
  },
  {
    "title": "CSS Tricks",
    "url": "https://dev.to/bob/css-tricks",
    "description": "",
    "cover_image": "",
    "social_image": "https://dev.to/social2.png",
    "published_at": "2025-01-14T08:00:00Z",
    "tag_list": [],
    "user": {"name": "Bob"}
  }
]`)
	}))
	defer server.Close()

	adapter := newTestDevtoAdapter(server.URL)
	articles := adapter.Fetch(context.Background(), devtoSource())

	if len(articles) != 2 {
		t.Fatalf("articles = %d件, want 2件", len(articles))
	}

	first := articles[0]
	if first.Title != "Understanding Go Channels" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Summary != "A deep dive into channels" {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.ImageURL != "https://dev.to/cover1.png" {
		t.Errorf("ImageURL = %q, want cover_image優先", first.ImageURL)
	}
	if first.Category != "go" {
		t.Errorf("Category = %q, want 先頭タグ", first.Category)
	}
	if first.Author != "Alice" {
		t.Errorf("Author = %q", first.Author)
	}
	want := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", first.PublishedAt, want)
	}

	second := articles[1]
	if second.ImageURL != "https://dev.to/social2.png" {
		t.Errorf("ImageURL = %q, want social_imageフォールバック", second.ImageURL)
	}
	if second.Summary != "no summary" {
		t.Errorf("Summary = %q, want %q", second.Summary, "no summary")
	}
	if second.Category != "community" {
		t.Errorf("Category = %q, want タグなしの場合はソース設定値", second.Category)
	}
}

func TestDevtoAdapter_Fetch_SkipsEmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
  {"title": "no url", "url": "", "user": {"name": "x"}},
  {"title": "has url", "url": "https://dev.to/ok", "user": {"name": "y"}}
]`)
	}))
	defer server.Close()

	adapter := newTestDevtoAdapter(server.URL)
	articles := adapter.Fetch(context.Background(), devtoSource())

	if len(articles) != 1 {
		t.Fatalf("URLのない記事は除外されること: got %d件", len(articles))
	}
	if articles[0].URL != "https://dev.to/ok" {
		t.Errorf("URL = %q", articles[0].URL)
	}
}

func TestDevtoAdapter_Fetch_APIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := newTestDevtoAdapter(server.URL)
	articles := adapter.Fetch(context.Background(), devtoSource())

	if len(articles) != 0 {
		t.Errorf("API障害時は空スライスを返すこと: got %d件", len(articles))
	}
}

func TestDevtoAdapter_Fetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not": "an array"}`)
	}))
	defer server.Close()

	adapter := newTestDevtoAdapter(server.URL)
	articles := adapter.Fetch(context.Background(), devtoSource())

	if len(articles) != 0 {
		t.Errorf("デコード失敗時は空スライスを返すこと: got %d件", len(articles))
	}
}

// Package model はドメインモデルを定義する。
package model

// SourceKind はソースの取得方式を表す。
type SourceKind string

const (
	// SourceKindRSS はRSS/Atomフィードから取得するソース。
	SourceKindRSS SourceKind = "rss"
	// SourceKindHackerNews はHacker News APIから取得するソース。
	SourceKindHackerNews SourceKind = "hackernews"
	// SourceKindDevto はdev.to APIから取得するソース。
	SourceKindDevto SourceKind = "devto"
)

// Source は記事の取得元を表す。
// 運用側でシードされ、取り込みパイプラインからは読み取り専用として扱う。
type Source struct {
	ID       string
	Name     string
	Kind     SourceKind
	Category string
	FeedURL  string // kind=rss の場合のみ設定される
	IconURL  string
	IsActive bool
}

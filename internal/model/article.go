// Package model はドメインモデルを定義する。
package model

import "time"

// Article は正規化・重複排除済みの記事を表す。
// IDは単調増加するサロゲートキーで、ページネーションのカーソルとして使用される。
type Article struct {
	ID          int64
	Title       string
	URL         string // 重複排除キー。記事コレクション全体で一意
	Summary     string
	ImageURL    string
	Author      string
	Category    string
	PublishedAt time.Time
	SourceID    string
}

// NewArticle はアダプタが生成する保存前の記事データを表す。IDは未採番。
type NewArticle struct {
	Title       string
	URL         string
	Summary     string
	ImageURL    string
	Author      string
	Category    string
	PublishedAt time.Time
	SourceID    string
}

// ArticleSource は記事一覧レスポンスに埋め込むソースのサマリー情報。
type ArticleSource struct {
	Name    string
	Kind    SourceKind
	IconURL string
}

// ArticleWithState は記事とソース情報、リクエストユーザーの既読状態を結合したモデル。
type ArticleWithState struct {
	Article
	Source *ArticleSource
	IsRead bool
}

// SortDirection は記事一覧のソート方向を表す。
type SortDirection string

const (
	// SortLatest は公開日時の降順（新しい順）。
	SortLatest SortDirection = "latest"
	// SortOldest は公開日時の昇順（古い順）。
	SortOldest SortDirection = "oldest"
)

// IngestSummary は取り込み実行1回分の結果サマリー。
// Insertedはバッチ挿入に成功した行数のみを反映する。挿入に失敗したバッチの行は
// TotalFetchedには含まれるがInsertedにもDuplicatesSkippedにも含まれない。
type IngestSummary struct {
	TotalFetched      int
	Inserted          int
	DuplicatesSkipped int
	Timestamp         time.Time
}

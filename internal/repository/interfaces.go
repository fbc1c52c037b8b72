// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

// SourceRepository はソースデータの永続化インターフェース。
// ソースは運用側でシードされるため、取り込みパイプラインからは読み取り専用。
type SourceRepository interface {
	// ListActive はis_active=trueのソースを全件取得する。
	ListActive(ctx context.Context) ([]*model.Source, error)

	// ListByIDs は指定IDのソースを取得する。見つからないIDは結果に含まれない。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Source, error)

	// LatestPublishedAt はソースごとの最新記事公開日時を返す。
	// 記事を持たないソースはマップに含まれない。
	LatestPublishedAt(ctx context.Context) (map[string]time.Time, error)
}

// ArticleQuery は記事一覧クエリの条件を表す。
type ArticleQuery struct {
	SourceIDs []string // 空の場合は全ソース
	Search    string   // タイトルまたはサマリーの部分一致（大文字小文字を区別しない）
	Cursor    int64    // 0の場合は先頭ページ
	Limit     int      // 呼び出し側でlimit+1を指定してhas_moreを判定する
	Sort      model.SortDirection
}

// ArticleRepository は記事データの永続化インターフェース。
// 記事は取り込みパイプラインによってのみ作成され、更新・削除されることはない。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Article, error)

	// ExistingURLs は指定URL群のうち、既に記事として保存されているURLの集合を返す。
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)

	// BulkInsert は記事を1クエリで一括挿入する。呼び出し側がバッチサイズを制御する。
	BulkInsert(ctx context.Context, articles []model.NewArticle) error

	// List は条件に一致する記事を(published_at, id)の複合順で取得する。
	// latestは両キー降順、oldestは両キー昇順。idの第2キーは
	// published_atが衝突した場合のページネーション安定性のために必須。
	List(ctx context.Context, q ArticleQuery) ([]model.Article, error)
}

// ReadArticleRepository はユーザーごとの既読記録の永続化インターフェース。
type ReadArticleRepository interface {
	// MarkRead は既読記録を冪等にUPSERTする。2回呼んでも効果は1回と同じ。
	MarkRead(ctx context.Context, userID string, articleID int64) error

	// ReadArticleIDs は指定記事ID群のうち、指定ユーザーが既読のものの集合を返す。
	ReadArticleIDs(ctx context.Context, userID string, articleIDs []int64) (map[int64]struct{}, error)
}

// FavoriteSourceRepository はユーザーのお気に入りソースの永続化インターフェース。
type FavoriteSourceRepository interface {
	// Create はお気に入りを冪等に作成する。
	Create(ctx context.Context, userID, sourceID string) error

	// Delete はお気に入りを削除する。存在しない場合もエラーとしない。
	Delete(ctx context.Context, userID, sourceID string) error

	// ListSourceIDs はユーザーのお気に入りソースID一覧を返す。
	ListSourceIDs(ctx context.Context, userID string) ([]string, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

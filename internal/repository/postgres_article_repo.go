package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/technews/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	article := &model.Article{}
	var summary, imageURL, author, category sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, url, summary, image_url, author, category, published_at, source_id
		 FROM articles WHERE id = $1`,
		id,
	).Scan(
		&article.ID, &article.Title, &article.URL, &summary,
		&imageURL, &author, &category, &article.PublishedAt, &article.SourceID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	article.Summary = nullStringValue(summary)
	article.ImageURL = nullStringValue(imageURL)
	article.Author = nullStringValue(author)
	article.Category = nullStringValue(category)

	return article, nil
}

// ExistingURLs は指定URL群のうち、既に記事として保存されているURLの集合を返す。
func (r *PostgresArticleRepo) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(urls) == 0 {
		return existing, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT url FROM articles WHERE url = ANY($1)`,
		pq.Array(urls),
	)
	if err != nil {
		return nil, fmt.Errorf("既存URLの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("既存URL行の読み取りに失敗しました: %w", err)
		}
		existing[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("既存URLの走査に失敗しました: %w", err)
	}

	return existing, nil
}

// BulkInsert は記事を1クエリで一括挿入する。
// プレースホルダを組み立てたマルチロウINSERTを使用する。
func (r *PostgresArticleRepo) BulkInsert(ctx context.Context, articles []model.NewArticle) error {
	if len(articles) == 0 {
		return nil
	}

	const cols = 8
	placeholders := make([]string, 0, len(articles))
	args := make([]interface{}, 0, len(articles)*cols)

	for i, a := range articles {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			a.Title, a.URL, nullString(a.Summary), nullString(a.ImageURL),
			nullString(a.Author), nullString(a.Category), a.PublishedAt, a.SourceID,
		)
	}

	query := `INSERT INTO articles (title, url, summary, image_url, author, category, published_at, source_id) VALUES ` +
		strings.Join(placeholders, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("記事の一括挿入に失敗しました: %w", err)
	}
	return nil
}

// List は条件に一致する記事を(published_at, id)の複合順で取得する。
func (r *PostgresArticleRepo) List(ctx context.Context, q ArticleQuery) ([]model.Article, error) {
	query, args := buildArticleListQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var summary, imageURL, author, category sql.NullString
		if err := rows.Scan(
			&a.ID, &a.Title, &a.URL, &summary,
			&imageURL, &author, &category, &a.PublishedAt, &a.SourceID,
		); err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		a.Summary = nullStringValue(summary)
		a.ImageURL = nullStringValue(imageURL)
		a.Author = nullStringValue(author)
		a.Category = nullStringValue(category)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}

	return articles, nil
}

// buildArticleListQuery は記事一覧クエリのSQLと引数を組み立てる。
// カーソル条件: latestはid < cursor、oldestはid > cursor。
// ソート順: latestは(published_at, id)両キー降順、oldestは両キー昇順。
func buildArticleListQuery(q ArticleQuery) (string, []interface{}) {
	query := `SELECT id, title, url, summary, image_url, author, category, published_at, source_id
		 FROM articles WHERE 1=1`

	var args []interface{}
	argIndex := 1

	if len(q.SourceIDs) > 0 {
		query += fmt.Sprintf(" AND source_id = ANY($%d)", argIndex)
		args = append(args, pq.Array(q.SourceIDs))
		argIndex++
	}

	if q.Search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR summary ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+escapeLike(q.Search)+"%")
		argIndex++
	}

	if q.Cursor > 0 {
		if q.Sort == model.SortOldest {
			query += fmt.Sprintf(" AND id > $%d", argIndex)
		} else {
			query += fmt.Sprintf(" AND id < $%d", argIndex)
		}
		args = append(args, q.Cursor)
		argIndex++
	}

	if q.Sort == model.SortOldest {
		query += " ORDER BY published_at ASC, id ASC"
	} else {
		query += " ORDER BY published_at DESC, id DESC"
	}

	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, q.Limit)

	return query, args
}

// escapeLike はILIKEパターン内のワイルドカード文字をエスケープする。
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresReadArticleRepo はPostgreSQLを使用した既読記録リポジトリ。
type PostgresReadArticleRepo struct {
	db *sql.DB
}

// NewPostgresReadArticleRepo はPostgresReadArticleRepoを生成する。
func NewPostgresReadArticleRepo(db *sql.DB) *PostgresReadArticleRepo {
	return &PostgresReadArticleRepo{db: db}
}

// MarkRead は既読記録を冪等にUPSERTする。
// (user_id, article_id)の複合主キーに対するON CONFLICT DO NOTHINGで冪等性を保証する。
func (r *PostgresReadArticleRepo) MarkRead(ctx context.Context, userID string, articleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO read_articles (user_id, article_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, article_id) DO NOTHING`,
		userID, articleID,
	)
	if err != nil {
		return fmt.Errorf("既読記録の作成に失敗しました: %w", err)
	}
	return nil
}

// ReadArticleIDs は指定記事ID群のうち、指定ユーザーが既読のものの集合を返す。
func (r *PostgresReadArticleRepo) ReadArticleIDs(ctx context.Context, userID string, articleIDs []int64) (map[int64]struct{}, error) {
	readSet := make(map[int64]struct{})
	if len(articleIDs) == 0 {
		return readSet, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT article_id FROM read_articles
		 WHERE user_id = $1 AND article_id = ANY($2)`,
		userID, pq.Array(articleIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("既読記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("既読記録行の読み取りに失敗しました: %w", err)
		}
		readSet[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("既読記録の走査に失敗しました: %w", err)
	}

	return readSet, nil
}

// compile-time interface check
var _ ReadArticleRepository = (*PostgresReadArticleRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresFavoriteSourceRepo はPostgreSQLを使用したお気に入りソースリポジトリ。
type PostgresFavoriteSourceRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteSourceRepo はPostgresFavoriteSourceRepoを生成する。
func NewPostgresFavoriteSourceRepo(db *sql.DB) *PostgresFavoriteSourceRepo {
	return &PostgresFavoriteSourceRepo{db: db}
}

// Create はお気に入りを冪等に作成する。
func (r *PostgresFavoriteSourceRepo) Create(ctx context.Context, userID, sourceID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorite_sources (user_id, source_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, source_id) DO NOTHING`,
		userID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はお気に入りを削除する。存在しない場合もエラーとしない。
func (r *PostgresFavoriteSourceRepo) Delete(ctx context.Context, userID, sourceID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_sources WHERE user_id = $1 AND source_id = $2`,
		userID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// ListSourceIDs はユーザーのお気に入りソースID一覧を返す。
func (r *PostgresFavoriteSourceRepo) ListSourceIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_id FROM favorite_sources WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ FavoriteSourceRepository = (*PostgresFavoriteSourceRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/technews/internal/model"
)

// PostgresSourceRepo はPostgreSQLを使用したソースリポジトリ。
type PostgresSourceRepo struct {
	db *sql.DB
}

// NewPostgresSourceRepo はPostgresSourceRepoを生成する。
func NewPostgresSourceRepo(db *sql.DB) *PostgresSourceRepo {
	return &PostgresSourceRepo{db: db}
}

// ListActive はis_active=trueのソースを全件取得する。
func (r *PostgresSourceRepo) ListActive(ctx context.Context) ([]*model.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, category, feed_url, icon_url, is_active
		 FROM sources WHERE is_active = TRUE ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティブソースの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// ListByIDs は指定IDのソースを取得する。見つからないIDは結果に含まれない。
func (r *PostgresSourceRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Source, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, category, feed_url, icon_url, is_active
		 FROM sources WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// LatestPublishedAt はソースごとの最新記事公開日時を返す。
func (r *PostgresSourceRepo) LatestPublishedAt(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_id, MAX(published_at) FROM articles GROUP BY source_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("最新公開日時の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var sourceID string
		var latest time.Time
		if err := rows.Scan(&sourceID, &latest); err != nil {
			return nil, fmt.Errorf("最新公開日時の行読み取りに失敗しました: %w", err)
		}
		result[sourceID] = latest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("最新公開日時の走査に失敗しました: %w", err)
	}

	return result, nil
}

// scanSources はソース行をスキャンしてモデルに変換する。
func scanSources(rows *sql.Rows) ([]*model.Source, error) {
	var sources []*model.Source
	for rows.Next() {
		src := &model.Source{}
		var feedURL, iconURL sql.NullString
		if err := rows.Scan(
			&src.ID, &src.Name, &src.Kind, &src.Category,
			&feedURL, &iconURL, &src.IsActive,
		); err != nil {
			return nil, fmt.Errorf("ソース行の読み取りに失敗しました: %w", err)
		}
		src.FeedURL = nullStringValue(feedURL)
		src.IconURL = nullStringValue(iconURL)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ソース一覧の走査に失敗しました: %w", err)
	}
	return sources, nil
}

// compile-time interface check
var _ SourceRepository = (*PostgresSourceRepo)(nil)

// Package article は記事一覧の取得と既読管理のサービスを提供する。
package article

import (
	"context"
	"fmt"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListParams は記事一覧リクエストのパラメータ。
type ListParams struct {
	SourceIDs []string
	Search    string
	Cursor    int64
	Limit     int
	Sort      model.SortDirection
	UserID    string // 匿名リクエストの場合は空文字列
}

// ListResult は記事一覧のページ。
type ListResult struct {
	Articles   []model.ArticleWithState
	NextCursor int64 // 次ページが存在しない場合は0
	HasMore    bool
}

// Service は記事一覧の取得と既読記録を担う。
type Service struct {
	articleRepo repository.ArticleRepository
	sourceRepo  repository.SourceRepository
	readRepo    repository.ReadArticleRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	sourceRepo repository.SourceRepository,
	readRepo repository.ReadArticleRepository,
) *Service {
	return &Service{
		articleRepo: articleRepo,
		sourceRepo:  sourceRepo,
		readRepo:    readRepo,
	}
}

// List はカーソルページネーションで記事一覧を取得する。
// limitは[1, 100]にクランプされ、0以下の場合は既定値20を使う。
// 不正なソート指定はlatestとして扱う。
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	sort := params.Sort
	if sort != model.SortOldest {
		sort = model.SortLatest
	}

	// limit+1件取得してhas_moreを判定する
	rows, err := s.articleRepo.List(ctx, repository.ArticleQuery{
		SourceIDs: params.SourceIDs,
		Search:    params.Search,
		Cursor:    params.Cursor,
		Limit:     limit + 1,
		Sort:      sort,
	})
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	result := &ListResult{HasMore: hasMore}
	if len(rows) == 0 {
		result.Articles = []model.ArticleWithState{}
		return result, nil
	}
	if hasMore {
		result.NextCursor = rows[len(rows)-1].ID
	}

	sourceByID, err := s.loadSources(ctx, rows)
	if err != nil {
		return nil, err
	}

	readSet := map[int64]struct{}{}
	if params.UserID != "" {
		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		readSet, err = s.readRepo.ReadArticleIDs(ctx, params.UserID, ids)
		if err != nil {
			return nil, fmt.Errorf("既読状態の取得に失敗しました: %w", err)
		}
	}

	result.Articles = make([]model.ArticleWithState, len(rows))
	for i, row := range rows {
		_, isRead := readSet[row.ID]
		result.Articles[i] = model.ArticleWithState{
			Article: row,
			Source:  sourceByID[row.SourceID],
			IsRead:  isRead,
		}
	}

	return result, nil
}

// loadSources はページ内記事のソース情報を1クエリでまとめて取得する。
func (s *Service) loadSources(ctx context.Context, rows []model.Article) (map[string]*model.ArticleSource, error) {
	idSet := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := idSet[row.SourceID]; ok {
			continue
		}
		idSet[row.SourceID] = struct{}{}
		ids = append(ids, row.SourceID)
	}

	sources, err := s.sourceRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ソース情報の取得に失敗しました: %w", err)
	}

	byID := make(map[string]*model.ArticleSource, len(sources))
	for _, src := range sources {
		byID[src.ID] = &model.ArticleSource{
			Name:    src.Name,
			Kind:    src.Kind,
			IconURL: src.IconURL,
		}
	}
	return byID, nil
}

// MarkRead は記事を既読として記録する。記録は冪等で、
// 同じ記事を複数回既読にしてもエラーにならない。
func (s *Service) MarkRead(ctx context.Context, userID string, articleID int64) error {
	found, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if found == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	if err := s.readRepo.MarkRead(ctx, userID, articleID); err != nil {
		return fmt.Errorf("既読記録の保存に失敗しました: %w", err)
	}
	return nil
}

// Package favorite はお気に入りソースの管理サービスを提供する。
package favorite

import (
	"context"
	"fmt"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/repository"
)

// Service はユーザーのお気に入りソースの追加・削除・一覧取得を担う。
type Service struct {
	favoriteRepo repository.FavoriteSourceRepository
	sourceRepo   repository.SourceRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	favoriteRepo repository.FavoriteSourceRepository,
	sourceRepo repository.SourceRepository,
) *Service {
	return &Service{
		favoriteRepo: favoriteRepo,
		sourceRepo:   sourceRepo,
	}
}

// Add はソースをお気に入りに追加する。追加は冪等で、
// 既にお気に入り済みの場合もエラーにならない。
func (s *Service) Add(ctx context.Context, userID, sourceID string) error {
	sources, err := s.sourceRepo.ListByIDs(ctx, []string{sourceID})
	if err != nil {
		return fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	if len(sources) == 0 {
		return model.NewSourceNotFoundError(sourceID)
	}

	if err := s.favoriteRepo.Create(ctx, userID, sourceID); err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// Remove はソースをお気に入りから削除する。未登録の場合もエラーにならない。
func (s *Service) Remove(ctx context.Context, userID, sourceID string) error {
	if err := s.favoriteRepo.Delete(ctx, userID, sourceID); err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// ListSourceIDs はユーザーのお気に入りソースID一覧を返す。
func (s *Service) ListSourceIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.favoriteRepo.ListSourceIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

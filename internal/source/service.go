// Package source はソース一覧取得のサービスを提供する。
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/repository"
)

// SourceWithActivity はソースと最新記事の公開日時を結合したモデル。
type SourceWithActivity struct {
	model.Source
	LatestPublishedAt *time.Time // 記事を1件も持たない場合はnil
}

// Service はアクティブソース一覧の取得を担う。
type Service struct {
	sourceRepo repository.SourceRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(sourceRepo repository.SourceRepository) *Service {
	return &Service{sourceRepo: sourceRepo}
}

// ListActive はアクティブなソースを最新記事の公開日時付きで返す。
func (s *Service) ListActive(ctx context.Context) ([]SourceWithActivity, error) {
	sources, err := s.sourceRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}

	latest, err := s.sourceRepo.LatestPublishedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("最新公開日時の取得に失敗しました: %w", err)
	}

	result := make([]SourceWithActivity, len(sources))
	for i, src := range sources {
		item := SourceWithActivity{Source: *src}
		if t, ok := latest[src.ID]; ok {
			published := t
			item.LatestPublishedAt = &published
		}
		result[i] = item
	}
	return result, nil
}

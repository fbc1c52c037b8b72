package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/technews/internal/model"
)

// Orchestrator は全アクティブソースのフェッチを並列に実行する。
// 各ソースの結果はアダプタ契約により常に成功扱いとなるため、
// 一部ソースの失敗が他ソースの取り込みを妨げることはない。
type Orchestrator struct {
	adapters *AdapterSet
	logger   *slog.Logger
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
func NewOrchestrator(adapters *AdapterSet, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		logger:   logger,
	}
}

// FetchAll は各ソースに対応するアダプタを並列に起動し、
// 全ソースの記事をソース一覧の順序で平坦化して返す。
func (o *Orchestrator) FetchAll(ctx context.Context, sources []*model.Source) []model.NewArticle {
	results := make([][]model.NewArticle, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source *model.Source) {
			defer wg.Done()
			articles := o.adapters.For(source.Kind).Fetch(ctx, source)
			o.logger.Info("ソースのフェッチが完了しました",
				slog.String("source_id", source.ID),
				slog.String("kind", string(source.Kind)),
				slog.Int("fetched_count", len(articles)),
			)
			results[i] = articles
		}(i, source)
	}
	wg.Wait()

	total := 0
	for _, articles := range results {
		total += len(articles)
	}
	flattened := make([]model.NewArticle, 0, total)
	for _, articles := range results {
		flattened = append(flattened, articles...)
	}
	return flattened
}

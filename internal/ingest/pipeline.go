package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/repository"
)

// MetricsRecorder は取り込み実行の計測値を記録する。
type MetricsRecorder interface {
	RecordIngestRun(fetched, inserted, duplicates int, duration time.Duration)
	RecordBatchFailure()
}

// noopMetrics は計測を行わないMetricsRecorder実装。テストおよびworker起動時の既定値。
type noopMetrics struct{}

func (noopMetrics) RecordIngestRun(fetched, inserted, duplicates int, duration time.Duration) {}
func (noopMetrics) RecordBatchFailure()                                                       {}

// NoopMetrics は何も記録しないMetricsRecorderを返す。
func NoopMetrics() MetricsRecorder { return noopMetrics{} }

// Pipeline はフィード取り込みの全体フローを統括する。
// フェッチ、URL重複排除、バッチ挿入を1回の実行として扱い、
// 同時に多重起動された場合はsingleflightで1実行に集約する。
type Pipeline struct {
	sourceRepo   repository.SourceRepository
	articleRepo  repository.ArticleRepository
	orchestrator *Orchestrator
	metrics      MetricsRecorder
	logger       *slog.Logger
	batchSize    int
	group        singleflight.Group
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(
	sourceRepo repository.SourceRepository,
	articleRepo repository.ArticleRepository,
	orchestrator *Orchestrator,
	metrics MetricsRecorder,
	logger *slog.Logger,
	batchSize int,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Pipeline{
		sourceRepo:   sourceRepo,
		articleRepo:  articleRepo,
		orchestrator: orchestrator,
		metrics:      metrics,
		logger:       logger,
		batchSize:    batchSize,
	}
}

// Run は取り込みを1回実行し、実行サマリーを返す。
// 同時に呼び出された場合、後続の呼び出しは進行中の実行結果を共有する。
func (p *Pipeline) Run(ctx context.Context) (*model.IngestSummary, error) {
	v, err, _ := p.group.Do("ingest", func() (interface{}, error) {
		return p.runOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.IngestSummary), nil
}

// runOnce は取り込みフローの本体。
func (p *Pipeline) runOnce(ctx context.Context) (*model.IngestSummary, error) {
	started := time.Now()

	sources, err := p.sourceRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("アクティブソースの取得に失敗しました: %w", err)
	}
	if len(sources) == 0 {
		p.logger.Info("アクティブなソースが存在しないため取り込みをスキップします")
		return &model.IngestSummary{Timestamp: time.Now()}, nil
	}

	fetched := p.orchestrator.FetchAll(ctx, sources)
	summary := &model.IngestSummary{TotalFetched: len(fetched)}

	// 実行内重複を先に排除する。同一URLは最初の出現のみ残す
	distinct := make([]model.NewArticle, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, article := range fetched {
		if _, ok := seen[article.URL]; ok {
			summary.DuplicatesSkipped++
			continue
		}
		seen[article.URL] = struct{}{}
		distinct = append(distinct, article)
	}

	// 既存記事との重複を1クエリで判定する
	urls := make([]string, len(distinct))
	for i, article := range distinct {
		urls[i] = article.URL
	}
	existing, err := p.articleRepo.ExistingURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("既存URLの照会に失敗しました: %w", err)
	}

	fresh := make([]model.NewArticle, 0, len(distinct))
	for _, article := range distinct {
		if _, ok := existing[article.URL]; ok {
			summary.DuplicatesSkipped++
			continue
		}
		fresh = append(fresh, article)
	}

	// batchSize件ずつ順次挿入する。失敗したバッチはログを残して除外し、
	// 後続バッチの処理は継続する
	for start := 0; start < len(fresh); start += p.batchSize {
		end := start + p.batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[start:end]
		if err := p.articleRepo.BulkInsert(ctx, batch); err != nil {
			p.metrics.RecordBatchFailure()
			p.logger.Error("記事バッチの挿入に失敗しました",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()),
			)
			continue
		}
		summary.Inserted += len(batch)
	}

	summary.Timestamp = time.Now()
	duration := time.Since(started)
	p.metrics.RecordIngestRun(summary.TotalFetched, summary.Inserted, summary.DuplicatesSkipped, duration)
	p.logger.Info("取り込みが完了しました",
		slog.Int("total_fetched", summary.TotalFetched),
		slog.Int("inserted", summary.Inserted),
		slog.Int("duplicates_skipped", summary.DuplicatesSkipped),
		slog.Duration("duration", duration),
	)

	return summary, nil
}

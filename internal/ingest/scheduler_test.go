package ingest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hitoshi/technews/internal/model"
)

// countingAdapter はFetchの呼び出し回数を数えるテスト用Adapter。
type countingAdapter struct {
	calls chan struct{}
}

func (c *countingAdapter) Fetch(_ context.Context, _ *model.Source) []model.NewArticle {
	c.calls <- struct{}{}
	return nil
}

func TestScheduler_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	adapter := &countingAdapter{calls: make(chan struct{}, 10)}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{{ID: "s1", Kind: model.SourceKindRSS}}}

	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	pipeline := NewPipeline(
		sourceRepo, &mockArticleRepo{},
		NewOrchestrator(NewAdapterSet(adapter, adapter, adapter), logger),
		nil, logger, 100,
	)

	s := NewScheduler(pipeline, logger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// 起動直後に1回実行されること
	select {
	case <-adapter.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("起動直後の取り込みが実行されませんでした")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("キャンセル後にStartが終了しませんでした")
	}
}

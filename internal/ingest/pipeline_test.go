package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/technews/internal/model"
	"github.com/hitoshi/technews/internal/repository"
)

// --- モック定義 ---

// mockSourceRepo はSourceRepositoryのテスト用モック。
type mockSourceRepo struct {
	sources []*model.Source
	err     error
}

func (m *mockSourceRepo) ListActive(_ context.Context) ([]*model.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceRepo) ListByIDs(_ context.Context, _ []string) ([]*model.Source, error) {
	return nil, nil
}

func (m *mockSourceRepo) LatestPublishedAt(_ context.Context) (map[string]time.Time, error) {
	return nil, nil
}

// mockArticleRepo はArticleRepositoryのテスト用モック。
type mockArticleRepo struct {
	existing     map[string]struct{}
	existingErr  error
	insertErrors []error // バッチ呼び出しごとのエラー（不足分はnil扱い）
	inserted     [][]model.NewArticle
}

func (m *mockArticleRepo) FindByID(_ context.Context, _ int64) (*model.Article, error) {
	return nil, nil
}

func (m *mockArticleRepo) ExistingURLs(_ context.Context, urls []string) (map[string]struct{}, error) {
	if m.existingErr != nil {
		return nil, m.existingErr
	}
	result := make(map[string]struct{})
	for _, url := range urls {
		if _, ok := m.existing[url]; ok {
			result[url] = struct{}{}
		}
	}
	return result, nil
}

func (m *mockArticleRepo) BulkInsert(_ context.Context, articles []model.NewArticle) error {
	call := len(m.inserted)
	m.inserted = append(m.inserted, articles)
	if call < len(m.insertErrors) {
		return m.insertErrors[call]
	}
	return nil
}

func (m *mockArticleRepo) List(_ context.Context, _ repository.ArticleQuery) ([]model.Article, error) {
	return nil, nil
}

// --- パイプラインのテスト ---

func newTestPipeline(sourceRepo *mockSourceRepo, articleRepo *mockArticleRepo, adapter Adapter, batchSize int) *Pipeline {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	orchestrator := NewOrchestrator(NewAdapterSet(adapter, adapter, adapter), logger)
	return NewPipeline(sourceRepo, articleRepo, orchestrator, nil, logger, batchSize)
}

func TestPipeline_Run_NoActiveSources(t *testing.T) {
	articleRepo := &mockArticleRepo{}
	p := newTestPipeline(&mockSourceRepo{}, articleRepo, &stubAdapter{}, 100)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalFetched != 0 || summary.Inserted != 0 || summary.DuplicatesSkipped != 0 {
		t.Errorf("ソースなしの場合はゼロサマリーを返すこと: %+v", summary)
	}
	if summary.Timestamp.IsZero() {
		t.Error("Timestampが設定されていること")
	}
	if len(articleRepo.inserted) != 0 {
		t.Error("ソースなしの場合は挿入が行われないこと")
	}
}

func TestPipeline_Run_DeduplicatesAgainstExisting(t *testing.T) {
	adapter := &stubAdapter{articles: []model.NewArticle{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b"},
		{Title: "c", URL: "https://example.com/c"},
	}}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{{ID: "s1", Kind: model.SourceKindRSS}}}
	articleRepo := &mockArticleRepo{existing: map[string]struct{}{
		"https://example.com/b": {},
		"https://example.com/c": {},
	}}

	p := newTestPipeline(sourceRepo, articleRepo, adapter, 100)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalFetched != 3 {
		t.Errorf("TotalFetched = %d, want 3", summary.TotalFetched)
	}
	if summary.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", summary.Inserted)
	}
	if summary.DuplicatesSkipped != 2 {
		t.Errorf("DuplicatesSkipped = %d, want 2", summary.DuplicatesSkipped)
	}
	if len(articleRepo.inserted) != 1 || len(articleRepo.inserted[0]) != 1 {
		t.Fatalf("新規1件のみ挿入されること: %+v", articleRepo.inserted)
	}
	if articleRepo.inserted[0][0].URL != "https://example.com/a" {
		t.Errorf("挿入された記事のURL = %q", articleRepo.inserted[0][0].URL)
	}
}

func TestPipeline_Run_DeduplicatesWithinRun(t *testing.T) {
	// 複数ソースが同一URLを返すケース。最初の出現のみ残る
	adapter := &stubAdapter{articles: []model.NewArticle{
		{Title: "first", URL: "https://example.com/same"},
	}}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{
		{ID: "s1", Kind: model.SourceKindRSS},
		{ID: "s2", Kind: model.SourceKindRSS},
	}}
	articleRepo := &mockArticleRepo{}

	p := newTestPipeline(sourceRepo, articleRepo, adapter, 100)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalFetched != 2 {
		t.Errorf("TotalFetched = %d, want 2", summary.TotalFetched)
	}
	if summary.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", summary.Inserted)
	}
	if summary.DuplicatesSkipped != 1 {
		t.Errorf("実行内重複もDuplicatesSkippedに数えること: got %d", summary.DuplicatesSkipped)
	}
}

func TestPipeline_Run_BatchSplitting(t *testing.T) {
	articles := make([]model.NewArticle, 250)
	for i := range articles {
		articles[i] = model.NewArticle{
			Title: "t",
			URL:   fmt.Sprintf("https://example.com/article-%d", i),
		}
	}

	adapter := &stubAdapter{articles: articles}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{{ID: "s1", Kind: model.SourceKindRSS}}}
	articleRepo := &mockArticleRepo{}

	p := newTestPipeline(sourceRepo, articleRepo, adapter, 100)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Inserted != 250 {
		t.Errorf("Inserted = %d, want 250", summary.Inserted)
	}
	if len(articleRepo.inserted) != 3 {
		t.Fatalf("100件ずつ3バッチに分割されること: got %dバッチ", len(articleRepo.inserted))
	}
	if len(articleRepo.inserted[0]) != 100 || len(articleRepo.inserted[1]) != 100 || len(articleRepo.inserted[2]) != 50 {
		t.Errorf("バッチサイズ = %d, %d, %d, want 100, 100, 50",
			len(articleRepo.inserted[0]), len(articleRepo.inserted[1]), len(articleRepo.inserted[2]))
	}
}

func TestPipeline_Run_FailedBatchExcludedFromInserted(t *testing.T) {
	articles := make([]model.NewArticle, 150)
	for i := range articles {
		articles[i] = model.NewArticle{
			Title: "t",
			URL:   fmt.Sprintf("https://example.com/batch-%d", i),
		}
	}

	adapter := &stubAdapter{articles: articles}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{{ID: "s1", Kind: model.SourceKindRSS}}}
	articleRepo := &mockArticleRepo{
		insertErrors: []error{errors.New("制約違反")}, // 1バッチ目のみ失敗
	}

	p := newTestPipeline(sourceRepo, articleRepo, adapter, 100)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("バッチ失敗は実行全体のエラーにしないこと: %v", err)
	}

	if summary.TotalFetched != 150 {
		t.Errorf("TotalFetched = %d, want 150", summary.TotalFetched)
	}
	// 失敗バッチの100件はInsertedにもDuplicatesSkippedにも含まれない
	if summary.Inserted != 50 {
		t.Errorf("Inserted = %d, want 50", summary.Inserted)
	}
	if summary.DuplicatesSkipped != 0 {
		t.Errorf("DuplicatesSkipped = %d, want 0", summary.DuplicatesSkipped)
	}
	if len(articleRepo.inserted) != 2 {
		t.Errorf("失敗後も後続バッチが処理されること: got %dバッチ", len(articleRepo.inserted))
	}
}

func TestPipeline_Run_SourceRepoError(t *testing.T) {
	p := newTestPipeline(&mockSourceRepo{err: errors.New("db down")}, &mockArticleRepo{}, &stubAdapter{}, 100)

	if _, err := p.Run(context.Background()); err == nil {
		t.Error("ソース取得失敗は実行全体のエラーとすること")
	}
}

func TestPipeline_Run_ExistingURLsError(t *testing.T) {
	adapter := &stubAdapter{articles: []model.NewArticle{{Title: "a", URL: "https://example.com/a"}}}
	sourceRepo := &mockSourceRepo{sources: []*model.Source{{ID: "s1", Kind: model.SourceKindRSS}}}
	articleRepo := &mockArticleRepo{existingErr: errors.New("query failed")}

	p := newTestPipeline(sourceRepo, articleRepo, adapter, 100)
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("既存URL照会の失敗は実行全体のエラーとすること")
	}
}

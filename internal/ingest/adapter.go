// Package ingest はフィード取り込みパイプラインを提供する。
// ソース種別ごとのアダプタ、並列フェッチのオーケストレータ、
// URL重複排除とバッチ挿入のパイプライン、定期実行スケジューラを含む。
package ingest

import (
	"context"

	"github.com/hitoshi/technews/internal/model"
)

// Adapter は提供元固有のペイロードを正規化済み記事に変換する。
//
// Fetchはいかなる内部エラー（ネットワーク障害、不正なペイロード、タイムアウト）
// でも空スライスを返し、エラーを呼び出し元に伝播させない。失敗はログと
// 記事数の減少としてのみ観測される。
type Adapter interface {
	Fetch(ctx context.Context, source *model.Source) []model.NewArticle
}

// AdapterSet はSource.Kindに応じたアダプタのディスパッチを行う。
// 種別は閉じた集合（rss/hackernews/devto）で、未知の種別はrssとして扱う。
type AdapterSet struct {
	rss        Adapter
	hackerNews Adapter
	devto      Adapter
}

// NewAdapterSet はAdapterSetを生成する。
func NewAdapterSet(rss, hackerNews, devto Adapter) *AdapterSet {
	return &AdapterSet{
		rss:        rss,
		hackerNews: hackerNews,
		devto:      devto,
	}
}

// For はソース種別に対応するアダプタを返す。
func (s *AdapterSet) For(kind model.SourceKind) Adapter {
	switch kind {
	case model.SourceKindHackerNews:
		return s.hackerNews
	case model.SourceKindDevto:
		return s.devto
	default:
		return s.rss
	}
}

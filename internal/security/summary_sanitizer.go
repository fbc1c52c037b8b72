// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SummarySanitizerService はフィード記事のサマリーからHTMLマークアップを除去し、
// プレーンテキストとして安全に保存・表示できる形に正規化する。
// bluemondayのStrictPolicyによる全タグ除去をベースに、
// 実体参照のデコードと空白の正規化を行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SummarySanitizerService は記事サマリーの正規化機能のインターフェースを定義する。
type SummarySanitizerService interface {
	// Strip はHTMLコンテンツから全タグを除去し、プレーンテキストを返す。
	// 実体参照（&amp;等）はデコードされ、連続する空白は1つにまとめられる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Strip(rawHTML string) string
}

// summarySanitizer はSummarySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフに処理を行う。
type summarySanitizer struct {
	policy *bluemonday.Policy
}

// NewSummarySanitizer はSummarySanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去する（テキストノードのみ残す）。
func NewSummarySanitizer() *summarySanitizer {
	return &summarySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Strip はHTMLコンテンツから全タグを除去し、プレーンテキストを返す。
func (s *summarySanitizer) Strip(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	stripped := s.policy.Sanitize(rawHTML)

	// bluemondayはテキストを実体参照にエスケープして返すためデコードする
	decoded := html.UnescapeString(stripped)

	// 改行やタブを含む連続空白を1つのスペースにまとめる
	return strings.Join(strings.Fields(decoded), " ")
}

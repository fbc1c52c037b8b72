// Package technews は技術系ニュースフィードの集約サービス。
//
// RSS/Atomフィード、Hacker News、dev.toの3種類のソースから記事を取り込み、
// URL単位で重複排除した上で単一の記事コレクションとして提供する。
// APIサーバー（serve）、定期取り込みワーカー（worker）、マイグレーション
// （migrate）の各モードはcmd/technewsのサブコマンドで切り替える。
package technews

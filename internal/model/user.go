// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Nickname     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReadArticle はユーザーが記事を開いたことを記録する結合エンティティ。
// (UserID, ArticleID) の組で一意。作成は冪等で、削除されることはない。
type ReadArticle struct {
	UserID    string
	ArticleID int64
	CreatedAt time.Time
}

// FavoriteSource はユーザーがブックマークしたソースを表す結合エンティティ。
// (UserID, SourceID) の組で一意。
type FavoriteSource struct {
	UserID    string
	SourceID  string
	CreatedAt time.Time
}

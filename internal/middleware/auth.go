// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/technews/internal/model"
)

// contextKey はコンテキストキーの衝突を避けるための非公開型。
type contextKey string

const userIDContextKey contextKey = "user_id"

// ErrNoUserInContext はコンテキストにユーザーIDが存在しないことを示す。
var ErrNoUserInContext = errors.New("コンテキストにユーザーIDが存在しません")

// TokenVerifier はアクセストークンを検証し、ユーザーIDを返す。
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// ContextWithUserID はユーザーIDをコンテキストに格納する。
// ロギングミドルウェアがスロットを用意している場合はそこにも書き込み、
// チェーンの外側からもユーザーIDを参照できるようにする。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if slot, ok := ctx.Value(userIDSlotContextKey).(*userIDSlot); ok {
		slot.id = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext はコンテキストからユーザーIDを取り出す。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", ErrNoUserInContext
	}
	return userID, nil
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが存在しない、または形式不正の場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// NewAuthMiddleware は認証必須エンドポイント用のミドルウェアを返す。
// 有効なアクセストークンがない場合は401を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			userID, err := verifier.VerifyAccessToken(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// NewOptionalAuthMiddleware は匿名アクセスを許可するエンドポイント用のミドルウェアを返す。
// 有効なトークンがあればユーザーIDをコンテキストに載せ、
// トークンがない、または無効な場合は匿名リクエストとして通過させる。
func NewOptionalAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.VerifyAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラ内のpanicを捕捉するミドルウェアを返す。
// 捕捉したpanicはスタックトレース付きでログに記録し、クライアントには
// 統一フォーマットのINTERNAL_ERRORレスポンスを返す。serveモードの
// プロセスが1リクエストの異常で落ちないための最外殻となる。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				reason := recover()
				if reason == nil {
					return
				}
				slog.Error("panic while handling request",
					slog.Any("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

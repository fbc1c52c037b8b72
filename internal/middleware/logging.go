package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// userIDSlot はロギングミドルウェアがリクエスト処理後にユーザーIDを
// 回収するための書き込み先。ロギングはチェーンの外側、認証は内側に
// 位置するため、内側でコンテキストに積んだ値は外側からは見えない。
// スロットはポインタで共有されるため、認証ミドルウェアが後から
// 書き込んだ値をロギング側が読み取れる。
type userIDSlot struct {
	id string
}

const userIDSlotContextKey contextKey = "user_id_slot"

// accessRecorder はレスポンスのステータスコードと書き込みバイト数を記録する。
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (ar *accessRecorder) WriteHeader(code int) {
	if ar.status == 0 {
		ar.status = code
	}
	ar.ResponseWriter.WriteHeader(code)
}

func (ar *accessRecorder) Write(b []byte) (int, error) {
	if ar.status == 0 {
		ar.status = http.StatusOK
	}
	n, err := ar.ResponseWriter.Write(b)
	ar.bytes += n
	return n, err
}

// NewLoggingMiddleware はリクエスト1件ごとにJSON構造化のアクセスログを
// 出力するミドルウェアを返す。ログレベルはステータスコードに応じて
// INFO/WARN/ERRORに切り替わる。認証済みリクエストにはuser_id属性が付く。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slot := &userIDSlot{}
			r = r.WithContext(context.WithValue(r.Context(), userIDSlotContextKey, slot))

			rec := &accessRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				slog.Int("bytes", rec.bytes),
			}

			// 認証ミドルウェアがスロットに書き込んだユーザーIDを回収する。
			// テスト等で外側から直接コンテキストに積まれた場合も拾う
			userID := slot.id
			if userID == "" {
				if v, err := UserIDFromContext(r.Context()); err == nil {
					userID = v
				}
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}

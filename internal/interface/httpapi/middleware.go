package httpapi

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/codedoc/internal/core/ratelimit"
)

// adminTokenHeader はレート制限免除トークンを載せるヘッダ
const adminTokenHeader = "X-Admin-Token"

// rateLimitMiddleware は生成エンドポイントをデュアルウィンドウ制限で保護する
//
// RateLimit-Limit / RateLimit-Remaining / RateLimit-Reset ヘッダは
// 拒否時だけでなく、生成パスのすべてのレスポンスに付与される。
// 拒否されたリクエストはプロバイダ呼び出しの前に弾かれる。
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := clientIdentifier(r)

		decision, err := s.limiter.Admit(r.Context(), identifier)
		if err != nil {
			s.logger.Error("rate limit check failed", slog.String("error", err.Error()))
			respondJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "rate_limit_unavailable",
				Message: "rate limit check failed",
			})
			return
		}

		if !decision.Bypassed {
			setRateLimitHeaders(w, decision)
		}

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			respondJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:      "rate_limit_exceeded",
				Message:    fmt.Sprintf("too many generation requests: %s window exhausted", decision.Scope),
				RetryAfter: retryAfter,
			})
			return
		}

		next(w, r)
	}
}

// setRateLimitHeaders はレート制限ヘッダを設定する
func setRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
}

// clientIdentifier はレート制限の識別子を決定する
//
// 管理トークンが提示された場合はトークン値を識別子として使う。
// 免除トークンはLimiterのバイパス集合に登録されているため、この
// ケーパビリティ確認はウィンドウを参照する前に行われることになる。
// それ以外はクライアントIP（プロキシ経由時はX-Forwarded-Forの先頭）を使う。
func clientIdentifier(r *http.Request) string {
	if token := r.Header.Get(adminTokenHeader); token != "" {
		return token
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loggingMiddleware はリクエストの完了を構造化ログに記録する
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(started)),
		)
	})
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinford/codedoc/internal/core/batch"
	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/jinford/codedoc/internal/core/ratelimit"
)

// シャットダウン時に進行中のリクエストへ与える猶予
const shutdownTimeout = 10 * time.Second

// Server はドキュメント生成APIのHTTPサーバ
type Server struct {
	generator    *generation.Generator
	orchestrator *batch.Orchestrator
	limiter      *ratelimit.Limiter
	logger       *slog.Logger

	batchThrottle time.Duration
	maxBatchFiles int

	httpServer *http.Server
}

// Options はサーバの構成
type Options struct {
	Port          int
	BatchThrottle time.Duration
	MaxBatchFiles int
}

// NewServer は新しいServerを作成する
func NewServer(
	generator *generation.Generator,
	orchestrator *batch.Orchestrator,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		generator:     generator,
		orchestrator:  orchestrator,
		limiter:       limiter,
		logger:        logger,
		batchThrottle: opts.BatchThrottle,
		maxBatchFiles: opts.MaxBatchFiles,
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     s.routes(),
		ReadTimeout: 30 * time.Second,
		// 生成とバッチはSSEで長時間続くため、書き込みタイムアウトは設けない
	}

	return s
}

// routes はルーティングを構築する
// 生成系のエンドポイントのみレート制限の対象となる
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/generate", s.rateLimitMiddleware(s.handleGenerate))
	mux.HandleFunc("POST /api/generate-stream", s.rateLimitMiddleware(s.handleGenerateStream))
	mux.HandleFunc("POST /api/batch-stream", s.rateLimitMiddleware(s.handleBatchStream))

	return s.loggingMiddleware(mux)
}

// Run はサーバを起動し、コンテキストのキャンセルでグレースフルに停止する
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server started", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return <-errCh
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/batch"
	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/jinford/codedoc/internal/core/quality"
	"github.com/jinford/codedoc/internal/core/ratelimit"
	"github.com/jinford/codedoc/internal/infra/openai"
	"github.com/jinford/codedoc/internal/infra/postgres"
	"github.com/jinford/codedoc/internal/platform/config"
	"github.com/jinford/codedoc/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config       *config.Config
	Logger       *slog.Logger
	Generator    *generation.Generator
	Orchestrator *batch.Orchestrator
	Limiter      *ratelimit.Limiter

	// pgStore はレート制限ストアにpostgresを選択した場合のみ非nil
	pgStore *postgres.RateLimitStore
}

// NewAppContext は設定ファイルを読み込み、生成パイプラインを組み立てる
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.ConfigFromEnv())

	provider, err := openai.NewClientWithAPIKey(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if err != nil {
		return nil, fmt.Errorf("OpenAIクライアントの初期化に失敗: %w", err)
	}

	counter, err := generation.NewTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("トークンカウンタの初期化に失敗: %w", err)
	}

	generator := generation.NewGenerator(
		provider,
		analyzer.New(appLogger),
		quality.NewScorer(),
		counter,
		generation.Config{
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Model:       cfg.OpenAI.Model,
		},
		appLogger,
	)

	appCtx := &AppContext{
		Config:       cfg,
		Logger:       appLogger,
		Generator:    generator,
		Orchestrator: batch.New(generator, appLogger),
	}

	// レート制限ストアの選択
	// 単一インスタンス運用ではmemory、水平スケール時はpostgresを使用する
	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "postgres":
		pgStore, connErr := postgres.Connect(ctx, cfg.Database.DSN())
		if connErr != nil {
			return nil, fmt.Errorf("レート制限ストアの接続に失敗: %w", connErr)
		}
		if schemaErr := pgStore.EnsureSchema(ctx); schemaErr != nil {
			pgStore.Close()
			return nil, fmt.Errorf("レート制限スキーマの作成に失敗: %w", schemaErr)
		}
		appCtx.pgStore = pgStore
		store = pgStore
	default:
		store = ratelimit.NewMemoryStore()
	}

	appCtx.Limiter = ratelimit.New(store, ratelimit.Config{
		MinuteLimit:       cfg.RateLimit.MinuteLimit,
		HourLimit:         cfg.RateLimit.HourLimit,
		BypassIdentifiers: cfg.Server.BypassTokens,
	})

	return appCtx, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.pgStore != nil {
		ac.pgStore.Close()
	}
}

// BatchThrottle は設定のスロットル秒数をDurationに変換する
func (ac *AppContext) BatchThrottle() time.Duration {
	return time.Duration(ac.Config.Batch.ThrottleSeconds) * time.Second
}

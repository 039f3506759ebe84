package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/quality"
)

// Config はGeneratorの生成パラメータ
type Config struct {
	// Temperature はLLM生成の多様性 (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int

	// Model はLLMモデル名（省略時はプロバイダのデフォルト）
	Model string
}

// Generator はドキュメント生成1回分をオーケストレーションする
// 解析 → プロンプト構築 → プロバイダ呼び出し → 採点 → 結果エンベロープの組み立て
// 1リクエストは1つの実行コンテキストで処理され、内部並列化は行わない
type Generator struct {
	provider Provider
	analyzer *analyzer.Analyzer
	scorer   *quality.Scorer
	prompts  *PromptBuilder
	counter  *TokenCounter
	cfg      Config
	logger   *slog.Logger
}

// NewGenerator は新しいGeneratorを作成する
func NewGenerator(provider Provider, codeAnalyzer *analyzer.Analyzer, scorer *quality.Scorer, counter *TokenCounter, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		analyzer: codeAnalyzer,
		scorer:   scorer,
		prompts:  NewPromptBuilder(counter),
		counter:  counter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate はソースコードからドキュメントを生成し、採点済みの結果を返す
//
// ストリーミング時はフラグメントごとにopts.OnFragmentを呼び出しながら全文を
// 蓄積し、ストリーム終了後に採点する。OnFragmentがエラーを返した場合
// （クライアント切断など）は生成を中断し、プロバイダ呼び出しを破棄する。
//
// 一時的なプロバイダエラーはこの層ではリトライしない（リトライ方針は
// プロバイダアダプタまたは呼び出し元の判断）
func (g *Generator) Generate(ctx context.Context, unit analyzer.SourceUnit, opts Options) (*Result, error) {
	docType, err := ParseDocType(string(opts.DocType))
	if err != nil {
		return nil, err
	}

	analysis := g.analyzer.Analyze(unit)
	prompt := g.prompts.Build(unit, analysis, docType)

	req := CompletionRequest{
		Prompt:      prompt,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		Model:       g.cfg.Model,
	}

	started := time.Now()

	var (
		documentation string
		model         string
		outputTokens  int
	)

	if opts.Streaming {
		documentation, model, err = g.generateStreaming(ctx, req, opts.OnFragment)
		if err != nil {
			return nil, err
		}
		outputTokens = g.counter.CountTokens(documentation)
	} else {
		resp, genErr := g.provider.Generate(ctx, req)
		if genErr != nil {
			return nil, fmt.Errorf("documentation generation failed: %w", genErr)
		}
		documentation = resp.Content
		model = resp.Model
		outputTokens = resp.TokensUsed
	}

	score := g.scorer.Score(documentation, analysis, string(docType))

	g.logger.Info("documentation generated",
		slog.String("docType", string(docType)),
		slog.Int("codeLength", len(unit.Content)),
		slog.Int("score", score.Score),
		slog.String("grade", string(score.Grade)),
		slog.Duration("duration", time.Since(started)),
	)

	return &Result{
		Documentation: documentation,
		QualityScore:  score,
		Analysis:      analysis,
		Metadata: Metadata{
			DocType:      docType,
			GeneratedAt:  time.Now().UTC(),
			CodeLength:   len(unit.Content),
			Model:        model,
			PromptTokens: g.counter.CountTokens(prompt),
			OutputTokens: outputTokens,
		},
	}, nil
}

// generateStreaming はフラグメント列を消費して全文を再構築する
// フラグメントはプロバイダが生成した順序どおりにコールバックへ渡される
func (g *Generator) generateStreaming(ctx context.Context, req CompletionRequest, onFragment func(string) error) (string, string, error) {
	stream, err := g.provider.GenerateStream(ctx, req)
	if err != nil {
		return "", "", fmt.Errorf("failed to start documentation stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		fragment := stream.Current()
		if fragment.Content == "" {
			continue
		}

		sb.WriteString(fragment.Content)

		if onFragment != nil {
			if cbErr := onFragment(fragment.Content); cbErr != nil {
				// クライアント切断など。進行中のプロバイダ呼び出しを破棄する
				return "", "", fmt.Errorf("fragment delivery aborted: %w", cbErr)
			}
		}

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		default:
		}
	}

	if streamErr := stream.Err(); streamErr != nil {
		return "", "", fmt.Errorf("documentation stream failed: %w", streamErr)
	}

	return sb.String(), req.Model, nil
}

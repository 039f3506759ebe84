package openai

import (
	"context"
	"errors"
	"math"
	"net"
	"os"
	"time"

	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrNoChoices はレスポンスに選択肢が含まれない場合のエラー
	ErrNoChoices = errors.New("no completion choices returned")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Client はOpenAI APIを使用したGenerationProvider実装
//
// 一時的なエラー（429）は同期生成とストリーム開始時に限り、この
// アダプタ内部で有界のExponential Backoff付きリトライを行う。
// それより上の層（Generator・バッチ層）はリトライしない。
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient は新しいClientを作成する
// APIキーは環境変数 OPENAI_API_KEY から読み込む
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	return NewClientWithAPIKey(apiKey, DefaultModel)
}

// NewClientWithAPIKey はAPIキーとモデルを指定してClientを作成する
func NewClientWithAPIKey(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定する
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Generate はOpenAI APIを使用してテキストを同期生成する
func (c *Client) Generate(ctx context.Context, req generation.CompletionRequest) (generation.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := c.buildParams(req)

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoffWait(ctx, attempt); err != nil {
				return generation.CompletionResponse{}, generation.NewTransientError(err)
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return generation.CompletionResponse{}, classifyError(err)
		}

		if len(completion.Choices) == 0 {
			return generation.CompletionResponse{}, generation.NewFatalError(ErrNoChoices)
		}

		return generation.CompletionResponse{
			Content:    completion.Choices[0].Message.Content,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      string(completion.Model),
		}, nil
	}

	return generation.CompletionResponse{}, generation.NewTransientError(
		errors.Join(ErrMaxRetriesExceeded, lastErr))
}

// GenerateStream はOpenAI APIのストリーミングモードでフラグメント列を生成する
// フラグメントはAPIが生成した順序どおりに届く
func (c *Client) GenerateStream(ctx context.Context, req generation.CompletionRequest) (generation.FragmentStream, error) {
	params := c.buildParams(req)

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, classifyError(err)
	}

	return &fragmentStream{inner: stream}, nil
}

// buildParams はリクエストパラメータを組み立てる
func (c *Client) buildParams(req generation.CompletionRequest) openai.ChatCompletionNewParams {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

// fragmentStream はopenai-goのSSEストリームをFragmentStreamに適合させる
type fragmentStream struct {
	inner   *ssestream.Stream[openai.ChatCompletionChunk]
	current generation.Fragment
}

// Next は次のフラグメントを読み込む
// コンテンツを持たないチャンク（role通知など）は読み飛ばす
func (s *fragmentStream) Next() bool {
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		s.current = generation.Fragment{Content: content}
		return true
	}
	return false
}

// Current は直近に読み込んだフラグメントを返す
func (s *fragmentStream) Current() generation.Fragment {
	return s.current
}

// Err はストリームのエラーを分類して返す
func (s *fragmentStream) Err() error {
	if err := s.inner.Err(); err != nil {
		return classifyError(err)
	}
	return nil
}

// Close はストリームを閉じ、進行中のAPI呼び出しを破棄する
func (s *fragmentStream) Close() error {
	return s.inner.Close()
}

// backoffWait はExponential Backoffで待機する
func backoffWait(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// classifyError はAPIエラーをProviderErrorに分類する
// 429・5xx・タイムアウト・ネットワーク断は一時的エラー、それ以外の
// APIエラー（認証失敗・不正リクエスト等）は恒久的エラーとする
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return generation.NewTransientError(err)
		}
		return generation.NewFatalError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return generation.NewTransientError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return generation.NewTransientError(err)
	}

	return generation.NewFatalError(err)
}

// isRateLimitError はレート制限エラーかどうかを判定する
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// インターフェース実装の確認
var _ generation.Provider = (*Client)(nil)

package generation

import (
	"context"
	"errors"
	"fmt"
)

// Provider はLLMバックエンドとのやり取りを抽象化する共通インターフェース
// 複数のバックエンド実装を差し替えられるよう、coreはこの契約のみに依存する
type Provider interface {
	// Generate はプロンプトに基づいて完全なテキストを同期生成する
	Generate(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// GenerateStream はプロンプトに基づいてフラグメント列を逐次生成する
	GenerateStream(ctx context.Context, req CompletionRequest) (FragmentStream, error)
}

// CompletionRequest はLLMへのリクエストパラメータ
type CompletionRequest struct {
	// Prompt はLLMに送信するプロンプト
	Prompt string

	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int

	// Model はLLMモデル名 (省略時はプロバイダのデフォルトモデルを使用)
	Model string
}

// CompletionResponse はLLMからのレスポンス
type CompletionResponse struct {
	// Content は生成されたテキスト
	Content string

	// TokensUsed は使用されたトークン数
	TokensUsed int

	// Model は実際に使用されたモデル名
	Model string
}

// Fragment は完成前に届く生成テキストの断片を表します
type Fragment struct {
	Content string
}

// FragmentStream はフラグメントの逐次読み出しインターフェース
// 利用パターン:
//
//	for stream.Next() {
//	    fragment := stream.Current()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// フラグメントはプロバイダが生成した順序どおりに届く
type FragmentStream interface {
	// Next は次のフラグメントが読めた場合にtrueを返す
	Next() bool

	// Current は直近にNextで読み込んだフラグメントを返す
	Current() Fragment

	// Err はストリームが異常終了した場合のエラーを返す
	Err() error

	// Close はストリームを閉じ、進行中のプロバイダ呼び出しを破棄する
	Close() error
}

// ErrorKind はプロバイダエラーの分類を表します
type ErrorKind string

const (
	// ErrorKindTransient は一時的なエラー（レート制限、タイムアウト等）
	// このリクエストに対しては失敗として呼び出し元へ返す（リトライ方針は呼び出し元の判断）
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindFatal は恒久的なエラー（認証失敗、不正リクエスト等）
	ErrorKindFatal ErrorKind = "fatal"
)

// ProviderError はLLMバックエンドの失敗を分類付きで表します
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

// Error はerrorインターフェースを実装する
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

// Unwrap はラップされたエラーを返す
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewTransientError は一時的なプロバイダエラーを作成する
func NewTransientError(err error) *ProviderError {
	return &ProviderError{Kind: ErrorKindTransient, Err: err}
}

// NewFatalError は恒久的なプロバイダエラーを作成する
func NewFatalError(err error) *ProviderError {
	return &ProviderError{Kind: ErrorKindFatal, Err: err}
}

// IsTransient はエラーが一時的なプロバイダエラーかどうかを判定する
func IsTransient(err error) bool {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Kind == ErrorKindTransient
	}
	return false
}

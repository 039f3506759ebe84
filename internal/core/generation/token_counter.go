package generation

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter はトークン数をカウントする機能を提供する
// プロンプトのコンテキスト予算と生成メタデータの算出に使用される
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		// エンコーディングが利用できない場合は推定値にフォールバックする
		return EstimateTokens(text)
	}
	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// EstimateTokens はテキストの推定トークン数を返す
// 正確にカウントせず、大まかな推定値を返す（文字数を基準）
func EstimateTokens(text string) int {
	// 英語コードの場合: 約4文字で1トークン
	// やや保守的に3文字で1トークンとする
	return len([]rune(text)) / 3
}

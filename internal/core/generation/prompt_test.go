package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/codedoc/internal/core/analyzer"
)

func TestPromptBuilder_Build(t *testing.T) {
	builder := NewPromptBuilder(nil)

	unit, err := analyzer.NewSourceUnit("def greet(name):\n    return name\n", analyzer.LanguagePython)
	require.NoError(t, err)

	summary := &analyzer.Summary{
		Functions:  []string{"greet"},
		Classes:    []string{},
		Exports:    []string{"greet"},
		Imports:    []string{"os"},
		Complexity: analyzer.ComplexitySimple,
	}

	prompt := builder.Build(unit, summary, DocTypeReadme)

	assert.Contains(t, prompt, "technical documentation expert")
	assert.Contains(t, prompt, "## Overview")
	assert.Contains(t, prompt, "- Functions: greet")
	assert.Contains(t, prompt, "- Classes: (none)")
	assert.Contains(t, prompt, "- Imports: os")
	assert.Contains(t, prompt, "```python\ndef greet(name):")
	assert.NotContains(t, prompt, "truncated")
}

func TestPromptBuilder_DocTypeSelectsInstructions(t *testing.T) {
	builder := NewPromptBuilder(nil)

	unit, err := analyzer.NewSourceUnit("const x = 1;", analyzer.LanguageJavaScript)
	require.NoError(t, err)

	archPrompt := builder.Build(unit, nil, DocTypeArchitecture)
	assert.Contains(t, archPrompt, "## Data Flow")

	jsdocPrompt := builder.Build(unit, nil, DocTypeJSDoc)
	assert.Contains(t, jsdocPrompt, "JSDoc-style")

	// 未知のdocTypeはREADMEの指示にフォールバックする
	fallback := builder.Build(unit, nil, DocType("OTHER"))
	assert.Contains(t, fallback, "Generate a README")
}

func TestPromptBuilder_NilSummary(t *testing.T) {
	builder := NewPromptBuilder(nil)

	unit, err := analyzer.NewSourceUnit("const x = 1;", analyzer.LanguageJavaScript)
	require.NoError(t, err)

	prompt := builder.Build(unit, nil, DocTypeReadme)
	assert.Contains(t, prompt, "(no analysis available)")
}

func TestPromptBuilder_TruncatesLongSource(t *testing.T) {
	builder := NewPromptBuilder(nil)

	// 推定トークン数が予算を大きく超えるソースを構築する
	longSource := strings.Repeat("function padding_line_for_budget_overflow() { return 42; }\n", 1500)
	unit, err := analyzer.NewSourceUnit(longSource, analyzer.LanguageJavaScript)
	require.NoError(t, err)

	prompt := builder.Build(unit, nil, DocTypeReadme)

	assert.Contains(t, prompt, "truncated")
	// プロンプト全体がソース全文より十分短くなっている
	assert.Less(t, len(prompt), len(longSource))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 4, EstimateTokens(strings.Repeat("a", 12)))
	// マルチバイト文字も1文字として数える
	assert.Equal(t, 4, EstimateTokens(strings.Repeat("あ", 12)))
}

func TestTokenCounter_NilFallsBackToEstimate(t *testing.T) {
	var counter *TokenCounter
	assert.Equal(t, EstimateTokens("hello world"), counter.CountTokens("hello world"))
}

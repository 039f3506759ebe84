package generation

import (
	"fmt"
	"strings"

	"github.com/jinford/codedoc/internal/core/analyzer"
)

const (
	// maxContextTokens はプロンプトに含めるソースコードのトークン数上限
	maxContextTokens = 8000

	// safetyMarginRatio はコンテキスト長の安全マージン（20%）
	safetyMarginRatio = 0.8
)

// PromptBuilder は解析サマリを組み込んだdocType別プロンプトを構築する
type PromptBuilder struct {
	counter          *TokenCounter
	maxContextTokens int
}

// NewPromptBuilder は新しいPromptBuilderを作成する
// counterがnilの場合は文字数ベースの推定でトークン数を概算する
func NewPromptBuilder(counter *TokenCounter) *PromptBuilder {
	return &PromptBuilder{
		counter:          counter,
		maxContextTokens: maxContextTokens,
	}
}

const basePromptHeader = `You are a technical documentation expert.

Your task is to generate high-quality Markdown documentation for the source code below.

Guidelines:
- Base the documentation only on the provided code and analysis; avoid speculation
- Use clear Markdown structure: headers, fenced code blocks and bullet lists
- Include at least three code examples where applicable
- Cover every function listed in the analysis
- Output Markdown only, without surrounding commentary`

// docTypeInstructions はdocTypeごとの出力要件
var docTypeInstructions = map[DocType]string{
	DocTypeReadme: `Generate a README with the following sections:
## Overview - what the code does and why it exists
## Installation - setup steps
## Usage - code examples for typical use
## API Documentation - every exported function and class
## Notes - caveats and limitations`,

	DocTypeJSDoc: `Generate inline-style API documentation:
## Overview - short module description
## Functions - one subsection per function with parameters, return value and a usage example
## Classes - one subsection per class with its methods
Use JSDoc-style parameter tables where useful.`,

	DocTypeAPI: `Generate an API reference:
## Overview - purpose of this API surface
## Getting Started - setup and import instructions
## Endpoints / Functions - signature, parameters, return value and an example per function
## Error Handling - failure modes and how callers should handle them`,

	DocTypeArchitecture: `Generate an architecture document:
## Overview - system purpose in two or three sentences
## Components - responsibilities of each class and module
## Data Flow - how data moves through the functions
## Dependencies - external imports and their roles
## Design Notes - noteworthy patterns and trade-offs`,
}

// Build はソースと解析サマリからプロンプトを構築する
// ソースコードはトークン予算に合わせて末尾を切り詰める
func (b *PromptBuilder) Build(unit analyzer.SourceUnit, summary *analyzer.Summary, docType DocType) string {
	instructions, ok := docTypeInstructions[docType]
	if !ok {
		instructions = docTypeInstructions[DocTypeReadme]
	}

	code, truncated := b.truncateToBudget(unit.Content)

	var sb strings.Builder
	sb.WriteString(basePromptHeader)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n## Code Analysis\n")
	sb.WriteString(formatSummary(summary))
	sb.WriteString(fmt.Sprintf("\n## Source Code (%s)\n```%s\n%s\n```\n", unit.Language, fenceLanguage(unit.Language), code))
	if truncated {
		sb.WriteString("\n(The source code was truncated to fit the context window.)\n")
	}

	return sb.String()
}

// truncateToBudget はソースコードをトークン予算内に切り詰める
func (b *PromptBuilder) truncateToBudget(code string) (string, bool) {
	budget := int(float64(b.maxContextTokens) * safetyMarginRatio)
	if b.counter.CountTokens(code) <= budget {
		return code, false
	}

	// 行単位で先頭から積み上げ、予算を超えたところで打ち切る
	lines := strings.Split(code, "\n")
	used := 0
	for i, line := range lines {
		used += b.counter.CountTokens(line) + 1
		if used > budget {
			return strings.Join(lines[:i], "\n"), true
		}
	}
	return code, false
}

// formatSummary は解析サマリをプロンプト向けに整形する
func formatSummary(summary *analyzer.Summary) string {
	if summary == nil {
		return "- (no analysis available)\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- Complexity: %s\n", summary.Complexity))
	sb.WriteString(formatList("Functions", summary.Functions))
	sb.WriteString(formatList("Classes", summary.Classes))
	sb.WriteString(formatList("Exports", summary.Exports))
	sb.WriteString(formatList("Imports", summary.Imports))
	return sb.String()
}

func formatList(label string, items []string) string {
	if len(items) == 0 {
		return fmt.Sprintf("- %s: (none)\n", label)
	}
	return fmt.Sprintf("- %s: %s\n", label, strings.Join(items, ", "))
}

// fenceLanguage はコードフェンスの言語タグを返す
func fenceLanguage(language analyzer.Language) string {
	switch language {
	case analyzer.LanguageJavaScript:
		return "javascript"
	case analyzer.LanguageTypeScript:
		return "typescript"
	case analyzer.LanguagePython:
		return "python"
	case analyzer.LanguageGo:
		return "go"
	default:
		return ""
	}
}

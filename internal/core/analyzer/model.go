package analyzer

import "errors"

// MaxSourceLength はソースコードの最大文字数
// これを超える入力はプロバイダ呼び出しの前に拒否される
const MaxSourceLength = 100_000

var (
	// ErrEmptySource はソースコードが空の場合のエラー
	ErrEmptySource = errors.New("source code is empty")

	// ErrSourceTooLarge はソースコードが最大文字数を超えた場合のエラー
	ErrSourceTooLarge = errors.New("source code exceeds maximum length")
)

// Language はソースコードのプログラミング言語を表します
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageUnknown    Language = "unknown"
)

// Complexity はソースコードの複雑度ティアを表します
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// SourceUnit は解析・生成対象のソースコード1単位を表す
// リクエストごとに作成され、永続化されない
type SourceUnit struct {
	Content   string
	Language  Language
	SizeBytes int
}

// NewSourceUnit は入力を検証してSourceUnitを作成する
// 空または最大文字数超過の入力は拒否する
func NewSourceUnit(content string, language Language) (SourceUnit, error) {
	if len(content) == 0 {
		return SourceUnit{}, ErrEmptySource
	}
	if len([]rune(content)) > MaxSourceLength {
		return SourceUnit{}, ErrSourceTooLarge
	}

	return SourceUnit{
		Content:   content,
		Language:  language,
		SizeBytes: len(content),
	}, nil
}

// Summary はソースコードの構造サマリを表す
// SourceUnitごとに一度だけ導出され、以降は不変
type Summary struct {
	Functions  []string   `json:"functions"`
	Classes    []string   `json:"classes"`
	Exports    []string   `json:"exports"`
	Imports    []string   `json:"imports"`
	Complexity Complexity `json:"complexity"`
}

// degradedSummary は解析に失敗した場合のフォールバックサマリを返す
// 解析は生成の補助情報であり、失敗してもパイプライン全体は止めない
func degradedSummary() *Summary {
	return &Summary{
		Functions:  []string{},
		Classes:    []string{},
		Exports:    []string{},
		Imports:    []string{},
		Complexity: ComplexitySimple,
	}
}

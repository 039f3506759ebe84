package analyzer

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Analyzer はソースコードを構造サマリに解析する
// 正規表現ベースのヒューリスティック解析であり、ASTパーサは使用しない
// 解析結果はQualityScorerのカバレッジ計算とプロンプト構築に使用される
type Analyzer struct {
	logger *slog.Logger
}

// New は新しいAnalyzerを作成する
func New(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze はSourceUnitを解析してSummaryを返す
// 言語が未指定の場合はgo-enryで内容から判定する
// 解析できない場合は縮退サマリ（complexity=simple、空リスト）にフォールバックし、
// パイプライン全体は失敗させない
func (a *Analyzer) Analyze(unit SourceUnit) *Summary {
	language := unit.Language
	if language == "" || language == LanguageUnknown {
		language = DetectLanguage(unit.Content)
	}

	var summary *Summary
	switch language {
	case LanguageJavaScript, LanguageTypeScript:
		summary = analyzeJavaScript(unit.Content)
	case LanguagePython:
		summary = analyzePython(unit.Content)
	case LanguageGo:
		summary = analyzeGo(unit.Content)
	default:
		// 未対応言語は縮退サマリで続行する
		a.logger.Warn("unsupported language, falling back to degraded summary",
			slog.String("language", string(language)))
		return degradedSummary()
	}

	summary.Complexity = classifyComplexity(unit.Content, summary)
	return summary
}

// DetectLanguage はソースコードの内容からプログラミング言語を判定する
func DetectLanguage(content string) Language {
	// ファイル名がないため内容のみで判定する
	detected := enry.GetLanguage("source", []byte(content))

	switch detected {
	case "JavaScript", "JSX":
		return LanguageJavaScript
	case "TypeScript", "TSX":
		return LanguageTypeScript
	case "Python":
		return LanguagePython
	case "Go":
		return LanguageGo
	default:
		return LanguageUnknown
	}
}

// LanguageFromFilename はファイル名と内容から言語を判定する（バッチ収集用）
func LanguageFromFilename(filename string, content []byte) Language {
	switch enry.GetLanguage(filename, content) {
	case "JavaScript", "JSX":
		return LanguageJavaScript
	case "TypeScript", "TSX":
		return LanguageTypeScript
	case "Python":
		return LanguagePython
	case "Go":
		return LanguageGo
	default:
		return LanguageUnknown
	}
}

var (
	jsFunctionRe = regexp.MustCompile(`(?m)\bfunction\s+([A-Za-z_$][\w$]*)`)
	jsArrowRe    = regexp.MustCompile(`(?m)\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)\n]*\)|[A-Za-z_$][\w$]*)\s*=>`)
	jsClassRe    = regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_$][\w$]*)`)
	jsExportRe   = regexp.MustCompile(`(?m)\bexport\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var)\s+([A-Za-z_$][\w$]*)`)
	jsModuleRe   = regexp.MustCompile(`(?m)module\.exports(?:\.([A-Za-z_$][\w$]*))?`)
	jsImportRe   = regexp.MustCompile(`(?m)\bimport\s+(?:[^'"\n]+\s+from\s+)?['"]([^'"]+)['"]`)
	jsRequireRe  = regexp.MustCompile(`(?m)\brequire\(\s*['"]([^'"]+)['"]\s*\)`)

	pyFunctionRe = regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_]\w*)`)
	pyClassRe    = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_]\w*)`)
	pyImportRe   = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)

	goFunctionRe = regexp.MustCompile(`(?m)^func\s+(?:\([^)]+\)\s+)?([A-Za-z_]\w*)`)
	goTypeRe     = regexp.MustCompile(`(?m)^type\s+([A-Za-z_]\w*)\s+(?:struct|interface)\b`)
	goImportRe   = regexp.MustCompile(`(?m)^\s*(?:[\w.]+\s+)?"([^"]+)"\s*$`)
	goImportDecl = regexp.MustCompile(`(?m)^import\s+(?:\(|"([^"]+)")`)
)

func analyzeJavaScript(content string) *Summary {
	functions := uniqueMatches(content, jsFunctionRe, jsArrowRe)
	classes := uniqueMatches(content, jsClassRe)
	exports := uniqueMatches(content, jsExportRe, jsModuleRe)
	imports := uniqueMatches(content, jsImportRe, jsRequireRe)

	return &Summary{
		Functions: functions,
		Classes:   classes,
		Exports:   exports,
		Imports:   imports,
	}
}

func analyzePython(content string) *Summary {
	functions := uniqueMatches(content, pyFunctionRe)
	classes := uniqueMatches(content, pyClassRe)
	imports := uniqueMatches(content, pyImportRe)

	// Pythonには明示的なexport構文がないため、トップレベルの定義をエクスポート扱いとする
	// アンダースコア始まりの名前は慣習的に非公開なので除外する
	exports := make([]string, 0, len(functions)+len(classes))
	for _, name := range append(append([]string{}, functions...), classes...) {
		if !strings.HasPrefix(name, "_") {
			exports = append(exports, name)
		}
	}
	sort.Strings(exports)

	return &Summary{
		Functions: functions,
		Classes:   classes,
		Exports:   exports,
		Imports:   imports,
	}
}

func analyzeGo(content string) *Summary {
	functions := uniqueMatches(content, goFunctionRe)
	classes := uniqueMatches(content, goTypeRe)
	imports := collectGoImports(content)

	// Goでは大文字始まりの識別子がエクスポートされる
	exports := make([]string, 0, len(functions)+len(classes))
	for _, name := range append(append([]string{}, functions...), classes...) {
		if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
			exports = append(exports, name)
		}
	}
	sort.Strings(exports)

	return &Summary{
		Functions: functions,
		Classes:   classes,
		Exports:   exports,
		Imports:   imports,
	}
}

// collectGoImports はimport宣言からインポートパスを抽出する
func collectGoImports(content string) []string {
	seen := make(map[string]struct{})
	var imports []string

	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		imports = append(imports, path)
	}

	for _, m := range goImportDecl.FindAllStringSubmatchIndex(content, -1) {
		// 単一import形式: import "path"
		if m[2] >= 0 {
			add(content[m[2]:m[3]])
			continue
		}

		// ブロック形式: importブロックの閉じ括弧までを走査する
		rest := content[m[1]:]
		end := strings.Index(rest, ")")
		if end < 0 {
			end = len(rest)
		}
		for _, im := range goImportRe.FindAllStringSubmatch(rest[:end], -1) {
			add(im[1])
		}
	}

	return imports
}

// uniqueMatches は複数の正規表現のキャプチャグループを重複なしで収集する
func uniqueMatches(content string, patterns ...*regexp.Regexp) []string {
	seen := make(map[string]struct{})
	results := []string{}

	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			// 最初に値を持つキャプチャグループを採用する
			for _, name := range m[1:] {
				if name == "" {
					continue
				}
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					results = append(results, name)
				}
				break
			}
		}
	}

	return results
}

// classifyComplexity は宣言数と行数から複雑度ティアを判定する
func classifyComplexity(content string, summary *Summary) Complexity {
	lines := strings.Count(content, "\n") + 1
	decls := len(summary.Functions) + len(summary.Classes)

	switch {
	case decls > 10 || lines > 300:
		return ComplexityComplex
	case decls > 3 || lines > 100:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

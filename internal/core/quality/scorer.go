package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jinford/codedoc/internal/core/analyzer"
)

// Scorer は生成されたMarkdownドキュメントを5基準100点のルーブリックで採点する
// 採点は純粋関数であり、同じ入力は常に同じ結果を返す（テスト容易性の要）
type Scorer struct{}

// NewScorer は新しいScorerを作成する
func NewScorer() *Scorer {
	return &Scorer{}
}

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	bulletRe  = regexp.MustCompile(`(?m)^\s*[-*+]\s+\S`)

	overviewKeywords     = []string{"overview", "description", "about", "introduction", "summary"}
	installationKeywords = []string{"install", "installation", "setup", "getting started", "usage requirements", "prerequisites"}
)

// Score はドキュメントを採点する
// docTypeは提案文の文言に影響するが、基準の重みは全docType共通
func (s *Scorer) Score(documentation string, analysis *analyzer.Summary, docType string) *Score {
	if analysis == nil {
		analysis = &analyzer.Summary{}
	}

	headings := extractHeadings(documentation)
	codeBlocks := countFencedBlocks(documentation)

	breakdown := map[Criterion]CriterionResult{
		CriterionOverview:     scoreOverview(headings, docType),
		CriterionInstallation: scoreInstallation(headings, docType),
		CriterionExamples:     scoreExamples(codeBlocks),
		CriterionAPIDocs:      scoreAPIDocs(documentation, analysis),
		CriterionStructure:    scoreStructure(documentation, headings, codeBlocks),
	}

	total := 0
	for _, result := range breakdown {
		total += result.Points
	}

	summary := ScoreSummary{
		Strengths:    []Criterion{},
		Improvements: []Criterion{},
	}
	for _, criterion := range criterionOrder {
		result := breakdown[criterion]
		if result.Points >= result.MaxPoints {
			summary.Strengths = append(summary.Strengths, criterion)
		} else {
			summary.Improvements = append(summary.Improvements, criterion)
		}
	}

	return &Score{
		Score:     total,
		Grade:     GradeForScore(float64(total)),
		Breakdown: breakdown,
		Summary:   summary,
	}
}

// scoreOverview は概要セクションの有無を採点する（20点）
func scoreOverview(headings []string, docType string) CriterionResult {
	result := CriterionResult{MaxPoints: 20}

	if hasHeadingWithKeyword(headings, overviewKeywords) {
		result.Present = true
		result.Points = 20
		result.Status = StatusPass
		return result
	}

	result.Status = StatusMissing
	result.Suggestion = fmt.Sprintf("Add an overview or description section explaining what this %s covers", docTypeNoun(docType))
	return result
}

// scoreInstallation は導入セクションの有無を採点する（15点）
func scoreInstallation(headings []string, docType string) CriterionResult {
	result := CriterionResult{MaxPoints: 15}

	if hasHeadingWithKeyword(headings, installationKeywords) {
		result.Present = true
		result.Points = 15
		result.Status = StatusPass
		return result
	}

	result.Status = StatusMissing
	result.Suggestion = "Add an installation or setup section with step-by-step instructions"
	return result
}

// scoreExamples はコード例の数を採点する（20点）
// 3個以上で満点、2個で15点、1個で10点
func scoreExamples(codeBlocks int) CriterionResult {
	result := CriterionResult{MaxPoints: 20, Present: codeBlocks > 0}

	switch {
	case codeBlocks >= 3:
		result.Points = 20
		result.Status = StatusPass
	case codeBlocks == 2:
		result.Points = 15
		result.Status = StatusPartial
		result.Suggestion = "Add at least one more code example to illustrate common usage"
	case codeBlocks == 1:
		result.Points = 10
		result.Status = StatusPartial
		result.Suggestion = "Add more code examples; aim for three or more fenced code blocks"
	default:
		result.Status = StatusMissing
		result.Suggestion = "Add fenced code blocks showing how to use the code"
	}

	return result
}

// scoreAPIDocs は関数カバレッジを採点する（25点）
// 解析済み関数のうちドキュメントで言及された割合を配点する
// 関数が存在しない場合はドキュメント化するものがないため満点
func scoreAPIDocs(documentation string, analysis *analyzer.Summary) CriterionResult {
	result := CriterionResult{MaxPoints: 25}

	total := len(analysis.Functions)
	if total == 0 {
		result.Present = true
		result.Points = 25
		result.Status = StatusPass
		return result
	}

	documented := 0
	for _, fn := range analysis.Functions {
		if containsWord(documentation, fn) {
			documented++
		}
	}

	result.Points = roundRatio(25, documented, total)
	result.Present = documented > 0

	switch {
	case result.Points >= 25:
		result.Status = StatusPass
	case result.Points > 0:
		result.Status = StatusPartial
		result.Suggestion = fmt.Sprintf("Document the remaining functions (%d of %d covered)", documented, total)
	default:
		result.Status = StatusMissing
		result.Suggestion = fmt.Sprintf("Document the %d functions found in the source code", total)
	}

	return result
}

// scoreStructure は見出し数とコードブロック・箇条書きの併用を採点する（20点）
func scoreStructure(documentation string, headings []string, codeBlocks int) CriterionResult {
	result := CriterionResult{MaxPoints: 20}

	hasBullets := bulletRe.MatchString(documentation)
	headerCount := len(headings)
	result.Present = headerCount > 0

	switch {
	case headerCount >= 3 && codeBlocks > 0 && hasBullets:
		result.Points = 20
		result.Status = StatusPass
	case headerCount >= 2:
		result.Points = 12
		result.Status = StatusPartial
		result.Suggestion = "Improve document structure: use three or more headers with both code blocks and bullet lists"
	case headerCount >= 1:
		result.Points = 8
		result.Status = StatusPartial
		result.Suggestion = "Add more section headers, code blocks and bullet lists to structure the document"
	default:
		result.Status = StatusMissing
		result.Suggestion = "Structure the document with Markdown headers, code blocks and bullet lists"
	}

	return result
}

// extractHeadings はMarkdownの見出しテキストを抽出する
func extractHeadings(documentation string) []string {
	matches := headingRe.FindAllStringSubmatch(documentation, -1)
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, strings.TrimSpace(m[1]))
	}
	return headings
}

// countFencedBlocks はフェンス付きコードブロックの数を数える
func countFencedBlocks(documentation string) int {
	return strings.Count(documentation, "```") / 2
}

// hasHeadingWithKeyword は見出しにキーワードが含まれるかを判定する
func hasHeadingWithKeyword(headings []string, keywords []string) bool {
	for _, heading := range headings {
		lower := strings.ToLower(heading)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	return false
}

// containsWord は識別子が単語境界付きで出現するかを判定する
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return strings.Contains(text, word)
	}
	return re.MatchString(text)
}

// docTypeNoun はdocTypeを提案文向けの名詞に変換する
func docTypeNoun(docType string) string {
	switch strings.ToUpper(docType) {
	case "README":
		return "project"
	case "JSDOC":
		return "module"
	case "API":
		return "API"
	case "ARCHITECTURE":
		return "architecture"
	default:
		return "code"
	}
}

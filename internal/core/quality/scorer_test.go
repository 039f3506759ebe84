package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/codedoc/internal/core/analyzer"
)

// 全基準で満点を取るドキュメント
const perfectDoc = "# Overview\n\nA small utility library.\n\n" +
	"## Installation\n\n```sh\nnpm install mylib\n```\n\n" +
	"## Usage\n\n- call parse\n- call format\n\n" +
	"```js\nparse(input)\n```\n\n```js\nformat(output)\n```\n"

func TestScorer_PerfectDocument(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"parse", "format"}}

	score := scorer.Score(perfectDoc, analysis, "README")

	assert.Equal(t, 100, score.Score)
	assert.Equal(t, GradeA, score.Grade)
	assert.Len(t, score.Summary.Strengths, 5)
	assert.Empty(t, score.Summary.Improvements)

	for criterion, result := range score.Breakdown {
		assert.Equal(t, StatusPass, result.Status, "criterion %s", criterion)
		assert.Equal(t, result.MaxPoints, result.Points, "criterion %s", criterion)
	}
}

func TestScorer_EmptyDocument(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"parse"}}

	score := scorer.Score("", analysis, "README")

	assert.Equal(t, 0, score.Score)
	assert.Equal(t, GradeF, score.Grade)
	assert.Empty(t, score.Summary.Strengths)
	assert.Len(t, score.Summary.Improvements, 5)
}

func TestScorer_NoFunctionsGivesFullAPIDocsCredit(t *testing.T) {
	scorer := NewScorer()

	// 関数が存在しないソースではドキュメント化するものがないため、
	// API基準は自動的に満点となる
	score := scorer.Score("", &analyzer.Summary{}, "README")

	apiResult := score.Breakdown[CriterionAPIDocs]
	assert.Equal(t, 25, apiResult.Points)
	assert.Equal(t, StatusPass, apiResult.Status)

	// 一方で導入セクションは依然として欠落のまま
	installResult := score.Breakdown[CriterionInstallation]
	assert.Equal(t, 0, installResult.Points)
	assert.Equal(t, StatusMissing, installResult.Status)
}

func TestScorer_PartialAPICoverage(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"parse", "format", "validate", "render"}}

	doc := "# API\n\nThe parse and format functions are the core entry points.\n"
	score := scorer.Score(doc, analysis, "API")

	apiResult := score.Breakdown[CriterionAPIDocs]
	// 4関数中2関数に言及 → 25 * 2/4 = 12.5 → 13点
	assert.Equal(t, 13, apiResult.Points)
	assert.Equal(t, StatusPartial, apiResult.Status)
	assert.Contains(t, apiResult.Suggestion, "2 of 4")
}

func TestScorer_FunctionMentionRequiresWordBoundary(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"run"}}

	// "rerun" への部分一致は言及として数えない
	score := scorer.Score("# Overview\n\nCall rerun to retry.\n", analysis, "README")

	assert.Equal(t, 0, score.Breakdown[CriterionAPIDocs].Points)
}

func TestScorer_ExampleTiers(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name       string
		codeBlocks int
		points     int
		status     CriterionStatus
	}{
		{name: "3ブロックで満点", codeBlocks: 3, points: 20, status: StatusPass},
		{name: "2ブロックで15点", codeBlocks: 2, points: 15, status: StatusPartial},
		{name: "1ブロックで10点", codeBlocks: 1, points: 10, status: StatusPartial},
		{name: "0ブロックで0点", codeBlocks: 0, points: 0, status: StatusMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ""
			for i := 0; i < tt.codeBlocks; i++ {
				doc += "```js\nexample()\n```\n\n"
			}

			score := scorer.Score(doc, &analyzer.Summary{}, "README")
			result := score.Breakdown[CriterionExamples]

			assert.Equal(t, tt.points, result.Points)
			assert.Equal(t, tt.status, result.Status)
		})
	}
}

func TestScorer_StructureTiers(t *testing.T) {
	scorer := NewScorer()

	// 見出し3つ + コードブロック + 箇条書きで満点
	full := "# A\n## B\n## C\n\n- item\n\n```js\nx()\n```\n"
	score := scorer.Score(full, &analyzer.Summary{}, "README")
	assert.Equal(t, 20, score.Breakdown[CriterionStructure].Points)

	// 見出し2つのみは部分点
	two := "# A\n## B\n\nplain text\n"
	score = scorer.Score(two, &analyzer.Summary{}, "README")
	assert.Equal(t, 12, score.Breakdown[CriterionStructure].Points)

	// 見出し1つのみはさらに低い部分点
	one := "# A\n\nplain text\n"
	score = scorer.Score(one, &analyzer.Summary{}, "README")
	assert.Equal(t, 8, score.Breakdown[CriterionStructure].Points)
}

func TestScorer_HeadingKeywordsCaseInsensitive(t *testing.T) {
	scorer := NewScorer()

	score := scorer.Score("# PROJECT OVERVIEW\n\n## Getting Started\n", &analyzer.Summary{}, "README")

	assert.Equal(t, 20, score.Breakdown[CriterionOverview].Points)
	assert.Equal(t, 15, score.Breakdown[CriterionInstallation].Points)
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"parse", "format"}}

	first := scorer.Score(perfectDoc, analysis, "README")
	for i := 0; i < 10; i++ {
		again := scorer.Score(perfectDoc, analysis, "README")
		require.Equal(t, first, again)
	}
}

func TestScorer_ImprovementsOrderedByWeight(t *testing.T) {
	scorer := NewScorer()
	analysis := &analyzer.Summary{Functions: []string{"parse"}}

	score := scorer.Score("", analysis, "README")

	// 重み降順: api(25) → overview(20) → examples(20) → structure(20) → installation(15)
	assert.Equal(t, []Criterion{
		CriterionAPIDocs,
		CriterionOverview,
		CriterionExamples,
		CriterionStructure,
		CriterionInstallation,
	}, score.Summary.Improvements)
}

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		score float64
		grade Grade
	}{
		{score: 100, grade: GradeA},
		{score: 90, grade: GradeA},
		{score: 89.9, grade: GradeB},
		{score: 80, grade: GradeB},
		{score: 79, grade: GradeC},
		{score: 70, grade: GradeC},
		{score: 69, grade: GradeD},
		{score: 60, grade: GradeD},
		{score: 59.9, grade: GradeF},
		{score: 0, grade: GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.grade, GradeForScore(tt.score), "score %.1f", tt.score)
	}
}

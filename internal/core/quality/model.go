package quality

import "math"

// Criterion は採点基準の1項目を表します
type Criterion string

const (
	CriterionOverview     Criterion = "overview"
	CriterionInstallation Criterion = "installation"
	CriterionExamples     Criterion = "examples"
	CriterionAPIDocs      Criterion = "api_documentation"
	CriterionStructure    Criterion = "structure"
)

// criterionOrder は基準の重み降順の正規順序
// 同点（20点）の基準間は固定順序で安定させる
var criterionOrder = []Criterion{
	CriterionAPIDocs,      // 25点
	CriterionOverview,     // 20点
	CriterionExamples,     // 20点
	CriterionStructure,    // 20点
	CriterionInstallation, // 15点
}

// CriterionStatus は基準の達成状況を表します
type CriterionStatus string

const (
	StatusPass    CriterionStatus = "pass"
	StatusPartial CriterionStatus = "partial"
	StatusMissing CriterionStatus = "missing"
)

// Grade はスコアの等級を表します
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeForScore はスコアから等級を導出する
// 等級はスコアの純粋関数であり、境界は重複しない
func GradeForScore(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// CriterionResult は1基準の採点結果を表します
type CriterionResult struct {
	Present    bool            `json:"present"`
	Points     int             `json:"points"`
	MaxPoints  int             `json:"maxPoints"`
	Status     CriterionStatus `json:"status"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// Score は採点結果全体を表します
// 全基準の最大点の合計は常に100点
type Score struct {
	Score     int                           `json:"score"`
	Grade     Grade                         `json:"grade"`
	Breakdown map[Criterion]CriterionResult `json:"breakdown"`
	Summary   ScoreSummary                  `json:"summary"`
}

// ScoreSummary は採点結果の要約を表します
// Strengthsは満点の基準、Improvementsはそれ以外（重み降順）
type ScoreSummary struct {
	Strengths    []Criterion `json:"strengths"`
	Improvements []Criterion `json:"improvements"`
}

// roundRatio は比率配点を四捨五入する
func roundRatio(max, numerator, denominator int) int {
	if denominator == 0 {
		return max
	}
	return int(math.Round(float64(max) * float64(numerator) / float64(denominator)))
}

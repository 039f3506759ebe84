package batch

import (
	"github.com/google/uuid"
	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/jinford/codedoc/internal/core/quality"
)

// File はバッチ生成対象の1ファイルを表します
type File struct {
	Name     string
	Content  string
	Language analyzer.Language
}

// Progress は各ファイルの処理開始前に通知される進捗情報
// 呼び出し元はバッチ完了を待たずに「file i of N」を表示できる
type Progress struct {
	Filename string             `json:"filename"`
	Index    int                `json:"index"`
	Total    int                `json:"total"`
	DocType  generation.DocType `json:"docType"`
}

// FileScore は成功したファイルの採点結果サマリ
type FileScore struct {
	Name  string        `json:"name"`
	Score int           `json:"score"`
	Grade quality.Grade `json:"grade"`
}

// FileError は失敗したファイルのエラー記録
type FileError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Summary はバッチジョブ完了時に一度だけ導出される集計結果
// 常に SuccessCount + FailCount == TotalFiles が成り立つ
type Summary struct {
	JobID           uuid.UUID     `json:"jobID"`
	TotalFiles      int           `json:"totalFiles"`
	SuccessCount    int           `json:"successCount"`
	FailCount       int           `json:"failCount"`
	AvgQuality      float64       `json:"avgQuality"`
	AvgGrade        quality.Grade `json:"avgGrade"`
	SuccessfulFiles []FileScore   `json:"successfulFiles"`
	Errors          []FileError   `json:"errors"`
}

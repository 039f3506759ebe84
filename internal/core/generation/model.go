package generation

import (
	"errors"
	"strings"
	"time"

	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/quality"
)

// DocType は生成するドキュメントの種別を表します
// 種別はプロンプトテンプレートとQualityScorerのルーブリック選択を駆動する
type DocType string

const (
	DocTypeReadme       DocType = "README"
	DocTypeJSDoc        DocType = "JSDOC"
	DocTypeAPI          DocType = "API"
	DocTypeArchitecture DocType = "ARCHITECTURE"
)

// ErrInvalidDocType は未知のドキュメント種別のエラー
var ErrInvalidDocType = errors.New("invalid doc type")

// ParseDocType は文字列をDocTypeに変換する
func ParseDocType(s string) (DocType, error) {
	switch DocType(strings.ToUpper(strings.TrimSpace(s))) {
	case DocTypeReadme:
		return DocTypeReadme, nil
	case DocTypeJSDoc:
		return DocTypeJSDoc, nil
	case DocTypeAPI:
		return DocTypeAPI, nil
	case DocTypeArchitecture:
		return DocTypeArchitecture, nil
	case "":
		// 省略時はREADMEを生成する
		return DocTypeReadme, nil
	default:
		return "", ErrInvalidDocType
	}
}

// Options はドキュメント生成のオプション
type Options struct {
	// DocType は生成するドキュメントの種別
	DocType DocType

	// Streaming はフラグメント単位の逐次生成を有効にする
	Streaming bool

	// OnFragment はストリーミング時にフラグメントごとに呼ばれるコールバック
	// エラーを返した場合、生成は中断される（クライアント切断時など）
	OnFragment func(fragment string) error
}

// Metadata は生成結果の付帯情報
type Metadata struct {
	DocType      DocType   `json:"docType"`
	GeneratedAt  time.Time `json:"generatedAt"`
	CodeLength   int       `json:"codeLength"`
	Model        string    `json:"model,omitempty"`
	PromptTokens int       `json:"promptTokens,omitempty"`
	OutputTokens int       `json:"outputTokens,omitempty"`
}

// Result はドキュメント生成1回分の結果エンベロープを表す
// 生成後は不変であり、呼び出し元に返却されるのみで永続化されない
type Result struct {
	Documentation string            `json:"documentation"`
	QualityScore  *quality.Score    `json:"qualityScore"`
	Analysis      *analyzer.Summary `json:"analysis"`
	Metadata      Metadata          `json:"metadata"`
}

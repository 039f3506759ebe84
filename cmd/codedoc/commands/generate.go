package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/generation"
)

// GenerateAction は単一ファイルのドキュメントを生成するコマンドのアクション
// 生成結果はストリーミングで標準出力へ書き出し、品質スコアを標準エラーに要約する
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	docTypeStr := cmd.String("type")
	outPath := cmd.String("out")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	language := analyzer.LanguageFromFilename(filepath.Base(filePath), content)
	unit, err := analyzer.NewSourceUnit(string(content), language)
	if err != nil {
		return fmt.Errorf("入力の検証に失敗: %w", err)
	}

	docType, err := generation.ParseDocType(docTypeStr)
	if err != nil {
		return fmt.Errorf("ドキュメント種別が不正です: %w", err)
	}

	slog.Info("ドキュメント生成を開始",
		"file", filePath,
		"language", string(language),
		"docType", string(docType),
	)

	// 出力先が指定されていなければ標準出力へストリーミング
	streaming := outPath == ""
	opts := generation.Options{
		DocType:   docType,
		Streaming: streaming,
	}
	if streaming {
		opts.OnFragment = func(fragment string) error {
			_, writeErr := os.Stdout.WriteString(fragment)
			return writeErr
		}
	}

	result, err := appCtx.Generator.Generate(ctx, unit, opts)
	if err != nil {
		return fmt.Errorf("ドキュメント生成に失敗: %w", err)
	}

	if streaming {
		fmt.Println()
	} else {
		if writeErr := os.WriteFile(outPath, []byte(result.Documentation), 0o644); writeErr != nil {
			return fmt.Errorf("出力ファイルの書き込みに失敗: %w", writeErr)
		}
	}

	slog.Info("ドキュメント生成が完了しました",
		"score", result.QualityScore.Score,
		"grade", string(result.QualityScore.Grade),
		"outputTokens", result.Metadata.OutputTokens,
	)

	return nil
}

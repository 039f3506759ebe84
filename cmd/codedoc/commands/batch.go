package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/codedoc/internal/core/batch"
	"github.com/jinford/codedoc/internal/core/generation"
	gitclient "github.com/jinford/codedoc/internal/infra/git"
	"github.com/jinford/codedoc/internal/infra/localfs"
)

// BatchDirAction はローカルディレクトリ配下のファイルを一括処理するコマンドのアクション
func BatchDirAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return runBatch(ctx, appCtx, cmd, dir)
}

// BatchGitAction はGitリポジトリをクローンして一括処理するコマンドのアクション
func BatchGitAction(ctx context.Context, cmd *cli.Command) error {
	gitURL := cmd.String("url")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	client := gitclient.NewClient(
		appCtx.Config.Git.CloneDir,
		appCtx.Config.Git.SSHKeyPath,
		appCtx.Config.Git.SSHPassword,
	)

	slog.Info("リポジトリをクローンします", "url", gitURL)

	dir, err := client.Clone(ctx, gitURL)
	if err != nil {
		return fmt.Errorf("リポジトリのクローンに失敗: %w", err)
	}

	slog.Info("クローンが完了しました", "dir", dir)

	return runBatch(ctx, appCtx, cmd, dir)
}

// runBatch はディレクトリからファイルを収集してバッチ生成を実行する
// 生成されたドキュメントは --out ディレクトリ配下にMarkdownとして書き出される
func runBatch(ctx context.Context, appCtx *AppContext, cmd *cli.Command, dir string) error {
	outDir := cmd.String("out")
	docType, err := generation.ParseDocType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("ドキュメント種別が不正です: %w", err)
	}

	collector := localfs.NewCollector(appCtx.Config.Batch.MaxFiles)
	files, err := collector.Collect(dir)
	if err != nil {
		return fmt.Errorf("ファイル収集に失敗: %w", err)
	}
	if len(files) == 0 {
		slog.Warn("対象ファイルが見つかりません", "dir", dir)
		return nil
	}

	slog.Info("バッチ生成を開始", "dir", dir, "files", len(files), "docType", string(docType))

	if mkErr := os.MkdirAll(outDir, 0o755); mkErr != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", mkErr)
	}

	// 生成結果を収集中に書き出すため、ファイル名 → 内容の対応を保持する
	docs := make(map[string]string, len(files))

	summary, err := appCtx.Orchestrator.Run(ctx, files, batch.Config{
		DocType:       docType,
		ThrottleDelay: appCtx.BatchThrottle(),
		OnProgress: func(p batch.Progress) {
			slog.Info("ファイルを処理中",
				"filename", p.Filename,
				"index", p.Index+1,
				"total", p.Total,
			)
		},
		OnCountdown: func(seconds int) {
			if seconds%5 == 0 {
				slog.Info("スロットル待機中", "remaining", seconds)
			}
		},
		OnFileSuccess: func(fs batch.FileScore) {
			slog.Info("ファイルの生成が完了",
				"filename", fs.Name,
				"score", fs.Score,
				"grade", string(fs.Grade),
			)
		},
		OnFileError: func(fe batch.FileError) {
			slog.Warn("ファイルの生成に失敗", "filename", fe.Filename, "error", fe.Error)
		},
		OnFileDocument: func(name, documentation string) {
			docs[name] = documentation
		},
	})
	if err != nil {
		return fmt.Errorf("バッチ生成に失敗: %w", err)
	}

	// 成功ファイルのドキュメントを書き出す
	for _, fs := range summary.SuccessfulFiles {
		doc, ok := docs[fs.Name]
		if !ok {
			continue
		}
		outPath := filepath.Join(outDir, docFileName(fs.Name))
		if writeErr := os.WriteFile(outPath, []byte(doc), 0o644); writeErr != nil {
			slog.Warn("ドキュメントの書き込みに失敗", "filename", fs.Name, "error", writeErr)
		}
	}

	slog.Info("バッチ生成が完了しました",
		"successCount", summary.SuccessCount,
		"failCount", summary.FailCount,
		"avgQuality", summary.AvgQuality,
		"avgGrade", string(summary.AvgGrade),
	)

	return nil
}

// docFileName はソースファイル名から出力ドキュメントのファイル名を導出する
// パス区切りをフラット化し、拡張子を.mdに揃える
func docFileName(sourceName string) string {
	flat := strings.ReplaceAll(sourceName, "/", "__")
	ext := filepath.Ext(flat)
	if ext != "" {
		flat = strings.TrimSuffix(flat, ext)
	}
	return flat + ".md"
}

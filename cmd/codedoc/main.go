package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/codedoc/cmd/codedoc/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "codedoc",
		Usage: "ソースコードからAI支援でドキュメントを生成するツール",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "APIサーバ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "ドキュメント生成APIサーバを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "リッスンするポート番号",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "generate",
				Usage: "単一ファイルのドキュメントを生成",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "対象のソースファイルパス",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "ドキュメント種別 (readme / jsdoc / api / architecture)",
						Value: "readme",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "出力ファイルパス（省略時は標準出力にストリーミング）",
					},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:  "batch",
				Usage: "複数ファイルの一括ドキュメント生成コマンド",
				Commands: []*cli.Command{
					{
						Name:  "dir",
						Usage: "ローカルディレクトリ配下のファイルを一括処理",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "dir",
								Usage:    "対象ディレクトリ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "ドキュメント種別 (readme / jsdoc / api / architecture)",
								Value: "readme",
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "ドキュメントの出力ディレクトリ",
								Value: "docs",
							},
						},
						Action: commands.BatchDirAction,
					},
					{
						Name:  "git",
						Usage: "Gitリポジトリをクローンして一括処理",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "url",
								Usage:    "リポジトリのURL（HTTPSまたはSSH）",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "ドキュメント種別 (readme / jsdoc / api / architecture)",
								Value: "readme",
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "ドキュメントの出力ディレクトリ",
								Value: "docs",
							},
						},
						Action: commands.BatchGitAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatalf("コマンドの実行に失敗しました: %v", err)
	}
}

package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/jinford/codedoc/internal/core/quality"
)

// DefaultThrottleDelay はファイル間のデフォルトスロットル遅延
// プロバイダのコストとレート制限に対して総呼び出し量を予測可能に保つための
// 意図的なペーシングであり、正確性の要件ではない
const DefaultThrottleDelay = 15 * time.Second

// state はバッチジョブの内部状態を表します
// Pending → Running(i) → {Throttling → Running(i+1), ..., Completed}
type state string

const (
	statePending    state = "pending"
	stateRunning    state = "running"
	stateThrottling state = "throttling"
	stateCompleted  state = "completed"
)

// jobState は実行中ジョブの状態遷移を追跡する
type jobState struct {
	id     uuid.UUID
	state  state
	logger *slog.Logger
}

// transition は状態を遷移させ、デバッグログに記録する
func (j *jobState) transition(next state, index int) {
	j.state = next
	j.logger.Debug("batch state transition",
		slog.String("jobID", j.id.String()),
		slog.String("state", string(next)),
		slog.Int("index", index),
	)
}

// Config はバッチ実行の設定
type Config struct {
	// DocType は全ファイル共通のドキュメント種別
	DocType generation.DocType

	// ThrottleDelay はファイル間のスロットル遅延
	// 負値で無効化、0でDefaultThrottleDelayを使用する
	ThrottleDelay time.Duration

	// OnProgress は各ファイルの処理開始前に呼ばれる
	OnProgress func(Progress)

	// OnCountdown はスロットル中に1秒ごとの残り秒数とともに呼ばれる
	OnCountdown func(secondsRemaining int)

	// OnFileSuccess はファイルの生成が成功するたびに呼ばれる
	OnFileSuccess func(FileScore)

	// OnFileDocument は生成されたドキュメント本文とともに呼ばれる
	// 本文はサマリには含まれないため、必要な場合はここで受け取る
	OnFileDocument func(name, documentation string)

	// OnFileError はファイルの生成が失敗するたびに呼ばれる
	OnFileError func(FileError)
}

// Orchestrator は複数ファイルのドキュメント生成を直列にオーケストレーションする
//
// ファイルは配列順に厳密に逐次処理され、並列化も並べ替えも行わない。
// 1ファイルの失敗はerrorsに記録されるだけでバッチを中断しない
// （部分失敗への耐性が主要な設計目標。1つの不正ファイルが残りN-1件を
// 道連れにしてはならない）。
type Orchestrator struct {
	generator *generation.Generator
	logger    *slog.Logger
}

// New は新しいOrchestratorを作成する
func New(generator *generation.Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		generator: generator,
		logger:    logger,
	}
}

// Run はファイル群を配列順に処理し、完了時にSummaryを返す
//
// contextがキャンセルされた場合（クライアント切断）はその時点で中断し、
// エラーを返す。バッチに個別のキャンセルプリミティブはなく、contextの
// キャンセルのみが中断手段となる。
func (o *Orchestrator) Run(ctx context.Context, files []File, cfg Config) (*Summary, error) {
	jobID := uuid.New()
	total := len(files)

	throttle := cfg.ThrottleDelay
	if throttle == 0 {
		throttle = DefaultThrottleDelay
	}

	o.logger.Info("batch job started",
		slog.String("jobID", jobID.String()),
		slog.Int("totalFiles", total),
		slog.String("docType", string(cfg.DocType)),
	)

	job := &jobState{id: jobID, state: statePending, logger: o.logger}
	summary := &Summary{
		JobID:           jobID,
		TotalFiles:      total,
		SuccessfulFiles: []FileScore{},
		Errors:          []FileError{},
	}

	for i, file := range files {
		// 2ファイル目以降の前にスロットル遅延を挟む
		if i > 0 && throttle > 0 {
			job.transition(stateThrottling, i)
			if err := o.throttleWait(ctx, throttle, cfg.OnCountdown); err != nil {
				return nil, err
			}
		}

		job.transition(stateRunning, i)
		if cfg.OnProgress != nil {
			cfg.OnProgress(Progress{
				Filename: file.Name,
				Index:    i,
				Total:    total,
				DocType:  cfg.DocType,
			})
		}

		result, err := o.generateOne(ctx, file, cfg.DocType)
		if err != nil {
			if ctx.Err() != nil {
				// クライアント切断によるバッチ全体の放棄
				return nil, ctx.Err()
			}

			fileErr := FileError{Filename: file.Name, Error: err.Error()}
			summary.Errors = append(summary.Errors, fileErr)
			summary.FailCount++

			o.logger.Warn("batch file failed",
				slog.String("jobID", jobID.String()),
				slog.String("filename", file.Name),
				slog.String("error", err.Error()),
			)

			if cfg.OnFileError != nil {
				cfg.OnFileError(fileErr)
			}
			continue
		}

		fileScore := FileScore{
			Name:  file.Name,
			Score: result.QualityScore.Score,
			Grade: result.QualityScore.Grade,
		}
		summary.SuccessfulFiles = append(summary.SuccessfulFiles, fileScore)
		summary.SuccessCount++

		if cfg.OnFileSuccess != nil {
			cfg.OnFileSuccess(fileScore)
		}
		if cfg.OnFileDocument != nil {
			cfg.OnFileDocument(file.Name, result.Documentation)
		}
	}

	job.transition(stateCompleted, total)

	finalize(summary)

	o.logger.Info("batch job completed",
		slog.String("jobID", jobID.String()),
		slog.Int("successCount", summary.SuccessCount),
		slog.Int("failCount", summary.FailCount),
		slog.Float64("avgQuality", summary.AvgQuality),
	)

	return summary, nil
}

// generateOne は1ファイル分の生成を行う
// 入力検証エラーもプロバイダエラーと同様にファイル単位の失敗として扱う
func (o *Orchestrator) generateOne(ctx context.Context, file File, docType generation.DocType) (*generation.Result, error) {
	unit, err := analyzer.NewSourceUnit(file.Content, file.Language)
	if err != nil {
		return nil, err
	}

	return o.generator.Generate(ctx, unit, generation.Options{
		DocType:   docType,
		Streaming: false,
	})
}

// throttleWait はスロットル遅延を消化し、1秒ごとに残り秒数を通知する
// contextキャンセルで即座に中断できる
func (o *Orchestrator) throttleWait(ctx context.Context, delay time.Duration, onCountdown func(int)) error {
	remaining := int(delay / time.Second)
	if remaining <= 0 {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining > 0 {
		if onCountdown != nil {
			onCountdown(remaining)
		}

		select {
		case <-ticker.C:
			remaining--
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// finalize は完了時の集計値を導出する
// AvgGradeは成功ファイルのスコア平均に等級写像を適用した値であり、
// 等級そのものの平均ではない
func finalize(summary *Summary) {
	if summary.SuccessCount == 0 {
		summary.AvgQuality = 0
		summary.AvgGrade = quality.GradeForScore(0)
		return
	}

	total := 0
	for _, file := range summary.SuccessfulFiles {
		total += file.Score
	}

	summary.AvgQuality = float64(total) / float64(summary.SuccessCount)
	summary.AvgGrade = quality.GradeForScore(summary.AvgQuality)
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/generation"
	"github.com/jinford/codedoc/internal/core/quality"
)

// stubProvider はファイル内容に応じて成功・失敗を切り替えるProvider実装
// 内容に "FAIL" を含むファイルはプロバイダエラーになる
type stubProvider struct {
	calls []string
}

func (p *stubProvider) Generate(_ context.Context, req generation.CompletionRequest) (generation.CompletionResponse, error) {
	p.calls = append(p.calls, req.Prompt)

	if strings.Contains(req.Prompt, "FAIL") {
		return generation.CompletionResponse{}, generation.NewFatalError(errors.New("provider rejected input"))
	}

	return generation.CompletionResponse{
		Content: "# Overview\n\nGenerated documentation.\n\n## Installation\n\nnone\n\n" +
			"```js\na()\n```\n\n```js\nb()\n```\n\n```js\nc()\n```\n\n- bullet\n",
		TokensUsed: 10,
		Model:      "stub",
	}, nil
}

func (p *stubProvider) GenerateStream(context.Context, generation.CompletionRequest) (generation.FragmentStream, error) {
	return nil, errors.New("streaming not supported by stub")
}

func newTestOrchestrator(provider generation.Provider) *Orchestrator {
	g := generation.NewGenerator(
		provider,
		analyzer.New(nil),
		quality.NewScorer(),
		nil,
		generation.Config{},
		nil,
	)
	return New(g, nil)
}

func testFiles(n int) []File {
	files := make([]File, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, File{
			Name:     fmt.Sprintf("file%d.js", i+1),
			Content:  fmt.Sprintf("function fn%d() { return %d; }", i+1, i+1),
			Language: analyzer.LanguageJavaScript,
		})
	}
	return files
}

func TestOrchestrator_AllFilesSucceed(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	summary, err := o.Run(context.Background(), testFiles(3), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 0, summary.FailCount)
	assert.Empty(t, summary.Errors)
	assert.Len(t, summary.SuccessfulFiles, 3)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", summary.JobID.String())
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	files := testFiles(5)
	// 2番目と4番目を失敗させる
	files[1].Content = "function broken() { FAIL }"
	files[3].Content = "function alsoBroken() { FAIL }"

	summary, err := o.Run(context.Background(), files, Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
	})
	require.NoError(t, err)

	// 1ファイルの失敗は残りのファイルの処理を止めない
	assert.Equal(t, 5, summary.TotalFiles)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailCount)

	require.Len(t, summary.Errors, 2)
	assert.Equal(t, "file2.js", summary.Errors[0].Filename)
	assert.Equal(t, "file4.js", summary.Errors[1].Filename)

	// 5ファイルすべてがプロバイダに到達している
	assert.Len(t, provider.calls, 5)
}

func TestOrchestrator_StrictlySequential(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	var order []string
	_, err := o.Run(context.Background(), testFiles(4), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
		OnProgress: func(p Progress) {
			order = append(order, p.Filename)
		},
	})
	require.NoError(t, err)

	// ファイルは配列順のまま処理される
	assert.Equal(t, []string{"file1.js", "file2.js", "file3.js", "file4.js"}, order)
}

func TestOrchestrator_ValidationFailureIsPerFile(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	files := testFiles(2)
	files[0].Content = "" // 入力検証で弾かれる

	summary, err := o.Run(context.Background(), files, Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "file1.js", summary.Errors[0].Filename)
	assert.Contains(t, summary.Errors[0].Error, "empty")

	// 検証失敗のファイルはプロバイダに到達しない
	assert.Len(t, provider.calls, 1)
}

func TestOrchestrator_CountdownDuringThrottle(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	var countdowns []int
	summary, err := o.Run(context.Background(), testFiles(2), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: 2 * time.Second,
		OnCountdown: func(seconds int) {
			countdowns = append(countdowns, seconds)
		},
	})
	require.NoError(t, err)

	// スロットルは2ファイル目の前に1回だけ入り、残り秒数を降順で通知する
	assert.Equal(t, []int{2, 1}, countdowns)
	assert.Equal(t, 2, summary.SuccessCount)
}

func TestOrchestrator_NoThrottleBeforeFirstFile(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	started := time.Now()
	_, err := o.Run(context.Background(), testFiles(1), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: 10 * time.Second,
	})
	require.NoError(t, err)

	// 1ファイルだけのバッチはスロットル遅延なしで完了する
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestOrchestrator_ContextCancelAbortsBatch(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	ctx, cancel := context.WithCancel(context.Background())

	// 1ファイル目の完了後、スロットル待機中にキャンセルする
	_, err := o.Run(ctx, testFiles(3), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: 10 * time.Second,
		OnFileSuccess: func(FileScore) {
			cancel()
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	// キャンセル後のファイルは処理されない
	assert.Len(t, provider.calls, 1)
}

func TestOrchestrator_SummaryAggregates(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	summary, err := o.Run(context.Background(), testFiles(2), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
	})
	require.NoError(t, err)

	// 平均は成功ファイルのスコアの算術平均
	total := 0
	for _, fs := range summary.SuccessfulFiles {
		total += fs.Score
	}
	assert.InDelta(t, float64(total)/2, summary.AvgQuality, 0.001)
	assert.Equal(t, quality.GradeForScore(summary.AvgQuality), summary.AvgGrade)
}

func TestOrchestrator_AllFilesFail(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	files := testFiles(2)
	files[0].Content = "FAIL one"
	files[1].Content = "FAIL two"

	summary, err := o.Run(context.Background(), files, Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailCount)
	assert.Equal(t, float64(0), summary.AvgQuality)
	assert.Equal(t, quality.GradeF, summary.AvgGrade)
}

func TestOrchestrator_DocumentCallback(t *testing.T) {
	provider := &stubProvider{}
	o := newTestOrchestrator(provider)

	docs := map[string]string{}
	_, err := o.Run(context.Background(), testFiles(2), Config{
		DocType:       generation.DocTypeReadme,
		ThrottleDelay: -1,
		OnFileDocument: func(name, documentation string) {
			docs[name] = documentation
		},
	})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Contains(t, docs["file1.js"], "Generated documentation")
}

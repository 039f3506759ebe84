package localfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
	"github.com/jinford/codedoc/internal/core/analyzer"
	"github.com/jinford/codedoc/internal/core/batch"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultMaxFiles は1回の収集で集める最大ファイル数
const DefaultMaxFiles = 50

// Collector はローカルディレクトリからバッチ生成対象のファイルを収集する
// .gitignoreを尊重し、ベンダ・生成コードと非対応言語のファイルを除外する
type Collector struct {
	maxFiles int
}

// NewCollector は新しいCollectorを作成する
func NewCollector(maxFiles int) *Collector {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Collector{maxFiles: maxFiles}
}

// Collect はrootDir配下の対応言語ファイルをバッチファイルとして収集する
// ファイル名はrootDirからの相対パスとなる
func (c *Collector) Collect(rootDir string) ([]batch.File, error) {
	matcher, err := loadIgnoreMatcher(rootDir)
	if err != nil {
		return nil, err
	}

	var files []batch.File

	walkErr := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if d.Name() == ".git" || (matcher != nil && matcher.MatchesPath(relPath)) {
				return filepath.SkipDir
			}
			return nil
		}

		if len(files) >= c.maxFiles {
			return filepath.SkipAll
		}

		if matcher != nil && matcher.MatchesPath(relPath) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		// 最大文字数を超えるファイルはバリデーションで弾かれるため収集しない
		if info.Size() == 0 || info.Size() > analyzer.MaxSourceLength {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", relPath, readErr)
		}

		if enry.IsBinary(content) || enry.IsVendor(relPath) || enry.IsGenerated(relPath, content) {
			return nil
		}

		language := analyzer.LanguageFromFilename(d.Name(), content)
		if language == analyzer.LanguageUnknown {
			return nil
		}

		files = append(files, batch.File{
			Name:     filepath.ToSlash(relPath),
			Content:  string(content),
			Language: language,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", rootDir, walkErr)
	}

	return files, nil
}

// loadIgnoreMatcher は.gitignoreを読み込んでマッチャを構築する
// ファイルが存在しない場合はnilを返す
func loadIgnoreMatcher(rootDir string) (*gitignore.GitIgnore, error) {
	path := filepath.Join(rootDir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat .gitignore: %w", err)
	}

	matcher, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to compile .gitignore: %w", err)
	}
	return matcher, nil
}

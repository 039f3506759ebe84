package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	giturls "github.com/whilp/git-urls"
)

// Client はGitリポジトリ操作を提供する
// batch gitコマンドがドキュメント生成対象のリポジトリを取得するために使用する
type Client struct {
	cloneDir    string
	sshKeyPath  string
	sshPassword string
}

// NewClient は新しいClientを作成する
// sshKeyPathが空の場合、SSH認証なし（公開HTTPSリポジトリのみ）で動作する
func NewClient(cloneDir, sshKeyPath, sshPassword string) *Client {
	return &Client{
		cloneDir:    cloneDir,
		sshKeyPath:  sshKeyPath,
		sshPassword: sshPassword,
	}
}

// URLToDirectoryName はGit URLをクローン先ディレクトリ名に変換する
func (c *Client) URLToDirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(hostname, filepath.FromSlash(path)), nil
}

// Clone はGitリポジトリを浅くクローンし、クローン先のパスを返す
// 既にクローン済みの場合はそのパスをそのまま返す
func (c *Client) Clone(ctx context.Context, gitURL string) (string, error) {
	dirName, err := c.URLToDirectoryName(gitURL)
	if err != nil {
		return "", err
	}
	destDir := filepath.Join(c.cloneDir, dirName)

	if _, statErr := os.Stat(filepath.Join(destDir, ".git")); statErr == nil {
		return destDir, nil
	}

	auth, err := c.sshAuth()
	if err != nil {
		return "", err
	}

	_, err = git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:   gitURL,
		Auth:  auth,
		Depth: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}

	return destDir, nil
}

// sshAuth はSSH認証情報を構築する
// 鍵が設定されていない場合はnilを返す（匿名アクセス）
func (c *Client) sshAuth() (transport.AuthMethod, error) {
	if c.sshKeyPath == "" {
		return nil, nil
	}

	auth, err := ssh.NewPublicKeysFromFile("git", c.sshKeyPath, c.sshPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

package git

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToDirectoryName(t *testing.T) {
	c := NewClient(t.TempDir(), "", "")

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "HTTPS形式",
			url:  "https://github.com/example/project.git",
			want: filepath.Join("github.com", "example", "project"),
		},
		{
			name: ".gitサフィックスなし",
			url:  "https://github.com/example/project",
			want: filepath.Join("github.com", "example", "project"),
		},
		{
			name: "SCP風SSH形式",
			url:  "git@github.com:example/project.git",
			want: filepath.Join("github.com", "example", "project"),
		},
		{
			name: "ssh形式",
			url:  "ssh://git@gitlab.example.com/team/tool.git",
			want: filepath.Join("gitlab.example.com", "team", "tool"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.URLToDirectoryName(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSSHAuth_NoKeyReturnsNil(t *testing.T) {
	c := NewClient(t.TempDir(), "", "")

	auth, err := c.sshAuth()
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestSSHAuth_MissingKeyFile(t *testing.T) {
	c := NewClient(t.TempDir(), "/nonexistent/key", "")

	_, err := c.sshAuth()
	assert.Error(t, err)
}

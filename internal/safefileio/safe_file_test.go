//go:build test

package safefileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeTempDir creates a temporary directory and resolves any symlinks in its path
// to ensure consistent behavior across different environments.
func safeTempDir(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	realPath, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "Failed to resolve symlinks in temp dir")
	return realPath
}

func TestMapFile(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		opts    Options
		want    []byte
		wantErr bool
		errType error
	}{
		{
			name: "map existing file",
			setup: func(t *testing.T) string {
				filePath := filepath.Join(safeTempDir(t), "object.o")
				require.NoError(t, os.WriteFile(filePath, []byte("\x7fELF content"), 0o600))
				return filePath
			},
			want: []byte("\x7fELF content"),
		},
		{
			name: "empty file",
			setup: func(t *testing.T) string {
				filePath := filepath.Join(safeTempDir(t), "empty.o")
				require.NoError(t, os.WriteFile(filePath, nil, 0o600))
				return filePath
			},
			want: nil,
		},
		{
			name: "non-existent file",
			setup: func(t *testing.T) string {
				return filepath.Join(safeTempDir(t), "nonexistent.o")
			},
			wantErr: true,
			errType: os.ErrNotExist,
		},
		{
			name: "directory instead of file",
			setup: func(t *testing.T) string {
				return safeTempDir(t)
			},
			wantErr: true,
			errType: ErrNotRegularFile,
		},
		{
			name: "symlink to file",
			setup: func(t *testing.T) string {
				tempDir := safeTempDir(t)
				target := filepath.Join(tempDir, "target.o")
				link := filepath.Join(tempDir, "link.o")
				require.NoError(t, os.WriteFile(target, []byte("target"), 0o600))
				require.NoError(t, os.Symlink(target, link))
				return link
			},
			wantErr: true,
			errType: ErrIsSymlink,
		},
		{
			name: "symlink to file when following is allowed",
			setup: func(t *testing.T) string {
				tempDir := safeTempDir(t)
				target := filepath.Join(tempDir, "target.o")
				link := filepath.Join(tempDir, "link.o")
				require.NoError(t, os.WriteFile(target, []byte("target"), 0o600))
				require.NoError(t, os.Symlink(target, link))
				return link
			},
			opts: Options{FollowSymlinks: true},
			want: []byte("target"),
		},
		{
			name: "symlinked directory component",
			setup: func(t *testing.T) string {
				tempDir := safeTempDir(t)
				realDir := filepath.Join(tempDir, "real")
				require.NoError(t, os.Mkdir(realDir, 0o700))
				require.NoError(t, os.WriteFile(filepath.Join(realDir, "a.o"), []byte("a"), 0o600))
				linkDir := filepath.Join(tempDir, "linkdir")
				require.NoError(t, os.Symlink(realDir, linkDir))
				return filepath.Join(linkDir, "a.o")
			},
			wantErr: true,
			errType: ErrIsSymlink,
		},
		{
			name: "file too large",
			setup: func(t *testing.T) string {
				filePath := filepath.Join(safeTempDir(t), "large.o")
				require.NoError(t, os.WriteFile(filePath, make([]byte, 65), 0o600))
				return filePath
			},
			opts:    Options{MaxFileSize: 64},
			wantErr: true,
			errType: ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			m, err := MapFile(path, tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, m.Close()) })

			assert.Equal(t, tt.want, m.Bytes())
			assert.Equal(t, len(tt.want), m.Len())
			assert.True(t, filepath.IsAbs(m.Path()))
		})
	}
}

func TestMapping_CloseTwice(t *testing.T) {
	filePath := filepath.Join(safeTempDir(t), "object.o")
	require.NoError(t, os.WriteFile(filePath, []byte("data"), 0o600))

	m, err := MapFile(filePath, Options{})
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
}

func TestReadFile(t *testing.T) {
	dir := safeTempDir(t)
	filePath := filepath.Join(dir, "elfcheck.toml")
	require.NoError(t, os.WriteFile(filePath, []byte("[output]\n"), 0o600))

	data, err := ReadFile(filePath, Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte("[output]\n"), data)

	empty := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	data, err = ReadFile(empty, Options{})
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = ReadFile(dir, Options{})
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestOpenForAppend(t *testing.T) {
	dir := safeTempDir(t)
	logPath := filepath.Join(dir, "elfcheck.log")

	for _, line := range []string{"first\n", "second\n"} {
		f, err := OpenForAppend(logPath, 0o600)
		require.NoError(t, err)
		_, err = f.WriteString(line)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	link := filepath.Join(dir, "link.log")
	require.NoError(t, os.Symlink(logPath, link))
	_, err = OpenForAppend(link, 0o600)
	assert.ErrorIs(t, err, ErrIsSymlink)
}

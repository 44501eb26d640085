package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    RecordingConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "full configuration",
			content: `recording:
  directory: ` + dir + `
  defaultMaxFileSize: 1048576
  defaultBufferSize: 65536
`,
			want: RecordingConfig{
				Directory:          dir,
				DefaultMaxFileSize: 1048576,
				DefaultBufferSize:  65536,
			},
		},
		{
			name: "defaults applied",
			content: `recording:
  directory: ` + dir + `
`,
			want: RecordingConfig{
				Directory:          dir,
				DefaultMaxFileSize: DefaultMaxFileSize,
				DefaultBufferSize:  DefaultBufferSize,
			},
		},
		{
			name: "empty directory disables recording",
			content: `recording:
  directory: ""
`,
			want: RecordingConfig{
				Directory:          "",
				DefaultMaxFileSize: DefaultMaxFileSize,
				DefaultBufferSize:  DefaultBufferSize,
			},
		},
		{
			name: "unknown field rejected",
			content: `recording:
  directory: ` + dir + `
  rotate: true
`,
			wantErr: true,
			errMsg:  "rotate",
		},
		{
			name: "nonexistent directory rejected",
			content: `recording:
  directory: ` + filepath.Join(dir, "missing") + `
`,
			wantErr: true,
			errMsg:  "not accessible",
		},
		{
			name:    "empty file rejected",
			content: "",
			wantErr: true,
			errMsg:  "empty configuration file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(strings.NewReader(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Recording)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "wiretrace.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recording:\n  directory: "+dir+"\n"), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Recording.Directory)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateFileAsDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	cfg := &Config{Recording: RecordingConfig{Directory: file}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

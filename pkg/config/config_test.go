package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetRepositoryRejectsMissingPath(t *testing.T) {
	cfg := New()
	err := cfg.SetRepository(RepositoryPhy, "/definitely/not/a/real/path")
	require.Error(t, err)
}

func TestSetRepositoryAcceptsExistingPaths(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	cfg := New()

	err := cfg.SetRepository(RepositoryStack, dir1+";"+dir2)
	require.NoError(t, err)
	require.Equal(t, []string{dir1, dir2}, cfg.RepositoryPaths(RepositoryStack))
}

func TestLoadFromFileDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

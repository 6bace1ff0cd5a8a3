package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ringloop/ringloop/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDecodesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ringloop.toml")
	require.NoError(t, os.WriteFile(path, []byte("entries = 256\n"), 0o644))

	opts, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, opts, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

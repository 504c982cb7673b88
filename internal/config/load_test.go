package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kanalyze.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
source:
  root: /tmp/src
  workers: 8
server:
  listen: "127.0.0.1::4000"
cache:
  dir: /tmp/cache
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/src", cfg.Source.Root)
	require.Equal(t, 8, cfg.Source.Workers)
	require.Equal(t, "127.0.0.1::4000", cfg.Server.Listen)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
source:
  root: /tmp/src
cache:
  dir: /tmp/cache
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Source.Workers, "expected default worker count of 4")
	require.Equal(t, "127.0.0.1::3141", cfg.Server.Listen, "expected default listen address")
}

func TestLoadFailsValidationOnMissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, `
server:
  listen: "127.0.0.1::3141"
`)

	_, err := Load(path)
	require.Error(t, err, "expected Load to fail validation when source.root and cache.dir are missing")
}

func TestSourceGetStringReturnsEmptyForUnknownKey(t *testing.T) {
	path := writeTempConfig(t, `
source:
  root: /tmp/src
`)

	src, err := LoadSource(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/src", src.GetString("source.root"))
	require.Equal(t, "", src.GetString("does.not.exist"), "expected empty string for unknown key")
}

func TestExampleProducesLoadableYAML(t *testing.T) {
	raw, err := Example()
	require.NoError(t, err)

	path := writeTempConfig(t, string(raw))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Source.Root)
	require.NotEmpty(t, cfg.Cache.Dir)
}

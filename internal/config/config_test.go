package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staymatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Matching.TopN)
	assert.Equal(t, 60*time.Second, cfg.Oracle.Timeout)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
oracle:
  model: gpt-4
  timeout: 15s
cache:
  ttl: 1h
  memcache: ["cache-a:11211", "cache-b:11211"]
matching:
  top_n: 5
  accept_threshold: 0.8
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "./data", cfg.Storage.DataDir, "unset keys keep defaults")
	assert.Equal(t, "gpt-4", cfg.Oracle.Model)
	assert.Equal(t, 15*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"cache-a:11211", "cache-b:11211"}, cfg.Cache.Memcache)
	assert.Equal(t, 5, cfg.Matching.TopN)
	assert.InDelta(t, 0.8, cfg.Matching.AcceptThreshold, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("STAYMATCH_ADDR", ":7000")
	t.Setenv("STAYMATCH_OPENAI_API_KEY", "sk-test")
	t.Setenv("STAYMATCH_MEMCACHE_SERVERS", "a:1, b:2,")
	t.Setenv("STAYMATCH_TOP_N", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Cache.Memcache)
	assert.Equal(t, 3, cfg.Matching.TopN)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("STAYMATCH_TOP_N", "many")
		_, err := Load("")
		assert.ErrorContains(t, err, "STAYMATCH_TOP_N")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "matching:\n  top_n: 0\n  fuzzy_cutoff: 1.5\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "top_n")
		assert.Contains(t, err.Error(), "fuzzy_cutoff")
	})
}
